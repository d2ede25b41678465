package wizard

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/atozfamily/homescholar/internal/screens/viewer"
	"github.com/atozfamily/homescholar/internal/ui/components"
	"github.com/atozfamily/homescholar/internal/ui/theme"
	wiz "github.com/atozfamily/homescholar/internal/wizard"
)

// maxActivityLines bounds the research log shown while researching.
const maxActivityLines = 6

func (s *Screen) View(width, height int) string {
	cw := min(width-4, 96)

	var body string
	switch s.state.Phase {
	case wiz.PhaseResearching:
		body = s.viewResearching(cw)
	case wiz.PhaseResearchComplete:
		body = s.viewResearchComplete(cw)
	case wiz.PhaseGenerating:
		body = s.viewGenerating(cw)
	case wiz.PhaseGenerationComplete:
		body = s.viewComplete(cw)
	default:
		body = s.viewForm(cw)
		s.scroll = followFocus(body, s.scroll, height)
	}

	body, s.scroll = viewer.Window(body, s.scroll, height)
	return lipgloss.NewStyle().Padding(0, 2).Render(body)
}

// followFocus adjusts offset so the focused control, marked with "▸", stays
// on screen.
func followFocus(body string, offset, height int) int {
	for i, line := range strings.Split(body, "\n") {
		if !strings.Contains(line, "▸") {
			continue
		}
		if i < offset {
			return i
		}
		if i > offset+height-4 {
			return i - height + 4
		}
		return offset
	}
	return offset
}

func stepHeading(step int, name string) string {
	return theme.Subtitle.Render(fmt.Sprintf("Step %d of 2 · ", step)) + theme.Title.Render(name)
}

func (s *Screen) viewForm(width int) string {
	var b strings.Builder

	if s.state.Phase == wiz.PhaseGenerationForm || s.state.Phase == wiz.PhaseGenerationFailed {
		b.WriteString(stepHeading(2, "Learner Profile") + "\n")
		b.WriteString(theme.Subtitle.Render(s.state.Summary()) + "\n\n")
	} else {
		b.WriteString(stepHeading(1, "Research") + "\n")
		b.WriteString(theme.Subtitle.Render("Tell us what to teach. We'll find resources to build on.") + "\n\n")
	}

	if s.state.Notice != "" {
		b.WriteString(lipgloss.NewStyle().Width(width).Render(theme.Notice.Render(s.state.Notice)) + "\n")
		b.WriteString(theme.Hint.Render("Ctrl+X to dismiss, Enter on the button to try again") + "\n\n")
	}

	b.WriteString(s.viewFields(false))
	b.WriteString(components.Button{
		Label:   s.state.SubmitLabel(),
		Focused: s.focus == len(s.fields()),
	}.View())
	return b.String()
}

func (s *Screen) viewFields(disabled bool) string {
	var b strings.Builder
	for i, f := range s.fields() {
		focused := i == s.focus
		if c := s.choices[f]; c != nil {
			b.WriteString(c.View(focused, disabled) + "\n")
		} else if t := s.texts[f]; t != nil {
			b.WriteString(t.View(focused, disabled) + "\n")
		}
	}
	return b.String()
}

func (s *Screen) viewResearching(width int) string {
	var b strings.Builder
	q := s.state.Query
	b.WriteString(stepHeading(1, "Research") + "\n")
	b.WriteString(theme.Body.Render(fmt.Sprintf("Researching %s for %s: %s",
		wiz.Label(wiz.FieldSubject, q.Subject), wiz.Label(wiz.FieldGrade, q.Grade), q.Topics)) + "\n\n")

	b.WriteString(components.ProgressBar{
		Label: "Searches",
		Done:  min(s.searches, s.deps.MaxToolCalls),
		Total: s.deps.MaxToolCalls,
		Width: min(width, 60),
	}.View() + "\n\n")

	activity := s.activity
	if len(activity) > maxActivityLines {
		activity = activity[len(activity)-maxActivityLines:]
	}
	for _, line := range activity {
		b.WriteString(theme.Hint.Render("  "+line) + "\n")
	}
	b.WriteString("\n" + components.Button{Label: s.state.SubmitLabel(), Disabled: true}.View())
	return b.String()
}

func (s *Screen) viewResearchComplete(width int) string {
	var b strings.Builder
	b.WriteString(stepHeading(1, "Research Complete") + "\n")
	b.WriteString(theme.Body.Render(s.state.Summary()) + "\n\n")

	for _, w := range s.warnings {
		b.WriteString(theme.Warning.Render("! "+w) + "\n")
	}
	if len(s.state.Resources) == 0 {
		b.WriteString(theme.Hint.Render("No resources were found. The curriculum will be written from general knowledge.") + "\n")
	}

	snippet := lipgloss.NewStyle().Width(width).PaddingLeft(4).Foreground(theme.TextDim)
	for i, r := range s.state.Resources {
		b.WriteString(theme.Selected.Render(fmt.Sprintf("%2d. %s", i+1, r.Title)) + "\n")
		b.WriteString("    " + theme.Link.Render(r.URL) + "\n")
		if r.Snippet != "" {
			b.WriteString(snippet.Render(r.Snippet) + "\n")
		}
	}
	b.WriteString("\n" + components.Button{Label: "Continue to Curriculum", Focused: true}.View())
	return b.String()
}

func (s *Screen) viewGenerating(width int) string {
	var b strings.Builder
	p := s.state.Profile
	b.WriteString(stepHeading(2, "Writing Curriculum") + "\n")
	b.WriteString(theme.Body.Render(fmt.Sprintf("Writing a %s plan for %s, using %d resources.",
		wiz.Label(wiz.FieldDuration, p.Duration), p.ChildName, len(s.state.Resources))) + "\n\n")
	b.WriteString(s.viewFields(true))
	b.WriteString(components.Button{Label: s.state.SubmitLabel(), Disabled: true}.View())
	return b.String()
}

func (s *Screen) viewComplete(width int) string {
	var b strings.Builder
	switch {
	case s.saved != nil:
		b.WriteString(theme.Hint.Render("Saved to your library.") + "\n\n")
	case s.saveErr != "":
		b.WriteString(theme.FieldError.Render("Could not save: "+s.saveErr) + "\n\n")
	}
	b.WriteString(viewer.Render(s.state.Curriculum, s.state.Resources, width))
	return b.String()
}
