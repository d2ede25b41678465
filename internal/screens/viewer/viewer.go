package viewer

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/atozfamily/homescholar/internal/curriculum"
	"github.com/atozfamily/homescholar/internal/library"
	"github.com/atozfamily/homescholar/internal/router"
	"github.com/atozfamily/homescholar/internal/screen"
	"github.com/atozfamily/homescholar/internal/search"
	"github.com/atozfamily/homescholar/internal/ui/layout"
	"github.com/atozfamily/homescholar/internal/ui/theme"
	wiz "github.com/atozfamily/homescholar/internal/wizard"
)

// Screen shows one saved curriculum.
type Screen struct {
	entry  library.Entry
	scroll int
	height int
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)

// New creates a viewer for entry.
func New(entry library.Entry) *Screen {
	return &Screen{entry: entry}
}

func (s *Screen) Init() tea.Cmd { return nil }

func (s *Screen) Title() string {
	return s.entry.Title
}

func (s *Screen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Scroll"},
		{Key: "PgUp/PgDn", Description: "Page"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}
	page := max(s.height-2, 1)
	switch kmsg.String() {
	case "esc", "q":
		return s, func() tea.Msg { return router.PopScreenMsg{} }
	case "up", "k":
		s.scroll = max(s.scroll-1, 0)
	case "down", "j":
		s.scroll++
	case "pgup":
		s.scroll = max(s.scroll-page, 0)
	case "pgdown", "space":
		s.scroll += page
	case "home", "g":
		s.scroll = 0
	}
	return s, nil
}

func (s *Screen) View(width, height int) string {
	s.height = height

	q := s.entry.Query
	header := theme.Subtitle.Render(fmt.Sprintf("%s · %s · %s · saved %s",
		wiz.Label(wiz.FieldSubject, q.Subject),
		wiz.Label(wiz.FieldGrade, q.Grade),
		q.Topics,
		s.entry.CreatedAt.Local().Format("Jan 02, 2006 15:04")))

	body := header + "\n\n" + Render(s.entry.Curriculum, s.entry.Resources, width-4)
	var clamped string
	clamped, s.scroll = Window(body, s.scroll, height)
	return lipgloss.NewStyle().Padding(0, 2).Render(clamped)
}

// Render formats a curriculum and the resources it was built from for the
// terminal, wrapped to width.
func Render(c *curriculum.Curriculum, resources []search.Candidate, width int) string {
	if c == nil {
		return theme.Hint.Render("No curriculum.")
	}
	width = max(width, 20)
	wrap := lipgloss.NewStyle().Width(width)
	indent := lipgloss.NewStyle().Width(width).PaddingLeft(4)

	var b strings.Builder
	b.WriteString(theme.Title.Render(c.Title) + "\n")
	if c.Description != "" {
		b.WriteString(wrap.Render(theme.Body.Render(c.Description)) + "\n")
	}

	b.WriteString("\n" + theme.Label.Render("Learning Objectives") + "\n")
	for i, o := range c.Objectives {
		b.WriteString(wrap.Render(fmt.Sprintf("  %d. %s", i+1, o)) + "\n")
	}

	b.WriteString("\n" + theme.Label.Render("Lessons") + "\n")
	for _, l := range c.Lessons {
		b.WriteString(theme.Selected.Render("  "+l.Title) + "\n")
		if l.Description != "" {
			b.WriteString(indent.Render(theme.Subtitle.Render(l.Description)) + "\n")
		}
	}

	for _, w := range c.Warnings() {
		b.WriteString("\n" + theme.Warning.Render("! "+w))
	}

	if len(resources) > 0 {
		b.WriteString("\n" + theme.Label.Render("Resources") + "\n")
		for _, r := range resources {
			b.WriteString("  " + theme.Body.Render(r.Title) + "\n")
			b.WriteString("    " + theme.Link.Render(r.URL) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Window returns the height lines of text starting at offset, with offset
// clamped to the scrollable range.
func Window(text string, offset, height int) (string, int) {
	lines := strings.Split(text, "\n")
	if height <= 0 {
		return "", 0
	}
	offset = min(max(offset, 0), max(len(lines)-height, 0))
	end := min(offset+height, len(lines))
	return strings.Join(lines[offset:end], "\n"), offset
}
