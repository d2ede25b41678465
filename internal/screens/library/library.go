package library

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	lib "github.com/atozfamily/homescholar/internal/library"
	"github.com/atozfamily/homescholar/internal/router"
	"github.com/atozfamily/homescholar/internal/screen"
	"github.com/atozfamily/homescholar/internal/screens/viewer"
	"github.com/atozfamily/homescholar/internal/ui/layout"
	"github.com/atozfamily/homescholar/internal/ui/theme"
	wiz "github.com/atozfamily/homescholar/internal/wizard"
)

const listLimit = 50

type entriesLoadedMsg struct {
	Entries []lib.Entry
	Err     error
}

// Screen lists saved curricula, newest first.
type Screen struct {
	library  lib.Library
	entries  []lib.Entry
	selected int
	loaded   bool
	errMsg   string
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)

// New creates a library screen backed by l.
func New(l lib.Library) *Screen {
	return &Screen{library: l}
}

func (s *Screen) Init() tea.Cmd {
	return func() tea.Msg {
		entries, err := s.library.List(context.Background(), listLimit)
		return entriesLoadedMsg{Entries: entries, Err: err}
	}
}

func (s *Screen) Title() string {
	return "Saved Curricula"
}

func (s *Screen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Open"},
		{Key: "↑↓", Description: "Navigate"},
		{Key: "R", Description: "Reload"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case entriesLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		} else {
			s.entries, s.errMsg = msg.Entries, ""
			s.selected = min(s.selected, max(len(s.entries)-1, 0))
		}
		s.loaded = true
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
		case "down", "j":
			if s.selected < len(s.entries)-1 {
				s.selected++
			}
		case "r":
			s.loaded = false
			return s, s.Init()
		case "enter":
			if s.selected < len(s.entries) {
				entry := s.entries[s.selected]
				return s, func() tea.Msg {
					return router.PushScreenMsg{Screen: viewer.New(entry)}
				}
			}
		}
	}
	return s, nil
}

func (s *Screen) View(width, height int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render(fmt.Sprintf("\n\nError: %s", s.errMsg))
	}
	if !s.loaded {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  Loading saved curricula...")
	}
	if len(s.entries) == 0 {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
			Render("\n\n  Nothing saved yet. Create your first curriculum!")
	}

	var b strings.Builder
	b.WriteString("\n")

	for i, e := range s.entries {
		prefix := "  "
		if i == s.selected {
			prefix = "> "
		}
		line := fmt.Sprintf("%s%s  %s", prefix, e.CreatedAt.Local().Format("Jan 02, 2006"), e.Title)

		style := lipgloss.NewStyle().Foreground(theme.Text)
		if i == s.selected {
			style = style.Foreground(theme.Primary).Bold(true)
		}
		b.WriteString(style.Render(line) + "\n")

		if i == s.selected {
			detail := fmt.Sprintf("    %s · %s · %s · %d lessons, %d resources",
				wiz.Label(wiz.FieldSubject, e.Query.Subject),
				wiz.Label(wiz.FieldGrade, e.Query.Grade),
				e.Query.Topics, lessonCount(e), len(e.Resources))
			b.WriteString(theme.Hint.Render(detail) + "\n")
		}
	}

	out, _ := viewer.Window(b.String(), s.selected-height/2, height)
	return lipgloss.NewStyle().Padding(0, 2).Render(out)
}

func lessonCount(e lib.Entry) int {
	if e.Curriculum == nil {
		return 0
	}
	return len(e.Curriculum.Lessons)
}
