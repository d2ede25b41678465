package home

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/atozfamily/homescholar/internal/router"
	"github.com/atozfamily/homescholar/internal/screen"
	"github.com/atozfamily/homescholar/internal/ui/components"
	"github.com/atozfamily/homescholar/internal/ui/theme"
)

// Factories build the screens reachable from the home menu. A nil factory
// disables its menu item.
type Factories struct {
	Wizard  func() screen.Screen
	Library func() screen.Screen
}

// HomeScreen is the main menu.
type HomeScreen struct {
	menu components.Menu
}

var _ screen.Screen = (*HomeScreen)(nil)

// New creates a HomeScreen.
func New(f Factories) *HomeScreen {
	push := func(build func() screen.Screen) func() tea.Cmd {
		return func() tea.Cmd {
			return func() tea.Msg { return router.PushScreenMsg{Screen: build()} }
		}
	}

	items := []components.MenuItem{
		{
			Label:    "New Curriculum",
			Hint:     "Research a subject, then build a week-by-week plan",
			Disabled: f.Wizard == nil,
		},
		{
			Label:    "Saved Curricula",
			Hint:     "Browse plans you have already made",
			Disabled: f.Library == nil,
		},
		{
			Label:  "Quit",
			Action: func() tea.Cmd { return tea.Quit },
		},
	}
	if f.Wizard != nil {
		items[0].Action = push(f.Wizard)
	}
	if f.Library != nil {
		items[1].Action = push(f.Library)
	}

	return &HomeScreen{menu: components.NewMenu(items)}
}

func (h *HomeScreen) Init() tea.Cmd {
	return nil
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	cw := min(width-4, 64)

	title := renderBanner(cw)
	tagline := lipgloss.PlaceHorizontal(cw, lipgloss.Center,
		theme.Subtitle.Render("Research-backed homeschool curricula, built for your child"))
	menu := theme.Card.Width(cw).Render(strings.TrimRight(h.menu.View(), "\n"))

	content := strings.Join([]string{title, tagline, menu}, "\n\n")
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

func (h *HomeScreen) Title() string {
	return "Home"
}
