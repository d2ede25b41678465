package home

import (
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/atozfamily/homescholar/internal/router"
	"github.com/atozfamily/homescholar/internal/screen"
)

type stubScreen struct{ title string }

func (s stubScreen) Init() tea.Cmd                           { return nil }
func (s stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s stubScreen) View(int, int) string                    { return s.title }
func (s stubScreen) Title() string                           { return s.title }

func TestHome_MenuPushesScreens(t *testing.T) {
	h := New(Factories{
		Wizard:  func() screen.Screen { return stubScreen{"wizard"} },
		Library: func() screen.Screen { return stubScreen{"library"} },
	})

	_, cmd := h.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	push, ok := cmd().(router.PushScreenMsg)
	if !ok || push.Screen.Title() != "wizard" {
		t.Fatalf("enter on first item = %#v", cmd())
	}

	h.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	_, cmd = h.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	push, ok = cmd().(router.PushScreenMsg)
	if !ok || push.Screen.Title() != "library" {
		t.Fatalf("enter on second item = %#v", cmd())
	}
}

func TestHome_MissingLibraryIsDisabled(t *testing.T) {
	h := New(Factories{Wizard: func() screen.Screen { return stubScreen{"wizard"} }})

	h.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	if h.menu.Selected != 2 {
		t.Errorf("down should skip the disabled item to Quit, selected %d", h.menu.Selected)
	}
}

func TestHome_View(t *testing.T) {
	h := New(Factories{})
	out := h.View(120, 40)
	if !strings.Contains(out, "Quit") {
		t.Errorf("menu not rendered:\n%s", out)
	}
	if !strings.Contains(renderBanner(30), "H O M E S C H O L A R") {
		t.Error("narrow banner should use the compact title")
	}
}
