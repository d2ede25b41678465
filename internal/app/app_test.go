package app

import (
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/atozfamily/homescholar/internal/router"
	"github.com/atozfamily/homescholar/internal/screen"
	"github.com/atozfamily/homescholar/internal/screens/home"
	"github.com/atozfamily/homescholar/internal/ui/layout"
)

type hinted struct{ closed bool }

func (h *hinted) Init() tea.Cmd                           { return nil }
func (h *hinted) Update(tea.Msg) (screen.Screen, tea.Cmd) { return h, nil }
func (h *hinted) View(int, int) string                    { return "hinted" }
func (h *hinted) Title() string                           { return "Hinted" }
func (h *hinted) Close()                                  { h.closed = true }
func (h *hinted) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{{Key: "X", Description: "Custom"}}
}

func TestAppModel_EscPopsAndCloses(t *testing.T) {
	child := &hinted{}
	m := newAppModel(Options{Screens: home.Factories{Wizard: func() screen.Screen { return child }}})

	m.router.Update(router.PushScreenMsg{Screen: child})
	if m.router.Depth() != 2 {
		t.Fatalf("depth = %d, want 2", m.router.Depth())
	}

	hints := m.footerHints(m.router.Active())
	if len(hints) != 2 || hints[0].Key != "X" {
		t.Errorf("hints = %+v, want screen hints plus quit", hints)
	}

	_, cmd := m.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	if cmd == nil {
		t.Fatal("esc produced no command")
	}
	m.router.Update(cmd())
	if m.router.Depth() != 1 || !child.closed {
		t.Errorf("after esc: depth %d closed %v", m.router.Depth(), child.closed)
	}

	if _, cmd := m.Update(tea.KeyPressMsg{Code: tea.KeyEscape}); cmd != nil {
		t.Error("esc on the home screen should do nothing")
	}
}
