package components

import (
	"github.com/atozfamily/homescholar/internal/ui/theme"
)

// Button is a submit control. A disabled button renders dimmed and its
// owner ignores presses.
type Button struct {
	Label    string
	Focused  bool
	Disabled bool
}

// View renders the button.
func (b Button) View() string {
	if b.Disabled || !b.Focused {
		return theme.ButtonInactive.Render(b.Label)
	}
	return theme.ButtonActive.Render("▸ " + b.Label)
}
