package components

import (
	tea "charm.land/bubbletea/v2"

	"github.com/atozfamily/homescholar/internal/ui/theme"
)

// Choice is a labelled select input cycled with left/right. Index -1 means
// nothing is chosen yet.
type Choice struct {
	Label   string
	Error   string
	Values  []string
	Labels  []string
	Index   int
	Default string
}

// NewChoice creates a Choice with no selection. values and labels are
// parallel slices.
func NewChoice(label string, values, labels []string) Choice {
	return Choice{Label: label, Values: values, Labels: labels, Index: -1}
}

// Value returns the chosen value, or "" when nothing is chosen.
func (c Choice) Value() string {
	if c.Index < 0 || c.Index >= len(c.Values) {
		return ""
	}
	return c.Values[c.Index]
}

// Select chooses value if it is one of the options, else clears.
func (c *Choice) Select(value string) {
	c.Index = -1
	for i, v := range c.Values {
		if v == value {
			c.Index = i
			return
		}
	}
}

// Update handles left/right cycling and reports whether the value changed.
func (c Choice) Update(msg tea.Msg) (Choice, bool) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok || len(c.Values) == 0 {
		return c, false
	}
	before := c.Index
	switch kmsg.String() {
	case "left", "h":
		if c.Index <= 0 {
			c.Index = len(c.Values) - 1
		} else {
			c.Index--
		}
	case "right", "l", "space":
		c.Index = (c.Index + 1) % len(c.Values)
	}
	return c, c.Index != before
}

func (c Choice) View(focused, disabled bool) string {
	label := theme.Label.Render(c.Label)
	if focused && !disabled {
		label = theme.Selected.Render("▸ " + c.Label)
	}

	var input string
	switch {
	case c.Index < 0 && c.Default != "":
		input = theme.Subtitle.Render(c.Default + " (default)")
	case c.Index < 0:
		input = theme.Subtitle.Render("Select...")
	default:
		input = theme.Body.Render(c.Labels[c.Index])
	}
	if focused && !disabled {
		input = theme.Hint.Render("‹ ") + input + theme.Hint.Render(" ›")
	}
	return renderField(label, input, c.Error)
}
