package components

import (
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/atozfamily/homescholar/internal/ui/theme"
)

// TextField is a labelled single-line input with an inline error.
type TextField struct {
	Label string
	Error string
	Model textinput.Model
}

// NewTextField creates an unfocused text field.
func NewTextField(label, placeholder string, charLimit int) TextField {
	ti := textinput.New()
	ti.Placeholder = placeholder
	if charLimit > 0 {
		ti.CharLimit = charLimit
	}
	return TextField{Label: label, Model: ti}
}

func (f *TextField) Focus() tea.Cmd {
	return f.Model.Focus()
}

func (f *TextField) Blur() {
	f.Model.Blur()
}

// SetValue replaces the text without moving focus.
func (f *TextField) SetValue(v string) {
	if f.Model.Value() != v {
		f.Model.SetValue(v)
	}
}

func (f TextField) Value() string {
	return f.Model.Value()
}

// Update forwards msg to the input and reports whether the text changed.
func (f TextField) Update(msg tea.Msg) (TextField, tea.Cmd, bool) {
	before := f.Model.Value()
	var cmd tea.Cmd
	f.Model, cmd = f.Model.Update(msg)
	return f, cmd, f.Model.Value() != before
}

func (f TextField) View(focused, disabled bool) string {
	label := theme.Label.Render(f.Label)
	if focused && !disabled {
		label = theme.Selected.Render("▸ " + f.Label)
	}
	input := f.Model.View()
	if disabled {
		input = theme.Subtitle.Render(orPlaceholder(f.Model.Value(), f.Model.Placeholder))
	}
	return renderField(label, input, f.Error)
}

func renderField(label, input, errMsg string) string {
	out := label + "\n  " + input
	if errMsg != "" {
		out += "\n  " + theme.FieldError.Render(errMsg)
	}
	return lipgloss.NewStyle().MarginBottom(1).Render(out)
}

func orPlaceholder(v, placeholder string) string {
	if v == "" {
		return placeholder
	}
	return v
}
