package curriculum

import (
	"fmt"
	"strings"
)

// Format renders c as plain text for terminals: title, description,
// numbered objectives and lessons.
func Format(c *Curriculum) string {
	if c == nil {
		return ""
	}
	var b strings.Builder

	b.WriteString(c.Title + "\n")
	b.WriteString(strings.Repeat("=", len([]rune(c.Title))) + "\n\n")
	if c.Description != "" {
		b.WriteString(c.Description + "\n\n")
	}

	b.WriteString("Objectives:\n")
	for i, o := range c.Objectives {
		b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, o))
	}

	b.WriteString("\nLessons:\n")
	for _, l := range c.Lessons {
		b.WriteString("  - " + l.Title + "\n")
		if l.Description != "" {
			b.WriteString("    " + l.Description + "\n")
		}
	}
	return b.String()
}
