package layout

import (
	"strings"
	"testing"

	"charm.land/lipgloss/v2"
)

func TestRenderHeader(t *testing.T) {
	out := RenderHeader("New Curriculum", "demo · openalex", 90)
	for _, want := range []string{"HomeScholar", "New Curriculum", "demo · openalex"} {
		if !strings.Contains(out, want) {
			t.Errorf("header missing %q", want)
		}
	}
}

func TestRenderFooter(t *testing.T) {
	out := RenderFooter([]KeyHint{{Key: "Tab", Description: "Next field"}, {Key: "Esc", Description: "Back"}}, 80)
	if !strings.Contains(out, "Tab") || !strings.Contains(out, "Next field") {
		t.Errorf("footer missing hints: %q", out)
	}
}

func TestRenderFrame_FitsHeight(t *testing.T) {
	header := RenderHeader("x", "", 80)
	footer := RenderFooter(nil, 80)
	content := strings.Repeat("line\n", 100)

	frame := RenderFrame(header, content, footer, 80, 24)
	if h := lipgloss.Height(frame); h != 24 {
		t.Errorf("frame height = %d, want 24", h)
	}
}

func TestIsTooSmall(t *testing.T) {
	if !IsTooSmall(40, 30) || !IsTooSmall(100, 10) || IsTooSmall(MinWidth, MinHeight) {
		t.Error("IsTooSmall thresholds wrong")
	}
}
