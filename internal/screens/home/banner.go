package home

import (
	"charm.land/lipgloss/v2"

	"github.com/atozfamily/homescholar/internal/ui/theme"
)

const bannerArt = `
 _   _                      ____       _           _
| | | | ___  _ __ ___   ___/ ___|  ___| |__   ___ | | __ _ _ __
| |_| |/ _ \| '_ ' _ \ / _ \___ \ / __| '_ \ / _ \| |/ _' | '__|
|  _  | (_) | | | | | |  __/___) | (__| | | | (_) | | (_| | |
|_| |_|\___/|_| |_| |_|\___|____/ \___|_| |_|\___/|_|\__,_|_|`

const bannerCompact = "H O M E S C H O L A R"

// renderBanner returns the title art centered in width, falling back to a
// compact title on narrow terminals.
func renderBanner(width int) string {
	style := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	art := bannerArt
	if width < lipgloss.Width(bannerArt) {
		art = bannerCompact
	}
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Render(style.Render(art))
}
