package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	colorText    lipgloss.Color = "#cdd6f4"
	colorMuted   lipgloss.Color = "#7f849c"
	colorFocus   lipgloss.Color = "#b4befe"
	colorSuccess lipgloss.Color = "#a6e3a1"
	colorError   lipgloss.Color = "#f38ba8"
	colorWarning lipgloss.Color = "#f9e2af"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	footerStyle  = lipgloss.NewStyle().Foreground(colorMuted).MarginTop(1)
	modalStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	focusMarker  = lipgloss.NewStyle().Foreground(colorFocus).Render("> ")
)

// themeStyle styles a strategy name in its theme colour.
func themeStyle(theme string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(themeColor(theme))
}

// themeColor turns a strategy theme ("r, g, b") into a colour. Anything it
// cannot parse falls back to the focus colour.
func themeColor(theme string) lipgloss.Color {
	parts := strings.Split(theme, ",")
	if len(parts) != 3 {
		return colorFocus
	}
	var rgb [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v < 0 || v > 255 {
			return colorFocus
		}
		rgb[i] = v
	}
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2]))
}
