// Package widgets provides the widgets hosted by the minigraph TUI: the
// mini graph card and the navigation history panel. Each widget implements
// the app.Widget interface and receives data via the Elm-architecture
// Update loop.
package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Common color constants for widget accents.
const (
	// ColorAccent is a softer purple for titles and highlights.
	ColorAccent = "#A78BFA"

	// ColorDim is used for de-emphasized text such as disabled items.
	ColorDim = "#9CA3AF"

	// ColorError is used for error message text.
	ColorError = "#EF4444"

	// ColorSelected is the background of the selected row.
	ColorSelected = "#4C1D95"
)

var (
	accentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent)).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDim))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError))
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color(ColorSelected)).Bold(true)
)

// fitToArea clips or pads lines to exactly width x height, keeping the line
// at index keep visible when it would otherwise scroll off.
func fitToArea(lines []string, width, height, keep int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	start := 0
	if keep >= height {
		start = keep - height + 1
	}
	if start > len(lines) {
		start = len(lines)
	}
	lines = lines[start:]

	out := make([]string, 0, height)
	for _, line := range lines {
		if len(out) == height {
			break
		}
		out = append(out, fitLine(line, width))
	}
	empty := strings.Repeat(" ", width)
	for len(out) < height {
		out = append(out, empty)
	}
	return strings.Join(out, "\n")
}

// fitLine truncates or pads a single line to width visible cells.
func fitLine(line string, width int) string {
	vis := ansi.StringWidth(line)
	if vis > width {
		return ansi.Truncate(line, width, "…")
	}
	return line + strings.Repeat(" ", width-vis)
}

// centerText places s in the middle of a width x height area.
func centerText(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, fitLine(s, min(width, ansi.StringWidth(s))))
}
