package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/weekendly/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

// Predefined lipgloss styles.
var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// CategoryStyle returns the style used for a plan category label.
func CategoryStyle(c domain.Category) lipgloss.Style {
	switch c {
	case domain.CategoryAdventurous, domain.CategoryTravel:
		return StyleYellow
	case domain.CategoryLazy:
		return StyleBlue
	case domain.CategoryFamily, domain.CategorySocial:
		return StyleGreen
	case domain.CategoryFoodie, domain.CategoryCreative:
		return StylePurple
	default:
		return StyleDim
	}
}

// Swatch renders a small block in the plan's own color followed by the hex
// value. Invalid colors fall back to the dim style.
func Swatch(hex string) string {
	style := StyleDim
	if strings.HasPrefix(hex, "#") && (len(hex) == 4 || len(hex) == 7) {
		style = lipgloss.NewStyle().Foreground(lipgloss.Color(hex))
	}
	return style.Render("■") + " " + hex
}

// ConnectionIndicator returns "● ONLINE", "● OFFLINE" or "● SYNCING n".
func ConnectionIndicator(online bool, pending int) string {
	switch {
	case !online:
		return StyleRed.Render("● OFFLINE")
	case pending > 0:
		return StyleYellow.Render(fmt.Sprintf("● SYNCING %d", pending))
	default:
		return StyleGreen.Render("● ONLINE")
	}
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", lipgloss.Width(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

// Dim renders text in the muted/dim color.
func Dim(text string) string {
	return StyleDim.Render(text)
}

// Bold renders text in bold with the foreground color.
func Bold(text string) string {
	return StyleBold.Render(text)
}

// Warn renders a yellow warning line.
func Warn(text string) string {
	return StyleYellow.Render("! " + text)
}

// Fail renders a red error line.
func Fail(text string) string {
	return StyleRed.Render("✗ " + text)
}

// Done renders a green confirmation line.
func Done(text string) string {
	return StyleGreen.Render("✓ ") + text
}
