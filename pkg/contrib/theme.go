package contrib

import (
	"strings"
)

// Theme selects the color palette of a graph.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"

	DefaultTheme = ThemeDark
)

// Themes lists the supported themes in display order.
var Themes = []Theme{ThemeLight, ThemeDark}

// ParseTheme parses a user supplied theme name. An empty string yields
// DefaultTheme.
func ParseTheme(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultTheme, nil
	case ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	default:
		return "", NewError(KindInvalidTheme, "unknown theme %q", s)
	}
}

func (t Theme) String() string {
	return string(t)
}

// Palette maps each intensity level to a color.
type Palette [LevelCount]string

// Color returns the color of level l. Out of range levels are clamped.
func (p Palette) Color(l Level) string {
	if l < Level0 {
		l = Level0
	}
	if l > Level4 {
		l = Level4
	}
	return p[l]
}

// PaletteFunc resolves the palette of a theme. The fetcher takes one so that
// tests and embedders can supply their own colors.
type PaletteFunc func(Theme) Palette

var (
	lightPalette = Palette{"#ebedf0", "#9be9a8", "#40c463", "#30a14e", "#216e39"}
	darkPalette  = Palette{"#5f5f5f", "#0e4429", "#006d32", "#26a641", "#39d353"}
)

// PaletteFor is the default PaletteFunc. Unknown themes get the palette of
// DefaultTheme.
func PaletteFor(t Theme) Palette {
	if t == ThemeLight {
		return lightPalette
	}
	return darkPalette
}
