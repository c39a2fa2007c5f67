// Package lipgloss renders analysis results for the terminal using the
// Lipgloss styling library.
package lipgloss

import "github.com/fwojciec/untangle"

// Theme holds the colors of the terminal summary. Colors are hex strings in
// "#RRGGBB" format; empty strings use the terminal default.
type Theme struct {
	Title   string
	Muted   string // Hunk ids and counts
	Added   string // New-side lines
	Deleted string // Old-side lines
	Action  string // Refactorings attached to hunks
	Labels  map[untangle.GroupLabel]string
}

// LabelColor returns the color of a group label, falling back to Title.
func (t *Theme) LabelColor(label untangle.GroupLabel) string {
	if c, ok := t.Labels[label]; ok {
		return c
	}
	return t.Title
}

// DefaultTheme returns the default theme (dark background optimized).
func DefaultTheme() *Theme {
	return DarkTheme()
}

// DarkTheme returns a theme optimized for dark terminal backgrounds.
func DarkTheme() *Theme {
	return &Theme{
		Title:   "#cdd6f4",
		Muted:   "#6c7086",
		Added:   "#a6e3a1",
		Deleted: "#f38ba8",
		Action:  "#cba6f7",
		Labels: map[untangle.GroupLabel]string{
			untangle.LabelNonSource: "#9399b2",
			untangle.LabelReformat:  "#89dceb",
			untangle.LabelRefactor:  "#cba6f7",
			untangle.LabelLinked:    "#89b4fa",
			untangle.LabelOther:     "#f9e2af",
		},
	}
}

// LightTheme returns a theme optimized for light terminal backgrounds.
func LightTheme() *Theme {
	return &Theme{
		Title:   "#4c4f69",
		Muted:   "#9ca0b0",
		Added:   "#40a02b",
		Deleted: "#d20f39",
		Action:  "#8839ef",
		Labels: map[untangle.GroupLabel]string{
			untangle.LabelNonSource: "#6c6f85",
			untangle.LabelReformat:  "#04a5e5",
			untangle.LabelRefactor:  "#8839ef",
			untangle.LabelLinked:    "#1e66f5",
			untangle.LabelOther:     "#df8e1d",
		},
	}
}
