package tui

import (
	"github.com/mattn/go-runewidth"
)

// truncateWithWidth truncates text to fit within maxWidth cells, accounting
// for wide characters. Adds "..." if the text is truncated.
func truncateWithWidth(text string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(text) <= maxWidth {
		return text
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(text, maxWidth, "")
	}

	width := 0
	for i, r := range text {
		width += runewidth.RuneWidth(r)
		if width > maxWidth-3 {
			return text[:i] + "..."
		}
	}
	return text
}
