package session

import (
	"fmt"
	"strings"
)

// ResizeMode is how the video is fitted to the window
type ResizeMode int

const (
	ResizeFit ResizeMode = iota
	ResizeStretch
	ResizeZoom
	ResizeOneToOne

	resizeModeCount = 4
)

// Next advances one step, wrapping after the last mode
func (m ResizeMode) Next() ResizeMode {
	return ResizeMode((int(m) + 1) % resizeModeCount)
}

func (m ResizeMode) String() string {
	switch m {
	case ResizeFit:
		return "fit"
	case ResizeStretch:
		return "stretch"
	case ResizeZoom:
		return "zoom"
	case ResizeOneToOne:
		return "one-to-one"
	default:
		return "unknown"
	}
}

// ParseResizeMode parses a mode name as written in the config file
func ParseResizeMode(s string) (ResizeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fit":
		return ResizeFit, nil
	case "stretch", "fill":
		return ResizeStretch, nil
	case "zoom", "crop":
		return ResizeZoom, nil
	case "one-to-one", "1:1", "original":
		return ResizeOneToOne, nil
	default:
		return ResizeFit, fmt.Errorf("unknown resize mode %q", s)
	}
}
