package subtitle

import (
	"path"
	"strings"
)

// Subtitle MIME types understood by the playback engine
const (
	MimeWebVTT          = "text/vtt"
	MimeSubStationAlpha = "text/x-ssa"
	MimeTTML            = "application/ttml+xml"
	MimeSubRip          = "application/x-subrip"
)

// MimeTypeFor maps a file name or URI to its subtitle MIME type by extension.
// Unknown extensions are treated as SubRip.
func MimeTypeFor(name string) string {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	switch strings.ToLower(strings.TrimPrefix(path.Ext(name), ".")) {
	case "vtt":
		return MimeWebVTT
	case "ssa", "ass":
		return MimeSubStationAlpha
	case "ttml", "dfxp":
		return MimeTTML
	default:
		return MimeSubRip
	}
}
