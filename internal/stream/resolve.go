package stream

import (
	"fmt"
	"strings"
)

// Kind is the content kind of a stream target
type Kind int

const (
	KindLive Kind = iota
	KindMovie
	KindSeries
)

// String returns the path segment used for the kind
func (k Kind) String() string {
	switch k {
	case KindLive:
		return "live"
	case KindMovie:
		return "movie"
	case KindSeries:
		return "series"
	default:
		return "unknown"
	}
}

// ParseKind parses a kind name (live, movie, series)
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "live", "channel", "tv":
		return KindLive, nil
	case "movie", "vod":
		return KindMovie, nil
	case "series", "episode":
		return KindSeries, nil
	default:
		return KindLive, fmt.Errorf("unknown content kind %q", s)
	}
}

// Account is the IPTV account the stream URLs are built for.
// It is owned by the auth layer and read-only here.
type Account struct {
	BaseURL  string
	Username string
	Password string
	ListID   string
}

// Target identifies a single playable stream
type Target struct {
	Kind      Kind
	StreamID  string
	Extension string
}

const (
	liveExtension    = "ts"
	defaultExtension = "mp4"
)

// NormalizeBaseURL trims the base URL, drops trailing slashes and adds an
// http:// scheme when none is present. An explicit https:// is kept.
func NormalizeBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	scheme := "http://"
	lower := strings.ToLower(base)
	for _, prefix := range []string{"http://", "https://"} {
		if strings.HasPrefix(lower, prefix) {
			scheme = base[:len(prefix)]
			base = base[len(prefix):]
			break
		}
	}
	return scheme + strings.TrimRight(base, "/")
}

// Resolve builds the playable URL for a stream. It performs no I/O and never
// fails; malformed input degrades to a best-effort URL.
func Resolve(acc Account, kind Kind, streamID, extension string) string {
	base := NormalizeBaseURL(acc.BaseURL)
	id := strings.TrimSpace(streamID)

	if kind == KindLive {
		return fmt.Sprintf("%s/live/%s/%s/%s.%s", base, acc.Username, acc.Password, id, liveExtension)
	}

	segment := KindMovie.String()
	if kind == KindSeries {
		segment = KindSeries.String()
	}
	return fmt.Sprintf("%s/%s/%s/%s/%s.%s", base, segment, acc.Username, acc.Password, id, normalizeExtension(extension))
}

// ResolveTarget is Resolve for a Target value
func ResolveTarget(acc Account, t Target) string {
	return Resolve(acc, t.Kind, t.StreamID, t.Extension)
}

func normalizeExtension(ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		return defaultExtension
	}
	return ext
}
