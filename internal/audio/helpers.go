// Package audio holds the presentation rules for audio and video track
// dialogs and the audio boost range.
package audio

import (
	"fmt"
	"strings"

	"github.com/justchokingaround/tvsession/internal/player"
)

const (
	// MaxBoostDB is the highest gain the boost dialog offers
	MaxBoostDB = 20
	// BoostStepDB is the increment used by the boost dialog
	BoostStepDB = 2
)

// ClampBoost limits a gain to [0, MaxBoostDB]
func ClampBoost(db int) int {
	if db < 0 {
		return 0
	}
	if db > MaxBoostDB {
		return MaxBoostDB
	}
	return db
}

// BoostSteps returns the values shown by the boost dialog
func BoostSteps() []int {
	steps := make([]int, 0, MaxBoostDB/BoostStepDB+1)
	for db := 0; db <= MaxBoostDB; db += BoostStepDB {
		steps = append(steps, db)
	}
	return steps
}

// TrackLabel formats a track for display.
// Audio: "[ENG] Stereo (aac, 2ch)". Video: "1920x1080 (h264)".
func TrackLabel(t player.Track) string {
	switch t.Kind {
	case player.TrackVideo:
		label := t.Title
		if t.Width > 0 && t.Height > 0 {
			label = fmt.Sprintf("%dx%d", t.Width, t.Height)
		}
		if label == "" {
			label = fmt.Sprintf("Track %d", t.ID)
		}
		if t.Codec != "" {
			label += " (" + t.Codec + ")"
		}
		return label
	default:
		var b strings.Builder
		if t.Language != "" {
			b.WriteString("[" + strings.ToUpper(t.Language) + "] ")
		}
		if t.Title != "" {
			b.WriteString(t.Title)
		} else {
			fmt.Fprintf(&b, "Track %d", t.ID)
		}

		var details []string
		if t.Codec != "" {
			details = append(details, t.Codec)
		}
		if t.Channels > 0 {
			details = append(details, fmt.Sprintf("%dch", t.Channels))
		}
		if len(details) > 0 {
			b.WriteString(" (" + strings.Join(details, ", ") + ")")
		}
		return b.String()
	}
}

// PreferredTrack returns the first audio track whose language matches one of
// the preferences, in preference order
func PreferredTrack(tracks []player.Track, languages []string) (player.Track, bool) {
	for _, lang := range languages {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if lang == "" {
			continue
		}
		for _, t := range tracks {
			tl := strings.ToLower(t.Language)
			if tl == lang || strings.HasPrefix(tl, lang) {
				return t, true
			}
		}
	}
	return player.Track{}, false
}
