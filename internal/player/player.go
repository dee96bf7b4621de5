// Package player defines the playback engine contract the session drives.
package player

import (
	"context"
	"time"
)

// Engine is the playback engine a session drives. It is shared and
// externally owned; a session only invokes it.
type Engine interface {
	// Playback control
	Play(ctx context.Context, url string, options PlayOptions) error
	Stop(ctx context.Context) error
	GetProgress(ctx context.Context) (*PlaybackProgress, error)

	// Callbacks. Setting a callback replaces the previous one.
	OnPlaybackEnd(callback func())
	OnError(callback func(err error))

	// Subtitles
	AddSubtitle(ctx context.Context, uri, language, label, mimeType string) error
	ClearExternalSubtitles(ctx context.Context) error
	SetSubtitlesEnabled(ctx context.Context, enabled bool) error
	HasEmbeddedSubtitles(ctx context.Context) (bool, error)
	RefreshMediaItem(ctx context.Context) error
	SetSubtitleOffset(ctx context.Context, offset time.Duration) error

	// Tracks
	AudioTracks(ctx context.Context) ([]Track, error)
	VideoTracks(ctx context.Context) ([]Track, error)
	SelectAudioTrack(ctx context.Context, group, index int) error
	SelectVideoTrack(ctx context.Context, group, index int) error
	IsVideoOverrideActive(ctx context.Context) (bool, error)

	// Audio and speed
	SetAudioBoostDB(ctx context.Context, db int) error
	AudioBoostDB(ctx context.Context) (int, error)
	SetSpeed(ctx context.Context, speed float64) error
}

// Resizer is implemented by engines that can change how video is fitted to
// the window. Modes are "fit", "stretch", "zoom" and "one-to-one".
type Resizer interface {
	SetResizeMode(ctx context.Context, mode string) error
}

// PlayOptions contains options for starting playback
type PlayOptions struct {
	StartTime time.Duration `json:"start_time,omitempty"`
	Speed     float64       `json:"speed,omitempty"`

	// External subtitle attached at load time
	SubtitleURL   string        `json:"subtitle_url,omitempty"`
	SubtitleLang  string        `json:"subtitle_lang,omitempty"`
	SubtitleDelay time.Duration `json:"subtitle_delay,omitempty"`

	UserAgent string   `json:"user_agent,omitempty"`
	Title     string   `json:"title,omitempty"`
	MPVArgs   []string `json:"mpv_args,omitempty"`
}

// PlaybackProgress represents the current playback state
type PlaybackProgress struct {
	CurrentTime time.Duration `json:"current_time"`
	Duration    time.Duration `json:"duration"`
	Paused      bool          `json:"paused"`
	Speed       float64       `json:"speed"`
	EOF         bool          `json:"eof"`
}

// Remaining returns the time left, or zero when either value is unknown
func (p PlaybackProgress) Remaining() time.Duration {
	if p.Duration <= 0 || p.CurrentTime <= 0 {
		return 0
	}
	return p.Duration - p.CurrentTime
}

// TrackKind is the kind of a media track
type TrackKind string

const (
	TrackAudio    TrackKind = "audio"
	TrackVideo    TrackKind = "video"
	TrackSubtitle TrackKind = "sub"
)

// Track is a selectable track. Group and Index address it for selection;
// engines without track groups use group 0.
type Track struct {
	Kind     TrackKind `json:"kind"`
	Group    int       `json:"group"`
	Index    int       `json:"index"`
	ID       int       `json:"id"`
	Title    string    `json:"title,omitempty"`
	Language string    `json:"language,omitempty"`
	Codec    string    `json:"codec,omitempty"`
	Width    int       `json:"width,omitempty"`
	Height   int       `json:"height,omitempty"`
	Channels int       `json:"channels,omitempty"`
	External bool      `json:"external"`
	Selected bool      `json:"selected"`
}

// PlaybackState represents the state of the player
type PlaybackState string

const (
	StatePlaying PlaybackState = "playing"
	StateStopped PlaybackState = "stopped"
	StateLoading PlaybackState = "loading"
	StateError   PlaybackState = "error"
)

// String returns the string representation of PlaybackState
func (s PlaybackState) String() string {
	return string(s)
}
