package session

import (
	"time"

	"github.com/samber/mo"

	"github.com/justchokingaround/tvsession/internal/subtitle"
)

// EventType distinguishes coordinator events
type EventType int

const (
	// EventState carries a fresh snapshot after a mutation
	EventState EventType = iota
	// EventNotice carries a user-facing message
	EventNotice
	// EventAdvance is published once when the session moves to the next episode
	EventAdvance
	// EventExit is published when back is pressed with nothing left to close
	EventExit
)

func (t EventType) String() string {
	switch t {
	case EventState:
		return "state"
	case EventNotice:
		return "notice"
	case EventAdvance:
		return "advance"
	case EventExit:
		return "exit"
	default:
		return "unknown"
	}
}

// Terminal reports whether the event ends the session's UI
func (t EventType) Terminal() bool {
	return t == EventAdvance || t == EventExit
}

// Event is published on the coordinator's event channel
type Event struct {
	Type     EventType
	Snapshot Snapshot
	Notice   string
}

// DialogStatus is the status of the subtitle search dialog
type DialogStatus int

const (
	DialogIdle DialogStatus = iota
	DialogLoading
	DialogReady
	DialogFailed
)

// SubtitleDialog is the state behind the subtitle search dialog
type SubtitleDialog struct {
	Status      DialogStatus
	Query       string
	Results     []subtitle.Candidate
	Message     string
	Downloading string // candidate id
}

// Snapshot is a copy of the session state for rendering
type Snapshot struct {
	SessionID        string
	Media            Media
	Modal            Modal
	PopoverOpen      bool
	ResizeMode       ResizeMode
	NextEpisode      NextEpisodeState
	Subtitle         mo.Option[subtitle.Active]
	SubtitlesEnabled bool
	SubtitleOffset   time.Duration
	Speed            float64
	AudioBoostDB     int
	VideoOverride    bool
	Dialog           SubtitleDialog
	Closed           bool
}

// HasModalOpen reports whether a dialog was open when the snapshot was taken
func (s Snapshot) HasModalOpen() bool {
	return s.Modal != ModalNone
}
