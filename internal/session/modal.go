package session

// Modal identifies the dialog currently open over the player. Exactly one
// value is current at any time; ModalNone means no dialog.
type Modal int

const (
	ModalNone Modal = iota
	ModalSubtitleSearch
	ModalSubtitleOptions
	ModalAudioTrack
	ModalAudioBoost
	ModalPlaybackSettings
	ModalPlaybackSpeed
	ModalResolution
)

func (m Modal) String() string {
	switch m {
	case ModalNone:
		return "none"
	case ModalSubtitleSearch:
		return "subtitle_search"
	case ModalSubtitleOptions:
		return "subtitle_options"
	case ModalAudioTrack:
		return "audio_track"
	case ModalAudioBoost:
		return "audio_boost"
	case ModalPlaybackSettings:
		return "playback_settings"
	case ModalPlaybackSpeed:
		return "playback_speed"
	case ModalResolution:
		return "resolution"
	default:
		return "unknown"
	}
}

// parents maps nested dialogs to the dialog they are opened from. Dismissing
// a nested dialog with back returns to its parent.
var parents = map[Modal]Modal{
	ModalPlaybackSpeed:  ModalPlaybackSettings,
	ModalResolution:     ModalPlaybackSettings,
	ModalSubtitleSearch: ModalSubtitleOptions,
}

// Parent returns the dialog m is nested under, or ModalNone
func (m Modal) Parent() Modal {
	return parents[m]
}

// Arbiter holds the single open dialog. The zero value has no dialog open.
type Arbiter struct {
	current Modal
}

// Current returns the open dialog
func (a *Arbiter) Current() Modal {
	return a.current
}

// HasModalOpen reports whether any dialog is open
func (a *Arbiter) HasModalOpen() bool {
	return a.current != ModalNone
}

// Open opens m when nothing is open, or when m is nested under the open
// dialog (the parent is replaced by the child). Any other request is
// refused and leaves the current dialog unchanged.
func (a *Arbiter) Open(m Modal) bool {
	switch {
	case m == ModalNone:
		return false
	case a.current == m:
		return true
	case a.current == ModalNone, m.Parent() == a.current:
		a.current = m
		return true
	default:
		return false
	}
}

// Close closes m if it is the open dialog
func (a *Arbiter) Close(m Modal) bool {
	if m == ModalNone || a.current != m {
		return false
	}
	a.current = ModalNone
	return true
}

// Back dismisses the open dialog, returning to its parent if it has one.
// It returns the dismissed dialog, or false when nothing was open.
func (a *Arbiter) Back() (Modal, bool) {
	if a.current == ModalNone {
		return ModalNone, false
	}
	closed := a.current
	a.current = closed.Parent()
	return closed, true
}

// Reset closes every dialog
func (a *Arbiter) Reset() {
	a.current = ModalNone
}
