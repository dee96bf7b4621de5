package subtitle

// ToggleState is what the session knows when the user toggles subtitles
type ToggleState struct {
	Enabled           bool
	ExternalAttached  bool
	EmbeddedAvailable bool
}

// ToggleAction is the step the session takes for a toggle
type ToggleAction int

const (
	// ToggleClearExternal removes the attached external subtitle
	ToggleClearExternal ToggleAction = iota
	// ToggleDisableTextTracks deselects embedded text tracks
	ToggleDisableTextTracks
	// ToggleReselectEmbedded selects the embedded track again and refreshes the media item
	ToggleReselectEmbedded
	// ToggleAttachCached looks up the latest cached subtitle and attaches it
	ToggleAttachCached
)

func (a ToggleAction) String() string {
	switch a {
	case ToggleClearExternal:
		return "clear_external"
	case ToggleDisableTextTracks:
		return "disable_text_tracks"
	case ToggleReselectEmbedded:
		return "reselect_embedded"
	case ToggleAttachCached:
		return "attach_cached"
	default:
		return "unknown"
	}
}

// DecideToggle picks the toggle branch for the current state
func DecideToggle(s ToggleState) ToggleAction {
	switch {
	case s.Enabled && s.ExternalAttached:
		return ToggleClearExternal
	case s.Enabled:
		return ToggleDisableTextTracks
	case s.EmbeddedAvailable:
		return ToggleReselectEmbedded
	default:
		return ToggleAttachCached
	}
}
