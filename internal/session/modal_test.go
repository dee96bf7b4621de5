package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArbiter_OpenExclusive(t *testing.T) {
	var a Arbiter
	assert.False(t, a.HasModalOpen())

	assert.True(t, a.Open(ModalAudioTrack))
	assert.Equal(t, ModalAudioTrack, a.Current())

	// A conflicting dialog is refused and the open one stays
	assert.False(t, a.Open(ModalAudioBoost))
	assert.Equal(t, ModalAudioTrack, a.Current())

	// Reopening the same dialog is a no-op success
	assert.True(t, a.Open(ModalAudioTrack))
	assert.False(t, a.Open(ModalNone))
}

func TestArbiter_NestedDialogs(t *testing.T) {
	var a Arbiter
	assert.True(t, a.Open(ModalPlaybackSettings))
	assert.True(t, a.Open(ModalPlaybackSpeed))
	assert.Equal(t, ModalPlaybackSpeed, a.Current())

	// Sibling of the child is not a child of the current dialog
	assert.False(t, a.Open(ModalResolution))

	closed, ok := a.Back()
	assert.True(t, ok)
	assert.Equal(t, ModalPlaybackSpeed, closed)
	assert.Equal(t, ModalPlaybackSettings, a.Current())

	assert.True(t, a.Open(ModalResolution))
	closed, ok = a.Back()
	assert.True(t, ok)
	assert.Equal(t, ModalResolution, closed)

	closed, ok = a.Back()
	assert.True(t, ok)
	assert.Equal(t, ModalPlaybackSettings, closed)
	assert.Equal(t, ModalNone, a.Current())

	_, ok = a.Back()
	assert.False(t, ok)
}

func TestArbiter_SubtitleSearchUnderOptions(t *testing.T) {
	var a Arbiter
	assert.True(t, a.Open(ModalSubtitleOptions))
	assert.True(t, a.Open(ModalSubtitleSearch))

	_, _ = a.Back()
	assert.Equal(t, ModalSubtitleOptions, a.Current())

	// Search opened directly returns to its parent on back
	a.Reset()
	assert.True(t, a.Open(ModalSubtitleSearch))
	_, _ = a.Back()
	assert.Equal(t, ModalSubtitleOptions, a.Current())
}

func TestArbiter_CloseOnlyCurrent(t *testing.T) {
	var a Arbiter
	a.Open(ModalAudioBoost)

	assert.False(t, a.Close(ModalAudioTrack))
	assert.Equal(t, ModalAudioBoost, a.Current())

	assert.True(t, a.Close(ModalAudioBoost))
	assert.False(t, a.HasModalOpen())
	assert.False(t, a.Close(ModalNone))
}

func TestModal_String(t *testing.T) {
	assert.Equal(t, "playback_speed", ModalPlaybackSpeed.String())
	assert.Equal(t, "none", ModalNone.String())
	assert.Equal(t, ModalNone, ModalAudioTrack.Parent())
}
