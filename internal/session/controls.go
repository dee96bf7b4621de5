package session

import (
	"context"
	"fmt"
	"math"

	"github.com/justchokingaround/tvsession/internal/audio"
	"github.com/justchokingaround/tvsession/internal/player"
	"github.com/justchokingaround/tvsession/internal/stream"
)

const (
	MinSpeed = 0.25
	MaxSpeed = 4.0
)

// BackResult is what a back/cancel press did
type BackResult int

const (
	BackClosedModal BackResult = iota
	BackClosedPopover
	BackExit
)

func (r BackResult) String() string {
	switch r {
	case BackClosedModal:
		return "closed_modal"
	case BackClosedPopover:
		return "closed_popover"
	default:
		return "exit"
	}
}

// OpenDialog opens a dialog if no other dialog conflicts
func (c *Coordinator) OpenDialog(ctx context.Context, m Modal) bool {
	c.mu.Lock()
	prev := c.modal.Current()
	if c.closed || !c.modal.Open(m) {
		c.mu.Unlock()
		return false
	}

	if m == ModalSubtitleSearch && prev != ModalSubtitleSearch {
		c.enterSearchLocked()
	}
	if c.engine != nil {
		switch m {
		case ModalAudioBoost:
			if db, err := c.engine.AudioBoostDB(ctx); err == nil {
				c.boostDB = db
			}
		case ModalResolution:
			if active, err := c.engine.IsVideoOverrideActive(ctx); err == nil {
				c.videoOverride = active
			}
		}
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(Event{Type: EventState, Snapshot: snap})
	return true
}

// CloseDialog closes m if it is the open dialog
func (c *Coordinator) CloseDialog(m Modal) bool {
	c.mu.Lock()
	prev := c.modal.Current()
	ok := c.modal.Close(m)
	if ok {
		c.afterModalChangeLocked(prev)
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if ok {
		c.publish(Event{Type: EventState, Snapshot: snap})
	}
	return ok
}

// HasModalOpen reports whether any dialog is open
func (c *Coordinator) HasModalOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modal.HasModalOpen()
}

// SetPopoverOpen records whether the settings popover / control overlay is shown
func (c *Coordinator) SetPopoverOpen(open bool) {
	c.mu.Lock()
	c.popover = open
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(Event{Type: EventState, Snapshot: snap})
}

// Back handles back/cancel. An open dialog is dismissed first, then the
// popover; only with neither open does the session request exit.
func (c *Coordinator) Back() BackResult {
	c.mu.Lock()
	result := BackExit
	if closed, ok := c.modal.Back(); ok {
		c.afterModalChangeLocked(closed)
		result = BackClosedModal
	} else if c.popover {
		c.popover = false
		result = BackClosedPopover
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if result == BackExit {
		c.publish(Event{Type: EventExit, Snapshot: snap})
	} else {
		c.publish(Event{Type: EventState, Snapshot: snap})
	}
	return result
}

// SwitchChannel forwards a channel change for live content. It returns
// false, without calling the switcher, while a dialog or the popover is open
// or when the media is not live.
func (c *Coordinator) SwitchChannel(ctx context.Context, direction int) bool {
	c.mu.Lock()
	switcher := c.channels
	allowed := !c.closed &&
		!c.modal.HasModalOpen() &&
		!c.popover &&
		c.media.Kind == stream.KindLive &&
		switcher != nil
	c.mu.Unlock()

	if !allowed {
		return false
	}
	return switcher.SwitchChannel(ctx, direction)
}

// CycleResize advances the resize mode and applies it
func (c *Coordinator) CycleResize(ctx context.Context) ResizeMode {
	c.mu.Lock()
	c.resize = c.resize.Next()
	c.applyResizeLocked(ctx)
	mode := c.resize
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(Event{Type: EventState, Snapshot: snap})
	return mode
}

func (c *Coordinator) applyResizeLocked(ctx context.Context) {
	r, ok := c.engine.(player.Resizer)
	if !ok {
		return
	}
	if err := r.SetResizeMode(ctx, c.resize.String()); err != nil {
		c.logger.Debug("failed to apply resize mode", "mode", c.resize.String(), "error", err)
	}
}

// AudioTracks lists the tracks for the audio track dialog
func (c *Coordinator) AudioTracks(ctx context.Context) ([]player.Track, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireRunningLocked(); err != nil {
		return nil, err
	}
	return c.engine.AudioTracks(ctx)
}

// VideoTracks lists the tracks for the resolution dialog
func (c *Coordinator) VideoTracks(ctx context.Context) ([]player.Track, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireRunningLocked(); err != nil {
		return nil, err
	}
	return c.engine.VideoTracks(ctx)
}

// SelectAudioTrack selects t and closes the audio track dialog
func (c *Coordinator) SelectAudioTrack(ctx context.Context, t player.Track) error {
	return c.applyAndClose(ctx, ModalAudioTrack, func() error {
		return c.engine.SelectAudioTrack(ctx, t.Group, t.Index)
	})
}

// SelectVideoTrack selects t and closes the resolution dialog
func (c *Coordinator) SelectVideoTrack(ctx context.Context, t player.Track) error {
	return c.applyAndClose(ctx, ModalResolution, func() error {
		if err := c.engine.SelectVideoTrack(ctx, t.Group, t.Index); err != nil {
			return err
		}
		if active, err := c.engine.IsVideoOverrideActive(ctx); err == nil {
			c.videoOverride = active
		}
		return nil
	})
}

// SetAudioBoost applies a gain in dB, clamped to the dialog range, and
// closes the audio boost dialog
func (c *Coordinator) SetAudioBoost(ctx context.Context, db int) error {
	db = audio.ClampBoost(db)
	return c.applyAndClose(ctx, ModalAudioBoost, func() error {
		if err := c.engine.SetAudioBoostDB(ctx, db); err != nil {
			return err
		}
		c.boostDB = db
		return nil
	})
}

// SetPlaybackSpeed sets the speed, clamped to [MinSpeed, MaxSpeed], and
// closes the speed dialog
func (c *Coordinator) SetPlaybackSpeed(ctx context.Context, speed float64) error {
	if math.IsNaN(speed) || speed <= 0 {
		speed = 1.0
	}
	speed = math.Max(MinSpeed, math.Min(MaxSpeed, speed))
	return c.applyAndClose(ctx, ModalPlaybackSpeed, func() error {
		if err := c.engine.SetSpeed(ctx, speed); err != nil {
			return err
		}
		c.speed = speed
		return nil
	})
}

// applyAndClose runs an engine command and, on success, closes the dialog
// the command came from
func (c *Coordinator) applyAndClose(ctx context.Context, m Modal, apply func() error) error {
	c.mu.Lock()
	if err := c.requireRunningLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if err := apply(); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", m, err)
	}
	prev := c.modal.Current()
	if c.modal.Close(m) {
		c.afterModalChangeLocked(prev)
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(Event{Type: EventState, Snapshot: snap})
	return nil
}

func (c *Coordinator) afterModalChangeLocked(prev Modal) {
	if prev == ModalSubtitleSearch && c.modal.Current() != ModalSubtitleSearch {
		c.leaveDialogLocked()
	}
}
