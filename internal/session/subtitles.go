package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/mo"

	"github.com/justchokingaround/tvsession/internal/subtitle"
)

const (
	noticeNoCachedSubtitle = "No cached subtitle for this media"
	noticeNoResults        = "No subtitles found"
)

// SelectSubtitle replaces the attached external subtitle with a
func (c *Coordinator) SelectSubtitle(ctx context.Context, a subtitle.Active) error {
	c.mu.Lock()
	if err := c.requireRunningLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	err := c.engine.ClearExternalSubtitles(ctx)
	if err == nil {
		err = c.attachLocked(ctx, a)
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to select subtitle: %w", err)
	}
	c.publish(Event{Type: EventState, Snapshot: snap})
	return nil
}

// ToggleSubtitles turns subtitles off or back on. It returns the branch that
// was taken. A missing cached subtitle is reported as a notice, not an error.
func (c *Coordinator) ToggleSubtitles(ctx context.Context) (subtitle.ToggleAction, error) {
	c.mu.Lock()
	if err := c.requireRunningLocked(); err != nil {
		c.mu.Unlock()
		return 0, err
	}

	state := subtitle.ToggleState{
		Enabled:          c.enabled,
		ExternalAttached: c.active.IsPresent(),
	}
	if !c.enabled {
		embedded, err := c.engine.HasEmbeddedSubtitles(ctx)
		if err != nil {
			c.logger.Debug("embedded track lookup failed", "error", err)
		}
		state.EmbeddedAvailable = embedded
	}

	action := subtitle.DecideToggle(state)
	var err error
	var notice string

	switch action {
	case subtitle.ToggleClearExternal:
		if err = c.engine.ClearExternalSubtitles(ctx); err == nil {
			c.active = mo.None[subtitle.Active]()
			c.enabled = false
			c.cleared = true
		}
	case subtitle.ToggleDisableTextTracks:
		if err = c.engine.SetSubtitlesEnabled(ctx, false); err == nil {
			c.enabled = false
		}
	case subtitle.ToggleReselectEmbedded:
		if err = c.engine.RefreshMediaItem(ctx); err == nil {
			if err = c.engine.SetSubtitlesEnabled(ctx, true); err == nil {
				c.enabled = true
			}
		}
	case subtitle.ToggleAttachCached:
		a, lerr := c.resolver.LatestCached(ctx, c.media.ID, c.explicit)
		switch {
		case errors.Is(lerr, subtitle.ErrNoCachedSubtitle):
			notice = noticeNoCachedSubtitle
		case lerr != nil:
			err = lerr
		default:
			err = c.attachLocked(ctx, a)
		}
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.logger.Debug("subtitle toggle", "action", action.String(), "media_id", snap.Media.ID)
	if err != nil {
		return action, fmt.Errorf("subtitle toggle %s: %w", action, err)
	}
	c.publish(Event{Type: EventState, Snapshot: snap})
	if notice != "" {
		c.notify(notice)
	}
	return action, nil
}

// SetSubtitleOffset delays (positive) or advances (negative) subtitles
func (c *Coordinator) SetSubtitleOffset(ctx context.Context, offsetMs int64) error {
	c.mu.Lock()
	if err := c.requireRunningLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	err := c.engine.SetSubtitleOffset(ctx, time.Duration(offsetMs)*time.Millisecond)
	if err == nil {
		c.offsetMs = offsetMs
		c.offsetTouched = true
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to set subtitle offset: %w", err)
	}
	c.publish(Event{Type: EventState, Snapshot: snap})
	return nil
}

// SearchSubtitles starts a search from the subtitle search dialog. A blank
// query searches by the media title. It reports false when the dialog is not
// open or no repository is configured. The result lands in the dialog state.
func (c *Coordinator) SearchSubtitles(query string) bool {
	c.mu.Lock()
	if c.modal.Current() != ModalSubtitleSearch || c.repo == nil || c.closed {
		c.mu.Unlock()
		return false
	}

	q := strings.TrimSpace(query)
	if q == "" {
		q = c.media.Title
	}
	c.searchSeq++
	seq, epoch, ctx := c.searchSeq, c.dialogEpoch, c.dialogCtx
	repo, apiKey, userAgent := c.repo, c.opts.APIKey, c.opts.UserAgent
	c.dialog = SubtitleDialog{Status: DialogLoading, Query: q}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(Event{Type: EventState, Snapshot: snap})
	go func() {
		results, err := repo.Search(ctx, apiKey, userAgent, q)
		c.finishSearch(epoch, seq, mo.TupleToResult(results, err))
	}()
	return true
}

func (c *Coordinator) finishSearch(epoch, seq uint64, res mo.Result[[]subtitle.Candidate]) {
	c.mu.Lock()
	if epoch != c.dialogEpoch || seq != c.searchSeq || c.modal.Current() != ModalSubtitleSearch {
		c.mu.Unlock()
		c.logger.Debug("discarding stale subtitle search result")
		return
	}

	results, err := res.Get()
	switch {
	case err != nil:
		c.dialog.Status = DialogFailed
		c.dialog.Message = "Search failed: " + err.Error()
	case len(results) == 0:
		c.dialog.Status = DialogReady
		c.dialog.Message = noticeNoResults
	default:
		c.dialog.Status = DialogReady
		c.dialog.Results = results
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(Event{Type: EventState, Snapshot: snap})
}

// DownloadSubtitle downloads a search result, attaches it and closes the
// dialog. It reports false when the dialog is not open.
func (c *Coordinator) DownloadSubtitle(candidate subtitle.Candidate) bool {
	c.mu.Lock()
	if c.modal.Current() != ModalSubtitleSearch || c.repo == nil || c.closed {
		c.mu.Unlock()
		return false
	}

	c.downloadSeq++
	seq, epoch, ctx := c.downloadSeq, c.dialogEpoch, c.dialogCtx
	repo, apiKey, userAgent, mediaID := c.repo, c.opts.APIKey, c.opts.UserAgent, c.media.ID
	c.dialog.Status = DialogLoading
	c.dialog.Message = ""
	c.dialog.Downloading = candidate.ID
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(Event{Type: EventState, Snapshot: snap})
	go func() {
		cached, err := repo.DownloadAndCache(ctx, apiKey, userAgent, candidate, mediaID)
		c.finishDownload(epoch, seq, mo.TupleToResult(cached, err))
	}()
	return true
}

func (c *Coordinator) finishDownload(epoch, seq uint64, res mo.Result[subtitle.Cached]) {
	c.mu.Lock()
	if epoch != c.dialogEpoch || seq != c.downloadSeq || c.modal.Current() != ModalSubtitleSearch {
		c.mu.Unlock()
		c.logger.Debug("discarding stale subtitle download")
		return
	}
	c.dialog.Downloading = ""

	cached, err := res.Get()
	if err == nil {
		a := cached.Active(mo.None[string]())
		if err = c.engine.ClearExternalSubtitles(c.ctx); err == nil {
			err = c.attachLocked(c.ctx, a)
		}
	}

	var notice string
	if err != nil {
		c.dialog.Status = DialogFailed
		c.dialog.Message = "Download failed: " + err.Error()
	} else {
		c.modal.Reset()
		c.leaveDialogLocked()
		notice = "Subtitle attached: " + c.active.MustGet().Label
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(Event{Type: EventState, Snapshot: snap})
	if notice != "" {
		c.notify(notice)
	}
}

// attachLocked adds a as the external subtitle and makes it the active one
func (c *Coordinator) attachLocked(ctx context.Context, a subtitle.Active) error {
	mime := subtitle.MimeTypeFor(a.FileName.OrElse(a.URI))
	if err := c.engine.AddSubtitle(ctx, a.URI, a.Language, a.Label, mime); err != nil {
		return err
	}
	c.active = mo.Some(a)
	c.explicit = mo.Some(a)
	c.enabled = true
	c.cleared = false
	return nil
}

// selectionLocked is what this session contributes to the persisted record
func (c *Coordinator) selectionLocked() subtitle.Selection {
	sel := subtitle.Selection{Cleared: c.cleared}
	if a, ok := c.active.Get(); ok {
		sel.Record = a.Record(c.offsetMs)
	} else if c.offsetTouched && !c.cleared && c.offsetMs != 0 {
		sel.Record.OffsetMs = mo.Some(c.offsetMs)
	}
	return sel
}

func (c *Coordinator) enterSearchLocked() {
	c.dialogCtx, c.dialogCancel = context.WithCancel(c.ctx)
	c.dialog = SubtitleDialog{Query: c.media.Title}
}

// leaveDialogLocked cancels in-flight search and download work and makes any
// completion that still arrives stale
func (c *Coordinator) leaveDialogLocked() {
	if c.dialogCancel != nil {
		c.dialogCancel()
		c.dialogCancel = nil
	}
	c.dialogEpoch++
	c.dialog = SubtitleDialog{}
}
