// Package session coordinates a single playback session: subtitle state,
// dialogs, resize mode, next-episode countdown and live channel switching.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/justchokingaround/tvsession/internal/player"
	"github.com/justchokingaround/tvsession/internal/stream"
	"github.com/justchokingaround/tvsession/internal/subtitle"
)

var (
	// ErrNotStarted is returned by actions issued before Start
	ErrNotStarted = errors.New("session not started")
	// ErrClosed is returned by actions issued after Close
	ErrClosed = errors.New("session closed")
)

const (
	defaultPollInterval = 500 * time.Millisecond
	eventBuffer         = 64
)

// Media describes what a session plays
type Media struct {
	ID      string // key for the subtitle cache and continue-watching store
	Title   string
	Kind    stream.Kind
	URL     string
	HasNext bool
}

// Options configures a session
type Options struct {
	AutoPlayNext         bool
	NextEpisodeThreshold time.Duration
	PollInterval         time.Duration
	ResizeMode           ResizeMode
	APIKey               string
	UserAgent            string
}

// RecordStore persists the subtitle record of a media item
type RecordStore interface {
	SubtitleRecord(ctx context.Context, mediaID string) (mo.Option[subtitle.Record], error)
	SaveSubtitleRecord(ctx context.Context, mediaID string, rec subtitle.Record) error
}

// ChannelSwitcher moves to the previous (-1) or next (+1) live channel and
// reports whether it handled the request
type ChannelSwitcher interface {
	SwitchChannel(ctx context.Context, direction int) bool
}

// Collaborators are the externally owned services a session calls into.
// Only Engine is required.
type Collaborators struct {
	Engine     player.Engine
	Cache      subtitle.Cache
	Repository subtitle.Repository
	Store      RecordStore
	Channels   ChannelSwitcher
	// NextEpisode is invoked once when the session advances
	NextEpisode func()
}

type pollKey struct {
	session  uuid.UUID
	engine   uint64
	autoPlay bool
	kind     stream.Kind
	hasNext  bool
}

// Coordinator owns the state of one playback session. All methods are safe
// for concurrent use. Engine callbacks must not be invoked synchronously from
// inside engine commands.
type Coordinator struct {
	mu sync.Mutex

	engine    player.Engine
	engineGen uint64
	resolver  *subtitle.Resolver
	repo      subtitle.Repository
	store     RecordStore
	channels  ChannelSwitcher
	onNext    func()
	opts      Options
	logger    *slog.Logger
	events    chan Event

	id      uuid.UUID
	media   Media
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	closed  bool

	prior         mo.Option[subtitle.Record]
	priorLoaded   bool
	active        mo.Option[subtitle.Active]
	explicit      mo.Option[subtitle.Active]
	enabled       bool
	cleared       bool
	offsetMs      int64
	offsetTouched bool

	modal         Arbiter
	popover       bool
	resize        ResizeMode
	speed         float64
	boostDB       int
	videoOverride bool
	advancer      *Advancer

	pollGen    uint64
	pollKey    pollKey
	pollCancel context.CancelFunc

	dialog       SubtitleDialog
	dialogEpoch  uint64
	dialogCtx    context.Context
	dialogCancel context.CancelFunc
	searchSeq    uint64
	downloadSeq  uint64
}

// New creates a coordinator for one session
func New(collab Collaborators, opts Options, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		resolver: subtitle.NewResolver(collab.Cache, logger),
		repo:     collab.Repository,
		store:    collab.Store,
		channels: collab.Channels,
		onNext:   collab.NextEpisode,
		opts:     opts,
		logger:   logger,
		events:   make(chan Event, eventBuffer),
		ctx:      ctx,
		cancel:   cancel,
		enabled:  true,
		resize:   opts.ResizeMode,
		speed:    1.0,
		advancer: NewAdvancer(opts.NextEpisodeThreshold),
	}
	if collab.Engine != nil {
		c.engine = collab.Engine
		c.engineGen = 1
	}
	return c
}

// Events returns the event channel. It is never closed; events are dropped
// when the buffer is full.
func (c *Coordinator) Events() <-chan Event {
	return c.events
}

// ApplySessionDefaults (re)attaches the session to an engine: title, resize
// mode, end/error callbacks and the countdown poller. Calling it again with
// the same engine changes nothing. A nil engine keeps the current one.
func (c *Coordinator) ApplySessionDefaults(ctx context.Context, engine player.Engine) {
	c.mu.Lock()
	if engine != nil && engine != c.engine {
		c.engine = engine
		c.engineGen++
	}
	if c.engine == nil {
		c.mu.Unlock()
		return
	}

	c.engine.OnPlaybackEnd(c.HandleEnded)
	c.engine.OnError(c.handleEngineError)
	c.applyResizeLocked(ctx)
	if c.started && !c.closed {
		c.reconcilePollerLocked()
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(Event{Type: EventState, Snapshot: snap})
}

// Start begins the session for media: it restores the persisted subtitle and
// offset and starts the countdown poller when the media is eligible.
func (c *Coordinator) Start(ctx context.Context, media Media) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClosed
	case c.started:
		c.mu.Unlock()
		return errors.New("session already started")
	case c.engine == nil:
		c.mu.Unlock()
		return errors.New("session has no playback engine")
	}

	c.id = uuid.New()
	c.media = media
	c.started = true
	log := c.logger.With("session_id", c.id.String(), "media_id", media.ID)

	if c.store != nil && media.ID != "" {
		prior, err := c.store.SubtitleRecord(ctx, media.ID)
		if err != nil {
			log.Warn("failed to read persisted subtitle", "error", err)
		} else {
			c.prior = prior
			c.priorLoaded = true
		}
	}

	if a, ok := c.resolver.Preload(ctx, media.ID, c.prior).Get(); ok {
		if err := c.attachLocked(ctx, a); err != nil {
			log.Warn("failed to attach persisted subtitle", "error", err)
		}
	}
	if p, ok := c.prior.Get(); ok {
		if off, ok := p.OffsetMs.Get(); ok {
			if err := c.engine.SetSubtitleOffset(ctx, time.Duration(off)*time.Millisecond); err != nil {
				log.Warn("failed to restore subtitle offset", "error", err)
			} else {
				c.offsetMs = off
			}
		}
	}

	c.reconcilePollerLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	log.Info("session started", "kind", media.Kind.String(), "has_next", media.HasNext)
	c.publish(Event{Type: EventState, Snapshot: snap})
	return nil
}

// Close ends the session: the poller and dialog work are cancelled and the
// subtitle record is written back. Closing twice is a no-op.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.stopPollerLocked()
	c.leaveDialogLocked()
	c.modal.Reset()
	c.popover = false
	c.cancel()

	sel := c.selectionLocked()
	rec := subtitle.DeriveRecord(sel, c.prior)
	started, store, mediaID := c.started, c.store, c.media.ID
	// Without the prior record an untouched session would overwrite it
	// with an empty one.
	keepStored := !c.priorLoaded && !sel.HasAny() && !sel.Cleared
	snap := c.snapshotLocked()
	c.mu.Unlock()

	var err error
	if keepStored {
		c.logger.Debug("keeping stored subtitle record, prior read failed", "media_id", mediaID)
	} else if started && store != nil && mediaID != "" {
		if serr := store.SaveSubtitleRecord(ctx, mediaID, rec); serr != nil {
			err = fmt.Errorf("failed to persist subtitle record: %w", serr)
		}
	}
	c.logger.Debug("session closed", "media_id", mediaID, "subtitle_empty", rec.IsEmpty())
	c.publish(Event{Type: EventState, Snapshot: snap})
	return err
}

// HandleEnded handles the engine reporting the end of playback
func (c *Coordinator) HandleEnded() {
	c.handleEnded(0)
}

// handleEnded runs the terminal transition. A non-zero gen ties the call to
// a poller and drops it once that poller was stopped.
func (c *Coordinator) handleEnded(gen uint64) {
	c.mu.Lock()
	if (gen != 0 && gen != c.pollGen) || !c.eligibleLocked() {
		c.mu.Unlock()
		return
	}
	fire := c.advancer.Ended()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if fire {
		c.advance(snap)
	}
}

// PlayNextNow skips the countdown and advances immediately
func (c *Coordinator) PlayNextNow() bool {
	c.mu.Lock()
	if !c.started || c.closed || !c.media.HasNext {
		c.mu.Unlock()
		return false
	}
	fire := c.advancer.AdvanceNow()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if fire {
		c.advance(snap)
	}
	return fire
}

// DismissNextOverlay hides the countdown overlay without disarming it
func (c *Coordinator) DismissNextOverlay() {
	c.mu.Lock()
	c.advancer.DismissOverlay()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(Event{Type: EventState, Snapshot: snap})
}

// SetHasNext updates whether a next episode exists
func (c *Coordinator) SetHasNext(hasNext bool) {
	c.mu.Lock()
	c.media.HasNext = hasNext
	if c.started && !c.closed {
		c.reconcilePollerLocked()
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(Event{Type: EventState, Snapshot: snap})
}

// SetAutoPlayNext updates the auto-advance setting
func (c *Coordinator) SetAutoPlayNext(enabled bool) {
	c.mu.Lock()
	c.opts.AutoPlayNext = enabled
	if c.started && !c.closed {
		c.reconcilePollerLocked()
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(Event{Type: EventState, Snapshot: snap})
}

// Snapshot returns a copy of the current state
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Coordinator) advance(snap Snapshot) {
	c.logger.Info("advancing to next episode", "media_id", snap.Media.ID)
	c.publish(Event{Type: EventAdvance, Snapshot: snap})
	if c.onNext != nil {
		c.onNext()
	}
}

func (c *Coordinator) handleEngineError(err error) {
	c.logger.Warn("playback engine error", "error", err)
	c.publish(Event{Type: EventNotice, Notice: "Player error: " + err.Error(), Snapshot: c.Snapshot()})
}

func (c *Coordinator) eligibleLocked() bool {
	return c.started && !c.closed &&
		c.opts.AutoPlayNext &&
		c.media.Kind == stream.KindSeries &&
		c.media.HasNext
}

// reconcilePollerLocked restarts the poller when any of its inputs changed.
// A running poller with unchanged inputs is left alone.
func (c *Coordinator) reconcilePollerLocked() {
	key := pollKey{
		session:  c.id,
		engine:   c.engineGen,
		autoPlay: c.opts.AutoPlayNext,
		kind:     c.media.Kind,
		hasNext:  c.media.HasNext,
	}
	eligible := c.eligibleLocked()
	if eligible && c.pollCancel != nil && key == c.pollKey {
		return
	}

	c.stopPollerLocked()
	c.advancer.Reset()
	if !eligible {
		return
	}

	ctx, cancel := context.WithCancel(c.ctx)
	c.pollCancel = cancel
	c.pollKey = key
	go c.poll(ctx, c.pollGen, c.engine, c.opts.PollInterval)
}

func (c *Coordinator) stopPollerLocked() {
	if c.pollCancel != nil {
		c.pollCancel()
		c.pollCancel = nil
	}
	// Invalidates samples from a poller that is mid-iteration
	c.pollGen++
}

func (c *Coordinator) poll(ctx context.Context, gen uint64, engine player.Engine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		progress, err := engine.GetProgress(ctx)
		if err != nil || progress == nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Debug("skipping progress sample", "error", err)
			continue
		}

		if ctx.Err() != nil {
			return
		}
		// The end-of-file reading sits at remaining == 0 and must not
		// disarm the countdown before the terminal transition sees it.
		if progress.EOF {
			c.handleEnded(gen)
			continue
		}

		c.mu.Lock()
		if gen != c.pollGen || ctx.Err() != nil {
			c.mu.Unlock()
			return
		}
		before := c.advancer.State()
		after := c.advancer.Sample(progress.CurrentTime, progress.Duration)
		var snap Snapshot
		if before != after {
			snap = c.snapshotLocked()
		}
		c.mu.Unlock()

		if before != after {
			c.publish(Event{Type: EventState, Snapshot: snap})
		}
	}
}

func (c *Coordinator) requireRunningLocked() error {
	if c.closed {
		return ErrClosed
	}
	if !c.started {
		return ErrNotStarted
	}
	return nil
}

// publish queues ev for the UI. State and notice events are dropped when the
// buffer is full; exit and advance wait for room until the session is closed.
func (c *Coordinator) publish(ev Event) {
	if ev.Type.Terminal() {
		select {
		case c.events <- ev:
		case <-c.ctx.Done():
			c.logger.Debug("event dropped after close", "type", ev.Type.String())
		}
		return
	}
	select {
	case c.events <- ev:
	default:
		c.logger.Debug("event dropped", "type", ev.Type.String())
	}
}

func (c *Coordinator) notify(msg string) {
	c.publish(Event{Type: EventNotice, Notice: msg, Snapshot: c.Snapshot()})
}

func (c *Coordinator) snapshotLocked() Snapshot {
	dialog := c.dialog
	dialog.Results = append([]subtitle.Candidate(nil), c.dialog.Results...)

	var id string
	if c.started {
		id = c.id.String()
	}
	return Snapshot{
		SessionID:        id,
		Media:            c.media,
		Modal:            c.modal.Current(),
		PopoverOpen:      c.popover,
		ResizeMode:       c.resize,
		NextEpisode:      c.advancer.State(),
		Subtitle:         c.active,
		SubtitlesEnabled: c.enabled,
		SubtitleOffset:   time.Duration(c.offsetMs) * time.Millisecond,
		Speed:            c.speed,
		AudioBoostDB:     c.boostDB,
		VideoOverride:    c.videoOverride,
		Dialog:           dialog,
		Closed:           c.closed,
	}
}
