package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/justchokingaround/tvsession/internal/config"
	"github.com/justchokingaround/tvsession/internal/database"
	"github.com/justchokingaround/tvsession/internal/history"
	tvhttp "github.com/justchokingaround/tvsession/internal/http"
	"github.com/justchokingaround/tvsession/internal/player"
	"github.com/justchokingaround/tvsession/internal/player/mpv"
	"github.com/justchokingaround/tvsession/internal/session"
	"github.com/justchokingaround/tvsession/internal/stream"
	"github.com/justchokingaround/tvsession/internal/subtitle/cache"
	"github.com/justchokingaround/tvsession/internal/subtitle/opensubtitles"
	"github.com/justchokingaround/tvsession/internal/tui"
)

const (
	startupTimeout = 30 * time.Second
	watchInterval  = time.Second
	// entries watched past this fraction start from the beginning
	resumeLimit = 0.95
)

var configMu sync.RWMutex

// currentConfig returns a copy of the config as of the last hot reload
func currentConfig() config.Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return *cfg
}

var playCmd = &cobra.Command{
	Use:   "play <kind> <stream-id> [stream-id...]",
	Short: "Play a channel, movie or episodes in mpv",
	Long: `Play resolves each stream ID against the configured account and plays it in mpv.

For series, extra IDs are the following episodes: the session counts down
near the end of each one and moves on. For live streams, extra IDs form the
channel list switched with the up and down keys.`,
	Example: `  tvsession play live 101 102 103
  tvsession play series 5001 5002 5003 --title "S01E01,S01E02,S01E03"
  tvsession play movie 777 --ext mkv`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := stream.ParseKind(args[0])
		if err != nil {
			return err
		}
		ext, _ := cmd.Flags().GetString("ext")
		titles, _ := cmd.Flags().GetStringSlice("title")
		noResume, _ := cmd.Flags().GetBool("no-resume")

		if currentConfig().Account.BaseURL == "" {
			return fmt.Errorf("account.base_url is not configured (run `tvsession config init`)")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runPlaylist(ctx, newPlaylist(kind, ext, args[1:], titles), !noResume)
	},
}

func init() {
	playCmd.Flags().StringP("ext", "e", "", "container extension for movies and episodes (default mp4)")
	playCmd.Flags().StringSliceP("title", "t", nil, "display titles, one per stream ID")
	playCmd.Flags().Bool("no-resume", false, "start from the beginning instead of the saved position")
}

// sessionDeps are the services shared by every session of one play command
type sessionDeps struct {
	engine  *mpv.MPVPlayer
	cache   *cache.Store
	repo    *opensubtitles.Repository
	history *history.Service
}

func newSessionDeps(c config.Config) (*sessionDeps, error) {
	engine := mpv.NewMPVPlayer(&c.Player, c.Advanced.Debug, logger)
	if err := engine.Available(); err != nil {
		return nil, err
	}

	store := newCacheStore(c)
	return &sessionDeps{
		engine:  engine,
		cache:   store,
		repo:    opensubtitles.New(newSubtitleClient(c), c.Subtitles.BaseURL, c.Subtitles.Languages, store, logger),
		history: history.NewService(database.GetDB()),
	}, nil
}

func newSubtitleClient(c config.Config) *tvhttp.Client {
	return tvhttp.NewClient(tvhttp.ClientConfig{
		UserAgent:         c.Subtitles.UserAgent,
		RequestsPerSecond: c.Subtitles.RequestsPerSecond,
		Debug:             c.Advanced.Debug,
		Logger:            logger,
	})
}

func sessionOptions(c config.Config) session.Options {
	resize, err := session.ParseResizeMode(c.Player.ResizeMode)
	if err != nil {
		logger.Warn("unknown resize mode, using fit", "mode", c.Player.ResizeMode)
	}
	return session.Options{
		AutoPlayNext:         c.Player.AutoPlayNext,
		NextEpisodeThreshold: c.Player.NextEpisodeThreshold,
		PollInterval:         c.Player.PollInterval,
		ResizeMode:           resize,
		APIKey:               c.Subtitles.APIKey,
		UserAgent:            c.Subtitles.UserAgent,
	}
}

// runPlaylist plays sessions until the user leaves or the list runs out
func runPlaylist(ctx context.Context, pl *playlist, resume bool) error {
	deps, err := newSessionDeps(currentConfig())
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.engine.Stop(context.Background()); err != nil {
			logger.Debug("failed to stop mpv", "error", err)
		}
	}()

	for {
		advanced, err := playSession(ctx, deps, pl, resume)
		if err != nil {
			return err
		}
		if ctx.Err() != nil || !pl.next(advanced) {
			return nil
		}
	}
}

// playSession runs one coordinator session over one stream and reports
// whether it ended by advancing to the next episode
func playSession(ctx context.Context, deps *sessionDeps, pl *playlist, resume bool) (bool, error) {
	c := currentConfig()
	media := pl.media(account())
	log := logger.With("media_id", media.ID)

	opts := player.PlayOptions{
		Title: media.Title,
		Speed: 1.0,
	}
	if resume && media.Kind != stream.KindLive {
		if entry, err := deps.history.Get(ctx, media.ID); err != nil {
			log.Warn("failed to read saved position", "error", err)
		} else if e, ok := entry.Get(); ok && e.Progress() < resumeLimit {
			opts.StartTime = e.Position
		}
	}

	if err := deps.engine.Play(ctx, media.URL, opts); err != nil {
		return false, fmt.Errorf("failed to start playback: %w", err)
	}
	if err := waitForPlayback(ctx, deps.engine, startupTimeout); err != nil {
		return false, err
	}

	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	pl.bind(cancel)
	defer pl.bind(nil)

	var advanced atomic.Bool
	coord := session.New(session.Collaborators{
		Engine:     deps.engine,
		Cache:      deps.cache,
		Repository: deps.repo,
		Store:      deps.history,
		Channels:   pl,
		NextEpisode: func() {
			advanced.Store(true)
			cancel()
		},
	}, sessionOptions(c), log)
	coord.ApplySessionDefaults(ctx, deps.engine)
	if err := coord.Start(ctx, media); err != nil {
		return false, fmt.Errorf("failed to start session: %w", err)
	}

	var last atomic.Pointer[player.PlaybackProgress]
	go watchEngine(sessCtx, deps.engine, &last, cancel)

	outcome, runErr := tui.Run(sessCtx, coord)
	cancel()

	if err := coord.Close(ctx); err != nil {
		log.Warn("failed to save subtitle choice", "error", err)
	}
	saveProgress(ctx, deps.history, media, last.Load())

	if runErr != nil {
		return false, runErr
	}
	return advanced.Load() || outcome == tui.OutcomeAdvance, nil
}

// waitForPlayback blocks until mpv accepts IPC commands
func waitForPlayback(ctx context.Context, engine *mpv.MPVPlayer, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		switch engine.State() {
		case player.StatePlaying:
			return nil
		case player.StateError, player.StateStopped:
			return errors.New("mpv exited before playback started")
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for mpv: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// watchEngine samples progress for the continue-watching store and ends the
// session once mpv is gone
func watchEngine(ctx context.Context, engine *mpv.MPVPlayer, last *atomic.Pointer[player.PlaybackProgress], done context.CancelFunc) {
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if state := engine.State(); state == player.StateStopped || state == player.StateError {
			done()
			return
		}
		if p, err := engine.GetProgress(ctx); err == nil {
			last.Store(p)
		}
	}
}

func saveProgress(ctx context.Context, store *history.Service, media session.Media, p *player.PlaybackProgress) {
	if p == nil || media.Kind == stream.KindLive {
		return
	}
	err := store.SaveProgress(ctx, history.Entry{
		MediaID:    media.ID,
		MediaTitle: media.Title,
		MediaType:  media.Kind.String(),
		Position:   p.CurrentTime,
		Duration:   p.Duration,
	})
	if err != nil {
		logger.Warn("failed to save progress", "media_id", media.ID, "error", err)
	}
}
