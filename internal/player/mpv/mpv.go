package mpv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/diniamo/gopv"

	"github.com/justchokingaround/tvsession/internal/audio"
	"github.com/justchokingaround/tvsession/internal/config"
	"github.com/justchokingaround/tvsession/internal/player"
)

// ErrNotRunning is returned by engine commands when no mpv instance is connected
var ErrNotRunning = errors.New("mpv is not running")

const boostFilterLabel = "@boost"

// MPVPlayer implements player.Engine using mpv with JSON IPC
type MPVPlayer struct {
	mu sync.RWMutex

	// mpv process and IPC
	client    *gopv.Client
	cmd       *exec.Cmd
	ipcConfig *IPCConfig
	platform  Platform

	// State
	state         player.PlaybackState
	currentURL    string
	options       player.PlayOptions
	boostDB       int
	videoOverride bool
	endReported   bool

	// Callbacks
	onEnd   func()
	onError func(error)

	// Control
	ctx          context.Context
	cancel       context.CancelFunc
	clientClosed bool

	// Configuration
	debug          bool
	loadUserConfig bool
	extraArgs      []string
	logger         *slog.Logger
}

var (
	_ player.Engine  = (*MPVPlayer)(nil)
	_ player.Resizer = (*MPVPlayer)(nil)
)

// NewMPVPlayer creates a new mpv engine. The mpv binary is located when
// playback starts.
func NewMPVPlayer(cfg *config.PlayerConfig, debug bool, logger *slog.Logger) *MPVPlayer {
	if logger == nil {
		logger = slog.Default()
	}
	p := &MPVPlayer{
		state:    player.StateStopped,
		platform: DetectPlatform(),
		debug:    debug,
		logger:   logger,
	}
	if cfg != nil {
		p.loadUserConfig = cfg.LoadUserConfig
		p.extraArgs = append([]string(nil), cfg.MPVArgs...)
	}
	return p
}

// Available reports whether an mpv binary can be found
func (p *MPVPlayer) Available() error {
	_, err := FindMPVExecutable(p.platform)
	return err
}

// State returns the lifecycle state of the current mpv process
func (p *MPVPlayer) State() player.PlaybackState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Play starts playback of the given URL with options.
// Returns after the process is launched; IPC failures are reported via the
// OnError callback.
func (p *MPVPlayer) Play(ctx context.Context, url string, options player.PlayOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != player.StateStopped {
		if err := p.stopLocked(); err != nil {
			return fmt.Errorf("failed to stop existing playback: %w", err)
		}
	}

	mpvExec, err := FindMPVExecutable(p.platform)
	if err != nil {
		return err
	}

	ipcConfig, err := GetIPCConfig(p.platform)
	if err != nil {
		return fmt.Errorf("failed to generate IPC config: %w", err)
	}
	p.ipcConfig = ipcConfig

	args := p.buildMPVArgs(url, options)
	p.cmd = exec.Command(mpvExec, args...)

	// Detach mpv from the terminal so it does not interfere with the TUI
	p.cmd.Stdin = nil
	p.cmd.Stdout = nil
	p.cmd.Stderr = nil
	setupProcessAttributes(p.cmd)

	if err := p.cmd.Start(); err != nil {
		p.cleanupIPC()
		return fmt.Errorf("failed to start %s: %w", mpvExec, err)
	}

	p.currentURL = url
	p.options = options
	p.state = player.StateLoading
	p.boostDB = 0
	p.videoOverride = false
	p.endReported = false
	p.clientClosed = false

	p.ctx, p.cancel = context.WithCancel(context.Background())
	go p.asyncInitialize(ctx, ipcConfig)

	p.logger.Debug("mpv started", "pid", p.cmd.Process.Pid, "ipc", ipcConfig.Address)
	return nil
}

// asyncInitialize connects to the IPC server once mpv has created it
func (p *MPVPlayer) asyncInitialize(ctx context.Context, ipcConfig *IPCConfig) {
	initCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := p.waitForIPC(initCtx, ipcConfig); err != nil {
		p.failInit(fmt.Errorf("timeout waiting for mpv IPC at %s: %w", ipcConfig.Address, err))
		return
	}

	connStr := GetGopvConnectionString(ipcConfig)
	client, err := gopv.Connect(connStr, func(err error) {
		p.reportError(err)
	})
	if err != nil {
		p.failInit(fmt.Errorf("failed to connect to mpv IPC at %s: %w", connStr, err))
		return
	}

	p.mu.Lock()
	p.client = client
	p.state = player.StatePlaying
	runCtx := p.ctx
	p.mu.Unlock()

	go p.monitorEnd(runCtx)
	go p.monitorProcess()
}

func (p *MPVPlayer) failInit(err error) {
	p.mu.Lock()
	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	p.cleanupIPC()
	p.state = player.StateError
	p.mu.Unlock()

	p.reportError(err)
}

func (p *MPVPlayer) reportError(err error) {
	p.mu.RLock()
	callback := p.onError
	p.mu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// Stop stops playback and cleans up resources
func (p *MPVPlayer) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopLocked()
}

// stopLocked must be called with the lock held
func (p *MPVPlayer) stopLocked() error {
	if p.state == player.StateStopped || p.clientClosed {
		return nil
	}
	p.clientClosed = true
	p.state = player.StateStopped

	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}

	// gopv closes the client itself when the process exits and the
	// connection hits EOF, so only send quit here.
	if p.client != nil {
		client := p.client
		p.client = nil
		go func() {
			done := make(chan struct{})
			go func() {
				_, _ = client.Request("quit")
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(500 * time.Millisecond):
			}
		}()
	}

	if p.cmd != nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	p.cmd = nil
	p.cleanupIPC()
	p.currentURL = ""
	return nil
}

func (p *MPVPlayer) cleanupIPC() {
	if p.ipcConfig != nil && p.ipcConfig.IsSocket {
		_ = os.Remove(p.ipcConfig.Address)
	}
	p.ipcConfig = nil
}

// request sends an IPC command to the connected mpv instance
func (p *MPVPlayer) request(args ...interface{}) (interface{}, error) {
	p.mu.RLock()
	client := p.client
	p.mu.RUnlock()
	if client == nil {
		return nil, ErrNotRunning
	}
	result, err := client.Request(args...)
	if err != nil {
		return nil, fmt.Errorf("mpv %v: %w", args[0], err)
	}
	return result, nil
}

func (p *MPVPlayer) setProperty(name string, value interface{}) error {
	_, err := p.request("set_property", name, value)
	return err
}

func (p *MPVPlayer) floatProperty(name string) (float64, error) {
	result, err := p.request("get_property", name)
	if err != nil {
		return 0, err
	}
	val, ok := result.(float64)
	if !ok {
		return 0, fmt.Errorf("property %s: unexpected type %T", name, result)
	}
	return val, nil
}

func (p *MPVPlayer) boolProperty(name string) (bool, error) {
	result, err := p.request("get_property", name)
	if err != nil {
		return false, err
	}
	val, _ := result.(bool)
	return val, nil
}

// GetProgress returns the current playback progress. Properties mpv cannot
// report yet are left at zero.
func (p *MPVPlayer) GetProgress(ctx context.Context) (*player.PlaybackProgress, error) {
	p.mu.RLock()
	state := p.state
	p.mu.RUnlock()
	if state == player.StateStopped {
		return nil, ErrNotRunning
	}

	progress := &player.PlaybackProgress{Speed: 1.0}
	var failures int

	if v, err := p.floatProperty("time-pos"); err == nil {
		progress.CurrentTime = secondsToDuration(v)
	} else if errors.Is(err, ErrNotRunning) {
		return nil, err
	} else {
		failures++
	}
	if v, err := p.floatProperty("duration"); err == nil {
		progress.Duration = secondsToDuration(v)
	} else {
		failures++
	}
	if v, err := p.boolProperty("pause"); err == nil {
		progress.Paused = v
	} else {
		failures++
	}
	if v, err := p.boolProperty("eof-reached"); err == nil {
		progress.EOF = v
	} else {
		failures++
	}
	if v, err := p.floatProperty("speed"); err == nil {
		progress.Speed = v
	}

	if failures >= 4 {
		return nil, fmt.Errorf("IPC connection failed (failed to get %d properties)", failures)
	}
	return progress, nil
}

// OnPlaybackEnd sets the playback end callback
func (p *MPVPlayer) OnPlaybackEnd(callback func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onEnd = callback
}

// OnError sets the error callback
func (p *MPVPlayer) OnError(callback func(err error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onError = callback
}

// AddSubtitle attaches and selects an external subtitle. mpv detects the
// format from the content, so the MIME type is informational only.
func (p *MPVPlayer) AddSubtitle(ctx context.Context, uri, language, label, mimeType string) error {
	p.logger.Debug("adding subtitle", "uri", uri, "language", language, "label", label, "mime", mimeType)
	_, err := p.request("sub-add", uri, "select", label, language)
	return err
}

// ClearExternalSubtitles removes every externally attached subtitle
func (p *MPVPlayer) ClearExternalSubtitles(ctx context.Context) error {
	tracks, err := p.trackList()
	if err != nil {
		return err
	}
	for _, t := range tracks {
		if t.Kind != player.TrackSubtitle || !t.External {
			continue
		}
		if _, err := p.request("sub-remove", t.ID); err != nil {
			return err
		}
	}
	return nil
}

// SetSubtitlesEnabled turns subtitle rendering on or off. Enabling lets mpv
// pick the default track again.
func (p *MPVPlayer) SetSubtitlesEnabled(ctx context.Context, enabled bool) error {
	sid := "no"
	if enabled {
		sid = "auto"
	}
	return p.setProperty("sid", sid)
}

// HasEmbeddedSubtitles reports whether the container carries a subtitle track
func (p *MPVPlayer) HasEmbeddedSubtitles(ctx context.Context) (bool, error) {
	tracks, err := p.trackList()
	if err != nil {
		return false, err
	}
	for _, t := range tracks {
		if t.Kind == player.TrackSubtitle && !t.External {
			return true, nil
		}
	}
	return false, nil
}

// RefreshMediaItem rescans the current file so disabled tracks become
// selectable again
func (p *MPVPlayer) RefreshMediaItem(ctx context.Context) error {
	_, err := p.request("rescan-external-files", "keep-selection")
	return err
}

// SetSubtitleOffset sets the subtitle delay
func (p *MPVPlayer) SetSubtitleOffset(ctx context.Context, offset time.Duration) error {
	return p.setProperty("sub-delay", offset.Seconds())
}

// AudioTracks lists the audio tracks of the current file
func (p *MPVPlayer) AudioTracks(ctx context.Context) ([]player.Track, error) {
	return p.tracksOfKind(player.TrackAudio)
}

// VideoTracks lists the video tracks of the current file
func (p *MPVPlayer) VideoTracks(ctx context.Context) ([]player.Track, error) {
	return p.tracksOfKind(player.TrackVideo)
}

// SelectAudioTrack selects an audio track. mpv has no track groups; index is
// the mpv track id.
func (p *MPVPlayer) SelectAudioTrack(ctx context.Context, group, index int) error {
	return p.setProperty("aid", index)
}

// SelectVideoTrack selects a video track. A negative index restores
// automatic selection.
func (p *MPVPlayer) SelectVideoTrack(ctx context.Context, group, index int) error {
	if index < 0 {
		if err := p.setProperty("vid", "auto"); err != nil {
			return err
		}
		p.setVideoOverride(false)
		return nil
	}
	if err := p.setProperty("vid", index); err != nil {
		return err
	}
	p.setVideoOverride(true)
	return nil
}

func (p *MPVPlayer) setVideoOverride(active bool) {
	p.mu.Lock()
	p.videoOverride = active
	p.mu.Unlock()
}

// IsVideoOverrideActive reports whether a video track was chosen manually
func (p *MPVPlayer) IsVideoOverrideActive(ctx context.Context) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.videoOverride, nil
}

// SetAudioBoostDB applies a volume gain filter. Zero removes the filter.
func (p *MPVPlayer) SetAudioBoostDB(ctx context.Context, db int) error {
	db = audio.ClampBoost(db)

	// Removing a label that is not present is an error in mpv; ignore it
	_, _ = p.request("af", "remove", boostFilterLabel)
	if db > 0 {
		if _, err := p.request("af", "add", boostFilter(db)); err != nil {
			return err
		}
	}

	p.mu.Lock()
	p.boostDB = db
	p.mu.Unlock()
	return nil
}

// AudioBoostDB returns the gain applied by SetAudioBoostDB
func (p *MPVPlayer) AudioBoostDB(ctx context.Context) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.boostDB, nil
}

// SetResizeMode maps a resize mode onto mpv's scaling properties
func (p *MPVPlayer) SetResizeMode(ctx context.Context, mode string) error {
	props, ok := resizeProperties[mode]
	if !ok {
		return fmt.Errorf("unknown resize mode %q", mode)
	}
	for _, prop := range props {
		if err := p.setProperty(prop.name, prop.value); err != nil {
			return err
		}
	}
	return nil
}

type property struct {
	name  string
	value interface{}
}

var resizeProperties = map[string][]property{
	"fit":        {{"keepaspect", true}, {"panscan", 0.0}, {"video-unscaled", "no"}},
	"stretch":    {{"keepaspect", false}, {"panscan", 0.0}, {"video-unscaled", "no"}},
	"zoom":       {{"keepaspect", true}, {"panscan", 1.0}, {"video-unscaled", "no"}},
	"one-to-one": {{"keepaspect", true}, {"panscan", 0.0}, {"video-unscaled", "yes"}},
}

// SetSpeed sets the playback speed
func (p *MPVPlayer) SetSpeed(ctx context.Context, speed float64) error {
	return p.setProperty("speed", speed)
}

func (p *MPVPlayer) trackList() ([]player.Track, error) {
	raw, err := p.request("get_property", "track-list")
	if err != nil {
		return nil, err
	}
	return parseTrackList(raw), nil
}

func (p *MPVPlayer) tracksOfKind(kind player.TrackKind) ([]player.Track, error) {
	tracks, err := p.trackList()
	if err != nil {
		return nil, err
	}
	out := make([]player.Track, 0, len(tracks))
	for _, t := range tracks {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out, nil
}

// monitorEnd reports the end of playback once per file
func (p *MPVPlayer) monitorEnd(ctx context.Context) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			eof, err := p.boolProperty("eof-reached")
			if errors.Is(err, ErrNotRunning) {
				return
			}
			if !eof {
				idle, _ := p.boolProperty("idle-active")
				eof = idle
			}
			if !eof {
				continue
			}

			p.mu.Lock()
			callback := p.onEnd
			already := p.endReported
			p.endReported = true
			p.mu.Unlock()

			if !already && callback != nil {
				callback()
			}
			return
		}
	}
}

// monitorProcess handles unexpected mpv exits
func (p *MPVPlayer) monitorProcess() {
	p.mu.RLock()
	cmd := p.cmd
	p.mu.RUnlock()
	if cmd == nil {
		return
	}

	err := cmd.Wait()

	p.mu.RLock()
	current := p.cmd == cmd
	currentState := p.state
	p.mu.RUnlock()

	// A newer Play already replaced this process
	if !current {
		return
	}
	if err != nil && currentState != player.StateStopped {
		p.reportError(fmt.Errorf("mpv process exited unexpectedly: %w", err))
	}
	_ = p.Stop(context.Background())
}

// buildMPVArgs builds the command-line arguments for mpv
func (p *MPVPlayer) buildMPVArgs(url string, opts player.PlayOptions) []string {
	args := []string{
		GetMPVIPCArgument(p.ipcConfig),
		"--idle=yes",
		"--keep-open=yes", // hold the last frame so eof-reached is observable
		"--no-ytdl",
	}

	if !p.loadUserConfig {
		args = append(args, "--no-config")
	}
	if !p.debug {
		args = append(args, "--msg-level=all=warn")
	}

	if opts.StartTime > 0 {
		args = append(args, fmt.Sprintf("--start=%g", opts.StartTime.Seconds()))
	}
	if opts.Speed > 0 {
		args = append(args, fmt.Sprintf("--speed=%g", opts.Speed))
	}
	if opts.SubtitleURL != "" {
		args = append(args, fmt.Sprintf("--sub-file=%s", opts.SubtitleURL))
	}
	if opts.SubtitleLang != "" {
		args = append(args, fmt.Sprintf("--slang=%s", opts.SubtitleLang))
	}
	if opts.SubtitleDelay != 0 {
		args = append(args, fmt.Sprintf("--sub-delay=%g", opts.SubtitleDelay.Seconds()))
	}
	if opts.UserAgent != "" {
		args = append(args, fmt.Sprintf("--user-agent=%s", opts.UserAgent))
	}
	if opts.Title != "" {
		args = append(args, fmt.Sprintf("--force-media-title=%s", opts.Title))
	}

	args = append(args, p.extraArgs...)
	args = append(args, opts.MPVArgs...)

	// URL must be last
	return append(args, url)
}

// waitForIPC waits until the IPC endpoint accepts connections
func (p *MPVPlayer) waitForIPC(ctx context.Context, ipc *IPCConfig) error {
	timeoutDuration := 5 * time.Second
	if ipc.Type == IPCTCP || ipc.Type == IPCNamedPipe {
		timeoutDuration = 10 * time.Second
	}

	timeout := time.After(timeoutDuration)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return fmt.Errorf("timeout waiting for IPC at %s after %v", ipc.Address, timeoutDuration)
		case <-ticker.C:
			switch {
			case ipc.IsSocket:
				if _, err := os.Stat(ipc.Address); err == nil {
					time.Sleep(200 * time.Millisecond)
					return nil
				}
			case ipc.Type == IPCTCP:
				conn, err := net.DialTimeout("tcp", ipc.Address, 200*time.Millisecond)
				if err == nil {
					_ = conn.Close()
					time.Sleep(300 * time.Millisecond)
					return nil
				}
			case ipc.Type == IPCNamedPipe:
				if isPipeReady(ipc.Address) {
					time.Sleep(200 * time.Millisecond)
					return nil
				}
			}
		}
	}
}

func boostFilter(db int) string {
	return fmt.Sprintf("%s:lavfi=[volume=%ddB]", boostFilterLabel, db)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// parseTrackList converts mpv's track-list property into tracks.
// Index is the mpv track id, which is what aid/vid/sid accept.
func parseTrackList(raw interface{}) []player.Track {
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}

	tracks := make([]player.Track, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		kind := player.TrackKind(stringField(m, "type"))
		switch kind {
		case player.TrackAudio, player.TrackVideo, player.TrackSubtitle:
		default:
			continue
		}
		id := intField(m, "id")
		tracks = append(tracks, player.Track{
			Kind:     kind,
			Index:    id,
			ID:       id,
			Title:    stringField(m, "title"),
			Language: stringField(m, "lang"),
			Codec:    stringField(m, "codec"),
			Width:    intField(m, "demux-w"),
			Height:   intField(m, "demux-h"),
			Channels: intField(m, "demux-channel-count"),
			External: boolField(m, "external"),
			Selected: boolField(m, "selected"),
		})
	}
	return tracks
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func intField(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func boolField(m map[string]interface{}, key string) bool {
	b, _ := m[key].(bool)
	return b
}
