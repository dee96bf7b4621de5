package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/samber/mo"

	"github.com/justchokingaround/tvsession/internal/player"
	"github.com/justchokingaround/tvsession/internal/subtitle"
)

type addCall struct {
	URI, Language, Label, Mime string
}

type fakeEngine struct {
	mu sync.Mutex

	progress    player.PlaybackProgress
	progressErr error
	embedded    bool
	audio       []player.Track
	boost       int
	override    bool

	progressCalls int
	adds          []addCall
	clears        int
	enabledCalls  []bool
	refreshes     int
	offsets       []time.Duration
	speeds        []float64
	resizeModes   []string
	audioSelected []int
	videoSelected []int
	onEndSets     int
	onErrorSets   int

	onEnd   func()
	onError func(error)
}

func (f *fakeEngine) Play(ctx context.Context, url string, options player.PlayOptions) error {
	return nil
}
func (f *fakeEngine) Stop(ctx context.Context) error { return nil }

func (f *fakeEngine) GetProgress(ctx context.Context) (*player.PlaybackProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progressCalls++
	if f.progressErr != nil {
		return nil, f.progressErr
	}
	p := f.progress
	return &p, nil
}

func (f *fakeEngine) OnPlaybackEnd(callback func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onEnd = callback
	f.onEndSets++
}

func (f *fakeEngine) OnError(callback func(err error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onError = callback
	f.onErrorSets++
}

func (f *fakeEngine) AddSubtitle(ctx context.Context, uri, language, label, mimeType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adds = append(f.adds, addCall{uri, language, label, mimeType})
	return nil
}

func (f *fakeEngine) ClearExternalSubtitles(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	return nil
}

func (f *fakeEngine) SetSubtitlesEnabled(ctx context.Context, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabledCalls = append(f.enabledCalls, enabled)
	return nil
}

func (f *fakeEngine) HasEmbeddedSubtitles(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.embedded, nil
}

func (f *fakeEngine) RefreshMediaItem(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return nil
}

func (f *fakeEngine) SetSubtitleOffset(ctx context.Context, offset time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offsets = append(f.offsets, offset)
	return nil
}

func (f *fakeEngine) AudioTracks(ctx context.Context) ([]player.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.audio, nil
}

func (f *fakeEngine) VideoTracks(ctx context.Context) ([]player.Track, error) {
	return nil, nil
}

func (f *fakeEngine) SelectAudioTrack(ctx context.Context, group, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audioSelected = append(f.audioSelected, index)
	return nil
}

func (f *fakeEngine) SelectVideoTrack(ctx context.Context, group, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videoSelected = append(f.videoSelected, index)
	f.override = index >= 0
	return nil
}

func (f *fakeEngine) IsVideoOverrideActive(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.override, nil
}

func (f *fakeEngine) SetAudioBoostDB(ctx context.Context, db int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.boost = db
	return nil
}

func (f *fakeEngine) AudioBoostDB(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.boost, nil
}

func (f *fakeEngine) SetSpeed(ctx context.Context, speed float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.speeds = append(f.speeds, speed)
	return nil
}

func (f *fakeEngine) SetResizeMode(ctx context.Context, mode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resizeModes = append(f.resizeModes, mode)
	return nil
}

func (f *fakeEngine) setProgress(pos, dur time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = player.PlaybackProgress{CurrentTime: pos, Duration: dur}
}

// setEnded reports the position mpv holds at the end with keep-open
func (f *fakeEngine) setEnded(dur time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = player.PlaybackProgress{CurrentTime: dur, Duration: dur, EOF: true}
}

func (f *fakeEngine) progressCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.progressCalls
}

func (f *fakeEngine) addCalls() []addCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]addCall(nil), f.adds...)
}

type fakeCache struct {
	mu     sync.Mutex
	byID   map[string][]subtitle.Cached
	calls  int
	failed error
}

func (c *fakeCache) CachedForMedia(ctx context.Context, mediaID string) ([]subtitle.Cached, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.failed != nil {
		return nil, c.failed
	}
	return c.byID[mediaID], nil
}

func (c *fakeCache) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type fakeStore struct {
	mu      sync.Mutex
	records map[string]subtitle.Record
	saved   []subtitle.Record
	readErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]subtitle.Record{}}
}

func (s *fakeStore) SubtitleRecord(ctx context.Context, mediaID string) (mo.Option[subtitle.Record], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return mo.None[subtitle.Record](), s.readErr
	}
	rec, ok := s.records[mediaID]
	if !ok {
		return mo.None[subtitle.Record](), nil
	}
	return mo.Some(rec), nil
}

func (s *fakeStore) SaveSubtitleRecord(ctx context.Context, mediaID string, rec subtitle.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[mediaID] = rec
	s.saved = append(s.saved, rec)
	return nil
}

// fakeRepo blocks each call until the test releases it
type fakeRepo struct {
	searchRelease   chan struct{}
	downloadRelease chan struct{}
	results         []subtitle.Candidate
	searchErr       error
	cached          subtitle.Cached
	downloadErr     error

	mu       sync.Mutex
	searches []string
	done     int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		searchRelease:   make(chan struct{}),
		downloadRelease: make(chan struct{}),
	}
}

func (r *fakeRepo) Search(ctx context.Context, apiKey, userAgent, title string) ([]subtitle.Candidate, error) {
	r.mu.Lock()
	r.searches = append(r.searches, title)
	r.mu.Unlock()
	defer r.finish()

	select {
	case <-r.searchRelease:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return r.results, r.searchErr
}

func (r *fakeRepo) DownloadAndCache(ctx context.Context, apiKey, userAgent string, candidate subtitle.Candidate, mediaID string) (subtitle.Cached, error) {
	defer r.finish()
	<-r.downloadRelease
	return r.cached, r.downloadErr
}

func (r *fakeRepo) finish() {
	r.mu.Lock()
	r.done++
	r.mu.Unlock()
}

func (r *fakeRepo) doneCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

type fakeSwitcher struct {
	mu    sync.Mutex
	calls []int
}

func (s *fakeSwitcher) SwitchChannel(ctx context.Context, direction int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, direction)
	return true
}

var errBoom = errors.New("boom")
