package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justchokingaround/tvsession/internal/player"
	"github.com/justchokingaround/tvsession/internal/session"
	"github.com/justchokingaround/tvsession/internal/stream"
	"github.com/justchokingaround/tvsession/internal/subtitle"
)

type fakeController struct {
	snap     session.Snapshot
	events   chan session.Event
	calls    []string
	queries  []string
	offsets  []int64
	speeds   []float64
	video    []player.Track
	tracks   []player.Track
	next     bool
	toggleEr error
}

func newFakeController() *fakeController {
	return &fakeController{
		events: make(chan session.Event, 8),
		snap: session.Snapshot{
			Media:            session.Media{ID: "series:1", Title: "Severance S01E03", Kind: stream.KindSeries},
			SubtitlesEnabled: true,
			Speed:            1.0,
		},
	}
}

func (f *fakeController) Events() <-chan session.Event { return f.events }
func (f *fakeController) Snapshot() session.Snapshot   { return f.snap }

func (f *fakeController) ToggleSubtitles(ctx context.Context) (subtitle.ToggleAction, error) {
	f.calls = append(f.calls, "toggle")
	if f.toggleEr != nil {
		return 0, f.toggleEr
	}
	f.snap.SubtitlesEnabled = !f.snap.SubtitlesEnabled
	return subtitle.ToggleDisableTextTracks, nil
}

func (f *fakeController) SetSubtitleOffset(ctx context.Context, offsetMs int64) error {
	f.offsets = append(f.offsets, offsetMs)
	f.snap.SubtitleOffset = time.Duration(offsetMs) * time.Millisecond
	return nil
}

func (f *fakeController) SearchSubtitles(query string) bool {
	f.queries = append(f.queries, query)
	f.snap.Dialog.Status = session.DialogLoading
	f.snap.Dialog.Query = query
	return true
}

func (f *fakeController) DownloadSubtitle(c subtitle.Candidate) bool {
	f.calls = append(f.calls, "download:"+c.ID)
	return true
}

func (f *fakeController) OpenDialog(ctx context.Context, m session.Modal) bool {
	f.calls = append(f.calls, "open:"+m.String())
	f.snap.Modal = m
	return true
}

func (f *fakeController) SetPopoverOpen(open bool) {
	f.snap.PopoverOpen = open
}

func (f *fakeController) HasModalOpen() bool {
	return f.snap.Modal != session.ModalNone
}

func (f *fakeController) Back() session.BackResult {
	f.calls = append(f.calls, "back")
	switch {
	case f.snap.Modal != session.ModalNone:
		f.snap.Modal = f.snap.Modal.Parent()
		return session.BackClosedModal
	case f.snap.PopoverOpen:
		f.snap.PopoverOpen = false
		return session.BackClosedPopover
	default:
		return session.BackExit
	}
}

func (f *fakeController) SwitchChannel(ctx context.Context, direction int) bool {
	f.calls = append(f.calls, map[int]string{1: "channel:up", -1: "channel:down"}[direction])
	return true
}

func (f *fakeController) CycleResize(ctx context.Context) session.ResizeMode {
	f.snap.ResizeMode = f.snap.ResizeMode.Next()
	return f.snap.ResizeMode
}

func (f *fakeController) PlayNextNow() bool {
	f.calls = append(f.calls, "next")
	return f.next
}

func (f *fakeController) DismissNextOverlay() {
	f.snap.NextEpisode.OverlayVisible = false
}

func (f *fakeController) AudioTracks(ctx context.Context) ([]player.Track, error) {
	return f.tracks, nil
}

func (f *fakeController) VideoTracks(ctx context.Context) ([]player.Track, error) {
	return f.tracks, nil
}

func (f *fakeController) SelectAudioTrack(ctx context.Context, t player.Track) error {
	f.calls = append(f.calls, "audio")
	f.snap.Modal = session.ModalNone
	return nil
}

func (f *fakeController) SelectVideoTrack(ctx context.Context, t player.Track) error {
	f.video = append(f.video, t)
	f.snap.Modal = session.ModalNone
	return nil
}

func (f *fakeController) SetAudioBoost(ctx context.Context, db int) error {
	f.snap.AudioBoostDB = db
	f.snap.Modal = session.ModalNone
	return nil
}

func (f *fakeController) SetPlaybackSpeed(ctx context.Context, speed float64) error {
	f.speeds = append(f.speeds, speed)
	f.snap.Speed = speed
	f.snap.Modal = session.ModalNone
	return nil
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestPlaybackKeys(t *testing.T) {
	ctrl := newFakeController()
	m := New(context.Background(), ctrl)

	m, _ = press(t, m, runes("t"))
	assert.False(t, m.snap.SubtitlesEnabled)

	m, _ = press(t, m, runes("+"))
	m, _ = press(t, m, runes("+"))
	m, _ = press(t, m, runes("-"))
	assert.Equal(t, []int64{250, 500, 250}, ctrl.offsets)
	assert.Equal(t, 250*time.Millisecond, m.snap.SubtitleOffset)

	m, _ = press(t, m, runes("r"))
	assert.Equal(t, session.ResizeStretch, m.snap.ResizeMode)

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyUp})
	_, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, []string{"toggle", "channel:up", "channel:down"}, ctrl.calls)
}

func TestToggleErrorIsShown(t *testing.T) {
	ctrl := newFakeController()
	ctrl.toggleEr = errors.New("session not started")
	m := New(context.Background(), ctrl)

	m, _ = press(t, m, runes("t"))
	assert.Contains(t, m.View(), "session not started")
}

func TestBackClosesPopoverThenExits(t *testing.T) {
	ctrl := newFakeController()
	m := New(context.Background(), ctrl)

	m, _ = press(t, m, runes("o"))
	assert.True(t, m.snap.PopoverOpen)

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.snap.PopoverOpen)
	assert.False(t, isQuit(cmd))

	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, isQuit(cmd))
	assert.Equal(t, OutcomeExit, m.Outcome())
}

func TestSubtitleSearchFlow(t *testing.T) {
	ctrl := newFakeController()
	m := New(context.Background(), ctrl)

	m, _ = press(t, m, runes("s"))
	assert.Equal(t, session.ModalSubtitleOptions, m.snap.Modal)

	// first option opens the search dialog
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, session.ModalSubtitleSearch, m.snap.Modal)

	// letters bound to playback actions are typed into the query
	for _, r := range "sat" {
		m, _ = press(t, m, runes(string(r)))
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []string{"sat"}, ctrl.queries)
	assert.Contains(t, m.View(), "Searching...")

	ctrl.snap.Dialog = session.SubtitleDialog{
		Status: session.DialogReady,
		Query:  "sat",
		Results: []subtitle.Candidate{
			{ID: "1", FileName: "a.srt", Language: "en"},
			{ID: "2", FileName: "b.srt", Language: "de"},
		},
	}
	m, _ = press(t, m, eventMsg{Type: session.EventState, Snapshot: ctrl.snap})
	assert.Contains(t, m.View(), "a.srt")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, ctrl.calls, "download:2")

	// esc returns to the options dialog
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, session.ModalSubtitleOptions, m.snap.Modal)
}

func TestDialogClosedBehindViewDoesNotExit(t *testing.T) {
	ctrl := newFakeController()
	ctrl.snap.Modal = session.ModalSubtitleSearch
	m := New(context.Background(), ctrl)
	require.Equal(t, session.ModalSubtitleSearch, m.snap.Modal)

	// A finished download closes the dialog before its event arrives
	ctrl.snap.Modal = session.ModalNone

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, isQuit(cmd))
	assert.NotContains(t, ctrl.calls, "back")
	assert.Equal(t, session.ModalNone, m.snap.Modal)

	// The next back press is a real one
	_, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, isQuit(cmd))
	assert.Contains(t, ctrl.calls, "back")
}

func TestSpeedDialog(t *testing.T) {
	ctrl := newFakeController()
	m := New(context.Background(), ctrl)

	m, _ = press(t, m, runes("p"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, session.ModalPlaybackSpeed, m.snap.Modal)

	// 0.25 0.5 0.75 1.0 1.25
	for i := 0; i < 4; i++ {
		m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []float64{1.25}, ctrl.speeds)
	assert.Equal(t, session.ModalNone, m.snap.Modal)
	assert.Contains(t, m.statusLine(), "1.25x")
}

func TestResolutionDialogTracks(t *testing.T) {
	ctrl := newFakeController()
	ctrl.tracks = []player.Track{{Kind: player.TrackVideo, Index: 1, Width: 1920, Height: 1080, Codec: "h264"}}
	m := New(context.Background(), ctrl)

	m, _ = press(t, m, runes("p"))
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, session.ModalResolution, m.snap.Modal)
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Loading tracks...")

	m, _ = press(t, m, cmd())
	assert.Contains(t, m.View(), "1920x1080")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Len(t, ctrl.video, 1)
	assert.Equal(t, -1, ctrl.video[0].Index)
}

func TestStaleTracksIgnored(t *testing.T) {
	ctrl := newFakeController()
	m := New(context.Background(), ctrl)

	m, _ = press(t, m, tracksMsg{modal: session.ModalAudioTrack, tracks: []player.Track{{Index: 1}}})
	assert.Nil(t, m.tracks)
}

func TestEventsEndProgram(t *testing.T) {
	t.Run("advance", func(t *testing.T) {
		m := New(context.Background(), newFakeController())
		m, cmd := press(t, m, eventMsg{Type: session.EventAdvance})
		assert.True(t, isQuit(cmd))
		assert.Equal(t, OutcomeAdvance, m.Outcome())
	})

	t.Run("exit", func(t *testing.T) {
		m := New(context.Background(), newFakeController())
		m, cmd := press(t, m, eventMsg{Type: session.EventExit})
		assert.True(t, isQuit(cmd))
		assert.Equal(t, OutcomeExit, m.Outcome())
	})

	t.Run("notice", func(t *testing.T) {
		ctrl := newFakeController()
		m := New(context.Background(), ctrl)
		m, _ = press(t, m, eventMsg{Type: session.EventNotice, Notice: "No cached subtitle for this media", Snapshot: ctrl.snap})
		assert.Contains(t, m.View(), "No cached subtitle for this media")
	})
}

func TestPlayNext(t *testing.T) {
	ctrl := newFakeController()
	m := New(context.Background(), ctrl)

	m, cmd := press(t, m, runes("n"))
	assert.False(t, isQuit(cmd))

	ctrl.next = true
	m, cmd = press(t, m, runes("n"))
	assert.True(t, isQuit(cmd))
	assert.Equal(t, OutcomeAdvance, m.Outcome())
}

func TestView(t *testing.T) {
	ctrl := newFakeController()
	ctrl.snap.Subtitle = mo.Some(subtitle.Active{URI: "file:///x.srt", Label: "EN"})
	ctrl.snap.NextEpisode = session.NextEpisodeState{Armed: true, OverlayVisible: true, CountdownSeconds: 12}
	m := New(context.Background(), ctrl)

	view := m.View()
	assert.Contains(t, view, "Severance S01E03")
	assert.Contains(t, view, "EPISODE")
	assert.Contains(t, view, "sub EN")
	assert.Contains(t, view, "Next episode in 12s")

	m, _ = press(t, m, runes("d"))
	assert.NotContains(t, m.View(), "Next episode in")
}

func TestTruncateWithWidth(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{"fits", "Dune", 10, "Dune"},
		{"ascii", "The Expanse", 8, "The E..."},
		{"wide", "進撃の巨人", 7, "進撃..."},
		{"tiny", "Dune", 2, "Du"},
		{"zero", "Dune", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncateWithWidth(tt.text, tt.width))
		})
	}
}

func TestDialogItems(t *testing.T) {
	snap := session.Snapshot{Modal: session.ModalAudioBoost, AudioBoostDB: 4}
	items := dialogItems(snap, nil)
	require.Len(t, items, 11)
	assert.Equal(t, "Off", items[0].label)
	assert.True(t, items[2].current)

	snap = session.Snapshot{Modal: session.ModalResolution, VideoOverride: false}
	items = dialogItems(snap, []player.Track{{Kind: player.TrackVideo, Index: 1, Selected: true}})
	require.Len(t, items, 2)
	assert.Equal(t, "Auto", items[0].label)
	assert.True(t, items[0].current)
	assert.False(t, items[1].current)

	assert.Empty(t, dialogItems(session.Snapshot{}, nil))
}
