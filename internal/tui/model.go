// Package tui is the terminal input layer of a playback session. It maps keys
// to coordinator actions and renders a status line with the open dialog.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justchokingaround/tvsession/internal/player"
	"github.com/justchokingaround/tvsession/internal/session"
	"github.com/justchokingaround/tvsession/internal/stream"
	"github.com/justchokingaround/tvsession/internal/subtitle"
	"github.com/justchokingaround/tvsession/internal/tui/styles"
)

// Controller is the part of the session coordinator the TUI drives
type Controller interface {
	Events() <-chan session.Event
	Snapshot() session.Snapshot

	ToggleSubtitles(ctx context.Context) (subtitle.ToggleAction, error)
	SetSubtitleOffset(ctx context.Context, offsetMs int64) error
	SearchSubtitles(query string) bool
	DownloadSubtitle(candidate subtitle.Candidate) bool

	OpenDialog(ctx context.Context, m session.Modal) bool
	HasModalOpen() bool
	SetPopoverOpen(open bool)
	Back() session.BackResult

	SwitchChannel(ctx context.Context, direction int) bool
	CycleResize(ctx context.Context) session.ResizeMode
	PlayNextNow() bool
	DismissNextOverlay()

	AudioTracks(ctx context.Context) ([]player.Track, error)
	VideoTracks(ctx context.Context) ([]player.Track, error)
	SelectAudioTrack(ctx context.Context, t player.Track) error
	SelectVideoTrack(ctx context.Context, t player.Track) error
	SetAudioBoost(ctx context.Context, db int) error
	SetPlaybackSpeed(ctx context.Context, speed float64) error
}

// Outcome is how the TUI ended
type Outcome int

const (
	// OutcomeExit means the user left playback
	OutcomeExit Outcome = iota
	// OutcomeAdvance means the session advanced to the next episode
	OutcomeAdvance
)

// eventMsg wraps a coordinator event
type eventMsg session.Event

// errMsg reports a failed action
type errMsg struct{ err error }

// Model is the bubbletea model for one playback session
type Model struct {
	ctx  context.Context
	ctrl Controller
	keys KeyMap
	help help.Model

	snap    session.Snapshot
	notice  string
	err     error
	outcome Outcome

	// dialog list state, rebuilt whenever the open dialog changes
	listFor session.Modal
	tracks  []player.Track
	cursor  int
	input   textinput.Model

	width int
}

// New creates the model for a started session
func New(ctx context.Context, ctrl Controller) Model {
	ti := textinput.New()
	ti.Placeholder = "Title, episode or release..."
	ti.Prompt = "> "
	ti.CharLimit = 200
	ti.PromptStyle = styles.SubtitleStyle

	h := help.New()
	h.Styles.ShortKey = styles.HelpStyle
	h.Styles.ShortDesc = styles.HelpStyle

	return Model{
		ctx:   ctx,
		ctrl:  ctrl,
		keys:  DefaultKeyMap(),
		help:  h,
		snap:  ctrl.Snapshot(),
		input: ti,
		width: 80,
	}
}

// Outcome reports how the session ended
func (m Model) Outcome() Outcome {
	return m.outcome
}

// waitForEvent blocks on the coordinator's event channel
func waitForEvent(ch <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-ch)
	}
}

func (m Model) Init() tea.Cmd {
	return waitForEvent(m.ctrl.Events())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case eventMsg:
		next := waitForEvent(m.ctrl.Events())
		switch msg.Type {
		case session.EventExit:
			m.outcome = OutcomeExit
			return m, tea.Quit
		case session.EventAdvance:
			m.outcome = OutcomeAdvance
			return m, tea.Quit
		case session.EventNotice:
			m.notice = msg.Notice
		}
		cmd := m.sync(msg.Snapshot)
		return m, tea.Batch(next, cmd)

	case tracksMsg:
		if msg.modal != m.snap.Modal {
			return m, nil
		}
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.tracks = msg.tracks
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.outcome = OutcomeExit
			return m, tea.Quit
		}
		m.err = nil
		if m.snap.Modal != session.ModalNone {
			return m.handleDialogKey(msg)
		}
		return m.handlePlaybackKey(msg)
	}
	return m, nil
}

// refresh pulls the latest snapshot after a synchronous action
func (m *Model) refresh() tea.Cmd {
	return m.sync(m.ctrl.Snapshot())
}

// sync adopts snap and resets the dialog list when the open dialog changed
func (m *Model) sync(snap session.Snapshot) tea.Cmd {
	prev := m.listFor
	m.snap = snap
	if snap.Modal == prev {
		return nil
	}

	m.listFor = snap.Modal
	m.tracks = nil
	m.cursor = 0
	if prev == session.ModalSubtitleSearch {
		m.input.Blur()
	}

	switch {
	case snap.Modal == session.ModalSubtitleSearch:
		m.input.SetValue(snap.Dialog.Query)
		m.input.CursorEnd()
		return m.input.Focus()
	case needsTracks(snap.Modal):
		return fetchTracks(m.ctx, m.ctrl, snap.Modal)
	}
	return nil
}

func (m Model) handlePlaybackKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx := m.ctx
	switch {
	case key.Matches(msg, m.keys.Back):
		if m.ctrl.Back() == session.BackExit {
			m.outcome = OutcomeExit
			return m, tea.Quit
		}
	case key.Matches(msg, m.keys.ToggleSubtitles):
		if _, err := m.ctrl.ToggleSubtitles(ctx); err != nil {
			m.err = err
		}
	case key.Matches(msg, m.keys.SubtitleOptions):
		m.ctrl.OpenDialog(ctx, session.ModalSubtitleOptions)
	case key.Matches(msg, m.keys.SearchSubtitles):
		m.ctrl.OpenDialog(ctx, session.ModalSubtitleSearch)
	case key.Matches(msg, m.keys.AudioTrack):
		m.ctrl.OpenDialog(ctx, session.ModalAudioTrack)
	case key.Matches(msg, m.keys.AudioBoost):
		m.ctrl.OpenDialog(ctx, session.ModalAudioBoost)
	case key.Matches(msg, m.keys.Settings):
		m.ctrl.OpenDialog(ctx, session.ModalPlaybackSettings)
	case key.Matches(msg, m.keys.OffsetLater):
		m.err = m.ctrl.SetSubtitleOffset(ctx, m.snap.SubtitleOffset.Milliseconds()+offsetStepMs)
	case key.Matches(msg, m.keys.OffsetEarlier):
		m.err = m.ctrl.SetSubtitleOffset(ctx, m.snap.SubtitleOffset.Milliseconds()-offsetStepMs)
	case key.Matches(msg, m.keys.Resize):
		m.ctrl.CycleResize(ctx)
	case key.Matches(msg, m.keys.ChannelUp):
		m.ctrl.SwitchChannel(ctx, 1)
	case key.Matches(msg, m.keys.ChannelDown):
		m.ctrl.SwitchChannel(ctx, -1)
	case key.Matches(msg, m.keys.PlayNext):
		if m.ctrl.PlayNextNow() {
			m.outcome = OutcomeAdvance
			return m, tea.Quit
		}
	case key.Matches(msg, m.keys.DismissNext):
		m.ctrl.DismissNextOverlay()
	case key.Matches(msg, m.keys.Popover):
		m.ctrl.SetPopoverOpen(!m.snap.PopoverOpen)
	default:
		return m, nil
	}
	return m, m.refresh()
}

func (m Model) handleDialogKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The dialog on screen may have closed since the last event, e.g. when a
	// download finished. The key then only catches the view up.
	if !m.ctrl.HasModalOpen() {
		return m, m.refresh()
	}

	searching := m.snap.Modal == session.ModalSubtitleSearch
	items := dialogItems(m.snap, m.tracks)

	switch {
	case msg.Type == tea.KeyEsc, !searching && key.Matches(msg, m.keys.Back):
		m.ctrl.Back()
		return m, m.refresh()
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(items)-1 {
			m.cursor++
		}
		return m, nil
	case key.Matches(msg, m.keys.Select):
		if searching && m.wantsSearch() {
			m.ctrl.SearchSubtitles(m.input.Value())
			return m, m.refresh()
		}
		if m.cursor >= len(items) {
			return m, nil
		}
		if err := items[m.cursor].run(m.ctx, m.ctrl); err != nil {
			m.err = err
		}
		return m, m.refresh()
	}

	if searching {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// wantsSearch reports whether enter in the search dialog should run a new
// query rather than download the highlighted result
func (m Model) wantsSearch() bool {
	d := m.snap.Dialog
	if d.Status != session.DialogReady || len(d.Results) == 0 {
		return true
	}
	return strings.TrimSpace(m.input.Value()) != strings.TrimSpace(d.Query)
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.statusLine())
	b.WriteString("\n")

	if ne := m.snap.NextEpisode; ne.Armed && ne.OverlayVisible {
		b.WriteString(styles.CountdownStyle.Render(fmt.Sprintf("Next episode in %ds", ne.CountdownSeconds)))
		b.WriteString(styles.HelpStyle.Render("  n play now  d hide"))
		b.WriteString("\n")
	}

	if m.snap.PopoverOpen {
		b.WriteString(styles.PopoverStyle.Render(m.help.FullHelpView(m.keys.FullHelp())))
		b.WriteString("\n")
	}

	if m.snap.Modal != session.ModalNone {
		b.WriteString(m.dialogView())
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString(styles.ErrorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	} else if m.notice != "" {
		b.WriteString(styles.FooterStyle.Render(m.notice))
		b.WriteString("\n")
	}

	if m.snap.Modal != session.ModalNone {
		b.WriteString(m.help.ShortHelpView(m.keys.dialogHelp()))
	} else {
		b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	}
	return b.String()
}

// statusLine renders the title and the current session settings on one line
func (m Model) statusLine() string {
	s := m.snap
	segments := []string{styles.StatusSegmentStyle.Render("sub " + subtitleStatus(s))}
	if s.SubtitleOffset != 0 {
		segments = append(segments, styles.StatusActiveStyle.Render(fmt.Sprintf("delay %+dms", s.SubtitleOffset.Milliseconds())))
	}
	if s.Speed != 0 && s.Speed != 1.0 {
		segments = append(segments, styles.StatusActiveStyle.Render(fmt.Sprintf("%gx", s.Speed)))
	}
	if s.AudioBoostDB > 0 {
		segments = append(segments, styles.StatusActiveStyle.Render(fmt.Sprintf("boost +%ddB", s.AudioBoostDB)))
	}
	segments = append(segments, styles.StatusSegmentStyle.Render(s.ResizeMode.String()))
	right := lipgloss.JoinHorizontal(lipgloss.Top, segments...)

	kind := styles.KindBadgeStyle.Render(kindLabel(s.Media.Kind))
	room := m.width - lipgloss.Width(right) - lipgloss.Width(kind) - 2
	title := styles.TitleStyle.Render(truncateWithWidth(s.Media.Title, room))
	return lipgloss.JoinHorizontal(lipgloss.Top, title, kind, right)
}

func (m Model) dialogView() string {
	var b strings.Builder
	b.WriteString(styles.SubtitleStyle.Render(dialogTitle(m.snap.Modal)))
	b.WriteString("\n")

	if m.snap.Modal == session.ModalSubtitleSearch {
		b.WriteString(m.input.View())
		b.WriteString("\n")
		switch d := m.snap.Dialog; d.Status {
		case session.DialogLoading:
			b.WriteString(styles.HelpStyle.Render("Searching..."))
			b.WriteString("\n")
		case session.DialogFailed:
			b.WriteString(styles.ErrorStyle.Render(d.Message))
			b.WriteString("\n")
		default:
			if d.Message != "" {
				b.WriteString(styles.HelpStyle.Render(d.Message))
				b.WriteString("\n")
			}
		}
	}

	items := dialogItems(m.snap, m.tracks)
	if needsTracks(m.snap.Modal) && m.tracks == nil {
		b.WriteString(styles.HelpStyle.Render("Loading tracks..."))
	}
	maxWidth := m.width - 8
	for i, it := range items {
		label := truncateWithWidth(it.label, maxWidth)
		switch {
		case i == m.cursor:
			b.WriteString(styles.SelectedItemStyle.Render("> " + label))
		case it.current:
			b.WriteString(styles.ActiveItemStyle.Render("* " + label))
		default:
			b.WriteString(styles.NormalItemStyle.Render("  " + label))
		}
		if i < len(items)-1 {
			b.WriteString("\n")
		}
	}
	return styles.PopupStyle.Render(b.String())
}

func subtitleStatus(s session.Snapshot) string {
	if !s.SubtitlesEnabled {
		return "off"
	}
	if a, ok := s.Subtitle.Get(); ok {
		return a.Label
	}
	return "on"
}

func kindLabel(k stream.Kind) string {
	switch k {
	case stream.KindLive:
		return "LIVE"
	case stream.KindMovie:
		return "MOVIE"
	case stream.KindSeries:
		return "EPISODE"
	default:
		return "?"
	}
}

// Run drives the session from the terminal until the user leaves or the
// session advances. Cancelling ctx ends the program.
func Run(ctx context.Context, ctrl Controller) (Outcome, error) {
	final, err := tea.NewProgram(New(ctx, ctrl), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		if ctx.Err() != nil {
			return OutcomeExit, nil
		}
		return OutcomeExit, fmt.Errorf("tui: %w", err)
	}
	if m, ok := final.(Model); ok {
		return m.Outcome(), nil
	}
	return OutcomeExit, nil
}
