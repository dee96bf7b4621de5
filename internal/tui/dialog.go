package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"

	"github.com/justchokingaround/tvsession/internal/audio"
	"github.com/justchokingaround/tvsession/internal/player"
	"github.com/justchokingaround/tvsession/internal/session"
	"github.com/justchokingaround/tvsession/internal/subtitle"
)

const offsetStepMs = 250

var speedPresets = []float64{0.25, 0.5, 0.75, 1.0, 1.25, 1.5, 1.75, 2.0, 3.0, 4.0}

// item is one row of a dialog list
type item struct {
	label   string
	current bool
	run     func(ctx context.Context, c Controller) error
}

// tracksMsg carries the track list fetched for a dialog
type tracksMsg struct {
	modal  session.Modal
	tracks []player.Track
	err    error
}

// fetchTracks loads the tracks a track dialog lists
func fetchTracks(ctx context.Context, c Controller, m session.Modal) tea.Cmd {
	return func() tea.Msg {
		var (
			tracks []player.Track
			err    error
		)
		if m == session.ModalResolution {
			tracks, err = c.VideoTracks(ctx)
		} else {
			tracks, err = c.AudioTracks(ctx)
		}
		return tracksMsg{modal: m, tracks: tracks, err: err}
	}
}

func openItem(label string, m session.Modal) item {
	return item{
		label: label,
		run: func(ctx context.Context, c Controller) error {
			if !c.OpenDialog(ctx, m) {
				return fmt.Errorf("cannot open %s", m)
			}
			return nil
		},
	}
}

func offsetItem(label string, offsetMs int64) item {
	return item{
		label: label,
		run: func(ctx context.Context, c Controller) error {
			return c.SetSubtitleOffset(ctx, offsetMs)
		},
	}
}

// dialogItems builds the rows for the open dialog from the snapshot and any
// tracks fetched for it
func dialogItems(snap session.Snapshot, tracks []player.Track) []item {
	switch snap.Modal {
	case session.ModalSubtitleOptions:
		offset := snap.SubtitleOffset.Milliseconds()
		toggle := "Turn subtitles off"
		if !snap.SubtitlesEnabled {
			toggle = "Turn subtitles on"
		}
		return []item{
			openItem("Search subtitles online", session.ModalSubtitleSearch),
			{
				label: toggle,
				run: func(ctx context.Context, c Controller) error {
					_, err := c.ToggleSubtitles(ctx)
					return err
				},
			},
			offsetItem(fmt.Sprintf("Delay +%dms", offsetStepMs), offset+offsetStepMs),
			offsetItem(fmt.Sprintf("Delay -%dms", offsetStepMs), offset-offsetStepMs),
			offsetItem("Reset delay", 0),
		}

	case session.ModalSubtitleSearch:
		return lo.Map(snap.Dialog.Results, func(cand subtitle.Candidate, _ int) item {
			return item{
				label:   candidateLabel(cand),
				current: cand.ID == snap.Dialog.Downloading,
				run: func(_ context.Context, c Controller) error {
					if !c.DownloadSubtitle(cand) {
						return errors.New("download not started")
					}
					return nil
				},
			}
		})

	case session.ModalPlaybackSettings:
		return []item{
			openItem(fmt.Sprintf("Speed (%gx)", snap.Speed), session.ModalPlaybackSpeed),
			openItem("Resolution", session.ModalResolution),
		}

	case session.ModalPlaybackSpeed:
		return lo.Map(speedPresets, func(speed float64, _ int) item {
			return item{
				label:   fmt.Sprintf("%gx", speed),
				current: speed == snap.Speed,
				run: func(ctx context.Context, c Controller) error {
					return c.SetPlaybackSpeed(ctx, speed)
				},
			}
		})

	case session.ModalAudioBoost:
		return lo.Map(audio.BoostSteps(), func(db int, _ int) item {
			label := "Off"
			if db > 0 {
				label = fmt.Sprintf("+%d dB", db)
			}
			return item{
				label:   label,
				current: db == snap.AudioBoostDB,
				run: func(ctx context.Context, c Controller) error {
					return c.SetAudioBoost(ctx, db)
				},
			}
		})

	case session.ModalAudioTrack:
		return lo.Map(tracks, func(t player.Track, _ int) item {
			return item{
				label:   audio.TrackLabel(t),
				current: t.Selected,
				run: func(ctx context.Context, c Controller) error {
					return c.SelectAudioTrack(ctx, t)
				},
			}
		})

	case session.ModalResolution:
		auto := item{
			label:   "Auto",
			current: !snap.VideoOverride,
			run: func(ctx context.Context, c Controller) error {
				return c.SelectVideoTrack(ctx, player.Track{Kind: player.TrackVideo, Index: -1})
			},
		}
		rows := lo.Map(tracks, func(t player.Track, _ int) item {
			return item{
				label:   audio.TrackLabel(t),
				current: snap.VideoOverride && t.Selected,
				run: func(ctx context.Context, c Controller) error {
					return c.SelectVideoTrack(ctx, t)
				},
			}
		})
		return append([]item{auto}, rows...)
	}
	return nil
}

// needsTracks reports whether the dialog lists engine tracks
func needsTracks(m session.Modal) bool {
	return m == session.ModalAudioTrack || m == session.ModalResolution
}

func dialogTitle(m session.Modal) string {
	switch m {
	case session.ModalSubtitleOptions:
		return "Subtitles"
	case session.ModalSubtitleSearch:
		return "Search subtitles"
	case session.ModalAudioTrack:
		return "Audio track"
	case session.ModalAudioBoost:
		return "Audio boost"
	case session.ModalPlaybackSettings:
		return "Playback settings"
	case session.ModalPlaybackSpeed:
		return "Playback speed"
	case session.ModalResolution:
		return "Resolution"
	default:
		return ""
	}
}

func candidateLabel(c subtitle.Candidate) string {
	parts := []string{strings.ToUpper(c.Language), c.FileName}
	if c.HearingImpaired {
		parts = append(parts, "[HI]")
	}
	if c.Downloads > 0 {
		parts = append(parts, fmt.Sprintf("(%d downloads)", c.Downloads))
	}
	return strings.Join(lo.Compact(parts), " ")
}
