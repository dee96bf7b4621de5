package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justchokingaround/tvsession/internal/stream"
)

var testAccount = stream.Account{BaseURL: "iptv.example.com/", Username: "u", Password: "p"}

func TestPlaylistMedia(t *testing.T) {
	pl := newPlaylist(stream.KindSeries, "mkv", []string{"11", "12"}, []string{"Pilot"})

	m := pl.media(testAccount)
	assert.Equal(t, "series:11", m.ID)
	assert.Equal(t, "Pilot", m.Title)
	assert.Equal(t, "http://iptv.example.com/series/u/p/11.mkv", m.URL)
	assert.True(t, m.HasNext)

	require.True(t, pl.next(true))
	m = pl.media(testAccount)
	assert.Equal(t, "Episode 12", m.Title)
	assert.False(t, m.HasNext)

	assert.False(t, pl.next(true))
}

func TestPlaylistStopsWithoutAdvance(t *testing.T) {
	pl := newPlaylist(stream.KindSeries, "", []string{"11", "12"}, nil)
	assert.False(t, pl.next(false))
}

func TestPlaylistSwitchChannel(t *testing.T) {
	pl := newPlaylist(stream.KindLive, "", []string{"101", "102", "103"}, nil)
	assert.False(t, pl.media(testAccount).HasNext)

	interrupted := 0
	pl.bind(func() { interrupted++ })

	require.True(t, pl.SwitchChannel(context.Background(), -1))
	assert.Equal(t, 1, interrupted)
	require.True(t, pl.next(false))
	assert.Equal(t, "live:103", pl.media(testAccount).ID)
	assert.Equal(t, "http://iptv.example.com/live/u/p/103.ts", pl.media(testAccount).URL)

	require.True(t, pl.SwitchChannel(context.Background(), 1))
	require.True(t, pl.next(false))
	assert.Equal(t, "Channel 101", pl.media(testAccount).Title)
}

func TestPlaylistSwitchRejected(t *testing.T) {
	tests := []struct {
		name string
		pl   *playlist
	}{
		{"not live", newPlaylist(stream.KindSeries, "", []string{"1", "2"}, nil)},
		{"single channel", newPlaylist(stream.KindLive, "", []string{"1"}, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, tt.pl.SwitchChannel(context.Background(), 1))
			assert.False(t, tt.pl.next(false))
		})
	}
}
