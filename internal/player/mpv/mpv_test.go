package mpv

import (
	"context"
	"os"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justchokingaround/tvsession/internal/config"
	"github.com/justchokingaround/tvsession/internal/player"
)

func newTestPlayer(cfg *config.PlayerConfig) *MPVPlayer {
	p := NewMPVPlayer(cfg, false, nil)
	p.ipcConfig = &IPCConfig{Type: IPCUnixSocket, Address: "/tmp/test.sock", IsSocket: true}
	return p
}

func TestNewMPVPlayer(t *testing.T) {
	p := NewMPVPlayer(&config.PlayerConfig{LoadUserConfig: true, MPVArgs: []string{"--hwdec=auto"}}, false, nil)
	assert.Equal(t, player.StateStopped, p.State())
	assert.True(t, p.loadUserConfig)
	assert.Equal(t, []string{"--hwdec=auto"}, p.extraArgs)
}

func TestGetIPCConfig(t *testing.T) {
	tests := []struct {
		platform     Platform
		expectedType IPCType
		isSocket     bool
	}{
		{PlatformLinux, IPCUnixSocket, true},
		{PlatformMac, IPCUnixSocket, true},
		{PlatformWSL, IPCUnixSocket, true},
		{PlatformWindows, IPCNamedPipe, false},
	}

	for _, tt := range tests {
		cfg, err := GetIPCConfig(tt.platform)
		require.NoError(t, err)
		assert.Equal(t, tt.expectedType, cfg.Type)
		assert.Equal(t, tt.isSocket, cfg.IsSocket)
		assert.Contains(t, cfg.Address, ipcPrefix)
	}

	a, err := GetIPCConfig(PlatformLinux)
	require.NoError(t, err)
	b, err := GetIPCConfig(PlatformLinux)
	require.NoError(t, err)
	assert.NotEqual(t, a.Address, b.Address)
	assert.True(t, strings.HasPrefix(a.Address, os.TempDir()))
	assert.True(t, strings.HasSuffix(a.Address, ".sock"))

	win, err := GetIPCConfig(PlatformWindows)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(win.Address, `\\.\pipe\tvsession-mpv-`))
}

func TestGetMPVExecutable(t *testing.T) {
	assert.Equal(t, "mpv", GetMPVExecutable(PlatformLinux))
	assert.Equal(t, "mpv", GetMPVExecutable(PlatformMac))
	assert.Equal(t, "mpv", GetMPVExecutable(PlatformWSL))
	assert.Equal(t, "mpv.exe", GetMPVExecutable(PlatformWindows))
}

func TestDetectPlatform(t *testing.T) {
	platform := DetectPlatform()
	switch runtime.GOOS {
	case "windows":
		assert.Equal(t, PlatformWindows, platform)
	case "darwin":
		assert.Equal(t, PlatformMac, platform)
	case "linux":
		if isWSL() {
			assert.Equal(t, PlatformWSL, platform)
		} else {
			assert.Equal(t, PlatformLinux, platform)
		}
	}
}

func TestGetGopvConnectionString(t *testing.T) {
	assert.Equal(t, "tcp://127.0.0.1:9000", GetGopvConnectionString(&IPCConfig{Type: IPCTCP, Address: "127.0.0.1:9000"}))
	assert.Equal(t, "/tmp/x.sock", GetGopvConnectionString(&IPCConfig{Type: IPCUnixSocket, Address: "/tmp/x.sock"}))
}

func TestBuildMPVArgs(t *testing.T) {
	tests := []struct {
		name     string
		options  player.PlayOptions
		expected []string
	}{
		{
			name:     "basic playback",
			expected: []string{"--input-ipc-server=/tmp/test.sock", "--idle=yes", "--keep-open=yes", "--no-config"},
		},
		{
			name:     "resume position and speed",
			options:  player.PlayOptions{StartTime: 90 * time.Second, Speed: 1.5},
			expected: []string{"--start=90", "--speed=1.5"},
		},
		{
			name: "subtitle with delay",
			options: player.PlayOptions{
				SubtitleURL:   "file:///cache/a.srt",
				SubtitleLang:  "en",
				SubtitleDelay: -500 * time.Millisecond,
			},
			expected: []string{"--sub-file=file:///cache/a.srt", "--slang=en", "--sub-delay=-0.5"},
		},
		{
			name:     "title and user agent",
			options:  player.PlayOptions{Title: "The Show S01E03", UserAgent: "tvsession v1.0"},
			expected: []string{"--force-media-title=The Show S01E03", "--user-agent=tvsession v1.0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPlayer(nil)
			args := p.buildMPVArgs("http://example.com/movie/u/p/42.mp4", tt.options)

			for _, want := range tt.expected {
				assert.Contains(t, args, want)
			}
			assert.Equal(t, "http://example.com/movie/u/p/42.mp4", args[len(args)-1], "URL must be last")
		})
	}

	t.Run("user config and extra args", func(t *testing.T) {
		p := newTestPlayer(&config.PlayerConfig{LoadUserConfig: true, MPVArgs: []string{"--hwdec=auto"}})
		args := p.buildMPVArgs("u", player.PlayOptions{MPVArgs: []string{"--mute=yes"}})

		assert.NotContains(t, args, "--no-config")
		assert.Equal(t, []string{"--hwdec=auto", "--mute=yes", "u"}, args[len(args)-3:])
	})
}

func TestParseTrackList(t *testing.T) {
	raw := []interface{}{
		map[string]interface{}{"id": float64(1), "type": "video", "codec": "h264", "demux-w": float64(1920), "demux-h": float64(1080), "selected": true},
		map[string]interface{}{"id": float64(1), "type": "audio", "lang": "eng", "title": "Stereo", "demux-channel-count": float64(2)},
		map[string]interface{}{"id": float64(2), "type": "audio", "lang": "deu"},
		map[string]interface{}{"id": float64(1), "type": "sub", "lang": "eng"},
		map[string]interface{}{"id": float64(2), "type": "sub", "external": true},
		map[string]interface{}{"id": float64(9), "type": "unknown"},
		"garbage",
	}

	tracks := parseTrackList(raw)
	require.Len(t, tracks, 5)

	assert.Equal(t, player.TrackVideo, tracks[0].Kind)
	assert.Equal(t, 1920, tracks[0].Width)
	assert.True(t, tracks[0].Selected)

	assert.Equal(t, "eng", tracks[1].Language)
	assert.Equal(t, 2, tracks[1].Channels)
	assert.Equal(t, 2, tracks[2].Index)

	assert.False(t, tracks[3].External)
	assert.True(t, tracks[4].External)

	assert.Nil(t, parseTrackList("not a list"))
}

func TestBoostFilter(t *testing.T) {
	assert.Equal(t, "@boost:lavfi=[volume=6dB]", boostFilter(6))
}

func TestResizeProperties(t *testing.T) {
	for _, mode := range []string{"fit", "stretch", "zoom", "one-to-one"} {
		assert.Len(t, resizeProperties[mode], 3, mode)
	}
	err := NewMPVPlayer(nil, false, nil).SetResizeMode(context.Background(), "diagonal")
	assert.Error(t, err)
}

func TestCommandsWithoutMPV(t *testing.T) {
	p := NewMPVPlayer(nil, false, nil)
	ctx := context.Background()

	_, err := p.GetProgress(ctx)
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.ErrorIs(t, p.AddSubtitle(ctx, "file:///a.srt", "en", "EN", "application/x-subrip"), ErrNotRunning)
	assert.ErrorIs(t, p.SetSubtitlesEnabled(ctx, false), ErrNotRunning)
	assert.ErrorIs(t, p.ClearExternalSubtitles(ctx), ErrNotRunning)
	_, err = p.HasEmbeddedSubtitles(ctx)
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.ErrorIs(t, p.SetSpeed(ctx, 1.25), ErrNotRunning)
	assert.NoError(t, p.Stop(ctx))

	boost, err := p.AudioBoostDB(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, boost)
}
