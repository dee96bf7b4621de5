package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResizeMode_NextWraps(t *testing.T) {
	m := ResizeFit
	seen := []ResizeMode{m}
	for i := 0; i < resizeModeCount; i++ {
		m = m.Next()
		seen = append(seen, m)
	}
	assert.Equal(t, []ResizeMode{ResizeFit, ResizeStretch, ResizeZoom, ResizeOneToOne, ResizeFit}, seen)
}

func TestParseResizeMode(t *testing.T) {
	tests := map[string]ResizeMode{
		"":           ResizeFit,
		"Fit":        ResizeFit,
		"stretch":    ResizeStretch,
		" zoom ":     ResizeZoom,
		"1:1":        ResizeOneToOne,
		"one-to-one": ResizeOneToOne,
	}
	for in, want := range tests {
		got, err := ParseResizeMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
		assert.Equal(t, want, mustParse(t, got.String()))
	}

	_, err := ParseResizeMode("diagonal")
	assert.Error(t, err)
}

func mustParse(t *testing.T, s string) ResizeMode {
	t.Helper()
	m, err := ParseResizeMode(s)
	require.NoError(t, err)
	return m
}
