package clipboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRun struct {
	input string
	name  string
	args  []string
}

func newTestService(command string) (*Service, *[]recordedRun) {
	var runs []recordedRun
	s := NewService(command, nil)
	s.runCommand = func(ctx context.Context, input string, name string, args ...string) error {
		runs = append(runs, recordedRun{input: input, name: name, args: args})
		return nil
	}
	return s, &runs
}

func TestCopyWithCustomCommand(t *testing.T) {
	s, runs := newTestService(`wl-copy --type "text/plain"`)
	s.writeAll = func(string) error {
		t.Fatal("library must not be used when a command is configured")
		return nil
	}

	require.NoError(t, s.Copy(context.Background(), "http://host/live/u/p/1.ts"))
	require.Len(t, *runs, 1)
	assert.Equal(t, "wl-copy", (*runs)[0].name)
	assert.Equal(t, []string{"--type", "text/plain"}, (*runs)[0].args)
	assert.Equal(t, "http://host/live/u/p/1.ts", (*runs)[0].input)
}

func TestCopyUsesLibraryFirst(t *testing.T) {
	s, runs := newTestService("")
	var copied string
	s.writeAll = func(text string) error {
		copied = text
		return nil
	}

	require.NoError(t, s.Copy(context.Background(), "url"))
	assert.Equal(t, "url", copied)
	assert.Empty(t, *runs)
}

func TestCopyWithoutAnyClipboard(t *testing.T) {
	s, runs := newTestService("")
	s.writeAll = func(string) error { return errors.New("no xclip") }
	s.lookPath = func(string) (string, error) { return "", errors.New("not found") }

	err := s.Copy(context.Background(), "url")
	assert.ErrorIs(t, err, ErrNoClipboard)
	assert.Empty(t, *runs)
}

func TestCopyCommandFailure(t *testing.T) {
	s := NewService("false", nil)
	s.runCommand = func(ctx context.Context, input string, name string, args ...string) error {
		return errors.New("exit status 1")
	}
	assert.Error(t, s.Copy(context.Background(), "url"))
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    []string
	}{
		{"single", "pbcopy", []string{"pbcopy"}},
		{"args", "xclip -selection clipboard", []string{"xclip", "-selection", "clipboard"}},
		{"quoted", `sh -c 'cat > /tmp/x'`, []string{"sh", "-c", "cat > /tmp/x"}},
		{"mixed quotes", `echo "it's"`, []string{"echo", "it's"}},
		{"empty", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseCommand(tt.command))
		})
	}
}
