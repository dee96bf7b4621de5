package clipboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"
)

// ErrNoClipboard is returned when neither the clipboard library nor any
// known system utility could take the text
var ErrNoClipboard = errors.New("no clipboard available")

// Service copies text such as stream URLs to the system clipboard
type Service struct {
	command string
	logger  *slog.Logger

	writeAll   func(string) error
	lookPath   func(string) (string, error)
	runCommand func(ctx context.Context, input string, name string, args ...string) error
}

// NewService creates a clipboard service. A non-empty command replaces the
// system clipboard entirely.
func NewService(command string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		command:    strings.TrimSpace(command),
		logger:     logger,
		writeAll:   clipboard.WriteAll,
		lookPath:   exec.LookPath,
		runCommand: runWithInput,
	}
}

// Copy writes text to the clipboard, trying the configured command, then the
// clipboard library, then platform utilities
func (s *Service) Copy(ctx context.Context, text string) error {
	if s.command != "" {
		parts := parseCommand(s.command)
		if len(parts) == 0 {
			return fmt.Errorf("invalid clipboard command: %q", s.command)
		}
		if err := s.runCommand(ctx, text, parts[0], parts[1:]...); err != nil {
			return fmt.Errorf("clipboard command %q failed: %w", s.command, err)
		}
		s.logger.Debug("copied with custom clipboard command", "command", parts[0], "text_length", len(text))
		return nil
	}

	err := s.writeAll(text)
	if err == nil {
		s.logger.Debug("copied to clipboard", "text_length", len(text))
		return nil
	}
	s.logger.Debug("clipboard library failed, trying system utilities", "error", err)

	for _, candidate := range s.fallbacks() {
		if _, lookErr := s.lookPath(candidate[0]); lookErr != nil {
			continue
		}
		if runErr := s.runCommand(ctx, text, candidate[0], candidate[1:]...); runErr != nil {
			s.logger.Debug("clipboard utility failed", "command", candidate[0], "error", runErr)
			continue
		}
		s.logger.Debug("copied with clipboard utility", "command", candidate[0], "text_length", len(text))
		return nil
	}
	return fmt.Errorf("%w: %v", ErrNoClipboard, err)
}

// fallbacks lists clipboard utilities in order of preference
func (s *Service) fallbacks() [][]string {
	switch runtime.GOOS {
	case "darwin":
		return [][]string{{"pbcopy"}}
	case "windows":
		return [][]string{{"clip.exe"}}
	case "linux":
		if isWSL() {
			return [][]string{{"clip.exe"}}
		}
		return [][]string{
			{"wl-copy"},
			{"xclip", "-selection", "clipboard"},
			{"xsel", "--clipboard", "--input"},
		}
	default:
		return nil
	}
}

func runWithInput(ctx context.Context, input string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(input)
	return cmd.Run()
}

// parseCommand splits a command string into executable parts, respecting quotes
func parseCommand(command string) []string {
	var parts []string
	var current strings.Builder
	var inQuotes bool
	var quoteChar rune

	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
	}

	for _, char := range command {
		switch {
		case char == '\'' || char == '"':
			if !inQuotes {
				inQuotes = true
				quoteChar = char
			} else if char == quoteChar {
				inQuotes = false
			} else {
				current.WriteRune(char)
			}
		case char == ' ' && !inQuotes:
			flush()
		default:
			current.WriteRune(char)
		}
	}
	flush()

	return parts
}

// isWSL checks if the process runs under Windows Subsystem for Linux
func isWSL() bool {
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}
	version := strings.ToLower(string(data))
	return strings.Contains(version, "microsoft") || strings.Contains(version, "wsl")
}
