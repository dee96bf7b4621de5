package mpv

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/google/uuid"
)

// Platform represents the operating system platform
type Platform int

const (
	PlatformLinux Platform = iota
	PlatformWindows
	PlatformWSL
	PlatformMac
)

// IPCType represents the IPC connection type
type IPCType int

const (
	IPCUnixSocket IPCType = iota
	IPCNamedPipe
	IPCTCP
)

// IPCConfig holds IPC connection configuration
type IPCConfig struct {
	Type     IPCType
	Address  string
	IsSocket bool // true for Unix sockets
}

const ipcPrefix = "tvsession-mpv-"

// DetectPlatform detects the current platform
func DetectPlatform() Platform {
	switch runtime.GOOS {
	case "windows":
		return PlatformWindows
	case "darwin":
		return PlatformMac
	default:
		if isWSL() {
			return PlatformWSL
		}
		return PlatformLinux
	}
}

func isWSL() bool {
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}
	version := strings.ToLower(string(data))
	return strings.Contains(version, "microsoft") || strings.Contains(version, "wsl")
}

// GetMPVExecutable returns the mpv executable name for the platform.
// WSL uses the Linux build because gopv cannot reach Windows named pipes
// from inside WSL.
func GetMPVExecutable(platform Platform) string {
	if platform == PlatformWindows {
		return "mpv.exe"
	}
	return "mpv"
}

// FindMPVExecutable attempts to find the mpv executable path
func FindMPVExecutable(platform Platform) (string, error) {
	executable := GetMPVExecutable(platform)
	path, err := exec.LookPath(executable)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH. Please install mpv", executable)
	}
	return path, nil
}

// GetIPCConfig generates a fresh IPC endpoint for the platform
func GetIPCConfig(platform Platform) (*IPCConfig, error) {
	suffix, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate IPC name: %w", err)
	}
	name := ipcPrefix + strings.ReplaceAll(suffix.String(), "-", "")[:16]

	switch platform {
	case PlatformLinux, PlatformMac, PlatformWSL:
		return &IPCConfig{
			Type:     IPCUnixSocket,
			Address:  filepath.Join(os.TempDir(), name+".sock"),
			IsSocket: true,
		}, nil
	case PlatformWindows:
		return &IPCConfig{
			Type:    IPCNamedPipe,
			Address: `\\.\pipe\` + name,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported platform")
	}
}

// GetMPVIPCArgument returns the mpv command-line argument for IPC
func GetMPVIPCArgument(config *IPCConfig) string {
	return fmt.Sprintf("--input-ipc-server=%s", config.Address)
}

// GetGopvConnectionString returns the connection string for gopv
func GetGopvConnectionString(config *IPCConfig) string {
	if config.Type == IPCTCP {
		return "tcp://" + config.Address
	}
	return config.Address
}
