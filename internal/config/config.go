package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const appName = "tvsession"

// Config is the full application configuration
type Config struct {
	Account   AccountConfig   `mapstructure:"account" yaml:"account"`
	Player    PlayerConfig    `mapstructure:"player" yaml:"player"`
	Subtitles SubtitlesConfig `mapstructure:"subtitles" yaml:"subtitles"`
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Advanced  AdvancedConfig  `mapstructure:"advanced" yaml:"advanced"`
}

// AccountConfig holds the IPTV account used to build stream URLs
type AccountConfig struct {
	BaseURL  string `mapstructure:"base_url" yaml:"base_url"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	ListID   string `mapstructure:"list_id" yaml:"list_id"`
}

// PlayerConfig controls playback sessions
type PlayerConfig struct {
	AutoPlayNext         bool          `mapstructure:"auto_play_next" yaml:"auto_play_next"`
	NextEpisodeThreshold time.Duration `mapstructure:"next_episode_threshold" yaml:"next_episode_threshold"`
	PollInterval         time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	ResizeMode           string        `mapstructure:"resize_mode" yaml:"resize_mode"`
	LoadUserConfig       bool          `mapstructure:"load_user_config" yaml:"load_user_config"`
	MPVArgs              []string      `mapstructure:"mpv_args" yaml:"mpv_args"`
}

// MarshalYAML writes durations in their string form
func (p PlayerConfig) MarshalYAML() (interface{}, error) {
	args := p.MPVArgs
	if args == nil {
		args = []string{}
	}
	return map[string]interface{}{
		"auto_play_next":         p.AutoPlayNext,
		"next_episode_threshold": p.NextEpisodeThreshold.String(),
		"poll_interval":          p.PollInterval.String(),
		"resize_mode":            p.ResizeMode,
		"load_user_config":       p.LoadUserConfig,
		"mpv_args":               args,
	}, nil
}

// SubtitlesConfig configures the subtitle repository and cache
type SubtitlesConfig struct {
	APIKey            string   `mapstructure:"api_key" yaml:"api_key"`
	UserAgent         string   `mapstructure:"user_agent" yaml:"user_agent"`
	BaseURL           string   `mapstructure:"base_url" yaml:"base_url"`
	CacheDir          string   `mapstructure:"cache_dir" yaml:"cache_dir"`
	RequestsPerSecond float64  `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Languages         []string `mapstructure:"languages" yaml:"languages"`
}

// DatabaseConfig configures the sqlite store
type DatabaseConfig struct {
	Path           string `mapstructure:"path" yaml:"path"`
	MaxConnections int    `mapstructure:"max_connections" yaml:"max_connections"`
	WALMode        bool   `mapstructure:"wal_mode" yaml:"wal_mode"`
	AutoVacuum     bool   `mapstructure:"auto_vacuum" yaml:"auto_vacuum"`
}

// LoggingConfig configures the slog logger
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
	Color      bool   `mapstructure:"color" yaml:"color"`
}

// AdvancedConfig holds debugging switches
type AdvancedConfig struct {
	Debug bool `mapstructure:"debug" yaml:"debug"`
	// ClipboardCommand replaces the system clipboard, e.g. "wl-copy" or "clip.exe"
	ClipboardCommand string `mapstructure:"clipboard_command" yaml:"clipboard_command"`
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("account.base_url", "")
	v.SetDefault("account.username", "")
	v.SetDefault("account.password", "")
	v.SetDefault("account.list_id", "")

	v.SetDefault("player.auto_play_next", true)
	v.SetDefault("player.next_episode_threshold", 30*time.Second)
	v.SetDefault("player.poll_interval", 500*time.Millisecond)
	v.SetDefault("player.resize_mode", "fit")
	v.SetDefault("player.load_user_config", false)
	v.SetDefault("player.mpv_args", []string{})

	v.SetDefault("subtitles.api_key", "")
	v.SetDefault("subtitles.user_agent", appName+" v1.0")
	v.SetDefault("subtitles.base_url", "https://api.opensubtitles.com/api/v1")
	v.SetDefault("subtitles.cache_dir", filepath.Join(getCacheDir(), appName, "subtitles"))
	v.SetDefault("subtitles.requests_per_second", 4.0)
	v.SetDefault("subtitles.languages", []string{"en"})

	v.SetDefault("database.path", filepath.Join(getDataDir(), appName, appName+".db"))
	v.SetDefault("database.max_connections", 4)
	v.SetDefault("database.wal_mode", true)
	v.SetDefault("database.auto_vacuum", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)
	v.SetDefault("logging.color", true)

	v.SetDefault("advanced.debug", false)
	v.SetDefault("advanced.clipboard_command", "")
}

// Load reads the configuration file (or the default location) merged with
// defaults and TVSESSION_* environment variables
func Load(cfgFile string) (*Config, *viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(strings.ToUpper(appName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	return cfg, v, nil
}

// Validate checks values viper cannot constrain
func (c *Config) Validate() error {
	if c.Player.NextEpisodeThreshold < 0 {
		return fmt.Errorf("player.next_episode_threshold must not be negative")
	}
	if c.Player.PollInterval <= 0 {
		return fmt.Errorf("player.poll_interval must be positive")
	}
	if c.Subtitles.RequestsPerSecond < 0 {
		return fmt.Errorf("subtitles.requests_per_second must not be negative")
	}
	return nil
}

// Defaults returns the configuration with only default values applied
func Defaults() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return cfg
	}
	return cfg
}

// WriteDefault writes the default configuration as YAML to path
func WriteDefault(path string) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(Defaults()); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0600)
}

// ConfigDir returns the directory holding config.yaml
func ConfigDir() string {
	return filepath.Join(getConfigDir(), appName)
}

// ConfigPath returns the default config file path
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// InitializeDirs creates the config, data, cache and state directories
func InitializeDirs() error {
	for _, dir := range []string{
		ConfigDir(),
		filepath.Join(getDataDir(), appName),
		filepath.Join(getCacheDir(), appName),
		filepath.Join(getStateDir(), appName),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

func getConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	if runtime.GOOS == "windows" {
		if dir, err := os.UserConfigDir(); err == nil {
			return dir
		}
	}
	return filepath.Join(homeDir(), ".config")
}

func getDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	return filepath.Join(homeDir(), ".local", "share")
}

func getCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return dir
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return dir
	}
	return filepath.Join(homeDir(), ".cache")
}

func getStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return dir
	}
	return filepath.Join(homeDir(), ".local", "state")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	return home
}
