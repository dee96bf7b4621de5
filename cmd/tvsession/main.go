package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/justchokingaround/tvsession/internal/clipboard"
	"github.com/justchokingaround/tvsession/internal/config"
	"github.com/justchokingaround/tvsession/internal/database"
	"github.com/justchokingaround/tvsession/internal/stream"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile   string
	logLevel  string
	noColor   bool
	debugMode bool

	// Global config and logger
	cfg    *config.Config
	logger *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tvsession",
	Short: "Play IPTV streams in mpv with subtitle, audio and next-episode handling",
	Long: `tvsession resolves IPTV stream URLs from an Xtream-style account and plays
them in mpv. While playing it keeps subtitle choices per title, offers
subtitle search through OpenSubtitles, and counts down to the next episode.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// config init and path work without a loaded config
		if cmd.Parent() != nil && cmd.Parent().Name() == "config" && cmd.Name() != "show" {
			return nil
		}
		if cmd.Name() == "version" {
			return nil
		}

		if err := config.InitializeDirs(); err != nil {
			return fmt.Errorf("failed to initialize directories: %w", err)
		}

		var err error
		var v *viper.Viper
		cfg, v, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if debugMode {
			cfg.Advanced.Debug = true
			if logLevel == "" {
				cfg.Logging.Level = "debug"
			}
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if noColor {
			cfg.Logging.Color = false
		}

		logger, err = config.InitLogger(&cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if err := database.Init(&cfg.Database); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}

		// Hot reload: settings are read when the next session starts
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			logger.Info("config file changed", "name", e.Name)
			next := &config.Config{}
			if err := v.Unmarshal(next); err != nil {
				logger.Error("failed to reload config", "error", err)
				return
			}
			if err := next.Validate(); err != nil {
				logger.Error("ignoring invalid config", "error", err)
				return
			}
			configMu.Lock()
			*cfg = *next
			configMu.Unlock()
		})
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if database.GetDB() == nil {
			return nil
		}
		return database.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/tvsession/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug mode (verbose HTTP and mpv logging)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(urlCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(subtitlesCmd)
}

// versionCmd displays version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tvsession version %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
	},
}

// configCmd handles configuration operations
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := cfgFile
		if configPath == "" {
			configPath = config.ConfigPath()
		}

		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s", configPath)
		}

		if err := config.WriteDefault(configPath); err != nil {
			return fmt.Errorf("failed to save default configuration: %w", err)
		}

		fmt.Printf("Default configuration generated at: %s\n", configPath)
		fmt.Println("Set account.base_url, account.username and account.password before playing.")
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Config file: %s\n", lookupConfigPath())
		fmt.Printf("Account: %s (user %s)\n", stream.NormalizeBaseURL(cfg.Account.BaseURL), cfg.Account.Username)
		fmt.Printf("Auto-play next: %t (threshold %s)\n", cfg.Player.AutoPlayNext, cfg.Player.NextEpisodeThreshold)
		fmt.Printf("Resize mode: %s\n", cfg.Player.ResizeMode)
		fmt.Printf("Subtitle languages: %s\n", strings.Join(cfg.Subtitles.Languages, ", "))
		fmt.Printf("Subtitle cache: %s\n", cfg.Subtitles.CacheDir)
		fmt.Printf("Log level: %s\n", cfg.Logging.Level)
		fmt.Printf("Database: %s\n", cfg.Database.Path)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Display configuration file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(lookupConfigPath())
	},
}

func lookupConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.ConfigPath()
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
}

// urlCmd prints the playable URL for a stream
var urlCmd = &cobra.Command{
	Use:   "url <kind> <stream-id>",
	Short: "Print the stream URL for a channel, movie or episode",
	Example: `  tvsession url live 1234
  tvsession url series 98765 --ext mkv --copy`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := stream.ParseKind(args[0])
		if err != nil {
			return err
		}
		ext, _ := cmd.Flags().GetString("ext")
		copyURL, _ := cmd.Flags().GetBool("copy")

		url := stream.Resolve(account(), kind, args[1], ext)
		fmt.Println(url)

		if copyURL {
			svc := clipboard.NewService(currentConfig().Advanced.ClipboardCommand, logger)
			if err := svc.Copy(cmd.Context(), url); err != nil {
				return fmt.Errorf("failed to copy URL: %w", err)
			}
			fmt.Fprintln(os.Stderr, "Copied to clipboard")
		}
		return nil
	},
}

func init() {
	urlCmd.Flags().StringP("ext", "e", "", "container extension for movies and episodes (default mp4)")
	urlCmd.Flags().BoolP("copy", "c", false, "copy the URL to the clipboard")
}

func account() stream.Account {
	acc := currentConfig().Account
	return stream.Account{
		BaseURL:  acc.BaseURL,
		Username: acc.Username,
		Password: acc.Password,
		ListID:   acc.ListID,
	}
}
