package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/justchokingaround/tvsession/internal/config"
	"github.com/justchokingaround/tvsession/internal/database"
	"github.com/justchokingaround/tvsession/internal/stream"
	"github.com/justchokingaround/tvsession/internal/subtitle"
	"github.com/justchokingaround/tvsession/internal/subtitle/cache"
	"github.com/justchokingaround/tvsession/internal/subtitle/opensubtitles"
)

// subtitlesCmd manages remote and cached subtitles outside a session
var subtitlesCmd = &cobra.Command{
	Use:     "subtitles",
	Aliases: []string{"subs"},
	Short:   "Search, download and list cached subtitles",
}

var subtitlesSearchCmd = &cobra.Command{
	Use:   "search <title>",
	Short: "Search OpenSubtitles by title",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		repo := newRepository(c)
		title := strings.Join(args, " ")

		results, err := repo.Search(cmd.Context(), c.Subtitles.APIKey, c.Subtitles.UserAgent, title)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		fmt.Printf("Found %d subtitles for %q:\n\n", len(results), title)
		for i, r := range results {
			fmt.Printf("%d. %s\n", i+1, r.FileName)
			fmt.Printf("   File ID: %s\n", r.ID)
			fmt.Printf("   Language: %s\n", strings.ToUpper(r.Language))
			if r.Release != "" {
				fmt.Printf("   Release: %s\n", r.Release)
			}
			if r.Downloads > 0 {
				fmt.Printf("   Downloads: %s\n", humanize.Comma(int64(r.Downloads)))
			}
			if r.HearingImpaired {
				fmt.Println("   Hearing impaired")
			}
			fmt.Println()
		}
		return nil
	},
}

var subtitlesDownloadCmd = &cobra.Command{
	Use:   "download <kind> <stream-id> <file-id>",
	Short: "Download a subtitle into the cache of a stream",
	Long: `Download fetches a subtitle file found with "subtitles search" and stores it
in the local cache. The next session for the stream offers it when subtitles
are toggled on.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := stream.ParseKind(args[0])
		if err != nil {
			return err
		}
		lang, _ := cmd.Flags().GetString("language")
		name, _ := cmd.Flags().GetString("name")

		c := currentConfig()
		candidate := subtitle.Candidate{ID: args[2], Language: lang, FileName: name}
		cached, err := newRepository(c).DownloadAndCache(cmd.Context(), c.Subtitles.APIKey, c.Subtitles.UserAgent, candidate, mediaID(kind, args[1]))
		if err != nil {
			return fmt.Errorf("download failed: %w", err)
		}

		fmt.Printf("Saved %s (%s) to %s\n", cached.FileName, humanize.Bytes(uint64(cached.Size)), cached.URI)
		return nil
	},
}

var subtitlesCachedCmd = &cobra.Command{
	Use:   "cached <kind> <stream-id>",
	Short: "List cached subtitles of a stream, most recent first",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := stream.ParseKind(args[0])
		if err != nil {
			return err
		}
		purge, _ := cmd.Flags().GetBool("purge")

		id := mediaID(kind, args[1])
		store := newCacheStore(currentConfig())
		if purge {
			if err := store.Purge(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to purge cache: %w", err)
			}
			fmt.Printf("Removed cached subtitles for %s\n", id)
			return nil
		}

		files, err := store.CachedForMedia(cmd.Context(), id)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Printf("No cached subtitles for %s\n", id)
			return nil
		}
		for _, f := range files {
			fmt.Printf("%-6s %-40s %8s  %s\n",
				subtitle.DisplayLabel(f.Language, ""),
				f.FileName,
				humanize.Bytes(uint64(f.Size)),
				humanize.Time(f.CreatedAt))
		}
		return nil
	},
}

func init() {
	subtitlesDownloadCmd.Flags().StringP("language", "l", "", "language code stored with the file")
	subtitlesDownloadCmd.Flags().StringP("name", "n", "", "file name to store the subtitle under")
	subtitlesCachedCmd.Flags().Bool("purge", false, "delete the cached subtitles instead of listing them")

	subtitlesCmd.AddCommand(subtitlesSearchCmd)
	subtitlesCmd.AddCommand(subtitlesDownloadCmd)
	subtitlesCmd.AddCommand(subtitlesCachedCmd)
}

func newCacheStore(c config.Config) *cache.Store {
	return cache.New(database.GetDB(), afero.NewOsFs(), c.Subtitles.CacheDir, logger)
}

func newRepository(c config.Config) *opensubtitles.Repository {
	return opensubtitles.New(newSubtitleClient(c), c.Subtitles.BaseURL, c.Subtitles.Languages, newCacheStore(c), logger)
}
