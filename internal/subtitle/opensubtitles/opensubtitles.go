// Package opensubtitles implements the subtitle repository on the
// OpenSubtitles REST API.
package opensubtitles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/samber/lo"

	tvhttp "github.com/justchokingaround/tvsession/internal/http"
	"github.com/justchokingaround/tvsession/internal/subtitle"
)

// DefaultBaseURL is the public API endpoint
const DefaultBaseURL = "https://api.opensubtitles.com/api/v1"

// ErrMissingAPIKey is returned when no API key is configured
var ErrMissingAPIKey = errors.New("opensubtitles api key is not configured")

// Storer persists downloaded subtitle files
type Storer interface {
	Put(ctx context.Context, mediaID, fileName, language string, data []byte) (subtitle.Cached, error)
}

// Repository searches OpenSubtitles and stores downloads in the local cache
type Repository struct {
	client    *tvhttp.Client
	baseURL   string
	languages []string
	store     Storer
	logger    *slog.Logger
}

// New creates a repository. An empty baseURL uses DefaultBaseURL.
func New(client *tvhttp.Client, baseURL string, languages []string, store Storer, logger *slog.Logger) *Repository {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		languages: lo.Compact(lo.Map(languages, func(l string, _ int) string { return strings.ToLower(strings.TrimSpace(l)) })),
		store:     store,
		logger:    logger,
	}
}

type searchResponse struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			Language        string `json:"language"`
			Release         string `json:"release"`
			DownloadCount   int    `json:"download_count"`
			HearingImpaired bool   `json:"hearing_impaired"`
			Files           []struct {
				FileID   int64  `json:"file_id"`
				FileName string `json:"file_name"`
			} `json:"files"`
		} `json:"attributes"`
	} `json:"data"`
}

type downloadRequest struct {
	FileID int64 `json:"file_id"`
}

type downloadResponse struct {
	Link     string `json:"link"`
	FileName string `json:"file_name"`
}

// Search queries subtitles by title. Results are ranked by how closely the
// release name matches the title.
func (r *Repository) Search(ctx context.Context, apiKey, userAgent, title string) ([]subtitle.Candidate, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("search title is empty")
	}

	query := url.Values{}
	query.Set("query", title)
	if len(r.languages) > 0 {
		query.Set("languages", strings.Join(r.languages, ","))
	}

	var resp searchResponse
	if _, err := r.client.Get(ctx, r.baseURL+"/subtitles?"+query.Encode(), r.headers(apiKey, userAgent), &resp); err != nil {
		return nil, fmt.Errorf("subtitle search failed: %w", err)
	}

	var candidates []subtitle.Candidate
	for _, item := range resp.Data {
		attrs := item.Attributes
		for _, f := range attrs.Files {
			candidates = append(candidates, subtitle.Candidate{
				ID:              strconv.FormatInt(f.FileID, 10),
				FileName:        f.FileName,
				Language:        attrs.Language,
				Release:         attrs.Release,
				Downloads:       attrs.DownloadCount,
				HearingImpaired: attrs.HearingImpaired,
			})
		}
	}

	r.logger.Debug("subtitle search complete", "title", title, "results", len(candidates))
	return subtitle.RankCandidates(title, candidates), nil
}

// DownloadAndCache requests a download link for the candidate, fetches the
// file and stores it in the cache for mediaID.
func (r *Repository) DownloadAndCache(ctx context.Context, apiKey, userAgent string, candidate subtitle.Candidate, mediaID string) (subtitle.Cached, error) {
	if strings.TrimSpace(apiKey) == "" {
		return subtitle.Cached{}, ErrMissingAPIKey
	}
	fileID, err := strconv.ParseInt(candidate.ID, 10, 64)
	if err != nil {
		return subtitle.Cached{}, fmt.Errorf("invalid subtitle file id %q: %w", candidate.ID, err)
	}

	var link downloadResponse
	if _, err := r.client.Post(ctx, r.baseURL+"/download", downloadRequest{FileID: fileID}, r.headers(apiKey, userAgent), &link); err != nil {
		return subtitle.Cached{}, fmt.Errorf("failed to request download link: %w", err)
	}
	if link.Link == "" {
		return subtitle.Cached{}, errors.New("download response contained no link")
	}

	data, err := r.client.Download(ctx, link.Link)
	if err != nil {
		return subtitle.Cached{}, err
	}

	name := lo.CoalesceOrEmpty(link.FileName, candidate.FileName, path.Base(link.Link))
	cached, err := r.store.Put(ctx, mediaID, name, candidate.Language, data)
	if err != nil {
		return subtitle.Cached{}, fmt.Errorf("failed to cache subtitle: %w", err)
	}

	r.logger.Info("subtitle downloaded", "media_id", mediaID, "file_name", cached.FileName, "language", cached.Language)
	return cached, nil
}

func (r *Repository) headers(apiKey, userAgent string) map[string]string {
	h := map[string]string{"Api-Key": apiKey}
	if userAgent != "" {
		h["User-Agent"] = userAgent
	}
	return h
}
