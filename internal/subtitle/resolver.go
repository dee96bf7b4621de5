package subtitle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	"github.com/samber/mo"
)

// ErrNoCachedSubtitle is reported when a toggle finds nothing to attach.
// It is a notice for the user, not a fault.
var ErrNoCachedSubtitle = errors.New("no cached subtitle for this media")

// Cache looks up subtitles already downloaded for a media item.
// Results are ordered most recent first.
type Cache interface {
	CachedForMedia(ctx context.Context, mediaID string) ([]Cached, error)
}

// Repository searches for remote subtitles and downloads them into the cache
type Repository interface {
	Search(ctx context.Context, apiKey, userAgent, title string) ([]Candidate, error)
	DownloadAndCache(ctx context.Context, apiKey, userAgent string, candidate Candidate, mediaID string) (Cached, error)
}

// Resolver turns persisted records and cache contents into attachable subtitles
type Resolver struct {
	cache  Cache
	logger *slog.Logger
}

// NewResolver creates a resolver over the given cache
func NewResolver(cache Cache, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{cache: cache, logger: logger}
}

// Preload returns the subtitle to attach when a session starts. The persisted
// file name selects the cached file; the persisted label wins over the
// derived one. Lookup failures degrade to no subtitle.
func (r *Resolver) Preload(ctx context.Context, mediaID string, persisted mo.Option[Record]) mo.Option[Active] {
	rec, ok := persisted.Get()
	if !ok {
		return mo.None[Active]()
	}
	rec = rec.Normalize()

	fileName, ok := rec.FileName.Get()
	if !ok {
		return mo.None[Active]()
	}

	cached, err := r.lookup(ctx, mediaID)
	if err != nil {
		r.logger.Warn("subtitle cache lookup failed", "media_id", mediaID, "error", err)
		return mo.None[Active]()
	}

	match, found := lo.Find(cached, func(c Cached) bool {
		return c.FileName == fileName
	})
	if !found {
		r.logger.Debug("persisted subtitle not in cache", "media_id", mediaID, "file_name", fileName)
		return mo.None[Active]()
	}

	active := match.Active(rec.Label)
	if lang, ok := rec.Language.Get(); ok {
		active.Language = lang
	}
	return mo.Some(active)
}

// LatestCached returns the subtitle a toggle should attach: the explicit
// in-memory choice first, then the most recent cached file.
func (r *Resolver) LatestCached(ctx context.Context, mediaID string, explicit mo.Option[Active]) (Active, error) {
	if a, ok := explicit.Get(); ok {
		return a, nil
	}

	cached, err := r.lookup(ctx, mediaID)
	if err != nil {
		return Active{}, fmt.Errorf("failed to query subtitle cache: %w", err)
	}
	if len(cached) == 0 {
		return Active{}, ErrNoCachedSubtitle
	}
	return cached[0].Active(mo.None[string]()), nil
}

func (r *Resolver) lookup(ctx context.Context, mediaID string) ([]Cached, error) {
	if r.cache == nil || mediaID == "" {
		return nil, nil
	}
	return r.cache.CachedForMedia(ctx, mediaID)
}
