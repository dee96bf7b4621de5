// Package cache stores downloaded subtitle files on disk and indexes them per
// media item.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gorm.io/gorm"

	"github.com/justchokingaround/tvsession/internal/database"
	"github.com/justchokingaround/tvsession/internal/subtitle"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Store is the subtitle cache. Files live under root on fs; the index lives
// in the cached_subtitles table.
type Store struct {
	db     *gorm.DB
	fs     afero.Fs
	root   string
	now    func() time.Time
	logger *slog.Logger
}

// New creates a cache store rooted at root
func New(db *gorm.DB, fs afero.Fs, root string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, fs: fs, root: root, now: time.Now, logger: logger}
}

// CachedForMedia returns the cached subtitles for a media item, newest first.
// Index rows whose file disappeared are skipped.
func (s *Store) CachedForMedia(ctx context.Context, mediaID string) ([]subtitle.Cached, error) {
	var rows []database.CachedSubtitle
	err := s.db.WithContext(ctx).
		Where("media_id = ?", mediaID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query cached subtitles: %w", err)
	}

	out := make([]subtitle.Cached, 0, len(rows))
	for _, row := range rows {
		full := filepath.Join(s.root, row.Path)
		exists, err := afero.Exists(s.fs, full)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", full, err)
		}
		if !exists {
			s.logger.Debug("cached subtitle file missing", "media_id", mediaID, "path", full)
			continue
		}
		out = append(out, s.toCached(row))
	}
	return out, nil
}

// Put writes a subtitle file into the cache and indexes it. Writing the same
// file name again for a media item replaces the previous copy.
func (s *Store) Put(ctx context.Context, mediaID, fileName, language string, data []byte) (subtitle.Cached, error) {
	if mediaID == "" {
		return subtitle.Cached{}, errors.New("media id is required")
	}
	name := sanitize(fileName)
	if name == "" {
		name = "subtitle.srt"
	}

	rel := filepath.Join(sanitize(mediaID), name)
	full := filepath.Join(s.root, rel)
	if err := s.fs.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return subtitle.Cached{}, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := afero.WriteFile(s.fs, full, data, 0644); err != nil {
		return subtitle.Cached{}, fmt.Errorf("failed to write subtitle: %w", err)
	}

	row := database.CachedSubtitle{
		MediaID:   mediaID,
		FileName:  name,
		Language:  strings.TrimSpace(language),
		Path:      rel,
		Size:      int64(len(data)),
		CreatedAt: s.now(),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("media_id = ? AND path = ?", mediaID, rel).Delete(&database.CachedSubtitle{}).Error; err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return subtitle.Cached{}, fmt.Errorf("failed to index subtitle: %w", err)
	}

	s.logger.Debug("subtitle cached", "media_id", mediaID, "file_name", name, "size", row.Size)
	return s.toCached(row), nil
}

// Purge removes every cached subtitle for a media item
func (s *Store) Purge(ctx context.Context, mediaID string) error {
	if err := s.fs.RemoveAll(filepath.Join(s.root, sanitize(mediaID))); err != nil {
		return fmt.Errorf("failed to remove cached files: %w", err)
	}
	return s.db.WithContext(ctx).Where("media_id = ?", mediaID).Delete(&database.CachedSubtitle{}).Error
}

func (s *Store) toCached(row database.CachedSubtitle) subtitle.Cached {
	return subtitle.Cached{
		URI:       fileURI(filepath.Join(s.root, row.Path)),
		Language:  row.Language,
		FileName:  row.FileName,
		Size:      row.Size,
		CreatedAt: row.CreatedAt,
	}
}

func fileURI(path string) string {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return "file://" + p
}

func sanitize(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return strings.Trim(unsafeChars.ReplaceAllString(name, "_"), "_")
}
