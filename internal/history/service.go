package history

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/samber/mo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/justchokingaround/tvsession/internal/database"
	"github.com/justchokingaround/tvsession/internal/subtitle"
)

// Service is the continue-watching store
type Service struct {
	db *gorm.DB
}

// Entry is a continue-watching item with the subtitle record already
// normalized
type Entry struct {
	MediaID    string
	MediaTitle string
	MediaType  string
	StreamID   string
	Position   time.Duration
	Duration   time.Duration
	Subtitle   subtitle.Record
	UpdatedAt  time.Time
}

// Progress returns the watched fraction in [0, 1]
func (e Entry) Progress() float64 {
	if e.Duration <= 0 {
		return 0
	}
	p := float64(e.Position) / float64(e.Duration)
	return min(max(p, 0), 1)
}

// NewService creates a new continue-watching service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Get returns the entry for a media item, or None when it was never watched
func (s *Service) Get(ctx context.Context, mediaID string) (mo.Option[Entry], error) {
	row, err := s.find(ctx, mediaID)
	if err != nil || row == nil {
		return mo.None[Entry](), err
	}
	return mo.Some(toEntry(*row)), nil
}

// SubtitleRecord returns the persisted subtitle record for a media item.
// Rows whose subtitle fields are all blank or "null" count as no record.
func (s *Service) SubtitleRecord(ctx context.Context, mediaID string) (mo.Option[subtitle.Record], error) {
	row, err := s.find(ctx, mediaID)
	if err != nil || row == nil {
		return mo.None[subtitle.Record](), err
	}

	rec := readSubtitle(*row)
	if rec.IsEmpty() {
		return mo.None[subtitle.Record](), nil
	}
	return mo.Some(rec), nil
}

// SaveSubtitleRecord writes the four subtitle fields, creating the entry when
// the media item has none yet. Absent fields are stored as NULL.
func (s *Service) SaveSubtitleRecord(ctx context.Context, mediaID string, rec subtitle.Record) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	row := database.ContinueWatching{MediaID: mediaID}
	writeSubtitle(&row, rec)

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "media_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"subtitle_file_name", "subtitle_language", "subtitle_label", "subtitle_offset_ms", "updated_at",
			}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save subtitle record for %s: %w", mediaID, err)
	}
	return nil
}

// SaveProgress records where playback stopped without touching the subtitle
// columns
func (s *Service) SaveProgress(ctx context.Context, e Entry) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	row := database.ContinueWatching{
		MediaID:    e.MediaID,
		MediaTitle: e.MediaTitle,
		MediaType:  e.MediaType,
		StreamID:   e.StreamID,
		PositionMs: e.Position.Milliseconds(),
		DurationMs: e.Duration.Milliseconds(),
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "media_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"media_title", "media_type", "stream_id", "position_ms", "duration_ms", "updated_at",
			}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save progress for %s: %w", e.MediaID, err)
	}
	return nil
}

// Recent returns the most recently updated entries
func (s *Service) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	var rows []database.ContinueWatching
	q := s.db.WithContext(ctx).Order("updated_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list continue watching: %w", err)
	}

	entries := make([]Entry, len(rows))
	for i, row := range rows {
		entries[i] = toEntry(row)
	}
	return entries, nil
}

// Delete removes the entry for a media item. Missing entries are not an error.
func (s *Service) Delete(ctx context.Context, mediaID string) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return s.db.WithContext(ctx).Where("media_id = ?", mediaID).Delete(&database.ContinueWatching{}).Error
}

func (s *Service) find(ctx context.Context, mediaID string) (*database.ContinueWatching, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	var row database.ContinueWatching
	err := s.db.WithContext(ctx).Where("media_id = ?", mediaID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load continue watching for %s: %w", mediaID, err)
	}
	return &row, nil
}

func toEntry(row database.ContinueWatching) Entry {
	return Entry{
		MediaID:    row.MediaID,
		MediaTitle: row.MediaTitle,
		MediaType:  row.MediaType,
		StreamID:   row.StreamID,
		Position:   time.Duration(row.PositionMs) * time.Millisecond,
		Duration:   time.Duration(row.DurationMs) * time.Millisecond,
		Subtitle:   readSubtitle(row),
		UpdatedAt:  row.UpdatedAt,
	}
}

// readSubtitle is the only place stored sentinels are interpreted
func readSubtitle(row database.ContinueWatching) subtitle.Record {
	offset := mo.None[int64]()
	if row.SubtitleOffsetMs != nil {
		offset = subtitle.ParseOffset(*row.SubtitleOffsetMs)
	}
	return subtitle.Record{
		FileName: subtitle.NormalizeTextPtr(row.SubtitleFileName),
		Language: subtitle.NormalizeTextPtr(row.SubtitleLanguage),
		Label:    subtitle.NormalizeTextPtr(row.SubtitleLabel),
		OffsetMs: offset,
	}
}

func writeSubtitle(row *database.ContinueWatching, rec subtitle.Record) {
	rec = rec.Normalize()
	row.SubtitleFileName = optionPtr(rec.FileName)
	row.SubtitleLanguage = optionPtr(rec.Language)
	row.SubtitleLabel = optionPtr(rec.Label)
	row.SubtitleOffsetMs = nil
	if ms, ok := rec.OffsetMs.Get(); ok {
		v := strconv.FormatInt(ms, 10)
		row.SubtitleOffsetMs = &v
	}
}

func optionPtr(o mo.Option[string]) *string {
	if v, ok := o.Get(); ok {
		return &v
	}
	return nil
}
