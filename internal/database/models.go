package database

import (
	"time"

	"gorm.io/gorm"
)

// ContinueWatching is the resume entry for a media item, including the
// subtitle the user last attached. The subtitle columns are text because
// earlier versions stored every field as a string; blank and "null" values
// mean no value.
type ContinueWatching struct {
	ID               uint      `gorm:"primaryKey"`
	MediaID          string    `gorm:"not null;uniqueIndex"`
	MediaTitle       string    `gorm:"not null;default:''"`
	MediaType        string    `gorm:"not null;index"` // live, movie, series
	StreamID         string    `gorm:"default:''"`
	PositionMs       int64     `gorm:"not null;default:0"`
	DurationMs       int64     `gorm:"not null;default:0"`
	SubtitleFileName *string   `gorm:"column:subtitle_file_name"`
	SubtitleLanguage *string   `gorm:"column:subtitle_language"`
	SubtitleLabel    *string   `gorm:"column:subtitle_label"`
	SubtitleOffsetMs *string   `gorm:"column:subtitle_offset_ms"`
	UpdatedAt        time.Time `gorm:"index"`
}

// TableName overrides the table name
func (ContinueWatching) TableName() string {
	return "continue_watching"
}

// CachedSubtitle indexes a subtitle file stored in the subtitle cache directory
type CachedSubtitle struct {
	ID        uint      `gorm:"primaryKey"`
	MediaID   string    `gorm:"not null;index"`
	FileName  string    `gorm:"not null"`
	Language  string    `gorm:"default:''"`
	Path      string    `gorm:"not null"` // relative to the cache root
	Size      int64     `gorm:"default:0"`
	CreatedAt time.Time `gorm:"index"`
}

// TableName overrides the table name
func (CachedSubtitle) TableName() string {
	return "cached_subtitles"
}

// Migrate runs database migrations
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&ContinueWatching{},
		&CachedSubtitle{},
	)
}
