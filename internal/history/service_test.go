package history

import (
	"context"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/justchokingaround/tvsession/internal/database"
	"github.com/justchokingaround/tvsession/internal/subtitle"
)

func setupService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return NewService(db), db
}

func strPtr(s string) *string { return &s }

func TestSubtitleRecord_Missing(t *testing.T) {
	svc, _ := setupService(t)
	rec, err := svc.SubtitleRecord(context.Background(), "nope")
	require.NoError(t, err)
	assert.True(t, rec.IsAbsent())
}

func TestSubtitleRecord_LegacySentinels(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&database.ContinueWatching{
		MediaID:          "legacy",
		MediaType:        "series",
		SubtitleFileName: strPtr("null"),
		SubtitleLanguage: strPtr(""),
		SubtitleLabel:    strPtr("null"),
		SubtitleOffsetMs: strPtr("null"),
	}).Error)

	rec, err := svc.SubtitleRecord(ctx, "legacy")
	require.NoError(t, err)
	assert.True(t, rec.IsAbsent(), "sentinel-only rows are no record")

	require.NoError(t, db.Create(&database.ContinueWatching{
		MediaID:          "mixed",
		MediaType:        "movie",
		SubtitleFileName: strPtr("a.srt"),
		SubtitleLanguage: strPtr("null"),
		SubtitleOffsetMs: strPtr("750"),
	}).Error)

	got, err := svc.SubtitleRecord(ctx, "mixed")
	require.NoError(t, err)
	r, ok := got.Get()
	require.True(t, ok)
	assert.Equal(t, mo.Some("a.srt"), r.FileName)
	assert.True(t, r.Language.IsAbsent())
	assert.True(t, r.Label.IsAbsent())
	assert.Equal(t, mo.Some(int64(750)), r.OffsetMs)
}

func TestSaveSubtitleRecord(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	require.NoError(t, svc.SaveProgress(ctx, Entry{
		MediaID:    "m1",
		MediaTitle: "Show",
		MediaType:  "series",
		Position:   90 * time.Second,
		Duration:   10 * time.Minute,
	}))

	rec := subtitle.Record{
		FileName: mo.Some("show.vtt"),
		Language: mo.Some("en"),
		Label:    mo.Some("null"),
		OffsetMs: mo.Some(int64(-200)),
	}
	require.NoError(t, svc.SaveSubtitleRecord(ctx, "m1", rec))

	var row database.ContinueWatching
	require.NoError(t, db.Where("media_id = ?", "m1").First(&row).Error)
	require.NotNil(t, row.SubtitleFileName)
	assert.Equal(t, "show.vtt", *row.SubtitleFileName)
	assert.Nil(t, row.SubtitleLabel, "sentinel is never written back")
	require.NotNil(t, row.SubtitleOffsetMs)
	assert.Equal(t, "-200", *row.SubtitleOffsetMs)
	assert.Equal(t, "Show", row.MediaTitle, "progress fields survive")

	// Clearing writes NULLs
	require.NoError(t, svc.SaveSubtitleRecord(ctx, "m1", subtitle.Record{}))
	got, err := svc.SubtitleRecord(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, got.IsAbsent())
}

func TestSaveSubtitleRecord_CreatesEntry(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	require.NoError(t, svc.SaveSubtitleRecord(ctx, "fresh", subtitle.Record{Language: mo.Some("de")}))

	got, err := svc.SubtitleRecord(ctx, "fresh")
	require.NoError(t, err)
	r, ok := got.Get()
	require.True(t, ok)
	assert.Equal(t, mo.Some("de"), r.Language)
}

func TestSaveProgress_KeepsSubtitle(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	require.NoError(t, svc.SaveSubtitleRecord(ctx, "m2", subtitle.Record{FileName: mo.Some("x.srt")}))
	require.NoError(t, svc.SaveProgress(ctx, Entry{MediaID: "m2", MediaType: "movie", Position: time.Minute, Duration: 2 * time.Minute}))

	e, err := svc.Get(ctx, "m2")
	require.NoError(t, err)
	entry, ok := e.Get()
	require.True(t, ok)
	assert.Equal(t, mo.Some("x.srt"), entry.Subtitle.FileName)
	assert.InDelta(t, 0.5, entry.Progress(), 0.001)
}

func TestRecentAndDelete(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, svc.SaveProgress(ctx, Entry{MediaID: id, MediaType: "movie"}))
		time.Sleep(5 * time.Millisecond)
	}

	recent, err := svc.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].MediaID)

	require.NoError(t, svc.Delete(ctx, "c"))
	require.NoError(t, svc.Delete(ctx, "missing"))

	recent, err = svc.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}
