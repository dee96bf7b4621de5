package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestGetMigrations(t *testing.T) {
	migrations, err := getMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	first := migrations[0]
	assert.Equal(t, "20250301", first.name)
	assert.Equal(t, "continue_watching", first.table)
	assert.Equal(t, "subtitle_file_name", first.column)

	for i := 1; i < len(migrations); i++ {
		assert.Less(t, migrations[i-1].name, migrations[i].name)
	}
}

func TestExtractMigrationName(t *testing.T) {
	assert.Equal(t, "20250301", extractMigrationName("20250301_subtitle_columns.sql"))
	assert.Equal(t, "notes.sql", extractMigrationName("notes.sql"))
}

func TestRunMigrations_FreshDatabase(t *testing.T) {
	db := openTestDB(t)

	// No tables yet: migrations are recorded as skipped
	require.NoError(t, RunMigrations(db))
	require.NoError(t, Migrate(db))

	applied, err := getAppliedMigrations(db)
	require.NoError(t, err)
	assert.True(t, applied["20250301"])

	// Running again is a no-op
	require.NoError(t, RunMigrations(db))
}

func TestRunMigrations_UpgradesLegacyTable(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Exec(`CREATE TABLE continue_watching (
		id INTEGER PRIMARY KEY,
		media_id TEXT NOT NULL,
		media_title TEXT NOT NULL DEFAULT '',
		media_type TEXT NOT NULL
	)`).Error)

	require.NoError(t, RunMigrations(db))

	var count int64
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM pragma_table_info('continue_watching') WHERE name='subtitle_offset_ms'").Scan(&count).Error)
	assert.Equal(t, int64(1), count)

	require.NoError(t, Migrate(db))
}

// openTestDB opens an in-memory database pinned to one connection so every
// query sees the same memory database
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}
