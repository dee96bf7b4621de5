package database

import (
	"embed"
	"errors"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migration represents a database migration
type migration struct {
	filename string
	name     string
	sql      string
	table    string // table the migration alters
	column   string // column the migration adds
}

var headerRe = regexp.MustCompile(`(?m)^--\s*(table|adds):\s*(\S+)\s*$`)

// RunMigrations runs all pending database migrations
func RunMigrations(db *gorm.DB) error {
	// Create migrations tracking table if it doesn't exist
	if err := createMigrationsTable(db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	migrations, err := getMigrations()
	if err != nil {
		return fmt.Errorf("failed to get migrations: %w", err)
	}

	applied, err := getAppliedMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.name] {
			continue
		}

		if err := applyMigration(db, m); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", m.filename, err)
		}
	}

	return nil
}

// createMigrationsTable creates the schema_migrations table if it doesn't exist
func createMigrationsTable(db *gorm.DB) error {
	return db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`).Error
}

// getMigrations reads all migration files from the migrations directory
func getMigrations() ([]migration, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		content, err := migrationsFS.ReadFile(path.Join("migrations", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", entry.Name(), err)
		}

		m := migration{
			filename: entry.Name(),
			name:     extractMigrationName(entry.Name()),
			sql:      string(content),
		}
		for _, match := range headerRe.FindAllStringSubmatch(m.sql, -1) {
			switch match[1] {
			case "table":
				m.table = match[2]
			case "adds":
				m.column = match[2]
			}
		}
		migrations = append(migrations, m)
	}

	// Sort migrations by name (date) to ensure order
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].name < migrations[j].name
	})

	return migrations, nil
}

// extractMigrationName extracts the migration name from filename
// Expected format: YYYYMMDD_description.sql
func extractMigrationName(filename string) string {
	re := regexp.MustCompile(`^(\d{8})_.+\.sql$`)
	matches := re.FindStringSubmatch(filename)
	if len(matches) < 2 {
		return filename
	}
	return matches[1]
}

// getAppliedMigrations returns a map of already applied migration names
func getAppliedMigrations(db *gorm.DB) (map[string]bool, error) {
	var names []string
	if err := db.Table("schema_migrations").Pluck("name", &names).Error; err != nil {
		return nil, err
	}

	applied := make(map[string]bool, len(names))
	for _, name := range names {
		applied[name] = true
	}

	return applied, nil
}

// applyMigration runs a single migration and records it
func applyMigration(db *gorm.DB, m migration) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	// Fresh databases get the column from AutoMigrate; the migration only
	// upgrades tables created by older versions.
	if err := checkMigrationPrerequisites(tx, m); err != nil {
		tx.Rollback()
		if ignoreErr := db.Exec("INSERT OR IGNORE INTO schema_migrations (name) VALUES (?)", m.name).Error; ignoreErr != nil {
			return fmt.Errorf("failed to record skipped migration %s: %w", m.filename, ignoreErr)
		}
		return nil
	}

	if err := tx.Exec(m.sql).Error; err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Exec("INSERT INTO schema_migrations (name) VALUES (?)", m.name).Error; err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// checkMigrationPrerequisites returns an error when the migration's table is
// missing or its column already exists
func checkMigrationPrerequisites(db *gorm.DB, m migration) error {
	if m.table == "" {
		return nil
	}

	var count int64
	if err := db.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", m.table).Scan(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%s table does not exist yet", m.table)
	}

	if m.column == "" {
		return nil
	}
	if err := db.Raw("SELECT COUNT(*) FROM pragma_table_info(?) WHERE name=?", m.table, m.column).Scan(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errors.New(m.column + " column already exists")
	}

	return nil
}
