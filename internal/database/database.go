package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"github.com/justchokingaround/tvsession/internal/config"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global database instance
var DB *gorm.DB

// Init opens the session store, applies pending SQL migrations and then
// AutoMigrate. The connection is reopened between the two so GORM does not
// keep a schema cache from before the SQL migrations ran.
func Init(cfg *config.DatabaseConfig) error {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := open(cfg)
	if err != nil {
		return err
	}

	if err := RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := closeDB(db); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	db, err = open(cfg)
	if err != nil {
		return err
	}

	if err := Migrate(db); err != nil {
		return fmt.Errorf("failed to run auto migrations: %w\n\n"+
			"Hint: if the database was created by an unsupported version, delete it and restart:\n"+
			"  %s", err, cfg.Path)
	}

	DB = db
	return nil
}

// open connects to sqlite and applies pool settings and pragmas
func open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = 1
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(max(maxConns/2, 1))

	pragmas := []string{"PRAGMA foreign_keys=ON"}
	if cfg.WALMode {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	if cfg.AutoVacuum {
		pragmas = append(pragmas, "PRAGMA auto_vacuum=INCREMENTAL")
	}
	for _, p := range pragmas {
		if err := db.Exec(p).Error; err != nil {
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	return db, nil
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}
	return closeDB(DB)
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
