package database

import (
	"fmt"
	"os"
	"path/filepath"

	"ids-go/internal/config"
	"ids-go/internal/ids"
)

// NewReportDatabaseFromConfig creates a ReportDatabase based on the database config type.
func NewReportDatabaseFromConfig(cfg config.DatabaseConfig) (ids.ReportDatabase, error) {
	var path string
	switch cfg.Type {
	case "sqlite", "":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		path = filepath.Join(cfg.DataDir, "reports.db")
	case "memory":
		path = ":memory:"
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}

	db, err := NewSQLiteReportDatabase(path)
	if err != nil {
		return nil, err
	}
	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}
	return db, nil
}
