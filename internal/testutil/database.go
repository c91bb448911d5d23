package testutil

import (
	"testing"

	"ids-go/internal/database"
	"ids-go/internal/ids"
)

// NewTestDatabase creates a new in-memory SQLite report database with the
// schema migrated. The database is automatically closed when the test completes.
func NewTestDatabase(t *testing.T) ids.ReportDatabase {
	t.Helper()

	db, err := database.NewSQLiteReportDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
