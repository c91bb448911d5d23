package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ids-go/internal/database/migrations"
	"ids-go/internal/ids"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// queryTimeout bounds every statement; report rows are small.
const queryTimeout = 10 * time.Second

// SQLiteReportDatabase implements ids.ReportDatabase using SQLite.
type SQLiteReportDatabase struct {
	db   *sql.DB
	path string
}

// NewSQLiteReportDatabase opens the database at path and migrates it to the
// latest schema. path can be a file path or ":memory:".
func NewSQLiteReportDatabase(path string) (*SQLiteReportDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}
	return &SQLiteReportDatabase{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database, and "ids serve"
	// writes from request goroutines: one connection serialises both.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return db, nil
}

// CheckMigrations verifies that the schema is at the latest version.
func (s *SQLiteReportDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// CreateReport inserts report and sets its ID.
func (s *SQLiteReportDatabase) CreateReport(report *ids.Report) error {
	changes, err := json.Marshal(report.Changes)
	if err != nil {
		return fmt.Errorf("encoding changes: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (uuid, created_at, state, baseline_build_time, changes) VALUES (?, ?, ?, ?, ?)`,
		report.UUID, report.CreatedAt.UTC(), report.State, report.BaselineBuildTime, string(changes))
	if err != nil {
		return fmt.Errorf("inserting report: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading report id: %w", err)
	}
	report.ID = id
	return nil
}

const reportColumns = `id, uuid, created_at, state, baseline_build_time, changes`

// FindReport returns the report with the given ID, or nil if there is none.
func (s *SQLiteReportDatabase) FindReport(id int64) (*ids.Report, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id)
	report, err := scanReport(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding report: %w", err)
	}
	return report, nil
}

// ListReports returns up to limit reports, newest first. A limit of zero or
// less returns every report.
func (s *SQLiteReportDatabase) ListReports(limit int) ([]*ids.Report, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT `+reportColumns+` FROM reports ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	defer rows.Close()

	reports := []*ids.Report{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("listing reports: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	return reports, nil
}

// Close closes the underlying connection.
func (s *SQLiteReportDatabase) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(row scanner) (*ids.Report, error) {
	var (
		r       ids.Report
		changes string
	)
	if err := row.Scan(&r.ID, &r.UUID, &r.CreatedAt, &r.State, &r.BaselineBuildTime, &changes); err != nil {
		return nil, err
	}
	r.Changes = ids.ChangeReport{}
	if err := json.Unmarshal([]byte(changes), &r.Changes); err != nil {
		return nil, fmt.Errorf("decoding changes of report %d: %w", r.ID, err)
	}
	return &r, nil
}

// Compile-time check that SQLiteReportDatabase implements ids.ReportDatabase interface
var _ ids.ReportDatabase = (*SQLiteReportDatabase)(nil)
