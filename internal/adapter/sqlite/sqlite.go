// Package sqlite stores the joined table in a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/city-weather-etl/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens the database at path, creating its directory when needed, and
// verifies connectivity. ":memory:" opens an in-memory database.
func Open(path string) (*sql.DB, error) {
	dsn, err := buildDSN(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	// A single writer; also keeps an in-memory database on one connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func buildDSN(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return fmt.Sprintf("file:%s?_busy_timeout=5000", path), nil
}

// Sink replaces a table with the joined rows on every write.
type Sink struct {
	db     *sql.DB
	table  string
	logger *slog.Logger
}

// NewSink creates a sink writing table in db.
func NewSink(db *sql.DB, table string, logger *slog.Logger) *Sink {
	return &Sink{db: db, table: table, logger: logger}
}

func (s *Sink) Name() string { return "sqlite" }

// Write drops and recreates the table, then inserts rows, in one
// transaction. Missing values are stored as NULL.
func (s *Sink) Write(ctx context.Context, rows []domain.JoinedRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite sink: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	table := quoteIdent(s.table)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("sqlite sink: drop %s: %w", s.table, err)
	}
	if _, err := tx.ExecContext(ctx, createStatement(table)); err != nil {
		return fmt.Errorf("sqlite sink: create %s: %w", s.table, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertStatement(table))
	if err != nil {
		return fmt.Errorf("sqlite sink: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		if _, err := stmt.ExecContext(ctx, rowValues(r)...); err != nil {
			return fmt.Errorf("sqlite sink: insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite sink: commit: %w", err)
	}
	s.logger.Debug("sqlite table replaced", "table", s.table, "rows", len(rows))
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func createStatement(table string) string {
	kinds := domain.JoinedRow{}.Cells()
	defs := make([]string, len(domain.Columns))
	for i, col := range domain.Columns {
		typ := "TEXT"
		if kinds[i].Numeric {
			typ = "REAL"
		}
		defs[i] = quoteIdent(col) + " " + typ
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))
}

func insertStatement(table string) string {
	cols := make([]string, len(domain.Columns))
	for i, col := range domain.Columns {
		cols[i] = quoteIdent(col)
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), marks)
}

func rowValues(r domain.JoinedRow) []any {
	cells := r.Cells()
	values := make([]any, len(cells))
	for i, c := range cells {
		switch {
		case c.Missing():
			values[i] = nil
		case c.Numeric:
			values[i] = *c.Number
		default:
			values[i] = c.Text
		}
	}
	return values
}

// CountRows returns the number of rows in table.
func CountRows(db *sql.DB, table string) (int, error) {
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + quoteIdent(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
