package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/aluiziolira/go-scrape-races/models"
)

const sqliteTable = "results"

// SQLiteWriter stores rows in a single table whose columns follow the schema.
// The file is recreated on open so a run never appends to stale results.
type SQLiteWriter struct {
	path   string
	db     *sql.DB
	schema *Schema
	insert string
	mu     sync.Mutex
}

// NewSQLiteWriter creates the database file and the results table.
func NewSQLiteWriter(path string, schema *Schema) (*SQLiteWriter, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale database: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	names := schema.Names()
	cols := make([]string, len(names))
	marks := make([]string, len(names))
	for i, n := range names {
		cols[i] = quoteIdent(n) + " TEXT"
		marks[i] = "?"
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(sqliteTable), strings.Join(cols, ", "))
	if _, err := db.Exec(create); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	return &SQLiteWriter{
		path:   path,
		db:     db,
		schema: schema,
		insert: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quoteIdent(sqliteTable), strings.Join(quoted, ", "), strings.Join(marks, ", ")),
	}, nil
}

// Write inserts one race's rows in a single transaction.
func (sw *SQLiteWriter) Write(rows []models.Row) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	ctx := context.Background()
	tx, err := sw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, sw.insert)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		record := sw.schema.Record(row)
		args := make([]any, len(record))
		for i, v := range record {
			args[i] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (sw *SQLiteWriter) Close() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.db.Close()
}

// Validate ensures the database file exists.
func (sw *SQLiteWriter) Validate() error {
	info, err := os.Stat(sw.path)
	if err != nil {
		return fmt.Errorf("stat sqlite file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("sqlite file is empty")
	}
	return nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
