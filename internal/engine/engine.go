package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/tabq/tabq/internal/format"
)

// TableName is the single relation every request ingests into.
const TableName = "data"

// Handle is an ephemeral in-memory DuckDB instance scoped to one request.
// The caller that opened it must close it on every exit path.
type Handle struct {
	db *sql.DB
}

func Open() (*Handle, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return &Handle{db: db}, nil
}

func (h *Handle) Close() error {
	return h.db.Close()
}

func (h *Handle) DB() *sql.DB {
	return h.db
}

func (h *Handle) Exec(ctx context.Context, statement string, args ...any) error {
	if _, err := h.db.ExecContext(ctx, statement, args...); err != nil {
		return fmt.Errorf("execute statement: %w", err)
	}
	return nil
}

// Columns returns the table's column names, sanitized, in declaration order.
func (h *Handle) Columns(ctx context.Context) ([]string, error) {
	raw, err := h.RawColumns(ctx)
	if err != nil {
		return nil, err
	}
	return format.SanitizeColumns(raw), nil
}

// RawColumns returns the table's column names exactly as declared.
func (h *Handle) RawColumns(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT column_name FROM information_schema.columns WHERE table_name = `+QuoteString(TableName)+` ORDER BY ordinal_position`)
	if err != nil {
		return nil, fmt.Errorf("describe table: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column name: %w", err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	return columns, nil
}

func (h *Handle) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := h.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+TableName).Scan(&total); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return total, nil
}

func QuoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func QuoteString(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
