package query

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"strconv"

	"github.com/tabq/tabq/internal/engine"
	"github.com/tabq/tabq/internal/format"
)

// Error reports a statement the engine rejected, preserving its diagnostic.
type Error struct {
	Statement string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("query %q: %v", e.Statement, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Result is a shaped query answer. Total is always COUNT(*) over the
// ingested base table, independent of any search or SQL narrowing.
type Result struct {
	Columns []string
	Rows    [][]any
	Total   int64
}

// Normalize executes the statement and shapes its answer. The column set
// comes from what the statement actually returned; an empty result with no
// column metadata is re-issued with LIMIT 0 to recover the schema.
func Normalize(ctx context.Context, db *sql.DB, statement string) (Result, error) {
	countStatement := "SELECT COUNT(*) FROM " + engine.TableName
	var total int64
	if err := db.QueryRowContext(ctx, countStatement).Scan(&total); err != nil {
		return Result{}, &Error{Statement: countStatement, Err: err}
	}

	columns, rows, err := runQuery(ctx, db, statement)
	if err != nil {
		return Result{}, &Error{Statement: statement, Err: err}
	}
	if len(rows) == 0 && len(columns) == 0 {
		recovered, _, probeErr := runQuery(ctx, db, statement+" LIMIT 0")
		if probeErr == nil {
			columns = recovered
		}
	}
	if columns == nil {
		columns = []string{}
	}
	if rows == nil {
		rows = [][]any{}
	}

	return Result{
		Columns: format.SanitizeColumns(columns),
		Rows:    rows,
		Total:   total,
	}, nil
}

func runQuery(ctx context.Context, db *sql.DB, statement string) ([]string, [][]any, error) {
	rows, err := db.QueryContext(ctx, statement)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("result columns: %w", err)
	}

	var result [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, nil, fmt.Errorf("scan row: %w", err)
		}
		result = append(result, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate rows: %w", err)
	}
	return columns, result, nil
}

// normalizeValues turns wide integers into decimal strings and byte slices
// into text so results survive a double-precision JSON model.
func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		case int64:
			normalized[i] = strconv.FormatInt(typed, 10)
		case uint64:
			normalized[i] = strconv.FormatUint(typed, 10)
		case *big.Int:
			normalized[i] = typed.String()
		default:
			normalized[i] = typed
		}
	}
	return normalized
}
