// Package ingest materializes a tabular source file into the per-request
// engine table.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/tabq/tabq/internal/engine"
	"github.com/tabq/tabq/internal/flatten"
	"github.com/tabq/tabq/internal/format"
)

// Table describes the relation an ingestion produced. Empty means no
// relation was created; callers must short-circuit instead of querying.
type Table struct {
	Columns []string
	Empty   bool
}

const insertChunkRows = 500

// Ingest loads path into the handle's data table according to kind.
// Spreadsheet and markup sources are staged manually as text columns; the
// rest go through the engine's native readers.
func Ingest(ctx context.Context, h *engine.Handle, kind format.Kind, path string) (Table, error) {
	switch kind {
	case format.CSV:
		return viaNativeReader(ctx, h, kind, path, "read_csv_auto(%s)")
	case format.TSV:
		return viaNativeReader(ctx, h, kind, path, "read_csv(%s, delim='\t', header=true)")
	case format.Parquet:
		return viaNativeReader(ctx, h, kind, path, "read_parquet(%s)")
	case format.JSON:
		return viaNativeReader(ctx, h, kind, path, "read_json_auto(%s)")
	case format.XLSX:
		return viaSpreadsheet(ctx, h, path)
	case format.XML:
		return viaMarkup(ctx, h, path)
	default:
		return viaNativeReader(ctx, h, kind, path, "read_csv_auto(%s)")
	}
}

func viaNativeReader(ctx context.Context, h *engine.Handle, kind format.Kind, path, readerExpr string) (Table, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Table{}, &Error{Path: path, Kind: kind, Reason: ReasonUnreadable, Err: err}
	}
	if _, err := os.Stat(abs); err != nil {
		return Table{}, &Error{Path: path, Kind: kind, Reason: ReasonUnreadable, Err: err}
	}

	reader := fmt.Sprintf(readerExpr, engine.QuoteString(abs))
	statement := fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s", engine.TableName, reader)
	if err := h.Exec(ctx, statement); err != nil {
		return Table{}, &Error{Path: path, Kind: kind, Reason: ReasonMalformed, Err: err}
	}
	if err := sanitizeTableColumns(ctx, h); err != nil {
		return Table{}, &Error{Path: path, Kind: kind, Reason: ReasonRejected, Err: err}
	}

	columns, err := h.Columns(ctx)
	if err != nil {
		return Table{}, &Error{Path: path, Kind: kind, Reason: ReasonRejected, Err: err}
	}
	return Table{Columns: columns}, nil
}

// sanitizeTableColumns renames columns so the declared schema matches what
// generated SQL references.
func sanitizeTableColumns(ctx context.Context, h *engine.Handle) error {
	raw, err := h.RawColumns(ctx)
	if err != nil {
		return err
	}
	for _, name := range raw {
		sanitized := format.SanitizeColumn(name)
		if sanitized == name {
			continue
		}
		statement := fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
			engine.TableName, engine.QuoteIdent(name), engine.QuoteIdent(sanitized))
		if err := h.Exec(ctx, statement); err != nil {
			return fmt.Errorf("rename column %q: %w", name, err)
		}
	}
	return nil
}

func viaSpreadsheet(ctx context.Context, h *engine.Handle, path string) (Table, error) {
	workbook, err := excelize.OpenFile(path)
	if err != nil {
		reason := ReasonMalformed
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			reason = ReasonUnreadable
		}
		return Table{}, &Error{Path: path, Kind: format.XLSX, Reason: reason, Err: err}
	}
	defer func() { _ = workbook.Close() }()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return Table{Empty: true}, nil
	}
	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return Table{}, &Error{Path: path, Kind: format.XLSX, Reason: ReasonMalformed, Err: err}
	}
	if len(rows) == 0 {
		return Table{Empty: true}, nil
	}

	columns := format.SanitizeColumns(rows[0])
	if len(columns) == 0 {
		return Table{Empty: true}, nil
	}
	records := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make([]string, len(columns))
		for i := range columns {
			if i < len(row) {
				record[i] = row[i]
			}
		}
		records = append(records, record)
	}

	if err := Stage(ctx, h, columns, records); err != nil {
		return Table{}, &Error{Path: path, Kind: format.XLSX, Reason: ReasonRejected, Err: err}
	}
	return Table{Columns: columns}, nil
}

func viaMarkup(ctx context.Context, h *engine.Handle, path string) (Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Table{}, &Error{Path: path, Kind: format.XML, Reason: ReasonUnreadable, Err: err}
	}
	doc, err := flatten.ParseMarkup(raw)
	if err != nil {
		return Table{}, &Error{Path: path, Kind: format.XML, Reason: ReasonMalformed, Err: err}
	}

	items := flatten.FindRecordAxis(doc)
	if len(items) == 0 {
		return Table{Empty: true}, nil
	}
	if _, ok := items[0].(map[string]any); !ok {
		return Table{Empty: true}, nil
	}

	flats := make([]flatten.Record, 0, len(items))
	var columns []string
	seen := map[string]bool{}
	for _, item := range items {
		node, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rec := flatten.Flatten(node, "")
		for i, key := range rec.Keys {
			sanitized := format.SanitizeColumn(key)
			rec.Keys[i] = sanitized
			if !seen[sanitized] {
				seen[sanitized] = true
				columns = append(columns, sanitized)
			}
		}
		remapped := make(map[string]any, len(rec.Values))
		for key, value := range rec.Values {
			remapped[format.SanitizeColumn(key)] = value
		}
		rec.Values = remapped
		flats = append(flats, rec)
	}
	if len(columns) == 0 {
		return Table{Empty: true}, nil
	}

	records := make([][]string, 0, len(flats))
	for _, rec := range flats {
		record := make([]string, len(columns))
		for i, column := range columns {
			if value, ok := rec.Values[column]; ok {
				record[i] = coerceText(value)
			}
		}
		records = append(records, record)
	}

	if err := Stage(ctx, h, columns, records); err != nil {
		return Table{}, &Error{Path: path, Kind: format.XML, Reason: ReasonRejected, Err: err}
	}
	return Table{Columns: columns}, nil
}

// Stage creates the data table with one text column per name and inserts
// the rows in chunks.
func Stage(ctx context.Context, h *engine.Handle, columns []string, rows [][]string) error {
	defs := make([]string, len(columns))
	for i, column := range columns {
		defs[i] = engine.QuoteIdent(column) + " TEXT"
	}
	if err := h.Exec(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", engine.TableName, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("create staged table: %w", err)
	}

	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",") + ")"
	for start := 0; start < len(rows); start += insertChunkRows {
		end := start + insertChunkRows
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		tuples := make([]string, len(chunk))
		args := make([]any, 0, len(chunk)*len(columns))
		for i, row := range chunk {
			tuples[i] = placeholder
			for _, cell := range row {
				args = append(args, cell)
			}
		}
		statement := fmt.Sprintf("INSERT INTO %s VALUES %s", engine.TableName, strings.Join(tuples, ", "))
		if err := h.Exec(ctx, statement, args...); err != nil {
			return fmt.Errorf("insert staged rows: %w", err)
		}
	}
	return nil
}

func coerceText(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case []any, map[string]any:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}
		return string(encoded)
	default:
		return fmt.Sprint(typed)
	}
}
