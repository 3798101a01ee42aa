// Package persist serializes result sets and edited tables back to disk.
package persist

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tabq/tabq/internal/engine"
	"github.com/tabq/tabq/internal/format"
	"github.com/tabq/tabq/internal/ingest"
)

// Options bounds the retry around the lock check during finalize.
type Options struct {
	LockRetries int
	RetryBase   time.Duration

	// probe overrides the destination lock check in tests.
	probe func(path string) error
}

func DefaultOptions() Options {
	return Options{LockRetries: 10, RetryBase: 50 * time.Millisecond}
}

// ExportCSV overwrites any existing file at path.
func ExportCSV(path string, columns []string, rows [][]any) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := writeDelimited(file, ',', columns, rows); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}
	return nil
}

// Save writes a materialized table to the format implied by the destination
// extension, staging in a temporary sibling and renaming atomically. A
// locked destination surfaces ErrFileLocked with the original bytes intact.
func Save(ctx context.Context, path string, columns []string, rows [][]any, opts Options) error {
	kind := format.Detect(path)
	if kind == format.XML {
		return fmt.Errorf("save %q: %w", path, ErrUnsupportedOperation)
	}

	tmp := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.tmp-%d", filepath.Base(path), time.Now().UnixNano()))
	if err := writeAs(ctx, tmp, kind, columns, rows); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := finalize(path, tmp, opts); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func writeAs(ctx context.Context, path string, kind format.Kind, columns []string, rows [][]any) error {
	switch kind {
	case format.CSV:
		return writeDelimitedFile(path, ',', columns, rows)
	case format.TSV:
		return writeDelimitedFile(path, '\t', columns, rows)
	case format.XLSX:
		return writeWorkbook(path, columns, rows)
	case format.Parquet:
		return writeColumnar(ctx, path, columns, rows)
	case format.JSON:
		return writeObjects(path, columns, rows)
	default:
		return fmt.Errorf("save as %s: %w", kind, ErrUnsupportedFormat)
	}
}

func writeDelimitedFile(path string, delimiter rune, columns []string, rows [][]any) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if err := writeDelimited(file, delimiter, columns, rows); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}

func writeDelimited(file *os.File, delimiter rune, columns []string, rows [][]any) error {
	writer := csv.NewWriter(file)
	writer.Comma = delimiter
	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		record := make([]string, len(row))
		for i, value := range row {
			record[i] = cellText(value)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush rows: %w", err)
	}
	return nil
}

// writeWorkbook writes the workbook through a file handle so the staging
// path's suffix never matters.
func writeWorkbook(path string, columns []string, rows [][]any) error {
	workbook := excelize.NewFile()
	defer func() { _ = workbook.Close() }()
	sheet := workbook.GetSheetName(0)

	for i, column := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("header cell name: %w", err)
		}
		if err := workbook.SetCellValue(sheet, cell, column); err != nil {
			return fmt.Errorf("write header cell: %w", err)
		}
	}
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			if err := workbook.SetCellValue(sheet, cell, cellText(value)); err != nil {
				return fmt.Errorf("write cell: %w", err)
			}
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if err := workbook.Write(file); err != nil {
		_ = file.Close()
		return fmt.Errorf("write workbook: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}

func writeColumnar(ctx context.Context, path string, columns []string, rows [][]any) error {
	h, err := engine.Open()
	if err != nil {
		return err
	}
	defer func() { _ = h.Close() }()

	records := make([][]string, len(rows))
	for i, row := range rows {
		record := make([]string, len(row))
		for j, value := range row {
			record[j] = cellText(value)
		}
		records[i] = record
	}
	if err := ingest.Stage(ctx, h, columns, records); err != nil {
		return err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}
	statement := fmt.Sprintf("COPY %s TO %s (FORMAT PARQUET)", engine.TableName, engine.QuoteString(abs))
	if err := h.Exec(ctx, statement); err != nil {
		return fmt.Errorf("copy to columnar file: %w", err)
	}
	return nil
}

func writeObjects(path string, columns []string, rows [][]any) error {
	records := make([]map[string]any, len(rows))
	for i, row := range rows {
		record := make(map[string]any, len(columns))
		for j, column := range columns {
			if j < len(row) {
				record[column] = row[j]
			}
		}
		records[i] = record
	}
	encoded, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	if err := os.WriteFile(path, append(encoded, '\n'), 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func cellText(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case []byte:
		return string(typed)
	default:
		return fmt.Sprint(typed)
	}
}
