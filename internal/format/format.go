package format

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Kind is the on-disk shape of a tabular source file.
type Kind int

const (
	CSV Kind = iota
	TSV
	Parquet
	XLSX
	JSON
	XML
)

func (k Kind) String() string {
	switch k {
	case CSV:
		return "csv"
	case TSV:
		return "tsv"
	case Parquet:
		return "parquet"
	case XLSX:
		return "xlsx"
	case JSON:
		return "json"
	case XML:
		return "xml"
	default:
		return "csv"
	}
}

// Detect maps a path's extension to a Kind; unknown or missing extensions
// are treated as comma-delimited text.
func Detect(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv":
		return TSV
	case ".parquet":
		return Parquet
	case ".xlsx":
		return XLSX
	case ".json":
		return JSON
	case ".xml":
		return XML
	default:
		return CSV
	}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// SanitizeColumn replaces each run of whitespace with one underscore.
// Idempotent.
func SanitizeColumn(name string) string {
	return whitespaceRun.ReplaceAllString(name, "_")
}

func SanitizeColumns(names []string) []string {
	sanitized := make([]string, len(names))
	for i, name := range names {
		sanitized[i] = SanitizeColumn(name)
	}
	return sanitized
}
