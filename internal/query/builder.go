// Package query builds the effective statement for a page request and
// shapes the engine's answer.
package query

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/tabq/tabq/internal/engine"
)

// UnboundedLimit is the sentinel for "no row limit".
const UnboundedLimit = int64(math.MaxInt64)

// Page carries the paging and filtering inputs for one request. Columns is
// the sanitized schema probed from the ingested table, never caller input.
type Page struct {
	Offset  int64
	Limit   int64
	Search  string
	SQL     string
	Columns []string
}

var innerWhitespace = regexp.MustCompile(`\s+`)

// Build returns the statement to execute. Raw SQL always wins over the
// search filter; nothing is validated here, engine rejections surface at
// execution time.
func Build(page Page) string {
	if raw := collapseWhitespace(page.SQL); raw != "" {
		return raw
	}
	if needle := strings.TrimSpace(page.Search); needle != "" && len(page.Columns) > 0 {
		return searchStatement(needle, page)
	}
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d OFFSET %d", engine.TableName, page.Limit, page.Offset)
}

func searchStatement(needle string, page Page) string {
	escaped := strings.ReplaceAll(needle, "'", "''")
	predicates := make([]string, len(page.Columns))
	for i, column := range page.Columns {
		predicates[i] = fmt.Sprintf("CAST(%s AS VARCHAR) LIKE '%%%s%%'", engine.QuoteIdent(column), escaped)
	}
	return fmt.Sprintf("SELECT * FROM %s WHERE %s LIMIT %d OFFSET %d",
		engine.TableName, strings.Join(predicates, " OR "), page.Limit, page.Offset)
}

func collapseWhitespace(statement string) string {
	return strings.TrimSpace(innerWhitespace.ReplaceAllString(statement, " "))
}
