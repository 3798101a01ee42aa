package query

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestNormalizeShapesColumnsRowsAndTotal(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT COUNT(*) FROM data").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectQuery("SELECT * FROM data LIMIT 2 OFFSET 0").
		WillReturnRows(sqlmock.NewRows([]string{"name", "age"}).
			AddRow("Alice", int64(30)).
			AddRow("Bob", int64(25)))

	result, err := Normalize(context.Background(), db, "SELECT * FROM data LIMIT 2 OFFSET 0")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if result.Total != 3 {
		t.Fatalf("Total = %d, want 3", result.Total)
	}
	if len(result.Columns) != 2 || result.Columns[0] != "name" {
		t.Fatalf("Columns = %v", result.Columns)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("rows = %d", len(result.Rows))
	}
	for _, row := range result.Rows {
		if len(row) != len(result.Columns) {
			t.Fatalf("row length %d != columns length %d", len(row), len(result.Columns))
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestNormalizeExecutesRawStatementVerbatim(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	statement := Build(Page{Search: "Bob", SQL: "SELECT COUNT(*) as c FROM data", Limit: 10, Columns: []string{"name"}})

	mock.ExpectQuery("SELECT COUNT(*) FROM data").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectQuery("SELECT COUNT(*) as c FROM data").
		WillReturnRows(sqlmock.NewRows([]string{"c"}).AddRow(int64(3)))

	result, err := Normalize(context.Background(), db, statement)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(result.Columns) != 1 || result.Columns[0] != "c" {
		t.Fatalf("Columns = %v, want the raw statement's projection", result.Columns)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("raw SQL did not win over search: %v", err)
	}
}

func TestNormalizeStringifiesWideIntegers(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	wide := int64(9007199254740993) // not representable as a float64
	mock.ExpectQuery("SELECT COUNT(*) FROM data").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT * FROM data LIMIT 1 OFFSET 0").
		WillReturnRows(sqlmock.NewRows([]string{"id", "note"}).AddRow(wide, "x"))

	result, err := Normalize(context.Background(), db, "SELECT * FROM data LIMIT 1 OFFSET 0")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if result.Rows[0][0] != "9007199254740993" {
		t.Fatalf("wide integer = %#v, want decimal string", result.Rows[0][0])
	}
	if result.Rows[0][1] != "x" {
		t.Fatalf("text value = %#v", result.Rows[0][1])
	}
}

func TestNormalizeValuesConvertsBigIntAndBytes(t *testing.T) {
	huge := new(big.Int)
	huge.SetString("170141183460469231731687303715884105727", 10)
	values := normalizeValues([]any{huge, []byte("raw"), int32(7), 1.5, nil})
	if values[0] != "170141183460469231731687303715884105727" {
		t.Fatalf("big.Int = %#v", values[0])
	}
	if values[1] != "raw" {
		t.Fatalf("bytes = %#v", values[1])
	}
	if values[2] != int32(7) {
		t.Fatalf("int32 should pass through, got %#v", values[2])
	}
	if values[3] != 1.5 {
		t.Fatalf("float should pass through, got %#v", values[3])
	}
	if values[4] != nil {
		t.Fatalf("nil should pass through, got %#v", values[4])
	}
}

func TestNormalizeRecoversColumnsWithLimitZeroProbe(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	statement := "SELECT * FROM data WHERE 1=0"
	mock.ExpectQuery("SELECT COUNT(*) FROM data").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(5)))
	mock.ExpectQuery(statement).
		WillReturnRows(sqlmock.NewRows([]string{}))
	mock.ExpectQuery(statement + " LIMIT 0").
		WillReturnRows(sqlmock.NewRows([]string{"name", "age"}))

	result, err := Normalize(context.Background(), db, statement)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(result.Columns) != 2 {
		t.Fatalf("Columns = %v, want recovered schema", result.Columns)
	}
	if len(result.Rows) != 0 {
		t.Fatalf("rows = %d, want 0", len(result.Rows))
	}
	if result.Total != 5 {
		t.Fatalf("Total = %d, want 5", result.Total)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestNormalizeWrapsEngineFailures(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT COUNT(*) FROM data").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectQuery("SELEC typo").
		WillReturnError(errors.New("syntax error near SELEC"))

	_, err = Normalize(context.Background(), db, "SELEC typo")
	var queryErr *Error
	if !errors.As(err, &queryErr) {
		t.Fatalf("error = %v, want *query.Error", err)
	}
	if queryErr.Statement != "SELEC typo" {
		t.Fatalf("Statement = %q", queryErr.Statement)
	}
}
