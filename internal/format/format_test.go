package format

import "testing"

func TestDetectKnownExtensions(t *testing.T) {
	cases := map[string]Kind{
		"/tmp/people.csv":      CSV,
		"/tmp/people.tsv":      TSV,
		"/tmp/events.parquet":  Parquet,
		"/tmp/report.xlsx":     XLSX,
		"/tmp/payload.json":    JSON,
		"/tmp/feed.xml":        XML,
		"/tmp/REPORT.XLSX":     XLSX,
		"/tmp/Mixed.Tsv":       TSV,
		"relative/orders.JSON": JSON,
	}
	for path, want := range cases {
		if got := Detect(path); got != want {
			t.Fatalf("Detect(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestDetectDefaultsToCSV(t *testing.T) {
	for _, path := range []string{"/tmp/data.txt", "/tmp/data.dat", "/tmp/noext", "/tmp/archive.tar.gz", ""} {
		if got := Detect(path); got != CSV {
			t.Fatalf("Detect(%q) = %v, want CSV", path, got)
		}
	}
}

func TestSanitizeColumnCollapsesWhitespaceRuns(t *testing.T) {
	cases := map[string]string{
		"first name":       "first_name",
		"first   name":     "first_name",
		"first\tname":      "first_name",
		"first \t\n name":  "first_name",
		" leading":         "_leading",
		"trailing ":        "trailing_",
		"already_clean":    "already_clean",
		"":                 "",
		"a b c":            "a_b_c",
		"tab\tand  spaces": "tab_and_spaces",
	}
	for in, want := range cases {
		if got := SanitizeColumn(in); got != want {
			t.Fatalf("SanitizeColumn(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeColumnIsIdempotent(t *testing.T) {
	samples := []string{
		"first name", "a  b\tc", "", "_", "x", "col 1", "col\n\n2", "no change",
	}
	for _, s := range samples {
		once := SanitizeColumn(s)
		twice := SanitizeColumn(once)
		if once != twice {
			t.Fatalf("SanitizeColumn not idempotent for %q: %q != %q", s, once, twice)
		}
	}
}

func TestSanitizeColumnsKeepsOrder(t *testing.T) {
	got := SanitizeColumns([]string{"a b", "c", "d  e"})
	want := []string{"a_b", "c", "d_e"}
	if len(got) != len(want) {
		t.Fatalf("len = %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SanitizeColumns[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
