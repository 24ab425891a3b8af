package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"veracity/internal/config"
	"veracity/internal/logtype"
	"veracity/internal/quality"
	"veracity/internal/store"
)

const signinHeader = "Timestamp,User Principal,IP Address,Application,Status,Error Code,Conditional Access Status,Location,Client App"

// signinCSV builds a sign-in export with the scenario-A distribution: a
// 75/25 location split, a 90/10 conditional access split, and a 75/25
// status split over n rows.
func signinCSV(n int) []byte {
	var b strings.Builder
	b.WriteString(signinHeader + "\n")
	for i := 0; i < n; i++ {
		status, loc, ca := "Success", "US", "notApplied"
		if i%4 == 3 {
			status = "Failure"
			loc = "RO"
		}
		if i%10 == 9 {
			ca = "success"
		}
		fmt.Fprintf(&b, "2024-03-01T%02d:%02d:00Z,alice@contoso.com,203.0.113.%d,Exchange Online,%s,0,%s,%s,Browser\n",
			9+i/60, i%60, i%200, status, ca, loc)
	}
	return []byte(b.String())
}

// uniformCSV builds a file where every field but the timestamp is identical.
func uniformCSV(n int) []byte {
	var b strings.Builder
	b.WriteString(signinHeader + "\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "2024-03-01T10:%02d:00Z,alice@contoso.com,203.0.113.5,Exchange Online,Success,0,notApplied,US,Browser\n", i)
	}
	return []byte(b.String())
}

func newImporter(t *testing.T) (*Importer, *store.CaseStore) {
	t.Helper()
	s, err := store.Open(t.TempDir(), "case-ingest")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s, config.Default()), s
}

func TestImportReader_ScenarioA(t *testing.T) {
	imp, s := newImporter(t)

	res, err := imp.ImportReader(context.Background(), "signins.csv", signinCSV(20), logtype.SignIn)
	if err != nil {
		t.Fatalf("ImportReader: %v", err)
	}
	if res.Imported != 20 || res.Failed != 0 || res.Skipped != 0 {
		t.Fatalf("result: %+v", res)
	}
	if n, _ := s.CountRows(logtype.SignIn); n != 20 {
		t.Fatalf("persisted rows = %d, want 20", n)
	}

	// The passing gate still records its assessment, with warnings naming
	// the columns that stayed uniform.
	assessments, err := s.Assessments()
	if err != nil || len(assessments) != 1 {
		t.Fatalf("Assessments: %d err %v", len(assessments), err)
	}
	a := assessments[0]
	if !a.Passed || a.Score <= 0.5 {
		t.Fatalf("assessment: %+v", a)
	}
	if !strings.Contains(a.Warnings, "error_code") {
		t.Fatalf("warnings should name uniform error_code: %q", a.Warnings)
	}
}

func TestImportReader_IdempotentSecondCall(t *testing.T) {
	imp, s := newImporter(t)
	data := signinCSV(20)

	if _, err := imp.ImportReader(context.Background(), "signins.csv", data, logtype.SignIn); err != nil {
		t.Fatalf("first import: %v", err)
	}
	res, err := imp.ImportReader(context.Background(), "signins.csv", data, logtype.SignIn)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if !res.DuplicateSource {
		t.Fatal("second import not flagged duplicate source")
	}
	if res.Imported != 0 || res.Failed != 0 || res.Skipped != 0 {
		t.Fatalf("duplicate import must be zero-effect: %+v", res)
	}
	if n, _ := s.CountRows(logtype.SignIn); n != 20 {
		t.Fatalf("rows after re-import = %d, want 20", n)
	}
	if n, _ := s.CountImports(logtype.SignIn); n != 1 {
		t.Fatalf("import records after re-import = %d, want 1", n)
	}
}

func TestImportReader_OverlappingWindowsNeverDuplicate(t *testing.T) {
	imp, s := newImporter(t)

	first := signinCSV(20)
	if _, err := imp.ImportReader(context.Background(), "day1.csv", first, logtype.SignIn); err != nil {
		t.Fatalf("first window: %v", err)
	}

	// Second export overlaps the first (same 20 rows) plus 10 new ones.
	overlap := string(signinCSV(30))
	res, err := imp.ImportReader(context.Background(), "day1-2.csv", []byte(overlap), logtype.SignIn)
	if err != nil {
		t.Fatalf("second window: %v", err)
	}
	if res.Imported != 10 || res.Skipped != 20 {
		t.Fatalf("overlap result: %+v", res)
	}
	if n, _ := s.CountRows(logtype.SignIn); n != 30 {
		t.Fatalf("rows = %d, want 30", n)
	}
}

func TestImportReader_MalformedRowsDoNotAbort(t *testing.T) {
	imp, s := newImporter(t)

	data := string(signinCSV(20))
	data += "not-a-timestamp,bob@contoso.com,203.0.113.201,Exchange Online,Failure,50126,notApplied,RO,Browser\n"
	data += "short,row\n"

	res, err := imp.ImportReader(context.Background(), "signins.csv", []byte(data), logtype.SignIn)
	if err != nil {
		t.Fatalf("ImportReader: %v", err)
	}
	if res.Imported != 20 || res.Failed != 2 {
		t.Fatalf("result: %+v", res)
	}
	if len(res.Errors) != 2 {
		t.Fatalf("row errors: %+v", res.Errors)
	}
	for _, re := range res.Errors {
		if re.Line == 0 || re.Msg == "" {
			t.Fatalf("row error missing position or text: %+v", re)
		}
	}
	if n, _ := s.CountRows(logtype.SignIn); n != 20 {
		t.Fatalf("rows = %d, want 20", n)
	}
}

func TestImportReader_AtomicRejection(t *testing.T) {
	imp, s := newImporter(t)

	_, err := imp.ImportReader(context.Background(), "uniform.csv", uniformCSV(20), logtype.SignIn)
	var gateErr *quality.GateError
	if !errors.As(err, &gateErr) {
		t.Fatalf("want GateError, got %v", err)
	}
	if gateErr.Score >= 0.5 {
		t.Fatalf("gate error score = %v", gateErr.Score)
	}
	if len(gateErr.Fields) == 0 {
		t.Fatal("gate error names no offending fields")
	}

	// Zero rows persist, including the import-tracking entry.
	if n, _ := s.CountRows(logtype.SignIn); n != 0 {
		t.Fatalf("rows after rejection = %d, want 0", n)
	}
	if n, _ := s.CountImports(logtype.SignIn); n != 0 {
		t.Fatalf("import records after rejection = %d, want 0", n)
	}
	if assessments, _ := s.Assessments(); len(assessments) != 0 {
		t.Fatalf("assessments after rejection = %d, want 0", len(assessments))
	}

	// The case is recoverable: a fixed source then imports cleanly.
	if _, err := imp.ImportReader(context.Background(), "fixed.csv", signinCSV(20), logtype.SignIn); err != nil {
		t.Fatalf("import after rejection: %v", err)
	}
}

func TestImportReader_SlashDatesDisambiguated(t *testing.T) {
	imp, s := newImporter(t)

	// 13/02 proves day-first for the whole file, so 05/03 is 5 March.
	data := signinHeader + "\n" +
		"13/02/2024 11:30:00,alice@contoso.com,203.0.113.5,Exchange Online,Success,0,notApplied,US,Browser\n" +
		"05/03/2024 10:00:00,alice@contoso.com,203.0.113.6,Exchange Online,Failure,50126,success,RO,Browser\n"
	if _, err := imp.ImportReader(context.Background(), "dayfirst.csv", []byte(data), logtype.SignIn); err != nil {
		t.Fatalf("ImportReader: %v", err)
	}

	rows, err := s.RowsByType(logtype.SignIn)
	if err != nil || len(rows) != 2 {
		t.Fatalf("rows: %d err %v", len(rows), err)
	}
	// Ordered by event time: 13 Feb, then 5 Mar.
	if rows[0].Time.Month() != 2 || rows[0].Time.Day() != 13 {
		t.Fatalf("row 0 time = %v", rows[0].Time)
	}
	if rows[1].Time.Month() != 3 || rows[1].Time.Day() != 5 {
		t.Fatalf("row 1 time = %v, want 5 March", rows[1].Time)
	}
}

// The stored payload must be the row's original bytes. A canonical
// re-render would drop source quoting and make the column non-opaque.
func TestImportReader_RawPayloadIsSourceBytes(t *testing.T) {
	imp, s := newImporter(t)

	quoted := `2024-03-01T09:00:00Z,alice@contoso.com,203.0.113.5,Exchange Online,Success,0,notApplied,"Rio, BR",Browser`
	plain := `2024-03-01T09:01:00Z,bob@contoso.com,203.0.113.6,Exchange Online,Failure,50126,success,US,Browser`
	data := signinHeader + "\n" + quoted + "\r\n" + plain + "\n"
	if _, err := imp.ImportReader(context.Background(), "quoted.csv", []byte(data), logtype.SignIn); err != nil {
		t.Fatalf("ImportReader: %v", err)
	}

	rows, err := s.RowsByType(logtype.SignIn)
	if err != nil || len(rows) != 2 {
		t.Fatalf("rows: %d err %v", len(rows), err)
	}
	if rows[0].Raw != quoted {
		t.Fatalf("raw payload re-rendered:\n got %q\nwant %q", rows[0].Raw, quoted)
	}
	if rows[1].Raw != plain {
		t.Fatalf("raw payload re-rendered:\n got %q\nwant %q", rows[1].Raw, plain)
	}
	if rows[0].Fields["location"] != "Rio, BR" {
		t.Fatalf("quoted field lost: %q", rows[0].Fields["location"])
	}
}

func TestImportFile_MissingIsFatal(t *testing.T) {
	imp, _ := newImporter(t)
	_, err := imp.ImportFile(context.Background(), "/no/such/export.csv", logtype.SignIn)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("source error should propagate unchanged, got %v", err)
	}
}

func TestImportDir(t *testing.T) {
	imp, s := newImporter(t)
	dir := t.TempDir()
	sub := filepath.Join(dir, "exports")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "SignInLogs.csv"), signinCSV(20), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("ignore me"), 0o644); err != nil {
		t.Fatal(err)
	}

	results, err := imp.ImportDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("ImportDir: %v", err)
	}
	if len(results) != 1 || results[0].Imported != 20 {
		t.Fatalf("results: %+v", results)
	}
	if n, _ := s.CountRows(logtype.SignIn); n != 20 {
		t.Fatalf("rows = %d", n)
	}
}

func TestImportZip_NestedEntries(t *testing.T) {
	imp, s := newImporter(t)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("tenant/2024-03/SignInLogs.csv")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(signinCSV(20)); err != nil {
		t.Fatal(err)
	}
	if w, err = zw.Create("notes/readme.txt"); err != nil {
		t.Fatal(err)
	}
	_, _ = w.Write([]byte("not a log"))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	zipPath := filepath.Join(t.TempDir(), "export.zip")
	if err := os.WriteFile(zipPath, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	results, err := imp.ImportZip(context.Background(), zipPath)
	if err != nil {
		t.Fatalf("ImportZip: %v", err)
	}
	if len(results) != 1 || results[0].Imported != 20 {
		t.Fatalf("results: %+v", results)
	}
	want := "export.zip:tenant/2024-03/SignInLogs.csv"
	if results[0].SourceID != want {
		t.Fatalf("source id = %q, want %q", results[0].SourceID, want)
	}
	if n, _ := s.CountRows(logtype.SignIn); n != 20 {
		t.Fatalf("rows = %d", n)
	}
}

func TestImportZip_Corrupt(t *testing.T) {
	imp, _ := newImporter(t)
	path := filepath.Join(t.TempDir(), "broken.zip")
	if err := os.WriteFile(path, []byte("PK\x03\x04 garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := imp.ImportZip(context.Background(), path); err == nil {
		t.Fatal("expected error for corrupt archive")
	}
}

func TestImportSource_Dispatch(t *testing.T) {
	imp, _ := newImporter(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "SignInLogs.csv")
	if err := os.WriteFile(file, signinCSV(20), 0o644); err != nil {
		t.Fatal(err)
	}

	results, err := imp.ImportSource(context.Background(), file)
	if err != nil || len(results) != 1 {
		t.Fatalf("file dispatch: %d results err %v", len(results), err)
	}
	if _, err := imp.ImportSource(context.Background(), "/no/such/path"); err == nil {
		t.Fatal("missing source must be fatal")
	}
}
