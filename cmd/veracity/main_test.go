package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// run executes the CLI in-process with a shared temp config and returns
// combined output.
func run(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append([]string{"--config", configPath, "--log-level", "error"}, args...))
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "veracity.yaml")
	yaml := fmt.Sprintf("data_dir: %s\nledger_path: %s\nhome_locations: [US]\n",
		filepath.Join(dir, "cases"), filepath.Join(dir, "ledger.db"))
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeSignInCSV(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("Timestamp,User Principal,IP Address,Application,Status,Error Code,Conditional Access Status,Location,Client App\n")
	for i := 0; i < 20; i++ {
		status, code, loc := "Success", "0", "US"
		if i%4 == 3 {
			status, code, loc = "Failure", "50126", "RO"
		}
		fmt.Fprintf(&b, "2024-03-01T09:%02d:00Z,user%d@contoso.example,10.0.0.%d,Outlook,%s,%s,notApplied,%s,Browser\n",
			i, i%5, i, status, code, loc)
	}
	path := filepath.Join(dir, "SignInLogs.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCLI_FullFlow(t *testing.T) {
	dir := t.TempDir()
	configPath := writeConfig(t, dir)
	csvPath := writeSignInCSV(t, dir)

	out, err := run(t, configPath, "case", "new", "--name", "tenant breach review")
	if err != nil {
		t.Fatalf("case new: %v\n%s", err, out)
	}
	var caseID string
	for _, line := range strings.Split(out, "\n") {
		if rest, ok := strings.CutPrefix(line, "Case:"); ok {
			caseID = strings.TrimSpace(rest)
		}
	}
	if caseID == "" {
		t.Fatalf("no case id in output:\n%s", out)
	}

	out, err = run(t, configPath, "import", "--case", caseID, csvPath)
	if err != nil {
		t.Fatalf("import: %v\n%s", err, out)
	}
	if !strings.Contains(out, "20 imported") {
		t.Fatalf("import output:\n%s", out)
	}

	// Second import of the same file is a zero-effect success.
	out, err = run(t, configPath, "import", "--case", caseID, csvPath)
	if err != nil {
		t.Fatalf("re-import: %v\n%s", err, out)
	}
	if !strings.Contains(out, "already imported") {
		t.Fatalf("re-import output:\n%s", out)
	}

	out, err = run(t, configPath, "verify", "--case", caseID)
	if err != nil {
		t.Fatalf("verify: %v\n%s", err, out)
	}
	if !strings.Contains(out, "records=20") || !strings.Contains(out, "field used: status") {
		t.Fatalf("verify output:\n%s", out)
	}

	out, err = run(t, configPath, "timeline", "--case", caseID, "--actor", "user1@contoso.example")
	if err != nil {
		t.Fatalf("timeline: %v\n%s", err, out)
	}
	if !strings.Contains(out, "events across all log types") {
		t.Fatalf("timeline output:\n%s", out)
	}

	out, err = run(t, configPath, "status", "--case", caseID)
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	for _, want := range []string{"signin", "Imports: (1)", "Quality assessments: (1)", "Verification summaries: (1)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestCLI_UnknownCaseRefused(t *testing.T) {
	configPath := writeConfig(t, t.TempDir())
	out, err := run(t, configPath, "status", "--case", "no-such-case")
	if err == nil {
		t.Fatalf("expected error, got:\n%s", out)
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Fatalf("error %v", err)
	}
}
