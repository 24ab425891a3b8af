package logtype

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		file string
		want LogType
		ok   bool
	}{
		{"SignInLogs_2024.csv", SignIn, true},
		{"exports/case-7/Interactivesignins.csv", SignIn, true},
		{"tenant-UAL.csv", UnifiedAudit, true},
		{"deep/nested/dir/UnifiedAuditLog.csv", UnifiedAudit, true},
		{"MailboxAuditExport.csv", MailboxAudit, true},
		{"AdminAuditRecords.csv", AdminAudit, true},
		{"MessageTraceResult.csv", MessageTrace, true},
		{"archive\\win\\SignIns.csv", SignIn, true},
		{"notes.txt", Unknown, false},
		{"randomexport.csv", Unknown, false},
	}
	for _, tc := range cases {
		got, ok := Detect(tc.file)
		if got != tc.want || ok != tc.ok {
			t.Errorf("Detect(%q) = %v,%v want %v,%v", tc.file, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParse_RoundTrip(t *testing.T) {
	for _, lt := range All() {
		got, err := Parse(lt.String())
		if err != nil {
			t.Fatalf("Parse(%q): %v", lt.String(), err)
		}
		if got != lt {
			t.Errorf("Parse(%q) = %v, want %v", lt.String(), got, lt)
		}
	}
	if _, err := Parse("telemetry"); err == nil {
		t.Error("expected error for unknown type name")
	}
}

func TestCanonicalField(t *testing.T) {
	cases := map[string]string{
		"Conditional Access Status": "conditional_access_status",
		"  IP address ":             "ip_address",
		"Error-Code":                "error_code",
		"\ufeffCreationTime":        "creationtime",
		"User_Principal":            "user_principal",
		"Client App ":               "client_app",
	}
	for in, want := range cases {
		if got := CanonicalField(in); got != want {
			t.Errorf("CanonicalField(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCanonicalNormalizer(t *testing.T) {
	header := []string{"Timestamp", "User Principal", "IP Address"}
	record := []string{"2024-03-01T10:00:00Z", " alice@contoso.com ", "203.0.113.5"}
	got, err := canonicalNormalizer(header, record)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := map[string]string{
		"timestamp":      "2024-03-01T10:00:00Z",
		"user_principal": "alice@contoso.com",
		"ip_address":     "203.0.113.5",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("fields (-want +got):\n%s", diff)
	}

	if _, err := canonicalNormalizer(header, record[:2]); err == nil {
		t.Error("expected error for short record")
	}
}

func TestSpecs_Complete(t *testing.T) {
	for _, lt := range All() {
		s := lt.Spec()
		if s.Table == "" || s.TimeField == "" || s.ActorField == "" || s.OriginField == "" {
			t.Errorf("%v: incomplete spec %+v", lt, s)
		}
		if len(s.NaturalKey) == 0 || len(s.RelevantFields) == 0 || len(s.AuthCandidates) == 0 {
			t.Errorf("%v: missing key/relevant/candidate fields", lt)
		}
		if s.Normalize == nil {
			t.Errorf("%v: nil normalizer", lt)
		}
	}
}
