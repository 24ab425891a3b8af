package logtype

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// LogType is one category of exported audit data. Adding a log type means
// adding a variant here and registering its Spec in specs.go.
type LogType int

const (
	Unknown LogType = iota
	SignIn
	UnifiedAudit
	MailboxAudit
	AdminAudit
	MessageTrace
)

// Record is one normalized row of audit data. Fields holds the canonical
// field dictionary produced by the log type's normalizer; Raw is the original
// source row untouched.
type Record struct {
	Time   time.Time
	Actor  string
	Origin string
	Fields map[string]string
	Raw    string
}

// Normalizer maps a raw CSV header and record into the canonical field
// dictionary for its log type. Vendor-specific column renames live in
// external per-type mappers; the built-in normalizer is the canonical
// passthrough.
type Normalizer func(header, record []string) (map[string]string, error)

// Spec describes one log type: where its rows live, how they are keyed, and
// which columns the quality gate and verifier care about.
type Spec struct {
	Name     string
	Table    string
	Patterns []string // base-name globs, matched case-insensitively

	TimeField   string
	ActorField  string
	OriginField string
	// CountryField is the geographic origin column used by breach rollup.
	CountryField string

	// NaturalKey is the minimal field subset uniquely identifying a
	// real-world event. Enforced UNIQUE per case for row idempotence.
	NaturalKey []string
	// RelevantFields are the forensically relevant columns the quality gate
	// scores.
	RelevantFields []string
	// AuthCandidates are the candidate fields for the "did this event
	// succeed" role, evaluated by the verifier.
	AuthCandidates []string
	// SuccessValues and FailureValues classify an auth-candidate value.
	// Matching is case-insensitive.
	SuccessValues []string
	FailureValues []string

	Normalize Normalizer
}

func (t LogType) String() string {
	if s, ok := specs[t]; ok {
		return s.Name
	}
	return "unknown"
}

// Spec returns the registered Spec for the log type.
func (t LogType) Spec() Spec {
	return specs[t]
}

// All returns every registered log type in a stable order.
func All() []LogType {
	return []LogType{SignIn, UnifiedAudit, MailboxAudit, AdminAudit, MessageTrace}
}

// Parse resolves a log type by name.
func Parse(name string) (LogType, error) {
	for _, t := range All() {
		if specs[t].Name == strings.ToLower(strings.TrimSpace(name)) {
			return t, nil
		}
	}
	return Unknown, fmt.Errorf("unknown log type %q", name)
}

// Detect matches a source filename (at any nesting depth) against the
// registered base-name patterns.
func Detect(filename string) (LogType, bool) {
	base := strings.ToLower(path.Base(strings.ReplaceAll(filename, "\\", "/")))
	for _, t := range All() {
		for _, pat := range specs[t].Patterns {
			if ok, _ := path.Match(pat, base); ok {
				return t, true
			}
		}
	}
	return Unknown, false
}
