// Package verify decides, per log type, whether a case's committed records
// show a successful authentication from outside the tenant's home locations.
// It never hard-codes which column carries the auth outcome: candidate
// fields are scored per run, combining the in-case value distribution with
// the shared ledger's track record for the (log type, field) pair, and a
// uniform field is never trusted no matter what the history says.
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"veracity/internal/config"
	"veracity/internal/ledger"
	"veracity/internal/logging"
	"veracity/internal/logtype"
	"veracity/internal/quality"
	"veracity/internal/store"
)

// State is one step of the per-(case, log type) verification state machine.
type State int

const (
	NotVerified State = iota
	CandidateFieldsEvaluated
	FieldSelected
	DeterminationComputed
	NoReliableField
	VerificationFailed
)

var stateNames = map[State]string{
	NotVerified:              "not-verified",
	CandidateFieldsEvaluated: "candidate-fields-evaluated",
	FieldSelected:            "field-selected",
	DeterminationComputed:    "determination-computed",
	NoReliableField:          "no-reliable-field",
	VerificationFailed:       "verification-failed",
}

func (s State) String() string { return stateNames[s] }

// Summary statuses.
const (
	StatusBreach       = "breach-detected"
	StatusNoIndicators = "no-indicators"
	StatusFailed       = "verification-failed"
)

// Determinations and their confidence levels.
const (
	ConfirmedSuccess = "confirmed-success"
	LikelySuccess    = "likely-success"
	ConfirmedFailure = "confirmed-failure"
	Indeterminate    = "indeterminate"

	ConfidenceConfirmed     = 95
	ConfidenceLikely        = 70
	ConfidenceIndeterminate = 30
)

// FieldScore is one candidate field's reliability evaluation.
type FieldScore struct {
	Field      string
	InCase     float64 // normalized entropy of the in-case distribution
	Historical float64 // ledger success rate, or the neutral prior
	HistoryN   int     // ledger records backing Historical
	Combined   float64
	Rejected   bool
	Reason     string // set when Rejected
}

// Report is the full outcome of one verification run: the persisted summary
// plus the per-candidate scores and the state transitions that led there.
type Report struct {
	Summary *store.VerificationSummary
	Scores  []FieldScore
	States  []State
}

// Verifier runs the auth-outcome determination for one case store against
// the shared ledger.
type Verifier struct {
	store  *store.CaseStore
	ledger *ledger.Ledger
	cfg    *config.Config
	log    *slog.Logger
}

func New(s *store.CaseStore, l *ledger.Ledger, cfg *config.Config) *Verifier {
	return &Verifier{store: s, ledger: l, cfg: cfg, log: logging.New("verifier")}
}

// Run verifies one log type and upserts the resulting summary. A run that
// ends in verification-failed is a recorded outcome, not an error; errors
// are reserved for storage and ledger failures.
func (v *Verifier) Run(ctx context.Context, lt logtype.LogType) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	spec := lt.Spec()
	if spec.Name == "" {
		return nil, fmt.Errorf("no registered spec for log type %q", lt)
	}
	rep := &Report{States: []State{NotVerified}}

	rows, err := v.store.RowsByType(lt)
	if err != nil {
		return nil, fmt.Errorf("read rows for %s: %w", lt, err)
	}
	if len(rows) == 0 {
		rep.States = append(rep.States, VerificationFailed)
		rep.Summary = &store.VerificationSummary{
			LogType: lt.String(),
			Status:  StatusFailed,
			Notes:   "no committed records to verify",
		}
		v.log.Warn("nothing to verify", "case", v.store.CaseID(), "log_type", lt.String())
		return rep, v.store.UpsertSummary(rep.Summary)
	}

	rep.Scores = v.scoreCandidates(lt, spec, rows)
	rep.States = append(rep.States, CandidateFieldsEvaluated)

	selected := pickBest(rep.Scores)
	if selected == nil {
		rep.States = append(rep.States, NoReliableField, VerificationFailed)
		rep.Summary = &store.VerificationSummary{
			LogType: lt.String(),
			Status:  StatusFailed,
			Records: len(rows),
			Notes:   "no reliable candidate field; " + rejectionNotes(rep.Scores),
		}
		v.log.Warn("verification failed",
			"case", v.store.CaseID(), "log_type", lt.String(), "reason", "no reliable candidate field")
		if err := v.appendUsages(rep, false, false); err != nil {
			return nil, err
		}
		return rep, v.store.UpsertSummary(rep.Summary)
	}
	rep.States = append(rep.States, FieldSelected)
	v.log.Info("candidate field selected",
		"case", v.store.CaseID(), "log_type", lt.String(),
		"field", selected.Field, "combined", selected.Combined, "history_n", selected.HistoryN)

	summary := v.classify(lt, spec, rows, selected)
	summary.Notes = selectionNotes(selected, rep.Scores) + "; " + summary.Notes
	rep.Summary = summary
	rep.States = append(rep.States, DeterminationComputed)

	breach := summary.Status == StatusBreach
	if err := v.appendUsages(rep, true, breach); err != nil {
		return nil, err
	}
	if err := v.store.UpsertSummary(summary); err != nil {
		return nil, fmt.Errorf("store verification summary: %w", err)
	}
	v.log.Info("verification complete",
		"case", v.store.CaseID(), "log_type", lt.String(),
		"status", summary.Status, "records", summary.Records, "successes", summary.Successes)
	return rep, nil
}

// scoreCandidates evaluates every configured candidate field over rows.
// Uniform fields are rejected outright: a column with one value for every
// row cannot distinguish success from failure, whatever its history says.
func (v *Verifier) scoreCandidates(lt logtype.LogType, spec logtype.Spec, rows []logtype.Record) []FieldScore {
	candidates := spec.AuthCandidates
	if override, ok := v.cfg.CandidateFields[lt.String()]; ok && len(override) > 0 {
		candidates = override
	}
	scores := make([]FieldScore, 0, len(candidates))
	for _, field := range candidates {
		stat := quality.Distribution(rows, field)
		fs := FieldScore{Field: field, InCase: stat.Diversity}
		if stat.Uniform {
			fs.Rejected = true
			fs.Reason = fmt.Sprintf("uniform, every row %q", stat.Top)
			scores = append(scores, fs)
			continue
		}
		rate, n, err := v.ledger.HistoricalSuccessRate(lt, field)
		if err != nil {
			v.log.Warn("ledger lookup failed, using neutral prior", "field", field, "error", err)
			n = 0
		}
		if n == 0 {
			rate = v.cfg.Verify.NeutralPrior
		}
		fs.Historical = rate
		fs.HistoryN = n
		fs.Combined = v.cfg.Verify.InCaseWeight*fs.InCase + v.cfg.Verify.HistoryWeight*rate
		scores = append(scores, fs)
	}
	return scores
}

func pickBest(scores []FieldScore) *FieldScore {
	var best *FieldScore
	for i := range scores {
		s := &scores[i]
		if s.Rejected {
			continue
		}
		if best == nil || s.Combined > best.Combined {
			best = s
		}
	}
	return best
}

// classify maps every record's value in the selected field onto a
// determination and rolls the result up into a summary. Any confirmed
// success whose origin country is outside the configured home locations
// flips the status to breach-detected.
func (v *Verifier) classify(lt logtype.LogType, spec logtype.Spec, rows []logtype.Record, selected *FieldScore) *store.VerificationSummary {
	var successes, failures, indeterminate, foreign int
	for _, rec := range rows {
		det, _ := Classify(rec.Fields[selected.Field], spec)
		switch det {
		case ConfirmedSuccess:
			successes++
			if v.isForeign(rec.Fields[spec.CountryField]) {
				foreign++
			}
		case LikelySuccess:
			successes++
		case ConfirmedFailure:
			failures++
		default:
			indeterminate++
		}
	}

	summary := &store.VerificationSummary{
		LogType:       lt.String(),
		FieldUsed:     selected.Field,
		Records:       len(rows),
		Successes:     successes,
		Failures:      failures,
		Indeterminate: indeterminate,
		SuccessRate:   float64(successes) / float64(len(rows)),
	}
	if foreign > 0 {
		summary.Status = StatusBreach
		summary.Notes = fmt.Sprintf("%d confirmed successes from origins outside home locations %v",
			foreign, v.cfg.HomeLocations)
	} else {
		summary.Status = StatusNoIndicators
		summary.Notes = fmt.Sprintf("all confirmed successes within home locations %v", v.cfg.HomeLocations)
	}
	return summary
}

// Classify maps one field value onto a determination and a confidence.
// Matching is exact against the log type's vocabularies; a value that
// merely mentions success without an exact match is only likely, and an
// empty or unknown value decides nothing.
func Classify(value string, spec logtype.Spec) (string, int) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return Indeterminate, ConfidenceIndeterminate
	}
	for _, s := range spec.SuccessValues {
		if v == s {
			return ConfirmedSuccess, ConfidenceConfirmed
		}
	}
	for _, f := range spec.FailureValues {
		if v == f {
			return ConfirmedFailure, ConfidenceConfirmed
		}
	}
	if strings.Contains(v, "success") {
		return LikelySuccess, ConfidenceLikely
	}
	return Indeterminate, ConfidenceIndeterminate
}

func (v *Verifier) isForeign(country string) bool {
	c := strings.TrimSpace(country)
	if c == "" {
		return false
	}
	for _, home := range v.cfg.HomeLocations {
		if strings.EqualFold(c, home) {
			return false
		}
	}
	return true
}

// appendUsages writes one immutable ledger record per considered candidate.
// Only the selected field carries the run outcome; rejected and runner-up
// candidates are recorded for the audit trail without moving their prior.
func (v *Verifier) appendUsages(rep *Report, succeeded, breach bool) error {
	for _, s := range rep.Scores {
		used := rep.Summary.FieldUsed != "" && s.Field == rep.Summary.FieldUsed
		err := v.ledger.RecordUsage(&ledger.Usage{
			CaseID:                v.store.CaseID(),
			LogType:               rep.Summary.LogType,
			Field:                 s.Field,
			ReliabilityScore:      s.Combined,
			WasUsed:               used,
			VerificationSucceeded: used && succeeded,
			BreachDetected:        used && breach,
		})
		if err != nil {
			return fmt.Errorf("append ledger usage for %s: %w", s.Field, err)
		}
	}
	return nil
}

func selectionNotes(selected *FieldScore, scores []FieldScore) string {
	note := fmt.Sprintf("field used: %s (combined %.2f, in-case %.2f, history %.2f over %d runs)",
		selected.Field, selected.Combined, selected.InCase, selected.Historical, selected.HistoryN)
	if rej := rejectionNotes(scores); rej != "" {
		note += "; " + rej
	}
	return note
}

func rejectionNotes(scores []FieldScore) string {
	var parts []string
	for _, s := range scores {
		if s.Rejected {
			parts = append(parts, fmt.Sprintf("%s (%s)", s.Field, s.Reason))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "rejected: " + strings.Join(parts, ", ")
}
