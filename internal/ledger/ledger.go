// Package ledger is the shared, append-only cross-case store of field
// reliability outcomes. It outlives any single case: every verification run
// appends what it learned, and later cases read the aggregate back as a
// prior. The handle is injected explicitly wherever it is needed; there is
// no process-wide singleton, so tests substitute isolated instances freely.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"veracity/internal/logtype"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS field_usage (
	id                     INTEGER PRIMARY KEY AUTOINCREMENT,
	case_id                TEXT NOT NULL,
	log_type               TEXT NOT NULL,
	field                  TEXT NOT NULL,
	reliability_score      REAL NOT NULL,
	was_used               INTEGER NOT NULL,
	verification_succeeded INTEGER NOT NULL,
	breach_detected        INTEGER NOT NULL,
	created_at             TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_field_usage_pair ON field_usage(log_type, field);
`

// Usage is one immutable field-reliability outcome.
type Usage struct {
	ID                    int64
	CaseID                string
	LogType               string
	Field                 string
	ReliabilityScore      float64
	WasUsed               bool
	VerificationSucceeded bool
	BreachDetected        bool
	CreatedAt             string
}

// Ledger is the shared store handle.
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger at path. The busy-timeout pragma lets
// concurrent case processes serialize on SQLite's own locking instead of an
// application-level cross-process mutex.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping ledger: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close closes the ledger connection.
func (l *Ledger) Close() error { return l.db.Close() }

// RecordUsage appends one immutable record. There is no update or delete.
func (l *Ledger) RecordUsage(u *Usage) error {
	if u == nil {
		return errors.New("usage is nil")
	}
	_, err := l.db.Exec(
		`INSERT INTO field_usage(case_id, log_type, field, reliability_score,
		        was_used, verification_succeeded, breach_detected, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		u.CaseID, u.LogType, u.Field, u.ReliabilityScore,
		boolToInt(u.WasUsed), boolToInt(u.VerificationSucceeded), boolToInt(u.BreachDetected),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record field usage: %w", err)
	}
	return nil
}

// HistoricalSuccessRate aggregates prior outcomes for (logType, field): the
// fraction of runs that selected the field and verified successfully, and how
// many records back it. Candidates that were scored but never selected do not
// count against the pair. A pair with no history returns (0, 0, nil); callers
// apply their own neutral prior. Resolves via the pair index, so lookups stay
// fast with hundreds of cases of history.
func (l *Ledger) HistoricalSuccessRate(lt logtype.LogType, field string) (float64, int, error) {
	var n, succeeded int
	err := l.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(verification_succeeded), 0)
		 FROM field_usage WHERE log_type = ? AND field = ? AND was_used = 1`,
		lt.String(), field,
	).Scan(&n, &succeeded)
	if err != nil {
		return 0, 0, fmt.Errorf("historical success rate: %w", err)
	}
	if n == 0 {
		return 0, 0, nil
	}
	return float64(succeeded) / float64(n), n, nil
}

// UsagesByCase returns every record appended for one case, oldest first.
func (l *Ledger) UsagesByCase(caseID string) ([]*Usage, error) {
	rows, err := l.db.Query(
		`SELECT id, case_id, log_type, field, reliability_score,
		        was_used, verification_succeeded, breach_detected, created_at
		 FROM field_usage WHERE case_id = ? ORDER BY id`, caseID,
	)
	if err != nil {
		return nil, fmt.Errorf("list usages: %w", err)
	}
	defer rows.Close()
	var out []*Usage
	for rows.Next() {
		var u Usage
		var used, succeeded, breach int
		if err := rows.Scan(&u.ID, &u.CaseID, &u.LogType, &u.Field, &u.ReliabilityScore,
			&used, &succeeded, &breach, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		u.WasUsed = used == 1
		u.VerificationSucceeded = succeeded == 1
		u.BreachDetected = breach == 1
		out = append(out, &u)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
