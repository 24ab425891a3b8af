// Package store is the per-case persistence layer. Each case owns exactly
// one SQLite file under the data dir; stores are physically isolated per
// case id, so concurrent cases never contend on each other's locks.
package store

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

// nowUTC returns the current UTC time as an ISO 8601 string.
func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

// ImportRecord is one ingested file or archive entry. (content_hash,
// log_type) is unique: byte-identical re-ingestion is detected before
// parsing.
type ImportRecord struct {
	ID            int64
	SourceID      string
	ContentHash   string
	LogType       string
	Imported      int
	Failed        int
	Skipped       int
	DurationMs    int64
	ParserVersion string
	CreatedAt     string
}

// QualityAssessment is the gate verdict for one (table, import) pair,
// written in the same transaction as the rows it assesses.
type QualityAssessment struct {
	ID        int64
	LogType   string
	ImportID  int64
	Score     float64
	Passed    bool
	Warnings  string
	CreatedAt string
}

// VerificationSummary is the case-level determination for one log type.
type VerificationSummary struct {
	ID            int64
	LogType       string
	Status        string
	FieldUsed     string
	Records       int
	Successes     int
	Failures      int
	Indeterminate int
	SuccessRate   float64
	Notes         string
	CreatedAt     string
}

// CaseStore is one case's SQLite store.
type CaseStore struct {
	db     *sql.DB
	caseID string
}

// Path returns the store file for a case id under dataDir.
func Path(dataDir, caseID string) string {
	return filepath.Join(dataDir, caseID+".db")
}

// Open opens or creates the store for caseID under dataDir and migrates it.
func Open(dataDir, caseID string) (*CaseStore, error) {
	if caseID == "" {
		return nil, errors.New("case id is empty")
	}
	path := Path(dataDir, caseID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &CaseStore{db: db, caseID: caseID}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// CaseID returns the owning case id.
func (s *CaseStore) CaseID() string { return s.caseID }

// Close closes the database connection.
func (s *CaseStore) Close() error { return s.db.Close() }

func (s *CaseStore) migrate() error {
	var tableCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableCount == 0 {
		return s.freshInstall()
	}

	var v int
	err = s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read schema version: %w", err)
	}
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion1); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		v = schemaVersion1
	}
	if v != schemaVersion1 {
		return fmt.Errorf("unknown schema version %d", v)
	}
	return nil
}

func (s *CaseStore) freshInstall() error {
	if _, err := s.db.Exec(schemaMeta); err != nil {
		return fmt.Errorf("create meta schema: %w", err)
	}
	for _, table := range factTables {
		ddl := fmt.Sprintf(factTableDDL, table, table, table, table, table, table, table)
		if _, err := s.db.Exec(ddl); err != nil {
			return fmt.Errorf("create fact table %s: %w", table, err)
		}
	}
	if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion1); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}

// tableFor maps a log type to its fact table, guarding against any table
// name ever reaching SQL from outside this package.
func tableFor(lt logtype.LogType) (string, error) {
	table := lt.Spec().Table
	for _, t := range factTables {
		if t == table {
			return t, nil
		}
	}
	return "", fmt.Errorf("no fact table for log type %q", lt)
}
