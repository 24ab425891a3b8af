package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"veracity/internal/codec"
	"veracity/internal/digest"
	"veracity/internal/logtype"
)

// Tx is one import-call write transaction. Exactly one is open per import
// call; the pipeline always commits or rolls back before returning, so no
// partial state is ever visible to readers.
type Tx struct {
	tx *sql.Tx
}

// Begin opens the write transaction for one import call.
func (s *CaseStore) Begin() (*Tx, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin import tx: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Commit commits the import.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit import tx: %w", err)
	}
	return nil
}

// Rollback discards the import. Safe to call after Commit (no-op error is
// swallowed), which keeps `defer tx.Rollback()` usable as the abort path.
func (t *Tx) Rollback() {
	_ = t.tx.Rollback()
}

// BeginImport inserts the provenance record for this source with zero
// counts. It lives in the same transaction as the data rows, so a gate
// rollback also removes the import-tracking entry.
func (t *Tx) BeginImport(sourceID, contentHash string, lt logtype.LogType, parserVersion string) (int64, error) {
	res, err := t.tx.Exec(
		`INSERT INTO import_records(source_id, content_hash, log_type, parser_version, created_at)
		 VALUES(?, ?, ?, ?, ?)`,
		sourceID, contentHash, lt.String(), parserVersion, nowUTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert import record: %w", err)
	}
	return res.LastInsertId()
}

// FinishImport fills in the final counters once parsing and the gate are
// done.
func (t *Tx) FinishImport(importID int64, imported, failed, skipped int, duration time.Duration) error {
	_, err := t.tx.Exec(
		`UPDATE import_records SET imported = ?, failed = ?, skipped = ?, duration_ms = ?
		 WHERE id = ?`,
		imported, failed, skipped, duration.Milliseconds(), importID,
	)
	if err != nil {
		return fmt.Errorf("finish import record: %w", err)
	}
	return nil
}

// InsertRecord inserts one normalized row with insert-or-ignore semantics
// keyed on the natural-key unique constraint. Returns false when an
// identical event was already present (duplicate-skipped).
func (t *Tx) InsertRecord(lt logtype.LogType, importID int64, rec logtype.Record) (bool, error) {
	table, err := tableFor(lt)
	if err != nil {
		return false, err
	}
	spec := lt.Spec()
	keyVals := make([]string, 0, len(spec.NaturalKey))
	for _, f := range spec.NaturalKey {
		keyVals = append(keyVals, rec.Fields[f])
	}

	fieldsJSON, err := json.Marshal(rec.Fields)
	if err != nil {
		return false, fmt.Errorf("marshal fields: %w", err)
	}

	res, err := t.tx.Exec(
		fmt.Sprintf(`INSERT OR IGNORE INTO %s(event_time, actor, origin, natural_key, fields, raw, import_id, imported_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`, table),
		rec.Time.UTC().Format(time.RFC3339), rec.Actor, rec.Origin,
		digest.Key(keyVals...),
		codec.Compress(string(fieldsJSON)), codec.Compress(rec.Raw),
		importID, nowUTC(),
	)
	if err != nil {
		return false, fmt.Errorf("insert %s row: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// InsertAssessment persists the gate verdict inside the import transaction.
func (t *Tx) InsertAssessment(a *QualityAssessment) (int64, error) {
	passed := 0
	if a.Passed {
		passed = 1
	}
	res, err := t.tx.Exec(
		`INSERT INTO quality_assessments(log_type, import_id, score, passed, warnings, created_at)
		 VALUES(?, ?, ?, ?, ?, ?)`,
		a.LogType, a.ImportID, a.Score, passed, a.Warnings, nowUTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert assessment: %w", err)
	}
	return res.LastInsertId()
}
