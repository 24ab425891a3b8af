package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"veracity/internal/codec"
	"veracity/internal/logtype"
)

// FindImportByHash returns the import record for (contentHash, logType), or
// nil when this exact source was never ingested. This is the pre-parse
// idempotency check.
func (s *CaseStore) FindImportByHash(contentHash string, lt logtype.LogType) (*ImportRecord, error) {
	var r ImportRecord
	err := s.db.QueryRow(
		`SELECT id, source_id, content_hash, log_type, imported, failed, skipped,
		        duration_ms, parser_version, created_at
		 FROM import_records WHERE content_hash = ? AND log_type = ?`,
		contentHash, lt.String(),
	).Scan(&r.ID, &r.SourceID, &r.ContentHash, &r.LogType, &r.Imported, &r.Failed,
		&r.Skipped, &r.DurationMs, &r.ParserVersion, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find import by hash: %w", err)
	}
	return &r, nil
}

// ListImports returns all import records, oldest first.
func (s *CaseStore) ListImports() ([]*ImportRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, source_id, content_hash, log_type, imported, failed, skipped,
		        duration_ms, parser_version, created_at
		 FROM import_records ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer rows.Close()
	var out []*ImportRecord
	for rows.Next() {
		var r ImportRecord
		if err := rows.Scan(&r.ID, &r.SourceID, &r.ContentHash, &r.LogType, &r.Imported,
			&r.Failed, &r.Skipped, &r.DurationMs, &r.ParserVersion, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan import record: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// CountImports returns the number of import records for a log type.
func (s *CaseStore) CountImports(lt logtype.LogType) (int, error) {
	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM import_records WHERE log_type = ?", lt.String(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count imports: %w", err)
	}
	return n, nil
}

// CountRows returns the committed row count of a fact table.
func (s *CaseStore) CountRows(lt logtype.LogType) (int, error) {
	table, err := tableFor(lt)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s rows: %w", table, err)
	}
	return n, nil
}

// RowsByType returns all committed rows of a log type in event-time order,
// with the fields dict decompressed and decoded.
func (s *CaseStore) RowsByType(lt logtype.LogType) ([]logtype.Record, error) {
	table, err := tableFor(lt)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(
		"SELECT event_time, actor, origin, fields, raw FROM " + table + " ORDER BY event_time, id",
	)
	if err != nil {
		return nil, fmt.Errorf("read %s rows: %w", table, err)
	}
	defer rows.Close()
	var out []logtype.Record
	for rows.Next() {
		var eventTime, actor, origin string
		var fieldsBlob, rawBlob []byte
		if err := rows.Scan(&eventTime, &actor, &origin, &fieldsBlob, &rawBlob); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		rec, err := decodeRecord(eventTime, actor, origin, fieldsBlob, rawBlob)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func decodeRecord(eventTime, actor, origin string, fieldsBlob, rawBlob []byte) (logtype.Record, error) {
	var rec logtype.Record
	ts, err := time.Parse(time.RFC3339, eventTime)
	if err != nil {
		return rec, fmt.Errorf("parse stored event time %q: %w", eventTime, err)
	}
	fieldsJSON, err := codec.Decompress(fieldsBlob)
	if err != nil {
		return rec, err
	}
	fields := map[string]string{}
	if err := json.Unmarshal([]byte(fieldsJSON), &fields); err != nil {
		return rec, fmt.Errorf("decode fields dict: %w", err)
	}
	raw, err := codec.Decompress(rawBlob)
	if err != nil {
		return rec, err
	}
	rec.Time = ts
	rec.Actor = actor
	rec.Origin = origin
	rec.Fields = fields
	rec.Raw = raw
	return rec, nil
}

// Assessments returns every quality assessment, oldest first.
func (s *CaseStore) Assessments() ([]*QualityAssessment, error) {
	rows, err := s.db.Query(
		`SELECT id, log_type, import_id, score, passed, warnings, created_at
		 FROM quality_assessments ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	defer rows.Close()
	var out []*QualityAssessment
	for rows.Next() {
		var a QualityAssessment
		var passed int
		if err := rows.Scan(&a.ID, &a.LogType, &a.ImportID, &a.Score, &passed,
			&a.Warnings, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		a.Passed = passed == 1
		out = append(out, &a)
	}
	return out, rows.Err()
}

// UpsertSummary writes the verification summary for a log type, replacing
// any earlier run's summary for the same type.
func (s *CaseStore) UpsertSummary(v *VerificationSummary) error {
	if v == nil {
		return errors.New("summary is nil")
	}
	_, err := s.db.Exec(
		`INSERT INTO verification_summaries(log_type, status, field_used, records,
		        successes, failures, indeterminate, success_rate, notes, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(log_type) DO UPDATE SET
		        status = excluded.status, field_used = excluded.field_used,
		        records = excluded.records, successes = excluded.successes,
		        failures = excluded.failures, indeterminate = excluded.indeterminate,
		        success_rate = excluded.success_rate, notes = excluded.notes,
		        created_at = excluded.created_at`,
		v.LogType, v.Status, v.FieldUsed, v.Records,
		v.Successes, v.Failures, v.Indeterminate, v.SuccessRate, v.Notes, nowUTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}

// SummaryByType returns the verification summary for a log type, or nil.
func (s *CaseStore) SummaryByType(lt logtype.LogType) (*VerificationSummary, error) {
	var v VerificationSummary
	err := s.db.QueryRow(
		`SELECT id, log_type, status, field_used, records, successes, failures,
		        indeterminate, success_rate, notes, created_at
		 FROM verification_summaries WHERE log_type = ?`, lt.String(),
	).Scan(&v.ID, &v.LogType, &v.Status, &v.FieldUsed, &v.Records, &v.Successes,
		&v.Failures, &v.Indeterminate, &v.SuccessRate, &v.Notes, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}
	return &v, nil
}

// Summaries returns every verification summary.
func (s *CaseStore) Summaries() ([]*VerificationSummary, error) {
	rows, err := s.db.Query(
		`SELECT id, log_type, status, field_used, records, successes, failures,
		        indeterminate, success_rate, notes, created_at
		 FROM verification_summaries ORDER BY log_type`,
	)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()
	var out []*VerificationSummary
	for rows.Next() {
		var v VerificationSummary
		if err := rows.Scan(&v.ID, &v.LogType, &v.Status, &v.FieldUsed, &v.Records,
			&v.Successes, &v.Failures, &v.Indeterminate, &v.SuccessRate, &v.Notes,
			&v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}
