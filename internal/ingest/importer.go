package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"veracity/internal/config"
	"veracity/internal/digest"
	"veracity/internal/logging"
	"veracity/internal/logtype"
	"veracity/internal/quality"
	"veracity/internal/store"
)

// ParserVersion is stamped on every import record so a parser change is
// visible in provenance.
const ParserVersion = "1"

// RowError is one recoverable per-row parse failure.
type RowError struct {
	Line int
	Msg  string
}

func (e RowError) String() string { return fmt.Sprintf("line %d: %s", e.Line, e.Msg) }

// Result is the outcome of one import call.
type Result struct {
	SourceID    string
	ContentHash string
	LogType     logtype.LogType
	// Imported counts newly inserted rows; Skipped counts natural-key
	// duplicates; Failed counts malformed rows excluded from the file.
	Imported int
	Failed   int
	Skipped  int
	// DuplicateSource is set when the exact (content hash, log type) was
	// already ingested and the call was a zero-effect no-op.
	DuplicateSource bool
	Errors          []RowError
	Duration        time.Duration
}

// Importer runs the import pipeline against one case store.
type Importer struct {
	store *store.CaseStore
	cfg   *config.Config
	log   *slog.Logger
}

// New returns an importer bound to one case store.
func New(s *store.CaseStore, cfg *config.Config) *Importer {
	return &Importer{store: s, cfg: cfg, log: logging.New("importer")}
}

// ImportFile ingests one CSV file as the given log type.
// Missing files are fatal and propagate unchanged.
func (imp *Importer) ImportFile(ctx context.Context, path string, lt logtype.LogType) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	return imp.ImportReader(ctx, path, data, lt)
}

// ImportReader ingests an in-memory source (zip entries, tests) under a
// synthetic source id.
func (imp *Importer) ImportReader(ctx context.Context, sourceID string, data []byte, lt logtype.LogType) (*Result, error) {
	start := time.Now()
	hash := digest.Sum(data)

	// Idempotency check before any parsing: byte-identical re-ingestion
	// short-circuits to a zero-effect result.
	prev, err := imp.store.FindImportByHash(hash, lt)
	if err != nil {
		return nil, err
	}
	if prev != nil {
		imp.log.Info("duplicate source skipped",
			"source", sourceID, "hash", hash, "type", lt.String(), "first_seen", prev.CreatedAt)
		return &Result{
			SourceID: sourceID, ContentHash: hash, LogType: lt,
			DuplicateSource: true, Duration: time.Since(start),
		}, nil
	}

	res := &Result{SourceID: sourceID, ContentHash: hash, LogType: lt}
	records, rowErrs, err := imp.parse(ctx, data, lt)
	if err != nil {
		return nil, err
	}
	res.Errors = rowErrs
	res.Failed = len(rowErrs)

	// One transaction for the whole file: the gate must be able to discard
	// the entire import, provenance record included, in one rollback.
	tx, err := imp.store.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	importID, err := tx.BeginImport(sourceID, hash, lt, ParserVersion)
	if err != nil {
		return nil, err
	}

	inserted := make([]logtype.Record, 0, len(records))
	for _, rec := range records {
		ok, err := tx.InsertRecord(lt, importID, rec)
		if err != nil {
			return nil, err
		}
		if ok {
			res.Imported++
			inserted = append(inserted, rec)
		} else {
			res.Skipped++
		}
	}

	// Quality gate over the newly inserted slice, pre-commit.
	assessment := quality.Evaluate(inserted, lt.Spec().RelevantFields, imp.cfg.Quality)
	if !assessment.Passed {
		gateErr := &quality.GateError{
			LogType: lt.String(),
			Score:   assessment.Score,
			Fields:  assessment.UnreliableFields(),
		}
		imp.log.Warn("quality gate rejected import, rolling back",
			"source", sourceID, "type", lt.String(),
			"score", assessment.Score, "fields", gateErr.Fields)
		return nil, gateErr
	}
	for _, w := range assessment.Warnings {
		imp.log.Warn("quality warning", "source", sourceID, "type", lt.String(), "warning", w)
	}

	res.Duration = time.Since(start)
	if _, err := tx.InsertAssessment(&store.QualityAssessment{
		LogType:  lt.String(),
		ImportID: importID,
		Score:    assessment.Score,
		Passed:   true,
		Warnings: assessment.WarningText(),
	}); err != nil {
		return nil, err
	}
	if err := tx.FinishImport(importID, res.Imported, res.Failed, res.Skipped, res.Duration); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	imp.log.Info("import committed",
		"source", sourceID, "type", lt.String(),
		"imported", res.Imported, "failed", res.Failed, "skipped", res.Skipped,
		"duration", res.Duration)
	return res, nil
}

// parse reads the CSV, detects the date order over the whole file, and
// normalizes rows. Malformed rows become RowErrors; they never abort the
// file.
func (imp *Importer) parse(ctx context.Context, data []byte, lt logtype.LogType) ([]logtype.Record, []RowError, error) {
	spec := lt.Spec()
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}

	type rawRow struct {
		line   int
		fields map[string]string
		raw    string
	}
	var rows []rawRow
	var rowErrs []RowError
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		start := r.InputOffset()
		record, err := r.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Msg: err.Error()})
			continue
		}
		fields, err := spec.Normalize(header, record)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Msg: err.Error()})
			continue
		}
		// The opaque payload is the row's original bytes, quoting and all,
		// not a canonical re-render.
		raw := string(bytes.TrimRight(data[start:r.InputOffset()], "\r\n"))
		rows = append(rows, rawRow{line: line, fields: fields, raw: raw})
	}

	// Date-order detection needs the whole file before any row resolves.
	dates := make([]string, 0, len(rows))
	for _, row := range rows {
		dates = append(dates, row.fields[spec.TimeField])
	}
	dayFirst := DetectDayFirst(dates, imp.cfg.LocaleDayFirst)

	out := make([]logtype.Record, 0, len(rows))
	for _, row := range rows {
		ts, err := ParseTimestamp(row.fields[spec.TimeField], dayFirst)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: row.line, Msg: err.Error()})
			continue
		}
		out = append(out, logtype.Record{
			Time:   ts,
			Actor:  row.fields[spec.ActorField],
			Origin: row.fields[spec.OriginField],
			Fields: row.fields,
			Raw:    row.raw,
		})
	}
	return out, rowErrs, nil
}
