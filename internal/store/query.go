package store

import (
	"fmt"
	"strings"

	"veracity/internal/codec"
)

// TimelineEntry is one cross-table hit in an actor or origin timeline.
type TimelineEntry struct {
	LogType   string
	EventTime string
	Actor     string
	Origin    string
	Raw       string
}

// ActivityByActor reconstructs the cross-table timeline for one actor
// identity, ordered by event time.
func (s *CaseStore) ActivityByActor(actor string) ([]TimelineEntry, error) {
	return s.timeline("actor", actor)
}

// ActivityByOrigin reconstructs the cross-table timeline for one network
// origin, ordered by event time.
func (s *CaseStore) ActivityByOrigin(origin string) ([]TimelineEntry, error) {
	return s.timeline("origin", origin)
}

// timeline unions every fact table on the given indexed column. Table and
// column names come from package constants, never from callers; the value is
// always a bound parameter.
func (s *CaseStore) timeline(column, value string) ([]TimelineEntry, error) {
	parts := make([]string, 0, len(factTables))
	args := make([]any, 0, len(factTables))
	for _, table := range factTables {
		parts = append(parts, fmt.Sprintf(
			"SELECT '%s' AS log_type, event_time, actor, origin, raw FROM %s WHERE %s = ?",
			table, table, column,
		))
		args = append(args, value)
	}
	q := strings.Join(parts, " UNION ALL ") + " ORDER BY event_time"

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("timeline query: %w", err)
	}
	defer rows.Close()
	var out []TimelineEntry
	for rows.Next() {
		var e TimelineEntry
		var rawBlob []byte
		if err := rows.Scan(&e.LogType, &e.EventTime, &e.Actor, &e.Origin, &rawBlob); err != nil {
			return nil, fmt.Errorf("scan timeline entry: %w", err)
		}
		raw, err := codec.Decompress(rawBlob)
		if err != nil {
			return nil, err
		}
		e.Raw = raw
		out = append(out, e)
	}
	return out, rows.Err()
}

// RawResult is the generic result of a parametrized report query.
type RawResult struct {
	Columns []string
	Rows    [][]string
}

// RawQuery executes a parametrized read query for external report
// generation. Arguments are always bound, never interpolated, which keeps
// injection impossible even in a single-tenant store.
func (s *CaseStore) RawQuery(query string, args ...any) (*RawResult, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("raw query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("raw query columns: %w", err)
	}
	res := &RawResult{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan raw row: %w", err)
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			switch x := v.(type) {
			case nil:
				row[i] = ""
			case []byte:
				text, err := codec.Decompress(x)
				if err != nil {
					return nil, err
				}
				row[i] = text
			default:
				row[i] = fmt.Sprintf("%v", x)
			}
		}
		res.Rows = append(res.Rows, row)
	}
	return res, rows.Err()
}
