// Package quality scores field reliability for a freshly inserted slice of
// rows. It exists because of a real failure mode: a 100%-uniform column was
// once trusted as ground truth and produced a wrong breach conclusion. A
// uniform column carries zero discriminative information, so the gate flags
// it, and a file whose relevant columns are collectively uninformative is
// rejected before commit.
package quality

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"veracity/internal/config"
	"veracity/internal/logtype"
)

// FieldStat is the value-distribution summary of one relevant column.
type FieldStat struct {
	Field     string
	Rows      int
	Distinct  int
	Uniform   bool
	Diversity float64 // normalized Shannon entropy, 0..1
	Top       string  // most common value
	TopShare  float64
}

// Assessment is the gate verdict for one assessed row set.
type Assessment struct {
	Score       float64
	Passed      bool
	SmallSample bool
	Warnings    []string
	Fields      []FieldStat
}

// UnreliableFields lists the columns individually flagged uniform.
func (a Assessment) UnreliableFields() []string {
	var out []string
	for _, f := range a.Fields {
		if f.Uniform {
			out = append(out, f.Field)
		}
	}
	return out
}

// WarningText renders the warnings for persistence alongside the assessment.
func (a Assessment) WarningText() string {
	return strings.Join(a.Warnings, "; ")
}

// GateError is the structured data-quality failure: the import is rolled
// back and the caller gets the numeric score plus the offending fields.
type GateError struct {
	LogType string
	Score   float64
	Fields  []string
}

func (e *GateError) Error() string {
	return fmt.Sprintf("data quality below threshold for %s: score %.2f, unreliable fields: %s",
		e.LogType, e.Score, strings.Join(e.Fields, ", "))
}

// Evaluate scores the relevant columns of rows under the given policy.
// A log type with no relevant columns, or an empty row set, trivially
// passes: there is nothing to mistrust yet.
func Evaluate(rows []logtype.Record, relevant []string, policy config.QualityPolicy) Assessment {
	if len(rows) == 0 || len(relevant) == 0 {
		return Assessment{Score: 1, Passed: true}
	}

	a := Assessment{Fields: make([]FieldStat, 0, len(relevant))}
	varying := 0
	var diversitySum float64
	for _, field := range relevant {
		stat := Distribution(rows, field)
		a.Fields = append(a.Fields, stat)
		if stat.Uniform {
			a.Warnings = append(a.Warnings, fmt.Sprintf(
				"column %s is uniform (%q across all %d rows): carries no discriminative information",
				field, stat.Top, stat.Rows))
			continue
		}
		varying++
		diversitySum += stat.Diversity
	}

	fracNonUniform := float64(varying) / float64(len(relevant))
	meanDiversity := 0.0
	if varying > 0 {
		meanDiversity = diversitySum / float64(varying)
	}
	a.Score = policy.NonUniformWeight*fracNonUniform + policy.DiversityWeight*meanDiversity

	if len(rows) < policy.MinSampleRows {
		a.SmallSample = true
		a.Score *= policy.SmallSampleFactor
		a.Warnings = append(a.Warnings, fmt.Sprintf(
			"small sample: %d rows (below %d), score discounted", len(rows), policy.MinSampleRows))
	}
	if a.Score > 1 {
		a.Score = 1
	}
	a.Passed = a.Score >= policy.PassThreshold
	return a
}

// Distribution computes the value distribution of one column. A column
// absent from the data is uniformly empty, which is just as untrustworthy
// as any other single-valued column.
func Distribution(rows []logtype.Record, field string) FieldStat {
	counts := map[string]int{}
	for _, r := range rows {
		counts[r.Fields[field]]++
	}

	stat := FieldStat{Field: field, Rows: len(rows), Distinct: len(counts)}
	// Sorted iteration keeps Top deterministic on ties.
	keys := make([]string, 0, len(counts))
	for v := range counts {
		keys = append(keys, v)
	}
	sort.Strings(keys)
	topN := -1
	for _, v := range keys {
		if counts[v] > topN {
			stat.Top, topN = v, counts[v]
		}
	}
	stat.TopShare = float64(topN) / float64(len(rows))
	stat.Uniform = stat.Distinct == 1

	if stat.Distinct > 1 {
		var h float64
		for _, n := range counts {
			p := float64(n) / float64(len(rows))
			h -= p * math.Log2(p)
		}
		stat.Diversity = h / math.Log2(float64(stat.Distinct))
	}
	return stat
}
