package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Source exports write dates in a locale-ambiguous slash form (DD/MM vs
// MM/DD). The disambiguation heuristic is deliberately simple and is
// preserved exactly for forensic reproducibility: scan the file for any
// date whose first numeric component exceeds 12 (day-first) or whose second
// does (month-first), and fall back to the configured locale default when
// the whole file stays ambiguous.

// DetectDayFirst inspects every raw date value of a file and returns the
// detected component order. The first decisive value wins.
func DetectDayFirst(values []string, localeDayFirst bool) bool {
	for _, v := range values {
		first, second, ok := slashComponents(v)
		if !ok {
			continue
		}
		if first > 12 {
			return true
		}
		if second > 12 {
			return false
		}
	}
	return localeDayFirst
}

// slashComponents extracts the first two numeric components of a
// slash-separated date, ignoring ISO and other unambiguous forms.
func slashComponents(v string) (int, int, bool) {
	datePart := strings.Fields(strings.TrimSpace(v))
	if len(datePart) == 0 {
		return 0, 0, false
	}
	parts := strings.Split(datePart[0], "/")
	if len(parts) != 3 {
		return 0, 0, false
	}
	first, err1 := strconv.Atoi(parts[0])
	second, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return first, second, true
}

// isoLayouts are unambiguous forms accepted regardless of detection.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// slashTimeSuffixes are the time-of-day variants seen after a slash date.
var slashTimeSuffixes = []string{
	" 15:04:05",
	" 15:04",
	" 3:04:05 PM",
	" 3:04 PM",
	"",
}

// ParseTimestamp canonicalizes one raw timestamp under the detected
// component order. The result is always UTC.
func ParseTimestamp(value string, dayFirst bool) (time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range isoLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts.UTC(), nil
		}
	}

	dateLayout := "1/2/2006"
	if dayFirst {
		dateLayout = "2/1/2006"
	}
	for _, suffix := range slashTimeSuffixes {
		if ts, err := time.Parse(dateLayout+suffix, v); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", value)
}
