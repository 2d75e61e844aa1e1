package payload

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DateLayouts are tried in order by ParseDate.
var DateLayouts = []string{
	"2006-01-02",          // YYYY-MM-DD
	time.RFC3339Nano,      // 2006-01-02T15:04:05.999999999Z07:00
	time.RFC3339,          // 2006-01-02T15:04:05Z07:00
	"2006-01-02T15:04:05", // ISO without zone
	"2006-01-02 15:04:05", // YYYY-MM-DD HH:MM:SS
	"02/01/2006",          // DD/MM/YYYY
	"2006-01",             // monthly buckets
}

// ParseDate tries every layout of DateLayouts; values without a zone are
// read in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range DateLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t.In(loc), nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q: %w", s, lastErr)
}

// Epochs are accepted only when they land within these years.
const (
	minEpochYear = 1970
	maxEpochYear = 9999
)

// DateValue converts a decoded JSON value into a time. Strings go through
// ParseDate; numbers are unix epochs, in milliseconds when they are too large
// to be seconds. Epochs outside minEpochYear..maxEpochYear are rejected.
func DateValue(v any, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	if s, ok := v.(string); ok {
		t, err := ParseDate(s, loc)
		return t, err == nil
	}
	n, ok := toNumber(v)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) || math.Abs(n) >= math.MaxInt64 {
		return time.Time{}, false
	}
	var t time.Time
	if math.Abs(n) >= 1e12 {
		t = time.UnixMilli(int64(n))
	} else {
		t = time.Unix(int64(n), 0)
	}
	if y := t.UTC().Year(); y < minEpochYear || y > maxEpochYear {
		return time.Time{}, false
	}
	return t.In(loc), true
}
