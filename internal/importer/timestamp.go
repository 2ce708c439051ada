package importer

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// millisecondFloor is the magnitude above which a numeric timestamp is
// treated as Unix milliseconds rather than seconds. 1e11 seconds is beyond
// year 5000, while every plausible millisecond value exceeds it.
const millisecondFloor = 1e11

// isoLayouts are tried in order for string timestamps.
var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// normalizeUnix converts a numeric timestamp to Unix seconds, dividing
// millisecond-magnitude values.
func normalizeUnix(v float64) int64 {
	if v >= millisecondFloor || v <= -millisecondFloor {
		return int64(v / 1000)
	}
	return int64(v)
}

// parseTimestamp accepts the timestamp shapes that occur across export
// formats: Unix seconds, Unix milliseconds (detected by magnitude) and
// ISO-8601 variants with or without fractional seconds and timezone
// offsets. Decoded JSON values arrive as float64, json.Number or string.
func parseTimestamp(v interface{}) (int64, bool) {
	switch t := v.(type) {
	case float64:
		if t == 0 {
			return 0, false
		}
		return normalizeUnix(t), true
	case json.Number:
		if f, err := t.Float64(); err == nil && f != 0 {
			return normalizeUnix(f), true
		}
		return 0, false
	case string:
		return parseTimeString(t)
	default:
		return 0, false
	}
}

// parseTimeString parses a single string timestamp, numeric or ISO-8601.
func parseTimeString(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f == 0 {
			return 0, false
		}
		return normalizeUnix(f), true
	}
	for _, layout := range isoLayouts {
		if tm, err := time.Parse(layout, s); err == nil {
			return tm.Unix(), true
		}
	}
	return 0, false
}
