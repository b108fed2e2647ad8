package models

import (
	"strconv"
	"strings"
	"time"
)

// TimeFormat is the canonical envelope timestamp form. Every timestamp that
// crosses the queue is UTC in this layout so downstream ordering is
// deterministic.
const TimeFormat = "2006-01-02T15:04:05Z"

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

var feedTimeLayouts = []string{
	TimeFormat,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"20060102-1504",
	"2006-01-02_1504",
	"2006-01-02",
}

// ParseFeedTimestamp reads the timestamp forms providers actually publish:
// the compact YYYYMMDDHHMM used in file names, ISO 8601 variants, and a few
// date-only shapes. ok is false when nothing matched.
func ParseFeedTimestamp(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if t, ok := parseCompactYMDHM(s); ok {
		return t, true
	}
	for _, layout := range feedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseCompactYMDHM accepts YYYYMMDDHHMM only when it reads as a plausible
// calendar instant; otherwise a 12-digit barcode-ish value would pass.
func parseCompactYMDHM(s string) (time.Time, bool) {
	if len(s) != 12 {
		return time.Time{}, false
	}
	if _, err := strconv.Atoi(s); err != nil {
		return time.Time{}, false
	}
	t, err := time.Parse("200601021504", s)
	if err != nil {
		return time.Time{}, false
	}
	if t.Year() < 2010 || t.Year() > 2099 {
		return time.Time{}, false
	}
	return t.UTC(), true
}
