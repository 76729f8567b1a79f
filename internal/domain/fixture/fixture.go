// Package fixture holds the immutable records of a synthetic lead-contact dataset:
// leads, their contact attempts, conversions and the do-not-call registry.
// Records are plain values; they are never mutated after generation.
package fixture

import (
	"strconv"
	"time"
)

// TimestampLayout is ISO-8601 at second precision with no zone suffix.
// All fixture timestamps are naive UTC.
const TimestampLayout = "2006-01-02T15:04:05"

// FormatTimestamp renders t in TimestampLayout after converting it to UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a TimestampLayout value as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, s, time.UTC)
}

func formatBool(b bool) string {
	return strconv.FormatBool(b)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
