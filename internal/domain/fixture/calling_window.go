package fixture

import (
	"slices"
	"time"
)

// Permitted calling hours run from WindowOpenHour (inclusive) to WindowCloseHour (exclusive), UTC.
const (
	WindowOpenHour  = 3
	WindowCloseHour = 22
)

// QuietHours are the hours-of-day a contact attempt must not fall in.
// Violation injection picks uniformly from this list.
var QuietHours = []int{0, 1, 2, 22, 23}

// IsQuietHour reports whether ts falls outside the permitted calling window
func IsQuietHour(ts time.Time) bool {
	return slices.Contains(QuietHours, ts.UTC().Hour())
}

// ShiftIntoWindow moves a quiet-hour timestamp forward to the next window opening,
// keeping minutes and seconds. Early-morning hours move to the same day, late-evening
// hours to the following day, so the shift is never more than 5h (22:xx to 03:xx).
// In-window timestamps are returned unchanged.
func ShiftIntoWindow(ts time.Time) time.Time {
	ts = ts.UTC()
	if !IsQuietHour(ts) {
		return ts
	}
	h := ts.Hour()
	if h < WindowOpenHour {
		return ts.Add(time.Duration(WindowOpenHour-h) * time.Hour)
	}
	return ts.Add(time.Duration(24-h+WindowOpenHour) * time.Hour)
}

// ForceQuietHour overwrites the hour-of-day of ts with hour, keeping date, minutes and seconds.
// When the result would precede floor it is pushed forward one day.
//
// For an in-window ts the result is at most 20h later (03:xx to 23:xx on the same
// date); a pushed result lies less than 24h after floor.
func ForceQuietHour(ts time.Time, hour int, floor time.Time) time.Time {
	ts = ts.UTC()
	forced := ts.Add(time.Duration(hour-ts.Hour()) * time.Hour)
	if forced.Before(floor) {
		forced = forced.Add(24 * time.Hour)
	}
	return forced
}
