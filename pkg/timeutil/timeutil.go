// Package timeutil converts timestamps to the zone the room lives in.
// The dashboard clock and the simulator's day cycle both follow it, while
// storage keeps UTC.
package timeutil

import (
	"fmt"
	"time"
)

// WIB is Western Indonesia Time (UTC+7, no DST).
var WIB = time.FixedZone("WIB", 7*60*60)

// Common formats.
const (
	// FormatClock is the dashboard clock (HH:MM:SS).
	FormatClock = time.TimeOnly
	// FormatDateTimeSeconds includes seconds.
	FormatDateTimeSeconds = "2006-01-02 15:04:05"
)

// LoadZone resolves an IANA zone name. "WIB" maps to the fixed WIB zone
// so hosts without tzdata still start. Empty returns nil, which keeps
// timestamps in their own location.
func LoadZone(name string) (*time.Location, error) {
	switch name {
	case "":
		return nil, nil
	case "WIB":
		return WIB, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timeutil: unknown zone %q: %w", name, err)
	}
	return loc, nil
}

// In converts t to loc. A nil loc leaves t unchanged.
func In(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t
	}
	return t.In(loc)
}

// Clock formats t as HH:MM:SS in loc.
func Clock(t time.Time, loc *time.Location) string {
	return In(t, loc).Format(FormatClock)
}

// HourOfDay returns the fractional hour of t in loc.
func HourOfDay(t time.Time, loc *time.Location) float64 {
	t = In(t, loc)
	return float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
}
