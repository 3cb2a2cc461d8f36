// Package clock supplies wall-clock time and the small set of
// strftime-style formats the access log, tinylog headers, feed entries, and
// archive filenames need. The WiFi/NTP/mDNS collaborators that would keep
// this clock accurate on the target hardware are out of scope (spec §1);
// this package only consumes a *time.Location and time.Now.
package clock

import "time"

// Clock supplies the current time in a given location. Production code
// uses Real; tests use Fixed for determinism.
type Clock interface {
	Now() time.Time
}

// Real returns the actual wall-clock time converted to loc.
type Real struct {
	Loc *time.Location
}

func (r Real) Now() time.Time {
	loc := r.Loc
	if loc == nil {
		loc = time.UTC
	}
	return time.Now().In(loc)
}

// Fixed always returns the same instant; used in tests.
type Fixed struct {
	At time.Time
}

func (f Fixed) Now() time.Time { return f.At }

// LoadLocation resolves a TZ-string (e.g. "America/Chicago") to a
// *time.Location, falling back to UTC for an empty string.
func LoadLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(tz)
}

// AccessLogFormat renders a timestamp as spec §4.13's
// "[dd/Mon/YYYY:HH:MM:SS ±HHMM]" (the Apache common-log-format style).
func AccessLogFormat(t time.Time) string {
	return "[" + t.Format("02/Jan/2006:15:04:05 -0700") + "]"
}

// ArchiveStamp renders a timestamp as "YYYYMMDD-HHMMSS", used for archive
// copy filenames (spec §4.8) and the /cpio and /<host>-*.cpio endpoints.
func ArchiveStamp(t time.Time) string {
	return t.Format("20060102-150405")
}

// TinylogHeader renders a timestamp as "YYYY-MM-DD HH:MM TZ", the tinylog
// "## " entry header (spec §4.8).
func TinylogHeader(t time.Time) string {
	return t.Format("2006-01-02 15:04 MST")
}

// FeedDate renders a timestamp as "YYYY-MM-DD", the date prefix used by the
// Gemini feed generator (spec §4.10).
func FeedDate(t time.Time) string {
	return t.Format("2006-01-02")
}
