package score

import (
	"fmt"
	"strings"
	"time"
)

// DayFormat is the canonical YYYY-MM-DD form of a scoring day.
const DayFormat = "2006-01-02"

// Day identifies a single UTC calendar day. Records are keyed by Day and all
// streak arithmetic is calendar arithmetic between Days. The zero value names
// no day.
type Day struct {
	t time.Time
}

// ParseDay interprets value in the canonical DayFormat.
func ParseDay(value string) (Day, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Day{}, fmt.Errorf("day must not be empty")
	}
	t, err := time.ParseInLocation(DayFormat, trimmed, time.UTC)
	if err != nil {
		return Day{}, fmt.Errorf("invalid day %q: %w", trimmed, err)
	}
	return Day{t: t}, nil
}

// MustParseDay parses value and panics on failure. Intended for fixtures.
func MustParseDay(value string) Day {
	day, err := ParseDay(value)
	if err != nil {
		panic(err)
	}
	return day
}

// DayOf truncates ts to the UTC calendar day containing it.
func DayOf(ts time.Time) Day {
	utc := ts.UTC()
	return Day{t: time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)}
}

// AddDays returns the day n calendar days after d. Negative n walks backwards.
func (d Day) AddDays(n int) Day {
	return Day{t: d.t.AddDate(0, 0, n)}
}

// Next returns the day immediately after d.
func (d Day) Next() Day { return d.AddDays(1) }

// Prev returns the day immediately before d.
func (d Day) Prev() Day { return d.AddDays(-1) }

// Sub returns the signed count of calendar days from other to d.
func (d Day) Sub(other Day) int {
	return int(d.t.Sub(other.t) / (24 * time.Hour))
}

// Before reports whether d falls before other.
func (d Day) Before(other Day) bool { return d.t.Before(other.t) }

// After reports whether d falls after other.
func (d Day) After(other Day) bool { return d.t.After(other.t) }

// Equal reports whether d and other name the same calendar day.
func (d Day) Equal(other Day) bool { return d.t.Equal(other.t) }

// IsZero reports whether d is the zero Day.
func (d Day) IsZero() bool { return d.t.IsZero() }

// Time returns the UTC midnight instant at which the day begins.
func (d Day) Time() time.Time { return d.t }

// String renders the canonical DayFormat form, or "" for the zero Day.
func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DayFormat)
}

// MarshalText implements encoding.TextMarshaler.
func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input yields the
// zero Day.
func (d *Day) UnmarshalText(text []byte) error {
	if len(strings.TrimSpace(string(text))) == 0 {
		*d = Day{}
		return nil
	}
	parsed, err := ParseDay(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
