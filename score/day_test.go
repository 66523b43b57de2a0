package score

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDayRoundTrip(t *testing.T) {
	day, err := ParseDay("2026-08-22")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := day.String(); got != "2026-08-22" {
		t.Fatalf("String() = %q, want 2026-08-22", got)
	}
	if day.Time().Hour() != 0 || day.Time().Location() != time.UTC {
		t.Fatalf("expected UTC midnight, got %v", day.Time())
	}
}

func TestParseDayRejectsMalformed(t *testing.T) {
	for _, value := range []string{"", "  ", "22-08-2026", "2026/08/22", "2026-13-01", "yesterday"} {
		if _, err := ParseDay(value); err == nil {
			t.Fatalf("ParseDay(%q) succeeded, want error", value)
		}
	}
}

func TestDayOfTruncates(t *testing.T) {
	zone := time.FixedZone("UTC+9", 9*60*60)
	ts := time.Date(2026, 8, 23, 3, 15, 0, 0, zone) // still 2026-08-22 in UTC
	if got := DayOf(ts).String(); got != "2026-08-22" {
		t.Fatalf("DayOf = %q, want 2026-08-22", got)
	}
}

func TestAddDaysAcrossBoundaries(t *testing.T) {
	cases := []struct {
		start string
		n     int
		want  string
	}{
		{"2026-02-28", 1, "2026-03-01"},
		{"2024-02-28", 1, "2024-02-29"},
		{"2026-01-01", -1, "2025-12-31"},
		{"2026-08-22", -30, "2026-07-23"},
	}
	for _, tc := range cases {
		if got := MustParseDay(tc.start).AddDays(tc.n).String(); got != tc.want {
			t.Fatalf("%s + %d days = %s, want %s", tc.start, tc.n, got, tc.want)
		}
	}
}

func TestNextPrev(t *testing.T) {
	day := MustParseDay("2026-02-28")
	if got := day.Next().String(); got != "2026-03-01" {
		t.Fatalf("Next = %s, want 2026-03-01", got)
	}
	if got := day.Prev().String(); got != "2026-02-27" {
		t.Fatalf("Prev = %s, want 2026-02-27", got)
	}
	if !day.Next().Prev().Equal(day) {
		t.Fatalf("Next then Prev should return to %s", day)
	}
}

func TestSubCountsWholeDays(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"2026-08-22", "2026-08-22", 0},
		{"2026-08-22", "2026-08-21", 1},
		{"2026-08-21", "2026-08-22", -1},
		{"2026-03-31", "2026-03-01", 30},
		{"2024-03-01", "2024-02-28", 2},
	}
	for _, tc := range cases {
		if got := MustParseDay(tc.a).Sub(MustParseDay(tc.b)); got != tc.want {
			t.Fatalf("%s - %s = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestDayOrdering(t *testing.T) {
	a := MustParseDay("2026-08-21")
	b := MustParseDay("2026-08-22")
	if !a.Before(b) || !b.After(a) {
		t.Fatalf("expected %s < %s", a, b)
	}
	if !a.Equal(MustParseDay("2026-08-21")) {
		t.Fatalf("expected equal days to compare equal")
	}
	if (Day{}).IsZero() != true {
		t.Fatalf("zero Day should report IsZero")
	}
}

func TestDayJSON(t *testing.T) {
	type payload struct {
		Day Day `json:"day"`
	}
	out, err := json.Marshal(payload{Day: MustParseDay("2026-08-22")})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"day":"2026-08-22"}` {
		t.Fatalf("marshal = %s", out)
	}
	var in payload
	if err := json.Unmarshal([]byte(`{"day":"2026-08-22"}`), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !in.Day.Equal(MustParseDay("2026-08-22")) {
		t.Fatalf("unmarshal = %s, want 2026-08-22", in.Day)
	}
	if err := json.Unmarshal([]byte(`{"day":"not-a-day"}`), &in); err == nil {
		t.Fatalf("expected error for malformed day")
	}
}
