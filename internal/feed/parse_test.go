package feed

import (
	"strings"
	"testing"
	"time"
)

const sampleICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Test//Test//EN
BEGIN:VEVENT
UID:timed-1@example.com
SUMMARY:Soccer Practice
DTSTART:20250303T160000Z
DTEND:20250303T170000Z
RRULE:FREQ=WEEKLY;BYDAY=MO
EXDATE:20250310T160000Z
END:VEVENT
BEGIN:VEVENT
UID:allday-1@example.com
SUMMARY:Spring Break
DTSTART;VALUE=DATE:20250407
DTEND;VALUE=DATE:20250412
END:VEVENT
BEGIN:VEVENT
SUMMARY:No UID Here
DTSTART:20250303T100000Z
DTEND:20250303T110000Z
END:VEVENT
END:VCALENDAR
`

func TestParseICS(t *testing.T) {
	events, err := parseICS([]byte(sampleICS))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	// The UID-less VEVENT is skipped, not fatal.
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}

	timed := events[0]
	if timed.UID != "timed-1@example.com" {
		t.Errorf("uid = %q", timed.UID)
	}
	if timed.Summary != "Soccer Practice" {
		t.Errorf("summary = %q", timed.Summary)
	}
	if timed.AllDay {
		t.Error("timed event marked all-day")
	}
	wantStart := time.Date(2025, 3, 3, 16, 0, 0, 0, time.UTC)
	if !timed.Start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", timed.Start, wantStart)
	}
	if timed.End.Sub(timed.Start) != time.Hour {
		t.Errorf("duration = %v, want 1h", timed.End.Sub(timed.Start))
	}
	if timed.RRule != "FREQ=WEEKLY;BYDAY=MO" {
		t.Errorf("rrule = %q", timed.RRule)
	}
	if len(timed.ExDates) != 1 || !timed.ExDates[0].Equal(time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)) {
		t.Errorf("exdates = %v", timed.ExDates)
	}

	allDay := events[1]
	if !allDay.AllDay {
		t.Error("date-valued event not marked all-day")
	}
	if !allDay.Start.Equal(time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("all-day start = %v", allDay.Start)
	}
	if !allDay.End.After(allDay.Start) {
		t.Errorf("all-day end = %v not after start", allDay.End)
	}
}

func TestParseICSMissingDTEND(t *testing.T) {
	ics := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Test//Test//EN",
		"BEGIN:VEVENT",
		"UID:point-1@example.com",
		"SUMMARY:Reminder",
		"DTSTART:20250303T090000Z",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\n")

	events, err := parseICS([]byte(ics))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if !events[0].End.Equal(events[0].Start) {
		t.Errorf("point event end = %v, want start %v", events[0].End, events[0].Start)
	}
}

func TestParseICSEmptyBody(t *testing.T) {
	if _, err := parseICS(nil); err == nil {
		t.Fatal("expected error for empty body")
	}
}

func TestParseICSTime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"20250303T160000Z", time.Date(2025, 3, 3, 16, 0, 0, 0, time.UTC)},
		{"20250303T160000", time.Date(2025, 3, 3, 16, 0, 0, 0, time.UTC)},
		{"20250303", time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := parseICSTime(tc.in)
		if err != nil {
			t.Errorf("parseICSTime(%q): %v", tc.in, err)
			continue
		}
		if !got.Equal(tc.want) {
			t.Errorf("parseICSTime(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if _, err := parseICSTime(""); err == nil {
		t.Error("empty value should error")
	}
}

func TestFlatten(t *testing.T) {
	windowStart := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	windowEnd := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	parsed := []parsedEvent{
		{
			UID:     "weekly@example.com",
			Summary: "Soccer Practice",
			Start:   time.Date(2025, 3, 3, 16, 0, 0, 0, time.UTC),
			End:     time.Date(2025, 3, 3, 17, 0, 0, 0, time.UTC),
			RRule:   "FREQ=WEEKLY;BYDAY=MO",
			ExDates: []time.Time{time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)},
		},
		{
			UID:     "single@example.com",
			Summary: "Recital",
			Start:   time.Date(2025, 3, 15, 18, 0, 0, 0, time.UTC),
			End:     time.Date(2025, 3, 15, 19, 0, 0, 0, time.UTC),
		},
		{
			UID:     "outside@example.com",
			Summary: "Later",
			Start:   time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
			End:     time.Date(2025, 5, 1, 11, 0, 0, 0, time.UTC),
		},
		{
			UID:     "degenerate@example.com",
			Summary: "Zero Length",
			Start:   time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC),
			End:     time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC),
		},
	}

	events := flatten(parsed, windowStart, windowEnd)

	// Mondays in March: 3, 10 (excluded), 17, 24, 31 → 4 occurrences,
	// plus the single recital.
	if len(events) != 5 {
		t.Fatalf("got %d events, want 5", len(events))
	}
	for _, ev := range events {
		if ev.StartTime.Equal(time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC)) {
			t.Error("excluded occurrence present")
		}
		if ev.Title == "Later" || ev.Title == "Zero Length" {
			t.Errorf("unexpected event %q", ev.Title)
		}
	}
}
