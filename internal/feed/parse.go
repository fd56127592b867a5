package feed

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

// parsedEvent is one VEVENT lifted out of an ICS payload before recurrence
// flattening.
type parsedEvent struct {
	UID     string
	Summary string
	Start   time.Time
	End     time.Time
	AllDay  bool
	RRule   string
	ExDates []time.Time
}

// parseICS extracts the VEVENTs from a feed body. Events that cannot be
// parsed are skipped so one bad entry does not poison the whole feed.
func parseICS(body []byte) ([]parsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty feed body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var events []parsedEvent
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(ve)
		if err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (parsedEvent, error) {
	var out parsedEvent

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}

	// All-day entries use VALUE=DATE (or a bare date) for DTSTART.
	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			out.AllDay = true
		}
		if !strings.Contains(p.Value, "T") {
			out.AllDay = true
		}
	}

	var err error
	if out.AllDay {
		out.Start, err = ve.GetAllDayStartAt()
		if err != nil {
			return out, err
		}
		out.End, err = ve.GetAllDayEndAt()
		if err != nil {
			out.End = out.Start.Add(24 * time.Hour)
		}
	} else {
		out.Start, err = ve.GetStartAt()
		if err != nil {
			return out, err
		}
		out.End, err = ve.GetEndAt()
		if err != nil {
			// DTEND is optional; a missing one means a point event.
			out.End = out.Start
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RRule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(strings.TrimSpace(part)); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	return out, nil
}

// parseICSTime handles the basic DATE, local DATE-TIME and UTC DATE-TIME
// forms used by EXDATE values.
func parseICSTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, time.UTC)
	}
	return time.ParseInLocation("20060102", v, time.UTC)
}
