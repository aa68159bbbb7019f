package ics

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "classcal/internal/log"
	"classcal/internal/model"
	"classcal/internal/schedule"
)

// PropertyTeacher carries the teacher of a class event.
const PropertyTeacher = ical.ComponentProperty("X-CLASSCAL-TEACHER")

const propertyRecurrenceID = ical.ComponentProperty("RECURRENCE-ID")

// teacherPrefix is how exported DESCRIPTION values introduce the teacher.
const teacherPrefix = "Teacher:"

// Event is the part of a VEVENT a class import cares about.
type Event struct {
	UID     string
	Summary string
	Teacher string

	Start  time.Time
	End    time.Time
	AllDay bool

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID, if this VEVENT overrides one instance
}

// Parse reads every VEVENT of an iCalendar document. Times without a zone
// are read in loc. Events that cannot be read are skipped and logged; a
// document that cannot be parsed at all is an error.
func Parse(r io.Reader, loc *time.Location) ([]Event, error) {
	if loc == nil {
		loc = time.Local
	}
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	events := make([]Event, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp, loc)
		if perr != nil {
			appLog.Warn("ics vevent skipped", "err", perr)
			continue
		}
		events = append(events, ev)
	}
	appLog.Debug("ics parse completed", "event_count", len(events))
	return events, nil
}

// Read parses an iCalendar document into store days. Every failure is an
// *schedule.ImportError.
func Read(r io.Reader, opts ImportOptions) ([]model.DayClasses, error) {
	events, err := Parse(r, opts.Location)
	if err != nil {
		return nil, &schedule.ImportError{Reason: err.Error()}
	}
	return ToDays(events, opts)
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (Event, error) {
	var out Event

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.UID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = strings.TrimSpace(p.Value)
	}
	out.Teacher = teacherOf(ve)

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, fmt.Errorf("event %q: missing DTSTART", out.UID)
	}
	if vs := dtStart.ICalParameters["VALUE"]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		out.AllDay = true
	}
	if !strings.Contains(dtStart.Value, "T") {
		out.AllDay = true
	}

	var err error
	if out.AllDay {
		out.Start, err = parseICSTime(dtStart.Value, loc)
	} else if _, zoned := dtStart.ICalParameters["TZID"]; zoned || strings.HasSuffix(dtStart.Value, "Z") {
		out.Start, err = ve.GetStartAt()
	} else {
		out.Start, err = parseICSTime(dtStart.Value, loc)
	}
	if err != nil {
		return out, fmt.Errorf("event %q: DTSTART: %w", out.UID, err)
	}
	out.Start = out.Start.In(loc)
	if end, err := ve.GetEndAt(); err == nil {
		out.End = end.In(loc)
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, loc); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}
	if p := ve.GetProperty(propertyRecurrenceID); p != nil {
		if t, err := parseICSTime(p.Value, loc); err == nil {
			out.Recurrence = &t
		}
	}
	return out, nil
}

// teacherOf prefers the dedicated property and falls back to a
// "Teacher: ..." DESCRIPTION.
func teacherOf(ve *ical.VEvent) string {
	if p := ve.GetProperty(PropertyTeacher); p != nil && strings.TrimSpace(p.Value) != "" {
		return strings.TrimSpace(p.Value)
	}
	p := ve.GetProperty(ical.ComponentPropertyDescription)
	if p == nil {
		return ""
	}
	desc := strings.TrimSpace(p.Value)
	if len(desc) >= len(teacherPrefix) && strings.EqualFold(desc[:len(teacherPrefix)], teacherPrefix) {
		desc = desc[len(teacherPrefix):]
	}
	if i := strings.IndexAny(desc, "\r\n"); i >= 0 {
		desc = desc[:i]
	}
	return strings.TrimSpace(desc)
}

// parseICSTime handles the bare DATE, floating DATE-TIME and UTC forms used
// by EXDATE and RECURRENCE-ID values.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if strings.HasSuffix(v, "Z") {
		t, err := time.Parse("20060102T150405Z", v)
		return t.In(loc), err
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	return time.ParseInLocation("20060102", v, loc)
}
