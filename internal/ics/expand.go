package ics

import (
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "classcal/internal/log"
	"classcal/internal/model"
	"classcal/internal/schedule"
)

const maxOccurrencesPerEvent = 5000

// ImportOptions controls how events become schedule keys.
type ImportOptions struct {
	Scheme   schedule.Scheme
	Location *time.Location

	// From and Days bound recurrence expansion for date-keyed stores. A
	// zero From starts at each event's own DTSTART; Days defaults to 7.
	// Weekday-keyed stores always look at the first week of a rule.
	From time.Time
	Days int
}

type instance struct {
	key string
	at  time.Time
	rec model.ClassRecord
}

// ToDays turns parsed events into the days of a store with opts.Scheme.
// A recurring event contributes one record per occurrence (date scheme)
// or per weekday it falls on (weekday scheme). Exceptions and overridden
// instances only matter to the date scheme. All-day events carry no
// class time and are skipped. A record that fails validation rejects the
// whole document with an ImportError.
func ToDays(events []Event, opts ImportOptions) ([]model.DayClasses, error) {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Days <= 0 {
		opts.Days = 7
	}
	if opts.Scheme != schedule.SchemeDate {
		opts.Scheme = schedule.SchemeWeekday
	}

	base := make([]Event, 0, len(events))
	overrides := make(map[string][]Event)
	for _, ev := range events {
		if ev.Recurrence != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
		} else {
			base = append(base, ev)
		}
	}
	if len(base) == 0 {
		return nil, &schedule.ImportError{Reason: "calendar has no events"}
	}

	var out []instance
	skipped := 0
	for _, ev := range base {
		for _, start := range occurrences(ev, opts) {
			inst := ev
			if opts.Scheme == schedule.SchemeDate {
				if o, ok := findOverride(overrides[ev.UID], start); ok {
					inst = o
					start = o.Start
				}
			}
			if inst.AllDay {
				skipped++
				continue
			}
			start = start.In(opts.Location)
			rec, err := schedule.NewRecord(inst.Summary, inst.Teacher, start.Format("15:04"))
			if err != nil {
				return nil, &schedule.ImportError{Reason: fmt.Sprintf("event %q: %v", ev.UID, err)}
			}
			key := start.Weekday().String()
			if opts.Scheme == schedule.SchemeDate {
				key = start.Format(schedule.DateLayout)
			}
			out = append(out, instance{key: key, at: start, rec: rec})
		}
	}
	if skipped > 0 {
		appLog.Warn("ics all-day events skipped", "count", skipped)
	}
	if len(out) == 0 {
		return nil, &schedule.ImportError{Reason: "calendar has no timed events"}
	}

	sortInstances(out, opts.Scheme)
	return group(out), nil
}

// occurrences lists the instance starts of ev that the import looks at.
func occurrences(ev Event, opts ImportOptions) []time.Time {
	if ev.RawRRule == "" {
		return []time.Time{ev.Start}
	}

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return []time.Time{ev.Start}
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)

	from := ev.Start
	days := 7
	if opts.Scheme == schedule.SchemeDate {
		for _, ex := range ev.ExDates {
			set.ExDate(ex.In(ev.Start.Location()))
		}
		days = opts.Days
		if !opts.From.IsZero() {
			from = opts.From.In(ev.Start.Location())
		}
	}
	to := from.AddDate(0, 0, days).Add(-time.Nanosecond)

	times := set.Between(from, to, true)
	if len(times) > maxOccurrencesPerEvent {
		appLog.Warn("ics: occurrences truncated", "uid", ev.UID, "cap", maxOccurrencesPerEvent)
		times = times[:maxOccurrencesPerEvent]
	}
	return times
}

func findOverride(overrides []Event, start time.Time) (Event, bool) {
	for _, o := range overrides {
		if o.Recurrence.Equal(start) {
			return o, true
		}
	}
	return Event{}, false
}

// sortInstances orders date keys chronologically and weekday keys from
// Monday, each by time of day.
func sortInstances(out []instance, scheme schedule.Scheme) {
	if scheme == schedule.SchemeDate {
		sort.SliceStable(out, func(i, j int) bool { return out[i].at.Before(out[j].at) })
		return
	}
	rank := func(in instance) int {
		wd := (int(in.at.Weekday()) + 6) % 7
		return wd*24*60 + in.at.Hour()*60 + in.at.Minute()
	}
	sort.SliceStable(out, func(i, j int) bool { return rank(out[i]) < rank(out[j]) })
}

func group(out []instance) []model.DayClasses {
	var days []model.DayClasses
	pos := map[string]int{}
	for _, in := range out {
		p, ok := pos[in.key]
		if !ok {
			p = len(days)
			pos[in.key] = p
			days = append(days, model.DayClasses{Key: in.key})
		}
		days[p].Classes = append(days[p].Classes, in.rec)
	}
	return days
}
