package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"classcal/internal/model"
)

var rruleWeekday = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// Upcoming returns the classes occurring from now on within windowDays,
// ordered by instant. Classes sharing an instant keep canonical order.
//
// Date-keyed stores report classes in [now, now+windowDays]. Weekday-keyed
// stores expand each weekday over the windowDays calendar days starting
// today, so a class on today's weekday only counts if it has not started.
// Keys of the other kind, or of neither kind, are skipped.
func (s *Store) Upcoming(now time.Time, windowDays int) ([]model.Occurrence, error) {
	out := []model.Occurrence{}
	if windowDays <= 0 {
		return out, nil
	}
	now = now.In(s.loc)

	var err error
	if s.scheme == SchemeDate {
		out, err = s.upcomingByDate(out, now, windowDays)
	} else {
		out, err = s.upcomingByWeekday(out, now, windowDays)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].At.Before(out[j].At)
	})
	return out, nil
}

func (s *Store) upcomingByDate(out []model.Occurrence, now time.Time, windowDays int) ([]model.Occurrence, error) {
	end := now.AddDate(0, 0, windowDays)
	for _, key := range s.keys {
		day, ok := ParseDateKey(key, s.loc)
		if !ok {
			continue
		}
		if day.After(end) || !day.AddDate(0, 0, 1).After(now) {
			continue
		}
		for i, rec := range s.classes[key] {
			tod, err := recordTime(key, i, rec)
			if err != nil {
				return nil, err
			}
			at := tod.On(day)
			if at.Before(now) || at.After(end) {
				continue
			}
			out = append(out, model.Occurrence{
				Key:   key,
				Day:   day.Weekday().String(),
				Index: i,
				Class: rec,
				At:    at,
			})
		}
	}
	return out, nil
}

func (s *Store) upcomingByWeekday(out []model.Occurrence, now time.Time, windowDays int) ([]model.Occurrence, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	// Last second of the final calendar day in the window.
	end := today.AddDate(0, 0, windowDays).Add(-time.Second)

	for _, key := range s.keys {
		wd, ok := weekdayByName[key]
		if !ok {
			continue
		}
		if offset := (int(wd) - int(today.Weekday()) + 7) % 7; offset >= windowDays {
			continue
		}
		for i, rec := range s.classes[key] {
			tod, err := recordTime(key, i, rec)
			if err != nil {
				return nil, err
			}
			rule, err := rrule.NewRRule(rrule.ROption{
				Freq:      rrule.WEEKLY,
				Byweekday: []rrule.Weekday{rruleWeekday[wd]},
				Dtstart:   tod.On(today),
			})
			if err != nil {
				return nil, fmt.Errorf("weekly rule for %s: %w", key, err)
			}
			for _, at := range rule.Between(now, end, true) {
				out = append(out, model.Occurrence{
					Key:   key,
					Day:   key,
					Index: i,
					Class: rec,
					At:    at,
				})
			}
		}
	}
	return out, nil
}

func recordTime(key string, index int, rec model.ClassRecord) (TimeOfDay, error) {
	tod, err := ParseTimeOfDay(rec.Time)
	if err != nil {
		return TimeOfDay{}, validationErr(fmt.Sprintf("%s[%d].time", key, index), fmt.Sprintf("%q is not a time of day", rec.Time))
	}
	return tod, nil
}
