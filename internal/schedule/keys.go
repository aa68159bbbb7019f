package schedule

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date form used for date keys.
const DateLayout = "2006-01-02"

// Scheme is how a store keys its classes.
type Scheme string

const (
	SchemeWeekday Scheme = "weekday"
	SchemeDate    Scheme = "date"
	// SchemeAuto picks weekday or date from the data a store is loaded with.
	SchemeAuto Scheme = "auto"
)

// ParseScheme accepts "weekday", "date" or "auto" (case-insensitive).
func ParseScheme(s string) (Scheme, error) {
	switch Scheme(strings.ToLower(strings.TrimSpace(s))) {
	case SchemeWeekday:
		return SchemeWeekday, nil
	case SchemeDate:
		return SchemeDate, nil
	case SchemeAuto, "":
		return SchemeAuto, nil
	}
	return "", fmt.Errorf("unknown key scheme %q", s)
}

// Weekdays lists weekday names Monday first.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

var weekdayByName = map[string]time.Weekday{
	"Monday":    time.Monday,
	"Tuesday":   time.Tuesday,
	"Wednesday": time.Wednesday,
	"Thursday":  time.Thursday,
	"Friday":    time.Friday,
	"Saturday":  time.Saturday,
	"Sunday":    time.Sunday,
}

// NormalizeKey trims the key and capitalizes weekday names
// ("monday" -> "Monday"). Anything else is returned trimmed.
func NormalizeKey(key string) string {
	key = strings.TrimSpace(key)
	for _, name := range Weekdays {
		if strings.EqualFold(key, name) {
			return name
		}
	}
	return key
}

// IsWeekdayKey reports whether key is exactly a capitalized weekday name.
func IsWeekdayKey(key string) bool {
	_, ok := weekdayByName[key]
	return ok
}

// ParseDateKey parses a YYYY-MM-DD key as midnight in loc.
func ParseDateKey(key string, loc *time.Location) (time.Time, bool) {
	if len(key) != len(DateLayout) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DateLayout, key, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DayName resolves a key to its weekday name: weekday keys map to
// themselves, date keys to the weekday of that date, anything else to "".
func DayName(key string) string {
	if IsWeekdayKey(key) {
		return key
	}
	if t, ok := ParseDateKey(key, time.UTC); ok {
		return t.Weekday().String()
	}
	return ""
}

// DetectScheme inspects keys. It returns SchemeAuto when no key decides
// the scheme, and ErrMixedSchemes when both kinds are present.
func DetectScheme(keys []string) (Scheme, error) {
	var weekday, date bool
	for _, k := range keys {
		if IsWeekdayKey(k) {
			weekday = true
		} else if _, ok := ParseDateKey(k, time.UTC); ok {
			date = true
		}
	}
	switch {
	case weekday && date:
		return "", ErrMixedSchemes
	case weekday:
		return SchemeWeekday, nil
	case date:
		return SchemeDate, nil
	}
	return SchemeAuto, nil
}

// checkKey validates a normalized key against the store scheme. Only
// mutations go through it; New still loads foreign keys as they are.
func checkKey(key string, scheme Scheme) error {
	if key == "" {
		return validationErr("key", "must not be empty")
	}
	_, isDate := ParseDateKey(key, time.UTC)
	switch scheme {
	case SchemeWeekday:
		if isDate {
			return validationErr("key", fmt.Sprintf("%q is a date but this store is keyed by weekday", key))
		}
		if !IsWeekdayKey(key) {
			return validationErr("key", fmt.Sprintf("%q is not a weekday name", key))
		}
	case SchemeDate:
		if IsWeekdayKey(key) {
			return validationErr("key", fmt.Sprintf("%q is a weekday but this store is keyed by date", key))
		}
		if !isDate {
			return validationErr("key", fmt.Sprintf("%q is not a YYYY-MM-DD date", key))
		}
	}
	return nil
}
