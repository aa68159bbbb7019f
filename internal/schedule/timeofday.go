package schedule

import (
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// String renders the canonical 24-hour HH:MM form.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On returns the instant of t on the calendar day of d, in d's location.
func (t TimeOfDay) On(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, 0, 0, d.Location())
}

// Accepted layouts: time pickers emit 24-hour values, older data carries
// 12-hour strings like "09:00 AM".
var timeLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	"03:04 PM",
	"03:04PM",
}

// ParseTimeOfDay parses the supported time-of-day forms.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	if v == "" {
		return TimeOfDay{}, validationErr("time", "must not be empty")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
		}
	}
	return TimeOfDay{}, validationErr("time", fmt.Sprintf("%q is not a time of day (want HH:MM)", s))
}
