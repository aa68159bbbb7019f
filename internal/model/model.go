package model

import "time"

// ClassRecord is one scheduled session. It has no identifier of its own;
// a record is addressed by its key and its position under that key.
type ClassRecord struct {
	Subject string `json:"subject" yaml:"subject"`
	Time    string `json:"time" yaml:"time"`
	Teacher string `json:"teacher" yaml:"teacher"`
}

// DayClasses is one key of the store together with its records, in display
// order. A slice of DayClasses is the ordered snapshot of a whole store.
type DayClasses struct {
	Key     string
	Classes []ClassRecord
}

// Entry is one row of the flattened timetable.
type Entry struct {
	Key string `json:"key"`
	// Day is the weekday name the key resolves to, or empty for keys that
	// are neither weekday names nor dates.
	Day   string      `json:"day"`
	Index int         `json:"index"`
	Class ClassRecord `json:"class"`
}

// Occurrence is a single concrete instance of a class inside an upcoming
// window, resolved to an absolute instant in the display timezone.
type Occurrence struct {
	Key   string      `json:"key"`
	Day   string      `json:"day"`
	Index int         `json:"index"`
	Class ClassRecord `json:"class"`
	At    time.Time   `json:"at"`
}
