package schedule

import (
	"time"

	"classcal/internal/model"
)

// defaultWeek is the timetable a fresh store starts with.
var defaultWeek = []model.DayClasses{
	{Key: "Monday", Classes: []model.ClassRecord{
		{Subject: "Math", Teacher: "Mr. Sharma", Time: "09:00"},
		{Subject: "Physics", Teacher: "Mrs. Singh", Time: "11:00"},
		{Subject: "Computer", Teacher: "Mr. Khan", Time: "14:00"},
	}},
	{Key: "Tuesday", Classes: []model.ClassRecord{
		{Subject: "Chemistry", Teacher: "Dr. Patel", Time: "10:00"},
		{Subject: "Biology", Teacher: "Ms. Rao", Time: "14:00"},
	}},
	{Key: "Wednesday", Classes: []model.ClassRecord{
		{Subject: "English", Teacher: "Mr. Verma", Time: "09:00"},
		{Subject: "History", Teacher: "Ms. Kapoor", Time: "11:30"},
	}},
	{Key: "Thursday", Classes: []model.ClassRecord{
		{Subject: "Geography", Teacher: "Mr. Das", Time: "10:00"},
		{Subject: "Art", Teacher: "Ms. Nair", Time: "13:00"},
	}},
	{Key: "Friday", Classes: []model.ClassRecord{
		{Subject: "Math", Teacher: "Mr. Sharma", Time: "09:00"},
		{Subject: "PE", Teacher: "Coach Sharma", Time: "11:00"},
	}},
	{Key: "Saturday", Classes: []model.ClassRecord{
		{Subject: "Computer Lab", Teacher: "Mr. Khan", Time: "10:00"},
	}},
}

// Seed returns the built-in starting timetable. For the date scheme the
// weekly timetable is laid onto the seven calendar days starting at today.
func Seed(scheme Scheme, today time.Time) []model.DayClasses {
	if scheme != SchemeDate {
		return cloneDays(defaultWeek)
	}
	byDay := make(map[string][]model.ClassRecord, len(defaultWeek))
	for _, d := range defaultWeek {
		byDay[d.Key] = d.Classes
	}
	out := make([]model.DayClasses, 0, 7)
	for i := 0; i < 7; i++ {
		day := today.AddDate(0, 0, i)
		classes, ok := byDay[day.Weekday().String()]
		if !ok {
			continue
		}
		out = append(out, model.DayClasses{
			Key:     day.Format(DateLayout),
			Classes: append([]model.ClassRecord(nil), classes...),
		})
	}
	return out
}

func cloneDays(days []model.DayClasses) []model.DayClasses {
	out := make([]model.DayClasses, len(days))
	for i, d := range days {
		out[i] = model.DayClasses{Key: d.Key, Classes: append([]model.ClassRecord(nil), d.Classes...)}
	}
	return out
}
