package ics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classcal/internal/model"
	"classcal/internal/schedule"
)

func calendar(lines ...string) *strings.Reader {
	body := append([]string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//test//EN"}, lines...)
	body = append(body, "END:VCALENDAR", "")
	return strings.NewReader(strings.Join(body, "\r\n"))
}

var termCalendar = []string{
	"BEGIN:VEVENT",
	"UID:math@test",
	"DTSTAMP:20251101T000000Z",
	"DTSTART:20251103T090000",
	"DTEND:20251103T100000",
	"RRULE:FREQ=WEEKLY;BYDAY=MO,WE",
	"EXDATE:20251105T090000",
	"SUMMARY:Math",
	"DESCRIPTION:Teacher: Mr. Sharma",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:math@test",
	"RECURRENCE-ID:20251110T090000",
	"DTSTAMP:20251101T000000Z",
	"DTSTART:20251110T113000",
	"SUMMARY:Math",
	"X-CLASSCAL-TEACHER:Sub Teacher",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:trip@test",
	"DTSTAMP:20251101T000000Z",
	"DTSTART;VALUE=DATE:20251104",
	"SUMMARY:Trip",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:art@test",
	"DTSTAMP:20251101T000000Z",
	"DTSTART:20251107T140000Z",
	"SUMMARY:Art",
	"X-CLASSCAL-TEACHER:Ms. Rao",
	"END:VEVENT",
}

func TestReadDateScheme(t *testing.T) {
	days, err := Read(calendar(termCalendar...), ImportOptions{
		Scheme:   schedule.SchemeDate,
		Location: time.UTC,
		From:     time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC),
		Days:     14,
	})
	require.NoError(t, err)

	assert.Equal(t, []model.DayClasses{
		{Key: "2025-11-03", Classes: []model.ClassRecord{{Subject: "Math", Teacher: "Mr. Sharma", Time: "09:00"}}},
		{Key: "2025-11-07", Classes: []model.ClassRecord{{Subject: "Art", Teacher: "Ms. Rao", Time: "14:00"}}},
		{Key: "2025-11-10", Classes: []model.ClassRecord{{Subject: "Math", Teacher: "Sub Teacher", Time: "11:30"}}},
		{Key: "2025-11-12", Classes: []model.ClassRecord{{Subject: "Math", Teacher: "Mr. Sharma", Time: "09:00"}}},
	}, days)
}

func TestReadWeekdayScheme(t *testing.T) {
	days, err := Read(calendar(termCalendar...), ImportOptions{Scheme: schedule.SchemeWeekday, Location: time.UTC})
	require.NoError(t, err)

	assert.Equal(t, []model.DayClasses{
		{Key: "Monday", Classes: []model.ClassRecord{{Subject: "Math", Teacher: "Mr. Sharma", Time: "09:00"}}},
		{Key: "Wednesday", Classes: []model.ClassRecord{{Subject: "Math", Teacher: "Mr. Sharma", Time: "09:00"}}},
		{Key: "Friday", Classes: []model.ClassRecord{{Subject: "Art", Teacher: "Ms. Rao", Time: "14:00"}}},
	}, days)
}

func TestReadRejects(t *testing.T) {
	_, err := Read(calendar(
		"BEGIN:VEVENT",
		"UID:x@test",
		"DTSTAMP:20251101T000000Z",
		"DTSTART:20251107T140000Z",
		"SUMMARY:Art",
		"END:VEVENT",
	), ImportOptions{Location: time.UTC})
	var ie *schedule.ImportError
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, ie.Reason, "teacher")

	_, err = Read(calendar(), ImportOptions{Location: time.UTC})
	require.ErrorAs(t, err, &ie)

	_, err = Read(calendar(
		"BEGIN:VEVENT",
		"UID:trip@test",
		"DTSTAMP:20251101T000000Z",
		"DTSTART;VALUE=DATE:20251104",
		"SUMMARY:Trip",
		"END:VEVENT",
	), ImportOptions{Location: time.UTC})
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, ie.Reason, "no timed events")
}

func TestExportRoundTrip(t *testing.T) {
	occ := []model.Occurrence{
		{Key: "Friday", Day: "Friday", Index: 1, Class: model.ClassRecord{Subject: "English", Teacher: "Ms. Gupta", Time: "11:00"},
			At: time.Date(2025, 11, 7, 11, 0, 0, 0, time.UTC)},
		{Key: "Monday", Day: "Monday", Index: 0, Class: model.ClassRecord{Subject: "Math", Teacher: "Mr. Sharma", Time: "09:00"},
			At: time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC)},
	}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, occ, 45, time.Date(2025, 11, 7, 10, 0, 0, 0, time.UTC)))
	out := buf.String()

	assert.Contains(t, out, "METHOD:PUBLISH")
	assert.Contains(t, out, "SUMMARY:English")
	assert.Contains(t, out, "X-CLASSCAL-TEACHER:Ms. Gupta")
	assert.Contains(t, out, "DTSTART:20251107T110000Z")
	assert.Contains(t, out, "DTEND:20251107T114500Z")
	assert.Contains(t, out, "UID:"+EventUID(occ[0]))

	days, err := Read(strings.NewReader(out), ImportOptions{Scheme: schedule.SchemeWeekday, Location: time.UTC})
	require.NoError(t, err)
	assert.Equal(t, []model.DayClasses{
		{Key: "Monday", Classes: []model.ClassRecord{{Subject: "Math", Teacher: "Mr. Sharma", Time: "09:00"}}},
		{Key: "Friday", Classes: []model.ClassRecord{{Subject: "English", Teacher: "Ms. Gupta", Time: "11:00"}}},
	}, days)
}

func TestEventUIDStable(t *testing.T) {
	o := model.Occurrence{Key: "Monday", Index: 2, At: time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC)}
	assert.Equal(t, EventUID(o), EventUID(o))

	other := o
	other.At = other.At.AddDate(0, 0, 7)
	assert.NotEqual(t, EventUID(o), EventUID(other))
	assert.True(t, strings.HasSuffix(EventUID(o), "@classcal"))
}
