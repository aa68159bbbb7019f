package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classcal/internal/model"
)

func rec(subject, tm string) model.ClassRecord {
	return model.ClassRecord{Subject: subject, Teacher: "T", Time: tm}
}

func subjects(occ []model.Occurrence) []string {
	out := make([]string, 0, len(occ))
	for _, o := range occ {
		out = append(out, o.Class.Subject)
	}
	return out
}

// 2025-11-07 is a Friday.
var friday10 = time.Date(2025, 11, 7, 10, 0, 0, 0, time.UTC)

func TestUpcomingByDateWindow(t *testing.T) {
	s, err := New([]model.DayClasses{
		{Key: "2025-11-15", Classes: []model.ClassRecord{rec("beyond", "08:00")}},
		{Key: "2025-11-07", Classes: []model.ClassRecord{rec("past", "09:00"), rec("later", "11:00")}},
		{Key: "2025-11-06", Classes: []model.ClassRecord{rec("yesterday", "23:00")}},
		{Key: "2025-11-14", Classes: []model.ClassRecord{rec("edge", "10:00"), rec("over", "10:01")}},
		{Key: "legacy", Classes: []model.ClassRecord{rec("foreign", "whenever")}},
		{Key: "2025-11-10", Classes: []model.ClassRecord{rec("monday", "09:00")}},
	}, Options{Scheme: SchemeDate, Location: time.UTC})
	require.NoError(t, err)

	got, err := s.Upcoming(friday10, 7)
	require.NoError(t, err)

	assert.Equal(t, []string{"later", "monday", "edge"}, subjects(got))
	assert.Equal(t, time.Date(2025, 11, 7, 11, 0, 0, 0, time.UTC), got[0].At)
	assert.Equal(t, "2025-11-07", got[0].Key)
	assert.Equal(t, "Friday", got[0].Day)
	assert.Equal(t, 1, got[0].Index)
}

func TestUpcomingByWeekday(t *testing.T) {
	s := newWeekdayStore(t,
		model.DayClasses{Key: "Tuesday", Classes: []model.ClassRecord{rec("tue", "08:00")}},
		model.DayClasses{Key: "Monday", Classes: []model.ClassRecord{rec("mon", "09:00")}},
		model.DayClasses{Key: "Friday", Classes: []model.ClassRecord{rec("fri-early", "09:00"), rec("fri-late", "11:00")}},
		model.DayClasses{Key: "Saturday", Classes: []model.ClassRecord{rec("sat", "10:00")}},
	)

	got, err := s.Upcoming(friday10, 7)
	require.NoError(t, err)

	assert.Equal(t, []string{"fri-late", "sat", "mon", "tue"}, subjects(got))
	assert.Equal(t, time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC), got[2].At)
	assert.Equal(t, "Monday", got[2].Day)
}

func TestUpcomingByWeekdayIncludesNowAndShortWindows(t *testing.T) {
	s := newWeekdayStore(t,
		model.DayClasses{Key: "Friday", Classes: []model.ClassRecord{rec("now", "10:00")}},
		model.DayClasses{Key: "Saturday", Classes: []model.ClassRecord{rec("sat", "10:00")}},
		model.DayClasses{Key: "Sunday", Classes: []model.ClassRecord{rec("sun", "not a time")}},
	)

	got, err := s.Upcoming(friday10, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"now", "sat"}, subjects(got))

	_, err = s.Upcoming(friday10, 3)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Sunday[0].time", ve.Field)
}

func TestUpcomingByWeekdayLongWindowRepeats(t *testing.T) {
	s := newWeekdayStore(t, model.DayClasses{Key: "Monday", Classes: []model.ClassRecord{rec("mon", "09:00")}})

	got, err := s.Upcoming(friday10, 14)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC), got[0].At)
	assert.Equal(t, time.Date(2025, 11, 17, 9, 0, 0, 0, time.UTC), got[1].At)
}

func TestUpcomingStableOnTies(t *testing.T) {
	s, err := New([]model.DayClasses{
		{Key: "2025-11-09", Classes: []model.ClassRecord{rec("late", "12:00")}},
		{Key: "2025-11-08", Classes: []model.ClassRecord{rec("first", "10:00"), rec("second", "10:00"), rec("third", "10:00")}},
	}, Options{Scheme: SchemeDate, Location: time.UTC})
	require.NoError(t, err)

	got, err := s.Upcoming(friday10, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third", "late"}, subjects(got))
}

func TestUpcomingUsesStoreLocation(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	s, err := New([]model.DayClasses{
		{Key: "2025-11-08", Classes: []model.ClassRecord{rec("sat", "09:00")}},
	}, Options{Scheme: SchemeDate, Location: loc})
	require.NoError(t, err)

	// 2025-11-08 09:00 UTC+9 is 2025-11-08 00:00 UTC.
	got, err := s.Upcoming(time.Date(2025, 11, 7, 23, 0, 0, 0, time.UTC), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].At.Equal(time.Date(2025, 11, 8, 0, 0, 0, 0, time.UTC)))
}

func TestUpcomingEmptyWindow(t *testing.T) {
	s := newWeekdayStore(t, model.DayClasses{Key: "Friday", Classes: []model.ClassRecord{rec("fri", "11:00")}})

	got, err := s.Upcoming(friday10, 0)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
