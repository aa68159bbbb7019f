package tabular

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

func weekStore(t *testing.T) *schedule.Store {
	t.Helper()
	s, err := schedule.New([]model.DayClasses{
		{Key: "Monday", Classes: []model.ClassRecord{
			{Subject: "Math", Teacher: "Mr. Sharma", Time: "09:00"},
			{Subject: "Science", Teacher: "Mrs. Singh", Time: "10:00"},
		}},
		{Key: "Friday", Classes: []model.ClassRecord{{Subject: "English", Teacher: "Ms. Gupta", Time: "11:00"}}},
	}, schedule.Options{Scheme: schedule.SchemeWeekday, Location: time.UTC})
	require.NoError(t, err)
	return s
}

func TestWriteCSVWeekday(t *testing.T) {
	s := weekStore(t)
	entries, err := s.Filtered(schedule.Filter{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, s.Scheme(), entries))
	assert.Equal(t, "Day,Subject,Teacher,Time\n"+
		"Monday,Math,Mr. Sharma,09:00\n"+
		"Monday,Science,Mrs. Singh,10:00\n"+
		"Friday,English,Ms. Gupta,11:00\n", buf.String())
}

func TestWriteCSVDate(t *testing.T) {
	entries := []model.Entry{
		{Key: "2025-11-07", Day: "Friday", Class: model.ClassRecord{Subject: "Art", Teacher: "Ms. Rao", Time: "14:00"}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, schedule.SchemeDate, entries))
	assert.Equal(t, "Date,Day,Subject,Time,Teacher\n2025-11-07,Friday,Art,14:00,Ms. Rao\n", buf.String())
}

func TestReadCSVGroupsByFirstAppearance(t *testing.T) {
	doc := "\ufefftime , TEACHER,subject,day\n" +
		"9:00 AM,Mr. Sharma,Math,friday\n" +
		",,,\n" +
		"10:00,Mrs. Singh,Science,Monday\n" +
		"14:30,Ms. Rao,Art,Friday\n"

	days, err := ReadCSV(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []model.DayClasses{
		{Key: "Friday", Classes: []model.ClassRecord{
			{Subject: "Math", Teacher: "Mr. Sharma", Time: "09:00"},
			{Subject: "Art", Teacher: "Ms. Rao", Time: "14:30"},
		}},
		{Key: "Monday", Classes: []model.ClassRecord{{Subject: "Science", Teacher: "Mrs. Singh", Time: "10:00"}}},
	}, days)
}

func TestReadCSVPrefersDateColumn(t *testing.T) {
	doc := "Date,Day,Subject,Time,Teacher\n2025-11-07,Friday,Art,14:00,Ms. Rao\n"
	days, err := ReadCSV(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "2025-11-07", days[0].Key)
}

func TestReadCSVRejects(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		line   int
		reason string
	}{
		{"empty", "", 0, "empty"},
		{"missing subject", "Day,Teacher,Time\nMonday,A,09:00\n", 1, "Subject"},
		{"missing key", "Subject,Teacher,Time\nMath,A,09:00\n", 1, "Date or Day"},
		{"bad time", "Day,Subject,Teacher,Time\nMonday,Math,A,09:00\nMonday,Art,B,noon\n", 3, "time"},
		{"empty key", "Day,Subject,Teacher,Time\n,Math,A,09:00\n", 2, "key"},
		{"short row", "Day,Subject,Teacher,Time\nMonday,Math\n", 2, "teacher"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.doc))
			var ie *schedule.ImportError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, tt.line, ie.Line)
			assert.Contains(t, ie.Reason, tt.reason)
		})
	}
}

func TestFailedImportLeavesStoreUnchanged(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		reason string
	}{
		{"bad time", "Day,Subject,Teacher,Time\nTuesday,Bio,Ms. Rao,14:00\nTuesday,PE,Coach,late\n", "time"},
		{"misspelled day", "Day,Subject,Teacher,Time\nTuesday,Bio,Ms. Rao,14:00\nMondya,PE,Coach,15:00\n", "not a weekday name"},
		{"date in weekday store", "Date,Subject,Teacher,Time\n2025-11-08,Art,B,10:00\n", "keyed by weekday"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := weekStore(t)
			before := s.Snapshot()
			version := s.Version()

			days, err := ReadCSV(strings.NewReader(tt.doc))
			if err == nil {
				err = s.Import(days)
			}
			var ie *schedule.ImportError
			require.ErrorAs(t, err, &ie)
			assert.Contains(t, ie.Error(), tt.reason)
			assert.Equal(t, before, s.Snapshot())
			assert.Equal(t, version, s.Version())
		})
	}
}

func TestXLSXRoundTrip(t *testing.T) {
	s := weekStore(t)
	entries, err := s.Filtered(schedule.Filter{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, s.Scheme(), entries))

	days, err := ReadXLSX(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, s.Snapshot(), days)
}

func TestReadXLSXRejectsGarbage(t *testing.T) {
	_, err := ReadXLSX(strings.NewReader("not a workbook"))
	var ie *schedule.ImportError
	assert.ErrorAs(t, err, &ie)
}
