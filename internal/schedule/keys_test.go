package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "Monday", NormalizeKey("  monday "))
	assert.Equal(t, "Sunday", NormalizeKey("SUNDAY"))
	assert.Equal(t, "2025-11-07", NormalizeKey(" 2025-11-07"))
	assert.Equal(t, "mon", NormalizeKey("mon"))
	assert.Equal(t, "", NormalizeKey("   "))
}

func TestDayName(t *testing.T) {
	assert.Equal(t, "Friday", DayName("Friday"))
	assert.Equal(t, "Friday", DayName("2025-11-07"))
	assert.Equal(t, "", DayName("2025-13-40"))
	assert.Equal(t, "", DayName("friday"))
}

func TestParseDateKeyRejectsLooseForms(t *testing.T) {
	_, ok := ParseDateKey("2025-1-7", time.UTC)
	assert.False(t, ok)
	d, ok := ParseDateKey("2025-11-07", time.UTC)
	require.True(t, ok)
	assert.Equal(t, time.Friday, d.Weekday())
}

func TestDetectScheme(t *testing.T) {
	s, err := DetectScheme([]string{"Monday", "misc"})
	require.NoError(t, err)
	assert.Equal(t, SchemeWeekday, s)

	s, err = DetectScheme([]string{"2025-11-07"})
	require.NoError(t, err)
	assert.Equal(t, SchemeDate, s)

	s, err = DetectScheme(nil)
	require.NoError(t, err)
	assert.Equal(t, SchemeAuto, s)

	_, err = DetectScheme([]string{"Monday", "2025-11-07"})
	assert.ErrorIs(t, err, ErrMixedSchemes)
}

func TestParseScheme(t *testing.T) {
	for in, want := range map[string]Scheme{"weekday": SchemeWeekday, "DATE": SchemeDate, "": SchemeAuto, "auto": SchemeAuto} {
		got, err := ParseScheme(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseScheme("monthly")
	assert.Error(t, err)
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"09:00", "09:00"},
		{"9:00", "09:00"},
		{"14:30:59", "14:30"},
		{"09:00 AM", "09:00"},
		{"2:00 pm", "14:00"},
		{"12:15AM", "00:15"},
		{" 11:30 PM ", "23:30"},
	}
	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got.String(), tt.in)
	}

	for _, bad := range []string{"", "25:00", "noon", "13:00 PM", "9"} {
		_, err := ParseTimeOfDay(bad)
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve, bad)
	}
}
