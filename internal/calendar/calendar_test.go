package calendar_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ometra-Hela/Alize/internal/calendar"
)

func newCalendar(t *testing.T, holidays ...string) (*calendar.Calendar, *time.Location) {
	t.Helper()

	loc, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)

	cal, err := calendar.New(calendar.Config{Location: loc, Holidays: holidays})
	require.NoError(t, err)

	return cal, loc
}

func TestIsBusinessDay(t *testing.T) {
	cal, loc := newCalendar(t)

	tests := []struct {
		name string
		day  time.Time
		want bool
	}{
		{name: "regular wednesday", day: time.Date(2025, 3, 12, 12, 0, 0, 0, loc), want: true},
		{name: "saturday", day: time.Date(2025, 3, 15, 12, 0, 0, 0, loc), want: false},
		{name: "new year", day: time.Date(2025, 1, 1, 12, 0, 0, 0, loc), want: false},
		{name: "constitution day first monday of february", day: time.Date(2025, 2, 3, 12, 0, 0, 0, loc), want: false},
		{name: "juarez third monday of march", day: time.Date(2025, 3, 17, 12, 0, 0, 0, loc), want: false},
		{name: "independence day", day: time.Date(2025, 9, 16, 12, 0, 0, 0, loc), want: false},
		{name: "revolution third monday of november", day: time.Date(2025, 11, 17, 12, 0, 0, 0, loc), want: false},
		{name: "second monday of march", day: time.Date(2025, 3, 10, 12, 0, 0, 0, loc), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cal.IsBusinessDay(tt.day))
		})
	}
}

func TestClampToWorkingWindow(t *testing.T) {
	cal, loc := newCalendar(t)

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "inside window unchanged",
			in:   time.Date(2025, 3, 12, 13, 15, 0, 0, loc),
			want: time.Date(2025, 3, 12, 13, 15, 0, 0, loc),
		},
		{
			name: "before window moves to start",
			in:   time.Date(2025, 3, 12, 9, 0, 0, 0, loc),
			want: time.Date(2025, 3, 12, 11, 0, 0, 0, loc),
		},
		{
			name: "window end moves to next business day",
			in:   time.Date(2025, 3, 12, 17, 0, 0, 0, loc),
			want: time.Date(2025, 3, 13, 11, 0, 0, 0, loc),
		},
		{
			name: "friday evening skips weekend and holiday monday",
			in:   time.Date(2025, 3, 14, 18, 0, 0, 0, loc),
			want: time.Date(2025, 3, 18, 11, 0, 0, 0, loc),
		},
		{
			name: "saturday morning",
			in:   time.Date(2025, 3, 15, 10, 0, 0, 0, loc),
			want: time.Date(2025, 3, 18, 11, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cal.ClampToWorkingWindow(tt.in)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestAddBusinessDays(t *testing.T) {
	cal, loc := newCalendar(t)

	got := cal.AddBusinessDays(time.Date(2025, 3, 14, 16, 30, 0, 0, loc), 1)
	assert.True(t, time.Date(2025, 3, 18, 16, 30, 0, 0, loc).Equal(got))

	got = cal.AddBusinessDays(time.Date(2025, 3, 12, 11, 0, 0, 0, loc), 2)
	assert.True(t, time.Date(2025, 3, 14, 11, 0, 0, 0, loc).Equal(got))
}

func TestHolidaysFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holidays.yaml")
	require.NoError(t, os.WriteFile(path, []byte("holidays:\n  - date: 2025-03-13\n    name: Company day\n"), 0o600))

	days, err := calendar.LoadHolidays(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-03-13"}, days)

	cal, loc := newCalendar(t, days...)

	assert.False(t, cal.IsBusinessDay(time.Date(2025, 3, 13, 12, 0, 0, 0, loc)))

	got := cal.ClampToWorkingWindow(time.Date(2025, 3, 12, 17, 30, 0, 0, loc))
	assert.True(t, time.Date(2025, 3, 14, 11, 0, 0, 0, loc).Equal(got), got.String())
}

func TestNewRejectsInvertedWindow(t *testing.T) {
	_, err := calendar.New(calendar.Config{Location: time.UTC, WindowStart: "17:00", WindowEnd: "11:00"})
	require.Error(t, err)
}
