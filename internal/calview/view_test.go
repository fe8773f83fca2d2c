package calview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theakshaypant/crmcal/internal/core"
)

func date(t *testing.T, s string) core.Date {
	t.Helper()
	d, err := core.ParseDate(s)
	require.NoError(t, err)
	return d
}

func strs(dates []core.Date) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.String()
	}
	return out
}

func TestVisibleDatesWeek(t *testing.T) {
	got := VisibleDates(ModeWeek, date(t, "2026-01-14"))
	assert.Equal(t, []string{
		"2026-01-12", "2026-01-13", "2026-01-14", "2026-01-15",
		"2026-01-16", "2026-01-17", "2026-01-18",
	}, strs(got))
}

func TestVisibleDatesWeekOnSunday(t *testing.T) {
	got := VisibleDates(ModeWeek, date(t, "2026-01-18"))
	assert.Equal(t, "2026-01-12", got[0].String())
	assert.Equal(t, "2026-01-18", got[6].String())
}

func TestVisibleDatesDay(t *testing.T) {
	d := date(t, "2026-03-02")
	assert.Equal(t, []core.Date{d}, VisibleDates(ModeDay, d))
}

func TestVisibleDatesMonth(t *testing.T) {
	tests := []struct {
		anchor string
		first  string
		last   string
		count  int
	}{
		{"2026-01-20", "2025-12-29", "2026-02-01", 35},
		{"2026-02-09", "2026-01-26", "2026-03-01", 35},
		{"2026-08-15", "2026-07-27", "2026-09-06", 42},
		{"2021-02-10", "2021-02-01", "2021-02-28", 28},
	}
	for _, tt := range tests {
		t.Run(tt.anchor, func(t *testing.T) {
			got := VisibleDates(ModeMonth, date(t, tt.anchor))
			require.Len(t, got, tt.count)
			assert.Equal(t, tt.first, got[0].String())
			assert.Equal(t, tt.last, got[len(got)-1].String())
		})
	}
}

func TestVisibleDatesShape(t *testing.T) {
	start := date(t, "2024-01-01")
	for i := 0; i < 800; i += 3 {
		anchor := start.AddDays(i)
		for _, mode := range Modes {
			dates := VisibleDates(mode, anchor)
			require.NotEmpty(t, dates)

			for j := 1; j < len(dates); j++ {
				require.Equal(t, dates[j-1].AddDays(1), dates[j], "%s %s not contiguous", mode, anchor)
			}

			switch mode {
			case ModeWeek:
				require.Len(t, dates, 7)
				assert.Equal(t, time.Monday, dates[0].Weekday())
				assert.Contains(t, dates, anchor)
			case ModeMonth:
				n := len(dates)
				assert.Zero(t, n%7, "month of %s has %d cells", anchor, n)
				assert.LessOrEqual(t, n, 42)
				assert.Equal(t, time.Monday, dates[0].Weekday())
				assert.Contains(t, dates, core.Date{Year: anchor.Year, Month: anchor.Month, Day: 1})
				lastDay := core.Date{Year: anchor.Year, Month: anchor.Month, Day: 1}.AddMonths(1).AddDays(-1)
				assert.Contains(t, dates, lastDay)
			}
		}
	}
}

func TestHeaderLabel(t *testing.T) {
	assert.Equal(t, "February 2026", HeaderLabel(ModeMonth, date(t, "2026-02-09")))
	assert.Equal(t, "Monday, January 12, 2026", HeaderLabel(ModeDay, date(t, "2026-01-12")))
	assert.Equal(t, "Jan 12 - Jan 18, 2026", HeaderLabel(ModeWeek, date(t, "2026-01-14")))
	assert.Equal(t, "Dec 29 - Jan 4, 2026", HeaderLabel(ModeWeek, date(t, "2025-12-31")))
}

func TestNavigation(t *testing.T) {
	v := ViewState{Mode: ModeWeek, Anchor: date(t, "2026-01-14")}

	assert.Equal(t, "2026-01-21", v.Next().Anchor.String())
	assert.Equal(t, "2026-01-07", v.Previous().Anchor.String())
	assert.Equal(t, "2026-01-15", v.WithMode(ModeDay).Next().Anchor.String())
	assert.Equal(t, "2026-02-14", v.WithMode(ModeMonth).Next().Anchor.String())

	endOfMonth := ViewState{Mode: ModeMonth, Anchor: date(t, "2026-01-31")}
	assert.Equal(t, "2026-02-28", endOfMonth.Next().Anchor.String())
	assert.Equal(t, "2025-12-31", endOfMonth.Previous().Anchor.String())

	now := time.Date(2026, 3, 5, 17, 0, 0, 0, time.UTC)
	today := v.WithMode(ModeMonth).Today(now)
	assert.Equal(t, ModeMonth, today.Mode)
	assert.Equal(t, "2026-03-05", today.Anchor.String())

	assert.Equal(t, v, v.Next().Previous())
}

func TestNewDefaultsToWeek(t *testing.T) {
	now := time.Date(2026, 1, 14, 9, 0, 0, 0, time.Local)
	v := New(now)
	assert.Equal(t, ModeWeek, v.Mode)
	assert.Equal(t, core.DateOf(now), v.Anchor)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("month")
	require.NoError(t, err)
	assert.Equal(t, ModeMonth, m)

	_, err = ParseMode("year")
	assert.Error(t, err)
}

func TestIsTodayAndInMonth(t *testing.T) {
	now := time.Date(2026, 1, 14, 23, 59, 0, 0, time.UTC)
	assert.True(t, IsToday(date(t, "2026-01-14"), now))
	assert.False(t, IsToday(date(t, "2026-01-15"), now))

	assert.True(t, InMonth(date(t, "2026-01-31"), date(t, "2026-01-02")))
	assert.False(t, InMonth(date(t, "2025-12-31"), date(t, "2026-01-02")))
}
