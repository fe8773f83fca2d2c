// Package calview holds the pure date math behind the day, week and month
// calendar views.
package calview

import (
	"fmt"
	"time"

	"github.com/theakshaypant/crmcal/internal/core"
)

// Mode is the calendar granularity.
type Mode string

const (
	ModeDay   Mode = "day"
	ModeWeek  Mode = "week"
	ModeMonth Mode = "month"
)

// Modes lists every mode in display order.
var Modes = []Mode{ModeDay, ModeWeek, ModeMonth}

// ParseMode validates a user-supplied mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDay, ModeWeek, ModeMonth:
		return Mode(s), nil
	}
	return "", fmt.Errorf("invalid view %q (want day, week or month)", s)
}

// maxMonthCells bounds the month grid at six weeks.
const maxMonthCells = 42

// ViewState is what the calendar is looking at. It only changes through
// Previous, Next, Today and WithMode.
type ViewState struct {
	Mode   Mode
	Anchor core.Date
}

// New returns the initial view: the week containing now.
func New(now time.Time) ViewState {
	return ViewState{Mode: ModeWeek, Anchor: core.DateOf(now)}
}

// Previous moves the anchor back by one unit of the current mode.
func (v ViewState) Previous() ViewState {
	return v.shift(-1)
}

// Next moves the anchor forward by one unit of the current mode.
func (v ViewState) Next() ViewState {
	return v.shift(1)
}

func (v ViewState) shift(n int) ViewState {
	switch v.Mode {
	case ModeDay:
		v.Anchor = v.Anchor.AddDays(n)
	case ModeMonth:
		v.Anchor = v.Anchor.AddMonths(n)
	default:
		v.Anchor = v.Anchor.AddDays(7 * n)
	}
	return v
}

// Today resets the anchor to now's date and keeps the mode.
func (v ViewState) Today(now time.Time) ViewState {
	v.Anchor = core.DateOf(now)
	return v
}

// WithMode switches granularity and keeps the anchor.
func (v ViewState) WithMode(m Mode) ViewState {
	v.Mode = m
	return v
}

// Dates returns the visible dates of v.
func (v ViewState) Dates() []core.Date {
	return VisibleDates(v.Mode, v.Anchor)
}

// Label returns the header text of v.
func (v ViewState) Label() string {
	return HeaderLabel(v.Mode, v.Anchor)
}

// WeekStart returns the Monday on or before d.
func WeekStart(d core.Date) core.Date {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// VisibleDates returns the dates shown for mode around anchor, ascending and
// contiguous. Week views always hold 7 Monday-first dates. Month views start
// on the Monday on or before the 1st and run until the month's last day is
// covered and the count is a multiple of 7, never more than 42.
func VisibleDates(mode Mode, anchor core.Date) []core.Date {
	switch mode {
	case ModeDay:
		return []core.Date{anchor}
	case ModeMonth:
		first := core.Date{Year: anchor.Year, Month: anchor.Month, Day: 1}
		last := first.AddMonths(1).AddDays(-1)
		dates := make([]core.Date, 0, maxMonthCells)
		for d := WeekStart(first); len(dates) < maxMonthCells; d = d.AddDays(1) {
			if last.Before(d) && len(dates)%7 == 0 {
				break
			}
			dates = append(dates, d)
		}
		return dates
	default:
		start := WeekStart(anchor)
		dates := make([]core.Date, 7)
		for i := range dates {
			dates[i] = start.AddDays(i)
		}
		return dates
	}
}

// HeaderLabel formats the view title, e.g. "Monday, January 12, 2026",
// "Jan 12 - Jan 18, 2026" or "January 2026".
func HeaderLabel(mode Mode, anchor core.Date) string {
	switch mode {
	case ModeDay:
		return anchor.Time(time.UTC).Format("Monday, January 2, 2006")
	case ModeMonth:
		return anchor.Time(time.UTC).Format("January 2006")
	default:
		start := WeekStart(anchor)
		end := start.AddDays(6)
		return start.Time(time.UTC).Format("Jan 2") + " - " + end.Time(time.UTC).Format("Jan 2, 2006")
	}
}

// IsToday compares calendar dates only.
func IsToday(d core.Date, now time.Time) bool {
	return d == core.DateOf(now)
}

// InMonth reports whether d falls in anchor's month.
func InMonth(d, anchor core.Date) bool {
	return d.Year == anchor.Year && d.Month == anchor.Month
}
