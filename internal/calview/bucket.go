package calview

import (
	"fmt"
	"time"

	"github.com/theakshaypant/crmcal/internal/core"
)

// BucketByDay returns the events starting on date, in their original order.
// The comparison uses the wall date the provider wrote, so an event at
// 23:30-05:00 lands on its own day rather than the next UTC day.
func BucketByDay(events []core.Event, date core.Date) []core.Event {
	var out []core.Event
	for _, e := range events {
		if d, ok := e.Start.Day(); ok && d == date {
			out = append(out, e)
		}
	}
	return out
}

// DisplayLimit returns how many events a single cell shows in mode before
// collapsing the rest into an overflow marker. Zero means no limit.
func DisplayLimit(mode Mode) int {
	switch mode {
	case ModeWeek:
		return 3
	case ModeMonth:
		return 2
	}
	return 0
}

// Cell is one visible date with its events, ready for rendering.
type Cell struct {
	Date core.Date
	// Every event starting on Date
	Events []core.Event
	// The prefix of Events that fits the mode's display limit
	Shown    []core.Event
	Overflow int
	InMonth  bool
	Today    bool
}

// OverflowLabel returns the "+N more" marker, or "" when nothing overflows.
func (c Cell) OverflowLabel(mode Mode) string {
	if c.Overflow == 0 {
		return ""
	}
	if mode == ModeMonth {
		return fmt.Sprintf("+%d", c.Overflow)
	}
	return fmt.Sprintf("+%d more", c.Overflow)
}

// Cells lays out events over the visible dates of v.
func Cells(v ViewState, events []core.Event, now time.Time) []Cell {
	limit := DisplayLimit(v.Mode)
	dates := v.Dates()
	cells := make([]Cell, len(dates))
	for i, d := range dates {
		bucket := BucketByDay(events, d)
		shown := bucket
		if limit > 0 && len(bucket) > limit {
			shown = bucket[:limit]
		}
		cells[i] = Cell{
			Date:     d,
			Events:   bucket,
			Shown:    shown,
			Overflow: len(bucket) - len(shown),
			InMonth:  v.Mode != ModeMonth || InMonth(d, v.Anchor),
			Today:    IsToday(d, now),
		}
	}
	return cells
}

// FormatEventTime renders an event's start as "All Day" or a 12-hour clock
// time in the offset the provider wrote ("3:04 PM").
func FormatEventTime(e core.Event) string {
	if e.IsAllDay() {
		return "All Day"
	}
	t, ok := e.Start.Time()
	if !ok {
		return ""
	}
	return t.Format("3:04 PM")
}
