package core

import (
	"time"
)

// ProviderKind tags which calendar service an event or token belongs to.
type ProviderKind string

const (
	ProviderGoogle    ProviderKind = "google"
	ProviderMicrosoft ProviderKind = "microsoft"
)

// Label returns the human-readable service name (e.g. "Google Calendar").
func (k ProviderKind) Label() string {
	switch k {
	case ProviderGoogle:
		return "Google Calendar"
	case ProviderMicrosoft:
		return "Outlook Calendar"
	}
	return string(k)
}

// EventTime holds either a timed instant (RFC 3339) or an all-day date
// (YYYY-MM-DD). Exactly one of the two is set for a well-formed event.
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
}

// IsZero reports whether neither field is set.
func (t EventTime) IsZero() bool {
	return t.DateTime == "" && t.Date == ""
}

// Time parses the timed instant, keeping the offset the provider wrote.
// All-day values are returned as midnight UTC of their date.
func (t EventTime) Time() (time.Time, bool) {
	if t.DateTime != "" {
		v, err := time.Parse(time.RFC3339, t.DateTime)
		if err != nil {
			return time.Time{}, false
		}
		return v, true
	}
	if t.Date != "" {
		v, err := time.Parse(DateLayout, t.Date)
		if err != nil {
			return time.Time{}, false
		}
		return v, true
	}
	return time.Time{}, false
}

// Day returns the calendar date as written by the provider. No time-zone
// conversion is applied.
func (t EventTime) Day() (Date, bool) {
	v, ok := t.Time()
	if !ok {
		return Date{}, false
	}
	return DateOf(v), true
}

// Event is the provider-neutral calendar entry. Both relays normalize their
// payloads into this shape so renderers never branch on provider.
type Event struct {
	// Unique ID (provided by the source)
	ID       string       `json:"id"`
	Provider ProviderKind `json:"provider"`
	Title    string       `json:"title"`
	Start    EventTime    `json:"start"`
	End      EventTime    `json:"end"`
	Location string       `json:"location,omitempty"`
	// Event page on the provider's web UI
	ExternalLink string `json:"externalLink,omitempty"`
	// May contain HTML
	Description string `json:"description,omitempty"`
}

// IsAllDay reports whether the event is date-only.
func (e Event) IsAllDay() bool {
	return e.Start.DateTime == "" && e.Start.Date != ""
}

// Duration returns the length of the event, or zero if either bound is unparsable.
func (e Event) Duration() time.Duration {
	start, ok1 := e.Start.Time()
	end, ok2 := e.End.Time()
	if !ok1 || !ok2 {
		return 0
	}
	return end.Sub(start)
}

// InProgress checks if the event is happening right now.
func (e Event) InProgress(now time.Time) bool {
	if e.IsAllDay() {
		return false
	}
	start, ok1 := e.Start.Time()
	end, ok2 := e.End.Time()
	if !ok1 || !ok2 {
		return false
	}
	return now.After(start) && now.Before(end)
}

// Profile identifies the connected account.
type Profile struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture,omitempty"`
}
