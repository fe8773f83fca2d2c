package outlook

import (
	"context"
	"fmt"
	"time"

	abstractions "github.com/microsoft/kiota-abstractions-go"
	msgraphcore "github.com/microsoftgraph/msgraph-sdk-go-core"
	"github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/users"

	"github.com/theakshaypant/crmcal/internal/core"
)

const (
	eventsWindow = 7 * 24 * time.Hour
	pageSize     = 50
)

// FetchEvents reads the signed-in user's calendar view for the next 7 days,
// ordered by start and capped at one page of 50 events.
func (o *OutlookAdapter) FetchEvents(ctx context.Context, accessToken string, now time.Time) ([]core.Event, error) {
	client, err := o.graphClient(accessToken)
	if err != nil {
		return nil, err
	}

	startStr := now.UTC().Format(time.RFC3339)
	endStr := now.Add(eventsWindow).UTC().Format(time.RFC3339)
	top := int32(pageSize)

	headers := abstractions.NewRequestHeaders()
	headers.Add("Prefer", fmt.Sprintf("outlook.timezone=%q", o.cfg.Timezone))

	config := &users.ItemCalendarViewRequestBuilderGetRequestConfiguration{
		QueryParameters: &users.ItemCalendarViewRequestBuilderGetQueryParameters{
			StartDateTime: &startStr,
			EndDateTime:   &endStr,
			Orderby:       []string{"start/dateTime"},
			Top:           &top,
		},
		Headers: headers,
	}
	result, err := client.Me().CalendarView().Get(ctx, config)
	if err != nil {
		return nil, translateGraphError(err)
	}

	pageIterator, err := msgraphcore.NewPageIterator[models.Eventable](
		result,
		client.GetAdapter(),
		models.CreateEventCollectionResponseFromDiscriminatorValue,
	)
	if err != nil {
		return nil, fmt.Errorf("create page iterator: %w", err)
	}

	results := make([]core.Event, 0, pageSize)
	err = pageIterator.Iterate(ctx, func(item models.Eventable) bool {
		results = append(results, o.parseGraphEvent(item))
		return len(results) < pageSize
	})
	if err != nil {
		return nil, translateGraphError(err)
	}

	return results, nil
}

// parseGraphEvent converts a Graph SDK event into our unified core.Event.
// Timed events become RFC 3339 in the configured zone; all-day events keep
// only their date.
func (o *OutlookAdapter) parseGraphEvent(item models.Eventable) core.Event {
	isAllDay := derefBool(item.GetIsAllDay())

	location := ""
	if loc := item.GetLocation(); loc != nil {
		location = derefStr(loc.GetDisplayName())
	}

	return core.Event{
		ID:           derefStr(item.GetId()),
		Provider:     core.ProviderMicrosoft,
		Title:        derefStr(item.GetSubject()),
		Start:        o.eventTime(item.GetStart(), isAllDay),
		End:          o.eventTime(item.GetEnd(), isAllDay),
		Location:     location,
		ExternalLink: derefStr(item.GetWebLink()),
		Description:  derefStr(item.GetBodyPreview()),
	}
}

func (o *OutlookAdapter) eventTime(dt models.DateTimeTimeZoneable, isAllDay bool) core.EventTime {
	t, ok := parseSDKDateTime(dt, o.location)
	if !ok {
		return core.EventTime{}
	}
	if isAllDay {
		return core.EventTime{Date: t.Format(core.DateLayout)}
	}
	return core.EventTime{DateTime: t.Format(time.RFC3339)}
}

// parseSDKDateTime converts a Graph SDK DateTimeTimeZone to time.Time.
// Graph omits the offset; values are in the zone requested through the
// Prefer header, unless the payload names a different one.
func parseSDKDateTime(dt models.DateTimeTimeZoneable, loc *time.Location) (time.Time, bool) {
	if dt == nil {
		return time.Time{}, false
	}
	dateTimeStr := dt.GetDateTime()
	if dateTimeStr == nil {
		return time.Time{}, false
	}
	if tz := derefStr(dt.GetTimeZone()); tz != "" && tz != loc.String() {
		if named, err := time.LoadLocation(tz); err == nil {
			loc = named
		}
	}
	layouts := []string{
		"2006-01-02T15:04:05.0000000",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, *dateTimeStr, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
