package google

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/theakshaypant/crmcal/internal/adapter/oauthutil"
	"github.com/theakshaypant/crmcal/internal/core"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	oauth2v2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const (
	eventsWindow = 30 * 24 * time.Hour
	maxResults   = 100
)

var scopes = []string{
	calendar.CalendarReadonlyScope,
	oauth2v2.UserinfoProfileScope,
	oauth2v2.UserinfoEmailScope,
}

// Config holds the OAuth client and the endpoints the adapter talks to.
// Endpoint overrides exist for tests; leave them empty in production.
type Config struct {
	ClientID           string
	ClientSecret       string
	DefaultRedirectURI string

	AuthURL        string
	TokenURL       string
	CalendarAPIURL string
	ProfileAPIURL  string

	// Base client for provider calls. nil means http.DefaultClient.
	HTTPClient *http.Client
}

// GoogleAdapter is the relay-side Google Calendar provider.
type GoogleAdapter struct {
	cfg      Config
	endpoint oauth2.Endpoint
}

var _ core.Provider = (*GoogleAdapter)(nil)

func NewGoogleAdapter(cfg Config) *GoogleAdapter {
	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	// Client credentials go in the form body, never in a Basic header.
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	return &GoogleAdapter{cfg: cfg, endpoint: endpoint}
}

func (g *GoogleAdapter) Kind() core.ProviderKind { return core.ProviderGoogle }
func (g *GoogleAdapter) Name() string            { return "Google" }
func (g *GoogleAdapter) Console() string         { return "Google Cloud Console" }

func (g *GoogleAdapter) Configured() bool {
	return g.cfg.ClientID != "" && g.cfg.ClientSecret != ""
}

func (g *GoogleAdapter) oauthConfig(redirectURI string) *oauth2.Config {
	if redirectURI == "" {
		redirectURI = g.cfg.DefaultRedirectURI
	}
	return &oauth2.Config{
		ClientID:     g.cfg.ClientID,
		ClientSecret: g.cfg.ClientSecret,
		Endpoint:     g.endpoint,
		RedirectURL:  redirectURI,
		Scopes:       scopes,
	}
}

func (g *GoogleAdapter) withClient(ctx context.Context) context.Context {
	if g.cfg.HTTPClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, g.cfg.HTTPClient)
}

// AuthURL requests offline access and forces the consent screen so a refresh
// token is issued on every connect.
func (g *GoogleAdapter) AuthURL(redirectURI string) string {
	return g.oauthConfig(redirectURI).AuthCodeURL("", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (g *GoogleAdapter) Exchange(ctx context.Context, code, redirectURI string) (*core.Grant, error) {
	tok, err := g.oauthConfig(redirectURI).Exchange(g.withClient(ctx), code)
	if err != nil {
		return nil, oauthutil.TranslateError(err)
	}
	return oauthutil.GrantFromToken(tok, ""), nil
}

func (g *GoogleAdapter) Refresh(ctx context.Context, refreshToken string) (*core.Grant, error) {
	src := g.oauthConfig("").TokenSource(g.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, oauthutil.TranslateError(err)
	}
	return oauthutil.GrantFromToken(tok, refreshToken), nil
}

// apiOptions builds a client that sends accessToken as a static bearer token.
func (g *GoogleAdapter) apiOptions(ctx context.Context, accessToken, endpoint string) []option.ClientOption {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(g.withClient(ctx), src))}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	return opts
}

// FetchEvents lists the primary calendar from now through the next 30 days,
// recurring events expanded.
func (g *GoogleAdapter) FetchEvents(ctx context.Context, accessToken string, now time.Time) ([]core.Event, error) {
	service, err := calendar.NewService(ctx, g.apiOptions(ctx, accessToken, g.cfg.CalendarAPIURL)...)
	if err != nil {
		return nil, err
	}

	// Google API requires RFC3339 format
	eventsResult, err := service.Events.List("primary").
		TimeMin(now.Format(time.RFC3339)).
		TimeMax(now.Add(eventsWindow).Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, translateAPIError(err)
	}

	results := make([]core.Event, 0, len(eventsResult.Items))
	for _, item := range eventsResult.Items {
		results = append(results, parseEvent(item))
	}
	return results, nil
}

func (g *GoogleAdapter) FetchProfile(ctx context.Context, accessToken string) (*core.Profile, error) {
	service, err := oauth2v2.NewService(ctx, g.apiOptions(ctx, accessToken, g.cfg.ProfileAPIURL)...)
	if err != nil {
		return nil, err
	}

	info, err := service.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, translateAPIError(err)
	}
	return &core.Profile{
		Name:    info.Name,
		Email:   info.Email,
		Picture: info.Picture,
	}, nil
}

// parseEvent converts a Google Calendar event to our unified Event type.
// Google already uses the {dateTime} / {date} split, so times pass through.
func parseEvent(item *calendar.Event) core.Event {
	event := core.Event{
		ID:           item.Id,
		Provider:     core.ProviderGoogle,
		Title:        item.Summary,
		Location:     item.Location,
		ExternalLink: item.HtmlLink,
		Description:  item.Description,
	}
	if item.Start != nil {
		event.Start = core.EventTime{DateTime: item.Start.DateTime, Date: item.Start.Date}
	}
	if item.End != nil {
		event.End = core.EventTime{DateTime: item.End.DateTime, Date: item.End.Date}
	}
	return event
}

func translateAPIError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	return &core.ProviderError{Status: gerr.Code, Message: gerr.Message, Err: err}
}
