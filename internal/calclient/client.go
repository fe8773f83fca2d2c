// Package calclient drives one provider's calendar connection: connect,
// authorize via redirect, fetch events and profile, disconnect.
package calclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"

	"github.com/theakshaypant/crmcal/internal/core"
	"github.com/theakshaypant/crmcal/internal/notify"
	"github.com/theakshaypant/crmcal/internal/relay"
)

// State is the connection state of a session. There is no error state:
// every failure lands back in Disconnected or leaves Connected as it was.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "disconnected"
}

var ErrNotConnected = errors.New("calendar not connected")

// Relay is the subset of the relay API the client uses.
type Relay interface {
	GetAuthURL(ctx context.Context, redirectURI string) (string, error)
	ExchangeCode(ctx context.Context, code, redirectURI string) (*core.Grant, error)
	RefreshToken(ctx context.Context, refreshToken string) (*core.Grant, error)
	GetEvents(ctx context.Context, accessToken string) ([]core.Event, error)
	GetProfile(ctx context.Context, accessToken string) (*core.Profile, error)
}

// Opener sends the user to a URL, usually in a browser.
type Opener interface {
	Open(url string) error
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(string) error

func (f OpenerFunc) Open(u string) error { return f(u) }

type Options struct {
	Provider    core.ProviderKind
	Relay       Relay
	Store       core.TokenStore
	Notifier    notify.Notifier
	Opener      Opener
	RedirectURI string

	Now func() time.Time
}

// Snapshot is a copy of the session for rendering.
type Snapshot struct {
	State    State
	Profile  *core.Profile
	Events   []core.Event
	Loading  bool
	Provider core.ProviderKind
}

// Client is one provider's calendar session.
type Client struct {
	provider    core.ProviderKind
	relay       Relay
	store       core.TokenStore
	notifier    notify.Notifier
	opener      Opener
	redirectURI string
	now         func() time.Time
	log         *logrus.Entry
	copy        messages

	// The mutex only protects memory; fetch outcomes are not ordered
	// against each other.
	mu          sync.Mutex
	state       State
	accessToken string
	profile     *core.Profile
	events      []core.Event
	loading     int
}

func New(opts Options) *Client {
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{
		provider:    opts.Provider,
		relay:       opts.Relay,
		store:       opts.Store,
		notifier:    opts.Notifier,
		opener:      opts.Opener,
		redirectURI: opts.RedirectURI,
		now:         opts.Now,
		log:         logrus.WithField("provider", opts.Provider),
		copy:        messagesFor(opts.Provider),
	}
}

func (c *Client) Provider() core.ProviderKind { return c.provider }
func (c *Client) RedirectURI() string         { return c.redirectURI }

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		State:    c.state,
		Events:   append([]core.Event(nil), c.events...),
		Loading:  c.loading > 0,
		Provider: c.provider,
	}
	if c.profile != nil {
		p := *c.profile
		s.Profile = &p
	}
	return s
}

// Mount restores a stored session and, when currentURL carries an
// authorization code and no session was restored, completes the redirect.
// It returns the URL to show afterwards: currentURL with the query removed
// when a code was handled, else currentURL unchanged.
func (c *Client) Mount(ctx context.Context, currentURL *url.URL) (*url.URL, error) {
	rec, err := c.store.Load(ctx)
	if err != nil {
		return currentURL, fmt.Errorf("load stored tokens: %w", err)
	}
	if rec != nil {
		c.mu.Lock()
		c.state = Connected
		c.accessToken = rec.AccessToken
		c.mu.Unlock()
		c.log.Debug("Restored stored session")
	}

	if currentURL != nil && c.State() != Connected && hasCallbackParams(currentURL) {
		return c.HandleRedirect(ctx, currentURL)
	}

	if c.State() == Connected {
		c.Refresh(ctx)
	}
	return currentURL, nil
}

// Connect asks the relay for the consent URL and opens it. The session stays
// Disconnected; HandleRedirect picks up when the provider redirects back.
func (c *Client) Connect(ctx context.Context) error {
	authURL, err := c.relay.GetAuthURL(ctx, c.redirectURI)
	if err == nil && authURL == "" {
		err = errors.New("No authentication URL received")
	}
	if err == nil && c.opener != nil {
		err = c.opener.Open(authURL)
	}
	if err != nil {
		c.log.WithError(err).Error("Connect failed")
		c.notifyErr("Connection Failed", err, c.copy.connectFailed)
		return err
	}
	c.log.WithField("redirect_uri", c.redirectURI).Info("Opened consent page")
	return nil
}

// HandleRedirect completes the authorization from the provider's redirect
// back to us. On success the session is Connected and a refresh has run.
// The returned URL has the query removed. A redirect arriving while the
// session is already Connected is ignored.
func (c *Client) HandleRedirect(ctx context.Context, callback *url.URL) (*url.URL, error) {
	clean := StripQuery(callback)
	q := callback.Query()

	c.mu.Lock()
	if c.state == Connected {
		c.mu.Unlock()
		c.log.Debug("Ignoring redirect for a connected session")
		return clean, nil
	}
	c.state = Connecting
	c.loading++
	c.mu.Unlock()

	err := c.exchange(ctx, q)

	c.mu.Lock()
	c.loading--
	c.mu.Unlock()

	if err != nil {
		c.log.WithError(err).Error("Authorization failed")
		if clearErr := c.store.Clear(ctx); clearErr != nil {
			c.log.WithError(clearErr).Warn("Failed to clear token store")
		}
		c.mu.Lock()
		c.state = Disconnected
		c.accessToken = ""
		c.mu.Unlock()
		c.notifyErr("Authentication Failed", err, c.copy.authFailed)
		return clean, err
	}

	c.notifier.Notify(notify.Notification{Title: "Connected!", Description: c.copy.connected})
	c.Refresh(ctx)
	return clean, nil
}

func (c *Client) exchange(ctx context.Context, q url.Values) error {
	if e := q.Get("error"); e != "" {
		if desc := q.Get("error_description"); desc != "" {
			return errors.New(desc)
		}
		return errors.New(e)
	}
	code := q.Get("code")
	if code == "" {
		return errors.New("Authorization code is required")
	}

	// Codes are single-use: one attempt, no retry.
	grant, err := c.relay.ExchangeCode(ctx, code, c.redirectURI)
	if err != nil {
		return err
	}
	if grant.AccessToken == "" {
		return fmt.Errorf("No access token received from %s", c.copy.vendor)
	}

	if err := c.store.Save(ctx, core.NewTokenRecord(*grant, c.now())); err != nil {
		return fmt.Errorf("save tokens: %w", err)
	}

	c.mu.Lock()
	c.state = Connected
	c.accessToken = grant.AccessToken
	c.mu.Unlock()
	c.log.Info("Connected")
	return nil
}

// Refresh fetches events and profile concurrently. The two fetches are
// independent; neither waits for or undoes the other.
func (c *Client) Refresh(ctx context.Context) {
	var wg conc.WaitGroup
	wg.Go(func() { _ = c.FetchEvents(ctx) })
	wg.Go(func() { _ = c.FetchProfile(ctx) })
	wg.Wait()
}

// FetchEvents replaces the event set. A 401 from the provider is the only
// failure that disconnects the session.
func (c *Client) FetchEvents(ctx context.Context) error {
	token, ok := c.token()
	if !ok {
		return ErrNotConnected
	}

	c.mu.Lock()
	c.loading++
	c.mu.Unlock()
	events, err := c.relay.GetEvents(ctx, token)
	c.mu.Lock()
	c.loading--
	c.mu.Unlock()

	if err != nil {
		c.mu.Lock()
		stale := c.accessToken != token
		c.mu.Unlock()
		if stale {
			c.log.WithError(err).Debug("Dropping events failure for a replaced session")
			return nil
		}
		if relay.IsUnauthorized(err) {
			c.log.Warn("Access token rejected, disconnecting")
			if derr := c.Disconnect(ctx); derr != nil {
				c.log.WithError(derr).Warn("Disconnect after expiry failed")
			}
			c.notifier.Notify(notify.Notification{
				Title:       "Session Expired",
				Description: c.copy.sessionExpired,
				Variant:     notify.VariantDestructive,
			})
			return err
		}
		c.log.WithError(err).Error("Fetch events failed")
		c.notifyErr("Failed to Load Events", err, "Could not fetch calendar events")
		return err
	}

	c.mu.Lock()
	if c.accessToken == token {
		c.events = events
	}
	c.mu.Unlock()
	c.log.WithField("count", len(events)).Debug("Fetched events")
	return nil
}

// FetchProfile loads the account profile. Failures are logged only.
func (c *Client) FetchProfile(ctx context.Context) error {
	token, ok := c.token()
	if !ok {
		return ErrNotConnected
	}

	profile, err := c.relay.GetProfile(ctx, token)
	if err != nil {
		c.log.WithError(err).Warn("Fetch profile failed")
		return err
	}

	c.mu.Lock()
	// Ignore results for a session that ended while the call was in flight.
	if c.accessToken == token {
		c.profile = profile
	}
	c.mu.Unlock()
	return nil
}

// Disconnect forgets the session locally. Provider-side tokens are not revoked.
func (c *Client) Disconnect(ctx context.Context) error {
	err := c.store.Clear(ctx)

	c.mu.Lock()
	c.state = Disconnected
	c.accessToken = ""
	c.profile = nil
	c.events = nil
	c.mu.Unlock()

	c.log.Info("Disconnected")
	c.notifier.Notify(notify.Notification{Title: "Disconnected", Description: c.copy.disconnected})
	if err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	return nil
}

// RefreshAccessToken runs the refresh-token grant and rewrites the stored
// tokens. It is only ever called on explicit user request.
func (c *Client) RefreshAccessToken(ctx context.Context) (*core.TokenRecord, error) {
	rec, err := c.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stored tokens: %w", err)
	}
	if rec == nil {
		return nil, ErrNotConnected
	}
	if rec.RefreshToken == "" {
		return nil, errors.New("no refresh token stored; reconnect to obtain one")
	}

	grant, err := c.relay.RefreshToken(ctx, rec.RefreshToken)
	if err != nil {
		return nil, err
	}
	if grant.RefreshToken == "" {
		grant.RefreshToken = rec.RefreshToken
	}

	next := core.NewTokenRecord(*grant, c.now())
	if err := c.store.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("save tokens: %w", err)
	}

	c.mu.Lock()
	c.state = Connected
	c.accessToken = next.AccessToken
	c.mu.Unlock()
	c.log.Info("Access token refreshed")
	return &next, nil
}

func (c *Client) token() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, c.state == Connected && c.accessToken != ""
}

func (c *Client) notifyErr(title string, err error, fallback string) {
	desc := fallback
	if err != nil && err.Error() != "" {
		desc = err.Error()
	}
	c.notifier.Notify(notify.Notification{Title: title, Description: desc, Variant: notify.VariantDestructive})
}

func hasCallbackParams(u *url.URL) bool {
	q := u.Query()
	return q.Get("code") != "" || q.Get("error") != ""
}

// messages is the per-provider notification copy.
type messages struct {
	vendor         string
	connected      string
	sessionExpired string
	disconnected   string
	connectFailed  string
	authFailed     string
}

func messagesFor(kind core.ProviderKind) messages {
	if kind == core.ProviderMicrosoft {
		return messages{
			vendor:         "Microsoft",
			connected:      "Your Outlook calendar is now linked",
			sessionExpired: "Please reconnect your Outlook calendar",
			disconnected:   "Outlook calendar has been unlinked",
			connectFailed:  "Could not initiate Microsoft login",
			authFailed:     "Could not complete Microsoft login",
		}
	}
	return messages{
		vendor:         "Google",
		connected:      "Your Google Calendar is now linked",
		sessionExpired: "Please reconnect your Google Calendar",
		disconnected:   "Google Calendar has been unlinked",
		connectFailed:  "Could not initiate Google login",
		authFailed:     "Could not complete Google login",
	}
}
