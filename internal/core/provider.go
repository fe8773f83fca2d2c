package core

import (
	"context"
	"time"
)

// Grant is the token set a provider hands back from a code exchange or a
// refresh-token grant.
type Grant struct {
	AccessToken string
	// Empty on refresh unless the provider rotated it
	RefreshToken string
	// Seconds until the access token expires
	ExpiresIn int64
}

// Provider is the server-side half of a calendar integration: it holds the
// OAuth client credentials and talks to the provider's authorize, token,
// calendar and profile endpoints.
type Provider interface {
	// Kind returns the provider tag stamped on normalized events.
	Kind() ProviderKind
	// Name returns a human-readable label used in error messages (e.g. "Google").
	Name() string
	// Console names the place where redirect URIs are registered.
	Console() string
	// Configured reports whether client credentials are present.
	Configured() bool

	// AuthURL builds the consent URL for redirectURI. An empty redirectURI
	// falls back to the provider's configured default.
	AuthURL(redirectURI string) string
	// Exchange trades an authorization code for tokens. Codes are single-use,
	// so this must never be retried.
	Exchange(ctx context.Context, code, redirectURI string) (*Grant, error)
	// Refresh runs the refresh-token grant.
	Refresh(ctx context.Context, refreshToken string) (*Grant, error)

	// FetchEvents returns the upcoming events of the primary calendar,
	// starting at now, normalized to Event.
	FetchEvents(ctx context.Context, accessToken string, now time.Time) ([]Event, error)
	// FetchProfile returns the account's display name and email.
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)
}
