// Package relay is the server-side OAuth relay. It keeps the provider client
// secrets off the client and proxies token exchange, token refresh and the
// calendar and profile reads for Google and Microsoft.
package relay

import (
	"github.com/theakshaypant/crmcal/internal/core"
)

// Actions accepted in Request.Action.
const (
	ActionGetAuthURL   = "getAuthUrl"
	ActionExchangeCode = "exchangeCode"
	ActionRefreshToken = "refreshToken"
	ActionGetEvents    = "getEvents"
	ActionGetProfile   = "getProfile"
)

// Endpoint paths, one per provider.
const (
	GooglePath    = "/functions/v1/google-calendar"
	MicrosoftPath = "/functions/v1/microsoft-calendar"
)

// PathFor returns the relay endpoint path of a provider.
func PathFor(kind core.ProviderKind) string {
	if kind == core.ProviderMicrosoft {
		return MicrosoftPath
	}
	return GooglePath
}

// Request is the single JSON body every endpoint accepts.
type Request struct {
	Action       string `json:"action"`
	RedirectURI  string `json:"redirectUri,omitempty"`
	Code         string `json:"code,omitempty"`
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

type AuthURLResponse struct {
	AuthURL string `json:"authUrl"`
}

// ExchangeResponse always carries refreshToken, even when empty.
type ExchangeResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// RefreshResponse only carries refreshToken when the provider rotated it.
type RefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type EventsResponse struct {
	Events []core.Event `json:"events"`
}

type ProfileResponse struct {
	Profile core.Profile `json:"profile"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
	// Upstream provider status, when the failure came from the provider
	Status int    `json:"status,omitempty"`
	Hint   string `json:"hint,omitempty"`
}
