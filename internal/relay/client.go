package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/theakshaypant/crmcal/internal/core"
)

// Error is a relay answer outside 2xx, or a 2xx body carrying an error.
type Error struct {
	Message string
	// Upstream provider status if reported, else the relay's HTTP status
	Status int
	Hint   string
	// Status line of the relay response itself
	HTTPStatus int
}

func (e *Error) Error() string {
	if e.Hint != "" {
		return e.Message + ". " + e.Hint
	}
	return e.Message
}

// IsUnauthorized reports whether err is a relay error caused by a rejected
// access token.
func IsUnauthorized(err error) bool {
	var re *Error
	if !errors.As(err, &re) {
		return false
	}
	return re.Status == http.StatusUnauthorized || re.HTTPStatus == http.StatusUnauthorized
}

// Client calls one provider endpoint of a relay.
type Client struct {
	endpoint   string
	httpClient *http.Client
	headers    map[string]string
}

// NewClient returns a client for the endpoint URL (relay base + provider
// path). Requests carry no client-side timeout; bound them with ctx.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{endpoint: endpoint, httpClient: httpClient, headers: map[string]string{}}
}

// EndpointFor joins a relay base URL and a provider's path.
func EndpointFor(baseURL string, kind core.ProviderKind) string {
	return strings.TrimSuffix(baseURL, "/") + PathFor(kind)
}

// WithHeader adds a header sent on every call, e.g. an apikey for a hosted relay.
func (c *Client) WithHeader(key, value string) *Client {
	c.headers[key] = value
	return c
}

func (c *Client) GetAuthURL(ctx context.Context, redirectURI string) (string, error) {
	var out AuthURLResponse
	if err := c.call(ctx, Request{Action: ActionGetAuthURL, RedirectURI: redirectURI}, &out); err != nil {
		return "", err
	}
	return out.AuthURL, nil
}

func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*core.Grant, error) {
	var out ExchangeResponse
	if err := c.call(ctx, Request{Action: ActionExchangeCode, Code: code, RedirectURI: redirectURI}, &out); err != nil {
		return nil, err
	}
	return &core.Grant{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken, ExpiresIn: out.ExpiresIn}, nil
}

func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*core.Grant, error) {
	var out RefreshResponse
	if err := c.call(ctx, Request{Action: ActionRefreshToken, RefreshToken: refreshToken}, &out); err != nil {
		return nil, err
	}
	return &core.Grant{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken, ExpiresIn: out.ExpiresIn}, nil
}

func (c *Client) GetEvents(ctx context.Context, accessToken string) ([]core.Event, error) {
	var out EventsResponse
	if err := c.call(ctx, Request{Action: ActionGetEvents, AccessToken: accessToken}, &out); err != nil {
		return nil, err
	}
	return out.Events, nil
}

func (c *Client) GetProfile(ctx context.Context, accessToken string) (*core.Profile, error) {
	var out ProfileResponse
	if err := c.call(ctx, Request{Action: ActionGetProfile, AccessToken: accessToken}, &out); err != nil {
		return nil, err
	}
	return &out.Profile, nil
}

func (c *Client) call(ctx context.Context, req Request, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("relay %s: %w", req.Action, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read relay response: %w", err)
	}

	var errBody ErrorResponse
	_ = json.Unmarshal(data, &errBody)
	if resp.StatusCode < 200 || resp.StatusCode > 299 || errBody.Error != "" {
		relayErr := &Error{
			Message:    errBody.Error,
			Status:     errBody.Status,
			Hint:       errBody.Hint,
			HTTPStatus: resp.StatusCode,
		}
		if relayErr.Message == "" {
			relayErr.Message = fmt.Sprintf("relay returned %s", resp.Status)
		}
		if relayErr.Status == 0 {
			relayErr.Status = resp.StatusCode
		}
		return relayErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode relay response: %w", err)
	}
	return nil
}
