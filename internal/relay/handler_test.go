package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theakshaypant/crmcal/internal/core"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeProvider struct {
	kind       core.ProviderKind
	configured bool

	grant     *core.Grant
	err       error
	events    []core.Event
	profile   *core.Profile
	gotCode   string
	gotToken  string
	exchanges int
}

func (f *fakeProvider) Kind() core.ProviderKind { return f.kind }
func (f *fakeProvider) Name() string {
	if f.kind == core.ProviderMicrosoft {
		return "Microsoft"
	}
	return "Google"
}
func (f *fakeProvider) Console() string  { return "Google Cloud Console" }
func (f *fakeProvider) Configured() bool { return f.configured }
func (f *fakeProvider) AuthURL(redirectURI string) string {
	return "https://accounts.example.com/auth?redirect_uri=" + redirectURI
}
func (f *fakeProvider) Exchange(ctx context.Context, code, redirectURI string) (*core.Grant, error) {
	f.exchanges++
	f.gotCode = code
	return f.grant, f.err
}
func (f *fakeProvider) Refresh(ctx context.Context, refreshToken string) (*core.Grant, error) {
	f.gotToken = refreshToken
	return f.grant, f.err
}
func (f *fakeProvider) FetchEvents(ctx context.Context, accessToken string, now time.Time) ([]core.Event, error) {
	f.gotToken = accessToken
	return f.events, f.err
}
func (f *fakeProvider) FetchProfile(ctx context.Context, accessToken string) (*core.Profile, error) {
	f.gotToken = accessToken
	return f.profile, f.err
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func TestUnconfiguredProvider(t *testing.T) {
	r := NewRouter(
		&fakeProvider{kind: core.ProviderGoogle},
		&fakeProvider{kind: core.ProviderMicrosoft},
	)

	w, body := do(t, r, http.MethodPost, GooglePath, `{"action":"getAuthUrl"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Server configuration error: Google credentials not configured", body["error"])

	// The configuration check runs before dispatch.
	w, body = do(t, r, http.MethodPost, MicrosoftPath, `{"action":"bogus"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Server configuration error: Microsoft credentials not configured", body["error"])
}

func TestInvalidAction(t *testing.T) {
	r := NewRouter(&fakeProvider{kind: core.ProviderGoogle, configured: true})

	for _, payload := range []string{`{"action":"deleteEverything"}`, `{}`, `not json`, ``} {
		w, body := do(t, r, http.MethodPost, GooglePath, payload)
		assert.Equal(t, http.StatusBadRequest, w.Code, payload)
		assert.Equal(t, "Invalid action", body["error"], payload)
	}
}

func TestCORS(t *testing.T) {
	r := NewRouter(&fakeProvider{kind: core.ProviderGoogle, configured: true})

	for _, path := range []string{GooglePath, "/anything/else"} {
		w, _ := do(t, r, http.MethodOptions, path, "")
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "authorization, x-client-info, apikey, content-type", w.Header().Get("Access-Control-Allow-Headers"))
	}

	w, _ := do(t, r, http.MethodPost, GooglePath, `{"action":"nope"}`)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestGetAuthURL(t *testing.T) {
	r := NewRouter(&fakeProvider{kind: core.ProviderGoogle, configured: true})

	w, body := do(t, r, http.MethodPost, GooglePath, `{"action":"getAuthUrl","redirectUri":"http://localhost:8085/"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://accounts.example.com/auth?redirect_uri=http://localhost:8085/", body["authUrl"])
}

func TestExchangeCodeValidation(t *testing.T) {
	p := &fakeProvider{kind: core.ProviderGoogle, configured: true}
	r := NewRouter(p)

	w, body := do(t, r, http.MethodPost, GooglePath, `{"action":"exchangeCode","redirectUri":"http://localhost:8085/"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Authorization code is required", body["error"])

	w, body = do(t, r, http.MethodPost, GooglePath, `{"action":"exchangeCode","code":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Redirect URI is required", body["error"])

	assert.Zero(t, p.exchanges, "provider must not be called for invalid input")
}

func TestExchangeCode(t *testing.T) {
	p := &fakeProvider{
		kind:       core.ProviderGoogle,
		configured: true,
		grant:      &core.Grant{AccessToken: "at", ExpiresIn: 3599},
	}
	r := NewRouter(p)

	w, _ := do(t, r, http.MethodPost, GooglePath, `{"action":"exchangeCode","code":"abc","redirectUri":"http://localhost:8085/"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"accessToken":"at","refreshToken":"","expiresIn":3599}`, w.Body.String())
	assert.Equal(t, "abc", p.gotCode)
}

func TestExchangeCodeRejected(t *testing.T) {
	p := &fakeProvider{
		kind:       core.ProviderGoogle,
		configured: true,
		err:        &core.ProviderError{Status: 400, Code: "invalid_grant", Message: "Bad Request"},
	}
	r := NewRouter(p)

	w, body := do(t, r, http.MethodPost, GooglePath, `{"action":"exchangeCode","code":"abc","redirectUri":"http://localhost:8085/"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Bad Request", body["error"])
	assert.Equal(t, "Ensure the redirect URI matches exactly what's registered in Google Cloud Console", body["hint"])
	assert.Equal(t, 1, p.exchanges)
}

func TestRefreshToken(t *testing.T) {
	p := &fakeProvider{
		kind:       core.ProviderGoogle,
		configured: true,
		grant:      &core.Grant{AccessToken: "new", ExpiresIn: 3600},
	}
	r := NewRouter(p)

	w, _ := do(t, r, http.MethodPost, GooglePath, `{"action":"refreshToken"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodPost, GooglePath, `{"action":"refreshToken","refreshToken":"rt"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"accessToken":"new","expiresIn":3600}`, w.Body.String())
	assert.Equal(t, "rt", p.gotToken)

	p.err = &core.ProviderError{Status: 400, Code: "invalid_grant", Message: "Token has been expired or revoked."}
	w, body := do(t, r, http.MethodPost, GooglePath, `{"action":"refreshToken","refreshToken":"rt"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Token has been expired or revoked.", body["error"])
}

func TestGetEvents(t *testing.T) {
	p := &fakeProvider{kind: core.ProviderMicrosoft, configured: true}
	r := NewRouter(p)

	w, body := do(t, r, http.MethodPost, MicrosoftPath, `{"action":"getEvents"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Access token required", body["error"])

	w, _ = do(t, r, http.MethodPost, MicrosoftPath, `{"action":"getEvents","accessToken":"tok"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"events":[]}`, w.Body.String())

	p.events = []core.Event{{
		ID: "1", Provider: core.ProviderMicrosoft, Title: "Open house",
		Start: core.EventTime{Date: "2026-01-17"}, End: core.EventTime{Date: "2026-01-18"},
	}}
	w, _ = do(t, r, http.MethodPost, MicrosoftPath, `{"action":"getEvents","accessToken":"tok"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"events":[{"id":"1","provider":"microsoft","title":"Open house","start":{"date":"2026-01-17"},"end":{"date":"2026-01-18"}}]}`, w.Body.String())
}

func TestGetEventsPassesProviderStatus(t *testing.T) {
	p := &fakeProvider{
		kind:       core.ProviderGoogle,
		configured: true,
		err:        &core.ProviderError{Status: 401, Message: "Invalid Credentials"},
	}
	r := NewRouter(p)

	w, body := do(t, r, http.MethodPost, GooglePath, `{"action":"getEvents","accessToken":"stale"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Failed to fetch calendar events", body["error"])
	assert.EqualValues(t, 401, body["status"])

	p.err = &core.ProviderError{Status: 403, Message: "Forbidden"}
	w, body = do(t, r, http.MethodPost, GooglePath, `{"action":"getProfile","accessToken":"tok"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Failed to fetch profile", body["error"])
}

func TestNetworkFailureIs500(t *testing.T) {
	p := &fakeProvider{kind: core.ProviderGoogle, configured: true, err: errors.New("dial tcp: connection refused")}
	r := NewRouter(p)

	w, body := do(t, r, http.MethodPost, GooglePath, `{"action":"getEvents","accessToken":"tok"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "dial tcp: connection refused", body["error"])
}

func TestGetProfile(t *testing.T) {
	p := &fakeProvider{
		kind:       core.ProviderGoogle,
		configured: true,
		profile:    &core.Profile{Name: "Dana Agent", Email: "dana@example.com"},
	}
	r := NewRouter(p)

	w, _ := do(t, r, http.MethodPost, GooglePath, `{"action":"getProfile"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(t, r, http.MethodPost, GooglePath, `{"action":"getProfile","accessToken":"tok"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"profile":{"name":"Dana Agent","email":"dana@example.com"}}`, w.Body.String())
}

func TestHealth(t *testing.T) {
	r := NewRouter(
		&fakeProvider{kind: core.ProviderGoogle, configured: true},
		&fakeProvider{kind: core.ProviderMicrosoft},
	)
	w, body := do(t, r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, map[string]any{"google": true, "microsoft": false}, body["configured"])
}

func TestClientAgainstRouter(t *testing.T) {
	p := &fakeProvider{
		kind:       core.ProviderGoogle,
		configured: true,
		grant:      &core.Grant{AccessToken: "at", RefreshToken: "rt", ExpiresIn: 3599},
		profile:    &core.Profile{Name: "Dana", Email: "dana@example.com"},
	}
	srv := httptest.NewServer(NewRouter(p))
	defer srv.Close()

	c := NewClient(EndpointFor(srv.URL+"/", core.ProviderGoogle), srv.Client())
	ctx := context.Background()

	authURL, err := c.GetAuthURL(ctx, "http://localhost:8085/")
	require.NoError(t, err)
	assert.Contains(t, authURL, "redirect_uri=http://localhost:8085/")

	grant, err := c.ExchangeCode(ctx, "code", "http://localhost:8085/")
	require.NoError(t, err)
	assert.Equal(t, &core.Grant{AccessToken: "at", RefreshToken: "rt", ExpiresIn: 3599}, grant)

	profile, err := c.GetProfile(ctx, "at")
	require.NoError(t, err)
	assert.Equal(t, "Dana", profile.Name)

	_, err = c.ExchangeCode(ctx, "", "http://localhost:8085/")
	var relayErr *Error
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, "Authorization code is required", relayErr.Message)
	assert.Equal(t, http.StatusBadRequest, relayErr.HTTPStatus)
	assert.False(t, IsUnauthorized(err))

	p.err = &core.ProviderError{Status: 401, Message: "Invalid Credentials"}
	_, err = c.GetEvents(ctx, "stale")
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, "Failed to fetch calendar events", relayErr.Message)
	assert.True(t, IsUnauthorized(err))

	p.err = &core.ProviderError{Status: 400, Code: "invalid_grant", Message: "Bad Request"}
	_, err = c.ExchangeCode(ctx, "code", "http://localhost:8085/")
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, "Bad Request. Ensure the redirect URI matches exactly what's registered in Google Cloud Console", err.Error())
}

func TestClientSendsHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		var req Request
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, ActionGetAuthURL, req.Action)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"authUrl":"https://x"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil).WithHeader("apikey", "anon")
	u, err := c.GetAuthURL(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "https://x", u)
	assert.Equal(t, "anon", got.Get("apikey"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
}

func TestClientErrorBodyOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.TrimSpace([]byte(`{"error":"Failed to fetch calendar events","status":401}`)))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).GetEvents(context.Background(), "t")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
}
