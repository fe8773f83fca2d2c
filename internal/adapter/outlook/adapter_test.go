package outlook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theakshaypant/crmcal/internal/core"
)

const goodToken = "eyJ0eXAi.good"

// mockGraph imitates the identity platform token endpoint and the two Graph
// resources the adapter reads.
type mockGraph struct {
	mu         sync.Mutex
	lastQuery  url.Values
	lastPrefer string
	mail       *string
}

func newMockGraph(t *testing.T) (*mockGraph, *httptest.Server) {
	t.Helper()
	mail := "dana@contoso.com"
	m := &mockGraph{mail: &mail}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case path == "/token":
			m.token(w, r)
		case strings.HasSuffix(path, "/calendarView"):
			if !authorized(w, r) {
				return
			}
			m.mu.Lock()
			m.lastQuery = r.URL.Query()
			m.lastPrefer = r.Header.Get("Prefer")
			m.mu.Unlock()
			writeJSON(w, http.StatusOK, map[string]any{
				"value": []map[string]any{
					{
						"id":          "AAMkAD1",
						"subject":     "Listing walkthrough",
						"bodyPreview": "Bring the lockbox code",
						"isAllDay":    false,
						"webLink":     "https://outlook.office365.com/owa/?itemid=AAMkAD1",
						"location":    map[string]any{"displayName": "48 Elm Ave"},
						"start":       map[string]any{"dateTime": "2026-01-14T10:00:00.0000000", "timeZone": "UTC"},
						"end":         map[string]any{"dateTime": "2026-01-14T11:30:00.0000000", "timeZone": "UTC"},
					},
					{
						"id":       "AAMkAD2",
						"subject":  "Open house",
						"isAllDay": true,
						"start":    map[string]any{"dateTime": "2026-01-17T00:00:00.0000000", "timeZone": "UTC"},
						"end":      map[string]any{"dateTime": "2026-01-18T00:00:00.0000000", "timeZone": "UTC"},
					},
				},
			})
		case strings.HasSuffix(path, "/me") || strings.HasSuffix(path, "/me-token-to-replace"):
			if !authorized(w, r) {
				return
			}
			m.mu.Lock()
			body := map[string]any{
				"displayName":       "Dana Agent",
				"userPrincipalName": "dana@contoso.onmicrosoft.com",
			}
			if m.mail != nil {
				body["mail"] = *m.mail
			}
			m.mu.Unlock()
			writeJSON(w, http.StatusOK, body)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return m, srv
}

func (m *mockGraph) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("code") != "M.good" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":             "invalid_grant",
			"error_description": "AADSTS54005: OAuth2 Authorization code was already redeemed.",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  goodToken,
		"refresh_token": "M.refresh",
		"expires_in":    3600,
		"token_type":    "Bearer",
	})
}

func authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") == "Bearer "+goodToken {
		return true
	}
	writeJSON(w, http.StatusUnauthorized, map[string]any{
		"error": map[string]any{
			"code":    "InvalidAuthenticationToken",
			"message": "Lifetime validation failed, the token is expired.",
		},
	})
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestAdapter(srv *httptest.Server) *OutlookAdapter {
	return NewOutlookAdapter(Config{
		ClientID:     "client-id",
		ClientSecret: "secret",
		Timezone:     "UTC",
		TokenURL:     srv.URL + "/token",
		GraphURL:     srv.URL + "/v1.0",
		HTTPClient:   srv.Client(),
	})
}

func TestAuthURL(t *testing.T) {
	o := NewOutlookAdapter(Config{ClientID: "client-id", ClientSecret: "secret"})

	u, err := url.Parse(o.AuthURL("http://localhost:8085/"))
	require.NoError(t, err)
	assert.Equal(t, "login.microsoftonline.com", u.Host)
	assert.Equal(t, "/common/oauth2/v2.0/authorize", u.Path)

	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "http://localhost:8085/", q.Get("redirect_uri"))
	assert.Equal(t, "query", q.Get("response_mode"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "Calendars.Read User.Read offline_access", q.Get("scope"))
	assert.Empty(t, q.Get("access_type"))
}

func TestExchange(t *testing.T) {
	_, srv := newMockGraph(t)
	o := newTestAdapter(srv)

	grant, err := o.Exchange(context.Background(), "M.good", "http://localhost:8085/")
	require.NoError(t, err)
	assert.Equal(t, goodToken, grant.AccessToken)
	assert.Equal(t, "M.refresh", grant.RefreshToken)

	_, err = o.Exchange(context.Background(), "M.used", "http://localhost:8085/")
	pe, ok := core.AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, "invalid_grant", pe.Code)
	assert.Equal(t, "AADSTS54005: OAuth2 Authorization code was already redeemed.", pe.Message)
}

func TestFetchEvents(t *testing.T) {
	m, srv := newMockGraph(t)
	o := newTestAdapter(srv)
	now := time.Date(2026, 1, 13, 15, 0, 0, 0, time.UTC)

	events, err := o.FetchEvents(context.Background(), goodToken, now)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, core.Event{
		ID:           "AAMkAD1",
		Provider:     core.ProviderMicrosoft,
		Title:        "Listing walkthrough",
		Start:        core.EventTime{DateTime: "2026-01-14T10:00:00Z"},
		End:          core.EventTime{DateTime: "2026-01-14T11:30:00Z"},
		Location:     "48 Elm Ave",
		ExternalLink: "https://outlook.office365.com/owa/?itemid=AAMkAD1",
		Description:  "Bring the lockbox code",
	}, events[0])
	assert.Equal(t, core.EventTime{Date: "2026-01-17"}, events[1].Start)
	assert.Equal(t, core.EventTime{Date: "2026-01-18"}, events[1].End)

	assert.Equal(t, "50", m.lastQuery.Get("$top"))
	assert.Equal(t, "start/dateTime", m.lastQuery.Get("$orderby"))
	assert.Equal(t, "2026-01-13T15:00:00Z", m.lastQuery.Get("startDateTime"))
	assert.Equal(t, "2026-01-20T15:00:00Z", m.lastQuery.Get("endDateTime"))
	assert.Equal(t, `outlook.timezone="UTC"`, m.lastPrefer)
}

func TestFetchEventsUnauthorized(t *testing.T) {
	_, srv := newMockGraph(t)
	o := newTestAdapter(srv)

	_, err := o.FetchEvents(context.Background(), "expired", time.Now())
	pe, ok := core.AsProviderError(err)
	require.True(t, ok, "want ProviderError, got %v", err)
	assert.Equal(t, http.StatusUnauthorized, pe.Status)
}

func TestFetchProfile(t *testing.T) {
	m, srv := newMockGraph(t)
	o := newTestAdapter(srv)

	profile, err := o.FetchProfile(context.Background(), goodToken)
	require.NoError(t, err)
	assert.Equal(t, &core.Profile{Name: "Dana Agent", Email: "dana@contoso.com"}, profile)

	m.mu.Lock()
	m.mail = nil
	m.mu.Unlock()
	profile, err = o.FetchProfile(context.Background(), goodToken)
	require.NoError(t, err)
	assert.Equal(t, "dana@contoso.onmicrosoft.com", profile.Email)
}

func TestParseSDKDateTimeLayouts(t *testing.T) {
	o := NewOutlookAdapter(Config{})
	assert.Equal(t, "UTC", o.cfg.Timezone)
	assert.Equal(t, "common", o.cfg.TenantID)

	tm, ok := parseSDKDateTime(nil, time.UTC)
	assert.False(t, ok)
	assert.True(t, tm.IsZero())
}
