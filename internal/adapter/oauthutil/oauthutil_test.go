package oauthutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/theakshaypant/crmcal/internal/core"
)

func TestGrantFromToken(t *testing.T) {
	tok := &oauth2.Token{AccessToken: "at", RefreshToken: "rt", Expiry: time.Now().Add(time.Hour)}

	g := GrantFromToken(tok, "")
	assert.Equal(t, "at", g.AccessToken)
	assert.Equal(t, "rt", g.RefreshToken)
	assert.InDelta(t, 3600, g.ExpiresIn, 2)

	assert.Empty(t, GrantFromToken(tok, "rt").RefreshToken, "unrotated refresh token is not echoed")
	assert.Zero(t, GrantFromToken(&oauth2.Token{AccessToken: "at"}, "").ExpiresIn)
}

func TestTranslateError(t *testing.T) {
	plain := errors.New("dial tcp: refused")
	assert.Same(t, plain, TranslateError(plain))

	tests := []struct {
		name    string
		re      *oauth2.RetrieveError
		status  int
		message string
	}{
		{
			name:    "description wins",
			re:      &oauth2.RetrieveError{Response: &http.Response{StatusCode: 400}, ErrorCode: "invalid_grant", ErrorDescription: "Bad Request"},
			status:  400,
			message: "Bad Request",
		},
		{
			name:    "code only",
			re:      &oauth2.RetrieveError{Response: &http.Response{StatusCode: 401}, ErrorCode: "invalid_client"},
			status:  401,
			message: "invalid_client",
		},
		{
			name:    "raw body",
			re:      &oauth2.RetrieveError{Body: []byte("upstream broke")},
			message: "upstream broke",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pe, ok := core.AsProviderError(TranslateError(fmt.Errorf("exchange: %w", tt.re)))
			require.True(t, ok)
			assert.Equal(t, tt.status, pe.Status)
			assert.Equal(t, tt.message, pe.Message)
			assert.Equal(t, tt.re.ErrorCode, pe.Code)
		})
	}
}
