// Package oauthutil holds the oauth2 conversions shared by the provider adapters.
package oauthutil

import (
	"errors"
	"time"

	"golang.org/x/oauth2"

	"github.com/theakshaypant/crmcal/internal/core"
)

// GrantFromToken converts an oauth2 token. previousRefresh is the refresh
// token that was sent, so an unrotated refresh token is not echoed back.
func GrantFromToken(tok *oauth2.Token, previousRefresh string) *core.Grant {
	grant := &core.Grant{AccessToken: tok.AccessToken}
	if tok.RefreshToken != previousRefresh {
		grant.RefreshToken = tok.RefreshToken
	}
	if !tok.Expiry.IsZero() {
		grant.ExpiresIn = int64(time.Until(tok.Expiry).Round(time.Second) / time.Second)
	}
	return grant
}

// TranslateError turns an *oauth2.RetrieveError into a *core.ProviderError
// carrying the provider's own error text. Other errors pass through.
func TranslateError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return err
	}
	pe := &core.ProviderError{Code: re.ErrorCode, Message: re.ErrorDescription, Err: err}
	if pe.Message == "" {
		pe.Message = re.ErrorCode
	}
	if re.Response != nil {
		pe.Status = re.Response.StatusCode
	}
	if pe.Message == "" {
		pe.Message = string(re.Body)
	}
	return pe
}
