package core

import (
	"context"
	"time"
)

// TokenRecord is the persisted token set of one connected provider.
// The JSON shape is shared with existing stored data and must not change.
type TokenRecord struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	// Epoch milliseconds. Informational only, nothing refreshes on it.
	ExpiresAt int64 `json:"expiresAt"`
}

// NewTokenRecord stamps a grant with its absolute expiry.
func NewTokenRecord(g Grant, now time.Time) TokenRecord {
	return TokenRecord{
		AccessToken:  g.AccessToken,
		RefreshToken: g.RefreshToken,
		ExpiresAt:    now.UnixMilli() + g.ExpiresIn*1000,
	}
}

// Expiry returns ExpiresAt as a time.
func (r TokenRecord) Expiry() time.Time {
	return time.UnixMilli(r.ExpiresAt)
}

// TokenStore persists the TokenRecord of a single provider.
type TokenStore interface {
	// Load returns nil, nil when nothing usable is stored.
	Load(ctx context.Context) (*TokenRecord, error)
	Save(ctx context.Context, rec TokenRecord) error
	// Clear removes the record. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}
