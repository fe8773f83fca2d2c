package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/theakshaypant/crmcal/internal/core"
)

// Fixed storage keys, one per provider. Existing installs already hold data
// under these names.
const (
	GoogleKey    = "google_calendar_tokens"
	MicrosoftKey = "outlook_tokens"
)

var (
	// ErrNotFound is returned by a Backend when the key holds no value.
	ErrNotFound = errors.New("tokenstore: key not found")
	// ErrCorrupt is returned by a Backend whose stored value cannot be decoded.
	ErrCorrupt = errors.New("tokenstore: stored value is corrupt")
)

// KeyFor returns the storage key of a provider.
func KeyFor(kind core.ProviderKind) string {
	if kind == core.ProviderMicrosoft {
		return MicrosoftKey
	}
	return GoogleKey
}

// Backend is a keyed blob store.
type Backend interface {
	// Get returns ErrNotFound when key is absent.
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	// Delete is a no-op for absent keys.
	Delete(key string) error
	Close() error
}

// Store is the typed TokenRecord view of a single Backend key.
type Store struct {
	backend Backend
	key     string
}

var _ core.TokenStore = (*Store)(nil)

// New returns a Store reading and writing key in backend.
func New(backend Backend, key string) *Store {
	return &Store{backend: backend, key: key}
}

// Key returns the storage key.
func (s *Store) Key() string { return s.key }

// Load returns the stored record, or nil when nothing usable is stored.
// An undecodable value or a record without an access token is removed so the
// next read starts clean.
func (s *Store) Load(ctx context.Context) (*core.TokenRecord, error) {
	data, err := s.backend.Get(s.key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if errors.Is(err, ErrCorrupt) {
		return nil, s.discard("undecryptable value")
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.key, err)
	}

	var rec core.TokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, s.discard("invalid JSON")
	}
	if rec.AccessToken == "" {
		return nil, s.discard("missing access token")
	}
	return &rec, nil
}

func (s *Store) discard(reason string) error {
	logrus.WithFields(logrus.Fields{"key": s.key, "reason": reason}).Warn("Discarding stored tokens")
	if err := s.backend.Delete(s.key); err != nil {
		return fmt.Errorf("clear %s: %w", s.key, err)
	}
	return nil
}

// Save overwrites the stored record.
func (s *Store) Save(ctx context.Context, rec core.TokenRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode tokens: %w", err)
	}
	if err := s.backend.Set(s.key, data); err != nil {
		return fmt.Errorf("write %s: %w", s.key, err)
	}
	return nil
}

// Clear removes the stored record.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.backend.Delete(s.key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("clear %s: %w", s.key, err)
	}
	return nil
}
