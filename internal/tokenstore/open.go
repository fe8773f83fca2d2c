package tokenstore

import (
	"fmt"
	"path/filepath"
)

// Config selects and configures a Backend.
type Config struct {
	// "file" (default) or "badger"
	Backend string
	// Directory for either backend. Empty means DefaultDir().
	Dir string
	// Non-empty enables the Encrypted wrapper.
	Passphrase string
}

// Open builds the backend described by cfg.
func Open(cfg Config) (Backend, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = DefaultDir()
	}

	var b Backend
	switch cfg.Backend {
	case "", "file":
		b = NewFileBackend(dir)
	case "badger":
		bb, err := OpenBadger(filepath.Join(dir, "badger"))
		if err != nil {
			return nil, err
		}
		b = bb
	default:
		return nil, fmt.Errorf("unknown token store backend %q (want file or badger)", cfg.Backend)
	}

	if cfg.Passphrase == "" {
		return b, nil
	}
	enc, err := NewEncrypted(b, cfg.Passphrase)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("enable token encryption: %w", err)
	}
	return enc, nil
}
