// Package storage persists small client-side state documents under fixed keys.
package storage

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/skaznowiecki/finpilot-sanos/internal/config"
	"github.com/skaznowiecki/finpilot-sanos/internal/errors"
)

// Fixed storage keys.
const (
	KeyAuth     = "auth-store"
	KeyTags     = "tags-store"
	KeyIdentity = "identity-store"
)

// ErrNotFound is returned by Get for keys that were never written.
var ErrNotFound = stderrors.New("storage: key not found")

// Store is a durable key/value store for client state.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Watcher is implemented by stores that can report external modifications.
type Watcher interface {
	Watch(ctx context.Context, key string, fn func()) error
}

var keyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

func validateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("storage: invalid key %q", key)
	}
	return nil
}

// Open returns the store selected by cfg.StorageDriver.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.StorageDriver {
	case config.DriverSQLite:
		s, err := OpenSQLite(filepath.Join(cfg.StateDir, "state.db"))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStoreOpen, "failed to open state database", err)
		}
		return s, nil
	case config.DriverFile, "":
		s, err := NewFileStore(cfg.StateDir)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStoreOpen, "failed to open state directory", err)
		}
		return s, nil
	default:
		return nil, errors.NewConfigInvalidError(fmt.Sprintf("unknown storage_driver %q", cfg.StorageDriver))
	}
}
