// Package storage persists the serialised model artifact.
//
// There is a single named slot: Save overwrites it and Load returns whatever
// was written last. Two backends are provided, a plain file written atomically
// and a BoltDB bucket.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"forex-signal-bot/internal/common"
)

// ErrNotFound is returned by Load when nothing has been saved yet.
var ErrNotFound = errors.New("model artifact not found")

// ModelStore is a single-slot artifact store.
type ModelStore interface {
	Load() ([]byte, error)
	Save(data []byte) error
	// Location describes where the artifact lives, for logs and /model/info.
	Location() string
}

// Open returns the store selected by backend. The bolt backend keeps its
// database file under dataDir.
func Open(backend, modelPath, dataDir string) (ModelStore, error) {
	switch backend {
	case "", common.StoreBackendFile:
		return NewFileStore(modelPath), nil
	case common.StoreBackendBolt:
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
		return NewBoltStore(filepath.Join(dataDir, boltFileName))
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

// Close releases the store if it holds resources.
func Close(s ModelStore) error {
	if c, ok := s.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
