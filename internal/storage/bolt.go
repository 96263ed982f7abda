package storage

import (
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	boltFileName = "forex-models.db"
	modelsBucket = "models"
	modelKey     = "forex_model"
)

// BoltStore keeps the artifact under a fixed key in a BoltDB bucket.
type BoltStore struct {
	path string
	db   *bbolt.DB
}

// NewBoltStore opens (or creates) the database at path and ensures the
// models bucket exists.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(modelsBucket)); err != nil {
			return fmt.Errorf("create models bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{path: path, db: db}, nil
}

func (s *BoltStore) Location() string {
	return fmt.Sprintf("bolt://%s#%s/%s", s.path, modelsBucket, modelKey)
}

// Load returns a copy of the stored artifact or ErrNotFound.
func (s *BoltStore) Load() ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(modelsBucket)).Get([]byte(modelKey))
		if v == nil {
			return ErrNotFound
		}
		// bbolt values are only valid inside the transaction
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Save overwrites the stored artifact.
func (s *BoltStore) Save(data []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket([]byte(modelsBucket)).Put([]byte(modelKey), data); err != nil {
			return fmt.Errorf("put model: %w", err)
		}
		return nil
	})
}

// Close closes the database. It is safe to call more than once.
func (s *BoltStore) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}
