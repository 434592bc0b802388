// Package persist keeps page state snapshots in a bbolt database so the
// development server can restore component state after a reload.
package persist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/conneroisu/componentry/internal/logging"
	"github.com/conneroisu/componentry/internal/snapshot"
)

const bucketStates = "page_states"

// Store is a bbolt-backed page state store.
type Store struct {
	db     *bolt.DB
	logger logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open opens or creates the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state database %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketStates))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize state database: %w", err)
	}

	s := &Store{db: db, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("persist")
	return s, nil
}

// Save replaces the stored states of page.
func (s *Store) Save(ctx context.Context, page string, states map[string]map[string]any) error {
	data, err := snapshot.New(page, states).Marshal(snapshot.FormatMsgpack)
	if err != nil {
		return fmt.Errorf("encode states of %s: %w", page, err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketStates)).Put([]byte(page), data)
	})
	if err != nil {
		return err
	}
	s.logger.Debug(ctx, "page state saved", "page", page, "components", len(states))
	return nil
}

// Load returns the stored states of page. The boolean is false when the page
// has none.
func (s *Store) Load(ctx context.Context, page string) (map[string]map[string]any, bool, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(bucketStates)).Get([]byte(page)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || data == nil {
		return nil, false, err
	}
	snap, err := snapshot.Unmarshal(data, snapshot.FormatMsgpack)
	if err != nil {
		s.logger.Warn(ctx, err, "discarding unreadable page state", "page", page)
		return nil, false, s.Delete(page)
	}
	return snap.States, true, nil
}

// Delete drops the states of page.
func (s *Store) Delete(page string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketStates)).Delete([]byte(page))
	})
}

// Pages lists the pages with stored state in key order.
func (s *Store) Pages() ([]string, error) {
	var pages []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketStates)).ForEach(func(k, _ []byte) error {
			pages = append(pages, string(k))
			return nil
		})
	})
	return pages, err
}

// Clear removes every stored page.
func (s *Store) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketStates)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(bucketStates))
		return err
	})
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
