// internal/app/store/boltstore/store.go
//
// Package boltstore implements the store contracts on an embedded bbolt
// file. bbolt serializes writers, so every Update sees the state left by the
// previous one and check-then-write sequences inside fn are atomic.
package boltstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dalemusser/commonshub/internal/app/store"
	bolt "go.etcd.io/bbolt"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

var (
	bucketOrganizations = []byte("organizations")
	bucketParticipants  = []byte("participants")
	bucketJoinRequests  = []byte("participant_requests")
	bucketPublications  = []byte("publications")
	bucketTransfers     = []byte("transfer_requests")
	bucketAudit         = []byte("audit_events")
)

var allBuckets = [][]byte{
	bucketOrganizations,
	bucketParticipants,
	bucketJoinRequests,
	bucketPublications,
	bucketTransfers,
	bucketAudit,
}

// Store is a store.Store backed by bbolt.
type Store struct {
	path   string
	db     *bolt.DB
	logger *zap.Logger
}

var _ store.Store = (*Store)(nil)

// New returns a Store for the file at path. Call Open before use.
func New(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{path: path, logger: logger}
}

// Open creates the file and buckets if they do not exist.
func (s *Store) Open(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("unable to create directory %s: %w", s.path, err)
	}

	db, err := bolt.Open(s.path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return fmt.Errorf("unable to open boltdb file: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return err
	}
	s.db = db

	s.logger.Info("bolt store opened", zap.String("path", s.path))
	return nil
}

func (s *Store) Close(context.Context) error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return errors.New("boltstore: not open")
	}
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketOrganizations) == nil {
			return errors.New("boltstore: missing buckets")
		}
		return nil
	})
}

func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(btx *bolt.Tx) error {
		return fn(ctx, &Tx{tx: btx})
	})
}

func (s *Store) Update(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(btx *bolt.Tx) error {
		return fn(ctx, &Tx{tx: btx})
	})
}

// Tx is a light wrapper around a bbolt transaction. It implements store.Tx.
type Tx struct {
	tx *bolt.Tx
}

func (t *Tx) Organizations() store.Organizations {
	return organizations{t.tx.Bucket(bucketOrganizations)}
}
func (t *Tx) Participants() store.Participants { return participants{t.tx.Bucket(bucketParticipants)} }
func (t *Tx) JoinRequests() store.JoinRequests { return joinRequests{t.tx.Bucket(bucketJoinRequests)} }
func (t *Tx) Publications() store.Publications { return publications{t.tx.Bucket(bucketPublications)} }
func (t *Tx) Transfers() store.Transfers       { return transfers{t.tx.Bucket(bucketTransfers)} }

// Records are stored as BSON so the same struct tags serve both backends.

func get[T any](b *bolt.Bucket, key []byte) (T, error) {
	var v T
	raw := b.Get(key)
	if raw == nil {
		return v, store.ErrNotFound
	}
	if err := bson.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", key, err)
	}
	return v, nil
}

func put(b *bolt.Bucket, key []byte, v interface{}) error {
	raw, err := bson.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return b.Put(key, raw)
}

// scan decodes every value under prefix (all values when prefix is nil)
// and keeps the ones keep accepts.
func scan[T any](b *bolt.Bucket, prefix []byte, keep func(T) bool) ([]T, error) {
	var out []T
	c := b.Cursor()
	k, raw := c.First()
	if prefix != nil {
		k, raw = c.Seek(prefix)
	}
	for ; k != nil && hasPrefix(k, prefix); k, raw = c.Next() {
		var v T
		if err := bson.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", k, err)
		}
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

// first returns the first value under prefix that match accepts.
func first[T any](b *bolt.Bucket, prefix []byte, match func(T) bool) (T, error) {
	var zero T
	found := false
	var hit T
	_, err := scan(b, prefix, func(v T) bool {
		if !found && match(v) {
			hit, found = v, true
		}
		return false
	})
	if err != nil {
		return zero, err
	}
	if !found {
		return zero, store.ErrNotFound
	}
	return hit, nil
}

func hasPrefix(k, prefix []byte) bool {
	if len(prefix) == 0 {
		return true
	}
	return len(k) >= len(prefix) && string(k[:len(prefix)]) == string(prefix)
}
