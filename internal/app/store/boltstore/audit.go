// internal/app/store/boltstore/audit.go
package boltstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/commonshub/internal/app/store/audit"
	bolt "go.etcd.io/bbolt"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuditStore keeps audit events in the same bbolt file. It satisfies the
// same Log/Query contract as the Mongo audit store.
type AuditStore struct {
	s *Store
}

// Audit returns the audit event store sharing this file.
func (s *Store) Audit() *AuditStore { return &AuditStore{s: s} }

func (a *AuditStore) Log(ctx context.Context, event audit.Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return a.s.db.Update(func(tx *bolt.Tx) error {
		return put(tx.Bucket(bucketAudit), idKey(event.ID), event)
	})
}

// Query walks events newest first.
func (a *AuditStore) Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = audit.DefaultLimit
	}
	var out []audit.Event
	err := a.s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketAudit).Cursor()
		skipped := int64(0)
		for k, raw := c.Last(); k != nil && int64(len(out)) < limit; k, raw = c.Prev() {
			var e audit.Event
			if err := bson.Unmarshal(raw, &e); err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}
			if !filter.Matches(e) {
				continue
			}
			if skipped < filter.Offset {
				skipped++
				continue
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}
