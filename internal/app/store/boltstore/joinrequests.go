// internal/app/store/boltstore/joinrequests.go
package boltstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/commonshub/internal/app/store"
	"github.com/dalemusser/commonshub/internal/domain/models"
	bolt "go.etcd.io/bbolt"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Requests are keyed by id; ObjectIDs sort by creation time, so a cursor
// walk yields oldest first.
type joinRequests struct {
	b *bolt.Bucket
}

func (s joinRequests) Insert(ctx context.Context, r models.ParticipantRequest) error {
	if r.Status == models.RequestPending {
		if _, err := s.Pending(ctx, r.OrgID, r.UserID); err == nil {
			return store.ErrDuplicate
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	return put(s.b, idKey(r.ID), r)
}

func (s joinRequests) Get(_ context.Context, id primitive.ObjectID) (models.ParticipantRequest, error) {
	return get[models.ParticipantRequest](s.b, idKey(id))
}

func (s joinRequests) Pending(_ context.Context, orgID primitive.ObjectID, userID string) (models.ParticipantRequest, error) {
	return first(s.b, nil, func(r models.ParticipantRequest) bool {
		return r.OrgID == orgID && r.UserID == userID && r.Status == models.RequestPending
	})
}

func (s joinRequests) Transition(_ context.Context, id primitive.ObjectID, from, to, response, actor string, at time.Time) (models.ParticipantRequest, error) {
	r, err := get[models.ParticipantRequest](s.b, idKey(id))
	if err != nil {
		return models.ParticipantRequest{}, err
	}
	if r.Status != from {
		return models.ParticipantRequest{}, store.ErrConflict
	}
	r.Status = to
	r.ResponseMessage = response
	r.DecidedBy = actor
	r.DecidedAt = &at
	return r, put(s.b, idKey(id), r)
}

func (s joinRequests) ListByOrg(_ context.Context, orgID primitive.ObjectID, status string) ([]models.ParticipantRequest, error) {
	return scan(s.b, nil, func(r models.ParticipantRequest) bool {
		return r.OrgID == orgID && (status == "" || r.Status == status)
	})
}
