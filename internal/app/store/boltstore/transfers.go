// internal/app/store/boltstore/transfers.go
package boltstore

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/dalemusser/commonshub/internal/app/store"
	"github.com/dalemusser/commonshub/internal/domain/models"
	bolt "go.etcd.io/bbolt"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type transfers struct {
	b *bolt.Bucket
}

func (s transfers) Insert(ctx context.Context, t models.TransferRequest) error {
	if t.Status == models.TransferPending {
		if _, err := s.Pending(ctx, t.OrgID); err == nil {
			return store.ErrDuplicate
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	return put(s.b, idKey(t.ID), t)
}

func (s transfers) Get(_ context.Context, id primitive.ObjectID) (models.TransferRequest, error) {
	return get[models.TransferRequest](s.b, idKey(id))
}

func (s transfers) Pending(_ context.Context, orgID primitive.ObjectID) (models.TransferRequest, error) {
	return first(s.b, nil, func(t models.TransferRequest) bool {
		return t.OrgID == orgID && t.Status == models.TransferPending
	})
}

func (s transfers) Transition(_ context.Context, id primitive.ObjectID, from, to, response string, at time.Time) (models.TransferRequest, error) {
	t, err := get[models.TransferRequest](s.b, idKey(id))
	if err != nil {
		return models.TransferRequest{}, err
	}
	if t.Status != from {
		return models.TransferRequest{}, store.ErrConflict
	}
	t.Status = to
	t.ResponseMessage = response
	t.DecidedAt = &at
	return t, put(s.b, idKey(id), t)
}

func (s transfers) ListByOrg(_ context.Context, orgID primitive.ObjectID) ([]models.TransferRequest, error) {
	return s.list(func(t models.TransferRequest) bool { return t.OrgID == orgID })
}

func (s transfers) ListByTarget(_ context.Context, userID, status string) ([]models.TransferRequest, error) {
	return s.list(func(t models.TransferRequest) bool {
		return t.ToUserID == userID && (status == "" || t.Status == status)
	})
}

func (s transfers) list(keep func(models.TransferRequest) bool) ([]models.TransferRequest, error) {
	out, err := scan(s.b, nil, keep)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID.Hex() > out[j].ID.Hex() })
	return out, nil
}
