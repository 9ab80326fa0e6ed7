// internal/app/store/boltstore/participants.go
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

// Participant keys are "<org hex>/<user id>" so one org's rows are contiguous.
type participants struct {
	b *bolt.Bucket
}

func orgPrefix(orgID primitive.ObjectID) []byte { return []byte(orgID.Hex() + "/") }

func memberKey(orgID primitive.ObjectID, userID string) []byte {
	return []byte(orgID.Hex() + "/" + userID)
}

func (s participants) Insert(ctx context.Context, p models.Participant) error {
	key := memberKey(p.OrgID, p.UserID)
	if s.b.Get(key) != nil {
		return store.ErrDuplicate
	}
	if p.OrgManaged {
		if _, err := s.Manager(ctx, p.OrgID); err == nil {
			return store.ErrDuplicate
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	return put(s.b, key, p)
}

func (s participants) Get(_ context.Context, orgID primitive.ObjectID, userID string) (models.Participant, error) {
	return get[models.Participant](s.b, memberKey(orgID, userID))
}

func (s participants) Manager(_ context.Context, orgID primitive.ObjectID) (models.Participant, error) {
	return first(s.b, orgPrefix(orgID), func(p models.Participant) bool { return p.OrgManaged })
}

func (s participants) SetManaged(ctx context.Context, orgID primitive.ObjectID, userID string, managed bool, at time.Time) error {
	key := memberKey(orgID, userID)
	p, err := get[models.Participant](s.b, key)
	if err != nil {
		return err
	}
	if p.OrgManaged == managed {
		return store.ErrConflict
	}
	if managed {
		if _, err := s.Manager(ctx, orgID); err == nil {
			return store.ErrDuplicate
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	p.OrgManaged = managed
	p.UpdatedAt = at
	return put(s.b, key, p)
}

func (s participants) DeleteMember(_ context.Context, orgID primitive.ObjectID, userID string) error {
	key := memberKey(orgID, userID)
	p, err := get[models.Participant](s.b, key)
	if err != nil {
		return err
	}
	if p.OrgManaged {
		return store.ErrConflict
	}
	return s.b.Delete(key)
}

func (s participants) ListByOrg(_ context.Context, orgID primitive.ObjectID) ([]models.Participant, error) {
	out, err := scan[models.Participant](s.b, orgPrefix(orgID), nil)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OrgManaged != out[j].OrgManaged {
			return out[i].OrgManaged
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}
