// internal/app/store/boltstore/organizations.go
package boltstore

import (
	"context"
	"sort"
	"time"

	"github.com/dalemusser/commonshub/internal/app/store"
	"github.com/dalemusser/commonshub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	bolt "go.etcd.io/bbolt"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type organizations struct {
	b *bolt.Bucket
}

func idKey(id primitive.ObjectID) []byte { return []byte(id.Hex()) }

func (s organizations) Insert(_ context.Context, org models.Organization) error {
	if org.ID.IsZero() {
		org.ID = primitive.NewObjectID()
	}
	if s.b.Get(idKey(org.ID)) != nil {
		return store.ErrDuplicate
	}
	org.NameCI = text.Fold(org.Name)
	return put(s.b, idKey(org.ID), org)
}

func (s organizations) Get(_ context.Context, id primitive.ObjectID) (models.Organization, error) {
	return get[models.Organization](s.b, idKey(id))
}

func (s organizations) Review(_ context.Context, id primitive.ObjectID, status, reviewer string, at time.Time) (models.Organization, error) {
	org, err := get[models.Organization](s.b, idKey(id))
	if err != nil {
		return models.Organization{}, err
	}
	if org.Status != models.OrgPending {
		return models.Organization{}, store.ErrConflict
	}
	org.Status = status
	org.Approved = status == models.OrgApproved
	org.ReviewedBy = reviewer
	org.ReviewedAt = &at
	org.UpdatedAt = at
	return org, put(s.b, idKey(id), org)
}

func (s organizations) UpdateDetails(_ context.Context, id primitive.ObjectID, name, scope, imageRef string, at time.Time) (models.Organization, error) {
	org, err := get[models.Organization](s.b, idKey(id))
	if err != nil {
		return models.Organization{}, err
	}
	org.Name = name
	org.NameCI = text.Fold(name)
	org.Scope = scope
	org.ImageRef = imageRef
	org.UpdatedAt = at
	return org, put(s.b, idKey(id), org)
}

func (s organizations) List(_ context.Context, f store.OrgFilter) ([]models.Organization, error) {
	out, err := scan(s.b, nil, func(o models.Organization) bool {
		switch {
		case f.Status != "" && f.OrCreator != "":
			return o.Status == f.Status || o.CreatorUserID == f.OrCreator
		case f.Status != "":
			return o.Status == f.Status
		case f.OrCreator != "":
			return o.CreatorUserID == f.OrCreator
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NameCI != out[j].NameCI {
			return out[i].NameCI < out[j].NameCI
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
