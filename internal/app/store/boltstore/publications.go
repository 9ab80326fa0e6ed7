// internal/app/store/boltstore/publications.go
package boltstore

import (
	"context"
	"sort"
	"time"

	"github.com/dalemusser/commonshub/internal/app/store"
	"github.com/dalemusser/commonshub/internal/domain/models"
	bolt "go.etcd.io/bbolt"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type publications struct {
	b *bolt.Bucket
}

func (s publications) Insert(_ context.Context, p models.Publication) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if s.b.Get(idKey(p.ID)) != nil {
		return store.ErrDuplicate
	}
	return put(s.b, idKey(p.ID), p)
}

func (s publications) Get(_ context.Context, id primitive.ObjectID) (models.Publication, error) {
	return get[models.Publication](s.b, idKey(id))
}

func (s publications) Review(_ context.Context, id primitive.ObjectID, review, reviewer string, at time.Time) (models.Publication, error) {
	p, err := get[models.Publication](s.b, idKey(id))
	if err != nil {
		return models.Publication{}, err
	}
	if p.Review != models.ReviewUnreviewed {
		return models.Publication{}, store.ErrConflict
	}
	p.Review = review
	p.ReviewedBy = reviewer
	p.ReviewedAt = &at
	p.UpdatedAt = at
	if review == models.ReviewApproved {
		p.PubApproved = true
		p.PublicationActive = true
	}
	return p, put(s.b, idKey(id), p)
}

func (s publications) SetActive(_ context.Context, id primitive.ObjectID, active bool, at time.Time) (models.Publication, error) {
	p, err := get[models.Publication](s.b, idKey(id))
	if err != nil {
		return models.Publication{}, err
	}
	if p.Review != models.ReviewApproved {
		return models.Publication{}, store.ErrConflict
	}
	p.PublicationActive = active
	p.UpdatedAt = at
	return p, put(s.b, idKey(id), p)
}

func (s publications) UpdateContent(_ context.Context, id primitive.ObjectID, title, body, imageRef string, at time.Time) (models.Publication, error) {
	p, err := get[models.Publication](s.b, idKey(id))
	if err != nil {
		return models.Publication{}, err
	}
	p.Title = title
	p.Body = body
	p.ImageRef = imageRef
	p.UpdatedAt = at
	return p, put(s.b, idKey(id), p)
}

func (s publications) List(_ context.Context, f store.PublicationFilter) ([]models.Publication, error) {
	out, err := scan(s.b, nil, func(p models.Publication) bool {
		switch {
		case !f.OrgID.IsZero() && p.OrgID != f.OrgID:
			return false
		case f.Review != "" && p.Review != f.Review:
			return false
		case f.Active != nil && p.PublicationActive != *f.Active:
			return false
		case f.Approved != nil && p.PubApproved != *f.Approved:
			return false
		case f.AuthorUserID != "" && p.AuthorUserID != f.AuthorUserID:
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	// newest first, matching the Mongo adapter
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID.Hex() > out[j].ID.Hex() })
	return out, nil
}
