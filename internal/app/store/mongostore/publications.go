// internal/app/store/mongostore/publications.go
package mongostore

import (
	"context"
	"time"

	"github.com/dalemusser/commonshub/internal/app/store"
	"github.com/dalemusser/commonshub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type publications struct {
	c *mongo.Collection
}

func (s *publications) Insert(ctx context.Context, p models.Publication) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	_, err := s.c.InsertOne(ctx, p)
	return mapErr(err)
}

func (s *publications) Get(ctx context.Context, id primitive.ObjectID) (models.Publication, error) {
	var p models.Publication
	if err := s.c.FindOne(ctx, byID(id)).Decode(&p); err != nil {
		return models.Publication{}, mapErr(err)
	}
	return p, nil
}

func (s *publications) Review(ctx context.Context, id primitive.ObjectID, review, reviewer string, at time.Time) (models.Publication, error) {
	set := bson.M{
		"review":      review,
		"reviewed_by": reviewer,
		"reviewed_at": at,
		"updated_at":  at,
	}
	if review == models.ReviewApproved {
		set["pub_approved"] = true
		set["publication_active"] = true
	}
	return s.conditional(ctx, bson.M{"_id": id, "review": models.ReviewUnreviewed}, bson.M{"$set": set})
}

func (s *publications) SetActive(ctx context.Context, id primitive.ObjectID, active bool, at time.Time) (models.Publication, error) {
	return s.conditional(ctx,
		bson.M{"_id": id, "review": models.ReviewApproved},
		bson.M{"$set": bson.M{"publication_active": active, "updated_at": at}})
}

func (s *publications) UpdateContent(ctx context.Context, id primitive.ObjectID, title, body, imageRef string, at time.Time) (models.Publication, error) {
	update := bson.M{"$set": bson.M{
		"title":      title,
		"body":       body,
		"image_ref":  imageRef,
		"updated_at": at,
	}}
	var p models.Publication
	err := s.c.FindOneAndUpdate(ctx, byID(id), update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&p)
	if err != nil {
		return models.Publication{}, mapErr(err)
	}
	return p, nil
}

func (s *publications) conditional(ctx context.Context, filter, update bson.M) (models.Publication, error) {
	var p models.Publication
	err := s.c.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return models.Publication{}, casMiss(ctx, s.c, byID(filter["_id"].(primitive.ObjectID)))
	}
	if err != nil {
		return models.Publication{}, mapErr(err)
	}
	return p, nil
}

// List returns publications newest first.
func (s *publications) List(ctx context.Context, f store.PublicationFilter) ([]models.Publication, error) {
	filter := bson.M{}
	if !f.OrgID.IsZero() {
		filter["org_id"] = f.OrgID
	}
	if f.Review != "" {
		filter["review"] = f.Review
	}
	if f.Active != nil {
		filter["publication_active"] = *f.Active
	}
	if f.Approved != nil {
		filter["pub_approved"] = *f.Approved
	}
	if f.AuthorUserID != "" {
		filter["author_user_id"] = f.AuthorUserID
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Publication
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
