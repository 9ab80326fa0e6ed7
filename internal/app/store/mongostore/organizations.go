// internal/app/store/mongostore/organizations.go
package mongostore

import (
	"context"
	"time"

	"github.com/dalemusser/commonshub/internal/app/store"
	"github.com/dalemusser/commonshub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type organizations struct {
	c *mongo.Collection
}

func (s *organizations) Insert(ctx context.Context, org models.Organization) error {
	if org.ID.IsZero() {
		org.ID = primitive.NewObjectID()
	}
	org.NameCI = text.Fold(org.Name)
	_, err := s.c.InsertOne(ctx, org)
	return mapErr(err)
}

func (s *organizations) Get(ctx context.Context, id primitive.ObjectID) (models.Organization, error) {
	var org models.Organization
	if err := s.c.FindOne(ctx, byID(id)).Decode(&org); err != nil {
		return models.Organization{}, mapErr(err)
	}
	return org, nil
}

// Review only matches while the organization is still pending, so two
// concurrent reviews cannot both succeed.
func (s *organizations) Review(ctx context.Context, id primitive.ObjectID, status, reviewer string, at time.Time) (models.Organization, error) {
	filter := bson.M{"_id": id, "status": models.OrgPending}
	update := bson.M{"$set": bson.M{
		"status":      status,
		"approved":    status == models.OrgApproved,
		"reviewed_by": reviewer,
		"reviewed_at": at,
		"updated_at":  at,
	}}
	var org models.Organization
	err := s.c.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&org)
	if err == mongo.ErrNoDocuments {
		return models.Organization{}, casMiss(ctx, s.c, byID(id))
	}
	if err != nil {
		return models.Organization{}, mapErr(err)
	}
	return org, nil
}

func (s *organizations) UpdateDetails(ctx context.Context, id primitive.ObjectID, name, scope, imageRef string, at time.Time) (models.Organization, error) {
	update := bson.M{"$set": bson.M{
		"name":       name,
		"name_ci":    text.Fold(name),
		"scope":      scope,
		"image_ref":  imageRef,
		"updated_at": at,
	}}
	var org models.Organization
	err := s.c.FindOneAndUpdate(ctx, byID(id), update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&org)
	if err != nil {
		return models.Organization{}, mapErr(err)
	}
	return org, nil
}

func (s *organizations) List(ctx context.Context, f store.OrgFilter) ([]models.Organization, error) {
	filter := bson.M{}
	switch {
	case f.Status != "" && f.OrCreator != "":
		filter["$or"] = []bson.M{
			{"status": f.Status},
			{"creator_user_id": f.OrCreator},
		}
	case f.Status != "":
		filter["status"] = f.Status
	case f.OrCreator != "":
		filter["creator_user_id"] = f.OrCreator
	}
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Organization
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
