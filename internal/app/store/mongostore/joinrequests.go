// internal/app/store/mongostore/joinrequests.go
package mongostore

import (
	"context"
	"time"

	"github.com/dalemusser/commonshub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type joinRequests struct {
	c *mongo.Collection
}

func (s *joinRequests) Insert(ctx context.Context, r models.ParticipantRequest) error {
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	_, err := s.c.InsertOne(ctx, r)
	return mapErr(err)
}

func (s *joinRequests) Get(ctx context.Context, id primitive.ObjectID) (models.ParticipantRequest, error) {
	var r models.ParticipantRequest
	if err := s.c.FindOne(ctx, byID(id)).Decode(&r); err != nil {
		return models.ParticipantRequest{}, mapErr(err)
	}
	return r, nil
}

func (s *joinRequests) Pending(ctx context.Context, orgID primitive.ObjectID, userID string) (models.ParticipantRequest, error) {
	var r models.ParticipantRequest
	filter := bson.M{"org_id": orgID, "user_id": userID, "status": models.RequestPending}
	if err := s.c.FindOne(ctx, filter).Decode(&r); err != nil {
		return models.ParticipantRequest{}, mapErr(err)
	}
	return r, nil
}

func (s *joinRequests) Transition(ctx context.Context, id primitive.ObjectID, from, to, response, actor string, at time.Time) (models.ParticipantRequest, error) {
	filter := bson.M{"_id": id, "status": from}
	update := bson.M{"$set": bson.M{
		"status":           to,
		"response_message": response,
		"decided_by":       actor,
		"decided_at":       at,
	}}
	var r models.ParticipantRequest
	err := s.c.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&r)
	if err == mongo.ErrNoDocuments {
		return models.ParticipantRequest{}, casMiss(ctx, s.c, byID(id))
	}
	if err != nil {
		return models.ParticipantRequest{}, mapErr(err)
	}
	return r, nil
}

// ListByOrg returns requests oldest first. An empty status returns all.
func (s *joinRequests) ListByOrg(ctx context.Context, orgID primitive.ObjectID, status string) ([]models.ParticipantRequest, error) {
	filter := bson.M{"org_id": orgID}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.ParticipantRequest
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
