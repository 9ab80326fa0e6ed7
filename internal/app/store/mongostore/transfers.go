// internal/app/store/mongostore/transfers.go
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

type transfers struct {
	c *mongo.Collection
}

func (s *transfers) Insert(ctx context.Context, t models.TransferRequest) error {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	_, err := s.c.InsertOne(ctx, t)
	return mapErr(err)
}

func (s *transfers) Get(ctx context.Context, id primitive.ObjectID) (models.TransferRequest, error) {
	var t models.TransferRequest
	if err := s.c.FindOne(ctx, byID(id)).Decode(&t); err != nil {
		return models.TransferRequest{}, mapErr(err)
	}
	return t, nil
}

func (s *transfers) Pending(ctx context.Context, orgID primitive.ObjectID) (models.TransferRequest, error) {
	var t models.TransferRequest
	filter := bson.M{"org_id": orgID, "status": models.TransferPending}
	if err := s.c.FindOne(ctx, filter).Decode(&t); err != nil {
		return models.TransferRequest{}, mapErr(err)
	}
	return t, nil
}

func (s *transfers) Transition(ctx context.Context, id primitive.ObjectID, from, to, response string, at time.Time) (models.TransferRequest, error) {
	filter := bson.M{"_id": id, "status": from}
	update := bson.M{"$set": bson.M{
		"status":           to,
		"response_message": response,
		"decided_at":       at,
	}}
	var t models.TransferRequest
	err := s.c.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&t)
	if err == mongo.ErrNoDocuments {
		return models.TransferRequest{}, casMiss(ctx, s.c, byID(id))
	}
	if err != nil {
		return models.TransferRequest{}, mapErr(err)
	}
	return t, nil
}

func (s *transfers) ListByOrg(ctx context.Context, orgID primitive.ObjectID) ([]models.TransferRequest, error) {
	return s.find(ctx, bson.M{"org_id": orgID})
}

func (s *transfers) ListByTarget(ctx context.Context, userID, status string) ([]models.TransferRequest, error) {
	filter := bson.M{"to_user_id": userID}
	if status != "" {
		filter["status"] = status
	}
	return s.find(ctx, filter)
}

func (s *transfers) find(ctx context.Context, filter bson.M) ([]models.TransferRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.TransferRequest
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
