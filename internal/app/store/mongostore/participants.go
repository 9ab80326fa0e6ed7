// internal/app/store/mongostore/participants.go
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

// participants backs the (org_id, user_id) membership rows. Uniqueness of
// the pair and of the manager row is enforced by indexes (see indexes.EnsureAll).
type participants struct {
	c *mongo.Collection
}

func memberKey(orgID primitive.ObjectID, userID string) bson.M {
	return bson.M{"org_id": orgID, "user_id": userID}
}

func (s *participants) Insert(ctx context.Context, p models.Participant) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	_, err := s.c.InsertOne(ctx, p)
	return mapErr(err)
}

func (s *participants) Get(ctx context.Context, orgID primitive.ObjectID, userID string) (models.Participant, error) {
	var p models.Participant
	if err := s.c.FindOne(ctx, memberKey(orgID, userID)).Decode(&p); err != nil {
		return models.Participant{}, mapErr(err)
	}
	return p, nil
}

func (s *participants) Manager(ctx context.Context, orgID primitive.ObjectID) (models.Participant, error) {
	var p models.Participant
	if err := s.c.FindOne(ctx, bson.M{"org_id": orgID, "org_managed": true}).Decode(&p); err != nil {
		return models.Participant{}, mapErr(err)
	}
	return p, nil
}

func (s *participants) SetManaged(ctx context.Context, orgID primitive.ObjectID, userID string, managed bool, at time.Time) error {
	filter := memberKey(orgID, userID)
	filter["org_managed"] = !managed
	res, err := s.c.UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"org_managed": managed,
		"updated_at":  at,
	}})
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return casMiss(ctx, s.c, memberKey(orgID, userID))
	}
	return nil
}

func (s *participants) DeleteMember(ctx context.Context, orgID primitive.ObjectID, userID string) error {
	filter := memberKey(orgID, userID)
	filter["org_managed"] = false
	res, err := s.c.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return casMiss(ctx, s.c, memberKey(orgID, userID))
	}
	return nil
}

func (s *participants) ListByOrg(ctx context.Context, orgID primitive.ObjectID) ([]models.Participant, error) {
	opts := options.Find().SetSort(bson.D{{Key: "org_managed", Value: -1}, {Key: "joined_at", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"org_id": orgID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Participant
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
