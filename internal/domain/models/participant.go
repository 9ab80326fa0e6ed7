// internal/domain/models/participant.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Participant is the authoritative join between users and organizations.
// Exactly one document per (org_id, user_id); exactly one per org has
// org_managed=true.
type Participant struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	OrgID      primitive.ObjectID `bson:"org_id" json:"org_id"`
	UserID     string             `bson:"user_id" json:"user_id"`
	OrgManaged bool               `bson:"org_managed" json:"org_managed"`
	JoinedAt   time.Time          `bson:"joined_at" json:"joined_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}
