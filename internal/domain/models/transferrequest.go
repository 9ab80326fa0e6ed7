// internal/domain/models/transferrequest.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Transfer status values.
const (
	TransferPending  = "pending"
	TransferAccepted = "accepted"
	TransferRejected = "rejected"
)

// TransferRequest hands the manager role of an organization from one user to
// another. At most one pending transfer exists per organization.
type TransferRequest struct {
	ID              primitive.ObjectID `bson:"_id" json:"id"`
	OrgID           primitive.ObjectID `bson:"org_id" json:"org_id"`
	FromUserID      string             `bson:"from_user_id" json:"from_user_id"`
	ToUserID        string             `bson:"to_user_id" json:"to_user_id"`
	Status          string             `bson:"status" json:"status"`
	TransferMessage string             `bson:"transfer_message,omitempty" json:"transfer_message,omitempty"`
	ResponseMessage string             `bson:"response_message,omitempty" json:"response_message,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	DecidedAt       *time.Time         `bson:"decided_at,omitempty" json:"decided_at,omitempty"`
}
