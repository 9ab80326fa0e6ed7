// internal/domain/models/participantrequest.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Join request status values. A request leaves "pending" exactly once.
const (
	RequestPending   = "pending"
	RequestApproved  = "approved"
	RequestRejected  = "rejected"
	RequestCancelled = "cancelled"
)

// ParticipantRequest is a user's request to join an organization.
// At most one pending request exists per (org_id, user_id).
type ParticipantRequest struct {
	ID              primitive.ObjectID `bson:"_id" json:"id"`
	OrgID           primitive.ObjectID `bson:"org_id" json:"org_id"`
	UserID          string             `bson:"user_id" json:"user_id"`
	Status          string             `bson:"status" json:"status"`
	RequestMessage  string             `bson:"request_message,omitempty" json:"request_message,omitempty"`
	ResponseMessage string             `bson:"response_message,omitempty" json:"response_message,omitempty"`
	DecidedBy       string             `bson:"decided_by,omitempty" json:"decided_by,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	DecidedAt       *time.Time         `bson:"decided_at,omitempty" json:"decided_at,omitempty"`
}
