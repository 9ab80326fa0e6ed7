// internal/domain/models/organization.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Organization status values.
const (
	OrgPending  = "pending"
	OrgApproved = "approved"
	OrgRejected = "rejected"
)

// Organization is a neighborhood community group. It starts pending and is
// approved or rejected exactly once by an admin; it is never hard-deleted.
type Organization struct {
	ID            primitive.ObjectID `bson:"_id" json:"id"`
	Name          string             `bson:"name" json:"name"`
	NameCI        string             `bson:"name_ci" json:"-"` // ← always stored
	Scope         string             `bson:"scope" json:"scope"`
	ImageRef      string             `bson:"image_ref,omitempty" json:"image_ref,omitempty"`
	Status        string             `bson:"status" json:"status"`
	Approved      bool               `bson:"approved" json:"approved"`
	CreatorUserID string             `bson:"creator_user_id" json:"creator_user_id"`
	ReviewedBy    string             `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time         `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// IsApproved reports whether the organization passed admin review.
func (o Organization) IsApproved() bool {
	return o.Status == OrgApproved
}
