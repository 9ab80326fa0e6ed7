// internal/domain/models/publication.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Publication review values.
const (
	ReviewUnreviewed = "unreviewed"
	ReviewApproved   = "approved"
	ReviewRejected   = "rejected"
)

// Publication is an announcement posted into an organization.
//
// PubApproved is decided once by the organization's manager. PublicationActive
// defaults to true and may be toggled by the manager after approval.
type Publication struct {
	ID                primitive.ObjectID `bson:"_id" json:"id"`
	OrgID             primitive.ObjectID `bson:"org_id" json:"org_id"`
	AuthorUserID      string             `bson:"author_user_id" json:"author_user_id"`
	Title             string             `bson:"title" json:"title"`
	Body              string             `bson:"body" json:"body"`
	ImageRef          string             `bson:"image_ref,omitempty" json:"image_ref,omitempty"`
	Review            string             `bson:"review" json:"review"`
	PubApproved       bool               `bson:"pub_approved" json:"pub_approved"`
	PublicationActive bool               `bson:"publication_active" json:"publication_active"`
	ReviewedBy        string             `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
	ReviewedAt        *time.Time         `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time          `bson:"updated_at" json:"updated_at"`
}

// PubliclyVisible is the derived listing rule: approved and active.
func (p Publication) PubliclyVisible() bool {
	return p.PubApproved && p.PublicationActive
}
