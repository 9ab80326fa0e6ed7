// internal/app/store/store.go
//
// Package store defines the persistence contracts the governance workflows
// run against. Two backends implement them: mongostore (production, MongoDB
// with multi-document transactions) and boltstore (embedded, single writer).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/commonshub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = errors.New("store: record not found")

	// ErrConflict is returned when a conditional update found the record in a
	// different state than the caller expected.
	ErrConflict = errors.New("store: record changed concurrently")

	// ErrDuplicate is returned when an insert would violate a uniqueness rule
	// (one participant row per user, one pending request, one pending transfer).
	ErrDuplicate = errors.New("store: duplicate record")
)

// Store is a transactional unit-of-work provider.
//
// Update runs fn atomically: either every write made through tx is visible
// afterwards or none is. Implementations may call fn more than once when a
// transaction is retried, so fn must not have side effects outside tx.
type Store interface {
	View(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Update(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Tx exposes one repository per entity, all bound to the same transaction.
type Tx interface {
	Organizations() Organizations
	Participants() Participants
	JoinRequests() JoinRequests
	Publications() Publications
	Transfers() Transfers
}

// OrgFilter selects organizations for listing. Status "" means any status.
// OrCreator additionally includes organizations created by that user
// regardless of Status.
type OrgFilter struct {
	Status    string
	OrCreator string
	Limit     int
}

type Organizations interface {
	Insert(ctx context.Context, org models.Organization) error
	Get(ctx context.Context, id primitive.ObjectID) (models.Organization, error)
	// Review moves a pending organization to status. ErrConflict when the
	// organization is no longer pending.
	Review(ctx context.Context, id primitive.ObjectID, status, reviewer string, at time.Time) (models.Organization, error)
	UpdateDetails(ctx context.Context, id primitive.ObjectID, name, scope, imageRef string, at time.Time) (models.Organization, error)
	List(ctx context.Context, f OrgFilter) ([]models.Organization, error)
}

type Participants interface {
	Insert(ctx context.Context, p models.Participant) error
	Get(ctx context.Context, orgID primitive.ObjectID, userID string) (models.Participant, error)
	// Manager returns the participant with org_managed=true.
	Manager(ctx context.Context, orgID primitive.ObjectID) (models.Participant, error)
	// SetManaged flips org_managed from !managed to managed. ErrConflict
	// when the row already has the requested value.
	SetManaged(ctx context.Context, orgID primitive.ObjectID, userID string, managed bool, at time.Time) error
	// DeleteMember removes a non-manager row. ErrConflict when the row is
	// the manager, ErrNotFound when there is no row.
	DeleteMember(ctx context.Context, orgID primitive.ObjectID, userID string) error
	ListByOrg(ctx context.Context, orgID primitive.ObjectID) ([]models.Participant, error)
}

type JoinRequests interface {
	Insert(ctx context.Context, r models.ParticipantRequest) error
	Get(ctx context.Context, id primitive.ObjectID) (models.ParticipantRequest, error)
	Pending(ctx context.Context, orgID primitive.ObjectID, userID string) (models.ParticipantRequest, error)
	// Transition moves a request from one status to another. ErrConflict
	// when the request is no longer in status from.
	Transition(ctx context.Context, id primitive.ObjectID, from, to, response, actor string, at time.Time) (models.ParticipantRequest, error)
	ListByOrg(ctx context.Context, orgID primitive.ObjectID, status string) ([]models.ParticipantRequest, error)
}

// PublicationFilter selects publications for listing. Zero fields match all.
type PublicationFilter struct {
	OrgID        primitive.ObjectID
	Review       string
	Active       *bool
	Approved     *bool
	AuthorUserID string
}

type Publications interface {
	Insert(ctx context.Context, p models.Publication) error
	Get(ctx context.Context, id primitive.ObjectID) (models.Publication, error)
	// Review records the first moderation decision. Approval also sets
	// pub_approved and publication_active. ErrConflict when already reviewed.
	Review(ctx context.Context, id primitive.ObjectID, review, reviewer string, at time.Time) (models.Publication, error)
	// SetActive toggles publication_active on an approved publication.
	// ErrConflict when the publication is not approved.
	SetActive(ctx context.Context, id primitive.ObjectID, active bool, at time.Time) (models.Publication, error)
	UpdateContent(ctx context.Context, id primitive.ObjectID, title, body, imageRef string, at time.Time) (models.Publication, error)
	List(ctx context.Context, f PublicationFilter) ([]models.Publication, error)
}

type Transfers interface {
	Insert(ctx context.Context, t models.TransferRequest) error
	Get(ctx context.Context, id primitive.ObjectID) (models.TransferRequest, error)
	Pending(ctx context.Context, orgID primitive.ObjectID) (models.TransferRequest, error)
	Transition(ctx context.Context, id primitive.ObjectID, from, to, response string, at time.Time) (models.TransferRequest, error)
	ListByOrg(ctx context.Context, orgID primitive.ObjectID) ([]models.TransferRequest, error)
	ListByTarget(ctx context.Context, userID, status string) ([]models.TransferRequest, error)
}
