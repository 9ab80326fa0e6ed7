// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryMembership = "membership"
	CategoryContent    = "content"
	CategoryTransfer   = "transfer"
	CategorySecurity   = "security"
)

// Membership event types
const (
	EventOrgCreated      = "org_created"
	EventOrgApproved     = "org_approved"
	EventOrgRejected     = "org_rejected"
	EventOrgUpdated      = "org_updated"
	EventJoinRequested   = "join_requested"
	EventJoinApproved    = "join_approved"
	EventJoinRejected    = "join_rejected"
	EventJoinCancelled   = "join_cancelled"
	EventParticipantLeft = "participant_left"
)

// Content event types
const (
	EventPublicationCreated  = "publication_created"
	EventPublicationApproved = "publication_approved"
	EventPublicationRejected = "publication_rejected"
	EventPublicationToggled  = "publication_toggled"
	EventPublicationEdited   = "publication_edited"
)

// Transfer event types
const (
	EventTransferCreated  = "transfer_created"
	EventTransferAccepted = "transfer_accepted"
	EventTransferRejected = "transfer_rejected"
)

// Security event types
const (
	EventActionDenied   = "action_denied"
	EventSessionStarted = "session_started"
	EventSessionEnded   = "session_ended"
)

// Event represents an audit event.
type Event struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Timestamp time.Time           `bson:"timestamp" json:"timestamp"`
	OrgID     *primitive.ObjectID `bson:"org_id,omitempty" json:"org_id,omitempty"`

	// Event classification
	Category  string `bson:"category" json:"category"`
	EventType string `bson:"event_type" json:"event_type"`

	// Who. Identities are issued by the identity gateway, so they are opaque strings.
	ActorID   string `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
	SubjectID string `bson:"subject_id,omitempty" json:"subject_id,omitempty"` // affected user
	EntityID  string `bson:"entity_id,omitempty" json:"entity_id,omitempty"`   // request, publication or transfer

	// Context
	IP        string `bson:"ip" json:"ip"`
	UserAgent string `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	RequestID string `bson:"request_id,omitempty" json:"request_id,omitempty"`

	// Outcome
	Success       bool   `bson:"success" json:"success"`
	FailureReason string `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`

	Details map[string]string `bson:"details,omitempty" json:"details,omitempty"`
}

// QueryFilter defines filters for querying audit events.
type QueryFilter struct {
	OrgID     *primitive.ObjectID
	ActorID   string
	Category  string
	EventType string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int64
	Offset    int64
}

// DefaultLimit caps Query when the filter does not.
const DefaultLimit = 100

// Matches reports whether e passes f. Backends without a query language
// (bbolt) filter with it.
func (f QueryFilter) Matches(e Event) bool {
	if f.OrgID != nil && (e.OrgID == nil || *e.OrgID != *f.OrgID) {
		return false
	}
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.EventType != "" && e.EventType != f.EventType {
		return false
	}
	if f.StartTime != nil && e.Timestamp.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && e.Timestamp.After(*f.EndTime) {
		return false
	}
	return true
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

func buildQuery(filter QueryFilter) bson.M {
	query := bson.M{}
	if filter.OrgID != nil {
		query["org_id"] = *filter.OrgID
	}
	if filter.ActorID != "" {
		query["actor_id"] = filter.ActorID
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.EventType != "" {
		query["event_type"] = filter.EventType
	}
	if filter.StartTime != nil || filter.EndTime != nil {
		timeQuery := bson.M{}
		if filter.StartTime != nil {
			timeQuery["$gte"] = *filter.StartTime
		}
		if filter.EndTime != nil {
			timeQuery["$lte"] = *filter.EndTime
		}
		query["timestamp"] = timeQuery
	}
	return query
}

// Query retrieves audit events matching the given filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cursor, err := s.c.Find(ctx, buildQuery(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CountByFilter returns the count of events matching the filter.
func (s *Store) CountByFilter(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, buildQuery(filter))
}
