// internal/app/system/events/events.go
//
// Package events announces committed workflow transitions so connected
// clients can refresh instead of polling. Delivery is best effort: a
// failed publish is logged and never fails the action that caused it.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Event types mirror the audit event types of the same transitions.
const (
	OrgCreated          = "org_created"
	OrgReviewed         = "org_reviewed"
	OrgUpdated          = "org_updated"
	JoinRequested       = "join_requested"
	JoinDecided         = "join_decided"
	JoinCancelled       = "join_cancelled"
	ParticipantLeft     = "participant_left"
	PublicationCreated  = "publication_created"
	PublicationReviewed = "publication_reviewed"
	PublicationToggled  = "publication_toggled"
	PublicationEdited   = "publication_edited"
	TransferCreated     = "transfer_created"
	TransferDecided     = "transfer_decided"
)

const publishTimeout = 5 * time.Second

// Event is the message published for one transition.
type Event struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	OrgID    string    `json:"org_id"`
	EntityID string    `json:"entity_id,omitempty"`
	ActorID  string    `json:"actor_id,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher delivers events. Implementations must not block the caller for
// longer than a short timeout.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// New fills in the id and timestamp.
func New(typ, orgID, entityID, actorID string) Event {
	return Event{
		ID:       uuid.NewString(),
		Type:     typ,
		OrgID:    orgID,
		EntityID: entityID,
		ActorID:  actorID,
		At:       time.Now().UTC(),
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// RedisPublisher publishes each event as JSON on "<prefix>org:<org id>".
type RedisPublisher struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisClient creates a Redis client and verifies connectivity.
func NewRedisClient(ctx context.Context, addr, password string, db int, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info("redis client connected", zap.String("addr", addr))
	return rdb, nil
}

func NewRedisPublisher(client *redis.Client, prefix string, logger *zap.Logger) *RedisPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPublisher{client: client, prefix: prefix, logger: logger}
}

// Channel returns the channel events for orgID are published on.
func (p *RedisPublisher) Channel(orgID string) string {
	return p.prefix + "org:" + orgID
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		p.logger.Warn("event encode failed", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	// The request context may already be finishing; publish on our own clock.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.client.Publish(pctx, p.Channel(ev.OrgID), body).Err(); err != nil {
		p.logger.Warn("event publish failed",
			zap.String("type", ev.Type),
			zap.String("org_id", ev.OrgID),
			zap.Error(err))
	}
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the types of everything published so far, in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
