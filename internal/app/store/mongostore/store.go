// internal/app/store/mongostore/store.go
//
// Package mongostore implements the store contracts on MongoDB. Every
// Update runs in a multi-document transaction; race-sensitive transitions
// are conditional FindOneAndUpdate calls filtered on the expected state.
package mongostore

import (
	"context"
	"errors"

	"github.com/dalemusser/commonshub/internal/app/store"
	"github.com/dalemusser/commonshub/internal/app/system/txn"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Collection names.
const (
	CollOrganizations = "organizations"
	CollParticipants  = "participants"
	CollJoinRequests  = "participant_requests"
	CollPublications  = "publications"
	CollTransfers     = "transfer_requests"
)

// Options control transaction behaviour.
type Options struct {
	// RequireTransactions disables the non-transactional fallback used on
	// standalone development servers.
	RequireTransactions bool
}

type Store struct {
	db   *mongo.Database
	log  *zap.Logger
	opts Options
	tx   *tx
}

var _ store.Store = (*Store)(nil)

func New(db *mongo.Database, log *zap.Logger, opts Options) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		db:   db,
		log:  log,
		opts: opts,
		tx: &tx{
			orgs:      &organizations{c: db.Collection(CollOrganizations)},
			parts:     &participants{c: db.Collection(CollParticipants)},
			requests:  &joinRequests{c: db.Collection(CollJoinRequests)},
			pubs:      &publications{c: db.Collection(CollPublications)},
			transfers: &transfers{c: db.Collection(CollTransfers)},
		},
	}
}

// DB returns the underlying database.
func (s *Store) DB() *mongo.Database { return s.db }

func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return fn(ctx, s.tx)
}

func (s *Store) Update(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	body := func(ctx context.Context) error { return fn(ctx, s.tx) }
	if s.opts.RequireTransactions {
		return txn.Strict(ctx, s.db, body)
	}
	return txn.Run(ctx, s.db, s.log, body)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// Close is a no-op; the client is owned by bootstrap and disconnected there.
func (s *Store) Close(context.Context) error { return nil }

// tx holds the repositories. The repositories are stateless; transaction
// binding travels in the session context passed to each call.
type tx struct {
	orgs      *organizations
	parts     *participants
	requests  *joinRequests
	pubs      *publications
	transfers *transfers
}

func (t *tx) Organizations() store.Organizations { return t.orgs }
func (t *tx) Participants() store.Participants   { return t.parts }
func (t *tx) JoinRequests() store.JoinRequests   { return t.requests }
func (t *tx) Publications() store.Publications   { return t.pubs }
func (t *tx) Transfers() store.Transfers         { return t.transfers }

// mapErr translates driver errors into store sentinels.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case wafflemongo.IsDup(err):
		return store.ErrDuplicate
	}
	return err
}

// casMiss is called after a conditional update matched nothing. It tells a
// missing record apart from one that is in a different state.
func casMiss(ctx context.Context, c *mongo.Collection, filter bson.M) error {
	n, err := c.CountDocuments(ctx, filter)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return store.ErrConflict
}

func byID(id primitive.ObjectID) bson.M { return bson.M{"_id": id} }
