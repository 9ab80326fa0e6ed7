// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.

The unique and partial-unique indexes here are the database half of the
governance invariants: one participant row per (org,user), one manager per
org, one pending join request per (org,user), one pending transfer per org.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	steps := []struct {
		name string
		fn   func(context.Context, *mongo.Database) error
	}{
		{"organizations", ensureOrganizations},
		{"participants", ensureParticipants},
		{"participant_requests", ensureParticipantRequests},
		{"publications", ensurePublications},
		{"transfer_requests", ensureTransferRequests},
		{"audit_events", ensureAuditEvents},
	}
	for _, s := range steps {
		if err := s.fn(ctx, db); err != nil {
			problems = append(problems, s.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name    string `bson:"name"`
	Key     bson.D `bson:"key"`
	Unique  *bool  `bson:"unique,omitempty"`
	Partial bson.D `bson:"partialFilterExpression,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

// partialSig renders a partial filter for comparison. Nested documents
// are rendered with %v, which is stable for the flat filters used here.
func partialSig(filter interface{}) string {
	switch f := filter.(type) {
	case nil:
		return ""
	case bson.D:
		return keySig(f)
	case bson.M:
		d := make(bson.D, 0, len(f))
		for k, v := range f {
			d = append(d, bson.E{Key: k, Value: v})
		}
		return keySig(d)
	}
	return fmt.Sprintf("%v", filter)
}

func sameBoolPtr(a, b *bool) bool {
	av := false
	bv := false
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 { // E11000 duplicate key error index
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "IndexOptionsConflict")
}

type desiredIndex struct {
	model   mongo.IndexModel
	name    string
	unique  *bool
	partial string
	sig     string
}

func describe(m mongo.IndexModel) desiredIndex {
	d := desiredIndex{model: m, sig: keySig(m.Keys.(bson.D))}
	if m.Options != nil {
		if m.Options.Name != nil {
			d.name = *m.Options.Name
		}
		d.unique = m.Options.Unique
		d.partial = partialSig(m.Options.PartialFilterExpression)
	}
	return d
}

func (d desiredIndex) matches(ex existingIndex) bool {
	return sameBoolPtr(d.unique, ex.Unique) && d.partial == keySig(ex.Partial)
}

func (d desiredIndex) fields(coll *mongo.Collection) []zap.Field {
	return []zap.Field{
		zap.String("collection", coll.Name()),
		zap.String("name", d.name),
		zap.String("keys", d.sig),
		zap.Bool("unique", d.unique != nil && *d.unique),
		zap.String("partial", d.partial),
	}
}

func listExisting(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	existing := map[string]existingIndex{} // sig -> index
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

// recreate drops ex and creates the desired index in its place.
func recreate(ctx context.Context, coll *mongo.Collection, ex existingIndex, d desiredIndex) error {
	if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
		return fmt.Errorf("drop %s failed: %w", ex.Name, err)
	}
	return create(ctx, coll, d)
}

func create(ctx context.Context, coll *mongo.Collection, d desiredIndex) error {
	if _, err := coll.Indexes().CreateOne(ctx, d.model); err != nil {
		if isDuplicateKeyErr(err) && d.unique != nil && *d.unique {
			return fmt.Errorf("cannot create unique index (duplicates present on %s)", d.sig)
		}
		return err
	}
	return nil
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		d := describe(m)
		start := time.Now()
		zap.L().Info("ensuring index", d.fields(coll)...)

		existing := listExisting(ctx, coll)
		ex, found := existing[d.sig]

		switch {
		case found && d.matches(ex) && (d.name == "" || ex.Name == d.name):
			zap.L().Info("reusing existing index",
				append(d.fields(coll), zap.String("took", time.Since(start).String()))...)
			continue

		case found:
			// Same keys, different name or options: drop and recreate.
			if err := recreate(ctx, coll, ex, d); err != nil {
				zap.L().Warn("index recreate failed", append(d.fields(coll), zap.Error(err))...)
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), d.name, err))
				continue
			}
			zap.L().Info("index dropped and recreated",
				append(d.fields(coll), zap.String("took", time.Since(start).String()))...)
			continue
		}

		err := create(ctx, coll, d)
		if err != nil && isOptionsConflictErr(err) {
			// An index with these keys appeared between List and CreateOne.
			if ex, ok := listExisting(ctx, coll)[d.sig]; ok {
				if d.matches(ex) {
					zap.L().Info("reusing existing index (post-conflict)", d.fields(coll)...)
					continue
				}
				err = recreate(ctx, coll, ex, d)
			}
		}
		if err != nil {
			zap.L().Warn("index ensure failed",
				append(d.fields(coll), zap.String("took", time.Since(start).String()), zap.Error(err))...)
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), d.name, err))
			continue
		}
		zap.L().Info("index ensured",
			append(d.fields(coll), zap.String("took", time.Since(start).String()))...)
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureOrganizations(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("organizations")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Public listing: approved orgs by name
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_orgs_status_nameci__id"),
		},
		// "My organizations" (creator sees own pending/rejected)
		{
			Keys:    bson.D{{Key: "creator_user_id", Value: 1}, {Key: "name_ci", Value: 1}},
			Options: options.Index().SetName("idx_orgs_creator_nameci"),
		},
	})
}

func ensureParticipants(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("participants")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// One row per (org, user)
		{
			Keys:    bson.D{{Key: "org_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_participants_org_user"),
		},
		// Exactly one manager per org
		{
			Keys: bson.D{{Key: "org_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_participants_org_manager").
				SetPartialFilterExpression(bson.D{{Key: "org_managed", Value: true}}),
		},
		// "Organizations I belong to"
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "org_id", Value: 1}},
			Options: options.Index().SetName("idx_participants_user_org"),
		},
	})
}

func ensureParticipantRequests(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("participant_requests")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// At most one pending request per (org, user)
		{
			Keys: bson.D{{Key: "org_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_requests_org_user_pending").
				SetPartialFilterExpression(bson.D{{Key: "status", Value: "pending"}}),
		},
		// Manager queue
		{
			Keys:    bson.D{{Key: "org_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_requests_org_status_created"),
		},
	})
}

func ensurePublications(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("publications")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Public listing and moderation queue
		{
			Keys: bson.D{
				{Key: "org_id", Value: 1},
				{Key: "review", Value: 1},
				{Key: "publication_active", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_pubs_org_review_active_created"),
		},
		// Author's own listing
		{
			Keys:    bson.D{{Key: "author_user_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_pubs_author_created"),
		},
	})
}

func ensureTransferRequests(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("transfer_requests")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// At most one pending transfer per org
		{
			Keys: bson.D{{Key: "org_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_transfers_org_pending").
				SetPartialFilterExpression(bson.D{{Key: "status", Value: "pending"}}),
		},
		// History per org
		{
			Keys:    bson.D{{Key: "org_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_transfers_org_created"),
		},
		// Incoming transfers for a user
		{
			Keys:    bson.D{{Key: "to_user_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_transfers_to_status"),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("audit_events")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "org_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_org_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "actor_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_actor_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "event_type", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_category_type_timestamp"),
		},
	})
}
