package testutil

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/commonshub/internal/app/store"
	"github.com/dalemusser/commonshub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures writes test data straight through a store, bypassing the
// governance workflows.
type Fixtures struct {
	st store.Store
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given store.
func NewFixtures(t *testing.T, st store.Store) *Fixtures {
	t.Helper()
	return &Fixtures{st: st, t: t}
}

// Store returns the underlying store for direct access in tests.
func (f *Fixtures) Store() store.Store {
	return f.st
}

func (f *Fixtures) write(ctx context.Context, what string, fn func(ctx context.Context, tx store.Tx) error) {
	f.t.Helper()
	if err := f.st.Update(ctx, fn); err != nil {
		f.t.Fatalf("failed to create test %s: %v", what, err)
	}
}

// CreateOrganization creates an organization in the given status with
// managerID as its creator and manager.
func (f *Fixtures) CreateOrganization(ctx context.Context, name, status, managerID string) models.Organization {
	f.t.Helper()

	now := time.Now().UTC()
	org := models.Organization{
		ID:            primitive.NewObjectID(),
		Name:          name,
		Scope:         "Test neighborhood",
		Status:        status,
		Approved:      status == models.OrgApproved,
		CreatorUserID: managerID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	f.write(ctx, "organization", func(ctx context.Context, tx store.Tx) error {
		if err := tx.Organizations().Insert(ctx, org); err != nil {
			return err
		}
		return tx.Participants().Insert(ctx, models.Participant{
			ID:         primitive.NewObjectID(),
			OrgID:      org.ID,
			UserID:     managerID,
			OrgManaged: true,
			JoinedAt:   now,
			UpdatedAt:  now,
		})
	})
	return org
}

// CreateApprovedOrganization is CreateOrganization with status approved.
func (f *Fixtures) CreateApprovedOrganization(ctx context.Context, name, managerID string) models.Organization {
	f.t.Helper()
	return f.CreateOrganization(ctx, name, models.OrgApproved, managerID)
}

// AddMember adds a non-manager participant.
func (f *Fixtures) AddMember(ctx context.Context, orgID primitive.ObjectID, userID string) models.Participant {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Participant{
		ID:        primitive.NewObjectID(),
		OrgID:     orgID,
		UserID:    userID,
		JoinedAt:  now,
		UpdatedAt: now,
	}
	f.write(ctx, "participant", func(ctx context.Context, tx store.Tx) error {
		return tx.Participants().Insert(ctx, p)
	})
	return p
}

// CreatePublication creates a publication in the given review state.
// Approved publications get active as given; others are active by default.
func (f *Fixtures) CreatePublication(ctx context.Context, orgID primitive.ObjectID, authorID, title, review string, active bool) models.Publication {
	f.t.Helper()

	now := time.Now().UTC()
	p := models.Publication{
		ID:                primitive.NewObjectID(),
		OrgID:             orgID,
		AuthorUserID:      authorID,
		Title:             title,
		Body:              "<p>" + title + "</p>",
		Review:            review,
		PubApproved:       review == models.ReviewApproved,
		PublicationActive: active,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	f.write(ctx, "publication", func(ctx context.Context, tx store.Tx) error {
		return tx.Publications().Insert(ctx, p)
	})
	return p
}

// Participant reads a participant row, failing the test on errors other
// than not found.
func (f *Fixtures) Participant(ctx context.Context, orgID primitive.ObjectID, userID string) (models.Participant, bool) {
	f.t.Helper()

	var p models.Participant
	found := true
	err := f.st.View(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		p, err = tx.Participants().Get(ctx, orgID, userID)
		if errors.Is(err, store.ErrNotFound) {
			found = false
			return nil
		}
		return err
	})
	if err != nil {
		f.t.Fatalf("read participant: %v", err)
	}
	return p, found
}

// Managers returns the participants flagged as manager.
func (f *Fixtures) Managers(ctx context.Context, orgID primitive.ObjectID) []models.Participant {
	f.t.Helper()

	var out []models.Participant
	err := f.st.View(ctx, func(ctx context.Context, tx store.Tx) error {
		all, err := tx.Participants().ListByOrg(ctx, orgID)
		if err != nil {
			return err
		}
		for _, p := range all {
			if p.OrgManaged {
				out = append(out, p)
			}
		}
		return nil
	})
	if err != nil {
		f.t.Fatalf("list participants: %v", err)
	}
	return out
}
