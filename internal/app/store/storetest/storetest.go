// internal/app/store/storetest/storetest.go
//
// Package storetest holds the behaviour every store backend must share.
// Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/commonshub/internal/app/store"
	"github.com/dalemusser/commonshub/internal/domain/models"
	"github.com/dalemusser/commonshub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errRollback = errors.New("rollback")

// Run exercises st through the store contracts. Each subtest works on its
// own organization, so st may be shared.
func Run(t *testing.T, st store.Store) {
	t.Run("OrganizationReviewOnce", func(t *testing.T) { testOrganizationReviewOnce(t, st) })
	t.Run("ParticipantUniqueness", func(t *testing.T) { testParticipantUniqueness(t, st) })
	t.Run("ManagerHandover", func(t *testing.T) { testManagerHandover(t, st) })
	t.Run("OnePendingJoinRequest", func(t *testing.T) { testOnePendingJoinRequest(t, st) })
	t.Run("OnePendingTransfer", func(t *testing.T) { testOnePendingTransfer(t, st) })
	t.Run("PublicationModeration", func(t *testing.T) { testPublicationModeration(t, st) })
	t.Run("UpdateRollsBack", func(t *testing.T) { testUpdateRollsBack(t, st) })
	t.Run("Ping", func(t *testing.T) {
		ctx, cancel := testutil.TestContext()
		defer cancel()
		if err := st.Ping(ctx); err != nil {
			t.Fatalf("Ping: %v", err)
		}
	})
}

func update(t *testing.T, st store.Store, fn func(ctx context.Context, tx store.Tx) error) error {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	return st.Update(ctx, fn)
}

func mustUpdate(t *testing.T, st store.Store, fn func(ctx context.Context, tx store.Tx) error) {
	t.Helper()
	if err := update(t, st, fn); err != nil {
		t.Fatalf("Update: %v", err)
	}
}

func seedOrg(t *testing.T, st store.Store, status, managerID string) models.Organization {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	org := models.Organization{
		ID:            primitive.NewObjectID(),
		Name:          "Org " + primitive.NewObjectID().Hex(),
		Status:        status,
		Approved:      status == models.OrgApproved,
		CreatorUserID: managerID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	mustUpdate(t, st, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Organizations().Insert(ctx, org); err != nil {
			return err
		}
		return tx.Participants().Insert(ctx, models.Participant{
			OrgID: org.ID, UserID: managerID, OrgManaged: true, JoinedAt: now, UpdatedAt: now,
		})
	})
	return org
}

func wantErr(t *testing.T, got, want error) {
	t.Helper()
	if !errors.Is(got, want) {
		t.Fatalf("err = %v, want %v", got, want)
	}
}

func testOrganizationReviewOnce(t *testing.T, st store.Store) {
	org := seedOrg(t, st, models.OrgPending, "creator")
	now := time.Now().UTC()

	var reviewed models.Organization
	mustUpdate(t, st, func(ctx context.Context, tx store.Tx) error {
		var err error
		reviewed, err = tx.Organizations().Review(ctx, org.ID, models.OrgApproved, "admin", now)
		return err
	})
	if reviewed.Status != models.OrgApproved || !reviewed.Approved || reviewed.ReviewedBy != "admin" {
		t.Fatalf("reviewed = %+v", reviewed)
	}

	err := update(t, st, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.Organizations().Review(ctx, org.ID, models.OrgRejected, "admin", now)
		return err
	})
	wantErr(t, err, store.ErrConflict)

	err = update(t, st, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.Organizations().Review(ctx, primitive.NewObjectID(), models.OrgApproved, "admin", now)
		return err
	})
	wantErr(t, err, store.ErrNotFound)
}

func testParticipantUniqueness(t *testing.T, st store.Store) {
	org := seedOrg(t, st, models.OrgApproved, "mgr")
	now := time.Now().UTC()
	member := models.Participant{OrgID: org.ID, UserID: "member", JoinedAt: now, UpdatedAt: now}

	mustUpdate(t, st, func(ctx context.Context, tx store.Tx) error {
		return tx.Participants().Insert(ctx, member)
	})

	err := update(t, st, func(ctx context.Context, tx store.Tx) error {
		return tx.Participants().Insert(ctx, member)
	})
	wantErr(t, err, store.ErrDuplicate)

	err = update(t, st, func(ctx context.Context, tx store.Tx) error {
		return tx.Participants().Insert(ctx, models.Participant{
			OrgID: org.ID, UserID: "usurper", OrgManaged: true, JoinedAt: now, UpdatedAt: now,
		})
	})
	wantErr(t, err, store.ErrDuplicate)

	err = update(t, st, func(ctx context.Context, tx store.Tx) error {
		return tx.Participants().DeleteMember(ctx, org.ID, "mgr")
	})
	wantErr(t, err, store.ErrConflict)

	mustUpdate(t, st, func(ctx context.Context, tx store.Tx) error {
		return tx.Participants().DeleteMember(ctx, org.ID, "member")
	})
	err = update(t, st, func(ctx context.Context, tx store.Tx) error {
		return tx.Participants().DeleteMember(ctx, org.ID, "member")
	})
	wantErr(t, err, store.ErrNotFound)
}

func testManagerHandover(t *testing.T, st store.Store) {
	org := seedOrg(t, st, models.OrgApproved, "old")
	now := time.Now().UTC()
	mustUpdate(t, st, func(ctx context.Context, tx store.Tx) error {
		return tx.Participants().Insert(ctx, models.Participant{OrgID: org.ID, UserID: "new", JoinedAt: now, UpdatedAt: now})
	})

	err := update(t, st, func(ctx context.Context, tx store.Tx) error {
		return tx.Participants().SetManaged(ctx, org.ID, "old", true, now)
	})
	wantErr(t, err, store.ErrConflict)

	mustUpdate(t, st, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Participants().SetManaged(ctx, org.ID, "old", false, now); err != nil {
			return err
		}
		return tx.Participants().SetManaged(ctx, org.ID, "new", true, now)
	})

	ctx, cancel := testutil.TestContext()
	defer cancel()
	err = st.View(ctx, func(ctx context.Context, tx store.Tx) error {
		m, err := tx.Participants().Manager(ctx, org.ID)
		if err != nil {
			return err
		}
		if m.UserID != "new" {
			t.Errorf("manager = %q, want new", m.UserID)
		}
		rows, err := tx.Participants().ListByOrg(ctx, org.ID)
		if err != nil {
			return err
		}
		if len(rows) != 2 {
			t.Errorf("got %d participants, want 2", len(rows))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func testOnePendingJoinRequest(t *testing.T, st store.Store) {
	org := seedOrg(t, st, models.OrgApproved, "mgr")
	now := time.Now().UTC()
	req := func() models.ParticipantRequest {
		return models.ParticipantRequest{
			ID: primitive.NewObjectID(), OrgID: org.ID, UserID: "joiner", Status: models.RequestPending, CreatedAt: now,
		}
	}

	first := req()
	mustUpdate(t, st, func(ctx context.Context, tx store.Tx) error {
		return tx.JoinRequests().Insert(ctx, first)
	})
	err := update(t, st, func(ctx context.Context, tx store.Tx) error {
		return tx.JoinRequests().Insert(ctx, req())
	})
	wantErr(t, err, store.ErrDuplicate)

	var rejected models.ParticipantRequest
	mustUpdate(t, st, func(ctx context.Context, tx store.Tx) error {
		var err error
		rejected, err = tx.JoinRequests().Transition(ctx, first.ID, models.RequestPending, models.RequestRejected, "no", "mgr", now)
		return err
	})
	if rejected.Status != models.RequestRejected || rejected.DecidedBy != "mgr" || rejected.DecidedAt == nil {
		t.Fatalf("rejected = %+v", rejected)
	}

	err = update(t, st, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.JoinRequests().Transition(ctx, first.ID, models.RequestPending, models.RequestApproved, "", "mgr", now)
		return err
	})
	wantErr(t, err, store.ErrConflict)

	// A decided request no longer blocks a new one.
	mustUpdate(t, st, func(ctx context.Context, tx store.Tx) error {
		return tx.JoinRequests().Insert(ctx, req())
	})
}

func testOnePendingTransfer(t *testing.T, st store.Store) {
	org := seedOrg(t, st, models.OrgApproved, "mgr")
	now := time.Now().UTC()
	offer := func(to string) models.TransferRequest {
		return models.TransferRequest{
			ID: primitive.NewObjectID(), OrgID: org.ID, FromUserID: "mgr", ToUserID: to, Status: models.TransferPending, CreatedAt: now,
		}
	}

	first := offer("a")
	mustUpdate(t, st, func(ctx context.Context, tx store.Tx) error {
		return tx.Transfers().Insert(ctx, first)
	})
	err := update(t, st, func(ctx context.Context, tx store.Tx) error {
		return tx.Transfers().Insert(ctx, offer("b"))
	})
	wantErr(t, err, store.ErrDuplicate)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	err = st.View(ctx, func(ctx context.Context, tx store.Tx) error {
		incoming, err := tx.Transfers().ListByTarget(ctx, "a", models.TransferPending)
		if err != nil {
			return err
		}
		if len(incoming) != 1 || incoming[0].ID != first.ID {
			t.Errorf("incoming = %+v", incoming)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
}

func testPublicationModeration(t *testing.T, st store.Store) {
	org := seedOrg(t, st, models.OrgApproved, "mgr")
	now := time.Now().UTC()
	pub := models.Publication{
		ID: primitive.NewObjectID(), OrgID: org.ID, AuthorUserID: "author", Title: "Notice",
		Review: models.ReviewUnreviewed, CreatedAt: now, UpdatedAt: now,
	}
	mustUpdate(t, st, func(ctx context.Context, tx store.Tx) error {
		return tx.Publications().Insert(ctx, pub)
	})

	err := update(t, st, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.Publications().SetActive(ctx, pub.ID, false, now)
		return err
	})
	wantErr(t, err, store.ErrConflict)

	var approved models.Publication
	mustUpdate(t, st, func(ctx context.Context, tx store.Tx) error {
		var err error
		approved, err = tx.Publications().Review(ctx, pub.ID, models.ReviewApproved, "mgr", now)
		return err
	})
	if !approved.PubliclyVisible() {
		t.Fatalf("approved publication not visible: %+v", approved)
	}

	err = update(t, st, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.Publications().Review(ctx, pub.ID, models.ReviewRejected, "mgr", now)
		return err
	})
	wantErr(t, err, store.ErrConflict)
}

func testUpdateRollsBack(t *testing.T, st store.Store) {
	org := seedOrg(t, st, models.OrgApproved, "mgr")
	now := time.Now().UTC()

	err := update(t, st, func(ctx context.Context, tx store.Tx) error {
		if err := tx.Participants().Insert(ctx, models.Participant{OrgID: org.ID, UserID: "ghost", JoinedAt: now, UpdatedAt: now}); err != nil {
			return err
		}
		return errRollback
	})
	wantErr(t, err, errRollback)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	err = st.View(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.Participants().Get(ctx, org.ID, "ghost")
		return err
	})
	wantErr(t, err, store.ErrNotFound)
}
