package governance_test

import (
	"sync"
	"testing"

	"github.com/dalemusser/commonshub/internal/app/governance"
	"github.com/dalemusser/commonshub/internal/app/store/audit"
	"github.com/dalemusser/commonshub/internal/domain/models"
	"github.com/dalemusser/commonshub/internal/domain/wferr"
	"github.com/dalemusser/commonshub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestJoinScenario(t *testing.T) {
	h := newHarness(t)
	admin := testutil.AdminActor()
	u1 := testutil.UserActor("U1")
	u2 := testutil.UserActor("U2")

	org, err := h.svc.CreateOrganization(h.ctx, u1, governance.OrgInput{Name: "O"})
	mustNil(t, err)

	// joining is closed until the organization is approved, and the
	// pending organization is invisible to U2
	_, err = h.svc.RequestJoin(h.ctx, u2, org.ID, "")
	wantErr(t, err, wferr.ErrNotFound)

	_, err = h.svc.ReviewOrganization(h.ctx, admin, org.ID, true)
	mustNil(t, err)

	req, err := h.svc.RequestJoin(h.ctx, u2, org.ID, "hello <i>neighbors</i>")
	mustNil(t, err)
	if req.Status != models.RequestPending || req.RequestMessage != "hello neighbors" {
		t.Fatalf("unexpected request: %+v", req)
	}

	dec, err := h.svc.ApproveJoin(h.ctx, u1, req.ID, "welcome")
	mustNil(t, err)
	if dec.Request.Status != models.RequestApproved || dec.Request.ResponseMessage != "welcome" {
		t.Errorf("unexpected decision: %+v", dec.Request)
	}
	if dec.Participant == nil || dec.Participant.UserID != u2.ID || dec.Participant.OrgManaged {
		t.Errorf("unexpected participant: %+v", dec.Participant)
	}
	if _, ok := h.fx.Participant(h.ctx, org.ID, u2.ID); !ok {
		t.Error("U2 should be a participant")
	}

	_, err = h.svc.ApproveJoin(h.ctx, u1, req.ID, "")
	wantErr(t, err, wferr.ErrInvalidState)
	_, err = h.svc.RejectJoin(h.ctx, u1, req.ID, "")
	wantErr(t, err, wferr.ErrInvalidState)
}

func TestRequestJoin_Conflicts(t *testing.T) {
	h := newHarness(t)
	mgr := testutil.UserActor("Manager")
	member := testutil.UserActor("Member")
	u := testutil.UserActor("Applicant")
	org := h.fx.CreateApprovedOrganization(h.ctx, "O", mgr.ID)
	h.fx.AddMember(h.ctx, org.ID, member.ID)

	_, err := h.svc.RequestJoin(h.ctx, member, org.ID, "")
	wantErr(t, err, wferr.ErrAlreadyMember)
	wantErr(t, err, wferr.ErrInvalidState)

	_, err = h.svc.RequestJoin(h.ctx, mgr, org.ID, "")
	wantErr(t, err, wferr.ErrAlreadyMember)

	_, err = h.svc.RequestJoin(h.ctx, u, org.ID, "")
	mustNil(t, err)
	_, err = h.svc.RequestJoin(h.ctx, u, org.ID, "again")
	wantErr(t, err, wferr.ErrDuplicateRequest)
	wantErr(t, err, wferr.ErrInvalidState)

	_, err = h.svc.RequestJoin(h.ctx, models.Actor{}, org.ID, "")
	wantErr(t, err, wferr.ErrUnauthorized)

	_, err = h.svc.RequestJoin(h.ctx, u, primitive.NewObjectID(), "")
	wantErr(t, err, wferr.ErrNotFound)
}

func TestRequestJoin_AtMostOnePending(t *testing.T) {
	h := newHarness(t)
	mgr := testutil.UserActor("Manager")
	u := testutil.UserActor("Applicant")
	org := h.fx.CreateApprovedOrganization(h.ctx, "O", mgr.ID)

	pendingCount := func() int {
		reqs, err := h.svc.ListJoinRequests(h.ctx, mgr, org.ID, "")
		mustNil(t, err)
		n := 0
		for _, r := range reqs {
			if r.UserID == u.ID {
				n++
			}
		}
		return n
	}

	first, err := h.svc.RequestJoin(h.ctx, u, org.ID, "")
	mustNil(t, err)
	_, err = h.svc.RejectJoin(h.ctx, mgr, first.ID, "not yet")
	mustNil(t, err)
	if n := pendingCount(); n != 0 {
		t.Fatalf("pending after reject = %d", n)
	}

	// rejection does not block a fresh request
	second, err := h.svc.RequestJoin(h.ctx, u, org.ID, "please")
	mustNil(t, err)
	if second.ID == first.ID {
		t.Fatal("expected a new request")
	}
	if n := pendingCount(); n != 1 {
		t.Fatalf("pending after re-request = %d", n)
	}

	cancelled, err := h.svc.CancelJoin(h.ctx, u, org.ID)
	mustNil(t, err)
	if cancelled.Status != models.RequestCancelled {
		t.Errorf("status after cancel = %q", cancelled.Status)
	}
	if n := pendingCount(); n != 0 {
		t.Fatalf("pending after cancel = %d", n)
	}

	_, err = h.svc.CancelJoin(h.ctx, u, org.ID)
	wantErr(t, err, wferr.ErrInvalidState)

	_, err = h.svc.RequestJoin(h.ctx, u, org.ID, "")
	mustNil(t, err)
	if n := pendingCount(); n != 1 {
		t.Fatalf("pending after third request = %d", n)
	}

	all, err := h.svc.ListJoinRequests(h.ctx, mgr, org.ID, "all")
	mustNil(t, err)
	if len(all) != 3 {
		t.Errorf("history = %d requests, want 3", len(all))
	}
	_, err = h.svc.ListJoinRequests(h.ctx, mgr, org.ID, "bogus")
	wantErr(t, err, wferr.ErrValidation)
}

func TestCancelJoin_AfterApprovalIsInvalidState(t *testing.T) {
	h := newHarness(t)
	mgr := testutil.UserActor("Manager")
	u := testutil.UserActor("Applicant")
	org := h.fx.CreateApprovedOrganization(h.ctx, "O", mgr.ID)

	req, err := h.svc.RequestJoin(h.ctx, u, org.ID, "")
	mustNil(t, err)
	_, err = h.svc.ApproveJoin(h.ctx, mgr, req.ID, "")
	mustNil(t, err)

	_, err = h.svc.CancelJoin(h.ctx, u, org.ID)
	wantErr(t, err, wferr.ErrInvalidState)
}

func TestDecideJoin_OnlyManager(t *testing.T) {
	h := newHarness(t)
	admin := testutil.AdminActor()
	mgr := testutil.UserActor("Manager")
	member := testutil.UserActor("Member")
	u := testutil.UserActor("Applicant")
	org := h.fx.CreateApprovedOrganization(h.ctx, "O", mgr.ID)
	h.fx.AddMember(h.ctx, org.ID, member.ID)

	req, err := h.svc.RequestJoin(h.ctx, u, org.ID, "")
	mustNil(t, err)

	for _, actor := range []models.Actor{member, admin, u, {}} {
		_, err := h.svc.ApproveJoin(h.ctx, actor, req.ID, "")
		wantErr(t, err, wferr.ErrUnauthorized)
	}
	if _, ok := h.fx.Participant(h.ctx, org.ID, u.ID); ok {
		t.Fatal("unauthorized approval created a participant")
	}

	_, err = h.svc.ApproveJoin(h.ctx, mgr, primitive.NewObjectID(), "")
	wantErr(t, err, wferr.ErrNotFound)

	_, err = h.svc.ListJoinRequests(h.ctx, member, org.ID, "")
	wantErr(t, err, wferr.ErrUnauthorized)
}

func TestApproveJoin_ConcurrentApprovals(t *testing.T) {
	h := newHarness(t)
	mgr := testutil.UserActor("Manager")
	u := testutil.UserActor("Applicant")
	org := h.fx.CreateApprovedOrganization(h.ctx, "O", mgr.ID)

	req, err := h.svc.RequestJoin(h.ctx, u, org.ID, "")
	mustNil(t, err)

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.svc.ApproveJoin(h.ctx, mgr, req.ID, "")
		}(i)
	}
	wg.Wait()

	ok, lost := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case wferrIsInvalidState(err):
			lost++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || lost != callers-1 {
		t.Fatalf("winners=%d losers=%d", ok, lost)
	}

	parts, err := h.svc.ListParticipants(h.ctx, mgr, org.ID)
	mustNil(t, err)
	if len(parts) != 2 {
		t.Errorf("participants = %d, want manager plus one", len(parts))
	}

	approved, err := h.trail.Query(h.ctx, audit.QueryFilter{EventType: audit.EventJoinApproved})
	mustNil(t, err)
	if len(approved) != 1 {
		t.Errorf("join_approved audit events = %d, want 1", len(approved))
	}
}

func TestLeaveOrganization(t *testing.T) {
	h := newHarness(t)
	mgr := testutil.UserActor("Manager")
	member := testutil.UserActor("Member")
	stranger := testutil.UserActor("Stranger")
	org := h.fx.CreateApprovedOrganization(h.ctx, "O", mgr.ID)
	h.fx.AddMember(h.ctx, org.ID, member.ID)

	err := h.svc.LeaveOrganization(h.ctx, mgr, org.ID)
	wantErr(t, err, wferr.ErrIsManager)
	wantErr(t, err, wferr.ErrInvalidState)
	if m := h.fx.Managers(h.ctx, org.ID); len(m) != 1 {
		t.Fatalf("managers after refused leave = %d", len(m))
	}

	mustNil(t, h.svc.LeaveOrganization(h.ctx, member, org.ID))
	if _, ok := h.fx.Participant(h.ctx, org.ID, member.ID); ok {
		t.Fatal("member still a participant")
	}

	err = h.svc.LeaveOrganization(h.ctx, member, org.ID)
	wantErr(t, err, wferr.ErrNotFound)

	err = h.svc.LeaveOrganization(h.ctx, stranger, org.ID)
	wantErr(t, err, wferr.ErrNotFound)

	// a former member may ask to come back
	_, err = h.svc.RequestJoin(h.ctx, member, org.ID, "")
	mustNil(t, err)
}

func TestListParticipants(t *testing.T) {
	h := newHarness(t)
	admin := testutil.AdminActor()
	mgr := testutil.UserActor("Manager")
	member := testutil.UserActor("Member")
	org := h.fx.CreateApprovedOrganization(h.ctx, "O", mgr.ID)
	h.fx.AddMember(h.ctx, org.ID, member.ID)

	for _, actor := range []models.Actor{mgr, member, admin} {
		parts, err := h.svc.ListParticipants(h.ctx, actor, org.ID)
		mustNil(t, err)
		if len(parts) != 2 {
			t.Errorf("%s sees %d participants", actor.Name, len(parts))
		}
	}
	_, err := h.svc.ListParticipants(h.ctx, testutil.UserActor("x"), org.ID)
	wantErr(t, err, wferr.ErrUnauthorized)
}

func wferrIsInvalidState(err error) bool {
	return wferr.KindOf(err) == wferr.KindInvalidState || wferr.KindOf(err).Conflict()
}
