package governance_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dalemusser/commonshub/internal/app/governance"
	"github.com/dalemusser/commonshub/internal/app/policy/orgpolicy"
	"github.com/dalemusser/commonshub/internal/app/store/audit"
	"github.com/dalemusser/commonshub/internal/app/system/auditlog"
	"github.com/dalemusser/commonshub/internal/app/system/events"
	"github.com/dalemusser/commonshub/internal/domain/models"
	"github.com/dalemusser/commonshub/internal/domain/wferr"
	"github.com/dalemusser/commonshub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type harness struct {
	ctx   context.Context
	svc   *governance.Service
	fx    *testutil.Fixtures
	rec   *events.Recorder
	trail *auditlog.Logger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	st := testutil.SetupBoltStore(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)

	rec := &events.Recorder{}
	trail := auditlog.New(st.Audit(), zap.NewNop(), auditlog.Config{
		Workflow: auditlog.ModeDB,
		Security: auditlog.ModeDB,
	})
	return &harness{
		ctx:   ctx,
		svc:   governance.New(st, trail, rec, zap.NewNop()),
		fx:    testutil.NewFixtures(t, st),
		rec:   rec,
		trail: trail,
	}
}

func wantErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}

func mustNil(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateOrganization_CreatorIsManager(t *testing.T) {
	h := newHarness(t)
	u1 := testutil.UserActor("Founder")

	org, err := h.svc.CreateOrganization(h.ctx, u1, governance.OrgInput{
		Name:  "  Elm Street <b>Gardeners</b> ",
		Scope: "Blocks 100-400",
	})
	mustNil(t, err)

	if org.Name != "Elm Street Gardeners" {
		t.Errorf("Name = %q, want sanitized and trimmed", org.Name)
	}
	if org.Status != models.OrgPending || org.Approved {
		t.Errorf("new org should be pending, got status=%q approved=%v", org.Status, org.Approved)
	}
	if org.Role != orgpolicy.RoleCreator || org.ManagerUserID != u1.ID {
		t.Errorf("role=%q manager=%q", org.Role, org.ManagerUserID)
	}
	if m := h.fx.Managers(h.ctx, org.ID); len(m) != 1 || m[0].UserID != u1.ID {
		t.Errorf("expected creator as sole manager, got %+v", m)
	}
	if got := h.rec.Types(); len(got) != 1 || got[0] != events.OrgCreated {
		t.Errorf("published events = %v", got)
	}
}

func TestCreateOrganization_Invalid(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name   string
		actor  models.Actor
		in     governance.OrgInput
		target error
	}{
		{"anonymous", models.Actor{}, governance.OrgInput{Name: "X"}, wferr.ErrUnauthorized},
		{"empty name", testutil.UserActor("a"), governance.OrgInput{Name: "  "}, wferr.ErrValidation},
		{"markup only", testutil.UserActor("a"), governance.OrgInput{Name: "<script>x</script>"}, wferr.ErrValidation},
		{"name too long", testutil.UserActor("a"), governance.OrgInput{Name: strings.Repeat("n", governance.MaxNameLen+1)}, wferr.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.svc.CreateOrganization(h.ctx, tt.actor, tt.in)
			wantErr(t, err, tt.target)
		})
	}
	if n := len(h.rec.Events()); n != 0 {
		t.Errorf("failed creates must not publish, got %d events", n)
	}
}

func TestGetOrganization_Visibility(t *testing.T) {
	h := newHarness(t)
	u1 := testutil.UserActor("Founder")
	stranger := testutil.UserActor("Stranger")
	pending := h.fx.CreateOrganization(h.ctx, "Pending", models.OrgPending, u1.ID)
	approved := h.fx.CreateApprovedOrganization(h.ctx, "Approved", u1.ID)

	_, err := h.svc.GetOrganization(h.ctx, stranger, pending.ID)
	wantErr(t, err, wferr.ErrNotFound)

	_, err = h.svc.GetOrganization(h.ctx, models.Actor{}, pending.ID)
	wantErr(t, err, wferr.ErrNotFound)

	got, err := h.svc.GetOrganization(h.ctx, u1, pending.ID)
	mustNil(t, err)
	if got.Role != orgpolicy.RoleCreator {
		t.Errorf("creator role on pending org = %q", got.Role)
	}

	got, err = h.svc.GetOrganization(h.ctx, models.Actor{}, approved.ID)
	mustNil(t, err)
	if got.Role != orgpolicy.RoleGuest || got.ManagerUserID != u1.ID {
		t.Errorf("guest view = role %q manager %q", got.Role, got.ManagerUserID)
	}

	_, err = h.svc.GetOrganization(h.ctx, u1, primitive.NewObjectID())
	wantErr(t, err, wferr.ErrNotFound)
}

func TestReviewOrganization_NonAdminUnauthorized(t *testing.T) {
	h := newHarness(t)
	u1 := testutil.UserActor("Founder")
	org := h.fx.CreateOrganization(h.ctx, "Pending", models.OrgPending, u1.ID)

	for _, actor := range []models.Actor{u1, testutil.UserActor("Other"), {}} {
		_, err := h.svc.ReviewOrganization(h.ctx, actor, org.ID, true)
		wantErr(t, err, wferr.ErrUnauthorized)
	}

	got, err := h.svc.GetOrganization(h.ctx, u1, org.ID)
	mustNil(t, err)
	if got.Approved || got.Status != models.OrgPending {
		t.Errorf("org changed by non-admin: %+v", got.Organization)
	}

	denied, err := h.trail.Query(h.ctx, audit.QueryFilter{EventType: audit.EventActionDenied})
	mustNil(t, err)
	if len(denied) != 3 {
		t.Errorf("expected 3 denial audit events, got %d", len(denied))
	}
}

func TestReviewOrganization_Once(t *testing.T) {
	h := newHarness(t)
	admin := testutil.AdminActor()
	org := h.fx.CreateOrganization(h.ctx, "Pending", models.OrgPending, "u1")

	got, err := h.svc.ReviewOrganization(h.ctx, admin, org.ID, true)
	mustNil(t, err)
	if !got.Approved || got.Status != models.OrgApproved || got.ReviewedBy != admin.ID {
		t.Errorf("unexpected review result: %+v", got.Organization)
	}

	_, err = h.svc.ReviewOrganization(h.ctx, admin, org.ID, false)
	wantErr(t, err, wferr.ErrInvalidState)

	_, err = h.svc.ReviewOrganization(h.ctx, admin, primitive.NewObjectID(), true)
	wantErr(t, err, wferr.ErrNotFound)
}

func TestReviewOrganization_RejectedVisibleToCreatorOnly(t *testing.T) {
	h := newHarness(t)
	admin := testutil.AdminActor()
	org := h.fx.CreateOrganization(h.ctx, "Doomed", models.OrgPending, "u1")

	_, err := h.svc.ReviewOrganization(h.ctx, admin, org.ID, false)
	mustNil(t, err)

	_, err = h.svc.GetOrganization(h.ctx, models.Actor{ID: "u1"}, org.ID)
	mustNil(t, err)
	_, err = h.svc.GetOrganization(h.ctx, testutil.UserActor("x"), org.ID)
	wantErr(t, err, wferr.ErrNotFound)
}

func TestUpdateOrganization(t *testing.T) {
	h := newHarness(t)
	mgr := testutil.UserActor("Manager")
	member := testutil.UserActor("Member")
	org := h.fx.CreateApprovedOrganization(h.ctx, "Old Name", mgr.ID)
	h.fx.AddMember(h.ctx, org.ID, member.ID)

	got, err := h.svc.UpdateOrganization(h.ctx, mgr, org.ID, governance.OrgInput{Name: "New Name", Scope: "Wider"})
	mustNil(t, err)
	if got.Name != "New Name" || got.Scope != "Wider" || !got.Approved {
		t.Errorf("unexpected update: %+v", got.Organization)
	}

	_, err = h.svc.UpdateOrganization(h.ctx, member, org.ID, governance.OrgInput{Name: "Hijack"})
	wantErr(t, err, wferr.ErrUnauthorized)

	_, err = h.svc.UpdateOrganization(h.ctx, mgr, org.ID, governance.OrgInput{Name: ""})
	wantErr(t, err, wferr.ErrValidation)
}

func TestListOrganizations(t *testing.T) {
	h := newHarness(t)
	admin := testutil.AdminActor()
	u1 := testutil.UserActor("u1")
	u2 := testutil.UserActor("u2")

	h.fx.CreateApprovedOrganization(h.ctx, "Bravo", u2.ID)
	h.fx.CreateApprovedOrganization(h.ctx, "alpha", u2.ID)
	h.fx.CreateOrganization(h.ctx, "Mine Pending", models.OrgPending, u1.ID)
	h.fx.CreateOrganization(h.ctx, "Theirs Pending", models.OrgPending, u2.ID)
	h.fx.CreateOrganization(h.ctx, "Mine Rejected", models.OrgRejected, u1.ID)

	names := func(vs []governance.OrgView) []string {
		out := make([]string, len(vs))
		for i, v := range vs {
			out[i] = v.Name
		}
		return out
	}
	equal := func(a, b []string) bool {
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	}

	tests := []struct {
		name  string
		actor models.Actor
		q     governance.OrgQuery
		want  []string
	}{
		{"guest sees approved", models.Actor{}, governance.OrgQuery{}, []string{"alpha", "Bravo"}},
		{"creator sees own too", u1, governance.OrgQuery{}, []string{"alpha", "Bravo", "Mine Pending", "Mine Rejected"}},
		{"admin pending queue", admin, governance.OrgQuery{Status: models.OrgPending}, []string{"Mine Pending", "Theirs Pending"}},
		{"user pending is own only", u1, governance.OrgQuery{Status: models.OrgPending}, []string{"Mine Pending"}},
		{"approved with limit", u1, governance.OrgQuery{Status: models.OrgApproved, Limit: 1}, []string{"alpha"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.svc.ListOrganizations(h.ctx, tt.actor, tt.q)
			mustNil(t, err)
			if !equal(names(got), tt.want) {
				t.Errorf("got %v, want %v", names(got), tt.want)
			}
		})
	}

	_, err := h.svc.ListOrganizations(h.ctx, u1, governance.OrgQuery{Status: "archived"})
	wantErr(t, err, wferr.ErrValidation)
	_, err = h.svc.ListOrganizations(h.ctx, models.Actor{}, governance.OrgQuery{Status: models.OrgPending})
	wantErr(t, err, wferr.ErrUnauthorized)
}

func TestAuditTrail(t *testing.T) {
	h := newHarness(t)
	admin := testutil.AdminActor()
	u1 := testutil.UserActor("Founder")
	member := testutil.UserActor("Member")

	org, err := h.svc.CreateOrganization(h.ctx, u1, governance.OrgInput{Name: "Audited"})
	mustNil(t, err)
	_, err = h.svc.ReviewOrganization(h.ctx, admin, org.ID, true)
	mustNil(t, err)
	h.fx.AddMember(h.ctx, org.ID, member.ID)

	all, err := h.svc.AuditTrail(h.ctx, admin, primitive.NilObjectID, audit.QueryFilter{})
	mustNil(t, err)
	if len(all) != 2 || all[0].EventType != audit.EventOrgApproved || all[1].EventType != audit.EventOrgCreated {
		t.Errorf("unexpected trail: %+v", all)
	}

	scoped, err := h.svc.AuditTrail(h.ctx, u1, org.ID, audit.QueryFilter{Category: audit.CategoryMembership})
	mustNil(t, err)
	if len(scoped) != 2 {
		t.Errorf("manager trail: got %d events", len(scoped))
	}

	_, err = h.svc.AuditTrail(h.ctx, member, org.ID, audit.QueryFilter{})
	wantErr(t, err, wferr.ErrUnauthorized)
	_, err = h.svc.AuditTrail(h.ctx, u1, primitive.NilObjectID, audit.QueryFilter{})
	wantErr(t, err, wferr.ErrUnauthorized)
}
