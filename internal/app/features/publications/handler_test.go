package publications_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/dalemusser/commonshub/internal/app/features/publications"
	"github.com/dalemusser/commonshub/internal/app/governance"
	"github.com/dalemusser/commonshub/internal/domain/models"
	"github.com/dalemusser/commonshub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type env struct {
	ctx     context.Context
	router  chi.Router
	fx      *testutil.Fixtures
	manager models.Actor
	member  models.Actor
	org     models.Organization
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := testutil.SetupBoltStore(t)
	ctx, cancel := testutil.TestContext()
	t.Cleanup(cancel)

	h := publications.NewHandler(governance.New(st, nil, nil, zap.NewNop()), zap.NewNop())
	r := chi.NewRouter()
	r.Mount("/api/publications", publications.Routes(h, testutil.SessionManager(t)))

	e := &env{
		ctx:     ctx,
		router:  r,
		fx:      testutil.NewFixtures(t, st),
		manager: testutil.UserActor("Manager"),
		member:  testutil.UserActor("Member"),
	}
	e.org = e.fx.CreateApprovedOrganization(ctx, "Club", e.manager.ID)
	e.fx.AddMember(ctx, e.org.ID, e.member.ID)
	return e
}

func (e *env) do(req *http.Request) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *env) list(t *testing.T, query string, actor *models.Actor) []governance.PublicationView {
	t.Helper()
	target := "/api/publications?org_id=" + e.org.ID.Hex() + query
	req := testutil.NewRequest(http.MethodGet, target, "")
	if actor != nil {
		req = testutil.WithUser(req, *actor)
	}
	rec := e.do(req)
	rec.AssertStatus(t, http.StatusOK)
	var got []governance.PublicationView
	rec.DecodeEnvelope(t, &got)
	return got
}

func TestCreate(t *testing.T) {
	e := newEnv(t)
	body := `{"org_id":"` + e.org.ID.Hex() + `","title":"Plant swap","body":"<p>Sunday</p><script>x()</script>"}`

	rec := e.do(testutil.NewAuthenticatedRequest(http.MethodPost, "/api/publications", body, e.member))
	rec.AssertStatus(t, http.StatusCreated)
	var got governance.PublicationView
	rec.DecodeEnvelope(t, &got)
	if got.Review != models.ReviewUnreviewed || got.Visible {
		t.Errorf("got review=%q visible=%v, want unreviewed and hidden", got.Review, got.Visible)
	}
	if got.Body != "<p>Sunday</p>" {
		t.Errorf("body = %q, want sanitized", got.Body)
	}

	e.do(testutil.NewAuthenticatedRequest(http.MethodPost, "/api/publications", body, testutil.UserActor("Eve"))).
		AssertStatus(t, http.StatusForbidden)
	e.do(testutil.NewRequest(http.MethodPost, "/api/publications", body)).
		AssertStatus(t, http.StatusUnauthorized)
}

func TestModerationLifecycle(t *testing.T) {
	e := newEnv(t)
	pub := e.fx.CreatePublication(e.ctx, e.org.ID, e.member.ID, "Notice", models.ReviewUnreviewed, true)
	base := "/api/publications/" + pub.ID.Hex()

	if got := e.list(t, "", nil); len(got) != 0 {
		t.Fatalf("guest sees %d unreviewed publications", len(got))
	}
	if got := e.list(t, "&review=unreviewed", &e.manager); len(got) != 1 {
		t.Fatalf("moderation queue has %d entries, want 1", len(got))
	}
	e.do(testutil.NewAuthenticatedRequest(http.MethodGet, "/api/publications?org_id="+e.org.ID.Hex()+"&review=unreviewed", "", e.member)).
		AssertStatus(t, http.StatusForbidden)

	e.do(testutil.NewAuthenticatedRequest(http.MethodPost, base+"/review", `{"approved":true}`, e.member)).
		AssertStatus(t, http.StatusForbidden)
	e.do(testutil.NewAuthenticatedRequest(http.MethodPost, base+"/review", `{"approved":true}`, e.manager)).
		AssertStatus(t, http.StatusOK)

	rec := e.do(testutil.NewAuthenticatedRequest(http.MethodPost, base+"/review", `{"approved":false}`, e.manager))
	rec.AssertStatus(t, http.StatusConflict)
	rec.AssertErrorCode(t, "publication.already_reviewed")

	if got := e.list(t, "", nil); len(got) != 1 || !got[0].Visible {
		t.Fatalf("guest listing after approval: %+v", got)
	}

	e.do(testutil.NewAuthenticatedRequest(http.MethodPost, base+"/active", `{"active":false}`, e.manager)).
		AssertStatus(t, http.StatusOK)
	if got := e.list(t, "", nil); len(got) != 0 {
		t.Fatalf("guest sees %d publications after deactivation", len(got))
	}
	if got := e.list(t, "", &e.manager); len(got) != 1 {
		t.Fatalf("manager sees %d publications, want inactive one listed", len(got))
	}
	e.do(testutil.NewRequest(http.MethodGet, base, "")).AssertStatus(t, http.StatusNotFound)
}

func TestSetActive_RequiresApproval(t *testing.T) {
	e := newEnv(t)
	pub := e.fx.CreatePublication(e.ctx, e.org.ID, e.member.ID, "Draft", models.ReviewUnreviewed, true)
	path := "/api/publications/" + pub.ID.Hex() + "/active"

	rec := e.do(testutil.NewAuthenticatedRequest(http.MethodPost, path, `{"active":false}`, e.manager))
	rec.AssertStatus(t, http.StatusConflict)
	rec.AssertErrorCode(t, "publication.not_approved")

	rec = e.do(testutil.NewAuthenticatedRequest(http.MethodPost, path, `{}`, e.manager))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertErrorCode(t, "validation.active_required")
}

func TestEdit_AuthorOnly(t *testing.T) {
	e := newEnv(t)
	pub := e.fx.CreatePublication(e.ctx, e.org.ID, e.member.ID, "Old", models.ReviewApproved, true)
	path := "/api/publications/" + pub.ID.Hex()

	e.do(testutil.NewAuthenticatedRequest(http.MethodPatch, path, `{"title":"Hijack"}`, e.manager)).
		AssertStatus(t, http.StatusForbidden)

	rec := e.do(testutil.NewAuthenticatedRequest(http.MethodPatch, path, `{"title":"New","body":"text"}`, e.member))
	rec.AssertStatus(t, http.StatusOK)
	var got governance.PublicationView
	rec.DecodeEnvelope(t, &got)
	if got.Title != "New" || got.Review != models.ReviewApproved {
		t.Errorf("got title=%q review=%q", got.Title, got.Review)
	}
}

func TestRejectedVisibleToAuthorOnly(t *testing.T) {
	e := newEnv(t)
	pub := e.fx.CreatePublication(e.ctx, e.org.ID, e.member.ID, "Nope", models.ReviewRejected, false)
	path := "/api/publications/" + pub.ID.Hex()

	e.do(testutil.NewAuthenticatedRequest(http.MethodGet, path, "", e.member)).AssertStatus(t, http.StatusOK)
	e.do(testutil.NewAuthenticatedRequest(http.MethodGet, path, "", e.manager)).AssertStatus(t, http.StatusNotFound)

	if got := e.list(t, "&mine=true", &e.member); len(got) != 1 {
		t.Fatalf("mine listing has %d entries, want 1", len(got))
	}
	e.do(testutil.NewRequest(http.MethodGet, "/api/publications?org_id="+e.org.ID.Hex()+"&mine=maybe", "")).
		AssertStatus(t, http.StatusBadRequest)
}
