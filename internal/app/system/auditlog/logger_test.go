package auditlog_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/commonshub/internal/app/store/audit"
	"github.com/dalemusser/commonshub/internal/app/system/auditlog"
	"github.com/dalemusser/commonshub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// memSink records events in memory.
type memSink struct {
	events []audit.Event
	err    error
}

func (m *memSink) Log(_ context.Context, e audit.Event) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func (m *memSink) Query(_ context.Context, f audit.QueryFilter) ([]audit.Event, error) {
	var out []audit.Event
	for _, e := range m.events {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// These should all be no-ops, not panic
	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.Membership(ctx, auditlog.Transition{EventType: audit.EventOrgCreated})
	logger.Denied(ctx, "u1", primitive.NewObjectID(), "approve_join", "not manager")
	if events, err := logger.Query(ctx, audit.QueryFilter{}); err != nil || events != nil {
		t.Errorf("nil logger Query: got %v, %v", events, err)
	}
}

func TestLogger_Modes(t *testing.T) {
	tests := []struct {
		mode     string
		wantInDB bool
	}{
		{auditlog.ModeAll, true},
		{auditlog.ModeDB, true},
		{auditlog.ModeLog, false},
		{auditlog.ModeOff, false},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			sink := &memSink{}
			logger := auditlog.New(sink, zap.NewNop(), auditlog.Config{Workflow: tt.mode, Security: tt.mode})
			ctx, cancel := testutil.TestContext()
			defer cancel()

			logger.Membership(ctx, auditlog.Transition{EventType: audit.EventJoinApproved, ActorID: "m1"})
			if got := len(sink.events) == 1; got != tt.wantInDB {
				t.Errorf("stored=%v, want %v", got, tt.wantInDB)
			}
		})
	}
}

func TestLogger_CategoriesConfiguredSeparately(t *testing.T) {
	sink := &memSink{}
	logger := auditlog.New(sink, zap.NewNop(), auditlog.Config{Workflow: auditlog.ModeOff, Security: auditlog.ModeDB})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	orgID := primitive.NewObjectID()
	logger.Content(ctx, auditlog.Transition{EventType: audit.EventPublicationApproved, OrgID: orgID})
	logger.Denied(ctx, "u2", orgID, "approve_publication", "not manager")

	if len(sink.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(sink.events))
	}
	e := sink.events[0]
	if e.Category != audit.CategorySecurity || e.Success {
		t.Errorf("unexpected event: %+v", e)
	}
	if e.Details["action"] != "approve_publication" {
		t.Errorf("action detail: got %q", e.Details["action"])
	}
	if e.OrgID == nil || *e.OrgID != orgID {
		t.Errorf("org id not recorded")
	}
}

func TestLogger_SinkErrorDoesNotPanic(t *testing.T) {
	sink := &memSink{err: errors.New("disk full")}
	logger := auditlog.New(sink, zap.NewNop(), auditlog.Config{Workflow: auditlog.ModeAll})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger.Transfer(ctx, auditlog.Transition{EventType: audit.EventTransferAccepted})
}

func TestCaptureRequest_PopulatesEvents(t *testing.T) {
	sink := &memSink{}
	logger := auditlog.New(sink, zap.NewNop(), auditlog.Config{Workflow: auditlog.ModeDB})

	h := auditlog.CaptureRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Transfer(r.Context(), auditlog.Transition{EventType: audit.EventTransferCreated, ActorID: "m1"})
	}))

	req := httptest.NewRequest("POST", "/api/organizations/x/transfers", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	req.Header.Set("User-Agent", "TestBrowser/1.0")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if len(sink.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(sink.events))
	}
	e := sink.events[0]
	if e.IP != "203.0.113.9" {
		t.Errorf("IP: got %q", e.IP)
	}
	if e.UserAgent != "TestBrowser/1.0" {
		t.Errorf("UserAgent: got %q", e.UserAgent)
	}
}

func TestLogger_Query(t *testing.T) {
	sink := &memSink{}
	logger := auditlog.New(sink, zap.NewNop(), auditlog.Config{Workflow: auditlog.ModeDB})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	logger.Membership(ctx, auditlog.Transition{EventType: audit.EventOrgCreated, OrgID: a})
	logger.Membership(ctx, auditlog.Transition{EventType: audit.EventOrgCreated, OrgID: b})

	events, err := logger.Query(ctx, audit.QueryFilter{OrgID: &a})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 event for org a, got %d", len(events))
	}
}

func TestValidMode(t *testing.T) {
	for _, m := range []string{"all", "db", "log", "off"} {
		if !auditlog.ValidMode(m) {
			t.Errorf("%q should be valid", m)
		}
	}
	if auditlog.ValidMode("sometimes") {
		t.Error("unknown mode accepted")
	}
}

func TestLogger_Session(t *testing.T) {
	sink := &memSink{}
	logger := auditlog.New(sink, zap.NewNop(), auditlog.Config{Workflow: auditlog.ModeOff, Security: auditlog.ModeDB})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger.Session(ctx, audit.EventSessionStarted, "u7")

	if len(sink.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(sink.events))
	}
	e := sink.events[0]
	if e.Category != audit.CategorySecurity || !e.Success || e.ActorID != "u7" {
		t.Errorf("unexpected event: %+v", e)
	}
}
