package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/commonshub/internal/app/store/audit"
	"github.com/dalemusser/commonshub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Log(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	orgID := primitive.NewObjectID()
	err := store.Log(ctx, audit.Event{
		OrgID:     &orgID,
		Category:  audit.CategoryMembership,
		EventType: audit.EventJoinApproved,
		ActorID:   "manager-1",
		SubjectID: "member-1",
		IP:        "192.168.1.1",
		Success:   true,
	})
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.Query(ctx, audit.QueryFilter{OrgID: &orgID})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID.IsZero() {
		t.Error("expected ID to be auto-generated")
	}
	if events[0].Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestStore_Query_Filters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	orgID := primitive.NewObjectID()
	for _, et := range []string{audit.EventTransferCreated, audit.EventTransferAccepted, audit.EventJoinRequested} {
		cat := audit.CategoryTransfer
		if et == audit.EventJoinRequested {
			cat = audit.CategoryMembership
		}
		if err := store.Log(ctx, audit.Event{OrgID: &orgID, Category: cat, EventType: et, ActorID: "u1", Success: true}); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	n, err := store.CountByFilter(ctx, audit.QueryFilter{OrgID: &orgID, Category: audit.CategoryTransfer})
	if err != nil {
		t.Fatalf("CountByFilter failed: %v", err)
	}
	if n != 2 {
		t.Errorf("transfer events: got %d, want 2", n)
	}

	events, err := store.Query(ctx, audit.QueryFilter{EventType: audit.EventJoinRequested, OrgID: &orgID})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 || events[0].EventType != audit.EventJoinRequested {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestQueryFilter_Matches(t *testing.T) {
	orgA := primitive.NewObjectID()
	orgB := primitive.NewObjectID()
	now := time.Now().UTC()
	before := now.Add(-time.Hour)
	ev := audit.Event{OrgID: &orgA, Category: audit.CategoryContent, EventType: audit.EventPublicationApproved, ActorID: "m1", Timestamp: now}

	tests := []struct {
		name   string
		filter audit.QueryFilter
		want   bool
	}{
		{"empty filter", audit.QueryFilter{}, true},
		{"same org", audit.QueryFilter{OrgID: &orgA}, true},
		{"other org", audit.QueryFilter{OrgID: &orgB}, false},
		{"actor", audit.QueryFilter{ActorID: "m1"}, true},
		{"other actor", audit.QueryFilter{ActorID: "m2"}, false},
		{"category", audit.QueryFilter{Category: audit.CategoryMembership}, false},
		{"event type", audit.QueryFilter{EventType: audit.EventPublicationApproved}, true},
		{"start before", audit.QueryFilter{StartTime: &before}, true},
		{"end before", audit.QueryFilter{EndTime: &before}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(ev); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}
