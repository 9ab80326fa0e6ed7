package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/commonshub/internal/app/features/health"
	"github.com/dalemusser/commonshub/internal/testutil"
	"go.uber.org/zap"
)

type healthBody struct {
	Status   string `json:"status"`
	Backend  string `json:"backend"`
	Database string `json:"database"`
	Message  string `json:"message"`
	Error    string `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) healthBody {
	t.Helper()
	var got healthBody
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return got
}

type downStore struct{}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestServe_BoltConnected(t *testing.T) {
	st := testutil.SetupBoltStore(t)
	handler := health.NewHandler(st, "bolt", zap.NewNop())

	rec := httptest.NewRecorder()
	handler.Serve(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", ct, "application/json")
	}
	got := decode(t, rec)
	if got.Status != "ok" || got.Database != "connected" || got.Backend != "bolt" {
		t.Errorf("unexpected body: %+v", got)
	}
}

func TestServe_StoreDown(t *testing.T) {
	handler := health.NewHandler(downStore{}, "mongo", zap.NewNop())

	rec := httptest.NewRecorder()
	handler.Serve(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
	got := decode(t, rec)
	if got.Status != "error" || got.Database != "disconnected" {
		t.Errorf("unexpected body: %+v", got)
	}
	if got.Error != "connection refused" {
		t.Errorf("error: got %q", got.Error)
	}
}

func TestRoutes_MountsRoot(t *testing.T) {
	st := testutil.SetupBoltStore(t)
	r := health.Routes(health.NewHandler(st, "bolt", zap.NewNop()))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}
