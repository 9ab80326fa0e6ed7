package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/commonshub/internal/app/system/auth"
)

func fixedClock(l *Limiter, t *time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = func() time.Time { return *t }
}

func TestLimiter_WindowResets(t *testing.T) {
	l := New(2, time.Minute)
	defer l.Stop()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	fixedClock(l, &now)

	if !l.Allow("k") || !l.Allow("k") {
		t.Fatal("first two requests should pass")
	}
	if l.Allow("k") {
		t.Fatal("third request in the window should be limited")
	}
	if got := l.Remaining("k"); got != 0 {
		t.Errorf("Remaining = %d, want 0", got)
	}
	if !l.Allow("other") {
		t.Error("keys are limited independently")
	}

	now = now.Add(time.Minute + time.Second)
	if !l.Allow("k") {
		t.Error("request after the window should pass")
	}
	if got := l.Remaining("k"); got != 1 {
		t.Errorf("Remaining = %d, want 1", got)
	}

	l.Reset("k")
	if got := l.Remaining("k"); got != 2 {
		t.Errorf("Remaining after Reset = %d, want 2", got)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded for", map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, "1.2.3.4:5", "10.0.0.1"},
		{"real ip", map[string]string{"X-Real-IP": " 10.0.0.9 "}, "1.2.3.4:5", "10.0.0.9"},
		{"remote addr", nil, "1.2.3.4:5678", "1.2.3.4"},
		{"remote addr without port", nil, "1.2.3.4", "1.2.3.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrites(t *testing.T) {
	l := New(1, time.Minute)
	defer l.Stop()
	h := Writes(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(method string, user *auth.SessionUser) int {
		r := httptest.NewRequest(method, "/", nil)
		if user != nil {
			r = auth.WithTestUser(r, user)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code
	}

	ann := &auth.SessionUser{ID: "ann"}
	if got := do(http.MethodPost, ann); got != http.StatusNoContent {
		t.Fatalf("first write = %d", got)
	}
	if got := do(http.MethodPost, ann); got != http.StatusTooManyRequests {
		t.Fatalf("second write = %d, want 429", got)
	}
	if got := do(http.MethodGet, ann); got != http.StatusNoContent {
		t.Errorf("reads are not limited, got %d", got)
	}
	if got := do(http.MethodPost, &auth.SessionUser{ID: "bob"}); got != http.StatusNoContent {
		t.Errorf("other users have their own budget, got %d", got)
	}
	if got := do(http.MethodDelete, nil); got != http.StatusNoContent {
		t.Errorf("anonymous caller keyed by IP, got %d", got)
	}
}

func TestLimiter_StopIsIdempotent(t *testing.T) {
	l := New(1, time.Minute)
	if l.Stopped() {
		t.Fatal("new limiter reports stopped")
	}
	l.Stop()
	l.Stop()
	if !l.Stopped() {
		t.Fatal("limiter not stopped")
	}
	if !l.Allow("k") {
		t.Error("stopped limiter should still count requests")
	}
}
