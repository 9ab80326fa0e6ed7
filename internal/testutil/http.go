package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/commonshub/internal/app/system/auth"
	"github.com/dalemusser/commonshub/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdminActor returns an actor with the admin flag.
func AdminActor() models.Actor {
	return models.Actor{ID: "admin-" + uuid.NewString()[:8], Name: "Test Admin", IsAdmin: true}
}

// UserActor returns an ordinary signed-in actor.
func UserActor(name string) models.Actor {
	return models.Actor{ID: "user-" + uuid.NewString()[:8], Name: name}
}

// WithUser adds an actor to the request context for testing authenticated handlers.
// This bypasses the session middleware and injects the user directly.
func WithUser(r *http.Request, actor models.Actor) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{
		ID:      actor.ID,
		Name:    actor.Name,
		IsAdmin: actor.IsAdmin,
	})
}

// NewRequest creates an HTTP request for testing. A non-empty body is sent
// as JSON.
func NewRequest(method, target, body string) *http.Request {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// NewAuthenticatedRequest creates an HTTP request with an actor in context.
func NewAuthenticatedRequest(method, target, body string, actor models.Actor) *http.Request {
	return WithUser(NewRequest(method, target, body), actor)
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d (body: %s)", r.Code, expected, r.Body.String())
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q: %s", expected, r.Body.String())
	}
}

// SessionManager returns a cookie session manager with bearer tokens
// enabled, for mounting feature routes in tests.
func SessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager(
		"test-session-key-must-be-32-chars-long",
		"commonshub-test",
		"",
		24*time.Hour,
		false,
		zap.NewNop(),
	)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	sm.UseTokens(auth.NewTokenVerifier("test-jwt-secret-must-be-long-enough", "commonshub-test", time.Hour))
	return sm
}

// Envelope is the decoded API response body.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Kind    string `json:"kind"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// DecodeEnvelope parses the response body and, when v is non-nil, its data.
func (r *ResponseRecorder) DecodeEnvelope(t *testing.T, v interface{}) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(r.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, r.Body.String())
	}
	if v != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, v); err != nil {
			t.Fatalf("decode data: %v (%s)", err, env.Data)
		}
	}
	return env
}

// AssertErrorCode checks the envelope's error code.
func (r *ResponseRecorder) AssertErrorCode(t *testing.T, code string) {
	t.Helper()
	env := r.DecodeEnvelope(t, nil)
	if env.Error == nil || env.Error.Code != code {
		t.Errorf("error code: got %+v, want %q", env.Error, code)
	}
}
