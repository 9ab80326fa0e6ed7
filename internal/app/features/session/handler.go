// internal/app/features/session/handler.go
package session

import (
	"net/http"

	"github.com/dalemusser/commonshub/internal/app/store/audit"
	"github.com/dalemusser/commonshub/internal/app/system/apiresp"
	"github.com/dalemusser/commonshub/internal/app/system/auditlog"
	"github.com/dalemusser/commonshub/internal/app/system/auth"
	"go.uber.org/zap"
)

// Handler exchanges gateway identities for cookie sessions.
type Handler struct {
	Sessions *auth.SessionManager
	Audit    *auditlog.Logger
	Log      *zap.Logger
}

// NewHandler creates a session handler.
func NewHandler(sm *auth.SessionManager, trail *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Sessions: sm,
		Audit:    trail,
		Log:      logger,
	}
}

// userView is the JSON shape of the caller's identity.
type userView struct {
	Authenticated bool   `json:"authenticated"`
	ID            string `json:"id,omitempty"`
	Name          string `json:"name,omitempty"`
	IsAdmin       bool   `json:"is_admin"`
}

func viewOf(r *http.Request) userView {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return userView{}
	}
	return userView{Authenticated: true, ID: u.ID, Name: u.Name, IsAdmin: u.IsAdmin}
}

// ServeSession handles GET /api/session. Guests get
// {"authenticated": false}.
func (h *Handler) ServeSession(w http.ResponseWriter, r *http.Request) {
	apiresp.OK(w, viewOf(r))
}

// HandleCreate handles POST /api/session. The caller must already be
// identified, normally by a bearer token; the identity is copied into a
// cookie session so browser clients can drop the token.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	if err := h.Sessions.Login(w, r, u); err != nil {
		h.Log.Error("session save failed", zap.Error(err), zap.String("user_id", u.ID))
		apiresp.Error(w, r, h.Log, err)
		return
	}
	h.Audit.Session(r.Context(), audit.EventSessionStarted, u.ID)
	apiresp.OK(w, viewOf(r))
}

// HandleDelete handles DELETE /api/session.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if err := h.Sessions.Logout(w, r); err != nil {
		h.Log.Error("session clear failed", zap.Error(err))
		apiresp.Error(w, r, h.Log, err)
		return
	}
	if ok {
		h.Audit.Session(r.Context(), audit.EventSessionEnded, u.ID)
	}
	apiresp.NoContent(w)
}
