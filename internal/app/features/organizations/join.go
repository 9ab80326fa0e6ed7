// internal/app/features/organizations/join.go
package organizations

import (
	"net/http"
	"strings"

	"github.com/dalemusser/commonshub/internal/app/system/apiresp"
	"github.com/dalemusser/commonshub/internal/app/system/auth"
	"github.com/dalemusser/commonshub/internal/app/system/timeouts"
)

type joinRequest struct {
	OrgID   string `json:"org_id"`
	Message string `json:"message"`
}

type decisionRequest struct {
	Message string `json:"message"`
}

// HandleRequestJoin handles POST /api/join-requests with
// {"org_id": "...", "message": "..."}.
func (h *Handler) HandleRequestJoin(w http.ResponseWriter, r *http.Request) {
	var body joinRequest
	if err := apiresp.Decode(w, r, &body); err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	orgID, err := apiresp.ParseID("org_id", strings.TrimSpace(body.OrgID))
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "request join")
	defer cancel()

	req, err := h.Svc.RequestJoin(ctx, auth.Actor(r), orgID, body.Message)
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	apiresp.Created(w, req)
}

// HandleCancelJoin handles DELETE /api/join-requests?org_id=...; it
// withdraws the caller's pending request.
func (h *Handler) HandleCancelJoin(w http.ResponseWriter, r *http.Request) {
	orgID, err := apiresp.ParseID("org_id", r.URL.Query().Get("org_id"))
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "cancel join")
	defer cancel()

	req, err := h.Svc.CancelJoin(ctx, auth.Actor(r), orgID)
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, req)
}

// ServeJoinRequests handles GET /api/join-requests?org_id=...&status=.
// Manager only.
func (h *Handler) ServeJoinRequests(w http.ResponseWriter, r *http.Request) {
	orgID, err := apiresp.ParseID("org_id", r.URL.Query().Get("org_id"))
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list join requests")
	defer cancel()

	reqs, err := h.Svc.ListJoinRequests(ctx, auth.Actor(r), orgID, strings.TrimSpace(r.URL.Query().Get("status")))
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, reqs)
}

// HandleApproveJoin handles POST /api/join-requests/{id}/approve.
func (h *Handler) HandleApproveJoin(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

// HandleRejectJoin handles POST /api/join-requests/{id}/reject.
func (h *Handler) HandleRejectJoin(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	id, err := apiresp.PathID(r, "id")
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	var body decisionRequest
	if err := apiresp.Decode(w, r, &body); err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}

	// Approval writes the participant row as well as the request.
	timeout := timeouts.Medium()
	if approve {
		timeout = timeouts.Long()
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeout, h.Log, "decide join")
	defer cancel()

	actor := auth.Actor(r)
	if approve {
		dec, err := h.Svc.ApproveJoin(ctx, actor, id, body.Message)
		if err != nil {
			apiresp.Error(w, r, h.Log, err)
			return
		}
		apiresp.OK(w, dec)
		return
	}
	dec, err := h.Svc.RejectJoin(ctx, actor, id, body.Message)
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, dec)
}
