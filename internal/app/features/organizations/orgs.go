// internal/app/features/organizations/orgs.go
package organizations

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/commonshub/internal/app/governance"
	"github.com/dalemusser/commonshub/internal/app/system/apiresp"
	"github.com/dalemusser/commonshub/internal/app/system/auth"
	"github.com/dalemusser/commonshub/internal/app/system/timeouts"
	"github.com/dalemusser/commonshub/internal/domain/wferr"
)

type reviewRequest struct {
	Approved *bool `json:"approved"`
}

// ServeList handles GET /api/organizations?status=&limit=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := governance.OrgQuery{Status: strings.TrimSpace(r.URL.Query().Get("status"))}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			apiresp.Error(w, r, h.Log, wferr.Validation("validation.limit_invalid", "invalid limit"))
			return
		}
		q.Limit = n
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list organizations")
	defer cancel()

	orgs, err := h.Svc.ListOrganizations(ctx, auth.Actor(r), q)
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, orgs)
}

// ServeGet handles GET /api/organizations/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, err := apiresp.PathID(r, "id")
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get organization")
	defer cancel()

	org, err := h.Svc.GetOrganization(ctx, auth.Actor(r), id)
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, org)
}

// HandleCreate handles POST /api/organizations.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in governance.OrgInput
	if err := apiresp.Decode(w, r, &in); err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create organization")
	defer cancel()

	org, err := h.Svc.CreateOrganization(ctx, auth.Actor(r), in)
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	apiresp.Created(w, org)
}

// HandleUpdate handles PATCH /api/organizations/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := apiresp.PathID(r, "id")
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	var in governance.OrgInput
	if err := apiresp.Decode(w, r, &in); err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "update organization")
	defer cancel()

	org, err := h.Svc.UpdateOrganization(ctx, auth.Actor(r), id, in)
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, org)
}

// HandleReview handles POST /api/organizations/{id}/review with
// {"approved": bool}. Admin only.
func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	id, err := apiresp.PathID(r, "id")
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	var body reviewRequest
	if err := apiresp.Decode(w, r, &body); err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	if body.Approved == nil {
		apiresp.Error(w, r, h.Log, wferr.Validation("validation.approved_required", "approved is required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "review organization")
	defer cancel()

	org, err := h.Svc.ReviewOrganization(ctx, auth.Actor(r), id, *body.Approved)
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, org)
}

// HandleLeave handles POST /api/organizations/{id}/leave.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	id, err := apiresp.PathID(r, "id")
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "leave organization")
	defer cancel()

	if err := h.Svc.LeaveOrganization(ctx, auth.Actor(r), id); err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	apiresp.NoContent(w)
}

// ServeParticipants handles GET /api/organizations/{id}/participants.
func (h *Handler) ServeParticipants(w http.ResponseWriter, r *http.Request) {
	id, err := apiresp.PathID(r, "id")
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list participants")
	defer cancel()

	parts, err := h.Svc.ListParticipants(ctx, auth.Actor(r), id)
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, parts)
}
