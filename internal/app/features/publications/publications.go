// internal/app/features/publications/publications.go
package publications

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

type createRequest struct {
	OrgID string `json:"org_id"`
	governance.PublicationInput
}

type reviewRequest struct {
	Approved *bool `json:"approved"`
}

type activeRequest struct {
	Active *bool `json:"active"`
}

// ServeList handles GET /api/publications?org_id=...&review=&mine=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	qv := r.URL.Query()
	orgID, err := apiresp.ParseID("org_id", qv.Get("org_id"))
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	q := governance.PublicationQuery{Review: strings.TrimSpace(qv.Get("review"))}
	if v := qv.Get("mine"); v != "" {
		mine, err := strconv.ParseBool(v)
		if err != nil {
			apiresp.Error(w, r, h.Log, wferr.Validation("validation.mine_invalid", "mine must be true or false"))
			return
		}
		q.Mine = mine
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list publications")
	defer cancel()

	pubs, err := h.Svc.ListPublications(ctx, auth.Actor(r), orgID, q)
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, pubs)
}

// ServeGet handles GET /api/publications/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, err := apiresp.PathID(r, "id")
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get publication")
	defer cancel()

	pub, err := h.Svc.GetPublication(ctx, auth.Actor(r), id)
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, pub)
}

// HandleCreate handles POST /api/publications with
// {"org_id", "title", "body", "image_ref"}.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var body createRequest
	if err := apiresp.Decode(w, r, &body); err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	orgID, err := apiresp.ParseID("org_id", strings.TrimSpace(body.OrgID))
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create publication")
	defer cancel()

	pub, err := h.Svc.CreatePublication(ctx, auth.Actor(r), orgID, body.PublicationInput)
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	apiresp.Created(w, pub)
}

// HandleEdit handles PATCH /api/publications/{id}. Author only.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	id, err := apiresp.PathID(r, "id")
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	var in governance.PublicationInput
	if err := apiresp.Decode(w, r, &in); err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "edit publication")
	defer cancel()

	pub, err := h.Svc.EditPublication(ctx, auth.Actor(r), id, in)
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, pub)
}

// HandleReview handles POST /api/publications/{id}/review with
// {"approved": bool}.
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

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "review publication")
	defer cancel()

	pub, err := h.Svc.ReviewPublication(ctx, auth.Actor(r), id, *body.Approved)
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, pub)
}

// HandleSetActive handles POST /api/publications/{id}/active with
// {"active": bool}.
func (h *Handler) HandleSetActive(w http.ResponseWriter, r *http.Request) {
	id, err := apiresp.PathID(r, "id")
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	var body activeRequest
	if err := apiresp.Decode(w, r, &body); err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	if body.Active == nil {
		apiresp.Error(w, r, h.Log, wferr.Validation("validation.active_required", "active is required"))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "toggle publication")
	defer cancel()

	pub, err := h.Svc.SetPublicationActive(ctx, auth.Actor(r), id, *body.Active)
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, pub)
}
