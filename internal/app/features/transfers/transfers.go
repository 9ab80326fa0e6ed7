// internal/app/features/transfers/transfers.go
package transfers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/commonshub/internal/app/governance"
	"github.com/dalemusser/commonshub/internal/app/system/apiresp"
	"github.com/dalemusser/commonshub/internal/app/system/auth"
	"github.com/dalemusser/commonshub/internal/app/system/timeouts"
	"github.com/dalemusser/commonshub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type createRequest struct {
	OrgID    string `json:"org_id"`
	ToUserID string `json:"to_user_id"`
	Message  string `json:"message"`
}

type responseRequest struct {
	Message string `json:"message"`
}

// HandleCreate handles POST /api/transfers with
// {"org_id", "to_user_id", "message"}. Manager only.
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

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create transfer")
	defer cancel()

	t, err := h.Svc.CreateTransfer(ctx, auth.Actor(r), orgID, body.ToUserID, body.Message)
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	apiresp.Created(w, t)
}

// ServeOrgTransfers handles GET /api/transfers?org_id=... Manager only.
func (h *Handler) ServeOrgTransfers(w http.ResponseWriter, r *http.Request) {
	orgID, err := apiresp.ParseID("org_id", r.URL.Query().Get("org_id"))
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list transfers")
	defer cancel()

	list, err := h.Svc.ListTransfers(ctx, auth.Actor(r), orgID)
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, list)
}

// ServeIncoming handles GET /api/transfers/incoming?status=.
func (h *Handler) ServeIncoming(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list incoming transfers")
	defer cancel()

	list, err := h.Svc.ListIncomingTransfers(ctx, auth.Actor(r), strings.TrimSpace(r.URL.Query().Get("status")))
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, list)
}

// HandleAccept handles POST /api/transfers/{id}/accept. Target user only.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "accept transfer", timeouts.Long(), h.Svc.AcceptTransfer)
}

// HandleReject handles POST /api/transfers/{id}/reject. Target user only.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "reject transfer", timeouts.Medium(), h.Svc.RejectTransfer)
}

type decideFunc func(ctx context.Context, actor models.Actor, id primitive.ObjectID, message string) (governance.TransferResult, error)

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, op string, timeout time.Duration, decide decideFunc) {
	id, err := apiresp.PathID(r, "id")
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	var body responseRequest
	if err := apiresp.Decode(w, r, &body); err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeout, h.Log, op)
	defer cancel()

	res, err := decide(ctx, auth.Actor(r), id, body.Message)
	if err != nil {
		apiresp.Error(w, r, h.Log, err)
		return
	}
	apiresp.OK(w, res)
}
