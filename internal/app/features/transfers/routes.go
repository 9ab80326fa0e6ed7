// internal/app/features/transfers/routes.go
package transfers

import (
	"github.com/dalemusser/commonshub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts transfer routes (typically at "/api/transfers"). Every
// route requires a signed-in user.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeOrgTransfers)
	r.Post("/", h.HandleCreate)
	r.Get("/incoming", h.ServeIncoming)
	r.Post("/{id}/accept", h.HandleAccept)
	r.Post("/{id}/reject", h.HandleReject)

	return r
}
