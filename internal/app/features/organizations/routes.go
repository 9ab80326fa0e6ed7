// internal/app/features/organizations/routes.go
package organizations

import (
	"github.com/dalemusser/commonshub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts organization routes (typically at "/api/organizations").
// Reads are open to guests; visibility is decided per organization.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeGet)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Post("/", h.HandleCreate)
		pr.Patch("/{id}", h.HandleUpdate)
		pr.Post("/{id}/review", h.HandleReview)
		pr.Post("/{id}/leave", h.HandleLeave)
		pr.Get("/{id}/participants", h.ServeParticipants)
	})

	return r
}

// JoinRoutes mounts join-request routes (typically at "/api/join-requests").
func JoinRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeJoinRequests)
		pr.Post("/", h.HandleRequestJoin)
		pr.Delete("/", h.HandleCancelJoin)
		pr.Post("/{id}/approve", h.HandleApproveJoin)
		pr.Post("/{id}/reject", h.HandleRejectJoin)
	})

	return r
}
