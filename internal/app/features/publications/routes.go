// internal/app/features/publications/routes.go
package publications

import (
	"github.com/dalemusser/commonshub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts publication routes (typically at "/api/publications").
// Listing and reading are open to guests; what they see is filtered by
// the visibility rule.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeGet)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Post("/", h.HandleCreate)
		pr.Patch("/{id}", h.HandleEdit)
		pr.Post("/{id}/review", h.HandleReview)
		pr.Post("/{id}/active", h.HandleSetActive)
	})

	return r
}
