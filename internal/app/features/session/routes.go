// internal/app/features/session/routes.go
package session

import (
	"github.com/go-chi/chi/v5"
)

// Routes mounts session routes (typically at "/api/session"). The caller
// must be wrapped by SessionManager.LoadSessionUser upstream.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeSession)
	r.With(h.Sessions.RequireSignedIn).Post("/", h.HandleCreate)
	r.Delete("/", h.HandleDelete)
	return r
}
