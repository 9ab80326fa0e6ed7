// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/commonshub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts audit log routes (typically at "/api/audit").
//
// Admins see all events; an organization's manager sees that
// organization's events via ?org_id=.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeList)
	})

	return r
}
