// internal/app/features/organizations/handler.go
package organizations

import (
	"github.com/dalemusser/commonshub/internal/app/governance"
	"go.uber.org/zap"
)

// Handler is the feature-level entry point for organizations, membership
// and join requests.
type Handler struct {
	Svc *governance.Service
	Log *zap.Logger
}

// NewHandler constructs a new Organizations handler bound to the governance
// service and logger.
func NewHandler(svc *governance.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Svc: svc,
		Log: logger,
	}
}
