// internal/app/features/publications/handler.go
package publications

import (
	"github.com/dalemusser/commonshub/internal/app/governance"
	"go.uber.org/zap"
)

// Handler serves the publication endpoints: authoring, moderation and the
// active toggle.
type Handler struct {
	Svc *governance.Service
	Log *zap.Logger
}

// NewHandler constructs a publications Handler.
func NewHandler(svc *governance.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Svc: svc,
		Log: logger,
	}
}
