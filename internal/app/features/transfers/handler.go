// internal/app/features/transfers/handler.go
package transfers

import (
	"github.com/dalemusser/commonshub/internal/app/governance"
	"go.uber.org/zap"
)

// Handler serves manager-role transfer endpoints.
type Handler struct {
	Svc *governance.Service
	Log *zap.Logger
}

// NewHandler constructs a transfers Handler.
func NewHandler(svc *governance.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Svc: svc,
		Log: logger,
	}
}
