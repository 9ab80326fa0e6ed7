// internal/app/features/auditlog/handler.go
package auditlog

import (
	"github.com/dalemusser/commonshub/internal/app/governance"
	"go.uber.org/zap"
)

type Handler struct {
	Svc *governance.Service
	Log *zap.Logger
}

// NewHandler constructs an Audit Log feature handler bound to the
// governance service and logger.
func NewHandler(svc *governance.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Svc: svc,
		Log: logger,
	}
}
