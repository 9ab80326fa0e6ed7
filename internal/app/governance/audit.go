// internal/app/governance/audit.go
package governance

import (
	"context"

	"github.com/dalemusser/commonshub/internal/app/policy/orgpolicy"
	"github.com/dalemusser/commonshub/internal/app/store"
	"github.com/dalemusser/commonshub/internal/app/store/audit"
	"github.com/dalemusser/commonshub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuditTrail returns recorded transitions. Without an organization only
// admins may read; with one, its manager may too.
func (s *Service) AuditTrail(ctx context.Context, actor models.Actor, orgID primitive.ObjectID, f audit.QueryFilter) ([]audit.Event, error) {
	if orgID.IsZero() {
		if !actor.Authenticated() || !actor.IsAdmin {
			return nil, s.finish(ctx, deny(actor, orgID, orgpolicy.ViewAudit))
		}
	} else {
		err := s.view(ctx, func(ctx context.Context, tx store.Tx) error {
			_, err := guard(ctx, tx, actor, orgID, orgpolicy.ViewAudit)
			return err
		})
		if err != nil {
			return nil, err
		}
		f.OrgID = &orgID
	}
	if f.Limit <= 0 || f.Limit > audit.DefaultLimit {
		f.Limit = audit.DefaultLimit
	}
	out, err := s.audit.Query(ctx, f)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []audit.Event{}
	}
	return out, nil
}
