// internal/app/governance/transfer.go
package governance

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/commonshub/internal/app/policy/orgpolicy"
	"github.com/dalemusser/commonshub/internal/app/store"
	"github.com/dalemusser/commonshub/internal/app/store/audit"
	"github.com/dalemusser/commonshub/internal/app/system/events"
	"github.com/dalemusser/commonshub/internal/domain/models"
	"github.com/dalemusser/commonshub/internal/domain/wferr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransferResult is a decided transfer plus the participant rows it changed.
type TransferResult struct {
	Transfer        models.TransferRequest `json:"transfer"`
	PreviousManager *models.Participant    `json:"previous_manager,omitempty"`
	Manager         *models.Participant    `json:"manager,omitempty"`
}

// CreateTransfer offers the manager role to another user. Manager only; at
// most one transfer per organization may be pending.
func (s *Service) CreateTransfer(ctx context.Context, actor models.Actor, orgID primitive.ObjectID, toUserID, message string) (models.TransferRequest, error) {
	if err := signedIn(actor, orgpolicy.CreateTransfer); err != nil {
		return models.TransferRequest{}, s.finish(ctx, err)
	}
	toUserID = strings.TrimSpace(toUserID)
	if toUserID == "" {
		return models.TransferRequest{}, wferr.Validation("validation.to_user_required", "target user is required")
	}
	message, err := cleanMessage(message)
	if err != nil {
		return models.TransferRequest{}, err
	}

	var out models.TransferRequest
	err = s.update(ctx, func(ctx context.Context, tx store.Tx, fx *effects) error {
		sc, err := guard(ctx, tx, actor, orgID, orgpolicy.CreateTransfer)
		if err != nil {
			return err
		}
		if err := requireApproved(sc.org); err != nil {
			return err
		}
		if toUserID == actor.ID {
			return wferr.Validation("validation.transfer_to_self", "cannot transfer to yourself")
		}
		switch _, err := tx.Transfers().Pending(ctx, orgID); {
		case err == nil:
			return wferr.ErrTransferAlreadyPending
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
		t := models.TransferRequest{
			ID:              primitive.NewObjectID(),
			OrgID:           orgID,
			FromUserID:      actor.ID,
			ToUserID:        toUserID,
			Status:          models.TransferPending,
			TransferMessage: message,
			CreatedAt:       s.now(),
		}
		if err := tx.Transfers().Insert(ctx, t); err != nil {
			return either(err, store.ErrDuplicate, wferr.ErrTransferAlreadyPending)
		}
		out = t
		fx.record(audit.CategoryTransfer, audit.EventTransferCreated, events.TransferCreated,
			actor.ID, orgID, toUserID, t.ID.Hex(), nil)
		return nil
	})
	return out, err
}

// loadTransfer reads a pending transfer addressed to the caller.
func loadTransfer(ctx context.Context, tx store.Tx, actor models.Actor, id primitive.ObjectID) (models.TransferRequest, error) {
	t, err := tx.Transfers().Get(ctx, id)
	if err != nil {
		return t, either(err, store.ErrNotFound, errTransferNotFound)
	}
	if !orgpolicy.CanRespondTransfer(actor, t) {
		return t, deny(actor, t.OrgID, orgpolicy.RespondTransfer)
	}
	if t.Status != models.TransferPending {
		return t, errTransferNotPending
	}
	return t, nil
}

// AcceptTransfer makes the caller the manager. The previous manager stays a
// participant. Fails with InvalidState if the sender is no longer the
// manager.
func (s *Service) AcceptTransfer(ctx context.Context, actor models.Actor, transferID primitive.ObjectID, message string) (TransferResult, error) {
	message, err := cleanMessage(message)
	if err != nil {
		return TransferResult{}, err
	}
	var out TransferResult
	err = s.update(ctx, func(ctx context.Context, tx store.Tx, fx *effects) error {
		t, err := loadTransfer(ctx, tx, actor, transferID)
		if err != nil {
			return err
		}
		parts := tx.Participants()
		current, err := parts.Manager(ctx, t.OrgID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			return errNoManager
		case err != nil:
			return err
		}
		if current.UserID != t.FromUserID {
			return errManagerChanged
		}

		now := s.now()
		t, err = tx.Transfers().Transition(ctx, transferID, models.TransferPending, models.TransferAccepted, message, now)
		if err != nil {
			return either(err, store.ErrConflict, errTransferNotPending)
		}

		// Demote first so the one-manager rule holds at every write.
		if err := parts.SetManaged(ctx, t.OrgID, t.FromUserID, false, now); err != nil {
			return either(err, store.ErrConflict, errManagerChanged)
		}
		prev, err := parts.Get(ctx, t.OrgID, t.FromUserID)
		if err != nil {
			return err
		}

		next, err := parts.Get(ctx, t.OrgID, t.ToUserID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			next = models.Participant{
				ID:         primitive.NewObjectID(),
				OrgID:      t.OrgID,
				UserID:     t.ToUserID,
				OrgManaged: true,
				JoinedAt:   now,
				UpdatedAt:  now,
			}
			if err := parts.Insert(ctx, next); err != nil {
				return err
			}
			// A pending join request from the new manager is settled by the
			// transfer; left open it could never be approved.
			req, err := tx.JoinRequests().Pending(ctx, t.OrgID, t.ToUserID)
			switch {
			case err == nil:
				req, err = tx.JoinRequests().Transition(ctx, req.ID, models.RequestPending, models.RequestCancelled, "", actor.ID, now)
				if err != nil {
					return either(err, store.ErrConflict, errRequestNotPending)
				}
				fx.record(audit.CategoryMembership, audit.EventJoinCancelled, events.JoinCancelled,
					actor.ID, t.OrgID, t.ToUserID, req.ID.Hex(), map[string]string{"reason": "transfer_accepted"})
			case !errors.Is(err, store.ErrNotFound):
				return err
			}
		case err != nil:
			return err
		default:
			if err := parts.SetManaged(ctx, t.OrgID, t.ToUserID, true, now); err != nil {
				return err
			}
			next.OrgManaged = true
			next.UpdatedAt = now
		}

		out = TransferResult{Transfer: t, PreviousManager: &prev, Manager: &next}
		fx.record(audit.CategoryTransfer, audit.EventTransferAccepted, events.TransferDecided,
			actor.ID, t.OrgID, t.FromUserID, t.ID.Hex(),
			map[string]string{"status": models.TransferAccepted, "from": t.FromUserID, "to": t.ToUserID})
		return nil
	})
	return out, err
}

// RejectTransfer declines a transfer. Nothing but the request changes.
func (s *Service) RejectTransfer(ctx context.Context, actor models.Actor, transferID primitive.ObjectID, message string) (TransferResult, error) {
	message, err := cleanMessage(message)
	if err != nil {
		return TransferResult{}, err
	}
	var out TransferResult
	err = s.update(ctx, func(ctx context.Context, tx store.Tx, fx *effects) error {
		if _, err := loadTransfer(ctx, tx, actor, transferID); err != nil {
			return err
		}
		t, err := tx.Transfers().Transition(ctx, transferID, models.TransferPending, models.TransferRejected, message, s.now())
		if err != nil {
			return either(err, store.ErrConflict, errTransferNotPending)
		}
		out = TransferResult{Transfer: t}
		fx.record(audit.CategoryTransfer, audit.EventTransferRejected, events.TransferDecided,
			actor.ID, t.OrgID, t.FromUserID, t.ID.Hex(), map[string]string{"status": models.TransferRejected})
		return nil
	})
	return out, err
}

// ListTransfers returns every transfer of an organization, newest first.
// Manager only.
func (s *Service) ListTransfers(ctx context.Context, actor models.Actor, orgID primitive.ObjectID) ([]models.TransferRequest, error) {
	var out []models.TransferRequest
	err := s.view(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := guard(ctx, tx, actor, orgID, orgpolicy.ListOrgTransfers); err != nil {
			return err
		}
		var err error
		out, err = tx.Transfers().ListByOrg(ctx, orgID)
		return err
	})
	return out, err
}

// ListIncomingTransfers returns transfers addressed to the caller in status
// (default pending).
func (s *Service) ListIncomingTransfers(ctx context.Context, actor models.Actor, status string) ([]models.TransferRequest, error) {
	if err := signedIn(actor, orgpolicy.RespondTransfer); err != nil {
		return nil, s.finish(ctx, err)
	}
	switch status {
	case "":
		status = models.TransferPending
	case models.TransferPending, models.TransferAccepted, models.TransferRejected:
	default:
		return nil, wferr.Validation("validation.status_invalid", "unknown transfer status")
	}
	var out []models.TransferRequest
	err := s.view(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		out, err = tx.Transfers().ListByTarget(ctx, actor.ID, status)
		return err
	})
	return out, err
}
