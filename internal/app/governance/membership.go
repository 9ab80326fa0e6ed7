// internal/app/governance/membership.go
package governance

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/commonshub/internal/app/policy/orgpolicy"
	"github.com/dalemusser/commonshub/internal/app/store"
	"github.com/dalemusser/commonshub/internal/app/store/audit"
	"github.com/dalemusser/commonshub/internal/app/system/events"
	"github.com/dalemusser/commonshub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/commonshub/internal/domain/models"
	"github.com/dalemusser/commonshub/internal/domain/wferr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrgInput is the editable part of an organization.
type OrgInput struct {
	Name     string `json:"name"`
	Scope    string `json:"scope"`
	ImageRef string `json:"image_ref"`
}

func (in OrgInput) clean() (OrgInput, error) {
	out := OrgInput{
		Name:     htmlsanitize.PlainText(in.Name),
		Scope:    htmlsanitize.PlainText(in.Scope),
		ImageRef: strings.TrimSpace(in.ImageRef),
	}
	if out.Name == "" {
		return out, wferr.Validation("validation.name_required", "name is required")
	}
	if err := checkLen("name", out.Name, MaxNameLen); err != nil {
		return out, err
	}
	if err := checkLen("scope", out.Scope, MaxScopeLen); err != nil {
		return out, err
	}
	return out, checkLen("image_ref", out.ImageRef, MaxImageRefLen)
}

func cleanMessage(msg string) (string, error) {
	msg = htmlsanitize.PlainText(msg)
	return msg, checkLen("message", msg, MaxMessageLen)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Organizations                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// CreateOrganization registers a pending organization. The creator becomes
// its manager in the same transaction.
func (s *Service) CreateOrganization(ctx context.Context, actor models.Actor, in OrgInput) (OrgView, error) {
	if err := signedIn(actor, orgpolicy.CreateOrg); err != nil {
		return OrgView{}, s.finish(ctx, err)
	}
	in, err := in.clean()
	if err != nil {
		return OrgView{}, err
	}

	now := s.now()
	org := models.Organization{
		ID:            primitive.NewObjectID(),
		Name:          in.Name,
		Scope:         in.Scope,
		ImageRef:      in.ImageRef,
		Status:        models.OrgPending,
		CreatorUserID: actor.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err = s.update(ctx, func(ctx context.Context, tx store.Tx, fx *effects) error {
		if err := tx.Organizations().Insert(ctx, org); err != nil {
			return err
		}
		if err := tx.Participants().Insert(ctx, models.Participant{
			ID:         primitive.NewObjectID(),
			OrgID:      org.ID,
			UserID:     actor.ID,
			OrgManaged: true,
			JoinedAt:   now,
			UpdatedAt:  now,
		}); err != nil {
			return err
		}
		fx.record(audit.CategoryMembership, audit.EventOrgCreated, events.OrgCreated,
			actor.ID, org.ID, actor.ID, org.ID.Hex(), map[string]string{"name": org.Name})
		return nil
	})
	if err != nil {
		return OrgView{}, err
	}
	return OrgView{Organization: org, Role: orgpolicy.RoleCreator, ManagerUserID: actor.ID}, nil
}

// ReviewOrganization approves or rejects a pending organization. Admin only;
// the decision is final.
func (s *Service) ReviewOrganization(ctx context.Context, actor models.Actor, orgID primitive.ObjectID, approve bool) (OrgView, error) {
	var out OrgView
	err := s.update(ctx, func(ctx context.Context, tx store.Tx, fx *effects) error {
		if !actor.Authenticated() || !actor.IsAdmin {
			return deny(actor, orgID, orgpolicy.ReviewOrg)
		}
		status, eventType := models.OrgRejected, audit.EventOrgRejected
		if approve {
			status, eventType = models.OrgApproved, audit.EventOrgApproved
		}
		org, err := tx.Organizations().Review(ctx, orgID, status, actor.ID, s.now())
		switch {
		case errors.Is(err, store.ErrNotFound):
			return errOrgNotFound
		case errors.Is(err, store.ErrConflict):
			return errOrgAlreadyReviewed
		case err != nil:
			return err
		}
		out = OrgView{Organization: org, Role: orgpolicy.RoleAdmin}
		if m, err := tx.Participants().Manager(ctx, orgID); err == nil {
			out.ManagerUserID = m.UserID
		}
		fx.record(audit.CategoryMembership, eventType, events.OrgReviewed,
			actor.ID, orgID, org.CreatorUserID, orgID.Hex(), map[string]string{"status": status})
		return nil
	})
	return out, err
}

// UpdateOrganization edits name, scope and image. Manager only.
func (s *Service) UpdateOrganization(ctx context.Context, actor models.Actor, orgID primitive.ObjectID, in OrgInput) (OrgView, error) {
	in, err := in.clean()
	if err != nil {
		return OrgView{}, err
	}
	var out OrgView
	err = s.update(ctx, func(ctx context.Context, tx store.Tx, fx *effects) error {
		sc, err := guard(ctx, tx, actor, orgID, orgpolicy.UpdateOrg)
		if err != nil {
			return err
		}
		org, err := tx.Organizations().UpdateDetails(ctx, orgID, in.Name, in.Scope, in.ImageRef, s.now())
		if err != nil {
			return either(err, store.ErrNotFound, errOrgNotFound)
		}
		out = OrgView{Organization: org, Role: orgpolicy.RoleOf(actor, org, sc.me), ManagerUserID: actor.ID}
		fx.record(audit.CategoryMembership, audit.EventOrgUpdated, events.OrgUpdated,
			actor.ID, orgID, "", orgID.Hex(), map[string]string{"name": org.Name})
		return nil
	})
	return out, err
}

// GetOrganization returns the organization with the caller's role.
func (s *Service) GetOrganization(ctx context.Context, actor models.Actor, orgID primitive.ObjectID) (OrgView, error) {
	var out OrgView
	err := s.view(ctx, func(ctx context.Context, tx store.Tx) error {
		sc, err := load(ctx, tx, actor, orgID)
		if err != nil {
			return err
		}
		out = OrgView{Organization: sc.org, Role: sc.role(actor)}
		m, err := tx.Participants().Manager(ctx, orgID)
		switch {
		case err == nil:
			out.ManagerUserID = m.UserID
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
		return nil
	})
	return out, err
}

// OrgQuery narrows ListOrganizations. Status "" lists approved organizations
// plus the caller's own pending or rejected ones.
type OrgQuery struct {
	Status string
	Limit  int
}

// ListOrganizations lists organizations visible to the caller, ordered by name.
func (s *Service) ListOrganizations(ctx context.Context, actor models.Actor, q OrgQuery) ([]OrgView, error) {
	var f store.OrgFilter
	f.Limit = q.Limit
	ownOnly := false
	switch q.Status {
	case "":
		f.Status = models.OrgApproved
		if actor.Authenticated() {
			f.OrCreator = actor.ID
		}
	case models.OrgApproved:
		f.Status = models.OrgApproved
	case models.OrgPending, models.OrgRejected:
		if !actor.Authenticated() {
			return nil, s.finish(ctx, deny(actor, primitive.NilObjectID, orgpolicy.ReviewOrg))
		}
		if actor.IsAdmin {
			f.Status = q.Status
		} else {
			f.OrCreator = actor.ID
			f.Limit = 0
			ownOnly = true
		}
	default:
		return nil, wferr.Validation("validation.status_invalid", "unknown organization status")
	}

	var out []OrgView
	err := s.view(ctx, func(ctx context.Context, tx store.Tx) error {
		orgs, err := tx.Organizations().List(ctx, f)
		if err != nil {
			return err
		}
		out = make([]OrgView, 0, len(orgs))
		for _, org := range orgs {
			if ownOnly && org.Status != q.Status {
				continue
			}
			if q.Limit > 0 && len(out) >= q.Limit {
				break
			}
			var me *models.Participant
			if actor.Authenticated() {
				p, err := tx.Participants().Get(ctx, org.ID, actor.ID)
				switch {
				case err == nil:
					me = &p
				case !errors.Is(err, store.ErrNotFound):
					return err
				}
			}
			out = append(out, OrgView{Organization: org, Role: orgpolicy.RoleOf(actor, org, me)})
		}
		return nil
	})
	return out, err
}

/*─────────────────────────────────────────────────────────────────────────────*
| Join requests                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// JoinDecision is the outcome of approving or rejecting a join request.
type JoinDecision struct {
	Request     models.ParticipantRequest `json:"request"`
	Participant *models.Participant       `json:"participant,omitempty"`
}

// RequestJoin opens a pending join request for the caller.
func (s *Service) RequestJoin(ctx context.Context, actor models.Actor, orgID primitive.ObjectID, message string) (models.ParticipantRequest, error) {
	if err := signedIn(actor, orgpolicy.RequestJoin); err != nil {
		return models.ParticipantRequest{}, s.finish(ctx, err)
	}
	message, err := cleanMessage(message)
	if err != nil {
		return models.ParticipantRequest{}, err
	}
	var out models.ParticipantRequest
	err = s.update(ctx, func(ctx context.Context, tx store.Tx, fx *effects) error {
		sc, err := guard(ctx, tx, actor, orgID, orgpolicy.RequestJoin)
		if err != nil {
			return err
		}
		if err := requireApproved(sc.org); err != nil {
			return err
		}
		if sc.me != nil {
			return wferr.ErrAlreadyMember
		}
		switch _, err := tx.JoinRequests().Pending(ctx, orgID, actor.ID); {
		case err == nil:
			return wferr.ErrDuplicateRequest
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
		req := models.ParticipantRequest{
			ID:             primitive.NewObjectID(),
			OrgID:          orgID,
			UserID:         actor.ID,
			Status:         models.RequestPending,
			RequestMessage: message,
			CreatedAt:      s.now(),
		}
		if err := tx.JoinRequests().Insert(ctx, req); err != nil {
			return either(err, store.ErrDuplicate, wferr.ErrDuplicateRequest)
		}
		out = req
		fx.record(audit.CategoryMembership, audit.EventJoinRequested, events.JoinRequested,
			actor.ID, orgID, actor.ID, req.ID.Hex(), nil)
		return nil
	})
	return out, err
}

// ApproveJoin accepts a pending request and creates the participant row.
func (s *Service) ApproveJoin(ctx context.Context, actor models.Actor, requestID primitive.ObjectID, message string) (JoinDecision, error) {
	return s.decideJoin(ctx, actor, requestID, message, true)
}

// RejectJoin declines a pending request. The user may request again later.
func (s *Service) RejectJoin(ctx context.Context, actor models.Actor, requestID primitive.ObjectID, message string) (JoinDecision, error) {
	return s.decideJoin(ctx, actor, requestID, message, false)
}

func (s *Service) decideJoin(ctx context.Context, actor models.Actor, requestID primitive.ObjectID, message string, approve bool) (JoinDecision, error) {
	message, err := cleanMessage(message)
	if err != nil {
		return JoinDecision{}, err
	}
	var out JoinDecision
	err = s.update(ctx, func(ctx context.Context, tx store.Tx, fx *effects) error {
		req, err := tx.JoinRequests().Get(ctx, requestID)
		if err != nil {
			return either(err, store.ErrNotFound, errRequestNotFound)
		}
		if _, err := guard(ctx, tx, actor, req.OrgID, orgpolicy.DecideJoin); err != nil {
			return err
		}
		if req.Status != models.RequestPending {
			return errRequestNotPending
		}

		now := s.now()
		to, eventType := models.RequestRejected, audit.EventJoinRejected
		if approve {
			to, eventType = models.RequestApproved, audit.EventJoinApproved
		}
		req, err = tx.JoinRequests().Transition(ctx, requestID, models.RequestPending, to, message, actor.ID, now)
		if err != nil {
			return either(err, store.ErrConflict, errRequestNotPending)
		}
		out.Request = req

		if approve {
			p := models.Participant{
				ID:        primitive.NewObjectID(),
				OrgID:     req.OrgID,
				UserID:    req.UserID,
				JoinedAt:  now,
				UpdatedAt: now,
			}
			if err := tx.Participants().Insert(ctx, p); err != nil {
				return either(err, store.ErrDuplicate, wferr.ErrAlreadyMember)
			}
			out.Participant = &p
		}
		fx.record(audit.CategoryMembership, eventType, events.JoinDecided,
			actor.ID, req.OrgID, req.UserID, req.ID.Hex(), map[string]string{"status": to})
		return nil
	})
	return out, err
}

// CancelJoin withdraws the caller's pending request. Cancelling when nothing
// is pending is an InvalidState error, which also covers losing a race with
// the manager's decision.
func (s *Service) CancelJoin(ctx context.Context, actor models.Actor, orgID primitive.ObjectID) (models.ParticipantRequest, error) {
	if err := signedIn(actor, orgpolicy.RequestJoin); err != nil {
		return models.ParticipantRequest{}, s.finish(ctx, err)
	}
	var out models.ParticipantRequest
	err := s.update(ctx, func(ctx context.Context, tx store.Tx, fx *effects) error {
		if _, err := load(ctx, tx, actor, orgID); err != nil {
			return err
		}
		req, err := tx.JoinRequests().Pending(ctx, orgID, actor.ID)
		if err != nil {
			return either(err, store.ErrNotFound, errRequestNotPending)
		}
		req, err = tx.JoinRequests().Transition(ctx, req.ID, models.RequestPending, models.RequestCancelled, "", actor.ID, s.now())
		if err != nil {
			return either(err, store.ErrConflict, errRequestNotPending)
		}
		out = req
		fx.record(audit.CategoryMembership, audit.EventJoinCancelled, events.JoinCancelled,
			actor.ID, orgID, actor.ID, req.ID.Hex(), nil)
		return nil
	})
	return out, err
}

// ListJoinRequests returns the organization's requests in status (default
// pending), oldest first. Manager only.
func (s *Service) ListJoinRequests(ctx context.Context, actor models.Actor, orgID primitive.ObjectID, status string) ([]models.ParticipantRequest, error) {
	switch status {
	case "":
		status = models.RequestPending
	case models.RequestPending, models.RequestApproved, models.RequestRejected, models.RequestCancelled, "all":
	default:
		return nil, wferr.Validation("validation.status_invalid", "unknown request status")
	}
	if status == "all" {
		status = ""
	}
	var out []models.ParticipantRequest
	err := s.view(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := guard(ctx, tx, actor, orgID, orgpolicy.ListJoinRequests); err != nil {
			return err
		}
		var err error
		out, err = tx.JoinRequests().ListByOrg(ctx, orgID, status)
		return err
	})
	return out, err
}

/*─────────────────────────────────────────────────────────────────────────────*
| Participants                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// LeaveOrganization removes the caller's participant row. The manager must
// transfer the organization first. Leaving twice reports NotFound.
func (s *Service) LeaveOrganization(ctx context.Context, actor models.Actor, orgID primitive.ObjectID) error {
	if err := signedIn(actor, orgpolicy.Leave); err != nil {
		return s.finish(ctx, err)
	}
	return s.update(ctx, func(ctx context.Context, tx store.Tx, fx *effects) error {
		sc, err := load(ctx, tx, actor, orgID)
		if err != nil {
			return err
		}
		if sc.me == nil {
			return errNotParticipant
		}
		if sc.me.OrgManaged {
			return wferr.ErrIsManager
		}
		switch err := tx.Participants().DeleteMember(ctx, orgID, actor.ID); {
		case errors.Is(err, store.ErrConflict):
			return wferr.ErrIsManager
		case errors.Is(err, store.ErrNotFound):
			return errNotParticipant
		case err != nil:
			return err
		}
		fx.record(audit.CategoryMembership, audit.EventParticipantLeft, events.ParticipantLeft,
			actor.ID, orgID, actor.ID, sc.me.ID.Hex(), nil)
		return nil
	})
}

// ListParticipants returns the organization's participants. Participants
// and admins only.
func (s *Service) ListParticipants(ctx context.Context, actor models.Actor, orgID primitive.ObjectID) ([]models.Participant, error) {
	var out []models.Participant
	err := s.view(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := guard(ctx, tx, actor, orgID, orgpolicy.ListParticipants); err != nil {
			return err
		}
		var err error
		out, err = tx.Participants().ListByOrg(ctx, orgID)
		return err
	})
	return out, err
}
