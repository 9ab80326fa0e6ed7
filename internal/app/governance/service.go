// internal/app/governance/service.go
//
// Package governance is the single entry point for every organization,
// membership, publication and transfer transition. Each action loads what it
// needs, asks orgpolicy, and applies the transition inside one store
// transaction. Audit records and workflow events are emitted only after the
// transaction commits.
package governance

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/dalemusser/commonshub/internal/app/policy/orgpolicy"
	"github.com/dalemusser/commonshub/internal/app/store"
	"github.com/dalemusser/commonshub/internal/app/store/audit"
	"github.com/dalemusser/commonshub/internal/app/system/auditlog"
	"github.com/dalemusser/commonshub/internal/app/system/events"
	"github.com/dalemusser/commonshub/internal/domain/models"
	"github.com/dalemusser/commonshub/internal/domain/wferr"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Field limits, counted in runes after sanitizing.
const (
	MaxNameLen     = 120
	MaxScopeLen    = 2000
	MaxImageRefLen = 512
	MaxMessageLen  = 1000
	MaxTitleLen    = 200
	MaxBodyLen     = 20000
)

// Service runs the governance workflows.
type Service struct {
	store  store.Store
	audit  *auditlog.Logger
	events events.Publisher
	log    *zap.Logger
	now    func() time.Time
}

// New wires a Service. trail and pub may be nil.
func New(st store.Store, trail *auditlog.Logger, pub events.Publisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		store:  st,
		audit:  trail,
		events: pub,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Results                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// OrgView is an organization as seen by one caller.
type OrgView struct {
	models.Organization
	Role          orgpolicy.Role `json:"role"`
	ManagerUserID string         `json:"manager_user_id,omitempty"`
}

// PublicationView carries the derived public-listing flag.
type PublicationView struct {
	models.Publication
	Visible bool `json:"visible"`
}

func viewPublication(p models.Publication) PublicationView {
	return PublicationView{Publication: p, Visible: p.PubliclyVisible()}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Transactions and post-commit effects                                         |
*─────────────────────────────────────────────────────────────────────────────*/

type auditEntry struct {
	category string
	t        auditlog.Transition
}

// effects collects what to emit once the transaction commits. A fresh value
// is used for every attempt so retried transactions do not double-emit.
type effects struct {
	trail  []auditEntry
	events []events.Event
}

func (fx *effects) record(category, eventType, publishType string, actorID string, orgID primitive.ObjectID, subjectID, entityID string, details map[string]string) {
	fx.trail = append(fx.trail, auditEntry{category: category, t: auditlog.Transition{
		EventType: eventType,
		ActorID:   actorID,
		OrgID:     orgID,
		SubjectID: subjectID,
		EntityID:  entityID,
		Details:   details,
	}})
	if publishType != "" {
		fx.events = append(fx.events, events.New(publishType, orgID.Hex(), entityID, actorID))
	}
}

// update runs fn in a write transaction and emits its effects on success.
func (s *Service) update(ctx context.Context, fn func(ctx context.Context, tx store.Tx, fx *effects) error) error {
	var fx *effects
	err := s.store.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		fx = &effects{}
		return fn(ctx, tx, fx)
	})
	if err != nil {
		return s.finish(ctx, err)
	}
	for _, e := range fx.trail {
		switch e.category {
		case audit.CategoryContent:
			s.audit.Content(ctx, e.t)
		case audit.CategoryTransfer:
			s.audit.Transfer(ctx, e.t)
		default:
			s.audit.Membership(ctx, e.t)
		}
	}
	for _, ev := range fx.events {
		s.events.Publish(ctx, ev)
	}
	return nil
}

// view runs fn in a read transaction.
func (s *Service) view(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return s.finish(ctx, s.store.View(ctx, fn))
}

// finish records denials and translates leftover store sentinels.
func (s *Service) finish(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var d *denial
	if errors.As(err, &d) {
		s.audit.Denied(ctx, d.actorID, d.orgID, string(d.action), d.err.Key)
		return err
	}
	return translate(err)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Errors                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// denial is a guard refusal. It unwraps to the governance error so callers
// only see the wferr value.
type denial struct {
	err     *wferr.Error
	actorID string
	orgID   primitive.ObjectID
	action  orgpolicy.Action
}

func (d *denial) Error() string { return d.err.Error() }
func (d *denial) Unwrap() error { return d.err }

func deny(actor models.Actor, orgID primitive.ObjectID, action orgpolicy.Action) error {
	e := wferr.Unauthorized("auth."+string(action), "not permitted to "+describe(action))
	if !actor.Authenticated() {
		e = wferr.Unauthorized("auth.signin_required", "sign in required")
	}
	return &denial{err: e, actorID: actor.ID, orgID: orgID, action: action}
}

func describe(a orgpolicy.Action) string {
	switch a {
	case orgpolicy.ReviewOrg:
		return "review organizations"
	case orgpolicy.UpdateOrg:
		return "edit this organization"
	case orgpolicy.DecideJoin:
		return "decide join requests"
	case orgpolicy.ListJoinRequests:
		return "view join requests"
	case orgpolicy.ListParticipants:
		return "view participants"
	case orgpolicy.CreatePublication:
		return "publish in this organization"
	case orgpolicy.ReviewPublication, orgpolicy.ModerationQueue:
		return "moderate publications"
	case orgpolicy.TogglePublication:
		return "activate or deactivate publications"
	case orgpolicy.CreateTransfer, orgpolicy.ListOrgTransfers:
		return "manage transfers"
	case orgpolicy.ViewAudit:
		return "view the audit trail"
	}
	return "perform this action"
}

var (
	errOrgNotFound         = wferr.NotFound("org.not_found", "organization not found")
	errOrgNotApproved      = wferr.InvalidState("org.not_approved", "organization is not approved")
	errOrgAlreadyReviewed  = wferr.InvalidState("org.already_reviewed", "organization was already reviewed")
	errRequestNotFound     = wferr.NotFound("join.not_found", "join request not found")
	errRequestNotPending   = wferr.InvalidState("join.not_pending", "join request was already processed")
	errNotParticipant      = wferr.NotFound("participant.not_found", "not a participant of this organization")
	errPublicationNotFound = wferr.NotFound("publication.not_found", "publication not found")
	errAlreadyReviewed     = wferr.InvalidState("publication.already_reviewed", "publication was already reviewed")
	errNotApprovedPub      = wferr.InvalidState("publication.not_approved", "only approved publications can be activated or deactivated")
	errTransferNotFound    = wferr.NotFound("transfer.not_found", "transfer not found")
	errTransferNotPending  = wferr.InvalidState("transfer.not_pending", "transfer was already processed")
	errManagerChanged      = wferr.InvalidState("transfer.manager_changed", "the sender is no longer the manager")
	errNoManager           = wferr.InvalidState("org.no_manager", "organization has no manager")
)

// translate maps store sentinels that escaped a workflow's own handling.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return wferr.ErrNotFound
	case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrDuplicate):
		return wferr.ErrInvalidState
	}
	return err
}

// either returns alt when err is target, otherwise err unchanged.
func either(err, target, alt error) error {
	if errors.Is(err, target) {
		return alt
	}
	return err
}

/*─────────────────────────────────────────────────────────────────────────────*
| Loading                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// scope is an organization together with the caller's participant row.
type scope struct {
	org models.Organization
	me  *models.Participant
}

func (sc scope) role(actor models.Actor) orgpolicy.Role {
	return orgpolicy.RoleOf(actor, sc.org, sc.me)
}

// load reads the organization and the caller's row. Organizations the caller
// may not see are reported as not found.
func load(ctx context.Context, tx store.Tx, actor models.Actor, orgID primitive.ObjectID) (scope, error) {
	org, err := tx.Organizations().Get(ctx, orgID)
	if err != nil {
		return scope{}, either(err, store.ErrNotFound, errOrgNotFound)
	}
	if !orgpolicy.Visible(actor, org) {
		return scope{}, errOrgNotFound
	}
	sc := scope{org: org}
	if actor.Authenticated() {
		p, err := tx.Participants().Get(ctx, orgID, actor.ID)
		switch {
		case err == nil:
			sc.me = &p
		case !errors.Is(err, store.ErrNotFound):
			return scope{}, err
		}
	}
	return sc, nil
}

// guard loads the scope and checks action.
func guard(ctx context.Context, tx store.Tx, actor models.Actor, orgID primitive.ObjectID, action orgpolicy.Action) (scope, error) {
	sc, err := load(ctx, tx, actor, orgID)
	if err != nil {
		return scope{}, err
	}
	if !orgpolicy.Can(actor, sc.org, sc.me, action) {
		return scope{}, deny(actor, orgID, action)
	}
	return sc, nil
}

func requireApproved(org models.Organization) error {
	if !org.IsApproved() {
		return errOrgNotApproved
	}
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Input                                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func checkLen(field, v string, max int) error {
	if utf8.RuneCountInString(v) > max {
		return wferr.Validation("validation."+field+"_too_long", field+" is too long")
	}
	return nil
}

func signedIn(actor models.Actor, action orgpolicy.Action) error {
	if !actor.Authenticated() {
		return deny(actor, primitive.NilObjectID, action)
	}
	return nil
}
