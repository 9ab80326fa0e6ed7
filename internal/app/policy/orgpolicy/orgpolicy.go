// internal/app/policy/orgpolicy/orgpolicy.go
//
// Package orgpolicy decides what a caller may do inside one organization.
// Every function is pure: callers load the organization and the caller's
// participant row (nil when absent) and pass them in.
package orgpolicy

import "github.com/dalemusser/commonshub/internal/domain/models"

// Role is the caller's standing in an organization.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCreator Role = "creator"
	RoleManager Role = "manager"
	RoleMember  Role = "member"
	RoleGuest   Role = "guest"
)

// Action names a guarded operation.
type Action string

const (
	CreateOrg         Action = "org.create"
	ViewOrg           Action = "org.view"
	ReviewOrg         Action = "org.review"
	UpdateOrg         Action = "org.update"
	ListParticipants  Action = "participants.list"
	RequestJoin       Action = "join.request"
	DecideJoin        Action = "join.decide"
	ListJoinRequests  Action = "join.list"
	Leave             Action = "org.leave"
	CreatePublication Action = "publication.create"
	ReviewPublication Action = "publication.review"
	TogglePublication Action = "publication.toggle"
	EditPublication   Action = "publication.edit"
	ModerationQueue   Action = "publication.queue"
	CreateTransfer    Action = "transfer.create"
	ListOrgTransfers  Action = "transfer.list"
	RespondTransfer   Action = "transfer.respond"
	ViewAudit         Action = "audit.view"
)

// RoleOf returns the caller's role. Admin wins; the creator role applies only
// while the organization is unapproved; otherwise the participant row decides.
func RoleOf(actor models.Actor, org models.Organization, p *models.Participant) Role {
	if !actor.Authenticated() {
		return RoleGuest
	}
	if actor.IsAdmin {
		return RoleAdmin
	}
	if !org.IsApproved() && org.CreatorUserID == actor.ID {
		return RoleCreator
	}
	if p != nil && p.UserID == actor.ID {
		if p.OrgManaged {
			return RoleManager
		}
		return RoleMember
	}
	return RoleGuest
}

// Visible reports whether the organization exists from the caller's point of
// view. Unapproved organizations are seen only by admins and their creator.
func Visible(actor models.Actor, org models.Organization) bool {
	if org.IsApproved() {
		return true
	}
	return actor.Authenticated() && (actor.IsAdmin || org.CreatorUserID == actor.ID)
}

// Can reports whether actor may perform action on org. A missing identity is
// always denied except for viewing approved organizations. EditPublication
// and RespondTransfer depend on the target record; see CanEditPublication
// and CanRespondTransfer.
func Can(actor models.Actor, org models.Organization, p *models.Participant, action Action) bool {
	if action == ViewOrg {
		return Visible(actor, org)
	}
	if !actor.Authenticated() {
		return false
	}
	isParticipant := p != nil && p.UserID == actor.ID
	isManager := isParticipant && p.OrgManaged

	switch action {
	case ReviewOrg:
		return actor.IsAdmin
	case UpdateOrg, DecideJoin, ListJoinRequests, ReviewPublication,
		TogglePublication, ModerationQueue, CreateTransfer, ListOrgTransfers:
		return isManager
	case ViewAudit:
		return actor.IsAdmin || isManager
	case ListParticipants:
		return actor.IsAdmin || isParticipant
	case CreateOrg, RequestJoin, Leave:
		return true
	case CreatePublication:
		return isParticipant
	}
	return false
}

// CanRespondTransfer reports whether actor is the transfer's target.
func CanRespondTransfer(actor models.Actor, t models.TransferRequest) bool {
	return actor.Authenticated() && t.ToUserID == actor.ID
}

// CanEditPublication reports whether actor wrote the publication.
func CanEditPublication(actor models.Actor, pub models.Publication) bool {
	return actor.Authenticated() && pub.AuthorUserID == actor.ID
}

// CanSeePublication applies the visibility rule: approved and active for
// everyone; the organization's manager and admins also see approved-inactive
// ones and the moderation queue; authors see their own work in any state.
// Rejected publications are shown to their author only.
func CanSeePublication(actor models.Actor, p *models.Participant, pub models.Publication) bool {
	if pub.PubliclyVisible() {
		return true
	}
	if !actor.Authenticated() {
		return false
	}
	if pub.AuthorUserID == actor.ID {
		return true
	}
	if pub.Review == models.ReviewRejected {
		return false
	}
	return actor.IsAdmin || (p != nil && p.UserID == actor.ID && p.OrgManaged)
}
