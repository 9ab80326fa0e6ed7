// internal/app/governance/content.go
package governance

import (
	"context"
	"errors"
	"strconv"
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

// PublicationInput is the author-editable part of a publication. Body may
// contain a restricted HTML subset.
type PublicationInput struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	ImageRef string `json:"image_ref"`
}

func (in PublicationInput) clean() (PublicationInput, error) {
	out := PublicationInput{
		Title:    htmlsanitize.PlainText(in.Title),
		Body:     htmlsanitize.Sanitize(in.Body),
		ImageRef: strings.TrimSpace(in.ImageRef),
	}
	if out.Title == "" {
		return out, wferr.Validation("validation.title_required", "title is required")
	}
	if err := checkLen("title", out.Title, MaxTitleLen); err != nil {
		return out, err
	}
	if err := checkLen("body", out.Body, MaxBodyLen); err != nil {
		return out, err
	}
	return out, checkLen("image_ref", out.ImageRef, MaxImageRefLen)
}

// CreatePublication posts an unreviewed publication. Participants only.
func (s *Service) CreatePublication(ctx context.Context, actor models.Actor, orgID primitive.ObjectID, in PublicationInput) (PublicationView, error) {
	if err := signedIn(actor, orgpolicy.CreatePublication); err != nil {
		return PublicationView{}, s.finish(ctx, err)
	}
	in, err := in.clean()
	if err != nil {
		return PublicationView{}, err
	}
	var out PublicationView
	err = s.update(ctx, func(ctx context.Context, tx store.Tx, fx *effects) error {
		sc, err := guard(ctx, tx, actor, orgID, orgpolicy.CreatePublication)
		if err != nil {
			return err
		}
		if err := requireApproved(sc.org); err != nil {
			return err
		}
		now := s.now()
		pub := models.Publication{
			ID:                primitive.NewObjectID(),
			OrgID:             orgID,
			AuthorUserID:      actor.ID,
			Title:             in.Title,
			Body:              in.Body,
			ImageRef:          in.ImageRef,
			Review:            models.ReviewUnreviewed,
			PublicationActive: true,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := tx.Publications().Insert(ctx, pub); err != nil {
			return err
		}
		out = viewPublication(pub)
		fx.record(audit.CategoryContent, audit.EventPublicationCreated, events.PublicationCreated,
			actor.ID, orgID, actor.ID, pub.ID.Hex(), nil)
		return nil
	})
	return out, err
}

// loadPublication reads a publication and its organization's scope. A
// publication in an organization the caller cannot see is not found.
func loadPublication(ctx context.Context, tx store.Tx, actor models.Actor, pubID primitive.ObjectID) (models.Publication, scope, error) {
	pub, err := tx.Publications().Get(ctx, pubID)
	if err != nil {
		return pub, scope{}, either(err, store.ErrNotFound, errPublicationNotFound)
	}
	sc, err := load(ctx, tx, actor, pub.OrgID)
	if errors.Is(err, errOrgNotFound) {
		return pub, scope{}, errPublicationNotFound
	}
	return pub, sc, err
}

// ReviewPublication records the manager's one-time decision. Approval makes
// the publication active.
func (s *Service) ReviewPublication(ctx context.Context, actor models.Actor, pubID primitive.ObjectID, approve bool) (PublicationView, error) {
	var out PublicationView
	err := s.update(ctx, func(ctx context.Context, tx store.Tx, fx *effects) error {
		pub, sc, err := loadPublication(ctx, tx, actor, pubID)
		if err != nil {
			return err
		}
		if !orgpolicy.Can(actor, sc.org, sc.me, orgpolicy.ReviewPublication) {
			return deny(actor, pub.OrgID, orgpolicy.ReviewPublication)
		}
		if pub.Review != models.ReviewUnreviewed {
			return errAlreadyReviewed
		}
		review, eventType := models.ReviewRejected, audit.EventPublicationRejected
		if approve {
			review, eventType = models.ReviewApproved, audit.EventPublicationApproved
		}
		pub, err = tx.Publications().Review(ctx, pubID, review, actor.ID, s.now())
		if err != nil {
			return either(err, store.ErrConflict, errAlreadyReviewed)
		}
		out = viewPublication(pub)
		fx.record(audit.CategoryContent, eventType, events.PublicationReviewed,
			actor.ID, pub.OrgID, pub.AuthorUserID, pub.ID.Hex(), map[string]string{"review": review})
		return nil
	})
	return out, err
}

// SetPublicationActive activates or deactivates an approved publication.
// Setting the current value succeeds without writing.
func (s *Service) SetPublicationActive(ctx context.Context, actor models.Actor, pubID primitive.ObjectID, active bool) (PublicationView, error) {
	var out PublicationView
	err := s.update(ctx, func(ctx context.Context, tx store.Tx, fx *effects) error {
		pub, sc, err := loadPublication(ctx, tx, actor, pubID)
		if err != nil {
			return err
		}
		if !orgpolicy.Can(actor, sc.org, sc.me, orgpolicy.TogglePublication) {
			return deny(actor, pub.OrgID, orgpolicy.TogglePublication)
		}
		if pub.Review != models.ReviewApproved {
			return errNotApprovedPub
		}
		if pub.PublicationActive == active {
			out = viewPublication(pub)
			return nil
		}
		pub, err = tx.Publications().SetActive(ctx, pubID, active, s.now())
		if err != nil {
			return either(err, store.ErrConflict, errNotApprovedPub)
		}
		out = viewPublication(pub)
		fx.record(audit.CategoryContent, audit.EventPublicationToggled, events.PublicationToggled,
			actor.ID, pub.OrgID, pub.AuthorUserID, pub.ID.Hex(), map[string]string{"active": strconv.FormatBool(active)})
		return nil
	})
	return out, err
}

// EditPublication replaces title, body and image. Author only. The review
// decision is kept, so an approved publication stays approved.
func (s *Service) EditPublication(ctx context.Context, actor models.Actor, pubID primitive.ObjectID, in PublicationInput) (PublicationView, error) {
	in, err := in.clean()
	if err != nil {
		return PublicationView{}, err
	}
	var out PublicationView
	err = s.update(ctx, func(ctx context.Context, tx store.Tx, fx *effects) error {
		pub, _, err := loadPublication(ctx, tx, actor, pubID)
		if err != nil {
			return err
		}
		if !orgpolicy.CanEditPublication(actor, pub) {
			return deny(actor, pub.OrgID, orgpolicy.EditPublication)
		}
		pub, err = tx.Publications().UpdateContent(ctx, pubID, in.Title, in.Body, in.ImageRef, s.now())
		if err != nil {
			return either(err, store.ErrNotFound, errPublicationNotFound)
		}
		out = viewPublication(pub)
		fx.record(audit.CategoryContent, audit.EventPublicationEdited, events.PublicationEdited,
			actor.ID, pub.OrgID, actor.ID, pub.ID.Hex(), map[string]string{"review": pub.Review})
		return nil
	})
	return out, err
}

// GetPublication returns a publication the caller is allowed to see.
func (s *Service) GetPublication(ctx context.Context, actor models.Actor, pubID primitive.ObjectID) (PublicationView, error) {
	var out PublicationView
	err := s.view(ctx, func(ctx context.Context, tx store.Tx) error {
		pub, sc, err := loadPublication(ctx, tx, actor, pubID)
		if err != nil {
			return err
		}
		if !orgpolicy.CanSeePublication(actor, sc.me, pub) {
			return errPublicationNotFound
		}
		out = viewPublication(pub)
		return nil
	})
	return out, err
}

// PublicationQuery selects which listing ListPublications returns.
//
//   - zero value: the public listing; the manager also sees approved but
//     inactive publications.
//   - Review "unreviewed": the manager's moderation queue.
//   - Mine: the caller's own publications in every state, including rejected.
type PublicationQuery struct {
	Review string
	Mine   bool
}

// ListPublications lists an organization's publications, newest first.
func (s *Service) ListPublications(ctx context.Context, actor models.Actor, orgID primitive.ObjectID, q PublicationQuery) ([]PublicationView, error) {
	switch q.Review {
	case "", models.ReviewUnreviewed:
	default:
		return nil, wferr.Validation("validation.review_invalid", "unknown review filter")
	}
	if q.Mine {
		if err := signedIn(actor, orgpolicy.ViewOrg); err != nil {
			return nil, s.finish(ctx, err)
		}
	}

	var out []PublicationView
	err := s.view(ctx, func(ctx context.Context, tx store.Tx) error {
		sc, err := load(ctx, tx, actor, orgID)
		if err != nil {
			return err
		}
		yes := true
		f := store.PublicationFilter{OrgID: orgID}
		switch {
		case q.Mine:
			f.AuthorUserID = actor.ID
		case q.Review == models.ReviewUnreviewed:
			if !orgpolicy.Can(actor, sc.org, sc.me, orgpolicy.ModerationQueue) {
				return deny(actor, orgID, orgpolicy.ModerationQueue)
			}
			f.Review = models.ReviewUnreviewed
		case orgpolicy.Can(actor, sc.org, sc.me, orgpolicy.TogglePublication):
			f.Approved = &yes
		default:
			f.Approved = &yes
			f.Active = &yes
		}
		pubs, err := tx.Publications().List(ctx, f)
		if err != nil {
			return err
		}
		out = make([]PublicationView, 0, len(pubs))
		for _, p := range pubs {
			out = append(out, viewPublication(p))
		}
		return nil
	})
	return out, err
}
