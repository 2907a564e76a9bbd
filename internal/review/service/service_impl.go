package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openpress/peerflow/internal/clock"
	"github.com/openpress/peerflow/internal/cloudmetrics"
	"github.com/openpress/peerflow/internal/config"
	identitydomain "github.com/openpress/peerflow/internal/identity/domain"
	invitationdomain "github.com/openpress/peerflow/internal/invitation/domain"
	manuscriptdomain "github.com/openpress/peerflow/internal/manuscript/domain"
	notifdomain "github.com/openpress/peerflow/internal/notification/domain"
	"github.com/openpress/peerflow/internal/providers/pdf"
	"github.com/openpress/peerflow/internal/review/domain"
	"github.com/openpress/peerflow/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log         *zap.Logger
	DB          *gorm.DB
	Clock       clock.Clock
	GenID       *snowflake.Node
	Policy      *config.ReviewPolicyHolder
	Repo        domain.Repository
	Manuscripts manuscriptdomain.Repository
	Identity    identitydomain.Service
	Invitations invitationdomain.Service
	Dispatcher  notifdomain.Dispatcher
	PDF         pdf.Provider
	Metrics     cloudmetrics.Recorder
}

type Service struct {
	log         *zap.Logger
	db          *gorm.DB
	clock       clock.Clock
	genID       *snowflake.Node
	policy      *config.ReviewPolicyHolder
	repo        domain.Repository
	manuscripts manuscriptdomain.Repository
	identity    identitydomain.Service
	invitations invitationdomain.Service
	dispatcher  notifdomain.Dispatcher
	pdf         pdf.Provider
	metrics     cloudmetrics.Recorder

	// beforeOutcome runs between reading the panel and applying the
	// terminal transition. Nil outside of tests.
	beforeOutcome func()
}

func New(p Params) domain.Service {
	return newService(p)
}

func newService(p Params) *Service {
	return &Service{
		log:         p.Log.Named("review.service"),
		db:          p.DB,
		clock:       p.Clock,
		genID:       p.GenID,
		policy:      p.Policy,
		repo:        p.Repo,
		manuscripts: p.Manuscripts,
		identity:    p.Identity,
		invitations: p.Invitations,
		dispatcher:  p.Dispatcher,
		pdf:         p.PDF,
		metrics:     p.Metrics,
	}
}

func (s *Service) Assign(ctx context.Context, manuscriptID snowflake.ID, reviewerIDs []snowflake.ID) ([]*domain.Review, error) {
	policy := s.policy.Get()
	if len(reviewerIDs) != policy.ReviewerSlots {
		return nil, domain.ErrInvalidReviewerSet
	}
	seen := make(map[snowflake.ID]struct{}, len(reviewerIDs))
	for _, id := range reviewerIDs {
		if _, dup := seen[id]; dup {
			return nil, domain.ErrInvalidReviewerSet
		}
		seen[id] = struct{}{}
	}

	users, err := s.identity.FindByIDs(ctx, reviewerIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[snowflake.ID]*identitydomain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, id := range reviewerIDs {
		u, ok := byID[id]
		if !ok || !u.IsActive || u.Role.IsDefault() {
			return nil, domain.ErrInvalidReviewerSet
		}
	}

	manuscript, err := s.manuscripts.FindByID(ctx, s.db, manuscriptID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	reviews := make([]*domain.Review, 0, len(reviewerIDs))
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := s.repo.CountByManuscript(ctx, tx, manuscriptID)
		if err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrAlreadyAssigned
		}

		for i, reviewerID := range reviewerIDs {
			review := &domain.Review{
				ID:             s.genID.Generate(),
				ManuscriptID:   manuscriptID,
				ReviewerID:     reviewerID,
				ReviewerNumber: i + 1,
				Status:         domain.StatusPending,
				DueDate:        now.Add(time.Duration(policy.ReviewDueDays) * 24 * time.Hour),
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if err := s.repo.Insert(ctx, tx, review); err != nil {
				return err
			}
			reviews = append(reviews, review)
		}

		applied, err := s.manuscripts.TransitionStatus(ctx, tx, manuscriptID, manuscriptdomain.StatusUpdate{
			From: []manuscriptdomain.Status{manuscriptdomain.StatusSubmitted},
			To:   manuscriptdomain.StatusUnderReview,
		}, now)
		if err != nil {
			return err
		}
		if !applied {
			return domain.ErrAlreadyAssigned
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordAssignment(manuscript.JournalID.String())
	s.notifyPanelAssigned(ctx, manuscript, reviews, byID)
	s.log.Info("review panel assigned",
		zap.String("manuscript_id", manuscriptID.String()),
		zap.Int("reviewers", len(reviews)),
	)
	return reviews, nil
}

func (s *Service) Invite(ctx context.Context, manuscriptID snowflake.ID, email, name string) (domain.InviteResult, error) {
	manuscript, err := s.manuscripts.FindByID(ctx, s.db, manuscriptID)
	if err != nil {
		return domain.InviteResult{}, err
	}

	policy := s.policy.Get()
	if policy.EnforceSlotCap {
		count, err := s.repo.CountByManuscript(ctx, s.db, manuscriptID)
		if err != nil {
			return domain.InviteResult{}, err
		}
		if count >= int64(policy.ReviewerSlots) {
			return domain.InviteResult{}, domain.ErrSlotsFilled
		}
	}

	resolution, err := s.invitations.Resolve(ctx, manuscriptID, email, name)
	if err != nil {
		return domain.InviteResult{}, err
	}

	if resolution.Mode == invitationdomain.ModeInvited {
		s.metrics.RecordInvitationIssued(manuscript.JournalID.String())
		return domain.InviteResult{Invited: true, Token: resolution.Token}, nil
	}

	review, err := s.seatReviewer(ctx, manuscript, resolution.UserID, domain.StatusPending)
	if err != nil {
		return domain.InviteResult{}, err
	}
	return domain.InviteResult{Review: review}, nil
}

func (s *Service) AcceptInvitation(ctx context.Context, token string, userID snowflake.ID) (*domain.Review, error) {
	invitation, err := s.invitations.Consume(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := s.identity.UpgradeRole(ctx, userID, identitydomain.RoleReviewer); err != nil {
		return nil, err
	}

	manuscript, err := s.manuscripts.FindByID(ctx, s.db, invitation.ManuscriptID)
	if err != nil {
		return nil, err
	}

	return s.seatReviewer(ctx, manuscript, userID, domain.StatusInvited)
}

// seatReviewer appends one reviewer to the panel, computing the next slot
// number and pulling a still-submitted manuscript into review.
func (s *Service) seatReviewer(ctx context.Context, manuscript *manuscriptdomain.Manuscript, userID snowflake.ID, status domain.Status) (*domain.Review, error) {
	policy := s.policy.Get()
	now := s.now()

	var review *domain.Review
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := s.repo.CountByManuscript(ctx, tx, manuscript.ID)
		if err != nil {
			return err
		}
		if policy.EnforceSlotCap && count >= int64(policy.ReviewerSlots) {
			return domain.ErrSlotsFilled
		}

		review = &domain.Review{
			ID:             s.genID.Generate(),
			ManuscriptID:   manuscript.ID,
			ReviewerID:     userID,
			ReviewerNumber: int(count) + 1,
			Status:         status,
			DueDate:        now.Add(time.Duration(policy.ReviewDueDays) * 24 * time.Hour),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.repo.Insert(ctx, tx, review); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrAlreadyAssigned
			}
			return err
		}

		if manuscript.Status == manuscriptdomain.StatusSubmitted {
			if _, err := s.manuscripts.TransitionStatus(ctx, tx, manuscript.ID, manuscriptdomain.StatusUpdate{
				From: []manuscriptdomain.Status{manuscriptdomain.StatusSubmitted},
				To:   manuscriptdomain.StatusUnderReview,
			}, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if users, err := s.identity.FindByIDs(ctx, []snowflake.ID{userID}); err == nil && len(users) == 1 {
		s.dispatcher.Dispatch(ctx, notifdomain.Event{
			Kind:    notifdomain.KindReviewerAssignment,
			UserID:  userID,
			Email:   users[0].Email,
			Title:   "New review assignment",
			Message: fmt.Sprintf("You have been assigned as reviewer %d of %q.", review.ReviewerNumber, manuscript.Title),
			Data: map[string]any{
				"manuscript_id": manuscript.ID.String(),
				"review_id":     review.ID.String(),
				"due_date":      review.DueDate.Format(time.RFC3339),
			},
		})
	}

	s.log.Info("reviewer seated",
		zap.String("manuscript_id", manuscript.ID.String()),
		zap.String("reviewer_id", userID.String()),
		zap.Int("reviewer_number", review.ReviewerNumber),
	)
	return review, nil
}

func (s *Service) StartReview(ctx context.Context, reviewID, reviewerID snowflake.ID) (*domain.Review, error) {
	applied, err := s.repo.Start(ctx, s.db, reviewID, reviewerID, s.now())
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, domain.ErrNotFound
	}
	return s.repo.FindForReviewer(ctx, s.db, reviewID, reviewerID)
}

func (s *Service) SubmitDecision(ctx context.Context, req domain.SubmitDecisionRequest) (*domain.Review, error) {
	if !req.Decision.Valid() {
		return nil, domain.ErrInvalidDecision
	}

	review, err := s.repo.FindForReviewer(ctx, s.db, req.ReviewID, req.ReviewerID)
	if err != nil {
		return nil, err
	}
	if review.ManuscriptID != req.ManuscriptID {
		return nil, domain.ErrNotFound
	}
	if review.Completed() {
		return nil, domain.ErrAlreadySubmitted
	}

	now := s.now()
	applied, err := s.repo.Complete(ctx, s.db, req.ReviewID, req.ReviewerID, domain.CompletionUpdate{
		Decision:         req.Decision,
		CommentsToAuthor: req.CommentsToAuthor,
		CommentsToEditor: req.CommentsToEditor,
		SubmittedAt:      now,
	}, now)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, domain.ErrAlreadySubmitted
	}

	review.Status = domain.StatusCompleted
	decision := req.Decision
	review.Decision = &decision
	review.CommentsToAuthor = req.CommentsToAuthor
	review.CommentsToEditor = req.CommentsToEditor
	review.SubmittedAt = &now
	review.UpdatedAt = now

	s.log.Info("decision submitted",
		zap.String("manuscript_id", req.ManuscriptID.String()),
		zap.String("review_id", req.ReviewID.String()),
		zap.String("decision", string(req.Decision)),
	)

	// The lookup only feeds metrics and notifications. Reconciliation
	// reloads the manuscript itself and must run even when it fails, or a
	// fully decided panel never resolves.
	if manuscript, err := s.manuscripts.FindByID(ctx, s.db, req.ManuscriptID); err != nil {
		s.log.Warn("manuscript lookup after decision failed", zap.Error(err))
	} else {
		s.metrics.RecordDecision(manuscript.JournalID.String(), string(req.Decision))
		s.notifyDecisionSubmitted(ctx, manuscript, review)
	}

	if _, err := s.Reconcile(ctx, req.ManuscriptID); err != nil {
		s.log.Error("reconcile after decision failed",
			zap.String("manuscript_id", req.ManuscriptID.String()),
			zap.Error(err),
		)
	}
	return review, nil
}

func (s *Service) GetReview(ctx context.Context, reviewID, callerID snowflake.ID) (*domain.Review, error) {
	return s.repo.FindForReviewer(ctx, s.db, reviewID, callerID)
}

func (s *Service) ListAssignments(ctx context.Context, reviewerID snowflake.ID) ([]*domain.Review, error) {
	return s.repo.ListByReviewer(ctx, s.db, reviewerID, false)
}

func (s *Service) ListCompleted(ctx context.Context, reviewerID snowflake.ID) ([]*domain.Review, error) {
	return s.repo.ListByReviewer(ctx, s.db, reviewerID, true)
}

func (s *Service) ManuscriptStatus(ctx context.Context, manuscriptID snowflake.ID) (*domain.Progress, error) {
	manuscript, err := s.manuscripts.FindByID(ctx, s.db, manuscriptID)
	if err != nil {
		return nil, err
	}
	reviews, err := s.repo.ListByManuscript(ctx, s.db, manuscriptID)
	if err != nil {
		return nil, err
	}

	completed := 0
	for _, r := range reviews {
		if r.Completed() {
			completed++
		}
	}

	return &domain.Progress{
		ManuscriptID:     manuscriptID,
		ManuscriptStatus: manuscript.Status,
		CompletedCount:   completed,
		Outcome:          computeOutcome(reviews, s.policy.Get().ReviewerSlots),
		Reviews:          reviews,
	}, nil
}

func (s *Service) notifyPanelAssigned(ctx context.Context, manuscript *manuscriptdomain.Manuscript, reviews []*domain.Review, users map[snowflake.ID]*identitydomain.User) {
	for _, review := range reviews {
		user, ok := users[review.ReviewerID]
		if !ok {
			continue
		}
		s.dispatcher.Dispatch(ctx, notifdomain.Event{
			Kind:    notifdomain.KindReviewerAssignment,
			UserID:  user.ID,
			Email:   user.Email,
			Title:   "New review assignment",
			Message: fmt.Sprintf("You have been assigned as reviewer %d of %q.", review.ReviewerNumber, manuscript.Title),
			Data: map[string]any{
				"manuscript_id": manuscript.ID.String(),
				"review_id":     review.ID.String(),
				"due_date":      review.DueDate.Format(time.RFC3339),
			},
		})
	}

	if author, err := s.findUser(ctx, manuscript.AuthorID); err == nil {
		s.dispatcher.Dispatch(ctx, notifdomain.Event{
			Kind:    notifdomain.KindReviewStarted,
			UserID:  author.ID,
			Email:   author.Email,
			Title:   "Your manuscript is under review",
			Message: fmt.Sprintf("Peer review of %q has begun.", manuscript.Title),
			Data: map[string]any{
				"manuscript_id": manuscript.ID.String(),
			},
		})
	}
}

func (s *Service) notifyDecisionSubmitted(ctx context.Context, manuscript *manuscriptdomain.Manuscript, review *domain.Review) {
	if reviewer, err := s.findUser(ctx, review.ReviewerID); err == nil {
		s.dispatcher.Dispatch(ctx, notifdomain.Event{
			Kind:    notifdomain.KindReviewConfirmation,
			UserID:  reviewer.ID,
			Email:   reviewer.Email,
			Title:   "Review received",
			Message: fmt.Sprintf("Thank you for completing your review of %q.", manuscript.Title),
			Data: map[string]any{
				"manuscript_id": manuscript.ID.String(),
				"review_id":     review.ID.String(),
			},
		})
	}

	// The author sees the decision and the comments addressed to them.
	// Comments to the editor stay confidential.
	if author, err := s.findUser(ctx, manuscript.AuthorID); err == nil {
		s.dispatcher.Dispatch(ctx, notifdomain.Event{
			Kind:    notifdomain.KindAuthorDecisionFeedback,
			UserID:  author.ID,
			Email:   author.Email,
			Title:   "A reviewer has evaluated your manuscript",
			Message: fmt.Sprintf("Reviewer %d submitted a decision on %q.", review.ReviewerNumber, manuscript.Title),
			Data: map[string]any{
				"manuscript_id":      manuscript.ID.String(),
				"decision":           string(*review.Decision),
				"comments_to_author": review.CommentsToAuthor,
			},
		})
	}
}

func (s *Service) findUser(ctx context.Context, id snowflake.ID) (*identitydomain.User, error) {
	users, err := s.identity.FindByIDs(ctx, []snowflake.ID{id})
	if err != nil {
		return nil, err
	}
	if len(users) != 1 {
		return nil, errors.New("user_not_found")
	}
	return users[0], nil
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}
