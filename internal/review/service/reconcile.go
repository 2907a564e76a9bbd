package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	manuscriptdomain "github.com/openpress/peerflow/internal/manuscript/domain"
	notifdomain "github.com/openpress/peerflow/internal/notification/domain"
	"github.com/openpress/peerflow/internal/review/domain"
	"go.uber.org/zap"
)

// Reconcile aggregates the panel's decisions for one manuscript. The terminal
// transition is a conditional update guarded on under_review, so concurrent
// reconciliations observing the same complete panel apply it exactly once;
// losers and repeat calls exit without side effects.
func (s *Service) Reconcile(ctx context.Context, manuscriptID snowflake.ID) (domain.Outcome, error) {
	reviews, err := s.repo.ListByManuscript(ctx, s.db, manuscriptID)
	if err != nil {
		return domain.OutcomeStillPending, err
	}

	slots := s.policy.Get().ReviewerSlots
	outcome := computeOutcome(reviews, slots)
	if outcome == domain.OutcomeStillPending {
		return outcome, nil
	}

	rejects := 0
	for _, r := range reviews {
		if r.Decision != nil && *r.Decision == domain.DecisionReject {
			rejects++
		}
	}

	if s.beforeOutcome != nil {
		s.beforeOutcome()
	}

	now := s.now()
	update := manuscriptdomain.StatusUpdate{
		From: []manuscriptdomain.Status{manuscriptdomain.StatusUnderReview},
	}
	if outcome == domain.OutcomePublish {
		update.To = manuscriptdomain.StatusPublished
		update.AcceptanceDate = &now
		update.PublicationDate = &now
	} else {
		update.To = manuscriptdomain.StatusRejected
	}

	applied, err := s.manuscripts.TransitionStatus(ctx, s.db, manuscriptID, update, now)
	if err != nil {
		return outcome, err
	}
	if !applied {
		// Another reconciliation already resolved the manuscript.
		return outcome, nil
	}

	s.log.Info("editorial outcome applied",
		zap.String("manuscript_id", manuscriptID.String()),
		zap.String("outcome", string(outcome)),
		zap.Int("rejects", rejects),
	)

	manuscript, err := s.manuscripts.FindByID(ctx, s.db, manuscriptID)
	if err != nil {
		s.log.Warn("manuscript lookup after outcome failed", zap.Error(err))
		return outcome, nil
	}

	s.metrics.RecordOutcome(manuscript.JournalID.String(), string(outcome))
	s.notifyOutcome(ctx, manuscript, outcome, rejects)
	return outcome, nil
}

// computeOutcome applies the journal's decision rule: at least the slot count
// must be completed, any reject rejects, and only a unanimous accept
// publishes. Panels may exceed the slot count when the cap is disabled, in
// which case every completed decision counts.
func computeOutcome(reviews []*domain.Review, slots int) domain.Outcome {
	completed := 0
	rejects := 0
	for _, r := range reviews {
		if !r.Completed() {
			continue
		}
		completed++
		if r.Decision != nil && *r.Decision == domain.DecisionReject {
			rejects++
		}
	}

	if completed < slots {
		return domain.OutcomeStillPending
	}
	if rejects >= 1 {
		return domain.OutcomeReject
	}
	return domain.OutcomePublish
}

func (s *Service) notifyOutcome(ctx context.Context, manuscript *manuscriptdomain.Manuscript, outcome domain.Outcome, rejects int) {
	author, err := s.findUser(ctx, manuscript.AuthorID)
	if err != nil {
		s.log.Warn("author lookup for outcome notification failed", zap.Error(err))
		return
	}

	event := notifdomain.Event{
		UserID: author.ID,
		Email:  author.Email,
		Data: map[string]any{
			"manuscript_id": manuscript.ID.String(),
		},
	}

	if outcome == domain.OutcomePublish {
		event.Kind = notifdomain.KindAuthorPublication
		event.Title = "Your manuscript has been accepted for publication"
		event.Message = fmt.Sprintf("%q passed peer review and has been published.", manuscript.Title)
	} else {
		event.Kind = notifdomain.KindAuthorRejection
		event.Title = "Decision on your manuscript"
		event.Message = fmt.Sprintf("%q was not accepted for publication.", manuscript.Title)
		event.Data["reject_count"] = rejects
	}

	s.dispatcher.Dispatch(ctx, event)
}
