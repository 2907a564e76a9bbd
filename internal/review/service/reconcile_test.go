package service

import (
	"context"
	"sync"
	"testing"

	"github.com/openpress/peerflow/internal/config"
	identitydomain "github.com/openpress/peerflow/internal/identity/domain"
	manuscriptdomain "github.com/openpress/peerflow/internal/manuscript/domain"
	notifdomain "github.com/openpress/peerflow/internal/notification/domain"
	"github.com/openpress/peerflow/internal/review/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// completePanel marks every review completed directly in the database, so the
// manuscript is left under review with a decided panel and the terminal
// transition can be driven by Reconcile alone.
func (f *fixture) completePanel(t *testing.T, reviews []*domain.Review, decisions []domain.Decision) {
	t.Helper()
	for i, review := range reviews {
		require.NoError(t, f.db.Model(&domain.Review{}).
			Where("id = ?", review.ID).
			Updates(map[string]any{
				"status":       domain.StatusCompleted,
				"decision":     decisions[i],
				"submitted_at": f.clock.Now(),
				"updated_at":   f.clock.Now(),
			}).Error)
	}
}

func TestReconcileOutcomes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("unanimous accept publishes", func(t *testing.T) {
		manuscript, _, reviews := f.seedPanel(t)
		for _, review := range reviews {
			f.decide(t, review, domain.DecisionAccept)
		}

		stored := f.reloadManuscript(t, manuscript.ID)
		assert.Equal(t, manuscriptdomain.StatusPublished, stored.Status)
		require.NotNil(t, stored.AcceptanceDate)
		require.NotNil(t, stored.PublicationDate)
		assert.True(t, stored.AcceptanceDate.Equal(f.clock.Now()))
		assert.True(t, stored.PublicationDate.Equal(f.clock.Now()))

		assert.Len(t, f.events.byKind(notifdomain.KindAuthorPublication), 1)
		assert.Empty(t, f.events.byKind(notifdomain.KindAuthorRejection))
	})

	t.Run("a single reject rejects", func(t *testing.T) {
		manuscript, _, reviews := f.seedPanel(t)
		f.decide(t, reviews[0], domain.DecisionAccept)
		f.decide(t, reviews[1], domain.DecisionReject)
		f.decide(t, reviews[2], domain.DecisionAccept)
		f.decide(t, reviews[3], domain.DecisionAccept)

		stored := f.reloadManuscript(t, manuscript.ID)
		assert.Equal(t, manuscriptdomain.StatusRejected, stored.Status)
		assert.Nil(t, stored.AcceptanceDate)
		assert.Nil(t, stored.PublicationDate)

		rejections := f.events.byKind(notifdomain.KindAuthorRejection)
		require.Len(t, rejections, 1)
		assert.Equal(t, 1, rejections[0].Data["reject_count"])
		assert.Empty(t, f.events.byKind(notifdomain.KindAuthorPublication))
	})

	t.Run("every reviewer rejecting also rejects", func(t *testing.T) {
		manuscript, _, reviews := f.seedPanel(t)
		for _, review := range reviews {
			f.decide(t, review, domain.DecisionReject)
		}

		assert.Equal(t, manuscriptdomain.StatusRejected, f.reloadManuscript(t, manuscript.ID).Status)
		rejections := f.events.byKind(notifdomain.KindAuthorRejection)
		require.Len(t, rejections, 1)
		assert.Equal(t, 4, rejections[0].Data["reject_count"])
	})

	t.Run("an early reject still waits for the full panel", func(t *testing.T) {
		manuscript, _, reviews := f.seedPanel(t)
		f.decide(t, reviews[0], domain.DecisionReject)
		f.decide(t, reviews[1], domain.DecisionAccept)

		outcome, err := f.svc.Reconcile(ctx, manuscript.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeStillPending, outcome)
		assert.Equal(t, manuscriptdomain.StatusUnderReview, f.reloadManuscript(t, manuscript.ID).Status)
		assert.Empty(t, f.events.byKind(notifdomain.KindAuthorRejection))
	})

	t.Run("decision order does not matter", func(t *testing.T) {
		manuscript, _, reviews := f.seedPanel(t)
		f.decide(t, reviews[3], domain.DecisionAccept)
		f.decide(t, reviews[1], domain.DecisionAccept)
		f.decide(t, reviews[2], domain.DecisionAccept)
		f.decide(t, reviews[0], domain.DecisionAccept)

		assert.Equal(t, manuscriptdomain.StatusPublished, f.reloadManuscript(t, manuscript.ID).Status)
	})
}

func TestReconcileIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	manuscript, _, reviews := f.seedPanel(t)
	for _, review := range reviews {
		f.decide(t, review, domain.DecisionAccept)
	}
	published := f.reloadManuscript(t, manuscript.ID)
	require.Equal(t, manuscriptdomain.StatusPublished, published.Status)
	require.NotNil(t, published.AcceptanceDate)
	require.NotNil(t, published.PublicationDate)

	for i := 0; i < 3; i++ {
		outcome, err := f.svc.Reconcile(ctx, manuscript.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomePublish, outcome)
	}

	after := f.reloadManuscript(t, manuscript.ID)
	assert.Equal(t, published.Status, after.Status)
	assert.True(t, after.AcceptanceDate.Equal(*published.AcceptanceDate))
	assert.True(t, after.PublicationDate.Equal(*published.PublicationDate))
	assert.Len(t, f.events.byKind(notifdomain.KindAuthorPublication), 1)
}

func TestReconcileConcurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	manuscript, _, reviews := f.seedPanel(t)
	f.completePanel(t, reviews, []domain.Decision{
		domain.DecisionAccept, domain.DecisionAccept, domain.DecisionAccept, domain.DecisionAccept,
	})

	// Hold both reconciliations after they have read the completed panel, so
	// they race to apply the same terminal transition.
	release := make(chan struct{})
	var entered sync.WaitGroup
	entered.Add(2)
	f.svc.beforeOutcome = func() {
		entered.Done()
		<-release
	}
	defer func() { f.svc.beforeOutcome = nil }()

	go func() {
		entered.Wait()
		close(release)
	}()

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			outcome, err := f.svc.Reconcile(ctx, manuscript.ID)
			if err == nil && outcome != domain.OutcomePublish {
				err = assert.AnError
			}
			results <- err
		}()
	}
	for i := 0; i < 2; i++ {
		require.NoError(t, <-results)
	}

	stored := f.reloadManuscript(t, manuscript.ID)
	assert.Equal(t, manuscriptdomain.StatusPublished, stored.Status)
	require.NotNil(t, stored.PublicationDate)
	assert.Len(t, f.events.byKind(notifdomain.KindAuthorPublication), 1, "only the transition winner notifies")
}

func TestComputeOutcome(t *testing.T) {
	accept := domain.DecisionAccept
	reject := domain.DecisionReject

	completed := func(d domain.Decision) *domain.Review {
		return &domain.Review{Status: domain.StatusCompleted, Decision: &d}
	}
	open := &domain.Review{Status: domain.StatusInProgress}

	cases := []struct {
		name    string
		reviews []*domain.Review
		want    domain.Outcome
	}{
		{"no reviews", nil, domain.OutcomeStillPending},
		{"partial panel", []*domain.Review{completed(accept), completed(accept), completed(accept), open}, domain.OutcomeStillPending},
		{"unanimous accept", []*domain.Review{completed(accept), completed(accept), completed(accept), completed(accept)}, domain.OutcomePublish},
		{"single reject", []*domain.Review{completed(accept), completed(reject), completed(accept), completed(accept)}, domain.OutcomeReject},
		{"all reject", []*domain.Review{completed(reject), completed(reject), completed(reject), completed(reject)}, domain.OutcomeReject},
		{"reject with open slot", []*domain.Review{completed(reject), completed(reject), completed(reject), open}, domain.OutcomeStillPending},
		{"oversized unanimous accept", []*domain.Review{completed(accept), completed(accept), completed(accept), completed(accept), completed(accept)}, domain.OutcomePublish},
		{"oversized reject in extra seat", []*domain.Review{completed(accept), completed(accept), completed(accept), completed(accept), completed(reject)}, domain.OutcomeReject},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, computeOutcome(tc.reviews, 4))
		})
	}
}

func TestReconcileOversizedPanel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	relaxed := config.DefaultReviewPolicy()
	relaxed.EnforceSlotCap = false
	f.policy.Store(relaxed)
	defer f.policy.Store(config.DefaultReviewPolicy())

	seatExtra := func(t *testing.T, manuscript *manuscriptdomain.Manuscript, name string) *domain.Review {
		t.Helper()
		extra := f.seedUser(t, name, identitydomain.RoleReviewer)
		result, err := f.svc.Invite(ctx, manuscript.ID, extra.Email, extra.Name)
		require.NoError(t, err)
		require.NotNil(t, result.Review)
		return result.Review
	}

	t.Run("five unanimous accepts publish", func(t *testing.T) {
		manuscript, _, reviews := f.seedPanel(t)
		reviews = append(reviews, seatExtra(t, manuscript, "fifth accepter"))
		f.events.reset()

		f.completePanel(t, reviews, []domain.Decision{
			domain.DecisionAccept, domain.DecisionAccept, domain.DecisionAccept,
			domain.DecisionAccept, domain.DecisionAccept,
		})

		outcome, err := f.svc.Reconcile(ctx, manuscript.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomePublish, outcome)
		assert.Equal(t, manuscriptdomain.StatusPublished, f.reloadManuscript(t, manuscript.ID).Status)
		assert.Len(t, f.events.byKind(notifdomain.KindAuthorPublication), 1)
	})

	t.Run("a reject from the extra seat rejects", func(t *testing.T) {
		manuscript, _, reviews := f.seedPanel(t)
		reviews = append(reviews, seatExtra(t, manuscript, "fifth rejecter"))
		f.events.reset()

		f.completePanel(t, reviews, []domain.Decision{
			domain.DecisionAccept, domain.DecisionAccept, domain.DecisionAccept,
			domain.DecisionAccept, domain.DecisionReject,
		})

		outcome, err := f.svc.Reconcile(ctx, manuscript.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeReject, outcome)
		assert.Equal(t, manuscriptdomain.StatusRejected, f.reloadManuscript(t, manuscript.ID).Status)

		rejections := f.events.byKind(notifdomain.KindAuthorRejection)
		require.Len(t, rejections, 1)
		assert.Equal(t, 1, rejections[0].Data["reject_count"])
	})
}

func TestReconcileMissingAuthorStillTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	manuscript, _, reviews := f.seedPanel(t)
	f.completePanel(t, reviews, []domain.Decision{
		domain.DecisionAccept, domain.DecisionAccept, domain.DecisionAccept, domain.DecisionAccept,
	})
	require.NoError(t, f.db.Where("id = ?", manuscript.AuthorID).Delete(&identitydomain.User{}).Error)

	outcome, err := f.svc.Reconcile(ctx, manuscript.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomePublish, outcome)
	assert.Equal(t, manuscriptdomain.StatusPublished, f.reloadManuscript(t, manuscript.ID).Status)
	assert.Empty(t, f.events.byKind(notifdomain.KindAuthorPublication))
}
