package service

import (
	"context"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	identitydomain "github.com/openpress/peerflow/internal/identity/domain"
	"github.com/openpress/peerflow/internal/review/domain"
	"go.uber.org/zap"
)

type candidate struct {
	user  *identitydomain.User
	score int
	open  int64
}

// AutoAssign fills the panel from the reviewer pool. Candidates are ranked by
// keyword affinity against their profile and by current workload, then the
// top slots are handed to Assign, which enforces the usual atomicity.
func (s *Service) AutoAssign(ctx context.Context, manuscriptID snowflake.ID, exclude []snowflake.ID) ([]*domain.Review, error) {
	manuscript, err := s.manuscripts.FindByID(ctx, s.db, manuscriptID)
	if err != nil {
		return nil, err
	}

	pool, err := s.identity.ListReviewers(ctx)
	if err != nil {
		return nil, err
	}

	excluded := make(map[snowflake.ID]struct{}, len(exclude)+1)
	excluded[manuscript.AuthorID] = struct{}{}
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}

	policy := s.policy.Get()
	keywords := make([]string, 0, len(manuscript.Keywords))
	for _, kw := range manuscript.Keywords {
		keywords = append(keywords, strings.ToLower(kw))
	}

	candidates := make([]candidate, 0, len(pool))
	for _, user := range pool {
		if _, skip := excluded[user.ID]; skip {
			continue
		}
		open, err := s.repo.CountOpenByReviewer(ctx, s.db, user.ID)
		if err != nil {
			return nil, err
		}
		if policy.MaxOpenReviews > 0 && open >= int64(policy.MaxOpenReviews) {
			continue
		}
		candidates = append(candidates, candidate{
			user:  user,
			score: profileScore(user, keywords),
			open:  open,
		})
	}

	if len(candidates) < policy.ReviewerSlots {
		return nil, domain.ErrNoEligibleReviewer
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].open != candidates[j].open {
			return candidates[i].open < candidates[j].open
		}
		return candidates[i].user.ID < candidates[j].user.ID
	})

	picked := make([]snowflake.ID, 0, policy.ReviewerSlots)
	for _, c := range candidates[:policy.ReviewerSlots] {
		picked = append(picked, c.user.ID)
	}

	s.log.Info("auto-assign selected panel",
		zap.String("manuscript_id", manuscriptID.String()),
		zap.Int("pool", len(candidates)),
	)
	return s.Assign(ctx, manuscriptID, picked)
}

// profileScore counts manuscript keywords appearing in the reviewer's bio,
// affiliation, or university.
func profileScore(user *identitydomain.User, keywords []string) int {
	profile := strings.ToLower(user.Bio + " " + user.Affiliation + " " + user.University)
	score := 0
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(profile, kw) {
			score++
		}
	}
	return score
}
