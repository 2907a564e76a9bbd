package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ReviewPolicy captures the editorial parameters of the review protocol.
// ReviewerSlots is fixed at 4 by the journal's publication rules; the other
// knobs exist so self-hosted journals can tune deadlines without a rebuild.
type ReviewPolicy struct {
	ReviewerSlots        int  `mapstructure:"reviewerSlots"`
	ReviewDueDays        int  `mapstructure:"reviewDueDays"`
	InvitationExpiryDays int  `mapstructure:"invitationExpiryDays"`
	EnforceSlotCap       bool `mapstructure:"enforceSlotCap"`
	MaxOpenReviews       int  `mapstructure:"maxOpenReviews"`
}

func DefaultReviewPolicy() ReviewPolicy {
	return ReviewPolicy{
		ReviewerSlots:        4,
		ReviewDueDays:        14,
		InvitationExpiryDays: 7,
		EnforceSlotCap:       true,
		MaxOpenReviews:       5,
	}
}

// ReviewPolicyHolder exposes the current policy and hot-reloads it when the
// mounted review.yml changes.
type ReviewPolicyHolder struct {
	current atomic.Value // holds ReviewPolicy
}

func NewReviewPolicyHolder() (*ReviewPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("review")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/peerflow/config")
	v.AddConfigPath("/etc/peerflow")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PEERFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultReviewPolicy()
	v.SetDefault("review.reviewerSlots", defaults.ReviewerSlots)
	v.SetDefault("review.reviewDueDays", defaults.ReviewDueDays)
	v.SetDefault("review.invitationExpiryDays", defaults.InvitationExpiryDays)
	v.SetDefault("review.enforceSlotCap", defaults.EnforceSlotCap)
	v.SetDefault("review.maxOpenReviews", defaults.MaxOpenReviews)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var policy ReviewPolicy
	if err := v.UnmarshalKey("review", &policy); err != nil {
		return nil, err
	}
	if err := validateReviewPolicy(policy); err != nil {
		return nil, err
	}

	holder := &ReviewPolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ReviewPolicy
		if err := v.UnmarshalKey("review", &updated); err != nil {
			log.Printf("[review-policy] reload failed: %v", err)
			return
		}
		if err := validateReviewPolicy(updated); err != nil {
			log.Printf("[review-policy] invalid policy ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[review-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *ReviewPolicyHolder) Get() ReviewPolicy {
	return h.current.Load().(ReviewPolicy)
}

// Store replaces the current policy. Intended for tests.
func (h *ReviewPolicyHolder) Store(policy ReviewPolicy) {
	h.current.Store(policy)
}

func validateReviewPolicy(policy ReviewPolicy) error {
	if policy.ReviewerSlots <= 0 {
		return errors.New("review.reviewerSlots must be positive")
	}
	if policy.ReviewDueDays <= 0 {
		return errors.New("review.reviewDueDays must be positive")
	}
	if policy.InvitationExpiryDays <= 0 {
		return errors.New("review.invitationExpiryDays must be positive")
	}
	return nil
}
