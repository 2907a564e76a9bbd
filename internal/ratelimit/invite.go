package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openpress/peerflow/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const keyInviteEditor = "invite:editor:%s"

// InviteLimiter throttles reviewer invitations per editor so a compromised
// or runaway account cannot spray invitation emails.
type InviteLimiter struct {
	enabled bool

	bucket *TokenBucket

	rate  float64
	burst int
}

func NewInviteLimiter(cfg config.Config) (*InviteLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.InviteRate <= 0 || limitCfg.InviteBurst <= 0 {
		return nil, errors.New("invite rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &InviteLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    limitCfg.InviteRate,
		burst:   limitCfg.InviteBurst,
	}, nil
}

func (l *InviteLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *InviteLimiter) AllowEditor(ctx context.Context, editorID string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyInviteEditor, strings.TrimSpace(editorID)), l.rate, l.burst)
}
