package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound     = errors.New("invitation_not_found")
	ErrDuplicate    = errors.New("invitation_exists")
	ErrExpired      = errors.New("invitation_expired")
	ErrInvalidEmail = errors.New("invalid_email")
)

type Service interface {
	// Resolve maps a reviewer email to either an existing account, which is
	// promoted to the reviewer role, or a freshly minted invitation token.
	Resolve(ctx context.Context, manuscriptID snowflake.ID, email, name string) (Resolution, error)
	// Consume redeems a pending token exactly once and returns the
	// invitation it belonged to.
	Consume(ctx context.Context, token string) (*Invitation, error)
	FindByToken(ctx context.Context, token string) (*Invitation, error)
	ListByManuscript(ctx context.Context, manuscriptID snowflake.ID) ([]*Invitation, error)
}
