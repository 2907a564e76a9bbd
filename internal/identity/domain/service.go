package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type RegisterRequest struct {
	Name       string
	Email      string
	Password   string
	University string
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByIDs(ctx context.Context, ids []snowflake.ID) ([]*User, error)
	ListReviewers(ctx context.Context) ([]*User, error)
	// UpgradeRole promotes a default-role account to the given role. The
	// promotion is one-way and idempotent: accounts already holding the role,
	// or a privileged one, are left untouched.
	UpgradeRole(ctx context.Context, id snowflake.ID, role Role) error
}
