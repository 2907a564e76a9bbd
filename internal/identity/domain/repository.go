package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id snowflake.ID) (*User, error)
	FindByIDs(ctx context.Context, ids []snowflake.ID) ([]*User, error)
	FindByRole(ctx context.Context, role Role, activeOnly bool) ([]*User, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
}
