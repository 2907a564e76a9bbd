package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invitation *Invitation) error
	FindByToken(ctx context.Context, db *gorm.DB, token string) (*Invitation, error)
	FindPending(ctx context.Context, db *gorm.DB, manuscriptID snowflake.ID, email string) (*Invitation, error)
	ListByManuscript(ctx context.Context, db *gorm.DB, manuscriptID snowflake.ID) ([]*Invitation, error)
	// MarkStatus conditionally moves an invitation from one status to
	// another and reports whether a row changed.
	MarkStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status, now time.Time) (bool, error)
}
