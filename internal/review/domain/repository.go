package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// CompletionUpdate carries the fields written when a reviewer submits their
// decision.
type CompletionUpdate struct {
	Decision         Decision
	CommentsToAuthor string
	CommentsToEditor string
	SubmittedAt      time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, review *Review) error
	CountByManuscript(ctx context.Context, db *gorm.DB, manuscriptID snowflake.ID) (int64, error)
	ListByManuscript(ctx context.Context, db *gorm.DB, manuscriptID snowflake.ID) ([]*Review, error)
	// FindForReviewer looks a review up by id and enforces that reviewerID
	// is the assigned reviewer for that slot.
	FindForReviewer(ctx context.Context, db *gorm.DB, reviewID, reviewerID snowflake.ID) (*Review, error)
	ListByReviewer(ctx context.Context, db *gorm.DB, reviewerID snowflake.ID, completed bool) ([]*Review, error)
	CountOpenByReviewer(ctx context.Context, db *gorm.DB, reviewerID snowflake.ID) (int64, error)
	// Start conditionally moves a review from pending or invited to
	// in_progress and reports whether a row changed.
	Start(ctx context.Context, db *gorm.DB, reviewID, reviewerID snowflake.ID, now time.Time) (bool, error)
	// Complete conditionally records a decision on a not-yet-completed
	// review and reports whether a row changed.
	Complete(ctx context.Context, db *gorm.DB, reviewID, reviewerID snowflake.ID, update CompletionUpdate, now time.Time) (bool, error)
}
