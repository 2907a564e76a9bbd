package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	manuscriptdomain "github.com/openpress/peerflow/internal/manuscript/domain"
)

var (
	ErrNotFound           = errors.New("review_not_found")
	ErrAlreadyAssigned    = errors.New("already_assigned")
	ErrAlreadySubmitted   = errors.New("already_submitted")
	ErrInvalidReviewerSet = errors.New("invalid_reviewer_set")
	ErrInvalidDecision    = errors.New("invalid_decision")
	ErrSlotsFilled        = errors.New("reviewer_slots_filled")
	ErrNotCompleted       = errors.New("review_not_completed")
	ErrNoEligibleReviewer = errors.New("no_eligible_reviewer")
)

type SubmitDecisionRequest struct {
	ManuscriptID     snowflake.ID
	ReviewID         snowflake.ID
	ReviewerID       snowflake.ID
	Decision         Decision
	CommentsToAuthor string
	CommentsToEditor string
}

// InviteResult reports how a single-reviewer invite resolved: either a seated
// review for an existing account, or a pending invitation token.
type InviteResult struct {
	Invited bool
	Token   string
	Review  *Review
}

// Progress is the editor-facing aggregate view of one manuscript's panel.
type Progress struct {
	ManuscriptID     snowflake.ID            `json:"manuscript_id"`
	ManuscriptStatus manuscriptdomain.Status `json:"manuscript_status"`
	CompletedCount   int                     `json:"completed_count"`
	Outcome          Outcome                 `json:"outcome"`
	Reviews          []*Review               `json:"reviews"`
}

type Service interface {
	// Assign seats a full panel of distinct reviewers on a submitted
	// manuscript. The record creation and the move to under_review are
	// atomic as a unit; assignment happens at most once per manuscript.
	Assign(ctx context.Context, manuscriptID snowflake.ID, reviewerIDs []snowflake.ID) ([]*Review, error)
	// Invite recruits one reviewer by email, seating them immediately when
	// an account exists and issuing an invitation token otherwise.
	Invite(ctx context.Context, manuscriptID snowflake.ID, email, name string) (InviteResult, error)
	// AcceptInvitation redeems an invitation token for the registered user
	// and seats them on the panel.
	AcceptInvitation(ctx context.Context, token string, userID snowflake.ID) (*Review, error)
	StartReview(ctx context.Context, reviewID, reviewerID snowflake.ID) (*Review, error)
	SubmitDecision(ctx context.Context, req SubmitDecisionRequest) (*Review, error)
	// Reconcile aggregates the panel's decisions and applies the terminal
	// manuscript transition at most once. Safe to call redundantly.
	Reconcile(ctx context.Context, manuscriptID snowflake.ID) (Outcome, error)
	// GetReview returns the review only to its assigned reviewer.
	GetReview(ctx context.Context, reviewID, callerID snowflake.ID) (*Review, error)
	ListAssignments(ctx context.Context, reviewerID snowflake.ID) ([]*Review, error)
	ListCompleted(ctx context.Context, reviewerID snowflake.ID) ([]*Review, error)
	ManuscriptStatus(ctx context.Context, manuscriptID snowflake.ID) (*Progress, error)
	// AutoAssign picks a full panel from the reviewer pool by keyword
	// affinity and workload, then delegates to Assign.
	AutoAssign(ctx context.Context, manuscriptID snowflake.ID, exclude []snowflake.ID) ([]*Review, error)
	// Certificate renders a PDF certificate for a completed review.
	Certificate(ctx context.Context, reviewID, reviewerID snowflake.ID) ([]byte, error)
}
