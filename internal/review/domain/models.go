// Package domain contains the review protocol's core types. A manuscript is
// reviewed by four independent reviewers; each owns one Review row with its
// own small state machine, and the aggregate of the four decisions drives the
// manuscript's terminal transition.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	// StatusInvited marks a slot filled through the invitation protocol by
	// someone who had no account at assignment time.
	StatusInvited    Status = "invited"
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

func (d Decision) Valid() bool {
	return d == DecisionAccept || d == DecisionReject
}

// Outcome is the aggregate editorial result of a reconciliation pass.
type Outcome string

const (
	OutcomeStillPending Outcome = "still_pending"
	OutcomePublish      Outcome = "publish"
	OutcomeReject       Outcome = "reject"
)

// Review is one reviewer's assignment and decision state for a manuscript.
// Decision is set exactly when Status is completed; ReviewerNumber is fixed
// at creation and used only for display ordering.
type Review struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	ManuscriptID     snowflake.ID `gorm:"column:manuscript_id;not null;index;uniqueIndex:idx_reviews_manuscript_reviewer" json:"manuscript_id"`
	ReviewerID       snowflake.ID `gorm:"column:reviewer_id;not null;index;uniqueIndex:idx_reviews_manuscript_reviewer" json:"reviewer_id"`
	ReviewerNumber   int          `gorm:"column:reviewer_number;not null" json:"reviewer_number"`
	Status           Status       `gorm:"column:status;not null;default:'pending'" json:"status"`
	Decision         *Decision    `gorm:"column:decision" json:"decision,omitempty"`
	CommentsToAuthor string       `gorm:"column:comments_to_author;type:text" json:"comments_to_author,omitempty"`
	CommentsToEditor string       `gorm:"column:comments_to_editor;type:text" json:"-"`
	DueDate          time.Time    `gorm:"column:due_date;not null" json:"due_date"`
	SubmittedAt      *time.Time   `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Review) TableName() string { return "reviews" }

func (r *Review) Completed() bool { return r.Status == StatusCompleted }
