package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Kind string

const (
	KindReviewerAssignment     Kind = "reviewer_assignment"
	KindReviewerInvitation     Kind = "reviewer_invitation"
	KindReviewConfirmation     Kind = "review_confirmation"
	KindAuthorDecisionFeedback Kind = "author_decision_feedback"
	KindAuthorPublication      Kind = "author_publication"
	KindAuthorRejection        Kind = "author_rejection"
	KindReviewStarted          Kind = "review_started"
)

// Notification is the in-app record written alongside each outbound email.
type Notification struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID      `gorm:"column:user_id;not null;index" json:"user_id"`
	Kind      Kind              `gorm:"column:kind;not null" json:"kind"`
	Title     string            `gorm:"not null" json:"title"`
	Message   string            `gorm:"type:text;not null" json:"message"`
	Link      string            `gorm:"column:link" json:"link,omitempty"`
	Data      datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"data,omitempty"`
	ReadAt    *time.Time        `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Notification) TableName() string { return "notifications" }

// Event describes one notification to deliver. UserID may be zero when the
// recipient has no account yet (invitation emails).
type Event struct {
	Kind    Kind
	UserID  snowflake.ID
	Email   string
	Title   string
	Message string
	Link    string
	Data    map[string]any
}
