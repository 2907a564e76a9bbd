// Package domain contains core types for the manuscript lifecycle.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusPublished   Status = "published"
	StatusRejected    Status = "rejected"
	// StatusAccepted marks an in-press manuscript handled by downstream
	// publication scheduling.
	StatusAccepted  Status = "accepted"
	StatusWithdrawn Status = "withdrawn"
)

// Manuscript is a submitted article moving through the review lifecycle.
// Status only ever changes through guarded conditional updates: assignment
// moves submitted → under_review, reconciliation moves under_review →
// published/rejected, and a withdrawal moves submitted/under_review →
// withdrawn.
type Manuscript struct {
	ID              snowflake.ID                 `gorm:"primaryKey" json:"id"`
	JournalID       snowflake.ID                 `gorm:"column:journal_id;not null;index" json:"journal_id"`
	AuthorID        snowflake.ID                 `gorm:"column:author_id;not null;index" json:"author_id"`
	Title           string                       `gorm:"not null" json:"title"`
	Slug            string                       `gorm:"column:slug;index" json:"slug,omitempty"`
	Abstract        string                       `gorm:"type:text" json:"abstract,omitempty"`
	Keywords        datatypes.JSONSlice[string]  `gorm:"type:jsonb" json:"keywords,omitempty"`
	Status          Status                       `gorm:"column:status;not null;default:'submitted'" json:"status"`
	AcceptanceDate  *time.Time                   `gorm:"column:acceptance_date" json:"acceptance_date,omitempty"`
	PublicationDate *time.Time                   `gorm:"column:publication_date" json:"publication_date,omitempty"`
	CreatedAt       time.Time                    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time                    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Manuscript) TableName() string { return "manuscripts" }
