// Package domain contains core types for reviewer invitations.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusExpired  Status = "expired"
)

// Invitation is an emailed offer to review a manuscript, addressed to
// someone who may not have an account yet. The token is single use and
// only redeemable while the invitation is pending and unexpired.
type Invitation struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	ManuscriptID snowflake.ID `gorm:"column:manuscript_id;not null;index" json:"manuscript_id"`
	Email        string       `gorm:"not null;index" json:"email"`
	Name         string       `gorm:"not null" json:"name"`
	Token        string       `gorm:"not null;uniqueIndex" json:"-"`
	Status       Status       `gorm:"column:status;not null;default:'pending'" json:"status"`
	ExpiresAt    time.Time    `gorm:"column:expires_at;not null" json:"expires_at"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invitation) TableName() string { return "reviewer_invitations" }

type ResolutionMode string

const (
	// ModeAssignExisting means the email belongs to a registered user who
	// can be seated on the review panel immediately.
	ModeAssignExisting ResolutionMode = "assign_existing"
	// ModeInvited means an invitation was recorded and the seat stays open
	// until the token is redeemed.
	ModeInvited ResolutionMode = "invited"
)

// Resolution is the outcome of resolving a reviewer email for a manuscript.
type Resolution struct {
	Mode   ResolutionMode
	UserID snowflake.ID
	Token  string
}
