// Package domain contains core types for the identity service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Role string

const (
	RoleAuthor   Role = "author"
	RoleReviewer Role = "reviewer"
	RoleEditor   Role = "editor"
	RoleAdmin    Role = "admin"
)

// IsDefault reports whether the role is a non-privileged default that may be
// upgraded to reviewer when the account is recruited for a review.
func (r Role) IsDefault() bool {
	return r == RoleAuthor || r == ""
}

// User represents a portal account.
type User struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name         string            `gorm:"not null" json:"name"`
	Email        string            `gorm:"not null;uniqueIndex" json:"email"`
	PasswordHash *string           `gorm:"type:text" json:"-"`
	University   string            `gorm:"column:university" json:"university,omitempty"`
	Affiliation  string            `gorm:"column:affiliation" json:"affiliation,omitempty"`
	Bio          string            `gorm:"type:text" json:"bio,omitempty"`
	Role         Role              `gorm:"column:role;not null;default:'author'" json:"role"`
	IsActive     bool              `gorm:"column:is_active;not null;default:true" json:"is_active"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }
