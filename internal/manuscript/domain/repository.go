package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openpress/peerflow/pkg/db/pagination"
	"gorm.io/gorm"
)

// StatusUpdate describes a guarded status transition. The update only applies
// when the manuscript currently holds one of From; Applied reports whether
// this caller won the transition.
type StatusUpdate struct {
	From            []Status
	To              Status
	AcceptanceDate  *time.Time
	PublicationDate *time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, manuscript *Manuscript) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Manuscript, error)
	// ListByAuthor fetches one page plus one extra row so the caller can
	// detect whether more pages exist.
	ListByAuthor(ctx context.Context, db *gorm.DB, authorID snowflake.ID, cursor *pagination.Cursor, limit int) ([]*Manuscript, error)
	// TransitionStatus performs the atomic conditional update guarding every
	// lifecycle edge. It returns true when a row changed.
	TransitionStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, update StatusUpdate, now time.Time) (bool, error)
}
