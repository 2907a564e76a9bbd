package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/openpress/peerflow/pkg/db/pagination"
)

var (
	ErrNotFound         = errors.New("manuscript_not_found")
	ErrInvalidTitle     = errors.New("invalid_title")
	ErrInvalidJournal   = errors.New("invalid_journal")
	ErrNotWithdrawable  = errors.New("not_withdrawable")
	ErrInvalidPageToken = errors.New("invalid_page_token")
)

type SubmitRequest struct {
	JournalID snowflake.ID
	AuthorID  snowflake.ID
	Title     string
	Abstract  string
	Keywords  []string
}

type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (Manuscript, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Manuscript, error)
	ListByAuthor(ctx context.Context, authorID snowflake.ID, page pagination.Pagination) ([]*Manuscript, *pagination.PageInfo, error)
	// Withdraw takes a manuscript out of the pipeline at the author's request.
	// Only submitted and under-review manuscripts can be withdrawn.
	Withdraw(ctx context.Context, id, authorID snowflake.ID) error
}
