package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var ErrNotFound = errors.New("not_found")

// Dispatcher delivers a notification event best-effort: delivery failures are
// logged and swallowed, never surfaced to the triggering operation.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event)
}

type Service interface {
	List(ctx context.Context, userID snowflake.ID) ([]Notification, error)
	MarkRead(ctx context.Context, id, userID snowflake.ID) error
}
