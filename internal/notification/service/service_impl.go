package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/openpress/peerflow/internal/clock"
	"github.com/openpress/peerflow/internal/notification/domain"
	"github.com/openpress/peerflow/internal/notification/repository"
	"github.com/openpress/peerflow/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Log    *zap.Logger
	Clock  clock.Clock
	GenID  *snowflake.Node
	Repo   repository.Repository
	Sender email.Provider
}

type Service struct {
	log    *zap.Logger
	clock  clock.Clock
	genID  *snowflake.Node
	repo   repository.Repository
	sender email.Provider
}

func New(p Params) *Service {
	return &Service{
		log:    p.Log.Named("notification.service"),
		clock:  p.Clock,
		genID:  p.GenID,
		repo:   p.Repo,
		sender: p.Sender,
	}
}

func NewDispatcher(s *Service) domain.Dispatcher { return s }

func NewService(s *Service) domain.Service { return s }

// Dispatch writes the in-app notification row and sends the templated email.
// Every failure is logged and swallowed; the triggering operation must never
// fail because a notification could not be delivered.
func (s *Service) Dispatch(ctx context.Context, event domain.Event) {
	if event.UserID != 0 {
		data := datatypes.JSONMap{}
		for k, v := range event.Data {
			data[k] = v
		}
		record := domain.Notification{
			ID:        s.genID.Generate(),
			UserID:    event.UserID,
			Kind:      event.Kind,
			Title:     event.Title,
			Message:   event.Message,
			Link:      event.Link,
			Data:      data,
			CreatedAt: s.clock.Now().UTC(),
		}
		if err := s.repo.Insert(ctx, &record); err != nil {
			s.log.Warn("store notification",
				zap.String("kind", string(event.Kind)),
				zap.String("user_id", event.UserID.String()),
				zap.Error(err),
			)
		}
	}

	if event.Email == "" {
		return
	}

	data := map[string]any{"subject": event.Title}
	for k, v := range event.Data {
		data[k] = v
	}
	if err := s.sender.SendTemplate(ctx, []string{event.Email}, string(event.Kind), data); err != nil {
		s.log.Warn("send notification email",
			zap.String("kind", string(event.Kind)),
			zap.String("email", event.Email),
			zap.Error(err),
		)
	}
}

func (s *Service) List(ctx context.Context, userID snowflake.ID) ([]domain.Notification, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, id, userID snowflake.ID) error {
	return s.repo.MarkRead(ctx, id, userID, s.clock.Now().UTC())
}
