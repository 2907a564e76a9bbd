package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openpress/peerflow/internal/notification/domain"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, notification *domain.Notification) error
	ListByUser(ctx context.Context, userID snowflake.ID) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id, userID snowflake.ID, readAt time.Time) error
}

type repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) Repository {
	return &repo{db: db}
}

func (r *repo) Insert(ctx context.Context, notification *domain.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *repo) ListByUser(ctx context.Context, userID snowflake.ID) ([]domain.Notification, error) {
	var notifications []domain.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Limit(50).
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *repo) MarkRead(ctx context.Context, id, userID snowflake.ID, readAt time.Time) error {
	tx := r.db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", id, userID).
		Update("read_at", readAt)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
