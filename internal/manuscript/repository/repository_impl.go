package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openpress/peerflow/internal/manuscript/domain"
	"github.com/openpress/peerflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func New() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, manuscript *domain.Manuscript) error {
	return db.WithContext(ctx).Create(manuscript).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Manuscript, error) {
	var manuscript domain.Manuscript
	err := db.WithContext(ctx).Where("id = ?", id).First(&manuscript).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &manuscript, nil
}

func (r *repo) ListByAuthor(ctx context.Context, db *gorm.DB, authorID snowflake.ID, cursor *pagination.Cursor, limit int) ([]*domain.Manuscript, error) {
	q := db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("id desc")
	if cursor != nil && cursor.ID != "" {
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, domain.ErrInvalidPageToken
		}
		q = q.Where("id < ?", id)
	}
	if limit > 0 {
		q = q.Limit(limit + 1)
	}

	var manuscripts []*domain.Manuscript
	if err := q.Find(&manuscripts).Error; err != nil {
		return nil, err
	}
	return manuscripts, nil
}

func (r *repo) TransitionStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, update domain.StatusUpdate, now time.Time) (bool, error) {
	fields := map[string]any{
		"status":     update.To,
		"updated_at": now,
	}
	if update.AcceptanceDate != nil {
		fields["acceptance_date"] = *update.AcceptanceDate
	}
	if update.PublicationDate != nil {
		fields["publication_date"] = *update.PublicationDate
	}

	tx := db.WithContext(ctx).
		Model(&domain.Manuscript{}).
		Where("id = ? AND status IN ?", id, update.From).
		Updates(fields)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
