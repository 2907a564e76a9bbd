package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openpress/peerflow/internal/invitation/domain"
	"gorm.io/gorm"
)

type repo struct{}

func New() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invitation *domain.Invitation) error {
	return db.WithContext(ctx).Create(invitation).Error
}

func (r *repo) FindByToken(ctx context.Context, db *gorm.DB, token string) (*domain.Invitation, error) {
	var invitation domain.Invitation
	err := db.WithContext(ctx).Where("token = ?", token).First(&invitation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (r *repo) FindPending(ctx context.Context, db *gorm.DB, manuscriptID snowflake.ID, email string) (*domain.Invitation, error) {
	var invitation domain.Invitation
	err := db.WithContext(ctx).
		Where("manuscript_id = ? AND email = ? AND status = ?", manuscriptID, email, domain.StatusPending).
		First(&invitation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (r *repo) ListByManuscript(ctx context.Context, db *gorm.DB, manuscriptID snowflake.ID) ([]*domain.Invitation, error) {
	var invitations []*domain.Invitation
	err := db.WithContext(ctx).
		Where("manuscript_id = ?", manuscriptID).
		Order("created_at asc, id asc").
		Find(&invitations).Error
	if err != nil {
		return nil, err
	}
	return invitations, nil
}

func (r *repo) MarkStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.Status, now time.Time) (bool, error) {
	tx := db.WithContext(ctx).
		Model(&domain.Invitation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": now,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
