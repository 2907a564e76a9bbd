package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openpress/peerflow/internal/review/domain"
	"gorm.io/gorm"
)

type repo struct{}

func New() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, review *domain.Review) error {
	return db.WithContext(ctx).Create(review).Error
}

func (r *repo) CountByManuscript(ctx context.Context, db *gorm.DB, manuscriptID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Review{}).
		Where("manuscript_id = ?", manuscriptID).
		Count(&count).Error
	return count, err
}

func (r *repo) ListByManuscript(ctx context.Context, db *gorm.DB, manuscriptID snowflake.ID) ([]*domain.Review, error) {
	var reviews []*domain.Review
	err := db.WithContext(ctx).
		Where("manuscript_id = ?", manuscriptID).
		Order("reviewer_number asc").
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *repo) FindForReviewer(ctx context.Context, db *gorm.DB, reviewID, reviewerID snowflake.ID) (*domain.Review, error) {
	var review domain.Review
	err := db.WithContext(ctx).
		Where("id = ? AND reviewer_id = ?", reviewID, reviewerID).
		First(&review).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *repo) ListByReviewer(ctx context.Context, db *gorm.DB, reviewerID snowflake.ID, completed bool) ([]*domain.Review, error) {
	q := db.WithContext(ctx).Where("reviewer_id = ?", reviewerID)
	if completed {
		q = q.Where("status = ?", domain.StatusCompleted).Order("submitted_at desc")
	} else {
		q = q.Where("status <> ?", domain.StatusCompleted).Order("due_date asc")
	}

	var reviews []*domain.Review
	if err := q.Find(&reviews).Error; err != nil {
		return nil, err
	}
	return reviews, nil
}

func (r *repo) CountOpenByReviewer(ctx context.Context, db *gorm.DB, reviewerID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Review{}).
		Where("reviewer_id = ? AND status <> ?", reviewerID, domain.StatusCompleted).
		Count(&count).Error
	return count, err
}

func (r *repo) Start(ctx context.Context, db *gorm.DB, reviewID, reviewerID snowflake.ID, now time.Time) (bool, error) {
	tx := db.WithContext(ctx).
		Model(&domain.Review{}).
		Where("id = ? AND reviewer_id = ? AND status IN ?",
			reviewID, reviewerID, []domain.Status{domain.StatusPending, domain.StatusInvited}).
		Updates(map[string]any{
			"status":     domain.StatusInProgress,
			"updated_at": now,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *repo) Complete(ctx context.Context, db *gorm.DB, reviewID, reviewerID snowflake.ID, update domain.CompletionUpdate, now time.Time) (bool, error) {
	tx := db.WithContext(ctx).
		Model(&domain.Review{}).
		Where("id = ? AND reviewer_id = ? AND status <> ?",
			reviewID, reviewerID, domain.StatusCompleted).
		Updates(map[string]any{
			"status":             domain.StatusCompleted,
			"decision":           update.Decision,
			"comments_to_author": update.CommentsToAuthor,
			"comments_to_editor": update.CommentsToEditor,
			"submitted_at":       update.SubmittedAt,
			"updated_at":         now,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
