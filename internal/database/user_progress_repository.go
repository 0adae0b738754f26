package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/flashcards/pkg/models"
)

const progressColumns = `id, user_id, item_id, last_review_date, next_review_date, interval_days,
	easiness_factor, repetitions, last_quality, consecutive_right, is_learned, created_at, updated_at`

// UserProgressRepository handles database operations for user progress
type UserProgressRepository struct{}

// NewUserProgressRepository creates a new repository instance
func NewUserProgressRepository() *UserProgressRepository {
	return &UserProgressRepository{}
}

// GetByUserAndItem returns progress for a specific user and item
func (r *UserProgressRepository) GetByUserAndItem(ctx context.Context, userID, itemID int64) (*models.UserProgress, error) {
	return r.getByUserAndItem(ctx, DB, userID, itemID)
}

func (r *UserProgressRepository) getByUserAndItem(ctx context.Context, q sqlx.QueryerContext, userID, itemID int64) (*models.UserProgress, error) {
	var progress models.UserProgress
	err := sqlx.GetContext(ctx, q, &progress,
		rebind("SELECT "+progressColumns+" FROM user_progress WHERE user_id = ? AND item_id = ?"), userID, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("progress of user %d on item %d: %w", userID, itemID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user progress: %w", err)
	}
	return &progress, nil
}

// GetByUser returns all progress records of a user
func (r *UserProgressRepository) GetByUser(ctx context.Context, userID int64) ([]models.UserProgress, error) {
	progress := []models.UserProgress{}
	err := DB.SelectContext(ctx, &progress,
		rebind("SELECT "+progressColumns+" FROM user_progress WHERE user_id = ? ORDER BY item_id"), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user progress: %w", err)
	}
	return progress, nil
}

// GetDueItemsForUser returns progress records due for review at now
func (r *UserProgressRepository) GetDueItemsForUser(ctx context.Context, userID int64, now time.Time) ([]models.UserProgress, error) {
	progress := []models.UserProgress{}
	err := DB.SelectContext(ctx, &progress, rebind(`
		SELECT `+progressColumns+` FROM user_progress
		WHERE user_id = ? AND next_review_date <= ?
		ORDER BY next_review_date ASC
	`), userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get due items: %w", err)
	}
	return progress, nil
}

// Upsert inserts or updates the progress record of (user, item)
func (r *UserProgressRepository) Upsert(ctx context.Context, progress *models.UserProgress) error {
	return r.upsert(ctx, DB, progress)
}

func (r *UserProgressRepository) upsert(ctx context.Context, q sqlx.QueryerContext, progress *models.UserProgress) error {
	now := time.Now().UTC()
	err := sqlx.GetContext(ctx, q, progress, rebind(`
		INSERT INTO user_progress (
			user_id, item_id, last_review_date, next_review_date, interval_days,
			easiness_factor, repetitions, last_quality, consecutive_right, is_learned,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, item_id) DO UPDATE SET
			last_review_date = excluded.last_review_date,
			next_review_date = excluded.next_review_date,
			interval_days = excluded.interval_days,
			easiness_factor = excluded.easiness_factor,
			repetitions = excluded.repetitions,
			last_quality = excluded.last_quality,
			consecutive_right = excluded.consecutive_right,
			is_learned = excluded.is_learned,
			updated_at = excluded.updated_at
		RETURNING `+progressColumns),
		progress.UserID, progress.ItemID, progress.LastReviewDate.UTC(), progress.NextReviewDate.UTC(),
		progress.Interval, progress.EasinessFactor, progress.Repetitions, progress.LastQuality,
		progress.ConsecutiveRight, progress.IsLearned, now, now)
	if err != nil {
		return fmt.Errorf("failed to save user progress: %w", err)
	}
	return nil
}
