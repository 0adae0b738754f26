package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/flashcards/internal/spaced_repetition"
	"github.com/example/flashcards/pkg/models"
)

const answerColumns = "id, item_id, user_id, item_asked_id, item_answered_id, direction, meta, response_time, answered_at"

// AnswerRepository handles database operations for flashcard answers
type AnswerRepository struct {
	sm2      *spaced_repetition.SM2
	progress *UserProgressRepository
}

// NewAnswerRepository creates a new repository instance
func NewAnswerRepository() *AnswerRepository {
	return &AnswerRepository{
		sm2:      spaced_repetition.NewSM2(),
		progress: NewUserProgressRepository(),
	}
}

// Create stores the answer with its options and advances the user's
// progress on the asked item
func (r *AnswerRepository) Create(ctx context.Context, answer *models.FlashcardAnswer) error {
	if !models.ValidDirection(answer.Direction) {
		return fmt.Errorf("%q: %w", answer.Direction, ErrInvalidDirection)
	}
	if answer.Time.IsZero() {
		answer.Time = time.Now().UTC()
	}

	tx, err := DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	itemID, err := ensureItem(ctx, tx, answer.ItemID, models.ItemTypeAnswer)
	if err != nil {
		tx.Rollback()
		return err
	}

	id, err := insertReturningID(ctx, tx, `
		INSERT INTO flashcard_answers (
			item_id, user_id, item_asked_id, item_answered_id,
			direction, meta, response_time, answered_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, itemID, answer.UserID, answer.ItemAskedID, answer.ItemAnsweredID,
		answer.Direction, answer.Meta, answer.ResponseTime, answer.Time)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create answer: %w", err)
	}

	for _, option := range answer.Options {
		_, err := tx.ExecContext(ctx, rebind(`
			INSERT INTO flashcard_answer_options (answer_id, term_id) VALUES (?, ?)
			ON CONFLICT (answer_id, term_id) DO NOTHING
		`), id, option.ID)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to add answer option %d: %w", option.ID, err)
		}
	}

	progress, err := r.progress.getByUserAndItem(ctx, tx, answer.UserID, answer.ItemAskedID)
	if errors.Is(err, ErrNotFound) {
		progress = models.NewUserProgress(answer.UserID, answer.ItemAskedID)
	} else if err != nil {
		tx.Rollback()
		return err
	}
	quality := spaced_repetition.AnswerQuality(answer.Correct(), time.Duration(answer.ResponseTime)*time.Millisecond)
	r.sm2.Process(progress, quality)
	if err := r.progress.upsert(ctx, tx, progress); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	answer.ID = id
	answer.ItemID = itemID
	return nil
}

// GetByID returns an answer with its options
func (r *AnswerRepository) GetByID(ctx context.Context, id int64) (*models.FlashcardAnswer, error) {
	var answer models.FlashcardAnswer
	err := DB.GetContext(ctx, &answer, rebind("SELECT "+answerColumns+" FROM flashcard_answers WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("answer %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get answer: %w", err)
	}
	answers := []models.FlashcardAnswer{answer}
	if err := loadAnswerOptions(ctx, DB, answers); err != nil {
		return nil, err
	}
	return &answers[0], nil
}

// GetByItemIDs returns the answers owning the given items, with options
func (r *AnswerRepository) GetByItemIDs(ctx context.Context, itemIDs []int64) ([]models.FlashcardAnswer, error) {
	answers := []models.FlashcardAnswer{}
	err := selectIn(ctx, DB, &answers, "SELECT "+answerColumns+" FROM flashcard_answers WHERE item_id IN (?) ORDER BY id", itemIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get answers: %w", err)
	}
	if err := loadAnswerOptions(ctx, DB, answers); err != nil {
		return nil, err
	}
	return answers, nil
}

// ListByUser returns the most recent answers of a user, newest first
func (r *AnswerRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]models.FlashcardAnswer, error) {
	answers := []models.FlashcardAnswer{}
	err := DB.SelectContext(ctx, &answers, rebind(`
		SELECT `+answerColumns+` FROM flashcard_answers
		WHERE user_id = ?
		ORDER BY answered_at DESC, id DESC
		LIMIT ?
	`), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get user answers: %w", err)
	}
	if err := loadAnswerOptions(ctx, DB, answers); err != nil {
		return nil, err
	}
	return answers, nil
}

type answerOptionRow struct {
	AnswerID int64 `db:"answer_id"`
	models.Term
}

// loadAnswerOptions fills Options of every answer with one query
func loadAnswerOptions(ctx context.Context, q sqlx.QueryerContext, answers []models.FlashcardAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	ids := make([]int64, len(answers))
	for i := range answers {
		ids[i] = answers[i].ID
		answers[i].Options = []models.Term{}
	}

	var rows []answerOptionRow
	err := selectIn(ctx, q, &rows, `
		SELECT o.answer_id, t.id, t.identifier, t.item_id, t.lang, t.name, t.type
		FROM flashcard_answer_options o
		JOIN terms t ON t.id = o.term_id
		WHERE o.answer_id IN (?)
		ORDER BY t.id
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to get answer options: %w", err)
	}

	byAnswer := make(map[int64][]models.Term)
	for _, row := range rows {
		byAnswer[row.AnswerID] = append(byAnswer[row.AnswerID], row.Term)
	}
	for i := range answers {
		if options, ok := byAnswer[answers[i].ID]; ok {
			answers[i].Options = options
		}
	}
	return nil
}
