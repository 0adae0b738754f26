package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/flashcards/pkg/models"
)

const flashcardColumns = "id, identifier, item_id, lang, term_id, context_id, description"

// FlashcardRepository handles database operations for flashcards
type FlashcardRepository struct{}

// NewFlashcardRepository creates a new repository instance
func NewFlashcardRepository() *FlashcardRepository {
	return &FlashcardRepository{}
}

// Save creates the flashcard when it has no ID yet and updates it otherwise
func (r *FlashcardRepository) Save(ctx context.Context, f *models.Flashcard) error {
	if f.ID == 0 {
		return r.Create(ctx, f)
	}
	return r.Update(ctx, f)
}

// Create inserts a new flashcard, creating its item first when needed
func (r *FlashcardRepository) Create(ctx context.Context, f *models.Flashcard) error {
	tx, err := DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	itemID, err := ensureItem(ctx, tx, f.ItemID, models.ItemTypeFlashcard)
	if err != nil {
		tx.Rollback()
		return err
	}

	id, err := insertReturningID(ctx, tx, `
		INSERT INTO flashcards (identifier, item_id, lang, term_id, context_id, description)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`, f.Identifier, itemID, f.Lang, f.TermID, f.ContextID, f.Description)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create flashcard: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	f.ID = id
	f.ItemID = itemID
	return nil
}

// Update modifies an existing flashcard
func (r *FlashcardRepository) Update(ctx context.Context, f *models.Flashcard) error {
	result, err := DB.ExecContext(ctx, rebind(`
		UPDATE flashcards SET identifier = ?, lang = ?, term_id = ?, context_id = ?, description = ?
		WHERE id = ?
	`), f.Identifier, f.Lang, f.TermID, f.ContextID, f.Description, f.ID)
	if err != nil {
		return fmt.Errorf("failed to update flashcard: %w", err)
	}
	return requireAffected(result, "flashcard", f.ID)
}

// GetByID returns a flashcard with its term and context
func (r *FlashcardRepository) GetByID(ctx context.Context, id int64) (*models.Flashcard, error) {
	var f models.Flashcard
	err := DB.GetContext(ctx, &f, rebind("SELECT "+flashcardColumns+" FROM flashcards WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("flashcard %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get flashcard: %w", err)
	}
	flashcards := []models.Flashcard{f}
	if err := loadFlashcardRelated(ctx, DB, flashcards); err != nil {
		return nil, err
	}
	return &flashcards[0], nil
}

// GetByIdentifier returns the flashcard with the given identifier and language
func (r *FlashcardRepository) GetByIdentifier(ctx context.Context, identifier, lang string) (*models.Flashcard, error) {
	var f models.Flashcard
	err := DB.GetContext(ctx, &f, rebind("SELECT "+flashcardColumns+" FROM flashcards WHERE identifier = ? AND lang = ?"), identifier, lang)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("flashcard %s/%s: %w", lang, identifier, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get flashcard: %w", err)
	}
	return &f, nil
}

// List returns all flashcards in a language with their term and context
func (r *FlashcardRepository) List(ctx context.Context, lang string) ([]models.Flashcard, error) {
	flashcards := []models.Flashcard{}
	err := DB.SelectContext(ctx, &flashcards, rebind("SELECT "+flashcardColumns+" FROM flashcards WHERE lang = ? ORDER BY id"), lang)
	if err != nil {
		return nil, fmt.Errorf("failed to get flashcards: %w", err)
	}
	if err := loadFlashcardRelated(ctx, DB, flashcards); err != nil {
		return nil, err
	}
	return flashcards, nil
}

// GetByItemIDs returns the flashcards owning the given items in a language
func (r *FlashcardRepository) GetByItemIDs(ctx context.Context, itemIDs []int64, lang string) ([]models.Flashcard, error) {
	flashcards := []models.Flashcard{}
	err := selectIn(ctx, DB, &flashcards, "SELECT "+flashcardColumns+" FROM flashcards WHERE item_id IN (?) AND lang = ? ORDER BY id", itemIDs, lang)
	if err != nil {
		return nil, fmt.Errorf("failed to get flashcards: %w", err)
	}
	if err := loadFlashcardRelated(ctx, DB, flashcards); err != nil {
		return nil, err
	}
	return flashcards, nil
}

// loadFlashcardRelated fills Term and Context of every flashcard
func loadFlashcardRelated(ctx context.Context, q sqlx.QueryerContext, flashcards []models.Flashcard) error {
	if len(flashcards) == 0 {
		return nil
	}
	termIDs := make([]int64, 0, len(flashcards))
	contextIDs := make([]int64, 0, len(flashcards))
	for _, f := range flashcards {
		termIDs = append(termIDs, f.TermID)
		contextIDs = append(contextIDs, f.ContextID)
	}

	terms, err := getTermsByIDs(ctx, q, termIDs)
	if err != nil {
		return err
	}
	contexts, err := getContextsByIDs(ctx, q, contextIDs)
	if err != nil {
		return err
	}
	for i := range flashcards {
		flashcards[i].Term = terms[flashcards[i].TermID]
		flashcards[i].Context = contexts[flashcards[i].ContextID]
	}
	return nil
}
