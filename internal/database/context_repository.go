package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/flashcards/pkg/models"
)

const contextColumns = "id, identifier, item_id, lang, name, content"

// ContextRepository handles database operations for flashcard contexts
type ContextRepository struct{}

// NewContextRepository creates a new repository instance
func NewContextRepository() *ContextRepository {
	return &ContextRepository{}
}

// Save creates the context when it has no ID yet and updates it otherwise
func (r *ContextRepository) Save(ctx context.Context, c *models.Context) error {
	if c.ID == 0 {
		return r.Create(ctx, c)
	}
	return r.Update(ctx, c)
}

// Create inserts a new context, creating its item first when needed
func (r *ContextRepository) Create(ctx context.Context, c *models.Context) error {
	tx, err := DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	itemID, err := ensureItem(ctx, tx, c.ItemID, models.ItemTypeContext)
	if err != nil {
		tx.Rollback()
		return err
	}

	id, err := insertReturningID(ctx, tx, `
		INSERT INTO contexts (identifier, item_id, lang, name, content)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`, c.Identifier, itemID, c.Lang, c.Name, c.Content)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create context: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	c.ID = id
	c.ItemID = itemID
	return nil
}

// Update modifies an existing context
func (r *ContextRepository) Update(ctx context.Context, c *models.Context) error {
	result, err := DB.ExecContext(ctx, rebind(`
		UPDATE contexts SET identifier = ?, lang = ?, name = ?, content = ?
		WHERE id = ?
	`), c.Identifier, c.Lang, c.Name, c.Content, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update context: %w", err)
	}
	return requireAffected(result, "context", c.ID)
}

// GetByID returns a context by ID
func (r *ContextRepository) GetByID(ctx context.Context, id int64) (*models.Context, error) {
	var c models.Context
	err := DB.GetContext(ctx, &c, rebind("SELECT "+contextColumns+" FROM contexts WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("context %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get context: %w", err)
	}
	return &c, nil
}

// GetByIdentifier returns the context with the given identifier and language
func (r *ContextRepository) GetByIdentifier(ctx context.Context, identifier, lang string) (*models.Context, error) {
	var c models.Context
	err := DB.GetContext(ctx, &c, rebind("SELECT "+contextColumns+" FROM contexts WHERE identifier = ? AND lang = ?"), identifier, lang)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("context %s/%s: %w", lang, identifier, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get context: %w", err)
	}
	return &c, nil
}

// List returns all contexts in a language
func (r *ContextRepository) List(ctx context.Context, lang string) ([]models.Context, error) {
	contexts := []models.Context{}
	err := DB.SelectContext(ctx, &contexts, rebind("SELECT "+contextColumns+" FROM contexts WHERE lang = ? ORDER BY id"), lang)
	if err != nil {
		return nil, fmt.Errorf("failed to get contexts: %w", err)
	}
	return contexts, nil
}

// GetByItemIDs returns the contexts owning the given items in a language
func (r *ContextRepository) GetByItemIDs(ctx context.Context, itemIDs []int64, lang string) ([]models.Context, error) {
	contexts := []models.Context{}
	err := selectIn(ctx, DB, &contexts, "SELECT "+contextColumns+" FROM contexts WHERE item_id IN (?) AND lang = ? ORDER BY id", itemIDs, lang)
	if err != nil {
		return nil, fmt.Errorf("failed to get contexts: %w", err)
	}
	return contexts, nil
}

func getContextsByIDs(ctx context.Context, q sqlx.QueryerContext, ids []int64) (map[int64]*models.Context, error) {
	var contexts []models.Context
	if err := selectIn(ctx, q, &contexts, "SELECT "+contextColumns+" FROM contexts WHERE id IN (?)", ids); err != nil {
		return nil, fmt.Errorf("failed to get contexts: %w", err)
	}
	out := make(map[int64]*models.Context, len(contexts))
	for i := range contexts {
		out[contexts[i].ID] = &contexts[i]
	}
	return out, nil
}
