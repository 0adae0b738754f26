package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/flashcards/pkg/models"
)

const termColumns = "id, identifier, item_id, lang, name, type"

// TermRepository handles database operations for terms
type TermRepository struct{}

// NewTermRepository creates a new repository instance
func NewTermRepository() *TermRepository {
	return &TermRepository{}
}

// Save creates the term when it has no ID yet and updates it otherwise
func (r *TermRepository) Save(ctx context.Context, term *models.Term) error {
	if term.ID == 0 {
		return r.Create(ctx, term)
	}
	return r.Update(ctx, term)
}

// Create inserts a new term, creating its item first when needed
func (r *TermRepository) Create(ctx context.Context, term *models.Term) error {
	tx, err := DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	itemID, err := ensureItem(ctx, tx, term.ItemID, models.ItemTypeTerm)
	if err != nil {
		tx.Rollback()
		return err
	}

	id, err := insertReturningID(ctx, tx, `
		INSERT INTO terms (identifier, item_id, lang, name, type)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`, term.Identifier, itemID, term.Lang, term.Name, term.Type)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create term: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	term.ID = id
	term.ItemID = itemID
	return nil
}

// Update modifies an existing term. The item of a term never changes.
func (r *TermRepository) Update(ctx context.Context, term *models.Term) error {
	result, err := DB.ExecContext(ctx, rebind(`
		UPDATE terms SET identifier = ?, lang = ?, name = ?, type = ?
		WHERE id = ?
	`), term.Identifier, term.Lang, term.Name, term.Type, term.ID)
	if err != nil {
		return fmt.Errorf("failed to update term: %w", err)
	}
	return requireAffected(result, "term", term.ID)
}

// GetByID returns a term with its parents
func (r *TermRepository) GetByID(ctx context.Context, id int64) (*models.Term, error) {
	var term models.Term
	err := DB.GetContext(ctx, &term, rebind("SELECT "+termColumns+" FROM terms WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("term %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get term: %w", err)
	}
	terms := []models.Term{term}
	if err := loadTermParents(ctx, DB, terms); err != nil {
		return nil, err
	}
	return &terms[0], nil
}

// GetByIdentifier returns the term with the given identifier and language
func (r *TermRepository) GetByIdentifier(ctx context.Context, identifier, lang string) (*models.Term, error) {
	var term models.Term
	err := DB.GetContext(ctx, &term, rebind("SELECT "+termColumns+" FROM terms WHERE identifier = ? AND lang = ?"), identifier, lang)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("term %s/%s: %w", lang, identifier, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get term: %w", err)
	}
	return &term, nil
}

// List returns all terms in a language with their parents
func (r *TermRepository) List(ctx context.Context, lang string) ([]models.Term, error) {
	terms := []models.Term{}
	err := DB.SelectContext(ctx, &terms, rebind("SELECT "+termColumns+" FROM terms WHERE lang = ? ORDER BY id"), lang)
	if err != nil {
		return nil, fmt.Errorf("failed to get terms: %w", err)
	}
	if err := loadTermParents(ctx, DB, terms); err != nil {
		return nil, err
	}
	return terms, nil
}

// GetByItemIDs returns the terms owning the given items in a language, with parents
func (r *TermRepository) GetByItemIDs(ctx context.Context, itemIDs []int64, lang string) ([]models.Term, error) {
	terms := []models.Term{}
	err := selectIn(ctx, DB, &terms, "SELECT "+termColumns+" FROM terms WHERE item_id IN (?) AND lang = ? ORDER BY id", itemIDs, lang)
	if err != nil {
		return nil, fmt.Errorf("failed to get terms: %w", err)
	}
	if err := loadTermParents(ctx, DB, terms); err != nil {
		return nil, err
	}
	return terms, nil
}

// getTermsByIDs returns terms by primary key, without parents
func getTermsByIDs(ctx context.Context, q sqlx.QueryerContext, ids []int64) (map[int64]*models.Term, error) {
	var terms []models.Term
	if err := selectIn(ctx, q, &terms, "SELECT "+termColumns+" FROM terms WHERE id IN (?)", ids); err != nil {
		return nil, fmt.Errorf("failed to get terms: %w", err)
	}
	out := make(map[int64]*models.Term, len(terms))
	for i := range terms {
		out[terms[i].ID] = &terms[i]
	}
	return out, nil
}

type termParentRow struct {
	TermID int64 `db:"term_id"`
	models.Category
}

// loadTermParents fills Parents of every term with one query
func loadTermParents(ctx context.Context, q sqlx.QueryerContext, terms []models.Term) error {
	if len(terms) == 0 {
		return nil
	}
	ids := make([]int64, len(terms))
	for i := range terms {
		ids[i] = terms[i].ID
		terms[i].Parents = []models.Category{}
	}

	var rows []termParentRow
	err := selectIn(ctx, q, &rows, `
		SELECT ct.term_id, c.id, c.identifier, c.item_id, c.lang, c.name, c.type
		FROM category_terms ct
		JOIN categories c ON c.id = ct.category_id
		WHERE ct.term_id IN (?)
		ORDER BY c.id
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to get term parents: %w", err)
	}

	byTerm := make(map[int64][]models.Category)
	for _, row := range rows {
		byTerm[row.TermID] = append(byTerm[row.TermID], row.Category)
	}
	for i := range terms {
		if parents, ok := byTerm[terms[i].ID]; ok {
			terms[i].Parents = parents
		}
	}
	return nil
}

// requireAffected turns an UPDATE that matched no row into ErrNotFound
func requireAffected(result sql.Result, what string, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}
