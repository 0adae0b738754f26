package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/flashcards/internal/graph"
	"github.com/example/flashcards/pkg/models"
)

const categoryColumns = "id, identifier, item_id, lang, name, type"

type joinTable struct {
	name     string
	parent   string
	child    string
	relation string
}

var (
	subcategoriesJoin = joinTable{"category_subcategories", "category_id", "subcategory_id", RelationSubcategories}
	termsJoin         = joinTable{"category_terms", "category_id", "term_id", RelationTerms}
)

// CategoryRepository handles database operations for categories and their
// subcategory and term relations
type CategoryRepository struct {
	observers []M2MObserver
}

// NewCategoryRepository creates a new repository instance. Observers are
// notified about every relation change, in order.
func NewCategoryRepository(observers ...M2MObserver) *CategoryRepository {
	return &CategoryRepository{observers: observers}
}

// Save creates the category when it has no ID yet and updates it otherwise
func (r *CategoryRepository) Save(ctx context.Context, c *models.Category) error {
	if c.ID == 0 {
		return r.Create(ctx, c)
	}
	return r.Update(ctx, c)
}

// Create inserts a new category, creating its item first when needed
func (r *CategoryRepository) Create(ctx context.Context, c *models.Category) error {
	tx, err := DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	itemID, err := ensureItem(ctx, tx, c.ItemID, models.ItemTypeCategory)
	if err != nil {
		tx.Rollback()
		return err
	}

	id, err := insertReturningID(ctx, tx, `
		INSERT INTO categories (identifier, item_id, lang, name, type)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`, c.Identifier, itemID, c.Lang, c.Name, c.Type)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create category: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	c.ID = id
	c.ItemID = itemID
	return nil
}

// Update modifies an existing category
func (r *CategoryRepository) Update(ctx context.Context, c *models.Category) error {
	result, err := DB.ExecContext(ctx, rebind(`
		UPDATE categories SET identifier = ?, lang = ?, name = ?, type = ?
		WHERE id = ?
	`), c.Identifier, c.Lang, c.Name, c.Type, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return requireAffected(result, "category", c.ID)
}

// GetByID returns a category by ID
func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	var c models.Category
	err := DB.GetContext(ctx, &c, rebind("SELECT "+categoryColumns+" FROM categories WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

// GetByIdentifier returns the category with the given identifier and language
func (r *CategoryRepository) GetByIdentifier(ctx context.Context, identifier, lang string) (*models.Category, error) {
	var c models.Category
	err := DB.GetContext(ctx, &c, rebind("SELECT "+categoryColumns+" FROM categories WHERE identifier = ? AND lang = ?"), identifier, lang)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %s/%s: %w", lang, identifier, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

// List returns all categories in a language
func (r *CategoryRepository) List(ctx context.Context, lang string) ([]models.Category, error) {
	categories := []models.Category{}
	err := DB.SelectContext(ctx, &categories, rebind("SELECT "+categoryColumns+" FROM categories WHERE lang = ? ORDER BY id"), lang)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return categories, nil
}

// GetByItemIDs returns the categories owning the given items in a language
func (r *CategoryRepository) GetByItemIDs(ctx context.Context, itemIDs []int64, lang string) ([]models.Category, error) {
	categories := []models.Category{}
	err := selectIn(ctx, DB, &categories, "SELECT "+categoryColumns+" FROM categories WHERE item_id IN (?) AND lang = ? ORDER BY id", itemIDs, lang)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return categories, nil
}

// GetSubcategories returns the direct subcategories of a category
func (r *CategoryRepository) GetSubcategories(ctx context.Context, categoryID int64) ([]models.Category, error) {
	categories := []models.Category{}
	err := DB.SelectContext(ctx, &categories, rebind(`
		SELECT c.id, c.identifier, c.item_id, c.lang, c.name, c.type
		FROM category_subcategories cs
		JOIN categories c ON c.id = cs.subcategory_id
		WHERE cs.category_id = ?
		ORDER BY c.id
	`), categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subcategories: %w", err)
	}
	return categories, nil
}

// GetParents returns the categories having categoryID as a subcategory
func (r *CategoryRepository) GetParents(ctx context.Context, categoryID int64) ([]models.Category, error) {
	categories := []models.Category{}
	err := DB.SelectContext(ctx, &categories, rebind(`
		SELECT c.id, c.identifier, c.item_id, c.lang, c.name, c.type
		FROM category_subcategories cs
		JOIN categories c ON c.id = cs.category_id
		WHERE cs.subcategory_id = ?
		ORDER BY c.id
	`), categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get parent categories: %w", err)
	}
	return categories, nil
}

// GetTerms returns the terms of a category
func (r *CategoryRepository) GetTerms(ctx context.Context, categoryID int64) ([]models.Term, error) {
	terms := []models.Term{}
	err := DB.SelectContext(ctx, &terms, rebind(`
		SELECT t.id, t.identifier, t.item_id, t.lang, t.name, t.type
		FROM category_terms ct
		JOIN terms t ON t.id = ct.term_id
		WHERE ct.category_id = ?
		ORDER BY t.id
	`), categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get category terms: %w", err)
	}
	return terms, nil
}

// GetTermParents returns the categories containing a term
func (r *CategoryRepository) GetTermParents(ctx context.Context, termID int64) ([]models.Category, error) {
	terms := []models.Term{{ID: termID}}
	if err := loadTermParents(ctx, DB, terms); err != nil {
		return nil, err
	}
	return terms[0].Parents, nil
}

// ListEdges returns every (parent item, child item) pair of the subcategory
// and term relations
func (r *CategoryRepository) ListEdges(ctx context.Context) ([]models.ItemRelation, error) {
	return listCategoryEdges(ctx)
}

// AddSubcategories adds subcategories to a category
func (r *CategoryRepository) AddSubcategories(ctx context.Context, categoryID int64, subcategoryIDs ...int64) error {
	return r.add(ctx, subcategoriesJoin, false, categoryID, subcategoryIDs)
}

// RemoveSubcategories removes subcategories from a category
func (r *CategoryRepository) RemoveSubcategories(ctx context.Context, categoryID int64, subcategoryIDs ...int64) error {
	return r.remove(ctx, subcategoriesJoin, false, categoryID, subcategoryIDs)
}

// ClearSubcategories removes all subcategories of a category
func (r *CategoryRepository) ClearSubcategories(ctx context.Context, categoryID int64) error {
	return r.clear(ctx, subcategoriesJoin, false, categoryID)
}

// AddCategoryParents adds the category as a subcategory of parentIDs
func (r *CategoryRepository) AddCategoryParents(ctx context.Context, categoryID int64, parentIDs ...int64) error {
	return r.add(ctx, subcategoriesJoin, true, categoryID, parentIDs)
}

// RemoveCategoryParents removes the category from the subcategories of parentIDs
func (r *CategoryRepository) RemoveCategoryParents(ctx context.Context, categoryID int64, parentIDs ...int64) error {
	return r.remove(ctx, subcategoriesJoin, true, categoryID, parentIDs)
}

// ClearCategoryParents detaches the category from all its parents
func (r *CategoryRepository) ClearCategoryParents(ctx context.Context, categoryID int64) error {
	return r.clear(ctx, subcategoriesJoin, true, categoryID)
}

// AddTerms adds terms to a category
func (r *CategoryRepository) AddTerms(ctx context.Context, categoryID int64, termIDs ...int64) error {
	return r.add(ctx, termsJoin, false, categoryID, termIDs)
}

// RemoveTerms removes terms from a category
func (r *CategoryRepository) RemoveTerms(ctx context.Context, categoryID int64, termIDs ...int64) error {
	return r.remove(ctx, termsJoin, false, categoryID, termIDs)
}

// ClearTerms removes all terms of a category
func (r *CategoryRepository) ClearTerms(ctx context.Context, categoryID int64) error {
	return r.clear(ctx, termsJoin, false, categoryID)
}

// AddTermParents adds the term to the categories parentIDs
func (r *CategoryRepository) AddTermParents(ctx context.Context, termID int64, parentIDs ...int64) error {
	return r.add(ctx, termsJoin, true, termID, parentIDs)
}

// RemoveTermParents removes the term from the categories parentIDs
func (r *CategoryRepository) RemoveTermParents(ctx context.Context, termID int64, parentIDs ...int64) error {
	return r.remove(ctx, termsJoin, true, termID, parentIDs)
}

// ClearTermParents removes the term from all its categories
func (r *CategoryRepository) ClearTermParents(ctx context.Context, termID int64) error {
	return r.clear(ctx, termsJoin, true, termID)
}

// pairFor returns the (parent, child) join row for instance and the other side pk
func pairFor(reverse bool, instance, pk int64) (int64, int64) {
	if reverse {
		return pk, instance
	}
	return instance, pk
}

func (r *CategoryRepository) add(ctx context.Context, join joinTable, reverse bool, instance int64, pks []int64) error {
	pks = graph.Unique(pks)
	if len(pks) == 0 {
		return nil
	}

	tx, err := DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	query := rebind(fmt.Sprintf(
		"INSERT INTO %s (%s, %s) VALUES (?, ?) ON CONFLICT (%[2]s, %[3]s) DO NOTHING",
		join.name, join.parent, join.child))
	added := []int64{}
	for _, pk := range pks {
		parent, child := pairFor(reverse, instance, pk)
		if join.relation == RelationSubcategories && parent == child {
			tx.Rollback()
			return fmt.Errorf("category %d: %w", parent, ErrSelfRelation)
		}
		result, err := tx.ExecContext(ctx, query, parent, child)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to add %s relation %d -> %d: %w", join.relation, parent, child, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows > 0 {
			added = append(added, pk)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if len(added) == 0 {
		return nil
	}
	return r.notify(ctx, M2MChange{Action: ActionPostAdd, Relation: join.relation, Reverse: reverse, Instance: instance, PkSet: added})
}

func (r *CategoryRepository) remove(ctx context.Context, join joinTable, reverse bool, instance int64, pks []int64) error {
	pks = graph.Unique(pks)
	if len(pks) == 0 {
		return nil
	}

	tx, err := DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	query := rebind(fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?", join.name, join.parent, join.child))
	removed := []int64{}
	for _, pk := range pks {
		parent, child := pairFor(reverse, instance, pk)
		result, err := tx.ExecContext(ctx, query, parent, child)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to remove %s relation %d -> %d: %w", join.relation, parent, child, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows > 0 {
			removed = append(removed, pk)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if len(removed) == 0 {
		return nil
	}
	return r.notify(ctx, M2MChange{Action: ActionPostRemove, Relation: join.relation, Reverse: reverse, Instance: instance, PkSet: removed})
}

func (r *CategoryRepository) clear(ctx context.Context, join joinTable, reverse bool, instance int64) error {
	if err := r.notify(ctx, M2MChange{Action: ActionPreClear, Relation: join.relation, Reverse: reverse, Instance: instance}); err != nil {
		return err
	}

	column := join.parent
	if reverse {
		column = join.child
	}
	query := rebind(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", join.name, column))
	if _, err := DB.ExecContext(ctx, query, instance); err != nil {
		return fmt.Errorf("failed to clear %s of %d: %w", join.relation, instance, err)
	}
	return nil
}

func (r *CategoryRepository) notify(ctx context.Context, change M2MChange) error {
	for _, o := range r.observers {
		if err := o.M2MChanged(ctx, change); err != nil {
			return fmt.Errorf("%s %s observer: %w", change.Relation, change.Action, err)
		}
	}
	return nil
}
