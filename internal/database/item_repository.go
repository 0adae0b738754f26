package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/flashcards/internal/environment"
	"github.com/example/flashcards/internal/graph"
	"github.com/example/flashcards/pkg/models"
)

// ItemRepository handles the generic items and the item relation graph
type ItemRepository struct{}

// NewItemRepository creates a new repository instance
func NewItemRepository() *ItemRepository {
	return &ItemRepository{}
}

// createItem inserts a new item of the given type
func createItem(ctx context.Context, q sqlx.QueryerContext, itemType string) (int64, error) {
	id, err := insertReturningID(ctx, q,
		"INSERT INTO items (item_type, created_at) VALUES (?, CURRENT_TIMESTAMP) RETURNING id", itemType)
	if err != nil {
		return 0, fmt.Errorf("failed to create item: %w", err)
	}
	return id, nil
}

// ensureItem returns itemID, creating a new item first when it is not set yet
func ensureItem(ctx context.Context, q sqlx.QueryerContext, itemID int64, itemType string) (int64, error) {
	if itemID != 0 {
		return itemID, nil
	}
	return createItem(ctx, q, itemType)
}

// Create inserts a new item of the given type
func (r *ItemRepository) Create(ctx context.Context, itemType string) (*models.Item, error) {
	id, err := createItem(ctx, DB, itemType)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// CreateWithID inserts an item with an explicit id
func (r *ItemRepository) CreateWithID(ctx context.Context, id int64, itemType string) error {
	if id <= 0 {
		return fmt.Errorf("invalid item id %d", id)
	}
	_, err := DB.ExecContext(ctx, rebind("INSERT INTO items (id, item_type, created_at) VALUES (?, ?, CURRENT_TIMESTAMP)"), id, itemType)
	if err != nil {
		return fmt.Errorf("failed to create item %d: %w", id, err)
	}
	if DB.DriverName() == "postgres" {
		_, err = DB.ExecContext(ctx, "SELECT setval(pg_get_serial_sequence('items', 'id'), (SELECT MAX(id) FROM items))")
		if err != nil {
			return fmt.Errorf("failed to advance item sequence: %w", err)
		}
	}
	return nil
}

// GetByID returns an item by ID
func (r *ItemRepository) GetByID(ctx context.Context, id int64) (*models.Item, error) {
	var item models.Item
	err := DB.GetContext(ctx, &item, rebind("SELECT id, item_type, created_at FROM items WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &item, nil
}

// GetTypes returns the type of each existing item among ids
func (r *ItemRepository) GetTypes(ctx context.Context, ids []int64) (map[int64]string, error) {
	var items []models.Item
	err := selectIn(ctx, DB, &items, "SELECT id, item_type, created_at FROM items WHERE id IN (?)", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get item types: %w", err)
	}
	types := make(map[int64]string, len(items))
	for _, item := range items {
		types[item.ID] = item.Type
	}
	return types, nil
}

// AddRelation adds the parent -> child edge. The edge is owned by the caller
// from then on, environment syncs never remove it.
func (r *ItemRepository) AddRelation(ctx context.Context, parentID, childID int64) error {
	query := rebind(`
		INSERT INTO item_relations (parent_id, child_id, source) VALUES (?, ?, ?)
		ON CONFLICT (parent_id, child_id) DO UPDATE SET source = excluded.source
	`)
	if _, err := DB.ExecContext(ctx, query, parentID, childID, models.RelationSourceManual); err != nil {
		return fmt.Errorf("failed to add item relation %d -> %d: %w", parentID, childID, err)
	}
	return nil
}

// RemoveRelation removes the parent -> child edge
func (r *ItemRepository) RemoveRelation(ctx context.Context, parentID, childID int64) error {
	query := rebind("DELETE FROM item_relations WHERE parent_id = ? AND child_id = ?")
	if _, err := DB.ExecContext(ctx, query, parentID, childID); err != nil {
		return fmt.Errorf("failed to remove item relation %d -> %d: %w", parentID, childID, err)
	}
	return nil
}

// GetRelations returns all item relations ordered by (parent, child)
func (r *ItemRepository) GetRelations(ctx context.Context) ([]models.ItemRelation, error) {
	relations := []models.ItemRelation{}
	err := DB.SelectContext(ctx, &relations, "SELECT id, parent_id, child_id, source FROM item_relations ORDER BY parent_id, child_id")
	if err != nil {
		return nil, fmt.Errorf("failed to get item relations: %w", err)
	}
	return relations, nil
}

// GetParentsGraph maps every ancestor of ids to its direct parents.
// graph.Root maps to ids.
func (r *ItemRepository) GetParentsGraph(ctx context.Context, ids []int64) (graph.Graph, error) {
	return r.getGraph(ctx, ids, "child_id", "parent_id")
}

// GetChildrenGraph maps every descendant of ids to its direct children.
// graph.Root maps to ids.
func (r *ItemRepository) GetChildrenGraph(ctx context.Context, ids []int64) (graph.Graph, error) {
	return r.getGraph(ctx, ids, "parent_id", "child_id")
}

// GetLeaves returns the descendants of ids (ids included) having no children
func (r *ItemRepository) GetLeaves(ctx context.Context, ids []int64) (map[int64]struct{}, error) {
	children, err := r.GetChildrenGraph(ctx, ids)
	if err != nil {
		return nil, err
	}
	return children.Leaves(), nil
}

type relationRow struct {
	From int64 `db:"from_id"`
	To   int64 `db:"to_id"`
}

// getGraph expands the frontier level by level, one query per level. Each
// vertex is expanded once, so shared ancestors are not visited twice.
func (r *ItemRepository) getGraph(ctx context.Context, ids []int64, fromColumn, toColumn string) (graph.Graph, error) {
	g := graph.Graph{graph.Root: append([]int64{}, ids...)}

	expanded := make(map[int64]bool)
	frontier := graph.Unique(ids)
	query := fmt.Sprintf(
		"SELECT %[1]s AS from_id, %[2]s AS to_id FROM item_relations WHERE %[1]s IN (?) ORDER BY %[1]s, %[2]s",
		fromColumn, toColumn)

	for len(frontier) > 0 {
		for _, id := range frontier {
			expanded[id] = true
		}

		var rows []relationRow
		if err := selectIn(ctx, DB, &rows, query, frontier); err != nil {
			return nil, fmt.Errorf("failed to expand item graph: %w", err)
		}

		next := []int64{}
		queued := make(map[int64]bool)
		for _, row := range rows {
			g[row.From] = append(g[row.From], row.To)
			if !expanded[row.To] && !queued[row.To] {
				queued[row.To] = true
				next = append(next, row.To)
			}
		}
		frontier = next
	}

	return g, nil
}

// SyncRelationsFromEnvironment copies the environment "child" edges into
// item_relations and drops copied rows whose fact is gone. Relations added
// with AddRelation are left alone. It returns the number of added and removed
// relations.
func (r *ItemRepository) SyncRelationsFromEnvironment(ctx context.Context, env environment.Environment) (added, removed int, err error) {
	edges, err := env.Edges(ctx, environment.KeyChild)
	if err != nil {
		return 0, 0, err
	}
	relations, err := r.GetRelations(ctx)
	if err != nil {
		return 0, 0, err
	}

	want := make(map[graph.Edge]bool, len(edges))
	for _, e := range edges {
		want[graph.Edge{From: e.Item, To: e.ItemSecondary}] = true
	}
	have := make(map[graph.Edge]string, len(relations))
	for _, rel := range relations {
		have[graph.Edge{From: rel.ParentID, To: rel.ChildID}] = rel.Source
	}

	tx, err := DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	for e, source := range have {
		if want[e] || source != models.RelationSourceEnvironment {
			continue
		}
		if _, err := tx.ExecContext(ctx, rebind("DELETE FROM item_relations WHERE parent_id = ? AND child_id = ?"), e.From, e.To); err != nil {
			return 0, 0, fmt.Errorf("failed to remove item relation %d -> %d: %w", e.From, e.To, err)
		}
		removed++
	}
	insert := rebind("INSERT INTO item_relations (parent_id, child_id, source) VALUES (?, ?, ?)")
	for e := range want {
		if _, ok := have[e]; ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, insert, e.From, e.To, models.RelationSourceEnvironment); err != nil {
			return 0, 0, fmt.Errorf("failed to add item relation %d -> %d: %w", e.From, e.To, err)
		}
		added++
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return added, removed, nil
}
