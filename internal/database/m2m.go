package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/flashcards/internal/environment"
	"github.com/example/flashcards/internal/graph"
	"github.com/example/flashcards/pkg/models"
)

// Many-to-many change actions
const (
	ActionPreClear   = "pre_clear"
	ActionPostAdd    = "post_add"
	ActionPostRemove = "post_remove"
)

// Category many-to-many relations
const (
	RelationSubcategories = "subcategories"
	RelationTerms         = "terms"
)

// M2MChange describes a change of a category many-to-many relation.
//
// For forward changes Instance is the parent category and PkSet holds the
// children (categories or terms). For reverse changes Instance is the child
// (category or term) and PkSet holds parent categories. PkSet is empty for
// pre_clear.
type M2MChange struct {
	Action   string
	Relation string
	Reverse  bool
	Instance int64
	PkSet    []int64
}

// M2MObserver is notified about category relation changes. pre_clear is
// delivered before the join rows are deleted, post_* after the change is committed.
type M2MObserver interface {
	M2MChanged(ctx context.Context, change M2MChange) error
}

// M2MObserverFunc adapts a function to M2MObserver
type M2MObserverFunc func(ctx context.Context, change M2MChange) error

func (f M2MObserverFunc) M2MChanged(ctx context.Context, change M2MChange) error {
	return f(ctx, change)
}

// EdgeMirror keeps the environment "child"/"parent" facts equal to the
// category join tables
type EdgeMirror struct {
	env environment.Environment
}

// NewEdgeMirror creates a mirror writing to env
func NewEdgeMirror(env environment.Environment) *EdgeMirror {
	return &EdgeMirror{env: env}
}

// M2MChanged writes the facts of added pairs and deletes the facts of pairs no
// join row implies anymore
func (m *EdgeMirror) M2MChanged(ctx context.Context, change M2MChange) error {
	parents, children, err := changedItems(ctx, DB, change)
	if err != nil {
		return err
	}

	// translations share items, so another join row may still imply a removed pair
	var live map[graph.Edge]bool
	if change.Action != ActionPostAdd {
		if live, err = liveEdges(ctx, change); err != nil {
			return err
		}
	}

	for _, parent := range parents {
		for _, child := range children {
			if change.Action == ActionPostAdd {
				if err := m.env.Write(ctx, environment.KeyChild, 1, parent, child, false); err != nil {
					return err
				}
				if err := m.env.Write(ctx, environment.KeyParent, 1, child, parent, false); err != nil {
					return err
				}
				continue
			}
			if live[graph.Edge{From: parent, To: child}] {
				continue
			}
			if err := m.env.Delete(ctx, environment.KeyChild, parent, child); err != nil {
				return err
			}
			if err := m.env.Delete(ctx, environment.KeyParent, child, parent); err != nil {
				return err
			}
		}
	}
	return nil
}

// liveEdges returns the item edges that stay implied by join rows once the
// change is applied. For pre_clear the rows of the cleared instance are left out.
func liveEdges(ctx context.Context, change M2MChange) (map[graph.Edge]bool, error) {
	var skip *joinTable
	if change.Action == ActionPreClear {
		join := subcategoriesJoin
		if change.Relation == RelationTerms {
			join = termsJoin
		}
		skip = &join
	}
	edges, err := categoryEdges(ctx, skip, change.Reverse, change.Instance)
	if err != nil {
		return nil, err
	}
	live := make(map[graph.Edge]bool, len(edges))
	for _, e := range edges {
		live[graph.Edge{From: e.ParentID, To: e.ChildID}] = true
	}
	return live, nil
}

// changedItems resolves a change into the parent and child item ids it affects
func changedItems(ctx context.Context, q sqlx.QueryerContext, change M2MChange) (parents, children []int64, err error) {
	childTable := "categories"
	if change.Relation == RelationTerms {
		childTable = "terms"
	}

	instanceTable := "categories"
	if change.Reverse {
		instanceTable = childTable
	}
	instanceItem, err := itemOf(ctx, q, instanceTable, change.Instance)
	if err != nil {
		return nil, nil, err
	}

	switch {
	case change.Action == ActionPreClear && !change.Reverse:
		parents = []int64{instanceItem}
		children, err = currentChildItems(ctx, q, change.Relation, change.Instance)
	case change.Action == ActionPreClear:
		parents, err = currentParentItems(ctx, q, change.Relation, change.Instance)
		children = []int64{instanceItem}
	case !change.Reverse:
		parents = []int64{instanceItem}
		children, err = itemsOf(ctx, q, childTable, change.PkSet)
	default:
		parents, err = itemsOf(ctx, q, "categories", change.PkSet)
		children = []int64{instanceItem}
	}
	if err != nil {
		return nil, nil, err
	}
	return parents, children, nil
}

func itemOf(ctx context.Context, q sqlx.QueryerContext, table string, id int64) (int64, error) {
	var itemID int64
	err := sqlx.GetContext(ctx, q, &itemID, rebind("SELECT item_id FROM "+table+" WHERE id = ?"), id)
	if err != nil {
		return 0, fmt.Errorf("failed to get item of %s %d: %w", table, id, err)
	}
	return itemID, nil
}

func itemsOf(ctx context.Context, q sqlx.QueryerContext, table string, ids []int64) ([]int64, error) {
	itemIDs := []int64{}
	if err := selectIn(ctx, q, &itemIDs, "SELECT item_id FROM "+table+" WHERE id IN (?) ORDER BY item_id", ids); err != nil {
		return nil, fmt.Errorf("failed to get items of %s: %w", table, err)
	}
	return itemIDs, nil
}

func currentChildItems(ctx context.Context, q sqlx.QueryerContext, relation string, categoryID int64) ([]int64, error) {
	query := `
		SELECT c.item_id FROM category_subcategories cs
		JOIN categories c ON c.id = cs.subcategory_id
		WHERE cs.category_id = ? ORDER BY c.item_id`
	if relation == RelationTerms {
		query = `
			SELECT t.item_id FROM category_terms ct
			JOIN terms t ON t.id = ct.term_id
			WHERE ct.category_id = ? ORDER BY t.item_id`
	}
	itemIDs := []int64{}
	if err := sqlx.SelectContext(ctx, q, &itemIDs, rebind(query), categoryID); err != nil {
		return nil, fmt.Errorf("failed to get child items: %w", err)
	}
	return itemIDs, nil
}

func currentParentItems(ctx context.Context, q sqlx.QueryerContext, relation string, childID int64) ([]int64, error) {
	query := `
		SELECT c.item_id FROM category_subcategories cs
		JOIN categories c ON c.id = cs.category_id
		WHERE cs.subcategory_id = ? ORDER BY c.item_id`
	if relation == RelationTerms {
		query = `
			SELECT c.item_id FROM category_terms ct
			JOIN categories c ON c.id = ct.category_id
			WHERE ct.term_id = ? ORDER BY c.item_id`
	}
	itemIDs := []int64{}
	if err := sqlx.SelectContext(ctx, q, &itemIDs, rebind(query), childID); err != nil {
		return nil, fmt.Errorf("failed to get parent items: %w", err)
	}
	return itemIDs, nil
}

// listCategoryEdges returns every (parent item, child item) pair of both category relations
func listCategoryEdges(ctx context.Context) ([]models.ItemRelation, error) {
	return categoryEdges(ctx, nil, false, 0)
}

// categoryEdges lists the item pairs of both category relations. When skip is
// set the rows of skip whose instance column equals instance are ignored.
func categoryEdges(ctx context.Context, skip *joinTable, reverse bool, instance int64) ([]models.ItemRelation, error) {
	subFilter, termFilter := "", ""
	args := []interface{}{}
	if skip != nil {
		column := skip.parent
		if reverse {
			column = skip.child
		}
		filter := fmt.Sprintf(" WHERE j.%s <> ?", column)
		if skip.relation == RelationTerms {
			termFilter = filter
		} else {
			subFilter = filter
		}
		args = append(args, instance)
	}

	query := `
		SELECT p.item_id AS parent_id, c.item_id AS child_id
		FROM category_subcategories j
		JOIN categories p ON p.id = j.category_id
		JOIN categories c ON c.id = j.subcategory_id` + subFilter + `
		UNION
		SELECT p.item_id AS parent_id, t.item_id AS child_id
		FROM category_terms j
		JOIN categories p ON p.id = j.category_id
		JOIN terms t ON t.id = j.term_id` + termFilter + `
		ORDER BY parent_id, child_id`

	edges := []models.ItemRelation{}
	if err := DB.SelectContext(ctx, &edges, rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list category edges: %w", err)
	}
	return edges, nil
}
