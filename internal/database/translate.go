package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/flashcards/pkg/models"
)

// identifierTables maps the object type of an identifier to its table
var identifierTables = map[string]string{
	models.ItemTypeTerm:      "terms",
	models.ItemTypeContext:   "contexts",
	models.ItemTypeFlashcard: "flashcards",
	models.ItemTypeCategory:  "categories",
}

type jsonable interface {
	ToJSON(nested bool) map[string]interface{}
}

// TranslateItemIDs renders the entity owning each item in lang. Items
// without an entity in lang are omitted; answers ignore lang. A nil
// isNested renders every entity as not nested.
func (r *ItemRepository) TranslateItemIDs(ctx context.Context, ids []int64, lang string, isNested func(int64) bool) (map[int64]map[string]interface{}, error) {
	if isNested == nil {
		isNested = func(int64) bool { return false }
	}

	types, err := r.GetTypes(ctx, ids)
	if err != nil {
		return nil, err
	}
	byType := make(map[string][]int64)
	for _, id := range ids {
		if t, ok := types[id]; ok {
			byType[t] = append(byType[t], id)
		}
	}

	entities := make(map[int64]jsonable, len(types))
	for itemType, itemIDs := range byType {
		switch itemType {
		case models.ItemTypeTerm:
			terms, err := NewTermRepository().GetByItemIDs(ctx, itemIDs, lang)
			if err != nil {
				return nil, err
			}
			for i := range terms {
				entities[terms[i].ItemID] = &terms[i]
			}
		case models.ItemTypeContext:
			contexts, err := NewContextRepository().GetByItemIDs(ctx, itemIDs, lang)
			if err != nil {
				return nil, err
			}
			for i := range contexts {
				entities[contexts[i].ItemID] = &contexts[i]
			}
		case models.ItemTypeFlashcard:
			flashcards, err := NewFlashcardRepository().GetByItemIDs(ctx, itemIDs, lang)
			if err != nil {
				return nil, err
			}
			for i := range flashcards {
				entities[flashcards[i].ItemID] = &flashcards[i]
			}
		case models.ItemTypeCategory:
			categories, err := NewCategoryRepository().GetByItemIDs(ctx, itemIDs, lang)
			if err != nil {
				return nil, err
			}
			for i := range categories {
				entities[categories[i].ItemID] = &categories[i]
			}
		case models.ItemTypeAnswer:
			answers, err := NewAnswerRepository().GetByItemIDs(ctx, itemIDs)
			if err != nil {
				return nil, err
			}
			for i := range answers {
				entities[answers[i].ItemID] = &answers[i]
			}
		default:
			return nil, fmt.Errorf("item type %q: %w", itemType, ErrUnknownObjectType)
		}
	}

	result := make(map[int64]map[string]interface{}, len(entities))
	for id, entity := range entities {
		result[id] = entity.ToJSON(isNested(id))
	}
	return result, nil
}

// TranslateIdentifiers resolves "type/identifier" strings to the item ids of
// the matching entities in lang. Identifiers without an entity are omitted.
func (r *ItemRepository) TranslateIdentifiers(ctx context.Context, identifiers []string, lang string) (map[string]int64, error) {
	byType := make(map[string][]string)
	for _, identifier := range identifiers {
		objectType, slug, ok := strings.Cut(identifier, "/")
		if !ok || objectType == "" || slug == "" {
			return nil, fmt.Errorf("%q: %w", identifier, ErrInvalidIdentifier)
		}
		if _, known := identifierTables[objectType]; !known {
			return nil, fmt.Errorf("%q: %w", objectType, ErrUnknownObjectType)
		}
		byType[objectType] = append(byType[objectType], slug)
	}

	result := make(map[string]int64, len(identifiers))
	for objectType, slugs := range byType {
		var rows []struct {
			Identifier string `db:"identifier"`
			ItemID     int64  `db:"item_id"`
		}
		query := "SELECT identifier, item_id FROM " + identifierTables[objectType] + " WHERE identifier IN (?) AND lang = ?"
		if err := selectIn(ctx, DB, &rows, query, slugs, lang); err != nil {
			return nil, fmt.Errorf("failed to translate %s identifiers: %w", objectType, err)
		}
		for _, row := range rows {
			result[objectType+"/"+row.Identifier] = row.ItemID
		}
	}
	return result, nil
}

// ItemIDForIdentifier returns the item shared by the translations of the
// object with the given type and identifier, or 0 when none exists yet
func (r *ItemRepository) ItemIDForIdentifier(ctx context.Context, objectType, identifier string) (int64, error) {
	table, ok := identifierTables[objectType]
	if !ok {
		return 0, fmt.Errorf("%q: %w", objectType, ErrUnknownObjectType)
	}
	var itemIDs []int64
	err := DB.SelectContext(ctx, &itemIDs, rebind("SELECT item_id FROM "+table+" WHERE identifier = ? ORDER BY id LIMIT 1"), identifier)
	if err != nil {
		return 0, fmt.Errorf("failed to get item of %s: %w", identifier, err)
	}
	if len(itemIDs) == 0 {
		return 0, nil
	}
	return itemIDs[0], nil
}
