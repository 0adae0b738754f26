package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/flashcards/internal/config"
	"github.com/example/flashcards/pkg/models"
)

// setupTestDB connects the package DB to a fresh sqlite file
func setupTestDB(t *testing.T) {
	t.Helper()
	err := Connect(config.Database{
		Driver: "sqlite3",
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { Close() })
}

// setupDiamond creates items 1..7 linked as
// 1->{2,3}, 2->{5,6}, 3->{6,7}, 4->{7}
func setupDiamond(t *testing.T) *ItemRepository {
	t.Helper()
	ctx := context.Background()
	repo := NewItemRepository()
	for id := int64(1); id <= 7; id++ {
		require.NoError(t, repo.CreateWithID(ctx, id, models.ItemTypeCategory))
	}
	for _, e := range [][2]int64{{1, 2}, {1, 3}, {2, 5}, {2, 6}, {3, 6}, {3, 7}, {4, 7}} {
		require.NoError(t, repo.AddRelation(ctx, e[0], e[1]))
	}
	return repo
}

func strPtr(s string) *string {
	return &s
}

func newCategory(t *testing.T, repo *CategoryRepository, identifier, lang, name string) *models.Category {
	t.Helper()
	c := &models.Category{Identifier: identifier, Lang: lang, Name: name}
	require.NoError(t, repo.Create(context.Background(), c))
	return c
}

func newTerm(t *testing.T, identifier, lang, name string) *models.Term {
	t.Helper()
	term := &models.Term{Identifier: identifier, Lang: lang, Name: name}
	require.NoError(t, NewTermRepository().Create(context.Background(), term))
	return term
}

func newFlashcard(t *testing.T, identifier, lang string, term *models.Term) *models.Flashcard {
	t.Helper()
	ctx := context.Background()
	c := &models.Context{Identifier: identifier + "-map", Lang: lang, Name: strPtr("Map"), Content: strPtr("<svg/>")}
	require.NoError(t, NewContextRepository().Create(ctx, c))
	f := &models.Flashcard{Identifier: identifier, Lang: lang, TermID: term.ID, ContextID: c.ID, Description: strPtr("where is it?")}
	require.NoError(t, NewFlashcardRepository().Create(ctx, f))
	return f
}
