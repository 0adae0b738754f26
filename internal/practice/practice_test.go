package practice

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/flashcards/internal/config"
	"github.com/example/flashcards/internal/database"
	"github.com/example/flashcards/internal/environment"
	"github.com/example/flashcards/pkg/models"
)

type world struct {
	practice *Practice
	europe   *models.Category
	terms    map[string]*models.Term
	cards    map[string]*models.Flashcard
}

func setup(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, database.Connect(config.Database{
		Driver: "sqlite3",
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	}))
	t.Cleanup(func() { database.Close() })

	env := environment.NewMemory()
	categories := database.NewCategoryRepository(database.NewEdgeMirror(env))

	w := &world{
		practice: NewWithRand(categories, rand.New(rand.NewSource(1))),
		terms:    map[string]*models.Term{},
		cards:    map[string]*models.Flashcard{},
	}

	top := &models.Category{Identifier: "world", Lang: "en", Name: "World"}
	w.europe = &models.Category{Identifier: "europe", Lang: "en", Name: "Europe"}
	africa := &models.Category{Identifier: "africa", Lang: "en", Name: "Africa"}
	for _, c := range []*models.Category{top, w.europe, africa} {
		require.NoError(t, categories.Create(ctx, c))
	}
	require.NoError(t, categories.AddSubcategories(ctx, top.ID, w.europe.ID, africa.ID))

	mapContext := &models.Context{Identifier: "map", Lang: "en"}
	require.NoError(t, database.NewContextRepository().Create(ctx, mapContext))

	for _, id := range []string{"cz", "de", "at", "bw"} {
		term := &models.Term{Identifier: id, Lang: "en", Name: id}
		require.NoError(t, database.NewTermRepository().Create(ctx, term))
		w.terms[id] = term
		parent := w.europe
		if id == "bw" {
			parent = africa
		}
		require.NoError(t, categories.AddTerms(ctx, parent.ID, term.ID))
	}
	for _, id := range []string{"cz", "de", "bw"} {
		f := &models.Flashcard{Identifier: "map-" + id, Lang: "en", TermID: w.terms[id].ID, ContextID: mapContext.ID}
		require.NoError(t, database.NewFlashcardRepository().Create(ctx, f))
		w.cards[id] = f
	}

	_, _, err := database.NewItemRepository().SyncRelationsFromEnvironment(ctx, env)
	require.NoError(t, err)
	return w
}

func TestNextWithinCategory(t *testing.T) {
	w := setup(t)
	ctx := context.Background()

	questions, err := w.practice.Next(ctx, Request{
		UserID:        1,
		Lang:          "en",
		CategoryItems: []int64{w.europe.ItemID},
		Count:         10,
		Options:       3,
	})
	require.NoError(t, err)
	require.Len(t, questions, 2)

	europe := map[int64]bool{w.terms["cz"].ID: true, w.terms["de"].ID: true, w.terms["at"].ID: true}
	for _, q := range questions {
		assert.True(t, europe[q.Flashcard.TermID])
		assert.True(t, models.ValidDirection(q.Direction))
		require.Len(t, q.Options, 3)
		assert.Equal(t, q.Flashcard.TermID, q.Options[q.CorrectIndex].ID)
		for _, o := range q.Options {
			assert.True(t, europe[o.ID], "options come from the same category")
		}
	}
}

func TestNextSkipsItemsNotDue(t *testing.T) {
	w := setup(t)
	ctx := context.Background()

	progress := models.NewUserProgress(1, w.cards["cz"].ItemID)
	progress.Repetitions = 1
	progress.NextReviewDate = time.Now().Add(24 * time.Hour)
	require.NoError(t, database.NewUserProgressRepository().Upsert(ctx, progress))

	questions, err := w.practice.Next(ctx, Request{UserID: 1, Lang: "en", Count: 10})
	require.NoError(t, err)
	require.Len(t, questions, 2)
	for _, q := range questions {
		assert.NotEqual(t, w.cards["cz"].ID, q.Flashcard.ID)
		assert.Empty(t, q.Options)
	}

	// another user still gets everything
	questions, err = w.practice.Next(ctx, Request{UserID: 2, Lang: "en", Count: 1})
	require.NoError(t, err)
	assert.Len(t, questions, 1)
}

func TestNextFillsOptionsFromOtherCategories(t *testing.T) {
	w := setup(t)
	ctx := context.Background()

	questions, err := w.practice.Next(ctx, Request{
		UserID:        1,
		Lang:          "en",
		CategoryItems: []int64{w.terms["bw"].ItemID},
		Count:         5,
		Options:       4,
	})
	require.NoError(t, err)
	require.Len(t, questions, 1)

	q := questions[0]
	assert.Equal(t, w.cards["bw"].ID, q.Flashcard.ID)
	require.Len(t, q.Options, 4)
	ids := map[int64]bool{}
	for _, o := range q.Options {
		ids[o.ID] = true
	}
	assert.Len(t, ids, 4, "options are distinct")
	assert.Equal(t, w.terms["bw"].ID, q.Options[q.CorrectIndex].ID)
}

func TestNextInOtherLanguage(t *testing.T) {
	w := setup(t)

	questions, err := w.practice.Next(context.Background(), Request{UserID: 1, Lang: "cs", Count: 5})
	require.NoError(t, err)
	assert.Empty(t, questions)
}
