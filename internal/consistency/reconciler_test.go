package consistency

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/flashcards/internal/config"
	"github.com/example/flashcards/internal/database"
	"github.com/example/flashcards/internal/environment"
	"github.com/example/flashcards/internal/graph"
	"github.com/example/flashcards/pkg/models"
)

type staticEdges []models.ItemRelation

func (s staticEdges) ListEdges(ctx context.Context) ([]models.ItemRelation, error) {
	return s, nil
}

type countingSyncer struct {
	calls int
}

func (c *countingSyncer) SyncRelationsFromEnvironment(ctx context.Context, env environment.Environment) (int, int, error) {
	c.calls++
	return 2, 1, nil
}

func TestCheck(t *testing.T) {
	ctx := context.Background()
	env := environment.NewMemory()
	source := staticEdges{{ParentID: 1, ChildID: 2}, {ParentID: 1, ChildID: 3}}

	require.NoError(t, env.Write(ctx, environment.KeyChild, 1, 1, 2, false))
	require.NoError(t, env.Write(ctx, environment.KeyChild, 1, 4, 5, false))
	require.NoError(t, env.Write(ctx, environment.KeyParent, 1, 2, 1, false))
	require.NoError(t, env.Write(ctx, environment.KeyParent, 0.5, 3, 1, false))

	report, err := New(source, env, nil, nil).Check(ctx)
	require.NoError(t, err)

	assert.False(t, report.Clean())
	assert.Equal(t, []graph.Edge{{From: 1, To: 3}}, report.MissingChildren)
	assert.Equal(t, []graph.Edge{{From: 4, To: 5}}, report.StaleChildren)
	assert.Equal(t, []graph.Edge{{From: 3, To: 1}}, report.MissingParents)
	assert.Empty(t, report.StaleParents)
}

func TestRepair(t *testing.T) {
	ctx := context.Background()
	env := environment.NewMemory()
	source := staticEdges{{ParentID: 1, ChildID: 2}}
	syncer := &countingSyncer{}
	r := New(source, env, syncer, nil)

	require.NoError(t, env.Write(ctx, environment.KeyChild, 1, 9, 8, false))

	report, err := r.Repair(ctx)
	require.NoError(t, err)
	assert.False(t, report.Clean())
	assert.Equal(t, 2, report.RelationsAdded)
	assert.Equal(t, 1, report.RelationsRemoved)
	assert.Equal(t, 1, syncer.calls)

	report, err = r.Check(ctx)
	require.NoError(t, err)
	assert.True(t, report.Clean())

	v, ok, err := env.Read(ctx, environment.KeyParent, 2, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)
}

func TestRepairRestoresCategoryMirror(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, database.Connect(config.Database{
		Driver: "sqlite3",
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	}))
	t.Cleanup(func() { database.Close() })

	env := environment.NewMemory()
	categories := database.NewCategoryRepository(database.NewEdgeMirror(env))
	items := database.NewItemRepository()

	world := &models.Category{Identifier: "world", Lang: "en", Name: "World"}
	europe := &models.Category{Identifier: "europe", Lang: "en", Name: "Europe"}
	require.NoError(t, categories.Create(ctx, world))
	require.NoError(t, categories.Create(ctx, europe))
	cz := &models.Term{Identifier: "cz", Lang: "en", Name: "Czechia"}
	require.NoError(t, database.NewTermRepository().Create(ctx, cz))

	require.NoError(t, categories.AddSubcategories(ctx, world.ID, europe.ID))
	require.NoError(t, categories.AddTerms(ctx, europe.ID, cz.ID))

	// tamper with the environment behind the repository's back
	require.NoError(t, env.Delete(ctx, environment.KeyChild, europe.ItemID, cz.ItemID))
	require.NoError(t, env.Write(ctx, environment.KeyParent, 1, world.ItemID, cz.ItemID, false))

	r := New(categories, env, items, nil)
	report, err := r.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, []graph.Edge{{From: europe.ItemID, To: cz.ItemID}}, report.MissingChildren)
	assert.Equal(t, []graph.Edge{{From: world.ItemID, To: cz.ItemID}}, report.StaleParents)

	report, err = r.Repair(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.RelationsAdded)

	report, err = r.Check(ctx)
	require.NoError(t, err)
	assert.True(t, report.Clean())

	children, err := items.GetChildrenGraph(ctx, []int64{world.ItemID})
	require.NoError(t, err)
	assert.Equal(t, graph.Graph{
		graph.Root:    {world.ItemID},
		world.ItemID:  {europe.ItemID},
		europe.ItemID: {cz.ItemID},
	}, children)
}
