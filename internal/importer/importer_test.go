package importer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/example/flashcards/internal/config"
	"github.com/example/flashcards/internal/database"
	"github.com/example/flashcards/internal/environment"
)

func setup(t *testing.T) (*Importer, *environment.Memory) {
	t.Helper()
	require.NoError(t, database.Connect(config.Database{
		Driver: "sqlite3",
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	}))
	t.Cleanup(func() { database.Close() })

	env := environment.NewMemory()
	return New(database.NewCategoryRepository(database.NewEdgeMirror(env)), nil), env
}

func hasChild(t *testing.T, env environment.Environment, parent, child int64) bool {
	t.Helper()
	_, ok, err := env.Read(context.Background(), environment.KeyChild, parent, child)
	require.NoError(t, err)
	return ok
}

func TestImportFile(t *testing.T) {
	im, env := setup(t)
	ctx := context.Background()
	cfg := ImportConfig{FilePath: filepath.Join("testdata", "africa.yaml"), DefaultLang: "cs"}

	result, err := im.ImportFile(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, 8, result.TotalProcessed)
	assert.Equal(t, 7, result.Created)
	assert.Zero(t, result.Updated)
	assert.Zero(t, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "flashcards row 2")

	categories := database.NewCategoryRepository()
	terms := database.NewTermRepository()

	worldCS, err := categories.GetByIdentifier(ctx, "world", "cs")
	require.NoError(t, err)
	worldEN, err := categories.GetByIdentifier(ctx, "world", "en")
	require.NoError(t, err)
	assert.Equal(t, worldCS.ItemID, worldEN.ItemID, "translations share the item")

	africa, err := categories.GetByIdentifier(ctx, "africa", "cs")
	require.NoError(t, err)
	require.NotNil(t, africa.Type)
	assert.Equal(t, "continent", *africa.Type)

	bw, err := terms.GetByIdentifier(ctx, "bw", "cs")
	require.NoError(t, err)
	za, err := terms.GetByIdentifier(ctx, "za", "cs")
	require.NoError(t, err)

	assert.True(t, hasChild(t, env, worldCS.ItemID, africa.ItemID))
	assert.True(t, hasChild(t, env, africa.ItemID, bw.ItemID))
	assert.True(t, hasChild(t, env, africa.ItemID, za.ItemID))
	assert.True(t, hasChild(t, env, worldCS.ItemID, za.ItemID))

	flashcard, err := database.NewFlashcardRepository().GetByIdentifier(ctx, "africa-bw", "cs")
	require.NoError(t, err)
	assert.Equal(t, bw.ID, flashcard.TermID)

	// importing the same file again changes nothing
	result, err = im.ImportFile(ctx, cfg)
	require.NoError(t, err)
	assert.Zero(t, result.Created)
	assert.Zero(t, result.Updated)
	assert.Equal(t, 7, result.Skipped)
	assert.Len(t, result.Errors, 1)
}

func TestImportUpdatesParents(t *testing.T) {
	im, env := setup(t)
	ctx := context.Background()

	doc := &Document{
		Categories: []CategoryRow{
			{Identifier: "world", Name: "World"},
			{Identifier: "africa", Name: "Africa", Parents: []string{"world"}},
		},
		Terms: []TermRow{{Identifier: "bw", Name: "Botswana", Parents: []string{"africa"}}},
	}
	result := im.Import(ctx, doc, "en")
	require.Empty(t, result.Errors)
	assert.Equal(t, 3, result.Created)

	doc.Terms[0].Parents = []string{"world"}
	doc.Terms[0].Name = "Republic of Botswana"
	result = im.Import(ctx, doc, "en")
	require.Empty(t, result.Errors)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 2, result.Skipped)

	world, err := database.NewCategoryRepository().GetByIdentifier(ctx, "world", "en")
	require.NoError(t, err)
	africa, err := database.NewCategoryRepository().GetByIdentifier(ctx, "africa", "en")
	require.NoError(t, err)
	bw, err := database.NewTermRepository().GetByID(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, "Republic of Botswana", bw.Name)
	require.Len(t, bw.Parents, 1)
	assert.Equal(t, "world", bw.Parents[0].Identifier)
	assert.True(t, hasChild(t, env, world.ItemID, bw.ItemID))
	assert.False(t, hasChild(t, env, africa.ItemID, bw.ItemID))
}

func TestImportRowErrors(t *testing.T) {
	im, _ := setup(t)
	ctx := context.Background()

	doc := &Document{
		Categories: []CategoryRow{
			{Identifier: "", Name: "Nameless"},
			{Identifier: "a/b", Name: "Slash"},
			{Identifier: "europe", Name: "Europe", Parents: []string{"missing"}},
		},
		Terms: []TermRow{{Identifier: "cz"}},
	}
	result := im.Import(ctx, doc, "")
	assert.Equal(t, 4, result.TotalProcessed)
	assert.Len(t, result.Errors, 4)
	assert.Zero(t, result.Created)

	result = im.Import(ctx, doc, "en")
	assert.Equal(t, 1, result.Created)
	assert.Len(t, result.Errors, 4)
}

func TestReadWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "africa.xlsx")

	f := excelize.NewFile()
	_, err := f.NewSheet("categories")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("categories", "A1", &[]interface{}{"identifier", "lang", "name", "parents"}))
	require.NoError(t, f.SetSheetRow("categories", "A2", &[]interface{}{"world", "en", "World"}))
	require.NoError(t, f.SetSheetRow("categories", "A3", &[]interface{}{"africa", "en", "Africa", "world"}))

	_, err = f.NewSheet("Terms")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Terms", "A1", &[]interface{}{"Name", "Identifier", "Parents"}))
	require.NoError(t, f.SetSheetRow("Terms", "A2", &[]interface{}{"Botswana", "bw", "africa, world"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	doc, err := ReadFile(path)
	require.NoError(t, err)

	require.Len(t, doc.Categories, 2)
	assert.Equal(t, CategoryRow{Identifier: "world", Lang: "en", Name: "World"}, doc.Categories[0])
	assert.Equal(t, []string{"world"}, doc.Categories[1].Parents)
	assert.Equal(t, []TermRow{{Identifier: "bw", Name: "Botswana", Parents: []string{"africa", "world"}}}, doc.Terms)
	assert.Empty(t, doc.Contexts)
}

func TestReadFileUnsupported(t *testing.T) {
	_, err := ReadFile("data.json")
	assert.Error(t, err)
}
