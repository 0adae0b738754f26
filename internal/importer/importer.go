package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/example/flashcards/internal/database"
	"github.com/example/flashcards/internal/logger"
	"github.com/example/flashcards/pkg/models"
)

// Section names, used as yaml keys and xlsx sheet names
const (
	SectionCategories = "categories"
	SectionTerms      = "terms"
	SectionContexts   = "contexts"
	SectionFlashcards = "flashcards"
)

// CategoryRow is a category in an import file
type CategoryRow struct {
	Identifier string   `yaml:"identifier"`
	Lang       string   `yaml:"lang"`
	Name       string   `yaml:"name"`
	Type       string   `yaml:"type"`
	Parents    []string `yaml:"parents"`
}

// TermRow is a term in an import file
type TermRow struct {
	Identifier string   `yaml:"identifier"`
	Lang       string   `yaml:"lang"`
	Name       string   `yaml:"name"`
	Type       string   `yaml:"type"`
	Parents    []string `yaml:"parents"`
}

// ContextRow is a context in an import file
type ContextRow struct {
	Identifier string `yaml:"identifier"`
	Lang       string `yaml:"lang"`
	Name       string `yaml:"name"`
	Content    string `yaml:"content"`
}

// FlashcardRow is a flashcard in an import file. Term and Context are identifiers.
type FlashcardRow struct {
	Identifier  string `yaml:"identifier"`
	Lang        string `yaml:"lang"`
	Term        string `yaml:"term"`
	Context     string `yaml:"context"`
	Description string `yaml:"description"`
}

// Document is the content of an import file
type Document struct {
	Categories []CategoryRow  `yaml:"categories"`
	Terms      []TermRow      `yaml:"terms"`
	Contexts   []ContextRow   `yaml:"contexts"`
	Flashcards []FlashcardRow `yaml:"flashcards"`
}

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath    string // Path to the yaml or xlsx file
	DefaultLang string // Language of rows without one
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Updated        int
	Skipped        int
	Errors         []string
}

// Importer loads flashcard data into the relational store
type Importer struct {
	items      *database.ItemRepository
	categories *database.CategoryRepository
	terms      *database.TermRepository
	contexts   *database.ContextRepository
	flashcards *database.FlashcardRepository
	log        *logger.Logger
}

// New creates an importer. Parent links go through categories, so its
// observers see every imported relation.
func New(categories *database.CategoryRepository, log *logger.Logger) *Importer {
	if log == nil {
		log = logger.Nop()
	}
	return &Importer{
		items:      database.NewItemRepository(),
		categories: categories,
		terms:      database.NewTermRepository(),
		contexts:   database.NewContextRepository(),
		flashcards: database.NewFlashcardRepository(),
		log:        log,
	}
}

// ReadFile parses a yaml or xlsx import file
func ReadFile(path string) (*Document, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		var doc Document
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return &doc, nil
	case ".xlsx":
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open Excel file: %w", err)
		}
		defer f.Close()
		return readWorkbook(f)
	default:
		return nil, fmt.Errorf("unsupported import file type %q", ext)
	}
}

// ImportFile reads the file and imports its content
func (im *Importer) ImportFile(ctx context.Context, config ImportConfig) (*ImportResult, error) {
	doc, err := ReadFile(config.FilePath)
	if err != nil {
		return nil, err
	}
	result := im.Import(ctx, doc, config.DefaultLang)
	im.log.Info("Import finished",
		"file", config.FilePath,
		"processed", result.TotalProcessed,
		"created", result.Created,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
	)
	return result, nil
}

// Import stores the document. Categories go first so that parents can be
// resolved, flashcards last. Row errors are collected in the result.
func (im *Importer) Import(ctx context.Context, doc *Document, defaultLang string) *ImportResult {
	result := &ImportResult{Errors: make([]string, 0)}
	fail := func(section string, row int, err error) {
		result.Errors = append(result.Errors, fmt.Sprintf("%s row %d: %v", section, row+1, err))
	}

	categories := make([]*models.Category, len(doc.Categories))
	for i, row := range doc.Categories {
		result.TotalProcessed++
		c, err := im.importCategory(ctx, row, defaultLang, result)
		if err != nil {
			fail(SectionCategories, i, err)
			continue
		}
		categories[i] = c
	}
	for i, row := range doc.Categories {
		if categories[i] == nil {
			continue
		}
		if err := im.syncCategoryParents(ctx, categories[i], row.Parents); err != nil {
			fail(SectionCategories, i, err)
		}
	}

	for i, row := range doc.Terms {
		result.TotalProcessed++
		if err := im.importTerm(ctx, row, defaultLang, result); err != nil {
			fail(SectionTerms, i, err)
		}
	}

	for i, row := range doc.Contexts {
		result.TotalProcessed++
		if err := im.importContext(ctx, row, defaultLang, result); err != nil {
			fail(SectionContexts, i, err)
		}
	}

	for i, row := range doc.Flashcards {
		result.TotalProcessed++
		if err := im.importFlashcard(ctx, row, defaultLang, result); err != nil {
			fail(SectionFlashcards, i, err)
		}
	}

	return result
}

// rowKey validates and normalizes the identifier and language of a row
func rowKey(identifier, lang, defaultLang string) (string, string, error) {
	identifier = strings.TrimSpace(identifier)
	lang = strings.TrimSpace(lang)
	if lang == "" {
		lang = defaultLang
	}
	if identifier == "" {
		return "", "", errors.New("identifier cannot be empty")
	}
	if strings.Contains(identifier, "/") {
		return "", "", fmt.Errorf("identifier %q cannot contain '/'", identifier)
	}
	if lang == "" {
		return "", "", errors.New("lang cannot be empty")
	}
	return identifier, lang, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func sameOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// sharedItem returns the item of an existing translation of the object
func (im *Importer) sharedItem(ctx context.Context, objectType, identifier string) (int64, error) {
	return im.items.ItemIDForIdentifier(ctx, objectType, identifier)
}

func (im *Importer) importCategory(ctx context.Context, row CategoryRow, defaultLang string, result *ImportResult) (*models.Category, error) {
	identifier, lang, err := rowKey(row.Identifier, row.Lang, defaultLang)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(row.Name)
	if name == "" {
		return nil, errors.New("name cannot be empty")
	}

	existing, err := im.categories.GetByIdentifier(ctx, identifier, lang)
	switch {
	case errors.Is(err, database.ErrNotFound):
		itemID, err := im.sharedItem(ctx, models.ItemTypeCategory, identifier)
		if err != nil {
			return nil, err
		}
		c := &models.Category{Identifier: identifier, ItemID: itemID, Lang: lang, Name: name, Type: optional(row.Type)}
		if err := im.categories.Create(ctx, c); err != nil {
			return nil, err
		}
		result.Created++
		return c, nil
	case err != nil:
		return nil, err
	}

	if existing.Name == name && sameOptional(existing.Type, optional(row.Type)) {
		result.Skipped++
		return existing, nil
	}
	existing.Name = name
	existing.Type = optional(row.Type)
	if err := im.categories.Update(ctx, existing); err != nil {
		return nil, err
	}
	result.Updated++
	return existing, nil
}

// resolveCategories maps parent identifiers to category ids in lang
func (im *Importer) resolveCategories(ctx context.Context, identifiers []string, lang string) ([]int64, error) {
	ids := make([]int64, 0, len(identifiers))
	for _, identifier := range identifiers {
		identifier = strings.TrimSpace(identifier)
		if identifier == "" {
			continue
		}
		c, err := im.categories.GetByIdentifier(ctx, identifier, lang)
		if err != nil {
			return nil, fmt.Errorf("parent %q: %w", identifier, err)
		}
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// diffIDs returns the ids of want missing in have and the ids of have missing in want
func diffIDs(have, want []int64) (add, remove []int64) {
	inHave := make(map[int64]bool, len(have))
	for _, id := range have {
		inHave[id] = true
	}
	inWant := make(map[int64]bool, len(want))
	for _, id := range want {
		inWant[id] = true
		if !inHave[id] {
			add = append(add, id)
		}
	}
	for _, id := range have {
		if !inWant[id] {
			remove = append(remove, id)
		}
	}
	return add, remove
}

func categoryIDs(categories []models.Category) []int64 {
	ids := make([]int64, len(categories))
	for i, c := range categories {
		ids[i] = c.ID
	}
	return ids
}

func (im *Importer) syncCategoryParents(ctx context.Context, c *models.Category, parents []string) error {
	want, err := im.resolveCategories(ctx, parents, c.Lang)
	if err != nil {
		return err
	}
	current, err := im.categories.GetParents(ctx, c.ID)
	if err != nil {
		return err
	}
	add, remove := diffIDs(categoryIDs(current), want)
	if err := im.categories.RemoveCategoryParents(ctx, c.ID, remove...); err != nil {
		return err
	}
	return im.categories.AddCategoryParents(ctx, c.ID, add...)
}

func (im *Importer) importTerm(ctx context.Context, row TermRow, defaultLang string, result *ImportResult) error {
	identifier, lang, err := rowKey(row.Identifier, row.Lang, defaultLang)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(row.Name)
	if name == "" {
		return errors.New("name cannot be empty")
	}
	want, err := im.resolveCategories(ctx, row.Parents, lang)
	if err != nil {
		return err
	}

	term, err := im.terms.GetByIdentifier(ctx, identifier, lang)
	created := false
	switch {
	case errors.Is(err, database.ErrNotFound):
		itemID, err := im.sharedItem(ctx, models.ItemTypeTerm, identifier)
		if err != nil {
			return err
		}
		term = &models.Term{Identifier: identifier, ItemID: itemID, Lang: lang, Name: name, Type: optional(row.Type)}
		if err := im.terms.Create(ctx, term); err != nil {
			return err
		}
		created = true
	case err != nil:
		return err
	}

	current, err := im.categories.GetTermParents(ctx, term.ID)
	if err != nil {
		return err
	}
	add, remove := diffIDs(categoryIDs(current), want)

	if created {
		result.Created++
	} else {
		changed := term.Name != name || !sameOptional(term.Type, optional(row.Type))
		if !changed && len(add) == 0 && len(remove) == 0 {
			result.Skipped++
			return nil
		}
		if changed {
			term.Name = name
			term.Type = optional(row.Type)
			if err := im.terms.Update(ctx, term); err != nil {
				return err
			}
		}
		result.Updated++
	}

	if err := im.categories.RemoveTermParents(ctx, term.ID, remove...); err != nil {
		return err
	}
	return im.categories.AddTermParents(ctx, term.ID, add...)
}

func (im *Importer) importContext(ctx context.Context, row ContextRow, defaultLang string, result *ImportResult) error {
	identifier, lang, err := rowKey(row.Identifier, row.Lang, defaultLang)
	if err != nil {
		return err
	}

	c, err := im.contexts.GetByIdentifier(ctx, identifier, lang)
	switch {
	case errors.Is(err, database.ErrNotFound):
		itemID, err := im.sharedItem(ctx, models.ItemTypeContext, identifier)
		if err != nil {
			return err
		}
		c = &models.Context{Identifier: identifier, ItemID: itemID, Lang: lang, Name: optional(row.Name), Content: optional(row.Content)}
		if err := im.contexts.Create(ctx, c); err != nil {
			return err
		}
		result.Created++
		return nil
	case err != nil:
		return err
	}

	if sameOptional(c.Name, optional(row.Name)) && sameOptional(c.Content, optional(row.Content)) {
		result.Skipped++
		return nil
	}
	c.Name = optional(row.Name)
	c.Content = optional(row.Content)
	if err := im.contexts.Update(ctx, c); err != nil {
		return err
	}
	result.Updated++
	return nil
}

func (im *Importer) importFlashcard(ctx context.Context, row FlashcardRow, defaultLang string, result *ImportResult) error {
	identifier, lang, err := rowKey(row.Identifier, row.Lang, defaultLang)
	if err != nil {
		return err
	}
	term, err := im.terms.GetByIdentifier(ctx, strings.TrimSpace(row.Term), lang)
	if err != nil {
		return fmt.Errorf("term %q: %w", row.Term, err)
	}
	c, err := im.contexts.GetByIdentifier(ctx, strings.TrimSpace(row.Context), lang)
	if err != nil {
		return fmt.Errorf("context %q: %w", row.Context, err)
	}

	f, err := im.flashcards.GetByIdentifier(ctx, identifier, lang)
	switch {
	case errors.Is(err, database.ErrNotFound):
		itemID, err := im.sharedItem(ctx, models.ItemTypeFlashcard, identifier)
		if err != nil {
			return err
		}
		f = &models.Flashcard{Identifier: identifier, ItemID: itemID, Lang: lang, TermID: term.ID, ContextID: c.ID, Description: optional(row.Description)}
		if err := im.flashcards.Create(ctx, f); err != nil {
			return err
		}
		result.Created++
		return nil
	case err != nil:
		return err
	}

	if f.TermID == term.ID && f.ContextID == c.ID && sameOptional(f.Description, optional(row.Description)) {
		result.Skipped++
		return nil
	}
	f.TermID = term.ID
	f.ContextID = c.ID
	f.Description = optional(row.Description)
	if err := im.flashcards.Update(ctx, f); err != nil {
		return err
	}
	result.Updated++
	return nil
}
