package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/example/flashcards/internal/database"
	"github.com/example/flashcards/internal/graph"
	"github.com/example/flashcards/internal/logger"
	"github.com/example/flashcards/internal/practice"
	"github.com/example/flashcards/pkg/models"
)

type jsonable interface {
	ToJSON(nested bool) map[string]interface{}
}

// Handler serves the read-only flashcards API
type Handler struct {
	items       *database.ItemRepository
	terms       *database.TermRepository
	contexts    *database.ContextRepository
	flashcards  *database.FlashcardRepository
	categories  *database.CategoryRepository
	answers     *database.AnswerRepository
	practice    *practice.Practice
	defaultLang string
	log         *logger.Logger
}

// NewHandler creates the API handlers. categories carries the edge mirror
// observers, defaultLang applies when a request has no lang parameter.
func NewHandler(categories *database.CategoryRepository, defaultLang string, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		items:       database.NewItemRepository(),
		terms:       database.NewTermRepository(),
		contexts:    database.NewContextRepository(),
		flashcards:  database.NewFlashcardRepository(),
		categories:  categories,
		answers:     database.NewAnswerRepository(),
		practice:    practice.New(categories),
		defaultLang: defaultLang,
		log:         log,
	}
}

// parseIDs reads a comma separated list of ids
func parseIDs(raw string) ([]int64, error) {
	ids := []int64{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (h *Handler) lang(c *gin.Context) string {
	if lang := strings.TrimSpace(c.Query("lang")); lang != "" {
		return lang
	}
	return h.defaultLang
}

// idsQuery parses the ids query parameter, responding 400 when it is missing or invalid
func idsQuery(c *gin.Context) ([]int64, bool) {
	ids, err := parseIDs(c.Query("ids"))
	if err == nil && len(ids) == 0 {
		err = errors.New("ids are required")
	}
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_ids", err)
		return nil, false
	}
	return ids, true
}

// GET /health
func (h *Handler) Health(c *gin.Context) {
	if err := database.DB.PingContext(c.Request.Context()); err != nil {
		RespondError(c, http.StatusServiceUnavailable, "database_unavailable", err)
		return
	}
	c.String(http.StatusOK, "ok")
}

// GET /graph/parents?ids=
func (h *Handler) ParentsGraph(c *gin.Context) {
	h.graph(c, h.items.GetParentsGraph)
}

// GET /graph/children?ids=
func (h *Handler) ChildrenGraph(c *gin.Context) {
	h.graph(c, h.items.GetChildrenGraph)
}

func (h *Handler) graph(c *gin.Context, load func(context.Context, []int64) (graph.Graph, error)) {
	ids, ok := idsQuery(c)
	if !ok {
		return
	}
	g, err := load(c.Request.Context(), ids)
	if err != nil {
		h.fail(c, "load_graph_failed", "Loading item graph failed", err, "ids", ids)
		return
	}
	RespondOK(c, gin.H{"graph": g})
}

// GET /graph/leaves?ids=
func (h *Handler) Leaves(c *gin.Context) {
	ids, ok := idsQuery(c)
	if !ok {
		return
	}
	leaves, err := h.items.GetLeaves(c.Request.Context(), ids)
	if err != nil {
		h.fail(c, "load_leaves_failed", "Loading leaves failed", err, "ids", ids)
		return
	}
	out := make([]int64, 0, len(leaves))
	for id := range leaves {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	RespondOK(c, gin.H{"leaves": out})
}

// GET /items?ids=&lang=&nested=
func (h *Handler) Items(c *gin.Context) {
	ids, ok := idsQuery(c)
	if !ok {
		return
	}
	nestedIDs, err := parseIDs(c.Query("nested"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_nested", err)
		return
	}
	nested := make(map[int64]bool, len(nestedIDs))
	for _, id := range nestedIDs {
		nested[id] = true
	}

	items, err := h.items.TranslateItemIDs(c.Request.Context(), ids, h.lang(c), func(id int64) bool { return nested[id] })
	if err != nil {
		h.fail(c, "translate_items_failed", "Translating items failed", err, "ids", ids)
		return
	}
	RespondOK(c, gin.H{"items": items})
}

// GET /identifiers?q=type/slug,...&lang=
func (h *Handler) Identifiers(c *gin.Context) {
	var identifiers []string
	for _, part := range strings.Split(c.Query("q"), ",") {
		if part = strings.TrimSpace(part); part != "" {
			identifiers = append(identifiers, part)
		}
	}
	if len(identifiers) == 0 {
		RespondError(c, http.StatusBadRequest, "invalid_identifiers", errors.New("identifiers are required"))
		return
	}

	items, err := h.items.TranslateIdentifiers(c.Request.Context(), identifiers, h.lang(c))
	switch {
	case errors.Is(err, database.ErrInvalidIdentifier), errors.Is(err, database.ErrUnknownObjectType):
		RespondError(c, http.StatusBadRequest, "invalid_identifiers", err)
		return
	case err != nil:
		h.fail(c, "translate_identifiers_failed", "Translating identifiers failed", err)
		return
	}
	RespondOK(c, gin.H{"items": items})
}

// GET /objects/:type/:id
func (h *Handler) ShowObject(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		RespondError(c, http.StatusBadRequest, "invalid_id", fmt.Errorf("invalid id %q", c.Param("id")))
		return
	}

	ctx := c.Request.Context()
	var object jsonable
	switch c.Param("type") {
	case models.ItemTypeTerm:
		object, err = h.terms.GetByID(ctx, id)
	case models.ItemTypeContext:
		object, err = h.contexts.GetByID(ctx, id)
	case models.ItemTypeFlashcard:
		object, err = h.flashcards.GetByID(ctx, id)
	case models.ItemTypeCategory:
		object, err = h.categories.GetByID(ctx, id)
	case models.ItemTypeAnswer:
		object, err = h.answers.GetByID(ctx, id)
	default:
		RespondError(c, http.StatusNotFound, "unknown_object_type", fmt.Errorf("%q: %w", c.Param("type"), database.ErrUnknownObjectType))
		return
	}
	switch {
	case errors.Is(err, database.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
		return
	case err != nil:
		h.fail(c, "load_object_failed", "Loading object failed", err, "type", c.Param("type"), "id", id)
		return
	}
	RespondOK(c, object.ToJSON(false))
}

// GET /objects/:type?lang=, answers take ?user=&limit= instead of lang
func (h *Handler) ListObjects(c *gin.Context) {
	ctx := c.Request.Context()
	lang := h.lang(c)

	var (
		objects []jsonable
		err     error
	)
	switch c.Param("type") {
	case models.ItemTypeTerm:
		var terms []models.Term
		if terms, err = h.terms.List(ctx, lang); err == nil {
			for i := range terms {
				objects = append(objects, &terms[i])
			}
		}
	case models.ItemTypeContext:
		var contexts []models.Context
		if contexts, err = h.contexts.List(ctx, lang); err == nil {
			for i := range contexts {
				objects = append(objects, &contexts[i])
			}
		}
	case models.ItemTypeFlashcard:
		var flashcards []models.Flashcard
		if flashcards, err = h.flashcards.List(ctx, lang); err == nil {
			for i := range flashcards {
				objects = append(objects, &flashcards[i])
			}
		}
	case models.ItemTypeCategory:
		var categories []models.Category
		if categories, err = h.categories.List(ctx, lang); err == nil {
			for i := range categories {
				objects = append(objects, &categories[i])
			}
		}
	case models.ItemTypeAnswer:
		userID, perr := strconv.ParseInt(c.Query("user"), 10, 64)
		if perr != nil || userID <= 0 {
			RespondError(c, http.StatusBadRequest, "invalid_user", fmt.Errorf("invalid user %q", c.Query("user")))
			return
		}
		limit, perr := intQuery(c, "limit", 100)
		if perr != nil {
			RespondError(c, http.StatusBadRequest, "invalid_limit", perr)
			return
		}
		var answers []models.FlashcardAnswer
		if answers, err = h.answers.ListByUser(ctx, userID, limit); err == nil {
			for i := range answers {
				objects = append(objects, &answers[i])
			}
		}
	default:
		RespondError(c, http.StatusNotFound, "unknown_object_type", fmt.Errorf("%q: %w", c.Param("type"), database.ErrUnknownObjectType))
		return
	}
	if err != nil {
		h.fail(c, "list_objects_failed", "Listing objects failed", err, "type", c.Param("type"))
		return
	}

	out := make([]map[string]interface{}, 0, len(objects))
	for _, o := range objects {
		out = append(out, o.ToJSON(false))
	}
	RespondOK(c, gin.H{"objects": out})
}

// intQuery reads an optional non-negative integer query parameter
func intQuery(c *gin.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}

// GET /practice?user=&lang=&categories=&count=&options=
func (h *Handler) Practice(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user"), 10, 64)
	if err != nil || userID <= 0 {
		RespondError(c, http.StatusBadRequest, "invalid_user", fmt.Errorf("invalid user %q", c.Query("user")))
		return
	}
	categories, err := parseIDs(c.Query("categories"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_categories", err)
		return
	}
	count, err := intQuery(c, "count", 10)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_count", err)
		return
	}
	options, err := intQuery(c, "options", 0)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_options", err)
		return
	}

	questions, err := h.practice.Next(c.Request.Context(), practice.Request{
		UserID:        userID,
		Lang:          h.lang(c),
		CategoryItems: categories,
		Count:         count,
		Options:       options,
	})
	if err != nil {
		h.fail(c, "practice_failed", "Building practice questions failed", err, "user", userID)
		return
	}

	out := make([]gin.H, 0, len(questions))
	for _, q := range questions {
		opts := make([]map[string]interface{}, 0, len(q.Options))
		for i := range q.Options {
			opts = append(opts, q.Options[i].ToJSON(true))
		}
		question := gin.H{
			"flashcard": q.Flashcard.ToJSON(false),
			"direction": q.Direction,
			"options":   opts,
		}
		if len(opts) > 0 {
			question["correct_index"] = q.CorrectIndex
		}
		out = append(out, question)
	}
	RespondOK(c, gin.H{"questions": out})
}
