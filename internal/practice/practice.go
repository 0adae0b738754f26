// Package practice selects the flashcards a user should answer next and
// builds multiple choice questions for them.
package practice

import (
	"context"
	"math/rand"
	"time"

	"github.com/example/flashcards/internal/database"
	"github.com/example/flashcards/internal/spaced_repetition"
	"github.com/example/flashcards/pkg/models"
)

// Question is a flashcard asked in one direction with the offered options.
// Options always contain the flashcard's term.
type Question struct {
	Flashcard    models.Flashcard
	Direction    string
	Options      []models.Term
	CorrectIndex int
}

// Request describes the questions to build
type Request struct {
	UserID int64
	Lang   string
	// Category items limiting the flashcards to the terms below them, empty means all
	CategoryItems []int64
	Count         int
	// Number of options per question including the correct one, below 2 means open questions
	Options int
}

// Practice builds practice questions
type Practice struct {
	items      *database.ItemRepository
	terms      *database.TermRepository
	flashcards *database.FlashcardRepository
	categories *database.CategoryRepository
	progress   *database.UserProgressRepository
	sm2        *spaced_repetition.SM2
	rnd        *rand.Rand
}

// New creates a practice module with a time seeded random source
func New(categories *database.CategoryRepository) *Practice {
	return NewWithRand(categories, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithRand creates a practice module using rnd for shuffling
func NewWithRand(categories *database.CategoryRepository, rnd *rand.Rand) *Practice {
	return &Practice{
		items:      database.NewItemRepository(),
		terms:      database.NewTermRepository(),
		flashcards: database.NewFlashcardRepository(),
		categories: categories,
		progress:   database.NewUserProgressRepository(),
		sm2:        spaced_repetition.NewSM2(),
		rnd:        rnd,
	}
}

// Next returns up to req.Count questions, ordered by review priority
func (p *Practice) Next(ctx context.Context, req Request) ([]Question, error) {
	candidates, err := p.candidates(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []Question{}, nil
	}

	known, err := p.progress.GetByUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	byItem := make(map[int64]models.UserProgress, len(known))
	for _, pr := range known {
		byItem[pr.ItemID] = pr
	}

	// flashcards never answered are due immediately
	progress := make([]models.UserProgress, 0, len(candidates))
	flashcards := make(map[int64]models.Flashcard, len(candidates))
	for _, f := range candidates {
		flashcards[f.ItemID] = f
		if pr, ok := byItem[f.ItemID]; ok {
			progress = append(progress, pr)
			continue
		}
		progress = append(progress, models.UserProgress{UserID: req.UserID, ItemID: f.ItemID, EasinessFactor: 2.5})
	}

	next := p.sm2.GetNextItems(progress, req.Count)
	questions := make([]Question, 0, len(next))
	for _, pr := range next {
		q, err := p.question(ctx, flashcards[pr.ItemID], req)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// candidates returns the flashcards in lang whose term lies below the requested categories
func (p *Practice) candidates(ctx context.Context, req Request) ([]models.Flashcard, error) {
	all, err := p.flashcards.List(ctx, req.Lang)
	if err != nil {
		return nil, err
	}
	if len(req.CategoryItems) == 0 {
		return all, nil
	}

	leaves, err := p.items.GetLeaves(ctx, req.CategoryItems)
	if err != nil {
		return nil, err
	}
	var out []models.Flashcard
	for _, f := range all {
		if f.Term == nil {
			continue
		}
		if _, ok := leaves[f.Term.ItemID]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

func (p *Practice) question(ctx context.Context, f models.Flashcard, req Request) (Question, error) {
	q := Question{Flashcard: f, Direction: models.DirectionFromTerm}
	if p.rnd.Intn(2) == 1 {
		q.Direction = models.DirectionFromDescription
	}
	if req.Options < 2 || f.Term == nil {
		return q, nil
	}

	distractors, err := p.distractors(ctx, *f.Term, req.Lang, req.Options-1)
	if err != nil {
		return Question{}, err
	}
	options := append(distractors, *f.Term)
	correct := len(options) - 1
	p.rnd.Shuffle(len(options), func(i, j int) {
		if i == correct {
			correct = j
		} else if j == correct {
			correct = i
		}
		options[i], options[j] = options[j], options[i]
	})

	q.Options = options
	q.CorrectIndex = correct
	return q, nil
}

// distractors picks count other terms, preferring terms sharing a category with term
func (p *Practice) distractors(ctx context.Context, term models.Term, lang string, count int) ([]models.Term, error) {
	parents, err := p.categories.GetTermParents(ctx, term.ID)
	if err != nil {
		return nil, err
	}

	seen := map[int64]bool{term.ID: true}
	var siblings []models.Term
	for _, parent := range parents {
		terms, err := p.categories.GetTerms(ctx, parent.ID)
		if err != nil {
			return nil, err
		}
		for _, t := range terms {
			if !seen[t.ID] && t.Lang == lang {
				seen[t.ID] = true
				siblings = append(siblings, t)
			}
		}
	}
	p.rnd.Shuffle(len(siblings), func(i, j int) {
		siblings[i], siblings[j] = siblings[j], siblings[i]
	})
	if len(siblings) >= count {
		return siblings[:count], nil
	}

	// If we still need more options, use terms from other categories
	others, err := p.terms.List(ctx, lang)
	if err != nil {
		return nil, err
	}
	p.rnd.Shuffle(len(others), func(i, j int) {
		others[i], others[j] = others[j], others[i]
	})
	options := siblings
	for i := 0; i < len(others) && len(options) < count; i++ {
		if !seen[others[i].ID] {
			seen[others[i].ID] = true
			options = append(options, others[i])
		}
	}
	return options, nil
}
