package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/flashcards/pkg/models"
)

func TestAnswerCreate(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	answers := NewAnswerRepository()
	progress := NewUserProgressRepository()

	bw := newTerm(t, "bw", "en", "Botswana")
	za := newTerm(t, "za", "en", "South Africa")
	flashcard := newFlashcard(t, "africa-bw", "en", bw)

	answered := flashcard.ItemID
	correct := &models.FlashcardAnswer{
		UserID:         7,
		ItemAskedID:    flashcard.ItemID,
		ItemAnsweredID: &answered,
		Direction:      models.DirectionFromDescription,
		ResponseTime:   2000,
		Options:        []models.Term{*bw, *za},
	}
	require.NoError(t, answers.Create(ctx, correct))
	assert.NotZero(t, correct.ID)
	assert.NotZero(t, correct.ItemID)

	item, err := NewItemRepository().GetByID(ctx, correct.ItemID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemTypeAnswer, item.Type)

	loaded, err := answers.GetByID(ctx, correct.ID)
	require.NoError(t, err)
	assert.True(t, loaded.Correct())
	assert.Equal(t, int64(2000), loaded.ResponseTime)
	require.Len(t, loaded.Options, 2)
	assert.Equal(t, bw.ID, loaded.Options[0].ID)
	assert.Equal(t, za.ID, loaded.Options[1].ID)

	p, err := progress.GetByUserAndItem(ctx, 7, flashcard.ItemID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Repetitions)
	assert.Equal(t, 5, p.LastQuality)
	assert.Equal(t, 1, p.ConsecutiveRight)

	wrong := &models.FlashcardAnswer{
		UserID:       7,
		ItemAskedID:  flashcard.ItemID,
		Direction:    models.DirectionFromTerm,
		ResponseTime: 9000,
	}
	require.NoError(t, answers.Create(ctx, wrong))

	p, err = progress.GetByUserAndItem(ctx, 7, flashcard.ItemID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.LastQuality)
	assert.Equal(t, 0, p.ConsecutiveRight)
	assert.Equal(t, 1, p.Interval)

	all, err := progress.GetByUser(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	history, err := answers.ListByUser(ctx, 7, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, wrong.ID, history[0].ID)
	assert.Empty(t, history[0].Options)
}

func TestAnswerInvalidDirection(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	err := NewAnswerRepository().Create(ctx, &models.FlashcardAnswer{UserID: 1, ItemAskedID: 1, Direction: "x2y"})
	assert.ErrorIs(t, err, ErrInvalidDirection)

	var n int
	require.NoError(t, DB.Get(&n, "SELECT COUNT(*) FROM items"))
	assert.Zero(t, n)
}

func TestUserProgressDue(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	repo := NewUserProgressRepository()
	items := NewItemRepository()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, offset := range []time.Duration{-time.Hour, time.Hour, -24 * time.Hour} {
		item, err := items.Create(ctx, models.ItemTypeFlashcard)
		require.NoError(t, err)
		p := models.NewUserProgress(3, item.ID)
		p.NextReviewDate = now.Add(offset)
		p.Repetitions = i
		require.NoError(t, repo.Upsert(ctx, p))
		assert.NotZero(t, p.ID)
	}

	due, err := repo.GetDueItemsForUser(ctx, 3, now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, 2, due[0].Repetitions)
	assert.Equal(t, 0, due[1].Repetitions)

	// upsert updates the existing row
	p := due[0]
	p.Repetitions = 10
	require.NoError(t, repo.Upsert(ctx, &p))
	loaded, err := repo.GetByUserAndItem(ctx, 3, p.ItemID)
	require.NoError(t, err)
	assert.Equal(t, 10, loaded.Repetitions)
	assert.Equal(t, p.ID, loaded.ID)

	_, err = repo.GetByUserAndItem(ctx, 3, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}
