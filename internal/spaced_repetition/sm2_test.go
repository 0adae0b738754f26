package spaced_repetition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/example/flashcards/pkg/models"
)

func fixedSM2(now time.Time) *SM2 {
	sm := NewSM2()
	sm.Now = func() time.Time { return now }
	return sm
}

func TestAnswerQuality(t *testing.T) {
	assert.Equal(t, QualityIncorrect, AnswerQuality(false, time.Second))
	assert.Equal(t, QualityPerfect, AnswerQuality(true, 2*time.Second))
	assert.Equal(t, QualityCorrectHesitation, AnswerQuality(true, 5*time.Second))
	assert.Equal(t, QualityCorrectDifficult, AnswerQuality(true, time.Minute))
}

func TestProcess(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sm := fixedSM2(now)

	t.Run("first correct answer", func(t *testing.T) {
		p := models.NewUserProgress(1, 10)
		sm.Process(p, QualityPerfect)

		assert.Equal(t, 0, p.Interval)
		assert.Equal(t, 1, p.Repetitions)
		assert.Equal(t, 1, p.ConsecutiveRight)
		assert.InDelta(t, 2.6, p.EasinessFactor, 1e-9)
		assert.Equal(t, now, p.NextReviewDate)
		assert.Equal(t, now, p.LastReviewDate)
	})

	t.Run("initial intervals", func(t *testing.T) {
		p := models.NewUserProgress(1, 10)
		for range sm.InitialIntervals {
			sm.Process(p, QualityPerfect)
		}
		assert.Equal(t, 30, p.Interval)
		assert.Equal(t, now.AddDate(0, 0, 30), p.NextReviewDate)
		assert.True(t, p.IsLearned)
	})

	t.Run("interval grows with easiness after initial intervals", func(t *testing.T) {
		p := models.NewUserProgress(1, 10)
		p.Repetitions = len(sm.InitialIntervals)
		p.Interval = 30
		p.EasinessFactor = 2.0
		sm.Process(p, QualityCorrectHesitation)
		assert.Equal(t, 60, p.Interval)
	})

	t.Run("interval is capped", func(t *testing.T) {
		p := models.NewUserProgress(1, 10)
		p.Repetitions = 20
		p.Interval = 300
		sm.Process(p, QualityPerfect)
		assert.Equal(t, sm.MaxInterval, p.Interval)
	})

	t.Run("wrong answer resets interval", func(t *testing.T) {
		p := models.NewUserProgress(1, 10)
		p.Repetitions = 4
		p.Interval = 7
		p.ConsecutiveRight = 4
		sm.Process(p, QualityIncorrect)

		assert.Equal(t, 1, p.Interval)
		assert.Equal(t, 4, p.Repetitions)
		assert.Equal(t, 0, p.ConsecutiveRight)
		assert.False(t, p.IsLearned)
		assert.Equal(t, now.AddDate(0, 0, 1), p.NextReviewDate)
	})

	t.Run("easiness has a floor", func(t *testing.T) {
		p := models.NewUserProgress(1, 10)
		for i := 0; i < 10; i++ {
			sm.Process(p, QualityBlackout)
		}
		assert.Equal(t, 1.3, p.EasinessFactor)
	})
}

func TestGetNextItems(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sm := fixedSM2(now)

	progress := []models.UserProgress{
		{ItemID: 1, Repetitions: 3, EasinessFactor: 2.5, NextReviewDate: now.Add(-time.Hour)},
		{ItemID: 2, Repetitions: 0, EasinessFactor: 2.5, NextReviewDate: now},
		{ItemID: 3, Repetitions: 2, EasinessFactor: 1.8, NextReviewDate: now.Add(-time.Minute)},
		{ItemID: 4, Repetitions: 1, EasinessFactor: 2.5, NextReviewDate: now.Add(time.Hour)},
		{ItemID: 5, Repetitions: 5, EasinessFactor: 2.5, NextReviewDate: now.Add(-48 * time.Hour)},
	}

	next := sm.GetNextItems(progress, 10)
	ids := make([]int64, len(next))
	for i, p := range next {
		ids[i] = p.ItemID
	}
	assert.Equal(t, []int64{2, 3, 5, 1}, ids)

	assert.Len(t, sm.GetNextItems(progress, 2), 2)
	assert.Empty(t, sm.GetNextItems(nil, 5))
}
