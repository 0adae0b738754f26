package spaced_repetition

import (
	"sort"
	"time"

	"github.com/example/flashcards/pkg/models"
)

// SM2 implements the SuperMemo-2 algorithm for spaced repetition
type SM2 struct {
	// Lowest quality counted as a successful recall
	PassThreshold QualityResponse
	// Maximum interval between reviews in days
	MaxInterval int
	// Intervals in days used for the first repetitions
	InitialIntervals []int
	// Now returns the current time
	Now func() time.Time
}

// NewSM2 creates an SM2 instance with the default settings
func NewSM2() *SM2 {
	return &SM2{
		PassThreshold:    QualityCorrectDifficult,
		MaxInterval:      365,
		InitialIntervals: []int{0, 1, 2, 3, 7, 10, 15, 20, 30},
		Now:              time.Now,
	}
}

// QualityResponse represents the quality of response in SM-2
type QualityResponse int

const (
	// Complete blackout, unable to recall
	QualityBlackout QualityResponse = 0
	// Incorrect response but remembered upon seeing the correct answer
	QualityIncorrect QualityResponse = 1
	// Incorrect response but the correct answer felt familiar
	QualityIncorrectFamiliar QualityResponse = 2
	// Correct response but required significant effort
	QualityCorrectDifficult QualityResponse = 3
	// Correct response after some hesitation
	QualityCorrectHesitation QualityResponse = 4
	// Perfect response with no hesitation
	QualityPerfect QualityResponse = 5
)

// Response time thresholds used by AnswerQuality
const (
	FastResponse = 3 * time.Second
	SlowResponse = 10 * time.Second
)

// AnswerQuality grades a flashcard answer from its correctness and response time
func AnswerQuality(correct bool, responseTime time.Duration) QualityResponse {
	switch {
	case !correct:
		return QualityIncorrect
	case responseTime < FastResponse:
		return QualityPerfect
	case responseTime < SlowResponse:
		return QualityCorrectHesitation
	default:
		return QualityCorrectDifficult
	}
}

// Process implements the SM-2 algorithm to update user progress
func (sm *SM2) Process(progress *models.UserProgress, quality QualityResponse) {
	now := sm.Now()
	progress.LastReviewDate = now
	progress.LastQuality = int(quality)

	newEF := progress.EasinessFactor + (0.1 - (5.0-float64(quality))*(0.08+(5.0-float64(quality))*0.02))
	if newEF < 1.3 {
		newEF = 1.3
	}
	progress.EasinessFactor = newEF

	if quality >= sm.PassThreshold {
		progress.ConsecutiveRight++

		var nextInterval int
		if progress.Repetitions < len(sm.InitialIntervals) {
			nextInterval = sm.InitialIntervals[progress.Repetitions]
		} else {
			nextInterval = int(float64(progress.Interval) * progress.EasinessFactor)
		}
		if nextInterval > sm.MaxInterval {
			nextInterval = sm.MaxInterval
		}

		progress.Interval = nextInterval
		progress.Repetitions++
	} else {
		// repetitions are kept, they are useful for analytics
		progress.ConsecutiveRight = 0
		progress.Interval = 1
	}

	progress.IsLearned = sm.IsMastered(progress)
	progress.NextReviewDate = now.AddDate(0, 0, progress.Interval)
}

// GetNextItems returns at most limit progress records due for review
func (sm *SM2) GetNextItems(userProgress []models.UserProgress, limit int) []models.UserProgress {
	now := sm.Now()
	var due []models.UserProgress
	for _, p := range userProgress {
		if !p.NextReviewDate.After(now) {
			due = append(due, p)
		}
	}

	// never reviewed first, then the hardest, then the most overdue
	sort.SliceStable(due, func(i, j int) bool {
		if (due[i].Repetitions == 0) != (due[j].Repetitions == 0) {
			return due[i].Repetitions == 0
		}
		if due[i].EasinessFactor != due[j].EasinessFactor {
			return due[i].EasinessFactor < due[j].EasinessFactor
		}
		return due[i].NextReviewDate.Before(due[j].NextReviewDate)
	})

	if limit >= 0 && len(due) > limit {
		return due[:limit]
	}
	return due
}

// IsMastered reports whether the item has been reviewed at least 5 times,
// the last answer was good and the interval reached 30 days
func (sm *SM2) IsMastered(progress *models.UserProgress) bool {
	return progress.Repetitions >= 5 &&
		progress.LastQuality >= int(QualityCorrectHesitation) &&
		progress.Interval >= 30
}
