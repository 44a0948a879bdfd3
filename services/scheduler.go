// services/scheduler.go
package services

import (
	"time"

	"learning-rewards-service/models"

	"github.com/jonboulle/clockwork"
)

// reviewIntervals maps a rating to whole days until the card is due again.
var reviewIntervals = map[models.Difficulty]int{
	models.DifficultyRepeat: 0,
	models.DifficultyHard:   1,
	models.DifficultyGood:   3,
	models.DifficultyEasy:   7,
}

// ReviewScheduler is the spaced-repetition rule. It has no state besides its clock.
type ReviewScheduler struct {
	Clock clockwork.Clock
}

func NewReviewScheduler(clock clockwork.Clock) *ReviewScheduler {
	return &ReviewScheduler{Clock: clock}
}

// CalculateNextReview returns when a card rated d is due again.
func (r *ReviewScheduler) CalculateNextReview(d models.Difficulty) time.Time {
	return NextReviewAt(r.Clock.Now(), d)
}

// NextReviewAt is the pure form of CalculateNextReview. Unknown ratings are due immediately.
func NextReviewAt(now time.Time, d models.Difficulty) time.Time {
	return now.AddDate(0, 0, reviewIntervals[d])
}

// ParseDifficulty validates a client-supplied rating.
func ParseDifficulty(s string) (models.Difficulty, error) {
	d := models.Difficulty(s)
	if _, ok := reviewIntervals[d]; !ok {
		return "", &ValidationError{Field: "difficulty", Reason: "must be one of repeat, hard, good, easy"}
	}
	return d, nil
}
