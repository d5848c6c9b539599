package flashcard

import (
	"math"
	"time"

	"github.com/vytor/wordflash/internal/models"
)

// ApplyReview updates a card with the plain SM-2 rule the app used before
// learning steps existed. A failing answer restarts the repetition count;
// passing answers step through 1, 6, then ivl*EF days.
func ApplyReview(card models.Card, quality models.Quality, today time.Time) models.Card {
	c := NormalizeCard(card)

	if quality.Failed() {
		if c.State == models.StateReview {
			c.Lapses++
		}
		c.Reps = 0
		c.Interval = 1
	} else {
		c.Reps++
		switch c.Reps {
		case 1:
			c.Interval = 1
		case 2:
			c.Interval = 6
		default:
			c.Interval = max(MinIntervalDays, roundDays(float64(c.Interval)*c.Factor))
		}
	}

	q := float64(5 - quality)
	c.Factor = math.Max(MinFactor, c.Factor+0.1-q*(0.08+q*0.02))

	c.State = models.StateReview
	c.StepIndex = 0
	c.LapseStepIndex = 0
	d := AddDays(today, c.Interval)
	c.Due = &d
	return c
}

// LegacyScheduler exposes ApplyReview through the same contract as
// Scheduler. Failed cards are reported as immediate so a session can hold
// them back for a second pass.
type LegacyScheduler struct {
	clock Clock
}

func NewLegacyScheduler(c Clock) *LegacyScheduler {
	if c == nil {
		c = SystemClock
	}
	return &LegacyScheduler{clock: c}
}

func (s *LegacyScheduler) Today() time.Time {
	return Today(s.clock)
}

func (s *LegacyScheduler) Schedule(card models.Card, q models.Quality) Result {
	return Result{
		Card:      ApplyReview(card, q, s.Today()),
		Immediate: q.Failed(),
	}
}
