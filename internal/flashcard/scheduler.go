package flashcard

import (
	"math"
	"time"

	"github.com/vytor/wordflash/internal/models"
)

const (
	DefaultFactor          = 2.5
	MinFactor              = 1.3
	MinIntervalDays        = 1
	DefaultLearningSteps   = 2
	DefaultRelearningSteps = 1

	hardMultiplier    = 1.2
	easyBonus         = 1.3
	easyFactorBoost   = 0.05
	lapseFactorCost   = 0.2
	relearnMultiplier = 0.5
)

// Result is the outcome of one answer. Immediate cards must be shown again
// in the current session; the rest leave it until their due date.
type Result struct {
	Card      models.Card `json:"card"`
	Immediate bool        `json:"immediate"`
}

// Scheduler is the learning / review / relearning state machine. Learning
// steps are counted in same-session repeats, not wall-clock minutes.
type Scheduler struct {
	learningSteps   int
	relearningSteps int
	clock           Clock
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLearningSteps sets how many Good answers a new card needs to graduate.
func WithLearningSteps(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.learningSteps = n
		}
	}
}

// WithRelearningSteps sets how many passing answers a lapsed card needs.
func WithRelearningSteps(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.relearningSteps = n
		}
	}
}

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		learningSteps:   DefaultLearningSteps,
		relearningSteps: DefaultRelearningSteps,
		clock:           SystemClock,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today is the scheduler's current calendar day.
func (s *Scheduler) Today() time.Time {
	return Today(s.clock)
}

// Schedule computes the card's next state for quality q. The input card is
// not modified.
func (s *Scheduler) Schedule(card models.Card, q models.Quality) Result {
	c := NormalizeCard(card)
	today := s.Today()

	switch c.State {
	case models.StateReview:
		return s.review(c, q, today)
	case models.StateRelearning:
		return s.relearn(c, q, today)
	default:
		return s.learn(c, q, today)
	}
}

func (s *Scheduler) learn(c models.Card, q models.Quality, today time.Time) Result {
	c.State = models.StateLearning
	switch {
	case q.Failed():
		c.StepIndex = 0
		return repeatToday(c, today)
	case q == models.QualityHard:
		return repeatToday(c, today)
	case q == models.QualityGood:
		if c.StepIndex+1 < s.learningSteps {
			c.StepIndex++
			return repeatToday(c, today)
		}
		c.StepIndex = 0
		return graduate(c, max(MinIntervalDays, c.Interval), today)
	default:
		c.StepIndex = 0
		c.Factor += easyFactorBoost
		ivl := roundDays(float64(max(1, c.Interval)) * easyBonus)
		return graduate(c, max(MinIntervalDays, ivl), today)
	}
}

func (s *Scheduler) review(c models.Card, q models.Quality, today time.Time) Result {
	var ivl int
	switch {
	case q.Failed():
		c.State = models.StateRelearning
		c.LapseStepIndex = 0
		c.Interval = MinIntervalDays
		c.Lapses++
		c.Factor = math.Max(MinFactor, c.Factor-lapseFactorCost)
		return repeatToday(c, today)
	case q == models.QualityHard:
		ivl = max(MinIntervalDays, roundDays(float64(c.Interval)*hardMultiplier))
	case q == models.QualityGood:
		ivl = max(MinIntervalDays, roundDays(float64(c.Interval)*c.Factor))
	default:
		bonus := c.Factor * easyBonus
		c.Factor += easyFactorBoost
		ivl = max(c.Interval+1, roundDays(float64(c.Interval)*bonus))
	}
	return graduate(c, ivl, today)
}

func (s *Scheduler) relearn(c models.Card, q models.Quality, today time.Time) Result {
	if q.Failed() {
		c.LapseStepIndex = 0
		return repeatToday(c, today)
	}
	if c.LapseStepIndex+1 < s.relearningSteps {
		c.LapseStepIndex++
		return repeatToday(c, today)
	}
	c.LapseStepIndex = 0
	ivl := max(MinIntervalDays, roundDays(float64(c.Interval)*relearnMultiplier))
	return graduate(c, ivl, today)
}

func repeatToday(c models.Card, today time.Time) Result {
	d := today
	c.Due = &d
	return Result{Card: c, Immediate: true}
}

func graduate(c models.Card, ivl int, today time.Time) Result {
	c.State = models.StateReview
	c.Interval = ivl
	d := AddDays(today, ivl)
	c.Due = &d
	c.Reps++
	return Result{Card: c, Immediate: false}
}

// roundDays rounds half away from zero.
func roundDays(days float64) int {
	return int(math.Round(days))
}
