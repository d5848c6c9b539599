// Package session drives one study session over a prepared queue.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vytor/wordflash/internal/flashcard"
	"github.com/vytor/wordflash/internal/logger"
	"github.com/vytor/wordflash/internal/models"
)

var (
	ErrInvalidQuality  = models.ErrInvalidQuality
	ErrSessionComplete = errors.New("session complete")
)

// Scheduler computes a card's next state. Both flashcard.Scheduler and
// flashcard.LegacyScheduler satisfy it.
type Scheduler interface {
	Schedule(card models.Card, q models.Quality) flashcard.Result
	Today() time.Time
}

// Sink receives every card the session changes. Persist must not block on
// storage; the runner never learns whether the write succeeded.
type Sink interface {
	Persist(ctx context.Context, card models.Card)
}

// State is the runner's lifecycle position.
type State int

const (
	StateIdle State = iota
	StateActive
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateComplete:
		return "complete"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// LapsePolicy decides where failed cards wait within a session.
type LapsePolicy int

const (
	// PolicyRequeue puts every immediate card at the back of the queue.
	PolicyRequeue LapsePolicy = iota
	// PolicyLapsePile holds failed cards aside and replays them once the
	// main queue runs dry. Older versions of the app worked this way.
	PolicyLapsePile
)

// ParseLapsePolicy maps the config spelling to a policy.
func ParseLapsePolicy(s string) (LapsePolicy, error) {
	switch s {
	case "", "requeue":
		return PolicyRequeue, nil
	case "pile":
		return PolicyLapsePile, nil
	default:
		return PolicyRequeue, fmt.Errorf("unknown lapse policy %q", s)
	}
}

type placement int

const (
	placedNowhere placement = iota
	placedQueue
	placedPile
)

type lastAction struct {
	before models.Card
	after  models.Card
	placed placement
}

// Runner owns the working queue of a single session. It is not safe for
// concurrent use; callers serialize answers.
type Runner struct {
	scheduler Scheduler
	sink      Sink
	policy    LapsePolicy

	queue     []models.Card
	lapsePile []models.Card
	shown     *models.Card
	state     State
	last      *lastAction
	answered  int
}

// Option configures a Runner.
type Option func(*Runner)

func WithLapsePolicy(p LapsePolicy) Option {
	return func(r *Runner) { r.policy = p }
}

// NewRunner starts a session over queue, which is copied.
func NewRunner(scheduler Scheduler, queue []models.Card, sink Sink, opts ...Option) *Runner {
	r := &Runner{
		scheduler: scheduler,
		sink:      sink,
		queue:     make([]models.Card, 0, len(queue)),
	}
	for _, c := range queue {
		r.queue = append(r.queue, c.Clone())
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) State() State { return r.state }

// Remaining counts cards still to be shown, including held-back lapses.
func (r *Runner) Remaining() int { return len(r.queue) + len(r.lapsePile) }

// Answered counts answers given so far, net of undos.
func (r *Runner) Answered() int { return r.answered }

// Next pops the card at the front of the queue. It returns false once the
// session is complete; a complete session never reopens.
func (r *Runner) Next() (models.Card, bool) {
	if r.state == StateComplete {
		return models.Card{}, false
	}
	if len(r.queue) == 0 && len(r.lapsePile) > 0 {
		r.queue, r.lapsePile = r.lapsePile, nil
		// A pending undo must find its copy where it now lives.
		if r.last != nil && r.last.placed == placedPile {
			r.last.placed = placedQueue
		}
	}
	if len(r.queue) == 0 {
		r.state = StateComplete
		r.last = nil
		r.shown = nil
		return models.Card{}, false
	}
	r.state = StateActive
	card := r.queue[0]
	r.queue = r.queue[1:]
	shown := card.Clone()
	r.shown = &shown
	return card.Clone(), true
}

// Answer applies quality q to card, hands the result to the sink and, when
// the card needs another look today, puts it back in the session.
func (r *Runner) Answer(ctx context.Context, card models.Card, q models.Quality) (flashcard.Result, error) {
	if r.state == StateComplete {
		return flashcard.Result{}, ErrSessionComplete
	}
	if !q.Valid() {
		return flashcard.Result{}, fmt.Errorf("%w: %d", ErrInvalidQuality, int(q))
	}

	log := logger.FromContext(ctx).WithPrefix("session")
	res := r.scheduler.Schedule(card, q)
	r.state = StateActive
	r.answered++
	if r.shown != nil && r.shown.ID == card.ID {
		r.shown = nil
	}

	act := &lastAction{before: card.Clone(), after: res.Card.Clone()}
	if res.Immediate {
		if r.policy == PolicyLapsePile && q.Failed() {
			r.lapsePile = append(r.lapsePile, res.Card.Clone())
			act.placed = placedPile
		} else {
			r.queue = append(r.queue, res.Card.Clone())
			act.placed = placedQueue
		}
	}
	r.last = act

	log.Debug("answered card: id=%s, quality=%s, state=%s, ivl=%d, immediate=%t",
		res.Card.ID, q, res.Card.State, res.Card.Interval, res.Immediate)

	r.persist(ctx, res.Card)
	return res, nil
}

// Undo reverts the most recent answer. The pre-answer snapshot is sent to
// the sink again and becomes the next card shown, ahead of any card that was
// already drawn but not answered. Only one level is kept.
func (r *Runner) Undo(ctx context.Context) (models.Card, bool) {
	if r.last == nil || r.state == StateComplete {
		return models.Card{}, false
	}
	act := r.last
	r.last = nil

	if r.shown != nil {
		r.queue = append([]models.Card{*r.shown}, r.queue...)
		r.shown = nil
	}

	switch act.placed {
	case placedQueue:
		r.queue = removeLast(r.queue, act.after.ID)
	case placedPile:
		r.lapsePile = removeLast(r.lapsePile, act.after.ID)
	}

	snapshot := act.before.Clone()
	r.queue = append([]models.Card{snapshot}, r.queue...)
	r.answered--

	logger.FromContext(ctx).WithPrefix("session").Debug("undid answer: id=%s", snapshot.ID)
	r.persist(ctx, snapshot)
	return snapshot.Clone(), true
}

func (r *Runner) persist(ctx context.Context, card models.Card) {
	if r.sink == nil {
		return
	}
	r.sink.Persist(ctx, card.Clone())
}

func removeLast(cards []models.Card, id string) []models.Card {
	for i := len(cards) - 1; i >= 0; i-- {
		if cards[i].ID == id {
			return append(cards[:i], cards[i+1:]...)
		}
	}
	return cards
}
