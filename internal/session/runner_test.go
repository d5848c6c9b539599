package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/wordflash/internal/flashcard"
	"github.com/vytor/wordflash/internal/models"
	"github.com/vytor/wordflash/internal/session"
)

var today = time.Date(2024, time.September, 2, 9, 0, 0, 0, time.Local)

type recordingSink struct {
	cards []models.Card
}

func (s *recordingSink) Persist(_ context.Context, c models.Card) {
	s.cards = append(s.cards, c)
}

func newRunner(queue []models.Card, sink session.Sink, opts ...session.Option) *session.Runner {
	sched := flashcard.NewScheduler(flashcard.WithClock(flashcard.FixedClock(today)))
	return session.NewRunner(sched, queue, sink, opts...)
}

func reviewCard(id string) models.Card {
	d := flashcard.DateOf(today)
	return models.Card{ID: id, State: models.StateReview, Interval: 5, Factor: 2.5, Due: &d}
}

func TestRunner_EmptyQueueCompletesImmediately(t *testing.T) {
	r := newRunner(nil, nil)
	assert.Equal(t, session.StateIdle, r.State())

	_, ok := r.Next()
	assert.False(t, ok)
	assert.Equal(t, session.StateComplete, r.State())

	_, err := r.Answer(context.Background(), reviewCard("x"), models.QualityGood)
	assert.ErrorIs(t, err, session.ErrSessionComplete)
}

func TestRunner_SuccessfulAnswersLeaveTheSession(t *testing.T) {
	sink := &recordingSink{}
	r := newRunner([]models.Card{reviewCard("a"), reviewCard("b")}, sink)
	ctx := context.Background()

	card, ok := r.Next()
	require.True(t, ok)
	assert.Equal(t, "a", card.ID)
	assert.Equal(t, session.StateActive, r.State())

	res, err := r.Answer(ctx, card, models.QualityGood)
	require.NoError(t, err)
	assert.False(t, res.Immediate)
	assert.Equal(t, 1, r.Remaining())

	card, ok = r.Next()
	require.True(t, ok)
	assert.Equal(t, "b", card.ID)
	_, err = r.Answer(ctx, card, models.QualityEasy)
	require.NoError(t, err)

	_, ok = r.Next()
	assert.False(t, ok)
	assert.Equal(t, session.StateComplete, r.State())

	require.Len(t, sink.cards, 2)
	assert.Equal(t, 13, sink.cards[0].Interval) // round(5 * 2.5)
	assert.Equal(t, 2, r.Answered())
}

func TestRunner_ImmediateCardsGoToTheBack(t *testing.T) {
	sink := &recordingSink{}
	r := newRunner([]models.Card{{ID: "new-1", State: models.StateNew}, reviewCard("r1")}, sink)
	ctx := context.Background()

	card, _ := r.Next()
	res, err := r.Answer(ctx, card, models.QualityGood)
	require.NoError(t, err)
	assert.True(t, res.Immediate)

	card, _ = r.Next()
	assert.Equal(t, "r1", card.ID)
	_, err = r.Answer(ctx, card, models.QualityAgain)
	require.NoError(t, err)

	card, _ = r.Next()
	assert.Equal(t, "new-1", card.ID)
	assert.Equal(t, models.StateLearning, card.State)
	assert.Equal(t, 1, card.StepIndex)
	res, err = r.Answer(ctx, card, models.QualityGood)
	require.NoError(t, err)
	assert.False(t, res.Immediate, "second good answer graduates the card")

	card, _ = r.Next()
	assert.Equal(t, "r1", card.ID)
	assert.Equal(t, models.StateRelearning, card.State)
	_, err = r.Answer(ctx, card, models.QualityGood)
	require.NoError(t, err)

	_, ok := r.Next()
	assert.False(t, ok)
	assert.Len(t, sink.cards, 4)
}

func TestRunner_LapsePileReplaysAfterMainQueue(t *testing.T) {
	r := newRunner(
		[]models.Card{reviewCard("a"), {ID: "n", State: models.StateNew}, reviewCard("b")},
		&recordingSink{},
		session.WithLapsePolicy(session.PolicyLapsePile),
	)
	ctx := context.Background()

	var order []string
	answer := func(q models.Quality) {
		card, ok := r.Next()
		require.True(t, ok)
		order = append(order, card.ID)
		_, err := r.Answer(ctx, card, q)
		require.NoError(t, err)
	}

	answer(models.QualityAgain) // a -> pile
	answer(models.QualityGood)  // n -> back of queue (learning step, not a failure)
	answer(models.QualityGood)  // b done
	answer(models.QualityGood)  // n graduates
	assert.Equal(t, 1, r.Remaining())
	answer(models.QualityGood) // a replayed from the pile

	_, ok := r.Next()
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "n", "b", "n", "a"}, order)
}

func TestRunner_RejectsInvalidQuality(t *testing.T) {
	sink := &recordingSink{}
	r := newRunner([]models.Card{reviewCard("a")}, sink)
	card, _ := r.Next()

	for _, q := range []models.Quality{0, 6, -1} {
		_, err := r.Answer(context.Background(), card, q)
		assert.ErrorIs(t, err, session.ErrInvalidQuality)
	}
	assert.Empty(t, sink.cards)
}

func TestRunner_UndoRestoresSnapshot(t *testing.T) {
	sink := &recordingSink{}
	original := reviewCard("a")
	r := newRunner([]models.Card{original, reviewCard("b")}, sink)
	ctx := context.Background()

	card, _ := r.Next()
	_, err := r.Answer(ctx, card, models.QualityAgain)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Remaining(), "b plus the relearning copy of a")

	restored, ok := r.Undo(ctx)
	require.True(t, ok)
	assert.Equal(t, original.Interval, restored.Interval)
	assert.Equal(t, models.StateReview, restored.State)
	assert.Equal(t, 2, r.Remaining(), "relearning copy removed, snapshot put back")
	assert.Equal(t, 0, r.Answered())

	require.Len(t, sink.cards, 2)
	assert.Equal(t, models.StateRelearning, sink.cards[0].State)
	assert.Equal(t, models.StateReview, sink.cards[1].State, "snapshot re-persisted")

	next, _ := r.Next()
	assert.Equal(t, "a", next.ID)
	assert.Equal(t, models.StateReview, next.State)

	_, ok = r.Undo(ctx)
	assert.False(t, ok, "only one level of undo")
}

func TestRunner_UndoAfterDrawingNextCard(t *testing.T) {
	r := newRunner([]models.Card{reviewCard("a"), reviewCard("b"), reviewCard("c")}, &recordingSink{})
	ctx := context.Background()

	card, _ := r.Next()
	_, err := r.Answer(ctx, card, models.QualityGood)
	require.NoError(t, err)

	drawn, _ := r.Next()
	require.Equal(t, "b", drawn.ID)

	_, ok := r.Undo(ctx)
	require.True(t, ok)
	assert.Equal(t, 3, r.Remaining(), "drawn card goes back behind the restored one")

	var order []string
	for {
		c, ok := r.Next()
		if !ok {
			break
		}
		order = append(order, c.ID)
		_, err := r.Answer(ctx, c, models.QualityGood)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestRunner_UndoAfterLapsePileReplay(t *testing.T) {
	sink := &recordingSink{}
	r := newRunner([]models.Card{reviewCard("a")}, sink, session.WithLapsePolicy(session.PolicyLapsePile))
	ctx := context.Background()

	card, _ := r.Next()
	_, err := r.Answer(ctx, card, models.QualityAgain)
	require.NoError(t, err)

	replayed, ok := r.Next()
	require.True(t, ok)
	require.Equal(t, models.StateRelearning, replayed.State, "pile replays once the queue is empty")

	restored, ok := r.Undo(ctx)
	require.True(t, ok)
	assert.Equal(t, models.StateReview, restored.State)
	assert.Equal(t, 1, r.Remaining(), "only the snapshot is left")

	var drained []models.State
	for {
		c, ok := r.Next()
		if !ok {
			break
		}
		drained = append(drained, c.State)
		_, err := r.Answer(ctx, c, models.QualityGood)
		require.NoError(t, err)
	}
	assert.Equal(t, []models.State{models.StateReview}, drained)
}

func TestRunner_UndoWithNothingToUndo(t *testing.T) {
	sink := &recordingSink{}
	r := newRunner([]models.Card{reviewCard("a")}, sink)

	_, ok := r.Undo(context.Background())
	assert.False(t, ok)
	assert.Empty(t, sink.cards)
}

func TestRunner_UndoIsNoOpOnceComplete(t *testing.T) {
	sink := &recordingSink{}
	r := newRunner([]models.Card{reviewCard("a")}, sink)
	ctx := context.Background()

	card, _ := r.Next()
	_, err := r.Answer(ctx, card, models.QualityGood)
	require.NoError(t, err)
	_, ok := r.Next()
	require.False(t, ok)

	_, ok = r.Undo(ctx)
	assert.False(t, ok)
	assert.Len(t, sink.cards, 1)
}

func TestRunner_UndoLastCardBeforeCompletion(t *testing.T) {
	r := newRunner([]models.Card{reviewCard("a")}, &recordingSink{})
	ctx := context.Background()

	card, _ := r.Next()
	_, err := r.Answer(ctx, card, models.QualityGood)
	require.NoError(t, err)

	_, ok := r.Undo(ctx)
	require.True(t, ok)
	again, ok := r.Next()
	require.True(t, ok)
	assert.Equal(t, "a", again.ID)
}

func TestParseLapsePolicy(t *testing.T) {
	p, err := session.ParseLapsePolicy("pile")
	require.NoError(t, err)
	assert.Equal(t, session.PolicyLapsePile, p)

	p, err = session.ParseLapsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, session.PolicyRequeue, p)

	_, err = session.ParseLapsePolicy("later")
	assert.Error(t, err)
}
