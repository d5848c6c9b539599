package services_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vytor/wordflash/internal/errors"
	"github.com/vytor/wordflash/internal/flashcard"
	"github.com/vytor/wordflash/internal/models"
	"github.com/vytor/wordflash/internal/services"
	"github.com/vytor/wordflash/internal/session"
	"github.com/vytor/wordflash/internal/testutil"
	"github.com/vytor/wordflash/internal/testutil/mocks"
)

type movableClock struct{ now time.Time }

func (c *movableClock) Now() time.Time { return c.now }

func newStudyService(t *testing.T, cards []models.Card) (services.StudyService, *mocks.MockJobQueue, *movableClock) {
	t.Helper()
	repo := new(mocks.MockCardRepository)
	repo.On("List", mock.Anything, models.CardFilter{Deck: "ru"}).Return(cards, nil)

	queue := new(mocks.MockJobQueue)
	queue.On("EnqueuePersist", mock.Anything, mock.Anything).Return(nil)
	queue.On("EnqueueReview", mock.Anything, mock.Anything).Return(nil)

	clock := &movableClock{now: today.Add(9 * time.Hour)}
	svc := services.NewStudyService(repo, queue, services.StudyOptions{
		Scheduler:    flashcard.NewScheduler(flashcard.WithClock(clock)),
		NewCardLimit: 10,
		TTL:          30 * time.Minute,
		Clock:        clock,
	})
	return svc, queue, clock
}

func TestStudyService_FullSession(t *testing.T) {
	svc, queue, _ := newStudyService(t, []models.Card{
		testutil.NewCard("new", "ru"),
		testutil.ReviewCard("due", "ru", 4, today),
	})
	ctx := context.Background()

	info, err := svc.Start(ctx, "ru", -1)
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, 2, info.Remaining)
	assert.Equal(t, "idle", info.State)

	card, _, err := svc.Next(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, "due", card.ID, "due reviews come before new cards")

	again, _, err := svc.Next(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, card.ID, again.ID, "next is idempotent until answered")

	res, err := svc.Answer(ctx, info.ID, "due", models.QualityGood, 3.5)
	require.NoError(t, err)
	assert.False(t, res.Immediate)
	assert.Equal(t, 10, res.Card.Interval)
	assert.Equal(t, 1, res.Session.Answered)

	// New card needs two good answers.
	for i := 0; i < 2; i++ {
		card, _, err = svc.Next(ctx, info.ID)
		require.NoError(t, err)
		require.Equal(t, "new", card.ID)
		_, err = svc.Answer(ctx, info.ID, "new", models.QualityGood, 1)
		require.NoError(t, err)
	}

	card, final, err := svc.Next(ctx, info.ID)
	require.NoError(t, err)
	assert.Nil(t, card)
	assert.Equal(t, "complete", final.State)

	queue.AssertNumberOfCalls(t, "EnqueuePersist", 3)
	queue.AssertNumberOfCalls(t, "EnqueueReview", 3)
	queue.AssertCalled(t, "EnqueueReview", mock.Anything, mock.MatchedBy(func(ev models.ReviewEvent) bool {
		return ev.CardID == "due" && ev.Quality == models.QualityGood && ev.TimeSeconds == 3.5 &&
			ev.ReviewedOn.Equal(today)
	}))
}

func TestStudyService_AnswerErrors(t *testing.T) {
	svc, _, _ := newStudyService(t, []models.Card{testutil.ReviewCard("a", "ru", 4, today)})
	ctx := context.Background()
	info, err := svc.Start(ctx, "ru", -1)
	require.NoError(t, err)

	_, err = svc.Answer(ctx, info.ID, "a", models.QualityGood, 0)
	assert.Equal(t, errors.ErrCodeConflict, appCode(t, err), "nothing drawn yet")

	_, _, err = svc.Next(ctx, info.ID)
	require.NoError(t, err)

	_, err = svc.Answer(ctx, info.ID, "other", models.QualityGood, 0)
	assert.Equal(t, errors.ErrCodeConflict, appCode(t, err))

	_, err = svc.Answer(ctx, info.ID, "a", models.Quality(7), 0)
	assert.Equal(t, errors.ErrCodeValidation, appCode(t, err))

	_, err = svc.Answer(ctx, "unknown", "a", models.QualityGood, 0)
	assert.Equal(t, errors.ErrCodeNotFound, appCode(t, err))
}

func TestStudyService_Undo(t *testing.T) {
	svc, queue, _ := newStudyService(t, []models.Card{
		testutil.ReviewCard("a", "ru", 4, today),
		testutil.ReviewCard("b", "ru", 4, today),
	})
	ctx := context.Background()
	info, err := svc.Start(ctx, "ru", -1)
	require.NoError(t, err)

	_, _, err = svc.Undo(ctx, info.ID)
	assert.Equal(t, errors.ErrCodeConflict, appCode(t, err), "nothing to undo")

	_, _, err = svc.Next(ctx, info.ID)
	require.NoError(t, err)
	_, err = svc.Answer(ctx, info.ID, "a", models.QualityAgain, 0)
	require.NoError(t, err)

	_, _, err = svc.Next(ctx, info.ID) // draws b
	require.NoError(t, err)

	restored, after, err := svc.Undo(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", restored.ID)
	assert.Equal(t, models.StateReview, restored.State)
	assert.Equal(t, 0, after.Answered)

	card, _, err := svc.Next(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", card.ID)

	queue.AssertCalled(t, "EnqueuePersist", mock.Anything, mock.MatchedBy(func(c models.Card) bool {
		return c.ID == "a" && c.State == models.StateReview && c.Interval == 4
	}))
}

func TestStudyService_UndoneAnswerLeavesNoHistory(t *testing.T) {
	svc, queue, _ := newStudyService(t, []models.Card{
		testutil.ReviewCard("a", "ru", 4, today),
		testutil.ReviewCard("b", "ru", 4, today),
	})
	ctx := context.Background()
	info, err := svc.Start(ctx, "ru", -1)
	require.NoError(t, err)

	_, _, err = svc.Next(ctx, info.ID)
	require.NoError(t, err)
	_, err = svc.Answer(ctx, info.ID, "a", models.QualityAgain, 0)
	require.NoError(t, err)
	_, _, err = svc.Undo(ctx, info.ID)
	require.NoError(t, err)
	queue.AssertNotCalled(t, "EnqueueReview", mock.Anything, mock.Anything)

	for _, id := range []string{"a", "b"} {
		card, _, err := svc.Next(ctx, info.ID)
		require.NoError(t, err)
		require.Equal(t, id, card.ID)
		_, err = svc.Answer(ctx, info.ID, id, models.QualityGood, 0)
		require.NoError(t, err)
	}
	// b can still be undone, so only a is recorded so far.
	queue.AssertNumberOfCalls(t, "EnqueueReview", 1)

	require.NoError(t, svc.End(ctx, info.ID))
	queue.AssertNumberOfCalls(t, "EnqueueReview", 2)
	queue.AssertNotCalled(t, "EnqueueReview", mock.Anything, mock.MatchedBy(func(ev models.ReviewEvent) bool {
		return ev.Quality == models.QualityAgain
	}))
}

func TestStudyService_CloseRecordsPendingAnswers(t *testing.T) {
	svc, queue, _ := newStudyService(t, []models.Card{testutil.ReviewCard("a", "ru", 4, today)})
	ctx := context.Background()
	info, err := svc.Start(ctx, "ru", -1)
	require.NoError(t, err)

	_, _, err = svc.Next(ctx, info.ID)
	require.NoError(t, err)
	_, err = svc.Answer(ctx, info.ID, "a", models.QualityHard, 2)
	require.NoError(t, err)
	queue.AssertNotCalled(t, "EnqueueReview", mock.Anything, mock.Anything)

	svc.Close(ctx)
	queue.AssertCalled(t, "EnqueueReview", mock.Anything, mock.MatchedBy(func(ev models.ReviewEvent) bool {
		return ev.CardID == "a" && ev.Quality == models.QualityHard
	}))

	_, _, err = svc.Next(ctx, info.ID)
	assert.Equal(t, errors.ErrCodeNotFound, appCode(t, err))
}

func TestStudyService_LapsePilePolicy(t *testing.T) {
	repo := new(mocks.MockCardRepository)
	repo.On("List", mock.Anything, mock.Anything).Return([]models.Card{
		testutil.ReviewCard("a", "ru", 4, today),
		testutil.ReviewCard("b", "ru", 4, today),
	}, nil)
	queue := new(mocks.MockJobQueue)
	queue.On("EnqueuePersist", mock.Anything, mock.Anything).Return(nil)
	queue.On("EnqueueReview", mock.Anything, mock.Anything).Return(stderrors.New("pool stopped"))

	clock := flashcard.FixedClock(today)
	svc := services.NewStudyService(repo, queue, services.StudyOptions{
		Scheduler:   flashcard.NewLegacyScheduler(clock),
		LapsePolicy: session.PolicyLapsePile,
		Clock:       clock,
	})
	ctx := context.Background()
	info, err := svc.Start(ctx, "ru", 0)
	require.NoError(t, err)

	var order []string
	for {
		card, _, err := svc.Next(ctx, info.ID)
		require.NoError(t, err)
		if card == nil {
			break
		}
		order = append(order, card.ID)
		q := models.QualityGood
		if card.ID == "a" && len(order) == 1 {
			q = models.QualityAgain
		}
		_, err = svc.Answer(ctx, info.ID, card.ID, q, 0)
		require.NoError(t, err, "history failures do not fail the answer")
	}
	assert.Equal(t, []string{"a", "b", "a"}, order)
}

func TestStudyService_EndAndSweep(t *testing.T) {
	svc, _, clock := newStudyService(t, nil)
	ctx := context.Background()

	first, err := svc.Start(ctx, "ru", -1)
	require.NoError(t, err)
	second, err := svc.Start(ctx, "ru", -1)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	require.NoError(t, svc.End(ctx, first.ID))
	assert.Equal(t, errors.ErrCodeNotFound, appCode(t, svc.End(ctx, first.ID)))

	assert.Equal(t, 0, svc.Sweep(clock.now.Add(10*time.Minute)))
	assert.Equal(t, 1, svc.Sweep(clock.now.Add(31*time.Minute)))

	_, _, err = svc.Next(ctx, second.ID)
	assert.Equal(t, errors.ErrCodeNotFound, appCode(t, err))
}

func TestStudyService_StartValidation(t *testing.T) {
	svc, _, _ := newStudyService(t, nil)
	_, err := svc.Start(context.Background(), "", 5)
	assert.Equal(t, errors.ErrCodeValidation, appCode(t, err))
}
