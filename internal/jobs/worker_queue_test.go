package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vytor/wordflash/internal/jobs"
	"github.com/vytor/wordflash/internal/models"
	"github.com/vytor/wordflash/internal/repository/sqlite"
	"github.com/vytor/wordflash/internal/testutil"
	"github.com/vytor/wordflash/internal/testutil/mocks"
	"github.com/vytor/wordflash/internal/worker"
)

func TestWorkerQueue_PersistsCardsAndHistory(t *testing.T) {
	db := testutil.NewTestDB(t)
	defer testutil.MustClose(t, db)
	repo := sqlite.NewCardRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, testutil.NewCard("c1", "ru")))

	pool := worker.NewPool(1, 8)
	pool.Start(ctx)
	queue := jobs.NewWorkerQueue(pool, repo)

	due := testutil.Day(2024, time.July, 4)
	card := testutil.ReviewCard("c1", "ru", 3, due)
	jobs.Sink{Queue: queue}.Persist(ctx, card)
	require.NoError(t, queue.EnqueueReview(ctx, models.ReviewEvent{CardID: "c1", Quality: models.QualityGood, ReviewedOn: due}))

	// Updates for cards deleted in the meantime are dropped quietly.
	jobs.Sink{Queue: queue}.Persist(ctx, testutil.NewCard("gone", "ru"))
	pool.Stop()

	got, err := repo.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, models.StateReview, got.State)
	assert.Equal(t, 3, got.Interval)
	assert.Equal(t, "2024-07-04", got.DueString())

	days, err := repo.ReviewDays(ctx, "ru", testutil.Day(2024, time.January, 1))
	require.NoError(t, err)
	assert.Len(t, days, 1)
}

func TestSink_SwallowsEnqueueErrors(t *testing.T) {
	q := new(mocks.MockJobQueue)
	q.On("EnqueuePersist", mock.Anything, mock.Anything).Return(errors.New("queue full"))

	assert.NotPanics(t, func() {
		jobs.Sink{Queue: q}.Persist(context.Background(), testutil.NewCard("c1", "ru"))
	})
	q.AssertExpectations(t)
}

type stalledJob struct {
	release chan struct{}
}

func (j stalledJob) Name() string { return "stalled" }

func (j stalledJob) Run(context.Context) error {
	<-j.release
	return nil
}

func TestSink_DoesNotWaitOnSaturatedPool(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	pool := worker.NewPool(1, 1)
	pool.Start(ctx)
	defer pool.Stop()
	defer close(release)

	// One job occupies the only worker, the next fills the only slot.
	require.NoError(t, pool.Submit(ctx, stalledJob{release: release}))
	require.NoError(t, pool.Submit(ctx, stalledJob{release: release}))

	queue := jobs.NewWorkerQueue(pool, new(mocks.MockCardRepository))
	assert.ErrorIs(t, queue.EnqueuePersist(ctx, testutil.NewCard("c1", "ru")), worker.ErrQueueFull)
	assert.ErrorIs(t, queue.EnqueueReview(ctx, models.ReviewEvent{CardID: "c1"}), worker.ErrQueueFull)

	returned := make(chan struct{})
	go func() {
		jobs.Sink{Queue: queue}.Persist(ctx, testutil.NewCard("c1", "ru"))
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Persist blocked on a full queue")
	}
}
