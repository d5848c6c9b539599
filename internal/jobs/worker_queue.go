package jobs

import (
	"context"

	"github.com/vytor/wordflash/internal/models"
	"github.com/vytor/wordflash/internal/repository"
	"github.com/vytor/wordflash/internal/worker"
)

// WorkerQueue implements JobQueue using a worker pool. Enqueueing never
// waits: when the pool is saturated the job is refused with
// worker.ErrQueueFull.
type WorkerQueue struct {
	pool *worker.Pool
	repo repository.CardRepository
}

// NewWorkerQueue creates a new WorkerQueue implementation
func NewWorkerQueue(pool *worker.Pool, repo repository.CardRepository) *WorkerQueue {
	return &WorkerQueue{pool: pool, repo: repo}
}

func (q *WorkerQueue) EnqueuePersist(_ context.Context, card models.Card) error {
	return q.pool.TrySubmit(&worker.PersistCardJob{Repo: q.repo, Card: card.Clone()})
}

func (q *WorkerQueue) EnqueueReview(_ context.Context, event models.ReviewEvent) error {
	return q.pool.TrySubmit(&worker.RecordReviewJob{Repo: q.repo, Event: event})
}
