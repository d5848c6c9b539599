package jobs

import (
	"context"

	"github.com/vytor/wordflash/internal/logger"
	"github.com/vytor/wordflash/internal/models"
)

// JobQueue provides an abstraction for enqueueing background jobs
type JobQueue interface {
	EnqueuePersist(ctx context.Context, card models.Card) error
	EnqueueReview(ctx context.Context, event models.ReviewEvent) error
}

// Sink adapts a JobQueue to the session runner's fire-and-forget contract.
// Enqueue failures are logged and go no further.
type Sink struct {
	Queue JobQueue
}

func (s Sink) Persist(ctx context.Context, card models.Card) {
	if err := s.Queue.EnqueuePersist(ctx, card); err != nil {
		logger.FromContext(ctx).WithPrefix("sink").Error("failed to enqueue card %s: %v", card.ID, err)
	}
}
