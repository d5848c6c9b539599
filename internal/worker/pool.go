package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vytor/wordflash/internal/logger"
)

// ErrPoolStopped is returned by Submit once Stop has been called.
var ErrPoolStopped = errors.New("worker pool stopped")

// ErrQueueFull is returned by TrySubmit when no queue slot is free.
var ErrQueueFull = errors.New("worker queue full")

type Job interface {
	Run(context.Context) error
	Name() string
}

type Pool struct {
	jobs     chan Job
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	workers  int
	queue    int
	log      *logger.Logger
}

func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	log := logger.Default().WithPrefix("worker-pool")
	log.Debug("creating worker pool with %d workers and queue size %d", workers, queueSize)
	return &Pool{
		jobs:    make(chan Job, queueSize),
		done:    make(chan struct{}),
		workers: workers,
		queue:   queueSize,
		log:     log,
	}
}

// Start launches the workers. Jobs run with ctx's values but are not
// cancelled with it, so writes already queued still land during shutdown.
func (p *Pool) Start(ctx context.Context) {
	base := context.WithoutCancel(ctx)
	p.log.Info("starting worker pool with %d workers", p.workers)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			workerLog := p.log.WithField("worker_id", id)
			workerLog.Debug("worker started")

			for {
				select {
				case <-p.done:
					p.drain(base, workerLog)
					workerLog.Debug("worker shutting down")
					return
				case job := <-p.jobs:
					p.run(base, workerLog, job)
				}
			}
		}(i + 1)
	}
}

func (p *Pool) run(ctx context.Context, workerLog *logger.Logger, job Job) {
	jobLog := workerLog.WithField("job", job.Name())
	jobLog.Debug("starting job")
	start := time.Now()

	// Create a context with the logger for the job
	jobCtx := logger.NewContext(ctx, jobLog)

	if err := job.Run(jobCtx); err != nil {
		jobLog.Error("job failed after %v: %v", time.Since(start), err)
	} else {
		jobLog.Debug("job completed in %v", time.Since(start))
	}
}

func (p *Pool) drain(ctx context.Context, workerLog *logger.Logger) {
	for {
		select {
		case job := <-p.jobs:
			p.run(ctx, workerLog, job)
		default:
			return
		}
	}
}

// Stop refuses new jobs, finishes the queued ones and waits for the workers.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.log.Info("stopping worker pool")
		close(p.done)
		p.wg.Wait()
		p.log.Info("worker pool stopped")
	})
}

// Submit queues job, blocking while the queue is full until ctx is done or
// the pool stops.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	select {
	case <-p.done:
		return ErrPoolStopped
	default:
	}

	p.log.Debug("submitting job: %s", job.Name())
	select {
	case p.jobs <- job:
		return nil
	case <-p.done:
		return ErrPoolStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit queues job only if a slot is free right now.
func (p *Pool) TrySubmit(job Job) error {
	select {
	case <-p.done:
		return ErrPoolStopped
	default:
	}

	select {
	case p.jobs <- job:
		p.log.Debug("submitted job: %s", job.Name())
		return nil
	default:
		p.log.Warn("queue full, dropping job: %s", job.Name())
		return ErrQueueFull
	}
}

// QueueSize returns the current number of pending jobs.
func (p *Pool) QueueSize() int {
	return len(p.jobs)
}
