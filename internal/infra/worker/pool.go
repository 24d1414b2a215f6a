// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"eduplatform/internal/infra/metrics"

	"github.com/rs/zerolog"
)

var ErrQueueFull = errors.New("worker queue full")

// A small worker pool for fire-and-forget side effects such as operator
// notifications. Tasks never block the submitter.

type Task func(ctx context.Context) error

type job struct {
	name string
	run  Task
}

type Pool struct {
	wg          sync.WaitGroup
	jobs        chan job
	quit        chan struct{}
	stopOnce    sync.Once
	n           int
	taskTimeout time.Duration
	log         *zerolog.Logger
}

func NewPool(workers, queueSize int, taskTimeout time.Duration, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = workers * 4
	}
	if taskTimeout <= 0 {
		taskTimeout = 10 * time.Second
	}
	l := logger.With().Str("component", "WorkerPool").Logger()
	return &Pool{
		jobs:        make(chan job, queueSize),
		quit:        make(chan struct{}),
		n:           workers,
		taskTimeout: taskTimeout,
		log:         &l,
	}
}

// Start launches the workers. Cancelling ctx abandons queued tasks; use Stop
// for a graceful shutdown.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					p.drain(ctx, id)
					return
				case j := <-p.jobs:
					p.run(ctx, id, j)
				}
			}
		}(i)
	}
}

// drain runs whatever is still queued when Stop is called.
func (p *Pool) drain(ctx context.Context, id int) {
	for {
		select {
		case j := <-p.jobs:
			p.run(ctx, id, j)
		default:
			return
		}
	}
}

func (p *Pool) run(ctx context.Context, id int, j job) {
	tctx, cancel := context.WithTimeout(ctx, p.taskTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			metrics.IncJob(j.name, "failed")
			p.log.Error().Int("worker", id).Str("job", j.name).Interface("panic", r).Msg("task panicked")
		}
	}()
	if err := j.run(tctx); err != nil {
		metrics.IncJob(j.name, "failed")
		p.log.Warn().Err(err).Int("worker", id).Str("job", j.name).Msg("task error")
		return
	}
	metrics.IncJob(j.name, "completed")
}

// Stop waits for in-flight and queued tasks. Submit must not be called after Stop.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.quit) })
	p.wg.Wait()
}

func (p *Pool) Submit(name string, task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	select {
	case p.jobs <- job{name: name, run: task}:
		return nil
	default:
		// drop when saturated; callers treat side effects as best effort
		metrics.IncJob(name, "dropped")
		return ErrQueueFull
	}
}
