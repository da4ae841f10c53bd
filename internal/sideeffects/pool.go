package sideeffects

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tapline/tapline-backend/pkg/config"
	"github.com/tapline/tapline-backend/pkg/logger"
	"github.com/tapline/tapline-backend/pkg/metrics"
)

// taskTimeout bounds a single side-effect execution so a stuck hook
// cannot hold a worker forever.
const taskTimeout = 30 * time.Second

type task struct {
	name string
	fn   func(context.Context) error
}

// Pool runs fire-and-forget work on a fixed set of workers behind a
// bounded queue. A failed task is logged and counted; it never
// propagates back to the request that queued it.
type Pool struct {
	queue   chan task
	workers int
	logg    *logger.Logger
	metrics *metrics.SideEffectMetrics

	mu      sync.Mutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewPool builds a pool sized from config.
func NewPool(cfg config.SideEffectsConfig, logg *logger.Logger, m *metrics.SideEffectMetrics) (*Pool, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Pool{
		queue:   make(chan task, queueSize),
		workers: workers,
		logg:    logg,
		metrics: m,
	}, nil
}

// Start launches the workers. The pool drains until Close is called.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

// Submit queues a task and reports whether it was accepted. A full
// queue drops the task rather than blocking the caller. The mutex is
// held across the send; Close closes the queue under the same mutex,
// so a submit can never hit a just-closed channel.
func (p *Pool) Submit(name string, fn func(context.Context) error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}

	select {
	case p.queue <- task{name: name, fn: fn}:
		p.metrics.SetQueueDepth(len(p.queue))
		return true
	default:
		p.metrics.IncDropped()
		return false
	}
}

// Close stops intake and waits for in-flight tasks to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for t := range p.queue {
		p.run(ctx, t)
		p.metrics.SetQueueDepth(len(p.queue))
	}
}

func (p *Pool) run(ctx context.Context, t task) {
	taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), taskTimeout)
	defer cancel()

	logCtx := p.logg.WithField(taskCtx, "task", t.name)
	defer func() {
		if r := recover(); r != nil {
			p.metrics.IncFailure(t.name)
			p.logg.Error(logCtx, "side-effect task panicked", fmt.Errorf("panic: %v", r))
		}
	}()

	if err := t.fn(taskCtx); err != nil {
		p.metrics.IncFailure(t.name)
		p.logg.Error(logCtx, "side-effect task failed", err)
		return
	}
}
