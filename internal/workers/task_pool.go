package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"infinite-experiment/clubhouse/internal/logging"
	"infinite-experiment/clubhouse/internal/metrics"
)

const defaultTaskTimeout = 30 * time.Second

type task struct {
	name string
	fn   func(ctx context.Context) error
}

// TaskPool runs fire-and-forget work on a fixed set of goroutines. Failures
// and panics are logged and counted, never returned to the submitter.
type TaskPool struct {
	queue   chan task
	timeout time.Duration
	metrics *metrics.MetricsRegistry

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewTaskPool(workers, queueSize int, m *metrics.MetricsRegistry) *TaskPool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	p := &TaskPool{
		queue:   make(chan task, queueSize),
		timeout: defaultTaskTimeout,
		metrics: m,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.loop(i)
	}
	logging.Info("Task pool started", "workers", workers, "queue_size", queueSize)
	return p
}

// Submit queues fn. When the queue is full or the pool is shut down the task
// is dropped.
func (p *TaskPool) Submit(name string, fn func(ctx context.Context) error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		logging.Warn("Task dropped after shutdown", "task", name)
		p.metrics.ObserveTask(name, "dropped")
		return
	}

	select {
	case p.queue <- task{name: name, fn: fn}:
	default:
		logging.Warn("Task queue full, dropping task", "task", name)
		p.metrics.ObserveTask(name, "dropped")
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish.
func (p *TaskPool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("Task pool drained")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("task pool shutdown: %w", ctx.Err())
	}
}

func (p *TaskPool) loop(id int) {
	defer p.wg.Done()
	for t := range p.queue {
		p.run(id, t)
	}
}

func (p *TaskPool) run(id int, t task) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Background task panicked", "task", t.name, "worker", id, "panic", fmt.Sprint(r))
			p.metrics.ObserveTask(t.name, "panic")
		}
	}()

	if err := t.fn(ctx); err != nil {
		logging.Error("Background task failed", "task", t.name, "worker", id, "error", err.Error(), "duration", time.Since(start).String())
		p.metrics.ObserveTask(t.name, "error")
		return
	}
	p.metrics.ObserveTask(t.name, "ok")
}
