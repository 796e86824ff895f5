package worker

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	ErrQueueFull = errors.New("worker: queue full")
	ErrStopped   = errors.New("worker: pool stopped")
)

// Task represents a unit of work executed by the pool.
type Task func()

// Pool runs tasks on a fixed set of goroutines fed by a bounded queue.
type Pool interface {
	Submit(Task) error
	Stop()
}

// NewPool creates a pool with n workers and room for queue pending tasks.
// n<=0 defaults to 1, queue<0 to 0.
func NewPool(n, queue int) Pool {
	if n <= 0 {
		n = 1
	}
	if queue < 0 {
		queue = 0
	}
	p := &pool{jobs: make(chan Task, queue)}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				run(job)
			}
		}()
	}
	return p
}

type pool struct {
	mu      sync.RWMutex
	stopped bool
	jobs    chan Task
	wg      sync.WaitGroup
}

func run(job Task) {
	if job == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("worker task panicked")
		}
	}()
	job()
}

// Submit enqueues t without blocking. A full queue is reported as
// ErrQueueFull rather than stalling the caller.
func (p *pool) Submit(t Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.jobs <- t:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop drains queued tasks and waits for the workers. Safe to call twice.
func (p *pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
