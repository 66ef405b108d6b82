// Package worker runs slow work (spectrogram analysis, cache writes, serial
// discovery, animations) off the control loop.
package worker

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultSize is the number of tasks allowed to run at once.
const DefaultSize = 8

// Task is the handle of a submitted function. Done is closed once the
// function has returned (or panicked).
type Task struct {
	name string
	done chan struct{}
}

// Name returns the name the task was submitted with.
func (t *Task) Name() string { return t.name }

// Done returns a channel closed when the task finishes.
func (t *Task) Done() <-chan struct{} { return t.done }

// Finished reports whether the task has completed, without blocking.
func (t *Task) Finished() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Pool is a bounded fire-and-forget executor. Go never blocks the caller:
// tasks beyond the limit wait for a slot on their own goroutine.
type Pool struct {
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	logger *slog.Logger
}

// New creates a pool running at most size tasks concurrently.
func New(size int, logger *slog.Logger) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		sem:    semaphore.NewWeighted(int64(size)),
		logger: logger.With("component", "worker"),
	}
}

// Go schedules fn and returns its handle.
func (p *Pool) Go(name string, fn func()) *Task {
	return p.spawn(name, true, fn)
}

// Background runs a long-lived fn (a polling or animation loop) outside the
// concurrency limit, so it never holds a slot bounded work is waiting for.
// Wait still covers it.
func (p *Pool) Background(name string, fn func()) *Task {
	return p.spawn(name, false, fn)
}

func (p *Pool) spawn(name string, bounded bool, fn func()) *Task {
	t := &Task{name: name, done: make(chan struct{})}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(t.done)
		if bounded {
			if err := p.sem.Acquire(context.Background(), 1); err != nil {
				p.logger.Error("worker: acquire failed", "task", name, "err", err)
				return
			}
			defer p.sem.Release(1)
		}
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("worker: task panicked", "task", name, "panic", r)
			}
		}()
		p.logger.Debug("worker: task started", "task", name, "bounded", bounded)
		fn()
	}()
	return t
}

// Wait blocks until every task submitted so far has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}
