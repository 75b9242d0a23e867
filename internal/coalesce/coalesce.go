// Package coalesce collapses bursts of writes into one delayed write of
// the latest value.
package coalesce

import (
	"context"
	"sync"
	"time"
)

// Writer delays calls to its write function. Each Schedule supersedes the
// pending value and restarts the delay, so a burst produces one write of the
// last value. A write already started cannot be aborted.
type Writer[T any] struct {
	delay time.Duration
	write func(T)

	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64
	pending bool
	value   T

	inflight sync.WaitGroup
}

// New returns a writer that calls write delay after the last Schedule.
func New[T any](delay time.Duration, write func(T)) *Writer[T] {
	return &Writer[T]{delay: delay, write: write}
}

// Schedule replaces the pending value and restarts the delay.
func (w *Writer[T]) Schedule(v T) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.value = v
	w.pending = true
	w.seq++
	seq := w.seq
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, func() { w.fire(seq) })
}

// Cancel drops the pending value, if any, and reports whether there was one.
func (w *Writer[T]) Cancel() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.takeLocked()
}

// Pending reports whether a write is scheduled but not yet started.
func (w *Writer[T]) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending
}

// Flush runs the pending write now, if any, then waits for every started
// write to finish or ctx to end.
func (w *Writer[T]) Flush(ctx context.Context) error {
	w.mu.Lock()
	v := w.value
	had := w.takeLocked()
	if had {
		w.inflight.Add(1)
	}
	w.mu.Unlock()

	if had {
		w.run(v)
	}

	done := make(chan struct{})
	go func() {
		w.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer[T]) fire(seq uint64) {
	w.mu.Lock()
	if seq != w.seq || !w.pending {
		w.mu.Unlock()
		return
	}
	v := w.value
	w.takeLocked()
	w.inflight.Add(1)
	w.mu.Unlock()

	w.run(v)
}

func (w *Writer[T]) run(v T) {
	defer w.inflight.Done()
	w.write(v)
}

// takeLocked clears the pending state. w.mu must be held.
func (w *Writer[T]) takeLocked() bool {
	had := w.pending
	var zero T
	w.value = zero
	w.pending = false
	w.seq++
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	return had
}
