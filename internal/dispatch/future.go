package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Future is the eventual result of a submitted task.
type Future[T any] struct {
	id   string
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any](id string) *Future[T] {
	return &Future[T]{id: id, done: make(chan struct{})}
}

func (f *Future[T]) resolve(val T, err error) {
	f.once.Do(func() {
		f.val, f.err = val, err
		close(f.done)
	})
}

// ID returns the task ID assigned at submission.
func (f *Future[T]) ID() string {
	return f.id
}

// Wait blocks until the task resolves or ctx is done. A ctx error does not
// cancel the task; cancel its Scope for that.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Submit queues fn to run in scope s. If the scope is cancelled before fn
// returns, the result is discarded and the Future resolves with the
// cancellation cause (context.Canceled, the parent's error, or ErrClosed).
func Submit[T any](q *Queue, s *Scope, fn func(ctx context.Context) (T, error)) *Future[T] {
	var zero T
	id := uuid.NewString()
	f := newFuture[T](id)

	t := &task{id: id, ctx: s.ctx}
	t.fail = func(err error) { f.resolve(zero, err) }
	t.run = func(ctx context.Context) {
		if ctx.Err() != nil {
			f.resolve(zero, context.Cause(ctx))
			return
		}
		defer func() {
			if r := recover(); r != nil {
				f.resolve(zero, fmt.Errorf("task %s panicked: %v", id, r))
			}
		}()
		val, err := fn(ctx)
		if cause := s.deliver(func() { f.resolve(val, err) }); cause != nil {
			f.resolve(zero, cause)
		}
	}

	if !q.enqueue(t) {
		f.resolve(zero, ErrClosed)
	}
	return f
}
