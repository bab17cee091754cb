// Package dispatch runs store queries on a single background worker.
//
// Work is submitted as tasks that belong to a Scope. Tasks execute strictly
// in submission order, one at a time. Cancelling a Scope cancels every task
// in it that has not finished yet, and such a task never delivers its result:
// its Future resolves with the cancellation cause instead.
package dispatch

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrClosed is the result of tasks submitted to, or still pending in, a
// closed Queue.
var ErrClosed = errors.New("dispatch queue closed")

// Queue is a FIFO of tasks drained by one worker goroutine.
//
// The task slice is unbounded; Submit never blocks. The signal channel
// (buffered, size 1) coalesces wakeups and is closed by Close to release the
// worker.
type Queue struct {
	mu     sync.Mutex
	tasks  []*task
	closed bool
	signal chan struct{}
	done   chan struct{}

	ctx    context.Context
	cancel context.CancelCauseFunc
	logger *zap.Logger
}

type task struct {
	id   string
	ctx  context.Context
	run  func(ctx context.Context)
	fail func(err error)
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger sets the logger used for task diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(q *Queue) {
		q.logger = l
	}
}

// New starts a Queue and its worker. Call Close to stop it.
func New(opts ...Option) *Queue {
	ctx, cancel := context.WithCancelCause(context.Background())
	q := &Queue{
		tasks:  make([]*task, 0, 16),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(q)
	}
	go q.work()
	return q
}

// enqueue appends t. Returns false if the queue is closed.
func (q *Queue) enqueue(t *task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, t)
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// next pops the front task. When the queue is closed it instead hands back
// every pending task so the worker can fail them.
func (q *Queue) next() (t *task, pending []*task, closed bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		pending, q.tasks = q.tasks, nil
		return nil, pending, true
	}
	if len(q.tasks) == 0 {
		return nil, nil, false
	}
	t = q.tasks[0]
	q.tasks[0] = nil
	if len(q.tasks) == 1 {
		q.tasks = q.tasks[:0]
	} else {
		q.tasks = q.tasks[1:]
	}
	return t, nil, false
}

func (q *Queue) work() {
	defer close(q.done)
	for {
		t, pending, closed := q.next()
		if closed {
			for _, p := range pending {
				p.fail(ErrClosed)
			}
			if len(pending) > 0 {
				q.logger.Debug("failed pending tasks on close", zap.Int("count", len(pending)))
			}
			return
		}
		if t == nil {
			<-q.signal
			continue
		}
		if t.ctx.Err() != nil {
			q.logger.Debug("task discarded", zap.String("task_id", t.id), zap.Error(context.Cause(t.ctx)))
		}
		t.run(t.ctx)
	}
}

// Len returns the number of tasks waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Close stops accepting tasks, cancels the running one, fails pending ones
// with ErrClosed and waits for the worker to exit. Safe to call more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.signal)
		q.cancel(ErrClosed)
	}
	q.mu.Unlock()
	<-q.done
}

// Scope groups tasks so they can be cancelled together.
//
// Every cancellation path (Cancel, the parent context, Queue.Close) goes
// through cancelWith, which shares mu with deliver. A task result is therefore
// either delivered before the scope is cancelled or not at all.
type Scope struct {
	ctx    context.Context
	mu     sync.Mutex
	cancel context.CancelCauseFunc
	stops  []func() bool
}

// NewScope returns a Scope derived from parent. The scope is also cancelled
// when the Queue closes. Call Cancel when the scope is no longer needed.
func (q *Queue) NewScope(parent context.Context) *Scope {
	ctx, cancel := context.WithCancelCause(context.WithoutCancel(parent))
	s := &Scope{ctx: ctx, cancel: cancel}
	for _, src := range []context.Context{parent, q.ctx} {
		s.stops = append(s.stops, context.AfterFunc(src, func() {
			s.cancelWith(context.Cause(src))
		}))
		if src.Err() != nil {
			s.cancelWith(context.Cause(src))
		}
	}
	return s
}

// Context returns the context tasks in this scope run with.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Cancel cancels every unfinished task in the scope.
func (s *Scope) Cancel() {
	for _, stop := range s.stops {
		stop()
	}
	s.cancelWith(context.Canceled)
}

func (s *Scope) cancelWith(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel(cause)
}

// deliver calls fn unless the scope is already cancelled, in which case it
// returns the cause. Cancellation waits for an in-progress fn.
func (s *Scope) deliver(fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return context.Cause(s.ctx)
	}
	fn()
	return nil
}

// Err returns the cancellation cause, or nil while the scope is live.
func (s *Scope) Err() error {
	if s.ctx.Err() == nil {
		return nil
	}
	return context.Cause(s.ctx)
}
