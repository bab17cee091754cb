// Package nav is the screen state machine that hands a selected record's
// position from one screen to the next.
//
// Screens form the graph Main → Second → Third → Fourth with a side branch
// Main → Bookmark that exits back to Main. Entering a screen runs a query on
// the dispatch queue; the screen change and its View are committed together
// once that query resolves. Starting another navigation while one is pending
// supersedes the pending one.
package nav

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jward/waypoint/internal/dispatch"
	"github.com/jward/waypoint/internal/errs"
)

var (
	// ErrNotStarted is returned by Go and Back before Start succeeds.
	ErrNotStarted = errors.New("navigator not started")
	// ErrInvalidTransition matches every *TransitionError.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrSuperseded is returned by a navigation replaced by a newer one
	// before its query resolved.
	ErrSuperseded = errors.New("navigation superseded")
	// ErrNoHistory is returned by Back on the root screen.
	ErrNoHistory = errors.New("no navigation history")
)

// TransitionError reports a move the screen graph does not allow.
type TransitionError struct {
	From, To Screen
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

// Is matches ErrInvalidTransition.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// Outcome is how a transition attempt ended.
type Outcome string

const (
	OutcomeCommitted  Outcome = "committed"
	OutcomeNotFound   Outcome = "not_found"
	OutcomeSuperseded Outcome = "superseded"
	OutcomeCanceled   Outcome = "canceled"
	OutcomeFailed     Outcome = "failed"
)

// TraceEntry records one transition attempt.
type TraceEntry struct {
	Seq      int     `json:"seq"`
	From     Screen  `json:"from,omitempty"`
	To       Screen  `json:"to"`
	Position *int64  `json:"position,omitempty"`
	Back     bool    `json:"back,omitempty"`
	Outcome  Outcome `json:"outcome"`
}

// entry is one slot of the history stack.
type entry struct {
	screen   Screen
	position *int64
}

type transition struct {
	seq        int
	from, to   Screen
	position   *int64
	back       bool
	scope      *dispatch.Scope
	superseded bool
}

// Navigator drives the screen state machine for one session. Methods are
// safe for concurrent use.
type Navigator struct {
	id       string
	queue    *dispatch.Queue
	resolver Resolver
	logger   *zap.Logger

	mu      sync.Mutex
	started bool
	current entry
	view    View
	history []entry
	pending *transition
	seq     int
	trace   []TraceEntry
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithLogger sets the navigator logger.
func WithLogger(l *zap.Logger) Option {
	return func(n *Navigator) {
		n.logger = l
	}
}

// New returns a Navigator that runs its queries on q through r.
func New(q *dispatch.Queue, r Resolver, opts ...Option) *Navigator {
	n := &Navigator{
		id:       uuid.NewString(),
		queue:    q,
		resolver: r,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = n.logger.With(zap.String("session", n.id))
	return n
}

// ID returns the session ID.
func (n *Navigator) ID() string {
	return n.id
}

// Start enters Main with its default view and clears history. A pending
// navigation is superseded.
func (n *Navigator) Start(ctx context.Context) (View, error) {
	n.mu.Lock()
	tr := n.begin(ctx, n.current.screen, Main, nil, false)
	n.mu.Unlock()
	return n.run(ctx, tr, func() {
		n.started = true
		n.history = nil
	})
}

// Go moves forward to screen to, optionally carrying a record position.
// Leaving Bookmark for Main returns to the Main entry it came from.
func (n *Navigator) Go(ctx context.Context, to Screen, position *int64) (View, error) {
	n.mu.Lock()
	if !n.started {
		n.mu.Unlock()
		return View{}, ErrNotStarted
	}
	from := n.current
	if !from.screen.CanGo(to) {
		n.mu.Unlock()
		return View{}, &TransitionError{From: from.screen, To: to}
	}
	tr := n.begin(ctx, from.screen, to, position, false)
	n.mu.Unlock()

	return n.run(ctx, tr, func() {
		if exits(from.screen, to) {
			n.pop()
			return
		}
		n.history = append(n.history, from)
	})
}

// Back returns to the previous screen, re-entering it with the position it
// was entered with.
func (n *Navigator) Back(ctx context.Context) (View, error) {
	n.mu.Lock()
	if !n.started {
		n.mu.Unlock()
		return View{}, ErrNotStarted
	}
	if len(n.history) == 0 {
		n.mu.Unlock()
		return View{}, ErrNoHistory
	}
	prev := n.history[len(n.history)-1]
	tr := n.begin(ctx, n.current.screen, prev.screen, prev.position, true)
	n.mu.Unlock()

	return n.run(ctx, tr, func() {
		n.pop()
	})
}

// begin registers a new pending transition, superseding any earlier one.
// Caller holds n.mu.
func (n *Navigator) begin(ctx context.Context, from, to Screen, position *int64, back bool) *transition {
	if p := n.pending; p != nil {
		p.superseded = true
		p.scope.Cancel()
	}
	n.seq++
	tr := &transition{
		seq:      n.seq,
		from:     from,
		to:       to,
		position: copyPos(position),
		back:     back,
		scope:    n.queue.NewScope(ctx),
	}
	n.pending = tr
	return tr
}

// run resolves tr on the queue and commits it. apply updates the history
// stack and runs under n.mu only if the transition commits.
func (n *Navigator) run(ctx context.Context, tr *transition, apply func()) (View, error) {
	defer tr.scope.Cancel()

	f := dispatch.Submit(n.queue, tr.scope, func(ctx context.Context) (View, error) {
		return resolve(ctx, n.resolver, tr.to, tr.position)
	})
	view, err := f.Wait(tr.scope.Context())
	if err != nil && tr.scope.Err() != nil {
		err = tr.scope.Err()
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pending == tr {
		n.pending = nil
	}

	switch {
	case tr.superseded:
		n.record(tr, OutcomeSuperseded)
		return View{}, ErrSuperseded
	case ctx.Err() != nil:
		n.record(tr, OutcomeCanceled)
		return View{}, ctx.Err()
	case errors.Is(err, errs.ErrNotFound):
		view = View{Screen: tr.to, Position: copyPos(tr.position), Status: StatusNotFound}
		apply()
		n.commit(tr, view)
		n.record(tr, OutcomeNotFound)
		return view, nil
	case err != nil:
		n.record(tr, OutcomeFailed)
		n.logger.Debug("transition failed",
			zap.Stringer("from", tr.from), zap.Stringer("screen", tr.to), zap.Error(err))
		return View{}, fmt.Errorf("enter %s: %w", tr.to, err)
	}

	apply()
	n.commit(tr, view)
	n.record(tr, OutcomeCommitted)
	return view, nil
}

func (n *Navigator) commit(tr *transition, view View) {
	n.current = entry{screen: tr.to, position: copyPos(tr.position)}
	n.view = view
	n.logger.Debug("screen entered", zap.Stringer("screen", tr.to), zap.String("status", string(view.Status)))
}

func (n *Navigator) pop() {
	if len(n.history) > 0 {
		n.history = n.history[:len(n.history)-1]
	}
}

func (n *Navigator) record(tr *transition, outcome Outcome) {
	n.trace = append(n.trace, TraceEntry{
		Seq:      tr.seq,
		From:     tr.from,
		To:       tr.to,
		Position: copyPos(tr.position),
		Back:     tr.back,
		Outcome:  outcome,
	})
}

// Current returns the committed screen and its view. Before Start it
// returns the zero View.
func (n *Navigator) Current() View {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.view
}

// History returns the screens Back would return to, oldest first.
func (n *Navigator) History() []Screen {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Screen, len(n.history))
	for i, e := range n.history {
		out[i] = e.screen
	}
	return out
}

// Trace returns every transition attempt in the order it finished.
func (n *Navigator) Trace() []TraceEntry {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]TraceEntry(nil), n.trace...)
}
