package nav

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/jward/waypoint/internal/dispatch"
	"github.com/jward/waypoint/internal/errs"
	"github.com/jward/waypoint/internal/store"
)

// fakeResolver serves a fixed record set. Positions listed in gates block
// until their channel is closed or the query is cancelled.
type fakeResolver struct {
	mu        sync.Mutex
	records   []store.Record
	favorites map[int64]bool
	fail      error
	gates     map[int64]chan struct{}
	entered   chan int64
	calls     int
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		records: []store.Record{
			{Position: 0, Name: "Cafe", Tel: "555-0100", Address: "1 Main St"},
			{Position: 1, Name: "Bakery", Tel: "555-0101", Address: "2 Main St"},
		},
		favorites: map[int64]bool{},
		gates:     map[int64]chan struct{}{},
		entered:   make(chan int64, 16),
	}
}

func (f *fakeResolver) Record(ctx context.Context, position int64) (store.Record, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gates[position]
	fail := f.fail
	f.mu.Unlock()

	f.entered <- position
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return store.Record{}, ctx.Err()
		}
	}
	if fail != nil {
		return store.Record{}, fail
	}
	for _, r := range f.records {
		if r.Position == position {
			return r, nil
		}
	}
	return store.Record{}, errs.New(errs.NotFound, "get record", fmt.Sprintf("locations has no record at position %d", position))
}

func (f *fakeResolver) Records(ctx context.Context) ([]store.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail != nil {
		return nil, f.fail
	}
	return slices.Clone(f.records), nil
}

func (f *fakeResolver) Favorites(ctx context.Context) ([]store.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail != nil {
		return nil, f.fail
	}
	var out []store.Record
	for _, r := range f.records {
		if f.favorites[r.Position] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeResolver) Toggle(ctx context.Context, position int64) (store.Toggle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !slices.ContainsFunc(f.records, func(r store.Record) bool { return r.Position == position }) {
		return 0, errs.New(errs.NotFound, "toggle favorite", fmt.Sprintf("locations has no record at position %d", position))
	}
	if f.favorites[position] {
		delete(f.favorites, position)
		return store.Removed, nil
	}
	f.favorites[position] = true
	return store.Added, nil
}

func (f *fakeResolver) setFail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

func (f *fakeResolver) gate(position int64) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[position] = ch
	return ch
}

func newTestNavigator(t *testing.T) (*Navigator, *fakeResolver) {
	t.Helper()
	q := dispatch.New()
	t.Cleanup(q.Close)
	r := newFakeResolver()
	return New(q, r), r
}

func pos(p int64) *int64 { return &p }
