package waypoint

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/waypoint/internal/errs"
	"github.com/jward/waypoint/internal/mapsvc"
	"github.com/jward/waypoint/internal/nav"
	"github.com/jward/waypoint/internal/store"
)

// fakeStore serves one record and can fail the next N calls with
// StoreUnavailable. Methods it does not override panic via the nil embed.
type fakeStore struct {
	store.RecordStore

	mu       sync.Mutex
	calls    int
	failures int
	rec      store.Record
	favs     map[int64]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rec:  store.Record{Position: 3, Name: "Cafe", Tel: "555-0100", Address: "1 Main St"},
		favs: map[int64]bool{},
	}
}

func (f *fakeStore) call(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return errs.New(errs.StoreUnavailable, op, "database is locked")
	}
	return nil
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeStore) GetRecord(ctx context.Context, t store.Table, position int64) (store.Record, error) {
	if err := f.call("get record"); err != nil {
		return store.Record{}, err
	}
	if position != f.rec.Position {
		return store.Record{}, errs.New(errs.NotFound, "get record", fmt.Sprintf("%s has no record at position %d", t, position))
	}
	return f.rec, nil
}

func (f *fakeStore) ListRecords(ctx context.Context, t store.Table, page store.Pagination) (store.PagedResult[store.Record], error) {
	if err := f.call("list records"); err != nil {
		return store.PagedResult[store.Record]{}, err
	}
	return store.PagedResult[store.Record]{Items: []store.Record{f.rec}, TotalCount: 1}, nil
}

func (f *fakeStore) ToggleFavorite(ctx context.Context, t store.Table, position int64) (store.Toggle, error) {
	if err := f.call("toggle favorite"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.favs[position] {
		delete(f.favs, position)
		return store.Removed, nil
	}
	f.favs[position] = true
	return store.Added, nil
}

func (f *fakeStore) FavoritesAfter(ctx context.Context, t store.Table, after int64, limit int) ([]store.Record, error) {
	if err := f.call("list favorites"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.favs[f.rec.Position] && f.rec.Position > after {
		return []store.Record{f.rec}, nil
	}
	return nil, nil
}

func newTestApp(t *testing.T, fs *fakeStore, opts ...Option) *App {
	t.Helper()
	a := newApp(fs, nil, append([]Option{WithRetryBackoff(time.Millisecond)}, opts...)...)
	t.Cleanup(func() { a.Close() })
	return a
}

// =============================================================================
// Table allow-list
// =============================================================================

func TestApp_InvalidTableRunsNoQuery(t *testing.T) {
	t.Parallel()
	fs := newFakeStore()
	a := newTestApp(t, fs)
	ctx := context.Background()
	bad := "drop table locations"

	_, err := a.GetRecord(ctx, bad, 0)
	assert.ErrorIs(t, err, ErrInvalidTable)
	_, err = a.ListRecords(ctx, bad, Pagination{})
	assert.ErrorIs(t, err, ErrInvalidTable)
	_, err = a.InsertRecord(ctx, bad, Record{Name: "x"})
	assert.ErrorIs(t, err, ErrInvalidTable)
	assert.ErrorIs(t, a.DeleteRecord(ctx, bad, 0), ErrInvalidTable)
	_, err = a.DeleteRecords(ctx, bad, []int64{0, 1})
	assert.ErrorIs(t, err, ErrInvalidTable)
	_, err = a.ToggleFavorite(ctx, bad, 0)
	assert.ErrorIs(t, err, ErrInvalidTable)
	_, err = a.IsFavorite(ctx, bad, 0)
	assert.ErrorIs(t, err, ErrInvalidTable)
	_, err = a.Favorites(ctx, bad)
	assert.ErrorIs(t, err, ErrInvalidTable)
	_, err = a.Navigator(bad)
	assert.ErrorIs(t, err, ErrInvalidTable)
	_, err = a.RunScenario(ctx, &nav.Scenario{Name: "x", Table: bad})
	assert.ErrorIs(t, err, ErrInvalidTable)

	assert.Zero(t, fs.callCount())
}

// =============================================================================
// Retry
// =============================================================================

func TestApp_RetriesOnceOnStoreUnavailable(t *testing.T) {
	t.Parallel()
	fs := newFakeStore()
	fs.failures = 1
	a := newTestApp(t, fs)

	rec, err := a.GetRecord(context.Background(), "locations", 3)
	require.NoError(t, err)
	assert.Equal(t, "Cafe", rec.Name)
	assert.Equal(t, 2, fs.callCount())
}

func TestApp_SurfacesStoreUnavailableAfterRetry(t *testing.T) {
	t.Parallel()
	fs := newFakeStore()
	fs.failures = 5
	a := newTestApp(t, fs)

	_, err := a.GetRecord(context.Background(), "locations", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "get record locations/3")
	assert.Contains(t, err.Error(), "still unavailable after retry")
	assert.Equal(t, 2, fs.callCount(), "exactly one retry")
}

func TestApp_NotFoundIsNotRetried(t *testing.T) {
	t.Parallel()
	fs := newFakeStore()
	a := newTestApp(t, fs)

	_, err := a.GetRecord(context.Background(), "locations", 99)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, fs.callCount())
}

func TestApp_ToggleAndFavorites(t *testing.T) {
	t.Parallel()
	fs := newFakeStore()
	a := newTestApp(t, fs, WithPageSize(5))
	ctx := context.Background()

	got, err := a.ToggleFavorite(ctx, "cafes", 3)
	require.NoError(t, err)
	assert.Equal(t, Added, got)

	favs, err := a.Favorites(ctx, "cafes")
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, int64(3), favs[0].Position)

	got, err = a.ToggleFavorite(ctx, "cafes", 3)
	require.NoError(t, err)
	assert.Equal(t, Removed, got)
}

func TestApp_CallerCancel(t *testing.T) {
	t.Parallel()
	fs := newFakeStore()
	a := newTestApp(t, fs)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.GetRecord(ctx, "locations", 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestApp_ClosedRejectsWork(t *testing.T) {
	t.Parallel()
	fs := newFakeStore()
	a := newApp(fs, nil)
	require.NoError(t, a.Close())

	_, err := a.GetRecord(context.Background(), "locations", 3)
	assert.Error(t, err)
	assert.Zero(t, fs.callCount())
}

// =============================================================================
// Map links
// =============================================================================

func TestApp_MapLinkDisabledByDefault(t *testing.T) {
	t.Parallel()
	a := newTestApp(t, newFakeStore())
	_, err := a.MapLink(context.Background(), "locations", 3)
	assert.ErrorIs(t, err, mapsvc.ErrDisabled)
}

func TestApp_MapLink(t *testing.T) {
	t.Parallel()
	p, err := mapsvc.New(mapsvc.Config{APIKey: "k", BaseURL: "https://maps.example.com/static"})
	require.NoError(t, err)
	a := newTestApp(t, newFakeStore(), WithMapProvider(p))

	link, err := a.MapLink(context.Background(), "locations", 3)
	require.NoError(t, err)
	assert.Contains(t, link, "center=1+Main+St")

	_, err = a.MapLink(context.Background(), "locations", 4)
	assert.ErrorIs(t, err, ErrNotFound)
}

// =============================================================================
// Navigation
// =============================================================================

func TestApp_NavigatorRetriesThroughResolver(t *testing.T) {
	t.Parallel()
	fs := newFakeStore()
	a := newTestApp(t, fs)
	ctx := context.Background()

	n, err := a.Navigator("locations")
	require.NoError(t, err)
	_, err = n.Start(ctx)
	require.NoError(t, err)

	fs.mu.Lock()
	fs.failures = 1
	fs.mu.Unlock()
	v, err := n.Go(ctx, nav.Second, ptr(int64(3)))
	require.NoError(t, err)
	assert.Equal(t, nav.StatusRecord, v.Status)

	fs.mu.Lock()
	fs.failures = 2
	fs.mu.Unlock()
	_, err = n.Go(ctx, nav.Third, ptr(int64(3)))
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, nav.Second, n.Current().Screen, "failed transition leaves the screen unchanged")
}

func ptr[T any](v T) *T { return &v }
