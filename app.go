package waypoint

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/jward/waypoint/internal/dispatch"
	"github.com/jward/waypoint/internal/favorites"
	"github.com/jward/waypoint/internal/fixture"
	"github.com/jward/waypoint/internal/mapsvc"
	"github.com/jward/waypoint/internal/nav"
	"github.com/jward/waypoint/internal/store"
)

// App owns the record store, the query dispatcher and the map provider.
// Every string-facing method resolves its table through the allow-list
// before anything is queued, then runs the store call on the dispatcher
// with one retry on StoreUnavailable.
type App struct {
	store  store.RecordStore
	closer io.Closer
	queue  *dispatch.Queue
	logger *zap.Logger
	maps   mapsvc.Provider

	backoff  time.Duration
	pageSize int
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger shared by the App, its store and dispatcher.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// WithRetryBackoff sets the delay before retrying a StoreUnavailable failure.
func WithRetryBackoff(d time.Duration) Option {
	return func(a *App) {
		if d >= 0 {
			a.backoff = d
		}
	}
}

// WithPageSize sets how many rows list and favorites queries fetch per page.
func WithPageSize(n int) Option {
	return func(a *App) {
		if n > 0 {
			a.pageSize = n
		}
	}
}

// WithMapProvider sets the provider used by MapLink. Without it MapLink
// fails with mapsvc.ErrDisabled.
func WithMapProvider(p mapsvc.Provider) Option {
	return func(a *App) {
		a.maps = p
	}
}

const (
	defaultRetryBackoff = 100 * time.Millisecond
	defaultPageSize     = 50
)

// New opens (and migrates) the SQLite database at dbPath and starts the
// dispatcher.
func New(dbPath string, opts ...Option) (*App, error) {
	// Collect options first; the store needs the logger.
	probe := &App{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(probe)
	}

	s, err := store.NewStore(dbPath, store.WithLogger(probe.logger))
	if err != nil {
		return nil, fmt.Errorf("waypoint: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("waypoint: migrate: %w", err)
	}
	return newApp(s, s, opts...), nil
}

// newApp wires an App around rs. closer, when non-nil, is closed by Close.
func newApp(rs store.RecordStore, closer io.Closer, opts ...Option) *App {
	a := &App{
		store:    rs,
		closer:   closer,
		logger:   zap.NewNop(),
		maps:     mapsvc.Disabled{},
		backoff:  defaultRetryBackoff,
		pageSize: defaultPageSize,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.queue = dispatch.New(dispatch.WithLogger(a.logger))
	return a
}

// Close stops the dispatcher, failing queued work, and closes the store.
func (a *App) Close() error {
	a.queue.Close()
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

// Tables returns the allow-listed table names.
func (a *App) Tables() []string {
	return store.TableNames()
}

// submit runs fn on the dispatcher in a scope tied to ctx and waits for it.
func submit[T any](ctx context.Context, a *App, op string, fn func(context.Context) (T, error)) (T, error) {
	s := a.queue.NewScope(ctx)
	defer s.Cancel()
	f := dispatch.Submit(a.queue, s, func(ctx context.Context) (T, error) {
		return withRetry(ctx, a.backoff, a.logger, op, fn)
	})
	return f.Wait(ctx)
}

// GetRecord returns the record at position in table.
func (a *App) GetRecord(ctx context.Context, table string, position int64) (Record, error) {
	t, err := store.ParseTable(table)
	if err != nil {
		return Record{}, err
	}
	return submit(ctx, a, describe("get record", t, position), func(ctx context.Context) (Record, error) {
		return a.store.GetRecord(ctx, t, position)
	})
}

// ListRecords returns one page of table ordered by position.
func (a *App) ListRecords(ctx context.Context, table string, page Pagination) (RecordPage, error) {
	t, err := store.ParseTable(table)
	if err != nil {
		return RecordPage{}, err
	}
	return submit(ctx, a, "list records "+t.String(), func(ctx context.Context) (RecordPage, error) {
		return a.store.ListRecords(ctx, t, page)
	})
}

// InsertRecord appends rec to table and returns its position.
func (a *App) InsertRecord(ctx context.Context, table string, rec Record) (int64, error) {
	t, err := store.ParseTable(table)
	if err != nil {
		return 0, err
	}
	return submit(ctx, a, "insert record "+t.String(), func(ctx context.Context) (int64, error) {
		return a.store.InsertRecord(ctx, t, rec)
	})
}

// DeleteRecord removes the record at position and its favorite mark.
func (a *App) DeleteRecord(ctx context.Context, table string, position int64) error {
	t, err := store.ParseTable(table)
	if err != nil {
		return err
	}
	_, err = submit(ctx, a, describe("delete record", t, position), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.store.DeleteRecord(ctx, t, position)
	})
	return err
}

// DeleteRecords removes every listed position that exists in table, with
// their favorite marks, in one transaction. Returns how many were removed.
func (a *App) DeleteRecords(ctx context.Context, table string, positions []int64) (int, error) {
	t, err := store.ParseTable(table)
	if err != nil {
		return 0, err
	}
	op := fmt.Sprintf("delete records %s/%v", t, positions)
	return submit(ctx, a, op, func(ctx context.Context) (int, error) {
		return a.store.DeleteRecords(ctx, t, positions)
	})
}

// ToggleFavorite flips the favorite mark of the record at position.
func (a *App) ToggleFavorite(ctx context.Context, table string, position int64) (Toggle, error) {
	t, err := store.ParseTable(table)
	if err != nil {
		return 0, err
	}
	return a.toggle(ctx, t, position)
}

func (a *App) toggle(ctx context.Context, t store.Table, position int64) (Toggle, error) {
	reg := a.registry(t)
	return submit(ctx, a, describe("toggle favorite", t, position), func(ctx context.Context) (Toggle, error) {
		return reg.Toggle(ctx, position)
	})
}

// IsFavorite reports whether the record at position is marked.
func (a *App) IsFavorite(ctx context.Context, table string, position int64) (bool, error) {
	t, err := store.ParseTable(table)
	if err != nil {
		return false, err
	}
	reg := a.registry(t)
	return submit(ctx, a, describe("is favorite", t, position), func(ctx context.Context) (bool, error) {
		return reg.Contains(ctx, position)
	})
}

// Favorites returns every favorite record of table in position order.
func (a *App) Favorites(ctx context.Context, table string) ([]Record, error) {
	t, err := store.ParseTable(table)
	if err != nil {
		return nil, err
	}
	reg := a.registry(t)
	return submit(ctx, a, "list favorites "+t.String(), func(ctx context.Context) ([]Record, error) {
		return reg.Collect(ctx)
	})
}

func (a *App) registry(t store.Table) *favorites.Registry {
	return favorites.New(a.store, t, favorites.WithPageSize(a.pageSize), favorites.WithLogger(a.logger))
}

// Seed imports fx in one transaction and returns the number of records written.
func (a *App) Seed(ctx context.Context, fx *fixture.Fixture) (int, error) {
	batch := store.NewBatch()
	n, err := fx.Apply(ctx, batch)
	if err != nil {
		return 0, err
	}
	_, err = submit(ctx, a, "seed", func(ctx context.Context) (map[int64]int64, error) {
		return a.store.CommitBatch(ctx, batch)
	})
	if err != nil {
		return 0, err
	}
	a.logger.Info("seeded records", zap.Int("count", n))
	return n, nil
}

// MapLink returns the map provider link for the record at position.
func (a *App) MapLink(ctx context.Context, table string, position int64) (string, error) {
	rec, err := a.GetRecord(ctx, table, position)
	if err != nil {
		return "", err
	}
	link, err := a.maps.Link(rec)
	if err != nil {
		return "", fmt.Errorf("map link for %s position %d: %w", table, position, err)
	}
	return link, nil
}

// Navigator returns a navigation session browsing table.
func (a *App) Navigator(table string) (*nav.Navigator, error) {
	t, err := store.ParseTable(table)
	if err != nil {
		return nil, err
	}
	return nav.New(a.queue, &resolver{app: a, table: t}, nav.WithLogger(a.logger)), nil
}

// RunScenario replays sc in a fresh navigation session.
func (a *App) RunScenario(ctx context.Context, sc *nav.Scenario) (*nav.Transcript, error) {
	t, err := store.ParseTable(sc.Table)
	if err != nil {
		return nil, err
	}
	n := nav.New(a.queue, &resolver{app: a, table: t}, nav.WithLogger(a.logger))
	return nav.RunScenario(ctx, n, sc, toggler{app: a, table: t})
}

// resolver serves navigation queries for one table. The navigator already
// runs these on the dispatcher, so they call the store directly.
type resolver struct {
	app   *App
	table store.Table
}

func (r *resolver) Record(ctx context.Context, position int64) (store.Record, error) {
	return withRetry(ctx, r.app.backoff, r.app.logger, describe("get record", r.table, position),
		func(ctx context.Context) (store.Record, error) {
			return r.app.store.GetRecord(ctx, r.table, position)
		})
}

func (r *resolver) Records(ctx context.Context) ([]store.Record, error) {
	page, err := withRetry(ctx, r.app.backoff, r.app.logger, "list records "+r.table.String(),
		func(ctx context.Context) (RecordPage, error) {
			return r.app.store.ListRecords(ctx, r.table, store.Pagination{Limit: r.app.pageSize})
		})
	return page.Items, err
}

func (r *resolver) Favorites(ctx context.Context) ([]store.Record, error) {
	reg := r.app.registry(r.table)
	return withRetry(ctx, r.app.backoff, r.app.logger, "list favorites "+r.table.String(), reg.Collect)
}

type toggler struct {
	app   *App
	table store.Table
}

func (t toggler) Toggle(ctx context.Context, position int64) (store.Toggle, error) {
	return t.app.toggle(ctx, t.table, position)
}

func describe(op string, t store.Table, position int64) string {
	return fmt.Sprintf("%s %s/%d", op, t, position)
}
