// Package favorites is the favorite-marking view over one record table.
package favorites

import (
	"context"
	"iter"

	"go.uber.org/zap"

	"github.com/jward/waypoint/internal/store"
)

const defaultPageSize = 50

// Registry marks a subset of one table's records as favorites.
type Registry struct {
	fs       store.FavoriteStore
	table    store.Table
	pageSize int
	logger   *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithPageSize sets how many favorites List fetches per round trip.
func WithPageSize(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.pageSize = n
		}
	}
}

// WithLogger sets the registry logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// New returns a Registry for table t backed by fs.
func New(fs store.FavoriteStore, t store.Table, opts ...Option) *Registry {
	r := &Registry{fs: fs, table: t, pageSize: defaultPageSize, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Toggle flips membership of the record at position. It fails with
// NotFound when no such record exists.
func (r *Registry) Toggle(ctx context.Context, position int64) (store.Toggle, error) {
	res, err := r.fs.ToggleFavorite(ctx, r.table, position)
	if err != nil {
		return 0, err
	}
	r.logger.Debug("favorite toggled",
		zap.Stringer("table", r.table), zap.Int64("position", position), zap.Stringer("result", res))
	return res, nil
}

// Contains reports whether the record at position is a favorite.
func (r *Registry) Contains(ctx context.Context, position int64) (bool, error) {
	return r.fs.IsFavorite(ctx, r.table, position)
}

// List yields favorite records in position order. Pages are fetched on
// demand, so stopping early skips the remaining queries. Each range over the
// returned sequence starts a fresh scan. On error the sequence yields the
// error once and stops.
func (r *Registry) List(ctx context.Context) iter.Seq2[store.Record, error] {
	return func(yield func(store.Record, error) bool) {
		after := int64(-1)
		for {
			page, err := r.fs.FavoritesAfter(ctx, r.table, after, r.pageSize)
			if err != nil {
				yield(store.Record{}, err)
				return
			}
			for _, rec := range page {
				if !yield(rec, nil) {
					return
				}
			}
			if len(page) < r.pageSize {
				return
			}
			after = page[len(page)-1].Position
		}
	}
}

// Collect drains List into a slice.
func (r *Registry) Collect(ctx context.Context) ([]store.Record, error) {
	var out []store.Record
	for rec, err := range r.List(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
