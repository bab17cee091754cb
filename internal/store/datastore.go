package store

import "context"

// RecordWriter is the insert path used by fixture imports. Both Store
// (direct SQLite) and Batch (in-memory buffering committed in one
// transaction) implement it.
type RecordWriter interface {
	InsertRecord(ctx context.Context, t Table, rec Record) (int64, error)
	InsertRecordAt(ctx context.Context, t Table, rec Record) error
}

// RecordReader resolves positions and pages through a table.
type RecordReader interface {
	GetRecord(ctx context.Context, t Table, position int64) (Record, error)
	ListRecords(ctx context.Context, t Table, page Pagination) (PagedResult[Record], error)
	CountRecords(ctx context.Context, t Table) (int, error)
}

// FavoriteStore holds favorite membership for records.
type FavoriteStore interface {
	ToggleFavorite(ctx context.Context, t Table, position int64) (Toggle, error)
	FavoritesAfter(ctx context.Context, t Table, after int64, limit int) ([]Record, error)
	IsFavorite(ctx context.Context, t Table, position int64) (bool, error)
}

// RecordStore is the full data access surface used by the App.
type RecordStore interface {
	RecordReader
	RecordWriter
	FavoriteStore
	DeleteRecord(ctx context.Context, t Table, position int64) error
	DeleteRecords(ctx context.Context, t Table, positions []int64) (int, error)
	CommitBatch(ctx context.Context, batch *Batch) (map[int64]int64, error)
}

// Compile-time checks.
var (
	_ RecordStore  = (*Store)(nil)
	_ RecordWriter = (*Batch)(nil)
)
