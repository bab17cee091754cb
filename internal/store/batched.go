package store

import (
	"context"
	"sync"
)

// Batch buffers record inserts in memory using fake (negative) positions.
// It implements RecordWriter so the fixture importer can write to it
// without knowing whether it is hitting SQLite or an in-memory buffer.
// CommitBatch writes the buffered rows in a single transaction.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
type Batch struct {
	mu      sync.Mutex
	entries []batchEntry

	nextFakeID int64 // starts at -1, decrements
}

type batchEntry struct {
	fakeID   int64
	table    Table
	record   Record
	explicit bool
}

// NewBatch creates an empty Batch.
func NewBatch() *Batch {
	return &Batch{nextFakeID: -1}
}

func (b *Batch) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

// InsertRecord buffers rec for t. The real position is assigned at commit;
// the returned fake ID keys the mapping CommitBatch returns.
func (b *Batch) InsertRecord(_ context.Context, t Table, rec Record) (int64, error) {
	if _, err := t.statements(); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	b.entries = append(b.entries, batchEntry{fakeID: fakeID, table: t, record: rec})
	return fakeID, nil
}

// InsertRecordAt buffers rec for t at its explicit position.
func (b *Batch) InsertRecordAt(_ context.Context, t Table, rec Record) error {
	if _, err := t.statements(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, batchEntry{fakeID: b.allocFakeID(), table: t, record: rec, explicit: true})
	return nil
}

// Len returns the number of buffered records.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
