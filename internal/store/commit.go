package store

import (
	"context"
	"database/sql"
	"fmt"
)

// CommitBatch inserts all buffered records from a Batch within a single
// transaction, in the order they were buffered. Fake (negative) IDs are
// mapped to the real positions the records received; explicit inserts map
// to their own position. Nothing is written if any record fails.
func (s *Store) CommitBatch(ctx context.Context, batch *Batch) (map[int64]int64, error) {
	const op = "commit batch"
	batch.mu.Lock()
	entries := append([]batchEntry(nil), batch.entries...)
	batch.mu.Unlock()

	fakeToReal := make(map[int64]int64, len(entries))
	err := s.withTx(ctx, op, func(tx *sql.Tx) error {
		for _, e := range entries {
			if e.explicit {
				if err := insertRecordAtTx(ctx, tx, e.table, e.record); err != nil {
					return fmt.Errorf("%s %q: %w", e.table, e.record.Name, err)
				}
				fakeToReal[e.fakeID] = e.record.Position
				continue
			}
			pos, err := insertRecordTx(ctx, tx, e.table, e.record)
			if err != nil {
				return fmt.Errorf("%s %q: %w", e.table, e.record.Name, err)
			}
			fakeToReal[e.fakeID] = pos
		}
		return nil
	})
	if err != nil {
		return nil, s.storeErr(op, err)
	}
	return fakeToReal, nil
}
