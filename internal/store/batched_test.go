package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/waypoint/internal/errs"
)

func TestBatch_InsertRecord_ReturnsFakeIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	batch := NewBatch()

	id1, err := batch.InsertRecord(ctx, Locations, Record{Name: "A"})
	require.NoError(t, err)
	assert.Negative(t, id1, "batched IDs should be negative")

	id2, err := batch.InsertRecord(ctx, Cafes, Record{Name: "B"})
	require.NoError(t, err)
	assert.Less(t, id2, id1)

	assert.Equal(t, 2, batch.Len())
}

func TestBatch_RejectsInvalidTable(t *testing.T) {
	t.Parallel()
	batch := NewBatch()
	_, err := batch.InsertRecord(context.Background(), Table(9), Record{Name: "A"})
	assert.ErrorIs(t, err, errs.ErrInvalidTable)
	assert.Zero(t, batch.Len())
}

func TestCommitBatch_MapsFakeIDsToPositions(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	insertTestRecord(t, s, Locations, "Existing", "", "")

	batch := NewBatch()
	a, err := batch.InsertRecord(ctx, Locations, Record{Name: "A"})
	require.NoError(t, err)
	require.NoError(t, batch.InsertRecordAt(ctx, Restaurants, Record{Position: 4, Name: "Diner"}))
	b, err := batch.InsertRecord(ctx, Restaurants, Record{Name: "After diner"})
	require.NoError(t, err)

	mapping, err := s.CommitBatch(ctx, batch)
	require.NoError(t, err)
	require.Len(t, mapping, 3)
	assert.Equal(t, int64(1), mapping[a])
	assert.Equal(t, int64(5), mapping[b], "implicit insert follows the explicit position")

	rec, err := s.GetRecord(ctx, Restaurants, 4)
	require.NoError(t, err)
	assert.Equal(t, "Diner", rec.Name)
}

func TestCommitBatch_AllOrNothing(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	batch := NewBatch()
	_, err := batch.InsertRecord(ctx, Locations, Record{Name: "A"})
	require.NoError(t, err)
	_, err = batch.InsertRecord(ctx, Locations, Record{Tel: "nameless"})
	require.NoError(t, err)

	_, err = s.CommitBatch(ctx, batch)
	require.Error(t, err)

	n, err := s.CountRecords(ctx, Locations)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Zero(t, nextPosition(t, s, Locations), "rolled back batch must not advance the sequence")
}

func TestCommitBatch_ExplicitPositionAlreadyIssued(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	insertTestRecord(t, s, Cafes, "A", "", "")
	insertTestRecord(t, s, Cafes, "B", "", "")

	batch := NewBatch()
	require.NoError(t, batch.InsertRecordAt(ctx, Cafes, Record{Position: 1, Name: "Clash"}))

	_, err := s.CommitBatch(ctx, batch)
	assert.ErrorIs(t, err, ErrPositionIssued)
}
