package waypoint

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jward/waypoint/internal/errs"
)

func TestWithRetry(t *testing.T) {
	t.Parallel()
	unavailable := errs.New(errs.StoreUnavailable, "get record", "busy")
	other := errors.New("syntax error")

	tests := []struct {
		name      string
		results   []error
		wantCalls int
		wantIs    error
	}{
		{"success", []error{nil}, 1, nil},
		{"other error", []error{other}, 1, other},
		{"not found", []error{errs.New(errs.NotFound, "get record", "gone")}, 1, errs.ErrNotFound},
		{"recovers", []error{unavailable, nil}, 2, nil},
		{"gives up", []error{unavailable, unavailable}, 2, errs.ErrStoreUnavailable},
		{"second failure differs", []error{unavailable, other}, 2, other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			calls := 0
			got, err := withRetry(context.Background(), time.Millisecond, zap.NewNop(), "op",
				func(ctx context.Context) (int, error) {
					err := tt.results[calls]
					calls++
					if err != nil {
						return 0, err
					}
					return 7, nil
				})
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantIs == nil {
				require.NoError(t, err)
				assert.Equal(t, 7, got)
				return
			}
			assert.ErrorIs(t, err, tt.wantIs)
		})
	}
}

func TestWithRetry_CancelDuringBackoff(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	start := time.Now()
	_, err := withRetry(ctx, time.Hour, zap.NewNop(), "op", func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, errs.New(errs.StoreUnavailable, "op", "busy")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), time.Minute)
}
