package waypoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jward/waypoint/internal/errs"
)

// withRetry runs fn and, if it fails with StoreUnavailable, runs it once
// more after backoff. A second StoreUnavailable is returned wrapped with op.
// Other errors are returned as is.
func withRetry[T any](ctx context.Context, backoff time.Duration, logger *zap.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	v, err := fn(ctx)
	if err == nil || !errors.Is(err, errs.ErrStoreUnavailable) {
		return v, err
	}
	logger.Warn("store unavailable, retrying",
		zap.String("op", op), zap.Int("attempt", 1), zap.Duration("backoff", backoff), zap.Error(err))

	timer := time.NewTimer(backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("%s: %w", op, ctx.Err())
	case <-timer.C:
	}

	v, err = fn(ctx)
	if err != nil && errors.Is(err, errs.ErrStoreUnavailable) {
		return v, fmt.Errorf("%s: still unavailable after retry: %w", op, err)
	}
	return v, err
}
