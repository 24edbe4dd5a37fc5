package store

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"

	"github.com/adoteiftm/adote-backend/internal/apperr"
)

// DefaultCallTimeout bounds each driver call an adapter makes.
const DefaultCallTimeout = 5 * time.Second

// callContext derives the deadline for one driver call. A zero d means
// DefaultCallTimeout.
func callContext(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultCallTimeout
	}
	return context.WithTimeout(ctx, d)
}

// wrapDriverErr annotates a driver error with op and marks connectivity
// failures, including a call that ran past its deadline, as
// apperr.ErrStoreUnavailable.
func wrapDriverErr(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if isUnavailable(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", op, apperr.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUnavailable(err error) bool {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}
	if errors.Is(err, mongo.ErrClientDisconnected) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var serverSel topology.ServerSelectionError
	if errors.As(err, &serverSel) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
