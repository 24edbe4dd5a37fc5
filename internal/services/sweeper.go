package services

import (
	"context"
	"time"
)

// DefaultSweepInterval is how often abandoned sessions are purged.
const DefaultSweepInterval = 10 * time.Minute

// StartSessionSweeper purges expired sessions once on start and then every
// interval until ctx is done. The returned channel is closed when it stops.
func StartSessionSweeper(ctx context.Context, sessions *SessionManager, interval time.Duration) <-chan struct{} {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		sweep := func() {
			sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			n, err := sessions.SweepExpired(sweepCtx)
			if err != nil {
				sessions.log.Warn(ctx, "session sweep failed", "error", err)
				return
			}
			if n > 0 {
				sessions.log.Info(ctx, "expired sessions removed", "count", n)
			}
		}

		sweep()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweep()
			}
		}
	}()

	return done
}
