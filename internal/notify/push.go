package notify

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// RunEvery invokes fn on the given interval until ctx is cancelled. It
// blocks; callers run it on its own goroutine.
func RunEvery(ctx context.Context, clk clockwork.Clock, interval time.Duration, fn func()) {
	ticker := clk.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			fn()
		}
	}
}
