package logstore

import (
	"context"
	"log/slog"
	"time"
)

// RetentionRunner periodically enforces retention on a Store's directory.
// It exists for long-running host processes that never invoke the CLI's
// "pause" command and so would otherwise only prune at session bootstrap.
// Adapted from the teacher's pkg/cleanup.Service: same idempotent,
// run-once-then-tick loop and cancel/done-channel shutdown shape, reused
// here for filesystem retention instead of soft-deleting database rows.
type RetentionRunner struct {
	store     *Store
	keepCount uint16
	interval  time.Duration
	log       *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewRetentionRunner creates a runner that keeps at most keepCount logs,
// sweeping every interval. keepCount == 0 disables the size limit but the
// runner still cleans up orphaned ".tmp" files each tick.
func NewRetentionRunner(store *Store, keepCount uint16, interval time.Duration) *RetentionRunner {
	return &RetentionRunner{
		store:     store,
		keepCount: keepCount,
		interval:  interval,
		log:       slog.With("component", "logstore.retention"),
	}
}

// Start launches the background sweep loop. Calling Start twice without an
// intervening Stop is a no-op.
func (r *RetentionRunner) Start(ctx context.Context) {
	if r.cancel != nil {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	go r.run(ctx)

	r.log.Info("retention runner started", "keep_count", r.keepCount, "interval", r.interval)
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (r *RetentionRunner) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.log.Info("retention runner stopped")
}

func (r *RetentionRunner) run(ctx context.Context) {
	defer close(r.done)

	r.sweep()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *RetentionRunner) sweep() {
	if err := r.store.EnforceRetention(r.keepCount); err != nil {
		r.log.Error("retention sweep failed", "error", err)
	}
}
