// Package rehydrate implements the bootstrap sequence that runs at the
// start of a new session: enforce retention, locate the most recent
// resume log, load it with a bounded number of corruption-fallback
// attempts, and report how many tokens to preload into the new session's
// ledger. Grounded on the teacher's cmd/tarsy/main.go startup sequence
// (load config, run startup cleanup, then start serving) adapted from a
// server-process warmup to a single-session bootstrap.
package rehydrate

import (
	"context"
	"log/slog"

	"github.com/codeready-toolchain/tarsy/pkg/logstore"
	"github.com/codeready-toolchain/tarsy/pkg/resumelog"
)

// maxCorruptionFallbacks bounds how many progressively-older logs we try
// before giving up and starting cold, per spec.md §4.6.
const maxCorruptionFallbacks = 3

// BootstrapContext is what a new session needs from the prior one.
type BootstrapContext struct {
	Log            resumelog.ResumeLog
	PreloadTokens  uint32
	SourcePath     string
}

// Bootstrapper runs the rehydration sequence for a single project's
// storage directory.
type Bootstrapper struct {
	store *logstore.Store
	log   *slog.Logger
}

// New creates a Bootstrapper backed by store.
func New(store *logstore.Store) *Bootstrapper {
	return &Bootstrapper{
		store: store,
		log:   slog.With("component", "rehydrate"),
	}
}

// Bootstrap runs retention enforcement, then (if autoLoad) attempts to
// load the latest valid log, falling back to progressively older logs up
// to maxCorruptionFallbacks times on corruption. It returns (nil, nil)
// when there is nothing to rehydrate from (disabled, no logs, or every
// candidate within the fallback window was corrupt) — this is not an
// error, per spec.md §4.6's "session starts cold" fallback behavior.
func (b *Bootstrapper) Bootstrap(ctx context.Context, autoLoad bool, keepCount uint16) (*BootstrapContext, error) {
	if err := b.store.EnforceRetention(keepCount); err != nil {
		b.log.Warn("retention enforcement failed during bootstrap", "error", err)
	}

	if !autoLoad {
		b.log.Info("auto_load disabled, starting cold")
		return nil, nil
	}

	refs, err := b.store.ListLatest(maxCorruptionFallbacks)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		b.log.Info("no resume logs found, starting cold")
		return nil, nil
	}

	for i, ref := range refs {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		log, err := b.store.Load(ref)
		if err != nil {
			b.log.Warn("discarding candidate resume log", "path", ref.Path, "attempt", i+1, "error", err)
			continue
		}

		b.log.Info("rehydrated from resume log", "path", ref.Path, "session_id", log.SessionID)
		return &BootstrapContext{
			Log:           log,
			PreloadTokens: log.TotalSectionTokens(),
			SourcePath:    ref.Path,
		}, nil
	}

	b.log.Warn("all candidate resume logs were corrupt, starting cold", "attempts", len(refs))
	return nil, nil
}
