// Package ledger tracks monotonic token consumption against a session's
// configured budget and derives the occupancy ratio the threshold engine
// observes.
package ledger

import (
	"log/slog"
	"math"
	"sync"

	"github.com/codeready-toolchain/tarsy/pkg/resumelog"
)

// Snapshot is a consistent point-in-time read of the ledger's counters.
type Snapshot struct {
	Used       uint64
	Rehydrated uint64
	Total      uint64
	Occupancy  float64 // raw ratio, for threshold comparisons
}

// Ledger is a single-writer, multi-reader token accounting counter for one
// session. Unlike the teacher's BudgetState (which is persisted to disk
// between calls), the ledger is purely in-memory: persistence of the
// session's resume log is the Store's job, not the Ledger's.
type Ledger struct {
	mu          sync.RWMutex
	usedTokens  uint64
	rehydrated  uint64
	totalBudget uint64
	preloaded   bool
	usedAny     bool
	log         *slog.Logger
}

// New creates a Ledger for the given total token budget.
func New(totalBudget uint32, sessionID resumelog.SessionId) *Ledger {
	return &Ledger{
		totalBudget: uint64(totalBudget),
		log:         slog.With("component", "ledger", "session_id", string(sessionID)),
	}
}

// RecordUsage atomically adds input_tokens+output_tokens to used_tokens
// and returns the new raw occupancy ratio. Fails with InvalidInput if
// either argument is negative; never fails otherwise.
func (l *Ledger) RecordUsage(inputTokens, outputTokens int64) (float64, error) {
	if inputTokens < 0 || outputTokens < 0 {
		return 0, resumelog.NewInvalidInput("tokens", "input_tokens and output_tokens must be non-negative")
	}

	l.mu.Lock()
	l.usedTokens += uint64(inputTokens) + uint64(outputTokens)
	l.usedAny = true
	occ := l.occupancyLocked()
	l.mu.Unlock()

	l.log.Debug("usage recorded", "input_tokens", inputTokens, "output_tokens", outputTokens, "occupancy", occ)
	return occ, nil
}

// Preload is a one-shot call at session init that seeds rehydrated_tokens
// from a loaded resume log. Fails with AlreadyInitialized if called after
// any RecordUsage.
func (l *Ledger) Preload(rehydratedTokens uint32) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.preloaded || l.usedAny {
		return &resumelog.Error{Sentinel: resumelog.ErrAlreadyInitialized, Reason: "preload called after usage was recorded or preload already ran"}
	}
	l.rehydrated = uint64(rehydratedTokens)
	l.preloaded = true
	l.log.Info("ledger preloaded", "rehydrated_tokens", rehydratedTokens)
	return nil
}

// Snapshot returns a consistent read of the ledger's counters.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Snapshot{
		Used:       l.usedTokens,
		Rehydrated: l.rehydrated,
		Total:      l.totalBudget,
		Occupancy:  l.occupancyLocked(),
	}
}

// occupancyLocked computes (used+rehydrated)/total clamped to [0, 1+epsilon].
// Callers must hold l.mu (read or write).
func (l *Ledger) occupancyLocked() float64 {
	if l.totalBudget == 0 {
		return 1.0
	}
	occ := float64(l.usedTokens+l.rehydrated) / float64(l.totalBudget)
	if occ < 0 {
		return 0
	}
	return occ
}

// RoundedOccupancy rounds a raw occupancy ratio half-to-even to 4 decimal
// places, for reporting only. Threshold comparisons must always use the
// raw ratio from Snapshot, never this rounded value.
func RoundedOccupancy(raw float64) float64 {
	const scale = 10000.0
	return math.RoundToEven(raw*scale) / scale
}
