// Package threshold implements the one-way ratchet state machine over
// ledger occupancy: Nominal -> Caution -> Warning -> Critical -> Exhausted.
package threshold

import (
	"log/slog"
	"sync"

	"github.com/codeready-toolchain/tarsy/pkg/resumelog"
)

// Engine observes occupancy readings and reports level crossings exactly
// once per level per session, never downgrading. Grounded on the "never
// de-escalate" alert-level idiom used by the reference cost-budget
// tracker's burn-rate alerting, but restricted to the engine's own
// one-way level ratchet rather than a time-windowed alert throttle.
type Engine struct {
	mu     sync.Mutex
	level  resumelog.ThresholdLevel
	budget resumelog.Budget
	log    *slog.Logger
}

// New creates a threshold Engine for the given budget, starting at Nominal.
func New(budget resumelog.Budget, sessionID resumelog.SessionId) *Engine {
	return &Engine{
		level:  resumelog.Nominal,
		budget: budget,
		log:    slog.With("component", "threshold", "session_id", string(sessionID)),
	}
}

// CurrentLevel returns the highest level reached so far.
func (e *Engine) CurrentLevel() resumelog.ThresholdLevel {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.level
}

// Observe evaluates a new occupancy reading and returns the newly crossed
// level, if any. If multiple thresholds are crossed in one call (e.g. a
// large preload jump), the highest crossed level is returned; lower ones
// are still recorded as reached (the internal level is set to the
// highest) but are not separately reported.
func (e *Engine) Observe(occupancy float64) (resumelog.ThresholdLevel, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	target := levelFor(occupancy, e.budget)
	if target <= e.level {
		return resumelog.Nominal, false
	}

	previous := e.level
	e.level = target
	e.log.Info("threshold crossed", "from", previous.String(), "to", target.String(), "occupancy", occupancy)
	return target, true
}

// levelFor maps a raw occupancy ratio to the threshold level it satisfies,
// using inclusive boundaries (occupancy == critical crosses Critical).
func levelFor(occupancy float64, b resumelog.Budget) resumelog.ThresholdLevel {
	switch {
	case occupancy >= 1.0:
		return resumelog.Exhausted
	case occupancy >= float64(b.Critical):
		return resumelog.Critical
	case occupancy >= float64(b.Warning):
		return resumelog.Warning
	case occupancy >= float64(b.Caution):
		return resumelog.Caution
	default:
		return resumelog.Nominal
	}
}
