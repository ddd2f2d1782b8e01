// Package trigger maps configured trigger kinds to resume-log generation
// requests, guaranteeing at most one concurrent generation per session
// with a single collapsing deferred slot. Grounded on the teacher's
// pkg/queue.WorkerPool single-flight-per-session cancellation registry
// (map[string]context.CancelFunc guarded by sync.RWMutex, sync.Once
// shutdown) adapted from per-worker-session scope to per-engine-session
// generation scope.
package trigger

import (
	"context"
	"log/slog"
	"sync"

	"github.com/codeready-toolchain/tarsy/pkg/resumelog"
)

// Decision is the dispatcher's response to a fired trigger.
type Decision string

const (
	Generate Decision = "generate"
	Skip     Decision = "skip"
	Defer    Decision = "defer"
)

// Generator performs the actual synthesis + persistence for a trigger.
// Implemented by the engine composition root, which wires the synthesizer
// and store together; the dispatcher itself never imports either.
type Generator interface {
	Generate(ctx context.Context, ev resumelog.TriggerEvent) error
}

// Dispatcher is single-threaded cooperative in its own bookkeeping;
// generation work runs on a single background goroutine per session with
// a cancellation token, matching the teacher's worker-pool model.
type Dispatcher struct {
	mu              sync.Mutex
	enabled         map[resumelog.TriggerKind]bool
	generating      bool
	coolingDownAt   resumelog.ThresholdLevel
	hasCooldown     bool
	deferred        *resumelog.TriggerEvent
	cancelGenerate  context.CancelFunc
	wg              sync.WaitGroup
	shutdownOnce    sync.Once
	generator       Generator
	sessionID       resumelog.SessionId
	log             *slog.Logger
}

// New creates a Dispatcher with the given set of enabled trigger kinds.
func New(enabledTriggers []resumelog.TriggerKind, generator Generator, sessionID resumelog.SessionId) *Dispatcher {
	enabled := make(map[resumelog.TriggerKind]bool, len(enabledTriggers))
	for _, k := range enabledTriggers {
		enabled[k] = true
	}
	return &Dispatcher{
		enabled:   enabled,
		generator: generator,
		sessionID: sessionID,
		log:       slog.With("component", "dispatcher", "session_id", string(sessionID)),
	}
}

// isSafetyOverride reports whether ev bypasses the enabled-trigger-kinds
// set and per-level cooldown. Model-context-exceeded and max-tokens are
// safety overrides because a host that hits either has no choice but to
// pause. ManualPause is an explicit user action, not a configured
// automatic trigger, and must always be able to run the pause command
// succeed deterministically (spec.md §6), so it is treated the same way.
func isSafetyOverride(kind resumelog.TriggerKind) bool {
	return kind == resumelog.TriggerModelContextExceeded ||
		kind == resumelog.TriggerMaxTokens ||
		kind == resumelog.TriggerManualPause
}

// Fire resolves a trigger event into a Decision and, for Generate,
// launches (or collapses into) a background generation task.
func (d *Dispatcher) Fire(ctx context.Context, ev resumelog.TriggerEvent) Decision {
	d.mu.Lock()

	safetyOverride := isSafetyOverride(ev.Kind)
	if !safetyOverride && !d.enabled[ev.Kind] {
		d.mu.Unlock()
		d.log.Debug("trigger not enabled, skipping", "kind", ev.Kind)
		return Skip
	}

	if d.generating {
		// Collapse into the single deferred slot.
		d.deferred = &ev
		d.mu.Unlock()
		d.log.Debug("generation in progress, deferring trigger", "kind", ev.Kind)
		return Defer
	}

	if !safetyOverride && d.hasCooldown && d.coolingDownAt == ev.Level {
		d.mu.Unlock()
		d.log.Debug("level on cooldown, skipping trigger", "kind", ev.Kind, "level", ev.Level)
		return Skip
	}

	d.startGenerationLocked(ctx, ev)
	d.mu.Unlock()
	return Generate
}

// FireAndWait behaves like Fire, but when the decision is Generate it runs
// the generation on the calling goroutine and blocks until it completes,
// returning the Generator's error directly. This gives a synchronous
// caller (the CLI's pause command, via Engine.ManualPause) a definite
// result instead of having to poll, while still going through the same
// single-flight bookkeeping as every other trigger: a pause fired while a
// background generation is already running collapses into the deferred
// slot exactly as Fire would, and is reported back as Defer with no error.
func (d *Dispatcher) FireAndWait(ctx context.Context, ev resumelog.TriggerEvent) (Decision, error) {
	d.mu.Lock()

	safetyOverride := isSafetyOverride(ev.Kind)
	if !safetyOverride && !d.enabled[ev.Kind] {
		d.mu.Unlock()
		d.log.Debug("trigger not enabled, skipping", "kind", ev.Kind)
		return Skip, nil
	}

	if d.generating {
		d.deferred = &ev
		d.mu.Unlock()
		d.log.Debug("generation in progress, deferring trigger", "kind", ev.Kind)
		return Defer, nil
	}

	if !safetyOverride && d.hasCooldown && d.coolingDownAt == ev.Level {
		d.mu.Unlock()
		d.log.Debug("level on cooldown, skipping trigger", "kind", ev.Kind, "level", ev.Level)
		return Skip, nil
	}

	genCtx, cancel := context.WithCancel(ctx)
	d.generating = true
	d.cancelGenerate = cancel
	d.mu.Unlock()

	err := d.generator.Generate(genCtx, ev)

	d.mu.Lock()
	d.generating = false
	d.cancelGenerate = nil
	if ev.Kind == resumelog.TriggerThresholdWarning || ev.Kind == resumelog.TriggerThresholdCritical {
		d.coolingDownAt = ev.Level
		d.hasCooldown = true
	}
	next := d.deferred
	d.deferred = nil
	if next != nil && err == nil {
		d.startGenerationLocked(ctx, *next)
	}
	d.mu.Unlock()

	if err != nil {
		d.log.Error("generation failed", "kind", ev.Kind, "error", err)
		return Generate, err
	}
	return Generate, nil
}

// startGenerationLocked must be called with d.mu held. It launches the
// background generation goroutine and, on completion, resolves any
// collapsed deferred trigger.
func (d *Dispatcher) startGenerationLocked(ctx context.Context, ev resumelog.TriggerEvent) {
	genCtx, cancel := context.WithCancel(ctx)
	d.generating = true
	d.cancelGenerate = cancel
	d.wg.Add(1)

	go func() {
		defer d.wg.Done()
		err := d.generator.Generate(genCtx, ev)
		if err != nil {
			d.log.Error("generation failed", "kind", ev.Kind, "error", err)
		}

		d.mu.Lock()
		d.generating = false
		d.cancelGenerate = nil
		if ev.Kind == resumelog.TriggerThresholdWarning || ev.Kind == resumelog.TriggerThresholdCritical {
			d.coolingDownAt = ev.Level
			d.hasCooldown = true
		}
		next := d.deferred
		d.deferred = nil
		if next != nil && err == nil {
			d.startGenerationLocked(ctx, *next)
		}
		d.mu.Unlock()
	}()
}

// Shutdown cancels any in-flight generation and waits for it to observe
// cancellation before returning, matching the teacher's
// stopOnce.Do(close(stopCh)); wg.Wait() shutdown idiom.
func (d *Dispatcher) Shutdown() {
	d.shutdownOnce.Do(func() {
		d.mu.Lock()
		if d.cancelGenerate != nil {
			d.cancelGenerate()
		}
		d.mu.Unlock()
		d.wg.Wait()
		d.log.Info("dispatcher shut down")
	})
}
