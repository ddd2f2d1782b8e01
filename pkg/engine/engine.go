// Package engine is the composition root that wires the Config Resolver,
// Log Store, Log Synthesizer, Token Ledger, Threshold Engine, and Trigger
// Dispatcher into a single per-session object, and runs the Session
// Rehydrator at construction time. Grounded on the teacher's
// pkg/config.Config umbrella-struct style for wiring shape and
// cmd/tarsy/main.go for startup-sequence ordering (load config, run
// startup cleanup, then begin serving).
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codeready-toolchain/tarsy/pkg/config"
	"github.com/codeready-toolchain/tarsy/pkg/ledger"
	"github.com/codeready-toolchain/tarsy/pkg/logstore"
	"github.com/codeready-toolchain/tarsy/pkg/masking"
	"github.com/codeready-toolchain/tarsy/pkg/rehydrate"
	"github.com/codeready-toolchain/tarsy/pkg/resumelog"
	"github.com/codeready-toolchain/tarsy/pkg/synth"
	"github.com/codeready-toolchain/tarsy/pkg/threshold"
	"github.com/codeready-toolchain/tarsy/pkg/tokencount"
	"github.com/codeready-toolchain/tarsy/pkg/transcript"
	"github.com/codeready-toolchain/tarsy/pkg/trigger"
)

// TranscriptSource supplies the current session's transcript-derived
// state at generation time. The engine never reads a transcript store
// directly; the caller (the CLI or an embedding host process) owns it.
type TranscriptSource interface {
	SessionState() transcript.SessionState
}

// Engine is the per-session facade over every resume-log component.
type Engine struct {
	cfg         *config.Config
	sessionID   resumelog.SessionId
	parentID    resumelog.SessionId
	store       *logstore.Store
	synthesizer *synth.Synthesizer
	ledger      *ledger.Ledger
	threshold   *threshold.Engine
	dispatcher  *trigger.Dispatcher
	retention   *logstore.RetentionRunner
	writerLock  *logstore.Lock
	transcript  TranscriptSource
	log         *slog.Logger

	lastLogPath string
	lastLog     resumelog.ResumeLog
}

// Status is a point-in-time snapshot for the CLI's "status" command.
type Status struct {
	Enabled     bool
	Occupancy   float64
	Level       resumelog.ThresholdLevel
	LastLogPath string
}

// New constructs an Engine, running the Session Rehydrator's bootstrap
// sequence as part of construction (retention enforcement, then optional
// auto-load and ledger preload). sessionID is this process's own session;
// parentID is empty unless a resume log was found and loaded, in which
// case it becomes that log's session ID.
func New(ctx context.Context, cfg *config.Config, sessionID resumelog.SessionId, source TranscriptSource, summarizer synth.Summarizer) (*Engine, error) {
	if !cfg.Enabled || !cfg.ResumeLogs.Enabled {
		return nil, resumelog.ErrDisabled
	}
	if err := cfg.ResolvedBudget().Validate(); err != nil {
		return nil, err
	}

	// Claim the storage directory for this process before touching it, so
	// a second engine instance pointed at the same directory fails fast
	// with ErrConcurrentWriter rather than racing this one's writes
	// (spec.md §5/§7).
	writerLock, err := logstore.AcquireLock(cfg.ResumeLogs.StorageDir)
	if err != nil {
		return nil, err
	}

	store := logstore.New(cfg.ResumeLogs.StorageDir)
	counter := tokencount.Default()
	synthesizer := synth.New(summarizer, masking.NewScrubber(), counter)
	led := ledger.New(cfg.BudgetTotal, sessionID)
	thresh := threshold.New(cfg.ResolvedBudget(), sessionID)

	e := &Engine{
		cfg:         cfg,
		sessionID:   sessionID,
		store:       store,
		synthesizer: synthesizer,
		ledger:      led,
		threshold:   thresh,
		writerLock:  writerLock,
		transcript:  source,
		log:         slog.With("component", "engine", "session_id", string(sessionID)),
	}
	e.dispatcher = trigger.New(cfg.ResumeLogs.Triggers, e, sessionID)

	keepCount := uint16(0)
	if cfg.ResumeLogs.Cleanup.AutoCleanup {
		keepCount = cfg.ResumeLogs.Cleanup.KeepCount
	}
	boot, err := rehydrate.New(store).Bootstrap(ctx, cfg.ResumeLogs.AutoLoad, keepCount)
	if err != nil {
		_ = writerLock.Release()
		return nil, err
	}

	if cfg.ResumeLogs.Cleanup.AutoCleanup {
		e.retention = logstore.NewRetentionRunner(store, cfg.ResumeLogs.Cleanup.KeepCount, cfg.ResumeLogs.Cleanup.Interval)
		e.retention.Start(context.Background())
	}
	if boot != nil {
		if err := led.Preload(boot.PreloadTokens); err != nil {
			e.log.Warn("failed to preload ledger from resume log", "error", err)
		} else {
			e.parentID = boot.Log.SessionID
			e.lastLogPath = boot.SourcePath
			if _, crossed := thresh.Observe(led.Snapshot().Occupancy); crossed {
				e.log.Info("preload crossed a threshold immediately", "occupancy", led.Snapshot().Occupancy)
			}
		}
	}

	return e, nil
}

// RecordUsage feeds new token consumption into the ledger and evaluates
// the threshold engine, firing a trigger through the dispatcher on a
// crossing.
func (e *Engine) RecordUsage(ctx context.Context, inputTokens, outputTokens int64) error {
	occ, err := e.ledger.RecordUsage(inputTokens, outputTokens)
	if err != nil {
		return err
	}

	level, crossed := e.threshold.Observe(occ)
	if !crossed {
		return nil
	}

	if !e.cfg.ResumeLogs.AutoGenerate {
		// auto_generate=false: only an explicit ManualPause may trigger
		// generation, per spec.md §4.7. The threshold still ratchets so
		// Status() reports the crossing, it just never fires the
		// dispatcher.
		e.log.Debug("threshold crossed but auto_generate is disabled, not firing", "level", level)
		return nil
	}

	kind := resumelog.TriggerThresholdWarning
	if level == resumelog.Critical || level == resumelog.Exhausted {
		kind = resumelog.TriggerThresholdCritical
	}

	e.dispatcher.Fire(ctx, resumelog.TriggerEvent{
		Kind:            kind,
		SessionID:       e.sessionID,
		OccupancyAtFire: occ,
		Level:           level,
	})
	return nil
}

// ManualPause fires an explicit pause trigger through the same dispatcher
// background-generation triggers go through, so a pause can never run
// concurrently with a threshold-triggered generation, then waits
// synchronously for it to finish via Dispatcher.FireAndWait so the CLI can
// report a definite success/failure exit code. If a generation is already
// in flight, the pause collapses into the dispatcher's single deferred
// slot instead of running immediately, and ErrGenerationBusy is returned.
func (e *Engine) ManualPause(ctx context.Context) (resumelog.ResumeLog, error) {
	snap := e.ledger.Snapshot()
	ev := resumelog.TriggerEvent{
		Kind:            resumelog.TriggerManualPause,
		SessionID:       e.sessionID,
		OccupancyAtFire: snap.Occupancy,
		Level:           e.threshold.CurrentLevel(),
	}

	decision, err := e.dispatcher.FireAndWait(ctx, ev)
	if err != nil {
		return resumelog.ResumeLog{}, err
	}
	if decision != trigger.Generate {
		return resumelog.ResumeLog{}, resumelog.ErrGenerationBusy
	}
	return e.lastLog, nil
}

// Generate implements trigger.Generator for dispatcher-driven (threshold,
// safety-override, and manual-pause) triggers.
func (e *Engine) Generate(ctx context.Context, ev resumelog.TriggerEvent) error {
	log, err := e.synthesizeFor(ctx, ev)
	if err != nil {
		return err
	}
	ref, err := e.store.Persist(ctx, log)
	if err != nil {
		return err
	}
	e.lastLogPath = ref.Path
	e.lastLog = log
	return nil
}

func (e *Engine) synthesizeFor(ctx context.Context, ev resumelog.TriggerEvent) (resumelog.ResumeLog, error) {
	snap := e.ledger.Snapshot()
	state := transcript.SessionState{}
	if e.transcript != nil {
		state = e.transcript.SessionState()
	}

	req := synth.Request{
		SessionID:          e.sessionID,
		ParentSessionID:    e.parentID,
		ProjectPath:        state.ProjectPath,
		GitBranch:          state.GitBranch,
		TokenBudgetTotal:   uint32(snap.Total),
		TokensAtGeneration: uint32(snap.Used + snap.Rehydrated),
		OccupancyAtFire:    ev.OccupancyAtFire,
		Trigger:            ev.Kind,
		State:              state,
		Allocation:         synth.Allocation(e.cfg.ResumeLogs.TokenAllocation),
		MaxTotalTokens:     e.cfg.ResumeLogs.MaxTokens,
	}

	log, err := e.synthesizer.Synthesize(ctx, req)
	if err != nil {
		return resumelog.ResumeLog{}, fmt.Errorf("synthesizing resume log: %w", err)
	}
	return log, nil
}

// Status returns a snapshot suitable for the CLI's "status" command.
func (e *Engine) Status() Status {
	snap := e.ledger.Snapshot()
	return Status{
		Enabled:     e.cfg.ResumeLogs.Enabled,
		Occupancy:   ledger.RoundedOccupancy(snap.Occupancy),
		Level:       e.threshold.CurrentLevel(),
		LastLogPath: e.lastLogPath,
	}
}

// Shutdown stops any in-flight background generation and the retention
// sweep loop, if running.
func (e *Engine) Shutdown() {
	e.dispatcher.Shutdown()
	if e.retention != nil {
		e.retention.Stop()
	}
	if e.writerLock != nil {
		if err := e.writerLock.Release(); err != nil {
			e.log.Warn("failed to release writer lock", "error", err)
		}
	}
}
