package synth

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/codeready-toolchain/tarsy/pkg/masking"
	"github.com/codeready-toolchain/tarsy/pkg/resumelog"
	"github.com/codeready-toolchain/tarsy/pkg/tokencount"
	"github.com/codeready-toolchain/tarsy/pkg/transcript"
	"github.com/codeready-toolchain/tarsy/pkg/version"
)

// retryBase, retryFactor and retryJitter parameterize the exponential
// backoff applied to transient summarizer failures, per spec.md §4.4.
const (
	retryBase    = 500 * time.Millisecond
	retryFactor  = 2.0
	retryJitter  = 0.25
	maxAttempts  = 3 // initial attempt + 2 retries
)

// Synthesizer builds ResumeLog values section by section, calling a
// Summarizer for each and enforcing token budgets via truncation.
type Synthesizer struct {
	summarizer Summarizer
	scrubber   *masking.Scrubber
	counter    *tokencount.Counter
	log        *slog.Logger
}

// New creates a Synthesizer. scrubber may be nil to disable CriticalContext
// masking (not recommended outside tests).
func New(summarizer Summarizer, scrubber *masking.Scrubber, counter *tokencount.Counter) *Synthesizer {
	if counter == nil {
		counter = tokencount.Default()
	}
	return &Synthesizer{
		summarizer: summarizer,
		scrubber:   scrubber,
		counter:    counter,
		log:        slog.With("component", "synthesizer"),
	}
}

// Allocation is a resolved set of per-section token budgets.
type Allocation map[resumelog.SectionName]uint32

// ValidateAllocation enforces spec.md §4.4 step 1: sum <= maxTotalTokens
// and each section >= 200 tokens.
func ValidateAllocation(alloc Allocation, maxTotalTokens uint32) error {
	var sum uint32
	for name, tokens := range alloc {
		if tokens < minSectionTokens {
			return fmt.Errorf("%w: section %s allocated %d tokens, minimum is %d", resumelog.ErrInvalidConfig, name, tokens, minSectionTokens)
		}
		sum += tokens
	}
	if sum > maxTotalTokens {
		return fmt.Errorf("%w: total section allocation %d exceeds max_tokens %d", resumelog.ErrInvalidConfig, sum, maxTotalTokens)
	}
	return nil
}

// Request carries everything Synthesize needs beyond the fixed section
// table: the session's transcript-derived state, the firing trigger, and
// per-section budgets.
type Request struct {
	SessionID          resumelog.SessionId
	ParentSessionID    resumelog.SessionId
	ProjectPath        string
	GitBranch          string
	TokenBudgetTotal   uint32
	TokensAtGeneration uint32
	OccupancyAtFire    float64
	Trigger            resumelog.TriggerKind
	State              transcript.SessionState
	Allocation         Allocation
	MaxTotalTokens     uint32
}

// Synthesize builds a ResumeLog per spec.md §4.4's five-step algorithm.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (resumelog.ResumeLog, error) {
	if err := ValidateAllocation(req.Allocation, req.MaxTotalTokens); err != nil {
		return resumelog.ResumeLog{}, err
	}

	transcriptText := transcript.Format(req.State.Events)
	sections := make([]resumelog.Section, 0, len(Sections))
	createdAt := time.Now().UTC()

	for _, spec := range Sections {
		budget := int(req.Allocation[spec.Name])
		if budget == 0 {
			budget = int(spec.DefaultTokens)
		}

		var content string
		if spec.Name == resumelog.SectionContextMetrics {
			content = renderContextMetrics(req, createdAt)
		} else {
			var err error
			content, err = s.synthesizeSection(ctx, spec.Name, budget, transcriptText, req)
			if err != nil {
				// InvalidAllocation already handled above; any other error here
				// means retries were exhausted on a Permanent classification
				// path we don't expect to reach (synthesizeSection always
				// substitutes a stub instead of returning an error). Defensive.
				return resumelog.ResumeLog{}, err
			}
		}

		if spec.Name == resumelog.SectionCriticalContext && s.scrubber != nil {
			content = s.scrubber.ScrubCriticalContext(content)
		}

		if count := s.counter.Count(content); count > budget {
			s.log.Warn("section overran budget after summarization, truncating", "section", spec.Name, "tokens", count, "budget", budget)
			content = truncateToBudget(s.counter, content, budget)
		}

		sections = append(sections, resumelog.Section{
			Name:       spec.Name,
			TokenCount: uint32(s.counter.Count(content)),
			Content:    content,
		})
	}

	logv := resumelog.ResumeLog{
		SchemaVersion:      resumelog.CurrentSchemaVersion,
		SessionID:          req.SessionID,
		ParentSessionID:    req.ParentSessionID,
		CreatedAt:          createdAt,
		ProjectPath:        req.ProjectPath,
		GitBranch:          req.GitBranch,
		TokenBudgetTotal:   req.TokenBudgetTotal,
		TokensAtGeneration: req.TokensAtGeneration,
		Trigger:            req.Trigger,
		Sections:           sections,
	}
	logv.Checksum = logv.ComputeChecksum()

	return logv, nil
}

// synthesizeSection calls the summarizer with retry/backoff for transient
// failures (up to maxAttempts total), substituting a stub on persistent
// failure, per spec.md §4.4/§7.
func (s *Synthesizer) synthesizeSection(ctx context.Context, name resumelog.SectionName, budget int, transcriptText string, req Request) (string, error) {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return stubFor(name, "cancelled before retry"), nil
			}
		}

		content, err := s.summarizer.Summarize(ctx, name, budget, transcriptText, req.State.MissionObjective)
		if err == nil {
			return content, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			s.log.Warn("summarizer returned a permanent error, substituting stub", "section", name, "error", err)
			return stubFor(name, err.Error()), nil
		}
		s.log.Warn("summarizer returned a transient error, will retry", "section", name, "attempt", attempt+1, "error", err)
	}

	s.log.Error("summarizer exhausted retries, substituting stub", "section", name, "error", lastErr)
	return stubFor(name, "retries exhausted"), nil
}

// renderContextMetrics builds the ContextMetrics section directly from
// Request fields, per spec.md §4.4: this section is deterministic from
// inputs and contains no free-form text, so it is never handed to the
// pluggable Summarizer.
func renderContextMetrics(req Request, createdAt time.Time) string {
	occupancyPct := req.OccupancyAtFire * 100
	return fmt.Sprintf(
		"session_id: %s\nparent_session_id: %s\ngenerated_at: %s\ntrigger: %s\noccupancy_at_fire: %.2f%%\ntokens_at_generation: %d\ntoken_budget_total: %d\nengine_version: %s",
		req.SessionID,
		req.ParentSessionID,
		createdAt.Format(time.RFC3339),
		req.Trigger,
		occupancyPct,
		req.TokensAtGeneration,
		req.TokenBudgetTotal,
		version.Full(),
	)
}

func stubFor(name resumelog.SectionName, reason string) string {
	return fmt.Sprintf("[section unavailable: %s]", reason)
}

// sleepBackoff waits base*factor^(attempt-1) with +/-25%% jitter, or
// returns ctx.Err() if the context is cancelled first.
func sleepBackoff(ctx context.Context, attempt int) error {
	d := retryBase
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * retryFactor)
	}
	jitterRange := float64(d) * retryJitter
	offset := (rand.Float64()*2 - 1) * jitterRange
	d = time.Duration(float64(d) + offset)
	if d < 0 {
		d = 0
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
