// Package synth builds a structured ResumeLog honoring a per-section token
// budget, delegating content generation to an external Summarizer and
// enforcing caps via binary-search truncation. Grounded on the
// other_examples hector SummaryBufferStrategy's Summarizer interface and
// budget/threshold/target parameterization, and on the
// achetronic-adk-utils-go contextguard threshold strategy's
// retry/logging shape.
package synth

import (
	"context"
	"errors"

	"github.com/codeready-toolchain/tarsy/pkg/resumelog"
)

// SummarizerErrorKind distinguishes retryable from fatal summarizer
// failures, per spec.md §6's consumed interface contract.
type SummarizerErrorKind string

const (
	Transient SummarizerErrorKind = "transient"
	Permanent SummarizerErrorKind = "permanent"
)

// SummarizerError is returned by a Summarizer implementation when it
// cannot produce section content.
type SummarizerError struct {
	Kind   SummarizerErrorKind
	Reason string
}

func (e *SummarizerError) Error() string {
	return string(e.Kind) + ": " + e.Reason
}

// Is reports true for resumelog.ErrSummarizerError so callers can use
// errors.Is uniformly across the engine's error taxonomy.
func (e *SummarizerError) Is(target error) bool {
	return target == resumelog.ErrSummarizerError
}

// IsRetryable reports whether the engine should retry per its backoff
// policy. RateLimited errors are always treated as transient/retryable,
// matching spec.md §6.
func IsRetryable(err error) bool {
	var se *SummarizerError
	if errors.As(err, &se) {
		return se.Kind == Transient
	}
	return false
}

// Summarizer is the external collaborator the engine calls once per
// section. The engine treats a Transient SummarizerError as retryable per
// the backoff policy in Synthesizer.Synthesize, and a Permanent one as
// fatal to that section only (a stub is substituted).
type Summarizer interface {
	Summarize(ctx context.Context, section resumelog.SectionName, targetTokens int, transcriptSlice, priorContext string) (string, error)
}
