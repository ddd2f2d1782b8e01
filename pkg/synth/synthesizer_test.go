package synth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/tarsy/pkg/masking"
	"github.com/codeready-toolchain/tarsy/pkg/resumelog"
	"github.com/codeready-toolchain/tarsy/pkg/tokencount"
	"github.com/codeready-toolchain/tarsy/pkg/transcript"
)

type stubSummarizer struct {
	content string
	err     error
	calls   int
}

func (s *stubSummarizer) Summarize(_ context.Context, _ resumelog.SectionName, _ int, _, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.content, nil
}

func defaultAllocation() Allocation {
	alloc := make(Allocation, len(Sections))
	for _, spec := range Sections {
		alloc[spec.Name] = spec.DefaultTokens
	}
	return alloc
}

func TestSynthesize_ProducesAllSectionsInOrder(t *testing.T) {
	summarizer := &stubSummarizer{content: "some section content"}
	synthesizer := New(summarizer, masking.NewScrubber(), tokencount.Default())

	log, err := synthesizer.Synthesize(context.Background(), Request{
		SessionID:        "sess-1",
		TokenBudgetTotal: 200000,
		MaxTotalTokens:   10000,
		Trigger:          resumelog.TriggerManualPause,
		Allocation:       defaultAllocation(),
		State:            transcript.SessionState{},
	})
	require.NoError(t, err)
	require.Len(t, log.Sections, len(resumelog.SectionOrder))
	for i, s := range log.Sections {
		assert.Equal(t, resumelog.SectionOrder[i], s.Name)
	}
	assert.NotEmpty(t, log.Checksum)
}

func TestSynthesize_RejectsInvalidAllocation(t *testing.T) {
	summarizer := &stubSummarizer{content: "x"}
	synthesizer := New(summarizer, nil, tokencount.Default())

	alloc := defaultAllocation()
	alloc[resumelog.SectionContextMetrics] = 50 // below minimum

	_, err := synthesizer.Synthesize(context.Background(), Request{
		MaxTotalTokens: 10000,
		Allocation:     alloc,
	})
	assert.ErrorIs(t, err, resumelog.ErrInvalidConfig)
}

func TestSynthesize_PermanentSummarizerErrorSubstitutesStub(t *testing.T) {
	summarizer := &stubSummarizer{err: &SummarizerError{Kind: Permanent, Reason: "boom"}}
	synthesizer := New(summarizer, nil, tokencount.Default())

	log, err := synthesizer.Synthesize(context.Background(), Request{
		MaxTotalTokens: 10000,
		Allocation:     defaultAllocation(),
	})
	require.NoError(t, err)
	// One call per non-deterministic section, no retry for permanent errors.
	// ContextMetrics is rendered directly and never calls the summarizer.
	assert.Equal(t, len(Sections)-1, summarizer.calls)
	assert.Contains(t, log.Sections[1].Content, "[section unavailable:")
}

func TestSynthesize_ContextMetricsIsDeterministicAndNeverStubbed(t *testing.T) {
	summarizer := &stubSummarizer{err: &SummarizerError{Kind: Permanent, Reason: "boom"}}
	synthesizer := New(summarizer, nil, tokencount.Default())

	log, err := synthesizer.Synthesize(context.Background(), Request{
		SessionID:          "sess-1",
		ParentSessionID:    "sess-0",
		TokenBudgetTotal:   200000,
		TokensAtGeneration: 50000,
		OccupancyAtFire:    0.25,
		Trigger:            resumelog.TriggerManualPause,
		MaxTotalTokens:     10000,
		Allocation:         defaultAllocation(),
	})
	require.NoError(t, err)

	metrics := log.Sections[0]
	assert.Equal(t, resumelog.SectionContextMetrics, metrics.Name)
	assert.NotContains(t, metrics.Content, "[section unavailable:", "ContextMetrics is deterministic and must never be stubbed by a summarizer failure")
	assert.Contains(t, metrics.Content, "sess-1")
	assert.Contains(t, metrics.Content, "sess-0")
	assert.Contains(t, metrics.Content, "25.00%")
	assert.Equal(t, 0, summarizer.calls, "ContextMetrics must never be delegated to the Summarizer")
}

func TestSynthesize_ChecksumRoundTrips(t *testing.T) {
	summarizer := &stubSummarizer{content: "stable content"}
	synthesizer := New(summarizer, nil, tokencount.Default())

	log, err := synthesizer.Synthesize(context.Background(), Request{
		MaxTotalTokens: 10000,
		Allocation:     defaultAllocation(),
	})
	require.NoError(t, err)
	assert.Equal(t, log.Checksum, log.ComputeChecksum())
}

func TestTruncateToBudget_FitsExactly(t *testing.T) {
	counter := tokencount.Default()
	long := ""
	for i := 0; i < 500; i++ {
		long += "word "
	}
	truncated := truncateToBudget(counter, long, 10)
	assert.LessOrEqual(t, counter.Count(truncated), 10)
}
