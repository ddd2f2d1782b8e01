package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/codeready-toolchain/tarsy/pkg/resumelog"
)

// HTTPSummarizer is the default Summarizer implementation: it posts a
// section-summarization request to a host-provided HTTP endpoint and
// decodes the response. Grounded on the teacher's pkg/llm.Client's
// env-configured-client construction style (reads connection details from
// environment variables with sane fallbacks), but speaks plain
// JSON-over-HTTP rather than gRPC+protobuf, since the engine's summarizer
// contract (spec.md §6) is a single synchronous call, not a streaming
// session — see DESIGN.md for why grpc/protobuf are dropped.
type HTTPSummarizer struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSummarizer builds a summarizer posting to endpoint. If endpoint
// is empty, it falls back to the CLAUDE_MPM_SUMMARIZER_URL environment
// variable, matching the teacher's GEMINI_* env-var fallback pattern in
// pkg/llm/client.go.
func NewHTTPSummarizer(endpoint string, timeout time.Duration) *HTTPSummarizer {
	if endpoint == "" {
		endpoint = os.Getenv("CLAUDE_MPM_SUMMARIZER_URL")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSummarizer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type summarizeRequest struct {
	Section          resumelog.SectionName `json:"section"`
	TargetTokens     int                   `json:"target_tokens"`
	TranscriptSlice  string                `json:"transcript_slice"`
	PriorContext     string                `json:"prior_context,omitempty"`
}

type summarizeResponse struct {
	Content      string `json:"content"`
	Error        string `json:"error,omitempty"`
	RateLimited  bool   `json:"rate_limited,omitempty"`
}

// Summarize implements Summarizer.
func (s *HTTPSummarizer) Summarize(ctx context.Context, section resumelog.SectionName, targetTokens int, transcriptSlice, priorContext string) (string, error) {
	if s.endpoint == "" {
		return "", &SummarizerError{Kind: Permanent, Reason: "no summarizer endpoint configured"}
	}

	body, err := json.Marshal(summarizeRequest{
		Section:         section,
		TargetTokens:    targetTokens,
		TranscriptSlice: transcriptSlice,
		PriorContext:    priorContext,
	})
	if err != nil {
		return "", &SummarizerError{Kind: Permanent, Reason: fmt.Sprintf("encoding request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &SummarizerError{Kind: Permanent, Reason: fmt.Sprintf("building request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", &SummarizerError{Kind: Transient, Reason: "request cancelled or timed out"}
		}
		return "", &SummarizerError{Kind: Transient, Reason: fmt.Sprintf("request failed: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &SummarizerError{Kind: Transient, Reason: fmt.Sprintf("reading response: %v", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &SummarizerError{Kind: Transient, Reason: "rate limited"}
	}
	if resp.StatusCode >= 500 {
		return "", &SummarizerError{Kind: Transient, Reason: fmt.Sprintf("summarizer returned %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		return "", &SummarizerError{Kind: Permanent, Reason: fmt.Sprintf("summarizer returned %d", resp.StatusCode)}
	}

	var out summarizeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &SummarizerError{Kind: Permanent, Reason: fmt.Sprintf("decoding response: %v", err)}
	}
	if out.RateLimited {
		return "", &SummarizerError{Kind: Transient, Reason: "rate limited"}
	}
	if out.Error != "" {
		return "", &SummarizerError{Kind: Permanent, Reason: out.Error}
	}

	return out.Content, nil
}
