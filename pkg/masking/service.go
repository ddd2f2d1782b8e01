package masking

import "log/slog"

// Scrubber applies secret masking to CriticalContext section content
// before it is counted and checksummed. Created once per engine instance;
// thread-safe and stateless aside from compiled patterns, matching the
// teacher's MaskingService singleton shape.
type Scrubber struct {
	patterns    []*CompiledPattern
	codeMaskers []Masker
}

// NewScrubber builds a Scrubber with every built-in pattern and code
// masker registered and eagerly compiled.
func NewScrubber() *Scrubber {
	s := &Scrubber{
		patterns:    compileBuiltinPatterns(),
		codeMaskers: []Masker{&KubernetesSecretMasker{}},
	}
	slog.Info("masking scrubber initialized", "patterns", len(s.patterns), "code_maskers", len(s.codeMaskers))
	return s
}

// ScrubCriticalContext masks secret-shaped content. On masking failure it
// fails closed, returning a redaction notice rather than risking an
// unmasked leak — CriticalContext is explicitly required to be
// credentials-safe, so unlike the teacher's alert-payload masking (which
// fails open), there is no acceptable "continue unmasked" path here.
func (s *Scrubber) ScrubCriticalContext(content string) string {
	if content == "" {
		return content
	}

	masked, err := s.apply(content)
	if err != nil {
		slog.Error("critical context masking failed, redacting section (fail-closed)", "error", err)
		return "[REDACTED: data masking failure — critical context could not be safely processed]"
	}
	return masked
}

// apply runs code-based maskers (structural, more specific) followed by
// the regex pattern sweep (general).
func (s *Scrubber) apply(content string) (string, error) {
	masked := content

	for _, m := range s.codeMaskers {
		if m.AppliesTo(masked) {
			masked = m.Mask(masked)
		}
	}

	for _, p := range s.patterns {
		masked = p.Regex.ReplaceAllString(masked, p.Replacement)
	}

	return masked, nil
}
