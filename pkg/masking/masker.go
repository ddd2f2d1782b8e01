// Package masking scrubs secrets out of text before it is written into a
// resume log's CriticalContext section, which spec.md requires to hold
// only "credentials-safe state required to resume." Grounded on the
// teacher's pkg/masking (regex pattern groups + code-based maskers,
// fail-closed on error) but rewired from "per-MCP-server tool result
// masking" to "single CriticalContext scrubbing pass with no registry
// dependency."
package masking

// Masker is the interface for code-based maskers that need structural
// awareness beyond regex pattern matching.
type Masker interface {
	// Name returns the unique identifier for this masker.
	Name() string

	// AppliesTo performs a lightweight check on whether this masker
	// should process the data. Should be fast (string contains, not parsing).
	AppliesTo(data string) bool

	// Mask applies masking logic and returns the masked result.
	// Must be defensive: return original data on parse/processing errors.
	Mask(data string) string
}
