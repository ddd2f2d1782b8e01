// Package tokencount provides a single token-counting function shared by
// the ledger's test fixtures and the synthesizer's truncation algorithm,
// so both agree on what "a token" means.
package tokencount

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the encoding used across the engine. cl100k_base is
// the general-purpose encoding used by most current chat models; callers
// that need a model-specific encoding can construct their own Counter.
const DefaultEncoding = "cl100k_base"

// Counter counts tokens in a string using a cached tiktoken encoding.
// tiktoken.GetEncoding downloads/caches BPE rank data on first use and is
// not safe to call concurrently from scratch, so Counter serializes lazy
// initialization behind a sync.Once.
type Counter struct {
	encoding string
	once     sync.Once
	enc      *tiktoken.Tiktoken
	initErr  error
}

// NewCounter returns a Counter for the given tiktoken encoding name.
func NewCounter(encoding string) *Counter {
	return &Counter{encoding: encoding}
}

// Default returns a Counter using DefaultEncoding.
func Default() *Counter {
	return NewCounter(DefaultEncoding)
}

func (c *Counter) init() {
	c.enc, c.initErr = tiktoken.GetEncoding(c.encoding)
}

// Count returns the number of tokens s encodes to. If the encoding fails
// to load (e.g. no network access to fetch BPE ranks in a sandboxed
// environment), Count falls back to a conservative length/4 approximation
// rather than failing synthesis outright.
func (c *Counter) Count(s string) int {
	c.once.Do(c.init)
	if c.initErr != nil || c.enc == nil {
		return fallbackCount(s)
	}
	return len(c.enc.Encode(s, nil, nil))
}

// fallbackCount approximates token count as roughly 4 characters per
// token, a widely used rule of thumb for English prose in cl100k_base.
func fallbackCount(s string) int {
	n := len(s) / 4
	if n == 0 && len(s) > 0 {
		n = 1
	}
	return n
}
