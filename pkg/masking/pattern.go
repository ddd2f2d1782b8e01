package masking

import (
	"log/slog"
	"regexp"
)

// CompiledPattern holds a pre-compiled regex pattern with its replacement.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
}

// builtinPattern is the source-of-truth definition for one built-in
// secret-shaped pattern. Unlike the teacher's config.GetBuiltinConfig()
// .MaskingPatterns (YAML-configured per MCP server, with per-server custom
// patterns layered on top), this engine has exactly one scrubbing target —
// the CriticalContext section — so the pattern set is a fixed Go literal
// rather than something a project config file extends.
type builtinPattern struct {
	name        string
	pattern     string
	replacement string
}

// builtinPatterns covers the secret shapes most likely to appear in
// investigation transcripts and file excerpts: cloud provider keys,
// generic API tokens, bearer/basic auth, and private key blocks.
var builtinPatterns = []builtinPattern{
	{name: "aws_access_key", pattern: `AKIA[0-9A-Z]{16}`, replacement: "[REDACTED_AWS_ACCESS_KEY]"},
	{name: "generic_api_key", pattern: `(?i)(api[_-]?key|apikey)\s*[:=]\s*['"]?[A-Za-z0-9_\-]{16,}['"]?`, replacement: "[REDACTED_API_KEY]"},
	{name: "bearer_token", pattern: `(?i)bearer\s+[A-Za-z0-9._\-]{16,}`, replacement: "[REDACTED_BEARER_TOKEN]"},
	{name: "basic_auth_url", pattern: `://[^/\s:@]+:[^/\s:@]+@`, replacement: "://[REDACTED_CREDENTIALS]@"},
	{name: "private_key_block", pattern: `-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----`, replacement: "[REDACTED_PRIVATE_KEY]"},
	{name: "slack_token", pattern: `xox[baprs]-[A-Za-z0-9-]{10,}`, replacement: "[REDACTED_SLACK_TOKEN]"},
	{name: "github_token", pattern: `gh[pousr]_[A-Za-z0-9]{36,}`, replacement: "[REDACTED_GITHUB_TOKEN]"},
}

// compileBuiltinPatterns compiles every builtinPattern. Invalid patterns
// would be a programming error (they are Go literals, not user input) but
// are still logged and skipped defensively, matching the teacher's
// fail-soft compile behavior for user-supplied patterns.
func compileBuiltinPatterns() []*CompiledPattern {
	compiled := make([]*CompiledPattern, 0, len(builtinPatterns))
	for _, p := range builtinPatterns {
		re, err := regexp.Compile(p.pattern)
		if err != nil {
			slog.Error("failed to compile built-in masking pattern, skipping", "pattern", p.name, "error", err)
			continue
		}
		compiled = append(compiled, &CompiledPattern{Name: p.name, Regex: re, Replacement: p.replacement})
	}
	return compiled
}
