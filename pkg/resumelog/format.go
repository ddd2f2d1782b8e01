package resumelog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// headerFields returns the log's header key/value pairs. Keys are sorted
// lexicographically by CanonicalForm, matching spec.md §6's checksum
// definition ("header block with keys sorted lexicographically").
func (r ResumeLog) headerFields() map[string]string {
	fields := map[string]string{
		"created_at":           r.CreatedAt.UTC().Format(time.RFC3339),
		"git_branch":           r.GitBranch,
		"project_path":         r.ProjectPath,
		"schema_version":       fmt.Sprintf("%d", r.SchemaVersion),
		"session_id":           string(r.SessionID),
		"token_budget_total":   fmt.Sprintf("%d", r.TokenBudgetTotal),
		"tokens_at_generation": fmt.Sprintf("%d", r.TokensAtGeneration),
		"trigger":              string(r.Trigger),
	}
	if r.ParentSessionID != "" {
		fields["parent_session_id"] = string(r.ParentSessionID)
	}
	return fields
}

// CanonicalForm renders the header (keys sorted) and sections (fixed
// order, content trailing-whitespace stripped, \n\n separated) as the
// exact byte sequence the checksum is computed over.
func (r ResumeLog) CanonicalForm() []byte {
	var sb strings.Builder

	fields := r.headerFields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(fields[k])
		sb.WriteString("\n")
	}

	for i, s := range r.Sections {
		sb.WriteString("\n\n")
		sb.WriteString("## ")
		sb.WriteString(string(s.Name))
		sb.WriteString("\n")
		sb.WriteString(strings.TrimRight(s.Content, " \t\n\r"))
		_ = i
	}

	return []byte(sb.String())
}

// ComputeChecksum returns the hex SHA-256 of r's canonical form.
func (r ResumeLog) ComputeChecksum() string {
	sum := sha256.Sum256(r.CanonicalForm())
	return hex.EncodeToString(sum[:])
}

// Render produces the full on-disk Markdown file: YAML-like frontmatter
// delimited by "---" lines, one "## SectionName" block per section in
// fixed order, and a trailing checksum comment as the last non-whitespace
// line, per spec.md §6.
func (r ResumeLog) Render() string {
	var sb strings.Builder

	fields := r.headerFields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sb.WriteString("---\n")
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(fields[k])
		sb.WriteString("\n")
	}
	sb.WriteString("---\n\n")

	for i, s := range r.Sections {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("## ")
		sb.WriteString(string(s.Name))
		sb.WriteString("\n")
		sb.WriteString(strings.TrimRight(s.Content, " \t\n\r"))
	}

	sb.WriteString("\n\n<!-- checksum: ")
	sb.WriteString(r.Checksum)
	sb.WriteString(" -->\n")

	return sb.String()
}
