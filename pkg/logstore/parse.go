package logstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/codeready-toolchain/tarsy/pkg/resumelog"
)

// parseLog is the inverse of resumelog.ResumeLog.Render: it reads the
// frontmatter block, the "## SectionName" blocks, and the trailing
// checksum comment back into a ResumeLog. It is deliberately strict about
// the frontmatter delimiters and the checksum comment, since either being
// malformed is itself evidence of a corrupt log (spec.md §4.5/§8).
func parseLog(data string) (resumelog.ResumeLog, error) {
	const openDelim = "---\n"
	if !strings.HasPrefix(data, openDelim) {
		return resumelog.ResumeLog{}, fmt.Errorf("missing frontmatter opening delimiter")
	}
	rest := data[len(openDelim):]

	closeIdx := strings.Index(rest, "\n---\n")
	if closeIdx < 0 {
		return resumelog.ResumeLog{}, fmt.Errorf("missing frontmatter closing delimiter")
	}
	header := rest[:closeIdx]
	body := rest[closeIdx+len("\n---\n"):]
	body = strings.TrimPrefix(body, "\n")

	fields, err := parseHeader(header)
	if err != nil {
		return resumelog.ResumeLog{}, err
	}

	const checksumPrefix = "<!-- checksum: "
	ci := strings.LastIndex(body, checksumPrefix)
	if ci < 0 {
		return resumelog.ResumeLog{}, fmt.Errorf("missing trailing checksum comment")
	}
	sectionsBlock := strings.TrimRight(body[:ci], "\n \t")
	checksumTail := body[ci+len(checksumPrefix):]
	endIdx := strings.Index(checksumTail, " -->")
	if endIdx < 0 {
		return resumelog.ResumeLog{}, fmt.Errorf("malformed checksum comment")
	}
	checksum := checksumTail[:endIdx]

	sections, err := parseSections(sectionsBlock)
	if err != nil {
		return resumelog.ResumeLog{}, err
	}

	log, err := buildResumeLog(fields, sections)
	if err != nil {
		return resumelog.ResumeLog{}, err
	}
	log.Checksum = checksum
	return log, nil
}

func parseHeader(header string) (map[string]string, error) {
	fields := make(map[string]string)
	for _, line := range strings.Split(header, "\n") {
		if line == "" {
			continue
		}
		idx := strings.Index(line, ": ")
		if idx < 0 {
			return nil, fmt.Errorf("malformed header line: %q", line)
		}
		fields[line[:idx]] = line[idx+2:]
	}
	return fields, nil
}

func parseSections(block string) ([]resumelog.Section, error) {
	if strings.TrimSpace(block) == "" {
		return nil, nil
	}
	parts := strings.Split(block, "\n\n## ")
	var sections []resumelog.Section
	for i, part := range parts {
		chunk := part
		if i == 0 {
			chunk = strings.TrimPrefix(chunk, "## ")
		}
		nl := strings.Index(chunk, "\n")
		if nl < 0 {
			return nil, fmt.Errorf("malformed section header in chunk %q", chunk)
		}
		name := resumelog.SectionName(chunk[:nl])
		content := strings.TrimRight(chunk[nl+1:], " \t\n\r")
		sections = append(sections, resumelog.Section{Name: name, Content: content})
	}
	return sections, nil
}

func buildResumeLog(fields map[string]string, sections []resumelog.Section) (resumelog.ResumeLog, error) {
	createdAt, err := time.Parse(time.RFC3339, fields["created_at"])
	if err != nil {
		return resumelog.ResumeLog{}, fmt.Errorf("invalid created_at: %w", err)
	}
	schemaVersion, err := strconv.ParseUint(fields["schema_version"], 10, 16)
	if err != nil {
		return resumelog.ResumeLog{}, fmt.Errorf("invalid schema_version: %w", err)
	}
	budgetTotal, err := strconv.ParseUint(fields["token_budget_total"], 10, 32)
	if err != nil {
		return resumelog.ResumeLog{}, fmt.Errorf("invalid token_budget_total: %w", err)
	}
	tokensAtGen, err := strconv.ParseUint(fields["tokens_at_generation"], 10, 32)
	if err != nil {
		return resumelog.ResumeLog{}, fmt.Errorf("invalid tokens_at_generation: %w", err)
	}

	return resumelog.ResumeLog{
		SchemaVersion:      uint16(schemaVersion),
		SessionID:          resumelog.SessionId(fields["session_id"]),
		ParentSessionID:    resumelog.SessionId(fields["parent_session_id"]),
		CreatedAt:          createdAt,
		ProjectPath:        fields["project_path"],
		GitBranch:          fields["git_branch"],
		TokenBudgetTotal:   uint32(budgetTotal),
		TokensAtGeneration: uint32(tokensAtGen),
		Trigger:            resumelog.TriggerKind(fields["trigger"]),
		Sections:           sections,
	}, nil
}
