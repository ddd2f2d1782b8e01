// Package transcript formats a session's recorded history into the text
// slices the synthesizer feeds to the summarizer for each resume log
// section. Grounded on the teacher's
// pkg/agent/context/investigation_formatter.go tool-call/summary
// deduplication idiom, with *ent.TimelineEvent replaced by a local,
// DB-free Event type.
package transcript

import (
	"fmt"
	"strings"
)

// EventType is the closed set of transcript event kinds the formatter
// understands, mirroring the teacher's timelineevent.EventType constants.
type EventType string

const (
	EventThinking    EventType = "thinking"
	EventResponse    EventType = "response"
	EventToolCall    EventType = "tool_call"
	EventToolSummary EventType = "tool_summary"
	EventDecision    EventType = "decision"
	EventFinalNote   EventType = "final_note"
)

// Event is one recorded step of a session, as reported by the host
// application (the engine never calls a model itself).
type Event struct {
	Type      EventType
	Content   string
	ToolName  string
	ServerName string
	Arguments string
}

// SessionState is the read-only view the synthesizer pulls context from:
// transcript excerpts, recent decisions, open tasks, working directory,
// git branch, and the parent log reference, matching spec.md §4.4's
// session_state contract.
type SessionState struct {
	Events          []Event
	MissionObjective string
	OpenTasks       []string
	ProjectPath     string
	GitBranch       string
	ParentLogPath   string
}

// Format renders events into a single text slice, deduplicating a tool
// call immediately followed by its summary the same way the teacher's
// formatTimelineEvents does: show the call header, but use the summary's
// content instead of the raw result.
func Format(events []Event) string {
	var sb strings.Builder
	for i := 0; i < len(events); i++ {
		e := events[i]
		switch e.Type {
		case EventThinking:
			sb.WriteString("**Reasoning:**\n\n" + e.Content + "\n\n")

		case EventResponse:
			sb.WriteString("**Response:**\n\n" + e.Content + "\n\n")

		case EventToolCall:
			header := formatToolCallHeader(e)
			if i+1 < len(events) && events[i+1].Type == EventToolSummary {
				sb.WriteString(header)
				sb.WriteString("**Result (summarized):**\n\n" + events[i+1].Content + "\n\n")
				i++
			} else {
				sb.WriteString(header)
				if e.Content != "" {
					sb.WriteString("**Result:**\n\n" + e.Content + "\n\n")
				}
			}

		case EventToolSummary:
			sb.WriteString("**Tool Result Summary:**\n\n" + e.Content + "\n\n")

		case EventDecision:
			sb.WriteString("**Decision:**\n\n" + e.Content + "\n\n")

		case EventFinalNote:
			sb.WriteString("**Note:**\n\n" + e.Content + "\n\n")

		default:
			sb.WriteString("**" + strings.ReplaceAll(string(e.Type), "_", " ") + ":**\n\n" + e.Content + "\n\n")
		}
	}
	return sb.String()
}

func formatToolCallHeader(e Event) string {
	if e.ServerName != "" && e.ToolName != "" {
		return fmt.Sprintf("**Tool Call:** %s.%s(%s)\n", e.ServerName, e.ToolName, e.Arguments)
	}
	return fmt.Sprintf("**Tool Call:** %s\n", e.Content)
}
