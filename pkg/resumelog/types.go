// Package resumelog defines the data model shared by the token ledger,
// threshold engine, trigger dispatcher, synthesizer, store, and rehydrator:
// session identifiers, budgets, threshold levels, resume logs and their
// sections, and trigger events.
package resumelog

import "time"

// SessionId is an opaque, stable identifier for a session instance. It is
// used as the partition key for the ledger and as part of persisted log
// file names.
type SessionId string

// Budget describes the token window a session is accounted against and the
// occupancy fractions at which the threshold engine escalates.
type Budget struct {
	TotalTokens uint32  `yaml:"budget_total"`
	Caution     float32 `yaml:"caution"`
	Warning     float32 `yaml:"warning"`
	Critical    float32 `yaml:"critical"`
}

// Validate enforces 0 < caution < warning < critical < 1.0 and
// total_tokens >= 1000.
func (b Budget) Validate() error {
	switch {
	case b.TotalTokens < 1000:
		return NewInvalidInput("budget_total", "must be at least 1000")
	case !(0 < b.Caution && b.Caution < b.Warning && b.Warning < b.Critical && b.Critical < 1.0):
		return NewInvalidInput("thresholds", "must satisfy 0 < caution < warning < critical < 1.0")
	}
	return nil
}

// ThresholdLevel is the ordered occupancy band a session is currently in.
type ThresholdLevel int

const (
	Nominal ThresholdLevel = iota
	Caution
	Warning
	Critical
	Exhausted
)

func (l ThresholdLevel) String() string {
	switch l {
	case Nominal:
		return "nominal"
	case Caution:
		return "caution"
	case Warning:
		return "warning"
	case Critical:
		return "critical"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// IsValid reports whether l is one of the defined threshold levels.
func (l ThresholdLevel) IsValid() bool {
	return l >= Nominal && l <= Exhausted
}

// SectionName is drawn from the closed set of resume log section kinds.
type SectionName string

const (
	SectionContextMetrics   SectionName = "ContextMetrics"
	SectionMissionSummary   SectionName = "MissionSummary"
	SectionAccomplishments  SectionName = "Accomplishments"
	SectionKeyFindings      SectionName = "KeyFindings"
	SectionDecisions        SectionName = "Decisions"
	SectionNextSteps        SectionName = "NextSteps"
	SectionCriticalContext  SectionName = "CriticalContext"
)

// SectionOrder is the fixed, file-format-significant order sections must
// appear in within a ResumeLog.
var SectionOrder = []SectionName{
	SectionContextMetrics,
	SectionMissionSummary,
	SectionAccomplishments,
	SectionKeyFindings,
	SectionDecisions,
	SectionNextSteps,
	SectionCriticalContext,
}

// IsValid reports whether n is one of the defined section names.
func (n SectionName) IsValid() bool {
	for _, s := range SectionOrder {
		if s == n {
			return true
		}
	}
	return false
}

// Section is one bounded-token block of a ResumeLog.
type Section struct {
	Name       SectionName `json:"name"`
	TokenCount uint32      `json:"token_count"`
	Content    string      `json:"content"`
}

// TriggerKind is drawn from the closed set of events that may cause a
// resume log to be generated.
type TriggerKind string

const (
	TriggerManualPause          TriggerKind = "manual_pause"
	TriggerThresholdWarning     TriggerKind = "threshold_warning"
	TriggerThresholdCritical    TriggerKind = "threshold_critical"
	TriggerMaxTokens            TriggerKind = "max_tokens"
	TriggerModelContextExceeded TriggerKind = "model_context_window_exceeded"
	TriggerSessionEnd           TriggerKind = "session_end"
)

// AllTriggerKinds is the fixed enumeration of configurable trigger kinds
// (SessionEnd is always implicit and is not user-configurable).
var AllTriggerKinds = []TriggerKind{
	TriggerManualPause,
	TriggerThresholdWarning,
	TriggerThresholdCritical,
	TriggerMaxTokens,
	TriggerModelContextExceeded,
}

// IsValid reports whether k is one of the defined trigger kinds.
func (k TriggerKind) IsValid() bool {
	if k == TriggerSessionEnd {
		return true
	}
	for _, t := range AllTriggerKinds {
		if t == k {
			return true
		}
	}
	return false
}

// TriggerEvent is produced by ledger observations or an explicit API call,
// consumed by the dispatcher, and discarded after resolution.
type TriggerEvent struct {
	Kind            TriggerKind
	Timestamp       time.Time
	SessionID       SessionId
	OccupancyAtFire float64
	Level           ThresholdLevel // meaningful only for ThresholdWarning/ThresholdCritical
}

// ResumeLog is the persisted artifact produced by the synthesizer and
// consumed by the rehydrator.
type ResumeLog struct {
	SchemaVersion      uint16
	SessionID          SessionId
	ParentSessionID    SessionId // empty if none
	CreatedAt          time.Time
	ProjectPath        string
	GitBranch          string
	TokenBudgetTotal   uint32
	TokensAtGeneration uint32
	Trigger            TriggerKind
	Sections           []Section
	Checksum           string
}

// TotalSectionTokens sums token_count across all sections.
func (r ResumeLog) TotalSectionTokens() uint32 {
	var total uint32
	for _, s := range r.Sections {
		total += s.TokenCount
	}
	return total
}

// CurrentSchemaVersion is written into every newly synthesized ResumeLog.
const CurrentSchemaVersion uint16 = 1
