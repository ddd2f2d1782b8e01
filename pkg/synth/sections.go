package synth

import "github.com/codeready-toolchain/tarsy/pkg/resumelog"

// SectionSpec is the fixed mapping from section name to its default token
// budget and prompt template, per spec.md §4.4. This is a closed
// tagged-enumeration, not a runtime registry: the section set is part of
// the file-format contract (spec.md §9 Dynamic dispatch over section
// kinds).
type SectionSpec struct {
	Name           resumelog.SectionName
	DefaultTokens  uint32
	PromptTemplate string
}

// Sections is the fixed, ordered table of resume log sections.
var Sections = []SectionSpec{
	{resumelog.SectionContextMetrics, 500, "context_metrics"},
	{resumelog.SectionMissionSummary, 1000, "mission_summary"},
	{resumelog.SectionAccomplishments, 2000, "accomplishments"},
	{resumelog.SectionKeyFindings, 2500, "key_findings"},
	{resumelog.SectionDecisions, 1500, "decisions"},
	{resumelog.SectionNextSteps, 1500, "next_steps"},
	{resumelog.SectionCriticalContext, 1000, "critical_context"},
}

// minSectionTokens is the floor below which a configured section
// allocation is rejected with InvalidAllocation.
const minSectionTokens = 200
