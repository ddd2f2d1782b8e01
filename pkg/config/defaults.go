package config

import (
	"time"

	"github.com/codeready-toolchain/tarsy/pkg/resumelog"
)

// DefaultStorageDir is the default location for resume logs, relative to
// the project root.
const DefaultStorageDir = ".claude-mpm/resume-logs"

// DefaultSectionBudgets are the default per-section token allocations from
// the synthesizer's section table; they sum to DefaultMaxLogTokens.
var DefaultSectionBudgets = map[resumelog.SectionName]uint32{
	resumelog.SectionContextMetrics:  500,
	resumelog.SectionMissionSummary:  1000,
	resumelog.SectionAccomplishments: 2000,
	resumelog.SectionKeyFindings:     2500,
	resumelog.SectionDecisions:       1500,
	resumelog.SectionNextSteps:       1500,
	resumelog.SectionCriticalContext: 1000,
}

// DefaultMaxLogTokens is the default total per-log token cap.
const DefaultMaxLogTokens uint32 = 10000

// Default returns a Config populated entirely with spec-mandated defaults.
func Default() *Config {
	allocation := make(map[resumelog.SectionName]uint32, len(DefaultSectionBudgets))
	for k, v := range DefaultSectionBudgets {
		allocation[k] = v
	}

	return &Config{
		Enabled:     true,
		BudgetTotal: 200000,
		Thresholds: Thresholds{
			Caution:  0.70,
			Warning:  0.85,
			Critical: 0.95,
		},
		ResumeLogs: ResumeLogsConfig{
			Enabled:         true,
			AutoGenerate:    true,
			AutoLoad:        true,
			MaxTokens:       DefaultMaxLogTokens,
			StorageDir:      DefaultStorageDir,
			Triggers:        append([]resumelog.TriggerKind{}, resumelog.AllTriggerKinds...),
			TokenAllocation: allocation,
			Cleanup: CleanupConfig{
				KeepCount:   10,
				AutoCleanup: true,
				Interval:    time.Hour,
			},
		},
	}
}
