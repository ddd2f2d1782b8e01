// Package config resolves engine configuration from a YAML file overlaid
// with environment variables, against a closed set of recognized options
// with defaults, in the style of the teacher's pkg/config package
// (loader.go's env > file > defaults precedence, errors.go's wrapper-error
// shape, enums.go's closed-enum pattern) adapted from an agent/chain/MCP
// registry to the resume-log engine's own option set.
package config

import (
	"time"

	"github.com/codeready-toolchain/tarsy/pkg/resumelog"
)

// Config is the single structure of recognized options, mirroring the
// umbrella-struct style of the teacher's pkg/config.Config.
type Config struct {
	Enabled     bool             `yaml:"enabled"`
	BudgetTotal uint32           `yaml:"budget_total"`
	Thresholds  Thresholds       `yaml:"thresholds"`
	ResumeLogs  ResumeLogsConfig `yaml:"resume_logs"`
}

// Thresholds mirrors resumelog.Budget's threshold fields for YAML
// unmarshalling (resumelog.Budget itself carries yaml tags too, but a
// dedicated nested struct matches the spec's dotted key names).
type Thresholds struct {
	Caution  float32 `yaml:"caution"`
	Warning  float32 `yaml:"warning"`
	Critical float32 `yaml:"critical"`
}

// ResumeLogsConfig groups every resume_logs.* option.
type ResumeLogsConfig struct {
	Enabled        bool                              `yaml:"enabled"`
	AutoGenerate   bool                              `yaml:"auto_generate"`
	AutoLoad       bool                              `yaml:"auto_load"`
	MaxTokens      uint32                            `yaml:"max_tokens"`
	StorageDir     string                            `yaml:"storage_dir"`
	Triggers       []resumelog.TriggerKind           `yaml:"triggers"`
	Cleanup        CleanupConfig                     `yaml:"cleanup"`
	TokenAllocation map[resumelog.SectionName]uint32 `yaml:"token_allocation"`
}

// CleanupConfig groups the resume_logs.cleanup.* options.
type CleanupConfig struct {
	KeepCount   uint16        `yaml:"keep_count"`
	AutoCleanup bool          `yaml:"auto_cleanup"`
	Interval    time.Duration `yaml:"interval"`
}

// Stats summarizes a resolved Config for startup logging, mirroring the
// teacher's Config.Stats()/ConfigStats shape.
type Stats struct {
	Enabled        bool
	BudgetTotal    uint32
	ResumeLogs     bool
	StorageDir     string
	KeepCount      uint16
	EnabledTriggers int
}

// Stats returns a summary suitable for a single startup log line.
func (c *Config) Stats() Stats {
	return Stats{
		Enabled:         c.Enabled,
		BudgetTotal:     c.BudgetTotal,
		ResumeLogs:      c.ResumeLogs.Enabled,
		StorageDir:      c.ResumeLogs.StorageDir,
		KeepCount:       c.ResumeLogs.Cleanup.KeepCount,
		EnabledTriggers: len(c.ResumeLogs.Triggers),
	}
}

// ResolvedBudget returns the resumelog.Budget view of the top-level
// budget/threshold fields, used to construct the Ledger and Threshold
// Engine.
func (c *Config) ResolvedBudget() resumelog.Budget {
	return resumelog.Budget{
		TotalTokens: c.BudgetTotal,
		Caution:     c.Thresholds.Caution,
		Warning:     c.Thresholds.Warning,
		Critical:    c.Thresholds.Critical,
	}
}
