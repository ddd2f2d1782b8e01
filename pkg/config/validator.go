package config

import (
	"fmt"

	"github.com/codeready-toolchain/tarsy/pkg/resumelog"
)

// Validator collects configuration errors across every recognized option,
// unlike the teacher's fail-fast Validator.ValidateAll(): spec §4.7
// requires validation failures to enumerate every offending key in one
// InvalidConfig error, not stop at the first.
type Validator struct {
	cfg    *Config
	errors []error
}

// Validate runs every section validator against cfg and returns a single
// *resumelog.MultiError listing every offending key, or nil if cfg is
// entirely valid.
func Validate(cfg *Config) error {
	v := &Validator{cfg: cfg}
	v.validateBudget()
	v.validateThresholds()
	v.validateResumeLogs()
	v.validateTokenAllocation()
	v.validateTriggers()

	if len(v.errors) == 0 {
		return nil
	}
	return &resumelog.MultiError{Errors: v.errors}
}

func (v *Validator) fail(key, reason string) {
	v.errors = append(v.errors, &FieldError{Key: key, Reason: reason})
}

func (v *Validator) validateBudget() {
	if v.cfg.BudgetTotal < 1000 {
		v.fail("budget_total", fmt.Sprintf("must be at least 1000, got %d", v.cfg.BudgetTotal))
	}
}

func (v *Validator) validateThresholds() {
	t := v.cfg.Thresholds
	if !(t.Caution > 0) {
		v.fail("thresholds.caution", "must be greater than 0")
	}
	if !(t.Caution < t.Warning) {
		v.fail("thresholds.warning", "must be greater than thresholds.caution")
	}
	if !(t.Warning < t.Critical) {
		v.fail("thresholds.critical", "must be greater than thresholds.warning")
	}
	if !(t.Critical < 1.0) {
		v.fail("thresholds.critical", "must be less than 1.0")
	}
}

func (v *Validator) validateResumeLogs() {
	rl := v.cfg.ResumeLogs
	if rl.MaxTokens == 0 {
		v.fail("resume_logs.max_tokens", "must be greater than 0")
	}
	if rl.StorageDir == "" {
		v.fail("resume_logs.storage_dir", "must not be empty")
	}
	if rl.Cleanup.AutoCleanup && rl.Cleanup.Interval <= 0 {
		v.fail("resume_logs.cleanup.interval", "must be greater than 0 when auto_cleanup is enabled")
	}
}

func (v *Validator) validateTokenAllocation() {
	rl := v.cfg.ResumeLogs
	if len(rl.TokenAllocation) == 0 {
		return
	}

	var sum uint32
	for name, tokens := range rl.TokenAllocation {
		if !name.IsValid() {
			v.fail(fmt.Sprintf("resume_logs.token_allocation.%s", name), "unrecognized section name")
			continue
		}
		if tokens < 200 {
			v.fail(fmt.Sprintf("resume_logs.token_allocation.%s", name), "must be at least 200 tokens")
		}
		sum += tokens
	}
	if rl.MaxTokens > 0 && sum > rl.MaxTokens {
		v.fail("resume_logs.token_allocation", fmt.Sprintf("sum of section budgets (%d) exceeds max_tokens (%d)", sum, rl.MaxTokens))
	}
}

func (v *Validator) validateTriggers() {
	for _, t := range v.cfg.ResumeLogs.Triggers {
		if !t.IsValid() {
			v.fail("resume_logs.triggers", fmt.Sprintf("unrecognized trigger kind %q", t))
		}
	}
}
