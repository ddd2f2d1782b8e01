package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/tarsy/pkg/resumelog"
)

func TestLoad_FallsBackToDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().BudgetTotal, cfg.BudgetTotal)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
budget_total: 50000
resume_logs:
  storage_dir: /tmp/custom-logs
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(50000), cfg.BudgetTotal)
	assert.Equal(t, "/tmp/custom-logs", cfg.ResumeLogs.StorageDir)
	// Everything not overridden still comes from defaults.
	assert.Equal(t, Default().Thresholds, cfg.Thresholds)
}

func TestLoad_RejectsUnknownKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not_a_real_key: true\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("budget_total: 50000\n"), 0o644))

	t.Setenv("CLAUDE_MPM_BUDGET_TOTAL", "90000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(90000), cfg.BudgetTotal)
}

func TestValidate_EnumeratesEveryOffendingKey(t *testing.T) {
	cfg := Default()
	cfg.BudgetTotal = 10
	cfg.Thresholds = Thresholds{Caution: 0.9, Warning: 0.5, Critical: 0.3}
	cfg.ResumeLogs.StorageDir = ""

	err := Validate(cfg)
	require.Error(t, err)

	var multi *resumelog.MultiError
	require.ErrorAs(t, err, &multi)
	assert.GreaterOrEqual(t, len(multi.Errors), 4, "must enumerate every offending key, not stop at the first")
	assert.ErrorIs(t, err, resumelog.ErrInvalidConfig)
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	assert.NoError(t, Validate(Default()))
}

func TestValidate_RejectsUnrecognizedSectionInAllocation(t *testing.T) {
	cfg := Default()
	cfg.ResumeLogs.TokenAllocation["NotASection"] = 500

	err := Validate(cfg)
	assert.Error(t, err)
}

func TestValidate_RejectsZeroIntervalWithAutoCleanupEnabled(t *testing.T) {
	cfg := Default()
	cfg.ResumeLogs.Cleanup.AutoCleanup = true
	cfg.ResumeLogs.Cleanup.Interval = 0

	assert.Error(t, Validate(cfg))
}
