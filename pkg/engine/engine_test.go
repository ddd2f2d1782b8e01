package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/tarsy/pkg/config"
	"github.com/codeready-toolchain/tarsy/pkg/resumelog"
	"github.com/codeready-toolchain/tarsy/pkg/transcript"
)

type blockingSummarizer struct {
	release chan struct{}
}

func (s blockingSummarizer) Summarize(ctx context.Context, _ resumelog.SectionName, _ int, _, _ string) (string, error) {
	select {
	case <-s.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return "summarized content", nil
}

type stubSummarizer struct{}

func (stubSummarizer) Summarize(_ context.Context, _ resumelog.SectionName, _ int, _, _ string) (string, error) {
	return "summarized content", nil
}

type stubSource struct{}

func (stubSource) SessionState() transcript.SessionState {
	return transcript.SessionState{ProjectPath: "/work", GitBranch: "main"}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.ResumeLogs.StorageDir = t.TempDir()
	return cfg
}

func TestNew_DisabledReturnsErrDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.ResumeLogs.Enabled = false

	_, err := New(context.Background(), cfg, "sess-1", stubSource{}, stubSummarizer{})
	assert.ErrorIs(t, err, resumelog.ErrDisabled)
}

func TestNew_NoExistingLogsStartsCold(t *testing.T) {
	cfg := testConfig(t)

	e, err := New(context.Background(), cfg, "sess-1", stubSource{}, stubSummarizer{})
	require.NoError(t, err)
	defer e.Shutdown()
	assert.Empty(t, e.parentID)
}

func TestManualPause_PersistsAndReturnsLog(t *testing.T) {
	cfg := testConfig(t)

	e, err := New(context.Background(), cfg, "sess-1", stubSource{}, stubSummarizer{})
	require.NoError(t, err)
	defer e.Shutdown()

	log, err := e.ManualPause(context.Background())
	require.NoError(t, err)
	assert.Equal(t, resumelog.TriggerManualPause, log.Trigger)
	assert.NotEmpty(t, e.Status().LastLogPath)
}

func TestRecordUsage_CrossingThresholdFiresGenerate(t *testing.T) {
	cfg := testConfig(t)
	cfg.BudgetTotal = 1000
	cfg.Thresholds.Caution = 0.5
	cfg.Thresholds.Warning = 0.7
	cfg.Thresholds.Critical = 0.9

	e, err := New(context.Background(), cfg, "sess-1", stubSource{}, stubSummarizer{})
	require.NoError(t, err)

	err = e.RecordUsage(context.Background(), 800, 0)
	require.NoError(t, err)

	status := e.Status()
	assert.Equal(t, resumelog.Warning, status.Level)
	e.Shutdown()
}

func TestRehydrate_PreloadsFromExistingLog(t *testing.T) {
	cfg := testConfig(t)

	first, err := New(context.Background(), cfg, "sess-1", stubSource{}, stubSummarizer{})
	require.NoError(t, err)
	_, err = first.ManualPause(context.Background())
	require.NoError(t, err)
	first.Shutdown() // release the writer lock before the successor engine claims it

	second, err := New(context.Background(), cfg, "sess-2", stubSource{}, stubSummarizer{})
	require.NoError(t, err)
	defer second.Shutdown()
	assert.Equal(t, resumelog.SessionId("sess-1"), second.parentID)
	assert.Greater(t, second.ledger.Snapshot().Rehydrated, uint64(0))
}

func TestNew_RejectsConcurrentWriterOnSameStorageDir(t *testing.T) {
	cfg := testConfig(t)

	first, err := New(context.Background(), cfg, "sess-1", stubSource{}, stubSummarizer{})
	require.NoError(t, err)
	defer first.Shutdown()

	_, err = New(context.Background(), cfg, "sess-2", stubSource{}, stubSummarizer{})
	assert.ErrorIs(t, err, resumelog.ErrConcurrentWriter)
}

func TestRecordUsage_AutoGenerateDisabledNeverFiresDispatcher(t *testing.T) {
	cfg := testConfig(t)
	cfg.BudgetTotal = 1000
	cfg.Thresholds.Caution = 0.5
	cfg.Thresholds.Warning = 0.7
	cfg.Thresholds.Critical = 0.9
	cfg.ResumeLogs.AutoGenerate = false

	e, err := New(context.Background(), cfg, "sess-1", stubSource{}, stubSummarizer{})
	require.NoError(t, err)
	defer e.Shutdown()

	err = e.RecordUsage(context.Background(), 800, 0)
	require.NoError(t, err)

	status := e.Status()
	assert.Equal(t, resumelog.Warning, status.Level, "the threshold still ratchets even when auto-generation is disabled")
	assert.Empty(t, status.LastLogPath, "no generation must have run when auto_generate is false")
}

func TestManualPause_StillFiresWhenAutoGenerateDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.ResumeLogs.AutoGenerate = false

	e, err := New(context.Background(), cfg, "sess-1", stubSource{}, stubSummarizer{})
	require.NoError(t, err)
	defer e.Shutdown()

	log, err := e.ManualPause(context.Background())
	require.NoError(t, err)
	assert.Equal(t, resumelog.TriggerManualPause, log.Trigger)
}

func TestManualPause_CollapsesIntoInFlightGenerationInsteadOfRunningConcurrently(t *testing.T) {
	cfg := testConfig(t)
	cfg.BudgetTotal = 1000
	cfg.Thresholds.Caution = 0.1
	cfg.Thresholds.Warning = 0.2
	cfg.Thresholds.Critical = 0.3

	release := make(chan struct{})
	e, err := New(context.Background(), cfg, "sess-1", stubSource{}, blockingSummarizer{release: release})
	require.NoError(t, err)
	defer e.Shutdown()

	// Cross a threshold to start a background generation that blocks on
	// the summarizer call.
	require.NoError(t, e.RecordUsage(context.Background(), 500, 0))

	// A concurrent ManualPause must not run its own generation while the
	// threshold-triggered one is in flight; it must collapse into the
	// dispatcher's single deferred slot instead.
	_, err = e.ManualPause(context.Background())
	assert.ErrorIs(t, err, resumelog.ErrGenerationBusy)

	close(release)
}
