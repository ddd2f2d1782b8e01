package rehydrate

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/tarsy/pkg/logstore"
	"github.com/codeready-toolchain/tarsy/pkg/resumelog"
	"github.com/codeready-toolchain/tarsy/pkg/tokencount"
)

func sampleLog(sessionID resumelog.SessionId, createdAt time.Time) resumelog.ResumeLog {
	// TokenCount is not part of the on-disk format; Store.Load recomputes
	// it from content, so it is left at its zero value here and the
	// expected preload figure is derived the same way in the assertions.
	log := resumelog.ResumeLog{
		SchemaVersion:      resumelog.CurrentSchemaVersion,
		SessionID:          sessionID,
		CreatedAt:          createdAt,
		ProjectPath:        "/work/project",
		GitBranch:          "main",
		TokenBudgetTotal:   200000,
		TokensAtGeneration: 150000,
		Trigger:            resumelog.TriggerManualPause,
		Sections: []resumelog.Section{
			{Name: resumelog.SectionContextMetrics, Content: "used 75%"},
			{Name: resumelog.SectionMissionSummary, Content: "ship it"},
			{Name: resumelog.SectionAccomplishments, Content: "done a"},
			{Name: resumelog.SectionKeyFindings, Content: "found b"},
			{Name: resumelog.SectionDecisions, Content: "decided c"},
			{Name: resumelog.SectionNextSteps, Content: "next d"},
			{Name: resumelog.SectionCriticalContext, Content: "no secrets"},
		},
	}
	log.Checksum = log.ComputeChecksum()
	return log
}

// expectedPreloadTokens mirrors Store.Load's recomputation so the test
// doesn't depend on a hardcoded tokenizer output.
func expectedPreloadTokens(log resumelog.ResumeLog) uint32 {
	counter := tokencount.Default()
	var sum uint32
	for _, s := range log.Sections {
		sum += uint32(counter.Count(s.Content))
	}
	return sum
}

func TestBootstrap_LoadsLatestValidLog(t *testing.T) {
	dir := t.TempDir()
	store := logstore.New(dir)
	log := sampleLog("sess-aaaaaaaa", time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC))
	_, err := store.Persist(context.Background(), log)
	require.NoError(t, err)

	b := New(store)
	ctx, err := b.Bootstrap(context.Background(), true, 10)
	require.NoError(t, err)
	require.NotNil(t, ctx)
	assert.Equal(t, log.SessionID, ctx.Log.SessionID)
	assert.Equal(t, expectedPreloadTokens(log), ctx.PreloadTokens)
	assert.Greater(t, ctx.PreloadTokens, uint32(0), "a real on-disk log with non-empty sections must preload a non-zero token count")
}

func TestBootstrap_AutoLoadDisabledStartsCold(t *testing.T) {
	dir := t.TempDir()
	store := logstore.New(dir)
	log := sampleLog("sess-bbbbbbbb", time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC))
	_, err := store.Persist(context.Background(), log)
	require.NoError(t, err)

	b := New(store)
	ctx, err := b.Bootstrap(context.Background(), false, 10)
	require.NoError(t, err)
	assert.Nil(t, ctx)
}

func TestBootstrap_NoLogsStartsCold(t *testing.T) {
	dir := t.TempDir()
	store := logstore.New(dir)

	b := New(store)
	ctx, err := b.Bootstrap(context.Background(), true, 10)
	require.NoError(t, err)
	assert.Nil(t, ctx)
}

func TestBootstrap_FallsBackPastCorruptLogs(t *testing.T) {
	dir := t.TempDir()
	store := logstore.New(dir)

	older := sampleLog("sess-cccccccc", time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC))
	_, err := store.Persist(context.Background(), older)
	require.NoError(t, err)

	newer := sampleLog("sess-dddddddd", time.Date(2026, 7, 1, 1, 0, 0, 0, time.UTC))
	newerRef, err := store.Persist(context.Background(), newer)
	require.NoError(t, err)

	data, err := os.ReadFile(newerRef.Path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(newerRef.Path, append(data, []byte("tampered")...), 0o644))

	b := New(store)
	ctx, err := b.Bootstrap(context.Background(), true, 10)
	require.NoError(t, err)
	require.NotNil(t, ctx)
	assert.Equal(t, older.SessionID, ctx.Log.SessionID)
}

func TestBootstrap_AllCandidatesCorruptStartsCold(t *testing.T) {
	dir := t.TempDir()
	store := logstore.New(dir)

	for i := 0; i < 3; i++ {
		log := sampleLog(resumelog.SessionId("sess-0000000"+string(rune('a'+i))), time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i)*time.Hour))
		ref, err := store.Persist(context.Background(), log)
		require.NoError(t, err)
		data, err := os.ReadFile(ref.Path)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(ref.Path, append(data, []byte("tampered")...), 0o644))
	}

	b := New(store)
	ctx, err := b.Bootstrap(context.Background(), true, 10)
	require.NoError(t, err)
	assert.Nil(t, ctx)
}

func TestBootstrap_EnforcesRetentionFirst(t *testing.T) {
	dir := t.TempDir()
	store := logstore.New(dir)

	for i := 0; i < 4; i++ {
		log := sampleLog(resumelog.SessionId("sess-0000000"+string(rune('a'+i))), time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i)*time.Hour))
		_, err := store.Persist(context.Background(), log)
		require.NoError(t, err)
	}

	b := New(store)
	_, err := b.Bootstrap(context.Background(), true, 2)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	mdCount := 0
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".md" {
			mdCount++
		}
	}
	assert.Equal(t, 2, mdCount)
}
