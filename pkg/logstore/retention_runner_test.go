package logstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetentionRunner_SweepsImmediatelyOnStart(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	base := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		log := sampleLog("sess-0000000a", base.Add(time.Duration(i)*time.Hour))
		_, err := store.Persist(context.Background(), log)
		require.NoError(t, err)
	}

	runner := NewRetentionRunner(store, 1, time.Hour)
	runner.Start(context.Background())
	defer runner.Stop()

	// Start runs an immediate sweep synchronously before returning control
	// to the ticker loop, so give it a moment to land on the goroutine.
	require.Eventually(t, func() bool {
		refs, err := store.ListLatest(0)
		return err == nil && len(refs) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestRetentionRunner_StopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	runner := NewRetentionRunner(store, 1, time.Hour)

	runner.Stop() // never started
	runner.Start(context.Background())
	runner.Stop()
	runner.Stop()
}
