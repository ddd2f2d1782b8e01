package trigger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/tarsy/pkg/resumelog"
)

type blockingGenerator struct {
	mu       sync.Mutex
	calls    []resumelog.TriggerKind
	release  chan struct{}
	blocking bool
}

func newBlockingGenerator() *blockingGenerator {
	return &blockingGenerator{release: make(chan struct{})}
}

func (g *blockingGenerator) Generate(ctx context.Context, ev resumelog.TriggerEvent) error {
	g.mu.Lock()
	g.calls = append(g.calls, ev.Kind)
	blocking := g.blocking
	g.mu.Unlock()

	if blocking {
		select {
		case <-g.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (g *blockingGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func TestFire_SkipsDisabledTrigger(t *testing.T) {
	gen := newBlockingGenerator()
	d := New([]resumelog.TriggerKind{resumelog.TriggerManualPause}, gen, "sess-1")

	decision := d.Fire(context.Background(), resumelog.TriggerEvent{Kind: resumelog.TriggerThresholdWarning})
	assert.Equal(t, Skip, decision)
	assert.Equal(t, 0, gen.callCount())
}

func TestFire_SafetyOverrideBypassesEnabledSet(t *testing.T) {
	gen := newBlockingGenerator()
	d := New(nil, gen, "sess-1") // nothing enabled

	decision := d.Fire(context.Background(), resumelog.TriggerEvent{Kind: resumelog.TriggerModelContextExceeded})
	assert.Equal(t, Generate, decision)
	d.Shutdown()
	assert.Equal(t, 1, gen.callCount())
}

func TestFire_CollapsesConcurrentTriggerIntoSingleDeferredSlot(t *testing.T) {
	gen := newBlockingGenerator()
	gen.blocking = true
	d := New(resumelog.AllTriggerKinds, gen, "sess-1")

	first := d.Fire(context.Background(), resumelog.TriggerEvent{Kind: resumelog.TriggerThresholdWarning, Level: resumelog.Warning})
	assert.Equal(t, Generate, first)

	second := d.Fire(context.Background(), resumelog.TriggerEvent{Kind: resumelog.TriggerThresholdCritical, Level: resumelog.Critical})
	assert.Equal(t, Defer, second)

	third := d.Fire(context.Background(), resumelog.TriggerEvent{Kind: resumelog.TriggerManualPause})
	assert.Equal(t, Defer, third, "a second deferred trigger collapses into the single slot")

	close(gen.release)
	require.Eventually(t, func() bool { return gen.callCount() == 2 }, time.Second, 10*time.Millisecond)
	d.Shutdown()
}

func TestFire_CooldownSkipsSameLevelAfterGeneration(t *testing.T) {
	gen := newBlockingGenerator()
	d := New(resumelog.AllTriggerKinds, gen, "sess-1")

	decision := d.Fire(context.Background(), resumelog.TriggerEvent{Kind: resumelog.TriggerThresholdWarning, Level: resumelog.Warning})
	require.Equal(t, Generate, decision)

	require.Eventually(t, func() bool { return gen.callCount() == 1 }, time.Second, 10*time.Millisecond)
	d.Shutdown()

	second := d.Fire(context.Background(), resumelog.TriggerEvent{Kind: resumelog.TriggerThresholdWarning, Level: resumelog.Warning})
	assert.Equal(t, Skip, second)
}

func TestFireAndWait_RunsGenerationSynchronouslyAndReturnsItsError(t *testing.T) {
	boom := assert.AnError
	d := New(resumelog.AllTriggerKinds, errorGenerator{err: boom}, "sess-1")

	decision, err := d.FireAndWait(context.Background(), resumelog.TriggerEvent{Kind: resumelog.TriggerManualPause})
	assert.Equal(t, Generate, decision)
	assert.ErrorIs(t, err, boom)
}

func TestFireAndWait_DefersWhenGenerationAlreadyInFlight(t *testing.T) {
	gen := newBlockingGenerator()
	gen.blocking = true
	d := New(resumelog.AllTriggerKinds, gen, "sess-1")

	first := d.Fire(context.Background(), resumelog.TriggerEvent{Kind: resumelog.TriggerThresholdWarning, Level: resumelog.Warning})
	require.Equal(t, Generate, first)

	decision, err := d.FireAndWait(context.Background(), resumelog.TriggerEvent{Kind: resumelog.TriggerManualPause})
	assert.Equal(t, Defer, decision)
	assert.NoError(t, err)

	close(gen.release)
	require.Eventually(t, func() bool { return gen.callCount() == 2 }, time.Second, 10*time.Millisecond)
	d.Shutdown()
}

type errorGenerator struct {
	err error
}

func (g errorGenerator) Generate(_ context.Context, _ resumelog.TriggerEvent) error {
	return g.err
}

func TestShutdown_CancelsInFlightGeneration(t *testing.T) {
	gen := newBlockingGenerator()
	gen.blocking = true
	d := New(resumelog.AllTriggerKinds, gen, "sess-1")

	d.Fire(context.Background(), resumelog.TriggerEvent{Kind: resumelog.TriggerManualPause})
	d.Shutdown() // must return once Generate observes ctx cancellation, not hang
}
