package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Borislavv/go-lrng/backend"
	"github.com/Borislavv/go-lrng/config"
	"github.com/Borislavv/go-lrng/internal/drng"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := &config.Config{
		DRNG: config.DRNGCfg{Shards: 1, SeedRecheckInterval: -1},
	}
	cfg.AdjustConfig()
	// One event per entropy bit, whatever the resolution of the test host.
	cfg.Pool.HighResTimer = true
	cfg.Pool.IRQEntropyBits = config.SecurityStrengthBits
	return cfg
}

func newTestEngine(t *testing.T, cfg *config.Config, opts ...Option) *Engine {
	t.Helper()

	e, err := New(context.Background(), cfg, slog.Default(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, e.Close()) })
	return e
}

// events delivers timing events with cubic timestamps, whose derivatives never repeat.
type events struct {
	e *Engine
	i uint64
}

func (ev *events) feed(n int) {
	for k := 0; k < n; k++ {
		ev.i++
		ev.e.OnTimingEvent(ev.i*ev.i*ev.i, uint32(ev.i))
	}
}

// TestEngine_FullEntropyAfterPoolFilled verifies that 256 accepted events fully seed the primary on first use.
func TestEngine_FullEntropyAfterPoolFilled(t *testing.T) {
	e := newTestEngine(t, testConfig())
	(&events{e: e}).feed(drng.SecurityStrengthBits)

	require.Equal(t, uint32(drng.SecurityStrengthBits), e.EntropyCount())
	require.Equal(t, drng.Unseeded, e.SeedState())

	buf := make([]byte, drng.SecurityStrengthBytes)
	n, err := e.TryGetRandomBytesFullEntropy(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	require.NotEqual(t, make([]byte, len(buf)), buf)
	require.Equal(t, drng.FullySeeded, e.SeedState())
}

// TestEngine_WaitUntilSeededByInjection verifies that a waiter is released once the primary is minimally seeded.
func TestEngine_WaitUntilSeededByInjection(t *testing.T) {
	e := newTestEngine(t, testConfig())

	errCh := make(chan error, 1)
	go func() { errCh <- e.WaitUntilSeeded(context.Background()) }()

	select {
	case err := <-errCh:
		t.Fatalf("wait returned before seeding: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, e.InjectExternalEntropy(context.Background(), make([]byte, 16), 128))
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("wait was not released")
	}
	require.Equal(t, drng.MinimallySeeded, e.SeedState())
}

// TestEngine_WaitUntilSeededByEvents verifies that armed events seed the primary through the reseeder.
func TestEngine_WaitUntilSeededByEvents(t *testing.T) {
	cfg := testConfig()
	cfg.DRNG.SeedRecheckInterval = 5 * time.Millisecond
	e := newTestEngine(t, cfg)

	errCh := make(chan error, 1)
	go func() { errCh <- e.WaitUntilSeeded(context.Background()) }()
	require.Eventually(t, e.seededQ.hasSleeper, time.Second, time.Millisecond)

	(&events{e: e}).feed(4 * drng.SecurityStrengthBits)

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("wait was not released")
	}
	require.GreaterOrEqual(t, e.SeedState(), drng.MinimallySeeded)
	require.Positive(t, e.Metrics().SeedRuns)
}

// TestEngine_CertifiedStuckTerminates verifies that repeated derivatives are fatal in certified mode.
func TestEngine_CertifiedStuckTerminates(t *testing.T) {
	cfg := testConfig()
	cfg.Pool.Certified = true

	var reasons atomic.Int32
	e := newTestEngine(t, cfg, WithTerminate(func(string) { reasons.Add(1) }))

	for _, ts := range []uint64{100, 105, 110, 115} {
		e.OnTimingEvent(ts)
	}
	require.Zero(t, reasons.Load())

	e.OnTimingEvent(120)
	require.Equal(t, int32(1), reasons.Load())
	require.Equal(t, uint32(2), e.Metrics().PoolEvents)
	require.Equal(t, int64(3), e.Metrics().StuckRejected)
}

// TestEngine_EventsBeforeArmingOnlyAccumulate verifies that nothing reseeds until a consumer shows up.
func TestEngine_EventsBeforeArmingOnlyAccumulate(t *testing.T) {
	e := newTestEngine(t, testConfig())
	(&events{e: e}).feed(128)

	require.Never(t, func() bool { return e.Metrics().SeedScheduled > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	require.Equal(t, uint32(128), e.EntropyCount())
}

// TestEngine_ArmedEventsTriggerSeeding verifies that crossing the pool threshold schedules seed work.
func TestEngine_ArmedEventsTriggerSeeding(t *testing.T) {
	cfg := testConfig()
	cfg.DRNG.SeedRecheckInterval = 5 * time.Millisecond
	e := newTestEngine(t, cfg)

	_, err := e.GetRandomBytes(make([]byte, 16))
	require.NoError(t, err)

	(&events{e: e}).feed(300)
	require.Eventually(t, func() bool {
		m := e.Metrics()
		return m.SeedRuns > 0 && m.State >= drng.Initial
	}, 5*time.Second, time.Millisecond)
}

// TestEngine_GetRandomBytesUnseeded verifies that the secondary paths serve output before seeding.
func TestEngine_GetRandomBytesUnseeded(t *testing.T) {
	e := newTestEngine(t, testConfig())

	buf := make([]byte, 5000)
	n, err := e.GetRandomBytes(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)

	n, err = e.GetRandomBytesAtomic(buf[:100])
	require.NoError(t, err)
	require.Equal(t, 100, n)

	n, err = e.GetRandomBytes(nil)
	require.NoError(t, err)
	require.Zero(t, n)
}

// TestEngine_TryFullEntropy verifies the short-read and would-block outcomes.
func TestEngine_TryFullEntropy(t *testing.T) {
	e := newTestEngine(t, testConfig())
	(&events{e: e}).feed(drng.SecurityStrengthBits)

	n, err := e.TryGetRandomBytesFullEntropy(make([]byte, 64))
	require.ErrorIs(t, err, ErrShortRead)
	require.Equal(t, drng.SecurityStrengthBytes, n)

	n, err = e.TryGetRandomBytesFullEntropy(make([]byte, 16))
	require.ErrorIs(t, err, ErrWouldBlock)
	require.Zero(t, n)
}

// TestEngine_FullEntropyReadWaits verifies that a blocking reader is woken by an injection.
func TestEngine_FullEntropyReadWaits(t *testing.T) {
	e := newTestEngine(t, testConfig())

	type result struct {
		n   int
		err error
	}
	resCh := make(chan result, 1)
	go func() {
		n, err := e.GetRandomBytesFullEntropy(context.Background(), make([]byte, 32))
		resCh <- result{n, err}
	}()
	require.Eventually(t, e.readQ.hasSleeper, time.Second, time.Millisecond)

	require.NoError(t, e.InjectExternalEntropy(context.Background(), make([]byte, 32), 256))
	select {
	case res := <-resCh:
		require.NoError(t, res.err)
		require.Equal(t, 32, res.n)
	case <-time.After(time.Second):
		t.Fatal("reader was not woken")
	}
}

// TestEngine_WaitCancelled verifies that cancellation is reported distinctly.
func TestEngine_WaitCancelled(t *testing.T) {
	e := newTestEngine(t, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := e.WaitUntilSeeded(ctx)
	require.ErrorIs(t, err, ErrCancelled)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	n, err := e.GetRandomBytesFullEntropy(ctx, make([]byte, 8))
	require.ErrorIs(t, err, ErrCancelled)
	require.Zero(t, n)
}

// TestEngine_ReadyCallbacks verifies one-shot callbacks, deduplication and late registration.
func TestEngine_ReadyCallbacks(t *testing.T) {
	e := newTestEngine(t, testConfig())

	var fired, dropped atomic.Int32
	cb := &ReadyCallback{Func: func() { fired.Add(1) }}
	other := &ReadyCallback{Func: func() { dropped.Add(1) }}

	require.NoError(t, e.RegisterReadyCallback(cb))
	require.NoError(t, e.RegisterReadyCallback(cb))
	require.NoError(t, e.RegisterReadyCallback(other))
	e.UnregisterReadyCallback(other)
	require.Equal(t, 1, e.ready.pending())

	require.NoError(t, e.InjectExternalEntropy(context.Background(), make([]byte, 32), 256))
	require.Equal(t, int32(1), fired.Load())
	require.Zero(t, dropped.Load())
	require.Zero(t, e.ready.pending())

	require.ErrorIs(t, e.RegisterReadyCallback(&ReadyCallback{Func: func() {}}), ErrAlreadySeeded)
}

// TestEngine_PrivilegedOperations verifies that the authorizer guards every privileged call.
func TestEngine_PrivilegedOperations(t *testing.T) {
	e := newTestEngine(t, testConfig(), WithAuthorizer(func(context.Context) bool { return false }))
	ctx := context.Background()

	require.ErrorIs(t, e.InjectExternalEntropy(ctx, make([]byte, 32), 256), ErrPermissionDenied)
	_, err := e.AddEntropy(ctx, make([]byte, 32), 256)
	require.ErrorIs(t, err, ErrPermissionDenied)
	require.ErrorIs(t, e.AddEntropyCount(ctx, 64), ErrPermissionDenied)
	require.ErrorIs(t, e.SetEntropyCount(ctx, 64), ErrPermissionDenied)
	require.ErrorIs(t, e.ClearEntropyCount(ctx), ErrPermissionDenied)
	require.ErrorIs(t, e.ForceReseed(ctx), ErrPermissionDenied)
	require.ErrorIs(t, e.SwitchBackend(ctx, backend.NewAESCTR()), ErrPermissionDenied)

	require.Equal(t, drng.Unseeded, e.SeedState())
	require.Zero(t, e.EntropyCount())

	n, err := e.Write(make([]byte, 10))
	require.NoError(t, err)
	require.Equal(t, 10, n)
}

// TestEngine_EntropyCount verifies the clamped entropy count controls.
func TestEngine_EntropyCount(t *testing.T) {
	e := newTestEngine(t, testConfig())
	ctx := context.Background()

	require.NoError(t, e.AddEntropyCount(ctx, 100))
	require.Equal(t, uint32(100), e.EntropyCount())

	require.NoError(t, e.AddEntropyCount(ctx, -1000))
	require.Zero(t, e.EntropyCount())

	require.NoError(t, e.SetEntropyCount(ctx, 1<<20))
	require.Equal(t, uint32(4096), e.EntropyCount())

	require.NoError(t, e.ClearEntropyCount(ctx))
	require.Zero(t, e.EntropyCount())
}

// TestEngine_WriteForcesReseed verifies that written data reaches the primary and forces secondary reseeds.
func TestEngine_WriteForcesReseed(t *testing.T) {
	e := newTestEngine(t, testConfig())

	_, err := e.GetRandomBytes(make([]byte, 16))
	require.NoError(t, err)
	before := e.Metrics()

	_, err = e.GetRandomBytes(make([]byte, 16))
	require.NoError(t, err)
	require.Equal(t, before.SecondaryReseeds, e.Metrics().SecondaryReseeds)

	n, err := e.Write(make([]byte, 100))
	require.NoError(t, err)
	require.Equal(t, 100, n)
	require.Equal(t, before.PrimarySeeds+2, e.Metrics().PrimarySeeds)
	require.Zero(t, e.Metrics().PrimaryEntropyBits)

	_, err = e.GetRandomBytes(make([]byte, 16))
	require.NoError(t, err)
	require.Equal(t, before.SecondaryReseeds+1, e.Metrics().SecondaryReseeds)
}

// TestEngine_AddEntropyCredits verifies that privileged writes credit the primary.
func TestEngine_AddEntropyCredits(t *testing.T) {
	e := newTestEngine(t, testConfig())

	n, err := e.AddEntropy(context.Background(), make([]byte, 100), 200)
	require.NoError(t, err)
	require.Equal(t, 100, n)
	require.Equal(t, uint32(200), e.Metrics().PrimaryEntropyBits)
	require.Equal(t, drng.MinimallySeeded, e.SeedState())
}

// TestEngine_SwitchBackend verifies continuity across switches and the single non-default rule.
func TestEngine_SwitchBackend(t *testing.T) {
	e := newTestEngine(t, testConfig())
	ctx := context.Background()

	_, err := e.GetRandomBytes(make([]byte, 16))
	require.NoError(t, err)

	require.NoError(t, e.SwitchBackend(ctx, backend.NewAESCTR()))
	require.Equal(t, "aes256-ctr", e.BackendName())

	n, err := e.GetRandomBytes(make([]byte, 64))
	require.NoError(t, err)
	require.Equal(t, 64, n)
	n, err = e.GetRandomBytesAtomic(make([]byte, 64))
	require.NoError(t, err)
	require.Equal(t, 64, n)

	require.ErrorIs(t, e.SwitchBackend(ctx, backend.NewAESCTR()), ErrSwitchDenied)
	require.Equal(t, "aes256-ctr", e.BackendName())

	require.NoError(t, e.SwitchBackend(ctx, e.defaultBackend))
	require.Equal(t, "chacha20", e.BackendName())
	n, err = e.GetRandomBytes(make([]byte, 64))
	require.NoError(t, err)
	require.Equal(t, 64, n)
}

// TestEngine_SwitchKeepsSeedLevel verifies that a switch of a used engine keeps the primary seeded.
func TestEngine_SwitchKeepsSeedLevel(t *testing.T) {
	e := newTestEngine(t, testConfig())
	ctx := context.Background()

	require.NoError(t, e.InjectExternalEntropy(ctx, make([]byte, 32), 256))
	require.NoError(t, e.SwitchBackend(ctx, backend.NewAESCTR()))
	require.Equal(t, drng.FullySeeded, e.SeedState())
}

// TestEngine_BatchInvalidatedOnSeedLevel verifies that buffered words are dropped on a level transition.
func TestEngine_BatchInvalidatedOnSeedLevel(t *testing.T) {
	e := newTestEngine(t, testConfig())

	_, err := e.Uint64()
	require.NoError(t, err)
	_, err = e.Uint32()
	require.NoError(t, err)
	require.Equal(t, int64(1), e.Metrics().BatchFills)

	require.NoError(t, e.InjectExternalEntropy(context.Background(), make([]byte, 32), 256))
	_, err = e.Uint64()
	require.NoError(t, err)
	require.Equal(t, int64(2), e.Metrics().BatchFills)
}

// TestEngine_AllocateShards verifies sharding and service from the shards.
func TestEngine_AllocateShards(t *testing.T) {
	cfg := testConfig()
	cfg.DRNG.Shards = 4
	e := newTestEngine(t, cfg)

	require.NoError(t, e.AllocateShards(context.Background()))
	require.Equal(t, 4, e.Metrics().Shards)

	n, err := e.GetRandomBytes(make([]byte, 128))
	require.NoError(t, err)
	require.Equal(t, 128, n)
}

// TestEngine_AllocateShardsFailure verifies the fallback to the shared instance.
func TestEngine_AllocateShardsFailure(t *testing.T) {
	cfg := testConfig()
	cfg.DRNG.Shards = 4
	faulty := backend.NewFaulty(backend.NewChaCha20())
	e := newTestEngine(t, cfg, WithBackend(faulty))

	faulty.FailAlloc.Store(true)
	require.ErrorIs(t, e.AllocateShards(context.Background()), ErrAllocation)
	faulty.FailAlloc.Store(false)

	require.Zero(t, e.Metrics().Shards)
	_, err := e.GetRandomBytes(make([]byte, 16))
	require.NoError(t, err)
}

// TestEngine_PrimaryFailureResets verifies that a primitive failure drops the seed level.
func TestEngine_PrimaryFailureResets(t *testing.T) {
	faulty := backend.NewFaulty(backend.NewChaCha20())
	e := newTestEngine(t, testConfig(), WithBackend(faulty))
	ctx := context.Background()

	require.NoError(t, e.InjectExternalEntropy(ctx, make([]byte, 32), 256))
	require.Equal(t, drng.FullySeeded, e.SeedState())

	faulty.FailSeed.Store(true)
	n, err := e.Write(make([]byte, 32))
	require.True(t, errors.Is(err, ErrSeed))
	require.Zero(t, n)
	require.Equal(t, drng.Unseeded, e.SeedState())
}

// TestEngine_InputAndDeviceRandomness verifies the uncredited and deduplicated inputs.
func TestEngine_InputAndDeviceRandomness(t *testing.T) {
	e := newTestEngine(t, testConfig())
	mixed, _ := e.pool.Metrics()

	e.AddDeviceRandomness([]byte("serial-0042"))
	require.Zero(t, e.Metrics().PoolEvents)
	after, _ := e.pool.Metrics()
	require.Greater(t, after, mixed)

	e.AddInputRandomness(1, 30, 1)
	input, _ := e.pool.Metrics()
	require.Equal(t, after+2, input)

	e.AddInputRandomness(1, 30, 1)
	repeated, _ := e.pool.Metrics()
	require.Equal(t, input, repeated)

	e.AddInputRandomness(1, 30, 0)
	require.Zero(t, e.Metrics().PoolEvents)
	require.Zero(t, e.EntropyCount())
	require.Equal(t, int64(0), e.Metrics().StuckRejected)
}
