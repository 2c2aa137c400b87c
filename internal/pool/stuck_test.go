package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestStuckTester_AcceptsNonDegenerateTimestamps verifies that cubic timestamps are never rejected.
func TestStuckTester_AcceptsNonDegenerateTimestamps(t *testing.T) {
	s := NewStuckTester(true, true, func(string) { t.Fatal("unexpected termination") })
	for i := uint64(1); i <= 1000; i++ {
		require.False(t, s.Stuck(i*i*i+7*i), "i=%d", i)
	}
	require.Zero(t, s.Rejected())
}

// TestStuckTester_RejectsRepeatedDerivatives verifies each derivative check.
func TestStuckTester_RejectsRepeatedDerivatives(t *testing.T) {
	s := NewStuckTester(true, false, nil)

	require.False(t, s.Stuck(100))
	require.False(t, s.Stuck(105))
	require.True(t, s.Stuck(110), "equal deltas")
	require.True(t, s.Stuck(110), "same timestamp")
	require.Equal(t, int64(2), s.Rejected())
}

// TestStuckTester_CertifiedModeTerminates verifies that three consecutive rejections are fatal.
func TestStuckTester_CertifiedModeTerminates(t *testing.T) {
	var reasons []string
	s := NewStuckTester(true, true, func(reason string) { reasons = append(reasons, reason) })

	for _, ts := range []uint64{100, 105, 110, 115} {
		s.Stuck(ts)
	}
	require.Empty(t, reasons)

	require.True(t, s.Stuck(120))
	require.Len(t, reasons, 1)
}

// TestStuckTester_AcceptedEventResetsFailures verifies that only consecutive rejections count.
func TestStuckTester_AcceptedEventResetsFailures(t *testing.T) {
	terminated := false
	s := NewStuckTester(true, true, func(string) { terminated = true })

	for _, ts := range []uint64{100, 105, 110, 115, 1000, 1500, 1510, 1520} {
		s.Stuck(ts)
	}
	require.False(t, terminated)
	require.Equal(t, int64(3), s.Rejected())
}

// TestStuckTester_Disabled verifies that a disabled tester accepts everything.
func TestStuckTester_Disabled(t *testing.T) {
	s := NewStuckTester(false, true, func(string) { t.Fatal("unexpected termination") })
	for i := 0; i < 10; i++ {
		require.False(t, s.Stuck(42))
	}
	require.Zero(t, s.Rejected())
}

// TestStuckTester_SourcesAreIndependent verifies that named sources keep their own derivatives.
func TestStuckTester_SourcesAreIndependent(t *testing.T) {
	s := NewStuckTester(true, false, nil)

	for i := uint64(1); i <= 50; i++ {
		require.False(t, s.StuckFrom("disk", i*i*i+11*i))
		require.False(t, s.StuckFrom("net", i*i*i*3+5*i))
		require.False(t, s.Stuck(i*i*i*7+2*i))
	}
	require.Zero(t, s.Rejected())
}
