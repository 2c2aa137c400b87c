package pool

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/zeebo/xxh3"
)

// consecutive rejections tolerated in certified mode
const crngtCount = 3

// Fatal terminates the process after a continuous self-test failure.
func Fatal(reason string) {
	log.Fatal().Str("reason", reason).Msg("entropy source self-test failed")
}

// StuckTester rejects events whose timestamp, or its first or second derivative,
// did not change. Named sources are keyed by the xxh3 hash of their name.
type StuckTester struct {
	enabled   bool
	certified bool
	terminate func(reason string)
	def       stuckState
	sources   sync.Map // uint64 -> *stuckState
	rejected  atomic.Int64
}

type stuckState struct {
	lastTime   atomic.Uint64
	lastDelta  atomic.Uint64
	lastDelta2 atomic.Uint64
	failures   atomic.Int32
}

// NewStuckTester returns a tester. A disabled tester tracks state but accepts every event.
// terminate is called on a certified-mode failure, Fatal when nil.
func NewStuckTester(enabled, certified bool, terminate func(reason string)) *StuckTester {
	if terminate == nil {
		terminate = Fatal
	}
	return &StuckTester{enabled: enabled, certified: certified, terminate: terminate}
}

// Stuck tests an event of the default source.
func (s *StuckTester) Stuck(ts uint64) bool {
	return s.test(&s.def, ts)
}

// StuckFrom tests an event of the named source.
func (s *StuckTester) StuckFrom(source string, ts uint64) bool {
	key := xxh3.HashString(source)
	st, ok := s.sources.Load(key)
	if !ok {
		st, _ = s.sources.LoadOrStore(key, &stuckState{})
	}
	return s.test(st.(*stuckState), ts)
}

func (s *StuckTester) Rejected() int64 {
	return s.rejected.Load()
}

func (s *StuckTester) test(st *stuckState, ts uint64) bool {
	delta := ts - st.lastTime.Swap(ts)
	delta2 := delta - st.lastDelta.Swap(delta)
	delta3 := delta2 - st.lastDelta2.Swap(delta2)

	if !s.enabled {
		return false
	}

	if delta == 0 || delta2 == 0 || delta3 == 0 {
		s.rejected.Add(1)
		if s.certified && st.failures.Add(1) >= crngtCount {
			st.failures.Store(0)
			s.terminate("timing source produced repeated time derivatives")
		}
		return true
	}

	st.failures.Store(0)
	return false
}
