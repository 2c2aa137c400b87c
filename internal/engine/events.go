package engine

// readWakeupMask selects the pool positions at which readers may be woken.
const readWakeupMask = 0x3f

// OnTimingEvent feeds an event of the default source: its timestamp and any
// context words captured with it. It never blocks.
func (e *Engine) OnTimingEvent(ts uint64, words ...uint32) {
	if e.stuck.Stuck(ts) {
		return
	}
	e.mix(ts, words)
}

// OnSourceEvent is OnTimingEvent for a named source with its own self-test state.
func (e *Engine) OnSourceEvent(source string, ts uint64, words ...uint32) {
	if e.stuck.StuckFrom(source, ts) {
		return
	}
	e.mix(ts, words)
}

func (e *Engine) mix(ts uint64, words []uint32) {
	e.pool.MixWord(uint32(ts))
	for _, w := range words {
		e.pool.MixWord(w)
	}
	e.mixin(e.pool.AddEvent())
}

// AddDeviceRandomness mixes device or boot specific data without credit.
func (e *Engine) AddDeviceRandomness(buf []byte) {
	e.pool.MixBytes(buf)
	ts := e.timestamp()
	e.pool.MixWord(uint32(ts))
	e.pool.MixWord(uint32(ts >> 32))
}

// AddInputRandomness mixes an input device event and its time without credit.
// Repeated values (autorepeat) are ignored.
func (e *Engine) AddInputRandomness(kind, code, value uint32) {
	if e.lastInput.Swap(value) == value {
		return
	}
	e.pool.MixWord((kind << 4) ^ code ^ (code >> 4) ^ value)
	e.pool.MixWord(uint32(e.timestamp()))
}

// mixin runs after every accepted event with the outstanding event count.
func (e *Engine) mixin(events uint32) {
	if e.pool.Ptr()&readWakeupMask == 0 &&
		events >= e.pool.EntropyToEvents(e.cfg.Pool.ReadWakeupBits) &&
		e.readQ.hasSleeper() {
		e.readQ.broadcast()
	}

	// Once every secondary is fully seeded, events no longer trigger reseeds.
	if e.table.AllSeeded() || !e.armed.Load() {
		return
	}
	if !e.pool.ReseedDue(events) {
		return
	}
	e.trigger()
}

// trigger hands seed work to the reseeder while holding the gate.
// Whoever loses the gate race simply leaves it to the current holder.
func (e *Engine) trigger() {
	gate := e.primary.Gate()
	if !gate.TryAcquire() {
		return
	}
	if !e.worker.Schedule() {
		gate.Release()
	}
}

// seedWork runs on the reseeder with the gate held by trigger.
func (e *Engine) seedWork() {
	defer e.primary.Gate().Release()
	e.table.SeedWork()
}

// recheck catches a threshold crossed while the gate was busy and not crossed
// again since because no event arrived.
func (e *Engine) recheck() {
	if !e.armed.Load() || e.table.AllSeeded() {
		return
	}
	if e.pool.ReseedDue(e.pool.Events()) {
		e.trigger()
	}
}
