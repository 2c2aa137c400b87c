package pool

const (
	InitEntropyBits    = 32
	MinSeedEntropyBits = 128
)

func (p *Pool) EntropyToEvents(bits uint32) uint32 {
	return uint32(uint64(bits) * uint64(p.irqEntropyBits) / SecurityStrengthBits)
}

func (p *Pool) EventsToEntropy(events uint32) uint32 {
	return uint32(uint64(events) * SecurityStrengthBits / uint64(p.irqEntropyBits))
}

// AvailEntropy is the pooled entropy estimate in bits, capped at the pool size.
func (p *Pool) AvailEntropy() uint32 {
	return min(SizeBits, p.EventsToEntropy(p.events.Load()))
}

// AddEvent counts one accepted raw event and returns the outstanding count.
// The count saturates at the pool capacity.
func (p *Pool) AddEvent() uint32 {
	n := p.events.Add(1)
	if n > p.maxEvents {
		p.events.CompareAndSwap(n, p.maxEvents)
		return p.maxEvents
	}
	return n
}

func (p *Pool) Events() uint32 {
	return p.events.Load()
}

// SetEntropy overwrites the outstanding event count with the equivalent of bits.
func (p *Pool) SetEntropy(bits uint32) {
	p.events.Store(p.EntropyToEvents(min(bits, SizeBits)))
}

// SetEntropyThresh sets the entropy level at which a primary reseed is triggered.
func (p *Pool) SetEntropyThresh(bits uint32) {
	p.thresh.Store(p.EntropyToEvents(bits))
}

func (p *Pool) Thresh() uint32 {
	return p.thresh.Load()
}

// ReseedDue reports whether events outstanding reached the reseed threshold.
func (p *Pool) ReseedDue(events uint32) bool {
	return events >= p.thresh.Load()
}
