package pool

import "sync"

// Hasher digests a snapshot of the pool.
type Hasher interface {
	Digest(data []byte) ([]byte, error)
}

// Extract fills out with hashed pool contents worth at most requestedBits of entropy
// and returns the entropy actually delivered, in whole bytes worth of bits.
//
// Unless drain is set, nothing is extracted when the pool would fall below EmergencyBits.
// Hashing runs with mu held; mu is the primary generator lock.
func (p *Pool) Extract(out []byte, requestedBits uint32, drain bool, h Hasher, mu sync.Locker) uint32 {
	events := p.events.Swap(0)
	avail := min(SizeBits, p.EventsToEntropy(events))
	requestedBits = min(requestedBits, uint32(len(out))*8)

	switch {
	case drain:
		avail = min(avail, requestedBits)
	case requestedBits+EmergencyBits > avail:
		avail = 0
	default:
		avail = requestedBits
	}
	avail -= avail % 8

	if avail > 0 {
		mu.Lock()
		avail = p.hash(out, avail/8, h)
		mu.Unlock()
	}

	// Return unused events, including the ones that arrived meanwhile.
	events += p.events.Swap(0)
	used := p.EntropyToEvents(avail)
	if events > used {
		p.events.Add(min(events-used, p.maxEvents-min(used, p.maxEvents)))
	}

	return avail
}

// hash digests the whole pool repeatedly, mixing every digest back before
// copying it out, and returns the bits produced.
func (p *Pool) hash(out []byte, availBytes uint32, h Hasher) uint32 {
	want := min(int(availBytes), SecurityStrengthBytes, len(out))

	var snap [SizeBytes]byte
	defer clear(snap[:])

	generated := 0
	for generated < want {
		p.snapshot(&snap)
		digest, err := h.Digest(snap[:])
		if err != nil || len(digest) == 0 {
			break
		}
		p.MixBytes(digest)
		generated += copy(out[generated:want], digest)
		clear(digest)
	}
	return uint32(generated) * 8
}
