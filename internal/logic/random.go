package logic

// Random is a linear congruential byte generator. It is deterministic for a
// given seed and must only be used from the dispatcher's goroutine.
type Random struct {
	seed uint32
}

// Seed sets the generator state from two counter snapshots.
func (r *Random) Seed(a, b uint32) {
	r.seed = a ^ b
}

// SeedFrom reads two free-running counters and seeds from their values.
func (r *Random) SeedFrom(a, b Counter) {
	r.Seed(a.Count(), b.Count())
}

// NextByte advances the generator and returns bits 16..23 of the new state.
func (r *Random) NextByte() uint8 {
	r.seed = r.seed*1103515245 + 12345
	return uint8(r.seed >> 16)
}
