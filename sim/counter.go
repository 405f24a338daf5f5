package sim

// Counter exposes one tenant's retired-instruction delta for the last interval.
// Policies only read counters; they never mutate them.
type Counter interface {
	Instructions() uint64
}

// InstructionCount is a plain Counter holding a fixed delta.
type InstructionCount uint64

func (c InstructionCount) Instructions() uint64 { return uint64(c) }

// Counters builds a counter slice indexed by tenant id.
func Counters(deltas ...uint64) []Counter {
	out := make([]Counter, len(deltas))
	for i, d := range deltas {
		out[i] = InstructionCount(d)
	}
	return out
}
