package sim

import (
	"hash/fnv"
	"math/rand"
)

// SimulationKey is the master seed of a run. Equal keys and equal bundles
// give equal allocation sequences.
type SimulationKey int64

// NewSimulationKey wraps a --seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// Random streams consumed during a run.
const (
	// SubsystemWorkload drives the synthetic counter noise. It is seeded with
	// the key itself.
	SubsystemWorkload = "workload"

	// SubsystemPartition drives the dynamic policy's axis and direction draws.
	SubsystemPartition = "partition"
)

// PartitionedRNG hands each consumer its own *rand.Rand so that adding draws
// in one stream never shifts another: toggling workload noise leaves the
// dynamic policy's exploration sequence untouched. Single goroutine only.
type PartitionedRNG struct {
	key     SimulationKey
	streams map[string]*rand.Rand
}

// NewPartitionedRNG creates the stream set for key.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{key: key, streams: make(map[string]*rand.Rand)}
}

// ForSubsystem returns the stream for name, creating it on first use.
// Repeated calls return the same instance.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.streams[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(p.seedFor(name)))
	p.streams[name] = rng
	return rng
}

// Key returns the master seed.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// seedFor mixes the stream name into the key with FNV-1a; the workload
// stream keeps the bare key.
func (p *PartitionedRNG) seedFor(name string) int64 {
	if name == SubsystemWorkload {
		return int64(p.key)
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return int64(p.key) ^ int64(h.Sum64())
}
