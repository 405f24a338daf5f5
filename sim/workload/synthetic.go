// Package workload generates synthetic per-tenant instruction counters whose
// throughput responds to the tenant's DRAM page and bandwidth share.
package workload

import (
	"math"
	"math/rand"

	"github.com/inference-sim/partition-sim/sim"
)

// Synthetic is a sim.CounterSource with a linear IPC response model:
//
//	ipc = base × (1 + rateSens × (rate − 1/N) + spaceSens × (pageShare − 1/N))
//
// scaled by (1 + noise × Z), Z standard normal, and clamped at zero.
type Synthetic struct {
	base, rateSens, spaceSens []float64
	noise                     float64
	rng                       *rand.Rand
}

// NewSynthetic builds a source for the given tenant count. cfg must already
// be validated against tenants.
func NewSynthetic(cfg sim.WorkloadConfig, tenants int, rng *rand.Rand) *Synthetic {
	return &Synthetic{
		base:      orDefault(cfg.BaseIPC, tenants, 1.0),
		rateSens:  orDefault(cfg.RateSensitivity, tenants, 0),
		spaceSens: orDefault(cfg.SpaceSensitivity, tenants, 0),
		noise:     cfg.Noise,
		rng:       rng,
	}
}

func orDefault(v []float64, n int, def float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i < len(v) {
			out[i] = v[i]
		} else {
			out[i] = def
		}
	}
	return out
}

// ExpectedIPC returns a tenant's noise-free IPC under share.
func (s *Synthetic) ExpectedIPC(tenant int, share sim.Share, totalPages uint64) float64 {
	even := 1.0 / float64(len(s.base))
	pageShare := 0.0
	if totalPages > 0 {
		pageShare = float64(share.DramPages) / float64(totalPages)
	}
	gain := 1 + s.rateSens[tenant]*(share.Rate-even) + s.spaceSens[tenant]*(pageShare-even)
	return math.Max(0, s.base[tenant]*gain)
}

// Interval returns one instruction counter per tenant for an interval of cycles.
func (s *Synthetic) Interval(cycles uint64, alloc sim.Allocation, totalPages uint64) []sim.Counter {
	out := make([]sim.Counter, len(s.base))
	for t := range out {
		var share sim.Share
		if t < len(alloc) {
			share = alloc[t]
		}
		ipc := s.ExpectedIPC(t, share, totalPages)
		if s.noise > 0 && s.rng != nil {
			ipc = math.Max(0, ipc*(1+s.noise*s.rng.NormFloat64()))
		}
		out[t] = sim.InstructionCount(math.Round(ipc * float64(cycles)))
	}
	return out
}
