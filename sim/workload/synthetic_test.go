package workload

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/partition-sim/sim"
)

func TestSynthetic_Defaults_EvenSplitGivesBaseIPC(t *testing.T) {
	// GIVEN a noise-free source with default parameters
	s := NewSynthetic(sim.WorkloadConfig{}, 2, nil)
	alloc := sim.Allocation{{DramPages: 50, Rate: 0.5}, {DramPages: 50, Rate: 0.5}}

	// WHEN an interval of 1000 cycles runs
	counters := s.Interval(1000, alloc, 100)

	// THEN each tenant retires base IPC (1.0) × cycles
	require.Len(t, counters, 2)
	assert.Equal(t, uint64(1000), counters[0].Instructions())
	assert.Equal(t, uint64(1000), counters[1].Instructions())
}

func TestSynthetic_ExpectedIPC_RespondsToShare(t *testing.T) {
	s := NewSynthetic(sim.WorkloadConfig{
		BaseIPC:          []float64{2, 1},
		RateSensitivity:  []float64{1, 0},
		SpaceSensitivity: []float64{0.5, 0},
	}, 2, nil)

	even := s.ExpectedIPC(0, sim.Share{DramPages: 50, Rate: 0.5}, 100)
	moreRate := s.ExpectedIPC(0, sim.Share{DramPages: 50, Rate: 0.7}, 100)
	moreSpace := s.ExpectedIPC(0, sim.Share{DramPages: 70, Rate: 0.5}, 100)

	assert.InDelta(t, 2.0, even, 1e-12)
	assert.InDelta(t, 2.4, moreRate, 1e-12)
	assert.InDelta(t, 2.2, moreSpace, 1e-12)
	assert.InDelta(t, 1.0, s.ExpectedIPC(1, sim.Share{DramPages: 10, Rate: 0.1}, 100), 1e-12, "insensitive tenant")
}

func TestSynthetic_ExpectedIPC_ClampsAtZero(t *testing.T) {
	s := NewSynthetic(sim.WorkloadConfig{RateSensitivity: []float64{10, 10}}, 2, nil)
	assert.Equal(t, 0.0, s.ExpectedIPC(0, sim.Share{Rate: 0}, 100))
}

func TestSynthetic_Noise_DeterministicPerSeed(t *testing.T) {
	cfg := sim.WorkloadConfig{Noise: 0.1}
	alloc := sim.Allocation{{DramPages: 50, Rate: 0.5}, {DramPages: 50, Rate: 0.5}}
	a := NewSynthetic(cfg, 2, rand.New(rand.NewSource(3)))
	b := NewSynthetic(cfg, 2, rand.New(rand.NewSource(3)))

	for i := 0; i < 10; i++ {
		ca, cb := a.Interval(1000, alloc, 100), b.Interval(1000, alloc, 100)
		for t2 := range ca {
			assert.Equal(t, ca[t2].Instructions(), cb[t2].Instructions())
		}
	}
}

func TestSynthetic_ShortAllocation_TreatsMissingTenantsAsUnset(t *testing.T) {
	s := NewSynthetic(sim.WorkloadConfig{RateSensitivity: []float64{0, 2}}, 2, nil)
	counters := s.Interval(100, sim.Allocation{{DramPages: 50, Rate: 0.5}}, 100)
	require.Len(t, counters, 2)
	assert.Equal(t, uint64(0), counters[1].Instructions())
}
