// sim/simulator.go
package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/partition-sim/sim/trace"
)

// CounterSource produces per-tenant instruction counters for one interval,
// given the allocation in force while it ran.
type CounterSource interface {
	Interval(cycles uint64, alloc Allocation, totalPages uint64) []Counter
}

// SimulatorConfig controls the interval loop.
type SimulatorConfig struct {
	Intervals      int    // number of control intervals to run
	IntervalCycles uint64 // simulated cycles per interval
	Trace          trace.TraceConfig
}

// Simulator is the driver: it owns the interval loop, asks the counter source
// for each interval's counters, and hands them to the partition policy.
type Simulator struct {
	Policy  Partition
	Source  CounterSource
	Metrics *Metrics
	Trace   *trace.SimulationTrace

	// Interval is the number of completed intervals; Cycles the elapsed cycles.
	Interval int
	Cycles   uint64

	cfg SimulatorConfig
}

// NewSimulator wires a policy to a counter source.
func NewSimulator(policy Partition, source CounterSource, cfg SimulatorConfig) (*Simulator, error) {
	if policy == nil || source == nil {
		return nil, fmt.Errorf("simulator needs a policy and a counter source")
	}
	if cfg.IntervalCycles == 0 {
		return nil, configErrorf("interval cycles must be positive")
	}
	if cfg.Intervals < 0 {
		return nil, configErrorf("interval count must be non-negative, got %d", cfg.Intervals)
	}
	if !trace.IsValidTraceLevel(string(cfg.Trace.Level)) {
		return nil, configErrorf("unknown trace level %q", cfg.Trace.Level)
	}
	return &Simulator{
		Policy:  policy,
		Source:  source,
		Metrics: NewMetrics(policy.Kind(), policy.NumTenants(), policy.TotalDramPages()),
		Trace:   trace.NewSimulationTrace(cfg.Trace),
		cfg:     cfg,
	}, nil
}

// Step runs one control interval. It returns an error if the policy leaves
// the allocation in violation of the capacity or rate invariants.
func (s *Simulator) Step() error {
	total := s.Policy.TotalDramPages()
	cycles := s.cfg.IntervalCycles
	counters := s.Source.Interval(cycles, Snapshot(s.Policy), total)

	s.Policy.Calculate(cycles, counters)
	s.Cycles += cycles

	alloc := Snapshot(s.Policy)
	if len(counters) < len(alloc) {
		return fmt.Errorf("interval %d: counter source returned %d counters for %d tenants", s.Interval, len(counters), len(alloc))
	}
	if err := alloc.Check(total); err != nil {
		return fmt.Errorf("interval %d: %w", s.Interval, err)
	}

	action := ActionNone
	if d, ok := s.Policy.(*DynamicPartition); ok {
		action = d.LastAction()
		s.Metrics.Actions[action]++
	}

	ipc := make([]float64, len(alloc))
	for i := range alloc {
		n := counters[i].Instructions()
		s.Metrics.TotalInstructions[i] += n
		ipc[i] = float64(n) / float64(cycles)
	}
	s.Trace.RecordAllocation(trace.AllocationRecord{
		Interval:  s.Interval,
		Cycles:    s.Cycles,
		Policy:    string(s.Policy.Kind()),
		Action:    string(action),
		DramPages: pagesOf(alloc),
		Rates:     ratesOf(alloc),
		IPC:       ipc,
	})
	logrus.Debugf("[interval %05d] %s pages=%v rates=%v", s.Interval, action, pagesOf(alloc), ratesOf(alloc))

	s.Interval++
	return nil
}

// Run executes the configured number of intervals and finalizes Metrics.
func (s *Simulator) Run() error {
	logrus.Infof("Starting %s partitioning: %d tenants, %d pages, %d intervals of %d cycles",
		s.Policy.Kind(), s.Policy.NumTenants(), s.Policy.TotalDramPages(), s.cfg.Intervals, s.cfg.IntervalCycles)
	for s.Interval < s.cfg.Intervals {
		if err := s.Step(); err != nil {
			return err
		}
	}
	s.Metrics.Intervals = s.Interval
	s.Metrics.TotalCycles = s.Cycles
	final := Snapshot(s.Policy)
	s.Metrics.FinalDramPages = pagesOf(final)
	s.Metrics.FinalRates = ratesOf(final)
	logrus.Infof("Partitioning ended after %d intervals (%d cycles)", s.Interval, s.Cycles)
	return nil
}

func pagesOf(a Allocation) []uint64 {
	out := make([]uint64, len(a))
	for i, s := range a {
		out[i] = s.DramPages
	}
	return out
}

func ratesOf(a Allocation) []float64 {
	out := make([]float64, len(a))
	for i, s := range a {
		out[i] = s.Rate
	}
	return out
}
