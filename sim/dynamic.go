package sim

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
)

// MaxProb is the fixed-point scale of the dynamic policy's probabilities.
const MaxProb = 10000

// Tenant roles in the dynamic policy. Tenants beyond these two keep their
// initial share for the whole run.
const (
	HighPriorityTenant = 0
	LowPriorityTenant  = 1
)

// DynamicConfig configures DynamicPartition.
type DynamicConfig struct {
	RateGran   float64 `yaml:"rate_gran"`  // rate moved per step, in (0,1]
	SpaceGran  uint64  `yaml:"space_gran"` // pages moved per step
	Constraint float64 `yaml:"constraint"` // floor on the low-priority tenant's rate and page share

	RateProb      int `yaml:"rate_prob"`       // chance (of MaxProb) that a step adjusts rate rather than space
	MoreRateProb  int `yaml:"more_rate_prob"`  // chance a rate step favors the high-priority tenant
	MoreSpaceProb int `yaml:"more_space_prob"` // chance a space step favors the high-priority tenant

	// Tolerance is the relative IPC drop of the high-priority tenant that
	// triggers a rollback of the last step.
	Tolerance float64 `yaml:"tolerance"`

	// Initial split; empty means an even split across tenants.
	InitialDramFractions string `yaml:"initial_dram_fractions"`
	InitialRateFractions string `yaml:"initial_rate_fractions"`
}

// Validate checks parameter ranges that do not depend on the geometry.
func (c DynamicConfig) Validate() error {
	if !(c.RateGran > 0 && c.RateGran <= 1) {
		return configErrorf("rate_gran must be in (0,1], got %v", c.RateGran)
	}
	if c.SpaceGran == 0 {
		return configErrorf("space_gran must be positive")
	}
	if !(c.Constraint >= 0 && c.Constraint <= 1) {
		return configErrorf("constraint must be in [0,1], got %v", c.Constraint)
	}
	probs := []struct {
		name string
		v    int
	}{
		{"rate_prob", c.RateProb},
		{"more_rate_prob", c.MoreRateProb},
		{"more_space_prob", c.MoreSpaceProb},
	}
	for _, pr := range probs {
		if pr.v < 0 || pr.v > MaxProb {
			return configErrorf("%s must be in [0,%d], got %d", pr.name, MaxProb, pr.v)
		}
	}
	if !(c.Tolerance >= 0 && c.Tolerance < 1) {
		return configErrorf("tolerance must be in [0,1), got %v", c.Tolerance)
	}
	return nil
}

// DynamicState is the controller's position in its explore/evaluate cycle.
type DynamicState int

const (
	// DynamicHold: no step is pending evaluation.
	DynamicHold DynamicState = iota
	// DynamicExploring: a step was applied and is judged next interval.
	DynamicExploring
	// DynamicReverting: the last step was rolled back this interval.
	DynamicReverting
)

func (s DynamicState) String() string {
	switch s {
	case DynamicHold:
		return "hold"
	case DynamicExploring:
		return "exploring"
	case DynamicReverting:
		return "reverting"
	default:
		return fmt.Sprintf("DynamicState(%d)", int(s))
	}
}

// Action names what a Calculate call did to the allocation.
type Action string

const (
	ActionNone     Action = "none"     // no dynamic decision (static/offline, or no interval yet)
	ActionHold     Action = "hold"     // empty interval, nothing measured
	ActionExplore  Action = "explore"  // a step was applied
	ActionReject   Action = "reject"   // the drawn step would break a bound
	ActionRollback Action = "rollback" // the previous step was undone
)

// Decision is the kind of the most recent exploration step.
type Decision struct {
	Rate      bool // adjusted rate rather than space
	MoreRate  bool // last rate step favored the high-priority tenant
	MoreSpace bool // last space step favored the high-priority tenant
}

// DynamicPartition is a stochastic hill climber over (pages, rate) for a
// high-priority tenant and a constrained low-priority tenant. Each interval
// it judges the previous step by the high-priority tenant's IPC, keeps or
// rolls it back, then tries a new one-granule step.
type DynamicPartition struct {
	allocation
	cfg DynamicConfig
	rng *rand.Rand

	prevPages       []uint64
	prevRates       []float64
	previousMetrics []float64

	decision   Decision
	state      DynamicState
	lastAction Action
}

// NewDynamicPartition builds the controller at its initial split.
// rng drives the exploration draws and must not be shared with other consumers.
func NewDynamicPartition(cfg DynamicConfig, geom Geometry, reporter Reporter, rng *rand.Rand) (*DynamicPartition, error) {
	if err := geom.Validate(); err != nil {
		return nil, err
	}
	if geom.Tenants < 2 {
		return nil, configErrorf("dynamic partition needs at least 2 tenants, got %d", geom.Tenants)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("dynamic partition: nil rng")
	}

	p := &DynamicPartition{
		allocation:      newAllocation(KindDynamic, geom, reporter),
		cfg:             cfg,
		rng:             rng,
		prevPages:       make([]uint64, geom.Tenants),
		prevRates:       make([]float64, geom.Tenants),
		previousMetrics: make([]float64, geom.Tenants),
		state:           DynamicHold,
		lastAction:      ActionNone,
	}
	if cfg.SpaceGran > p.totalPages {
		return nil, configErrorf("space_gran %d exceeds capacity of %d pages", cfg.SpaceGran, p.totalPages)
	}

	dram, rate := evenFractions(geom.Tenants), evenFractions(geom.Tenants)
	var err error
	if cfg.InitialDramFractions != "" {
		if dram, err = parseFractions(cfg.InitialDramFractions, geom.Tenants); err != nil {
			return nil, err
		}
	}
	if cfg.InitialRateFractions != "" {
		if rate, err = parseFractions(cfg.InitialRateFractions, geom.Tenants); err != nil {
			return nil, err
		}
	}
	pages, err := pageSplit(dram, p.totalPages)
	if err != nil {
		return nil, err
	}
	reserveLowPriority(pages, dram[LowPriorityTenant], p.totalPages)
	copy(p.pages, pages)
	for i, r := range rate {
		p.rates[i] = clampUnit(r)
	}
	if p.rates[LowPriorityTenant] < cfg.Constraint || p.pageShare(p.pages[LowPriorityTenant]) < cfg.Constraint {
		return nil, configErrorf("initial low-priority share (rate=%v, pages=%d) is below constraint %v",
			p.rates[LowPriorityTenant], p.pages[LowPriorityTenant], cfg.Constraint)
	}
	copy(p.prevPages, p.pages)
	copy(p.prevRates, p.rates)
	return p, nil
}

func (p *DynamicPartition) Kind() Kind { return KindDynamic }

func (p *DynamicPartition) Close() error { return nil }

// State returns the controller state after the last Calculate.
func (p *DynamicPartition) State() DynamicState { return p.state }

// LastAction returns what the last Calculate did.
func (p *DynamicPartition) LastAction() Action { return p.lastAction }

// LastDecision returns the kind of the most recent exploration step.
func (p *DynamicPartition) LastDecision() Decision { return p.decision }

// PreviousMetrics returns a copy of the per-tenant IPC stored as the baseline
// for judging the pending step.
func (p *DynamicPartition) PreviousMetrics() []float64 {
	out := make([]float64, len(p.previousMetrics))
	copy(out, p.previousMetrics)
	return out
}

// Calculate judges the previous step against this interval's IPC and, unless
// it rolled back, explores one new step.
func (p *DynamicPartition) Calculate(cycles uint64, counters []Counter) {
	if !p.checkCounters(counters) {
		return
	}
	if cycles == 0 {
		// Nothing was measured; a pending step stays pending.
		p.lastAction = ActionHold
		return
	}

	metrics := make([]float64, p.geom.Tenants)
	for i := range metrics {
		metrics[i] = float64(counters[i].Instructions()) / float64(cycles)
	}

	if p.state == DynamicExploring && p.degraded(metrics) {
		copy(p.pages, p.prevPages)
		copy(p.rates, p.prevRates)
		copy(p.previousMetrics, metrics)
		p.state, p.lastAction = DynamicReverting, ActionRollback
		logrus.Debugf("dynamic: rollback, high-priority IPC %.4f below baseline", metrics[HighPriorityTenant])
		return
	}

	copy(p.previousMetrics, metrics)
	p.explore()
}

func (p *DynamicPartition) degraded(metrics []float64) bool {
	baseline := p.previousMetrics[HighPriorityTenant]
	return metrics[HighPriorityTenant] < baseline*(1-p.cfg.Tolerance)
}

// explore snapshots the allocation and draws one step; a step that would
// break a bound leaves the allocation as it was.
func (p *DynamicPartition) explore() {
	copy(p.prevPages, p.pages)
	copy(p.prevRates, p.rates)

	var applied bool
	if p.rng.Intn(MaxProb) < p.cfg.RateProb {
		more := p.rng.Intn(MaxProb) < p.cfg.MoreRateProb
		p.decision.Rate, p.decision.MoreRate = true, more
		applied = p.stepRate(more)
	} else {
		more := p.rng.Intn(MaxProb) < p.cfg.MoreSpaceProb
		p.decision.Rate, p.decision.MoreSpace = false, more
		applied = p.stepSpace(more)
	}

	if applied {
		p.state, p.lastAction = DynamicExploring, ActionExplore
	} else {
		p.state, p.lastAction = DynamicHold, ActionReject
	}
	logrus.Debugf("dynamic: %s %+v -> pages=%v rates=%v", p.lastAction, p.decision, p.pages, p.rates)
}

// stepRate moves RateGran of bandwidth toward the high-priority tenant when
// more is set, toward the low-priority tenant otherwise.
func (p *DynamicPartition) stepRate(more bool) bool {
	delta := p.cfg.RateGran
	if !more {
		delta = -delta
	}
	hi := roundRate(p.rates[HighPriorityTenant] + delta)
	lo := roundRate(p.rates[LowPriorityTenant] - delta)
	if hi < 0 || hi > 1 || lo > 1 || lo < p.cfg.Constraint {
		return false
	}
	p.rates[HighPriorityTenant], p.rates[LowPriorityTenant] = hi, lo
	return true
}

// stepSpace moves SpaceGran pages between the two tenants.
func (p *DynamicPartition) stepSpace(more bool) bool {
	gran := p.cfg.SpaceGran
	hi, lo := p.pages[HighPriorityTenant], p.pages[LowPriorityTenant]
	if more {
		if lo < gran || p.pageShare(lo-gran) < p.cfg.Constraint {
			return false
		}
		hi, lo = hi+gran, lo-gran
	} else {
		if hi < gran {
			return false
		}
		hi, lo = hi-gran, lo+gran
	}
	if hi > p.totalPages || lo > p.totalPages {
		return false
	}
	p.pages[HighPriorityTenant], p.pages[LowPriorityTenant] = hi, lo
	return true
}

// reserveLowPriority hands unallocated pages left by flooring to the
// low-priority tenant, up to the ceiling of its configured fraction, so a
// fraction equal to the constraint still meets it.
func reserveLowPriority(pages []uint64, fraction float64, totalPages uint64) {
	var used uint64
	for _, n := range pages {
		used += n
	}
	want := uint64(math.Ceil(fraction*float64(totalPages) - 1e-9))
	if low := pages[LowPriorityTenant]; want > low && used < totalPages {
		pages[LowPriorityTenant] += min(want-low, totalPages-used)
	}
}

func (p *DynamicPartition) pageShare(pages uint64) float64 {
	return float64(pages) / float64(p.totalPages)
}

// roundRate trims float drift so repeated steps land on exact granules.
func roundRate(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}
