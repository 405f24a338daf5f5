package sim

// StaticConfig holds the fixed split for StaticPartition.
type StaticConfig struct {
	DramFractions string `yaml:"dram_fractions"` // one page fraction per tenant, summing to 1.0
	RateFractions string `yaml:"rate_fractions"` // one bandwidth fraction per tenant
}

// StaticPartition applies a fixed split parsed once at construction.
// It is the baseline against which the adaptive policies are compared.
type StaticPartition struct {
	allocation
}

// NewStaticPartition parses the fraction lists into an immutable allocation.
// Returns an ErrConfig-wrapped error when a list has the wrong length, holds a
// negative value, or the page fractions do not sum to 1.0.
func NewStaticPartition(cfg StaticConfig, geom Geometry, reporter Reporter) (*StaticPartition, error) {
	if err := geom.Validate(); err != nil {
		return nil, err
	}
	dram, err := parseFractions(cfg.DramFractions, geom.Tenants)
	if err != nil {
		return nil, err
	}
	rate, err := parseFractions(cfg.RateFractions, geom.Tenants)
	if err != nil {
		return nil, err
	}

	p := &StaticPartition{allocation: newAllocation(KindStatic, geom, reporter)}
	pages, err := pageSplit(dram, p.totalPages)
	if err != nil {
		return nil, err
	}
	copy(p.pages, pages)
	for i, r := range rate {
		p.rates[i] = clampUnit(r)
	}
	return p, nil
}

func (p *StaticPartition) Kind() Kind { return KindStatic }

// Calculate checks the counter contract and otherwise leaves the split untouched.
func (p *StaticPartition) Calculate(_ uint64, counters []Counter) {
	p.checkCounters(counters)
}

func (p *StaticPartition) Close() error { return nil }
