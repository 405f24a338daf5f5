package sim

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PartitionBundle holds a complete partitioning run configuration, loadable from YAML.
// Only the section matching Policy is used; the others may be left empty.
type PartitionBundle struct {
	Policy   Kind           `yaml:"policy"`
	Tenants  int            `yaml:"tenants"`
	PageSize uint64         `yaml:"page_size"`
	DramSize uint64         `yaml:"dram_size"`
	Static   StaticConfig   `yaml:"static"`
	Offline  OfflineConfig  `yaml:"offline"`
	Dynamic  DynamicConfig  `yaml:"dynamic"`
	Workload WorkloadConfig `yaml:"workload"`
}

// Geometry returns the memory layout described by the bundle.
func (b *PartitionBundle) Geometry() Geometry {
	return Geometry{Tenants: b.Tenants, PageSize: b.PageSize, DramSize: b.DramSize}
}

// LoadPartitionBundle reads and parses a YAML partition configuration file.
// Unknown fields are rejected so typos surface as errors.
func LoadPartitionBundle(path string) (*PartitionBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading partition config: %w", err)
	}
	var bundle PartitionBundle
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&bundle); err != nil {
		return nil, fmt.Errorf("%w: parsing partition config: %v", ErrConfig, err)
	}
	return &bundle, nil
}

// ValidPolicies is the set of recognized partition policy names.
// Shared by Validate() and NewPartition() to avoid duplication.
var ValidPolicies = map[Kind]bool{KindStatic: true, KindOffline: true, KindDynamic: true}

// IsValidPolicy returns true if name is a recognized partition policy.
func IsValidPolicy(name string) bool {
	return ValidPolicies[Kind(name)]
}

// Validate checks the policy name, geometry and the selected policy's parameter ranges.
// Fraction lists and trace files are checked when the policy is constructed.
func (b *PartitionBundle) Validate() error {
	if !ValidPolicies[b.Policy] {
		return configErrorf("unknown partition policy %q", b.Policy)
	}
	if err := b.Geometry().Validate(); err != nil {
		return err
	}
	switch b.Policy {
	case KindStatic:
		if b.Static.DramFractions == "" || b.Static.RateFractions == "" {
			return configErrorf("static policy needs dram_fractions and rate_fractions")
		}
	case KindOffline:
		if !ValidPeriodTypes[b.Offline.PeriodType] {
			return configErrorf("unknown period type %q", b.Offline.PeriodType)
		}
		if len(b.Offline.Traces) == 0 {
			return configErrorf("offline policy needs at least one trace")
		}
	case KindDynamic:
		if err := b.Dynamic.Validate(); err != nil {
			return err
		}
	}
	return b.Workload.Validate(b.Tenants)
}

// NewPartition validates the bundle and constructs the selected policy.
// A nil reporter logs through logrus. rng seeds the dynamic policy's
// exploration stream and is unused by the other policies.
func NewPartition(b *PartitionBundle, reporter Reporter, rng *PartitionedRNG) (Partition, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if reporter == nil {
		reporter = NewLogReporter(b.Policy)
	}
	// Each case checks err itself so a failed constructor never yields a
	// non-nil interface holding a nil pointer.
	switch b.Policy {
	case KindStatic:
		p, err := NewStaticPartition(b.Static, b.Geometry(), reporter)
		if err != nil {
			return nil, err
		}
		return p, nil
	case KindOffline:
		p, err := LoadOfflinePartition(b.Offline, b.Geometry(), reporter)
		if err != nil {
			return nil, err
		}
		return p, nil
	case KindDynamic:
		p, err := NewDynamicPartition(b.Dynamic, b.Geometry(), reporter, rng.ForSubsystem(SubsystemPartition))
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		panic(fmt.Sprintf("unhandled partition policy %q", b.Policy))
	}
}
