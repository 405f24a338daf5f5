package sim

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/partition-sim/sim/tracefile"
)

// PeriodType selects what a trace record boundary is measured in.
type PeriodType string

const (
	PeriodCycles       PeriodType = "cycles"
	PeriodInstructions PeriodType = "instructions"
)

// ValidPeriodTypes is the set of recognized period types.
var ValidPeriodTypes = map[PeriodType]bool{PeriodCycles: true, PeriodInstructions: true}

// TraceNameSeparator splits a trace name into its group and tenant tokens.
const TraceNameSeparator = ":"

// OfflineConfig configures OfflinePartition. A trace named "<group>:<tenant>"
// is read from Prefix + group + Infix + tenant + Suffix.
type OfflineConfig struct {
	Prefix     string     `yaml:"prefix"`
	Infix      string     `yaml:"infix"`
	Suffix     string     `yaml:"suffix"`
	PeriodType PeriodType `yaml:"period_type"`
	// Group selects the record group that drives the allocation.
	// Nil means the smallest registered group.
	Group  *uint    `yaml:"group"`
	Traces []string `yaml:"traces"`
}

// TracePath returns the file a (group, tenant) trace is read from.
func (c OfflineConfig) TracePath(group uint, tenant int) string {
	return c.Prefix + strconv.FormatUint(uint64(group), 10) + c.Infix + strconv.Itoa(tenant) + c.Suffix
}

type traceKey struct {
	group  uint
	tenant int
}

// ParseTraceName splits "<group>:<tenant>" into its tokens.
func ParseTraceName(name string) (group uint, tenant int, err error) {
	g, t, ok := strings.Cut(name, TraceNameSeparator)
	if !ok {
		return 0, 0, configErrorf("trace name %q is not <group>%s<tenant>", name, TraceNameSeparator)
	}
	gv, err := strconv.ParseUint(strings.TrimSpace(g), 10, 32)
	if err != nil {
		return 0, 0, configErrorf("trace name %q: group: %v", name, err)
	}
	tv, err := strconv.ParseUint(strings.TrimSpace(t), 10, 31)
	if err != nil {
		return 0, 0, configErrorf("trace name %q: tenant: %v", name, err)
	}
	return uint(gv), int(tv), nil
}

// traceCursor tracks one reader's progress through its records.
type traceCursor struct {
	key     traceKey
	reader  *tracefile.Reader
	elapsed uint64 // cumulative cycles or instructions seen by this trace

	next       tracefile.Record
	hasNext    bool
	current    tracefile.Record
	hasCurrent bool
}

// pull loads the record after the current one; exhaustion leaves hasNext false.
func (c *traceCursor) pull() error {
	rec, err := c.reader.Next()
	if err != nil {
		c.hasNext = false
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	c.next, c.hasNext = rec, true
	return nil
}

// advance consumes every record whose boundary the cursor has reached.
func (c *traceCursor) advance() error {
	for c.hasNext && c.next.Boundary <= c.elapsed {
		c.current, c.hasCurrent = c.next, true
		logrus.Debugf("offline: group %d tenant %d consumed record at boundary %d (pages=%d, rate=%v)",
			c.key.group, c.key.tenant, c.current.Boundary, c.current.DramPages, c.current.Rate)
		if err := c.pull(); err != nil {
			return err
		}
	}
	return nil
}

// OfflinePartition replays precomputed decisions from per-tenant trace files.
// When a trace is exhausted the tenant keeps its last recorded allocation.
type OfflinePartition struct {
	allocation
	cfg OfflineConfig

	cursors []*traceCursor // arena of registered readers
	index   map[traceKey]int

	group    uint
	groupSet bool
	started  bool // set by the first Calculate; registration is closed after it
	closed   bool
}

// NewOfflinePartition creates an offline policy with no traces registered.
// Register traces with AddCounterTrace before the first Calculate.
func NewOfflinePartition(cfg OfflineConfig, geom Geometry, reporter Reporter) (*OfflinePartition, error) {
	if err := geom.Validate(); err != nil {
		return nil, err
	}
	if !ValidPeriodTypes[cfg.PeriodType] {
		return nil, configErrorf("unknown period type %q", cfg.PeriodType)
	}
	p := &OfflinePartition{
		allocation: newAllocation(KindOffline, geom, reporter),
		cfg:        cfg,
		index:      make(map[traceKey]int),
	}
	if cfg.Group != nil {
		p.group, p.groupSet = *cfg.Group, true
	}
	return p, nil
}

// LoadOfflinePartition creates an offline policy and registers every trace in
// cfg.Traces. A configured Group must have at least one of them. On failure,
// readers opened so far are closed.
func LoadOfflinePartition(cfg OfflineConfig, geom Geometry, reporter Reporter) (*OfflinePartition, error) {
	p, err := NewOfflinePartition(cfg, geom, reporter)
	if err != nil {
		return nil, err
	}
	if err := p.register(cfg.Traces, cfg.Group); err != nil {
		return nil, err
	}
	return p, nil
}

// register adds every named trace and selects group when set. On failure it
// closes the partition, releasing the readers opened so far.
func (p *OfflinePartition) register(names []string, group *uint) error {
	for _, name := range names {
		if err := p.AddCounterTrace(name); err != nil {
			return errors.Join(err, p.Close())
		}
	}
	if group != nil {
		if err := p.SelectGroup(*group); err != nil {
			return errors.Join(err, p.Close())
		}
	}
	return nil
}

func (p *OfflinePartition) Kind() Kind { return KindOffline }

// AddCounterTrace opens and validates the trace for name ("<group>:<tenant>").
// Unreadable or malformed files are reported here, never during Calculate.
// Traces must be registered before the first Calculate.
func (p *OfflinePartition) AddCounterTrace(name string) error {
	if p.closed {
		return fmt.Errorf("adding trace %q: partition is closed", name)
	}
	if p.started {
		return configErrorf("trace %q registered after the first interval", name)
	}
	group, tenant, err := ParseTraceName(name)
	if err != nil {
		return err
	}
	if tenant >= p.geom.Tenants {
		return configErrorf("trace %q: tenant %d out of range [0,%d)", name, tenant, p.geom.Tenants)
	}
	key := traceKey{group: group, tenant: tenant}
	if _, dup := p.index[key]; dup {
		return configErrorf("trace %q registered twice", name)
	}

	reader, err := tracefile.Open(p.cfg.TracePath(group, tenant))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if reader.MaxDramPages() > p.totalPages {
		_ = reader.Close()
		return configErrorf("trace %q requests %d pages, capacity is %d", name, reader.MaxDramPages(), p.totalPages)
	}
	cursor := &traceCursor{key: key, reader: reader}
	if err := cursor.pull(); err != nil {
		_ = reader.Close()
		return fmt.Errorf("%w: trace %q: %w", ErrConfig, name, err)
	}

	p.index[key] = len(p.cursors)
	p.cursors = append(p.cursors, cursor)
	logrus.Debugf("offline: registered %s (%d records) as group %d tenant %d",
		reader.Path(), reader.Len(), group, tenant)
	return nil
}

// Groups returns the registered record groups in ascending order.
func (p *OfflinePartition) Groups() []uint {
	seen := make(map[uint]bool)
	var out []uint
	for _, c := range p.cursors {
		if !seen[c.key.group] {
			seen[c.key.group] = true
			out = append(out, c.key.group)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Group returns the record group currently driving the allocation.
func (p *OfflinePartition) Group() uint {
	p.resolveGroup()
	return p.group
}

// SelectGroup switches the driving record group. Every group's readers advance
// in lockstep, so the switch takes effect at the group's current record.
func (p *OfflinePartition) SelectGroup(group uint) error {
	found := false
	for _, c := range p.cursors {
		if c.key.group == group {
			found = true
			break
		}
	}
	if !found {
		return configErrorf("record group %d has no registered traces", group)
	}
	p.group, p.groupSet = group, true
	p.apply()
	return nil
}

func (p *OfflinePartition) resolveGroup() {
	if p.groupSet {
		return
	}
	if groups := p.Groups(); len(groups) > 0 {
		p.group, p.groupSet = groups[0], true
	}
}

// Calculate adds this interval's period to every trace and consumes the
// records whose boundaries have been reached.
func (p *OfflinePartition) Calculate(cycles uint64, counters []Counter) {
	if !p.checkCounters(counters) {
		return
	}
	if len(p.cursors) == 0 {
		p.reporter.Fatalf("offline partition has no registered traces")
		return
	}
	if p.closed {
		p.reporter.Fatalf("offline partition used after Close")
		return
	}
	p.started = true
	for _, c := range p.cursors {
		if p.cfg.PeriodType == PeriodInstructions {
			c.elapsed += counters[c.key.tenant].Instructions()
		} else {
			c.elapsed += cycles
		}
		if err := c.advance(); err != nil {
			p.reporter.Warnf("trace %s: %v; holding last record", c.reader.Path(), err)
		}
	}
	p.apply()
}

// apply rebuilds the allocation from the driving group's current records.
// Tenants with no consumed record yet stay unset.
func (p *OfflinePartition) apply() {
	p.resolveGroup()
	for t := range p.pages {
		p.pages[t], p.rates[t] = 0, 0
	}
	for _, c := range p.cursors {
		if c.key.group != p.group || !c.hasCurrent {
			continue
		}
		p.pages[c.key.tenant] = c.current.DramPages
		p.rates[c.key.tenant] = clampUnit(c.current.Rate)
	}
	p.fitToCapacity()
}

// Close closes every registered reader exactly once.
func (p *OfflinePartition) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	var errs []error
	for _, c := range p.cursors {
		if err := c.reader.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", c.reader.Path(), err))
		}
	}
	return errors.Join(errs...)
}
