package sim

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Kind tags the closed set of partition policies.
type Kind string

const (
	KindStatic  Kind = "static"
	KindOffline Kind = "offline"
	KindDynamic Kind = "dynamic"
)

// ErrConfig wraps every configuration error returned by constructors,
// trace registration and bundle validation.
var ErrConfig = errors.New("partition configuration error")

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// FractionTolerance bounds how far page fractions may stray from summing to 1.0.
const FractionTolerance = 1e-3

// Geometry is the immutable memory layout shared by every policy.
type Geometry struct {
	Tenants  int    // number of competing tenants (N)
	PageSize uint64 // bytes per DRAM page
	DramSize uint64 // total DRAM bytes
}

// TotalDramPages is DramSize / PageSize.
func (g Geometry) TotalDramPages() uint64 {
	if g.PageSize == 0 {
		return 0
	}
	return g.DramSize / g.PageSize
}

// Validate checks that the geometry describes at least one tenant and one page.
func (g Geometry) Validate() error {
	if g.Tenants <= 0 {
		return configErrorf("tenant count must be positive, got %d", g.Tenants)
	}
	if g.PageSize == 0 {
		return configErrorf("page size must be positive")
	}
	if g.DramSize < g.PageSize {
		return configErrorf("dram size %d is smaller than one page (%d bytes)", g.DramSize, g.PageSize)
	}
	return nil
}

// Partition decides, once per control interval, how many DRAM pages and what
// fraction of memory bandwidth each tenant receives.
//
// The set of implementations is closed: StaticPartition, OfflinePartition and
// DynamicPartition. Callers that need variant-specific behavior switch on Kind.
// Not safe for concurrent use.
type Partition interface {
	Kind() Kind
	// Calculate advances the policy by one interval of the given length.
	// counters must hold at least NumTenants entries.
	Calculate(cycles uint64, counters []Counter)
	NumTenants() int
	TotalDramPages() uint64
	DramPages(tenant int) uint64
	Rate(tenant int) float64
	// Close releases owned resources (trace readers).
	Close() error

	sealed()
}

// Share is one tenant's slice of the memory system.
type Share struct {
	DramPages uint64
	Rate      float64
}

// Allocation is the per-tenant share vector, indexed by tenant id.
type Allocation []Share

// Snapshot copies the current allocation out of a policy.
func Snapshot(p Partition) Allocation {
	out := make(Allocation, p.NumTenants())
	for i := range out {
		out[i] = Share{DramPages: p.DramPages(i), Rate: p.Rate(i)}
	}
	return out
}

// TotalPages sums DramPages across tenants.
func (a Allocation) TotalPages() uint64 {
	var sum uint64
	for _, s := range a {
		sum += s.DramPages
	}
	return sum
}

// Check verifies the capacity and rate invariants against totalPages.
func (a Allocation) Check(totalPages uint64) error {
	if sum := a.TotalPages(); sum > totalPages {
		return fmt.Errorf("allocated %d pages exceeds capacity %d", sum, totalPages)
	}
	for i, s := range a {
		if s.Rate < 0 || s.Rate > 1 || math.IsNaN(s.Rate) {
			return fmt.Errorf("tenant %d rate %v outside [0,1]", i, s.Rate)
		}
	}
	return nil
}

// allocation holds the state and accessors shared by every policy.
type allocation struct {
	geom       Geometry
	totalPages uint64
	pages      []uint64
	rates      []float64
	reporter   Reporter
}

// newAllocation defaults a nil reporter to a LogReporter tagged with kind.
func newAllocation(kind Kind, geom Geometry, reporter Reporter) allocation {
	if reporter == nil {
		reporter = NewLogReporter(kind)
	}
	return allocation{
		geom:       geom,
		totalPages: geom.TotalDramPages(),
		pages:      make([]uint64, geom.Tenants),
		rates:      make([]float64, geom.Tenants),
		reporter:   reporter,
	}
}

func (a *allocation) sealed() {}

func (a *allocation) NumTenants() int { return a.geom.Tenants }

func (a *allocation) TotalDramPages() uint64 { return a.totalPages }

func (a *allocation) DramPages(tenant int) uint64 {
	if !a.checkTenant(tenant) {
		return 0
	}
	return a.pages[tenant]
}

func (a *allocation) Rate(tenant int) float64 {
	if !a.checkTenant(tenant) {
		return 0
	}
	return a.rates[tenant]
}

func (a *allocation) checkTenant(tenant int) bool {
	if tenant < 0 || tenant >= a.geom.Tenants {
		a.reporter.Fatalf("tenant %d out of range [0,%d)", tenant, a.geom.Tenants)
		return false
	}
	return true
}

func (a *allocation) checkCounters(counters []Counter) bool {
	if len(counters) < a.geom.Tenants {
		a.reporter.Fatalf("got %d counters for %d tenants", len(counters), a.geom.Tenants)
		return false
	}
	return true
}

// fitToCapacity scales page counts down proportionally when they over-commit DRAM.
func (a *allocation) fitToCapacity() {
	var sum uint64
	for _, p := range a.pages {
		sum += p
	}
	if sum <= a.totalPages {
		return
	}
	a.reporter.Warnf("allocation of %d pages exceeds capacity %d; scaling down", sum, a.totalPages)
	scale := float64(a.totalPages) / float64(sum)
	for i, p := range a.pages {
		a.pages[i] = uint64(math.Floor(float64(p) * scale))
	}
}

// parseFractions splits a fraction list on commas, semicolons or whitespace.
func parseFractions(s string, want int) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
	if len(fields) != want {
		return nil, configErrorf("got %d fractions in %q, want %d", len(fields), s, want)
	}
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, configErrorf("fraction %q: %v", f, err)
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, configErrorf("fraction %q must be a non-negative number", f)
		}
		out[i] = v
	}
	return out, nil
}

// pageSplit turns page fractions into page counts, enforcing the sum-to-one rule.
func pageSplit(fractions []float64, totalPages uint64) ([]uint64, error) {
	sum := 0.0
	for _, f := range fractions {
		sum += f
	}
	if math.Abs(sum-1.0) > FractionTolerance {
		return nil, configErrorf("dram fractions sum to %v, want 1.0 (±%v)", sum, FractionTolerance)
	}
	pages := make([]uint64, len(fractions))
	var used uint64
	for i, f := range fractions {
		pages[i] = uint64(math.Floor(f * float64(totalPages)))
		used += pages[i]
	}
	// Rounding within tolerance may still overshoot by a page or so.
	for i := len(pages) - 1; used > totalPages && i >= 0; i-- {
		cut := min(pages[i], used-totalPages)
		pages[i] -= cut
		used -= cut
	}
	return pages, nil
}

func evenFractions(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1.0 / float64(n)
	}
	return out
}

func clampUnit(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
