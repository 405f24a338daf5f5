package sim

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inference-sim/partition-sim/sim/tracefile"
)

// recordingReporter captures diagnostics instead of panicking, so tests can
// assert on contract violations.
type recordingReporter struct {
	warnings []string
	fatals   []string
}

func (r *recordingReporter) Warnf(format string, args ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

func (r *recordingReporter) Fatalf(format string, args ...any) {
	r.fatals = append(r.fatals, fmt.Sprintf(format, args...))
}

// testGeometry is N tenants sharing pages single-byte pages, so DramSize is
// also the page count.
func testGeometry(tenants int, pages uint64) Geometry {
	return Geometry{Tenants: tenants, PageSize: 1, DramSize: pages}
}

// writeTenantTrace writes a trace where OfflineConfig{Prefix: dir+"/g", Infix: "_t", Suffix: ".csv"} finds it.
func writeTenantTrace(t *testing.T, dir string, group uint, tenant int, records ...tracefile.Record) {
	t.Helper()
	path := testOfflineConfig(dir, PeriodCycles).TracePath(group, tenant)
	require.NoError(t, tracefile.WriteRecords(path, records))
}

func testOfflineConfig(dir string, period PeriodType) OfflineConfig {
	return OfflineConfig{
		Prefix:     filepath.Join(dir, "g"),
		Infix:      "_t",
		Suffix:     ".csv",
		PeriodType: period,
	}
}

// fixedSource replays the same instruction deltas every interval.
type fixedSource struct {
	deltas []uint64
}

func (f *fixedSource) Interval(_ uint64, _ Allocation, _ uint64) []Counter {
	return Counters(f.deltas...)
}

// assertInvariants checks capacity and rate bounds for any policy.
func assertInvariants(t *testing.T, p Partition) {
	t.Helper()
	require.NoError(t, Snapshot(p).Check(p.TotalDramPages()))
}
