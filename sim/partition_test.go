package sim

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeometry_TotalDramPages(t *testing.T) {
	assert.Equal(t, uint64(256), Geometry{Tenants: 2, PageSize: 4096, DramSize: 1 << 20}.TotalDramPages())
	assert.Equal(t, uint64(2), Geometry{Tenants: 2, PageSize: 4096, DramSize: 2*4096 + 100}.TotalDramPages(), "partial pages are dropped")
	assert.Equal(t, uint64(0), Geometry{Tenants: 2}.TotalDramPages())
}

func TestAllocation_Check(t *testing.T) {
	tests := []struct {
		name    string
		alloc   Allocation
		wantErr bool
	}{
		{"fits exactly", Allocation{{60, 0.5}, {40, 0.5}}, false},
		{"under capacity", Allocation{{0, 0}, {10, 1}}, false},
		{"over capacity", Allocation{{60, 0.5}, {41, 0.5}}, true},
		{"rate above one", Allocation{{10, 1.01}}, true},
		{"negative rate", Allocation{{10, -0.01}}, true},
		{"nan rate", Allocation{{10, math.NaN()}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.alloc.Check(100)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseFractions(t *testing.T) {
	got, err := parseFractions(" 0.1, 0.2;0.3\t0.4 ", 4)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3, 0.4}, got)

	for _, bad := range []string{"0.5", "0.5,Inf", "0.5,NaN", "0.5,x"} {
		_, err := parseFractions(bad, 2)
		assert.ErrorIs(t, err, ErrConfig, bad)
	}
}

func TestPageSplit_TrimsOvershootFromLastTenant(t *testing.T) {
	pages, err := pageSplit([]float64{0.3334, 0.3334, 0.3334}, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 1, 1}, pages)

	pages, err = pageSplit([]float64{0.5004, 0.5004}, 1000)
	require.NoError(t, err)
	assert.Equal(t, []uint64{500, 500}, pages)
}

func TestFitToCapacity_ScalesProportionally(t *testing.T) {
	rep := &recordingReporter{}
	a := newAllocation(KindStatic, testGeometry(3, 90), rep)
	copy(a.pages, []uint64{60, 60, 60})

	a.fitToCapacity()

	assert.Equal(t, []uint64{30, 30, 30}, a.pages)
	assert.Len(t, rep.warnings, 1)

	a.fitToCapacity()
	assert.Len(t, rep.warnings, 1, "a fitting allocation is left alone")
}

func TestConstructors_NilReporter_DefaultsToLogReporter(t *testing.T) {
	dir := t.TempDir()
	geom := testGeometry(2, 100)
	static, err := NewStaticPartition(StaticConfig{DramFractions: "0.5,0.5", RateFractions: "0.5,0.5"}, geom, nil)
	require.NoError(t, err)
	offline, err := NewOfflinePartition(testOfflineConfig(dir, PeriodCycles), geom, nil)
	require.NoError(t, err)
	dynamic, err := NewDynamicPartition(alwaysMoreRate(), geom, nil, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	for _, p := range []Partition{static, offline, dynamic} {
		t.Run(string(p.Kind()), func(t *testing.T) {
			// A contract violation is reported, not a nil dereference.
			assert.PanicsWithValue(t, "tenant 2 out of range [0,2)", func() { p.Rate(2) })
			assert.PanicsWithValue(t, "got 1 counters for 2 tenants", func() { p.Calculate(10, Counters(1)) })
		})
	}
}
