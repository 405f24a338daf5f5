package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize_NilTrace_ReturnsZeroValue(t *testing.T) {
	summary := Summarize(nil, 100)
	assert.Equal(t, 0, summary.TotalIntervals)
	assert.NotNil(t, summary.ActionCounts)
	assert.Empty(t, summary.MeanRate)
}

func TestSummarize_ComputesPerTenantStatistics(t *testing.T) {
	// GIVEN three intervals for two tenants
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})
	st.RecordAllocation(AllocationRecord{Action: "explore", DramPages: []uint64{50, 50}, Rates: []float64{0.5, 0.5}, IPC: []float64{1, 2}})
	st.RecordAllocation(AllocationRecord{Action: "explore", DramPages: []uint64{60, 40}, Rates: []float64{0.6, 0.4}, IPC: []float64{2, 2}})
	st.RecordAllocation(AllocationRecord{Action: "rollback", DramPages: []uint64{70, 30}, Rates: []float64{0.7, 0.3}, IPC: []float64{3, 2}})

	// WHEN summarized against 100 pages
	summary := Summarize(st, 100)

	// THEN counts and means reflect the records
	assert.Equal(t, 3, summary.TotalIntervals)
	assert.Equal(t, 2, summary.ActionCounts["explore"])
	assert.Equal(t, 1, summary.ActionCounts["rollback"])
	assert.InDelta(t, 0.6, summary.MeanDramShare[0], 1e-12)
	assert.InDelta(t, 0.4, summary.MeanDramShare[1], 1e-12)
	assert.InDelta(t, 0.6, summary.MeanRate[0], 1e-12)
	assert.InDelta(t, 0.1, summary.StdDevRate[0], 1e-12)
	assert.InDelta(t, 2.0, summary.MeanIPC[0], 1e-12)
	assert.InDelta(t, 1.0, summary.StdDevIPC[0], 1e-12)
	assert.InDelta(t, 0.0, summary.StdDevIPC[1], 1e-12)
}

func TestSummarize_SingleInterval_ZeroDeviation(t *testing.T) {
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})
	st.RecordAllocation(AllocationRecord{Action: "none", DramPages: []uint64{10}, Rates: []float64{1}, IPC: []float64{0.7}})
	summary := Summarize(st, 10)
	assert.Equal(t, 1.0, summary.MeanDramShare[0])
	assert.Equal(t, 0.7, summary.MeanIPC[0])
	assert.Equal(t, 0.0, summary.StdDevIPC[0])
}
