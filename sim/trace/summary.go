package trace

import "gonum.org/v1/gonum/stat"

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalIntervals int
	ActionCounts   map[string]int // action → number of intervals
	MeanDramShare  []float64      // per-tenant mean fraction of totalPages
	MeanRate       []float64      // per-tenant mean bandwidth fraction
	StdDevRate     []float64      // per-tenant rate standard deviation
	MeanIPC        []float64      // per-tenant mean IPC
	StdDevIPC      []float64      // per-tenant IPC standard deviation
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace, totalPages uint64) *TraceSummary {
	summary := &TraceSummary{
		ActionCounts: make(map[string]int),
	}
	if st == nil || len(st.Allocations) == 0 {
		return summary
	}

	summary.TotalIntervals = len(st.Allocations)
	tenants := len(st.Allocations[0].Rates)
	shares := make([][]float64, tenants)
	rates := make([][]float64, tenants)
	ipcs := make([][]float64, tenants)
	for _, rec := range st.Allocations {
		summary.ActionCounts[rec.Action]++
		for t := 0; t < tenants; t++ {
			if t < len(rec.DramPages) && totalPages > 0 {
				shares[t] = append(shares[t], float64(rec.DramPages[t])/float64(totalPages))
			}
			if t < len(rec.Rates) {
				rates[t] = append(rates[t], rec.Rates[t])
			}
			if t < len(rec.IPC) {
				ipcs[t] = append(ipcs[t], rec.IPC[t])
			}
		}
	}

	summary.MeanDramShare = make([]float64, tenants)
	summary.MeanRate = make([]float64, tenants)
	summary.StdDevRate = make([]float64, tenants)
	summary.MeanIPC = make([]float64, tenants)
	summary.StdDevIPC = make([]float64, tenants)
	for t := 0; t < tenants; t++ {
		if len(shares[t]) > 0 {
			summary.MeanDramShare[t] = stat.Mean(shares[t], nil)
		}
		summary.MeanRate[t], summary.StdDevRate[t] = meanStdDev(rates[t])
		summary.MeanIPC[t], summary.StdDevIPC[t] = meanStdDev(ipcs[t])
	}
	return summary
}

// meanStdDev returns 0 deviation for fewer than two samples, where the
// unbiased estimator is undefined.
func meanStdDev(x []float64) (mean, std float64) {
	switch len(x) {
	case 0:
		return 0, 0
	case 1:
		return x[0], 0
	}
	return stat.MeanStdDev(x, nil)
}
