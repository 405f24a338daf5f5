// Package trace provides per-interval allocation recording for partition policy analysis.
// This package has no dependencies on sim/ and stores pure data types.
package trace

// AllocationRecord captures the allocation a policy produced for one interval.
type AllocationRecord struct {
	Interval  int       // 0-based interval index
	Cycles    uint64    // cumulative cycles at the end of the interval
	Policy    string    // partition policy kind
	Action    string    // what the policy did ("none" for non-adaptive policies)
	DramPages []uint64  // per-tenant pages after Calculate
	Rates     []float64 // per-tenant bandwidth fraction after Calculate
	IPC       []float64 // per-tenant instructions per cycle measured during the interval
}
