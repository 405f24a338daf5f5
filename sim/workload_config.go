package sim

import "math"

// WorkloadConfig parameterizes the synthetic counter source used when no
// external counter provider drives the run. Empty slices take defaults
// (base IPC 1.0, no sensitivity).
type WorkloadConfig struct {
	BaseIPC          []float64 `yaml:"base_ipc"`          // IPC at an even split
	RateSensitivity  []float64 `yaml:"rate_sensitivity"`  // relative IPC gain per unit of extra rate share
	SpaceSensitivity []float64 `yaml:"space_sensitivity"` // relative IPC gain per unit of extra page share
	Noise            float64   `yaml:"noise"`             // relative standard deviation of per-interval IPC
}

// Validate checks that every per-tenant list is empty or has one entry per tenant.
func (w WorkloadConfig) Validate(tenants int) error {
	lists := []struct {
		name string
		v    []float64
	}{
		{"base_ipc", w.BaseIPC},
		{"rate_sensitivity", w.RateSensitivity},
		{"space_sensitivity", w.SpaceSensitivity},
	}
	for _, l := range lists {
		if len(l.v) != 0 && len(l.v) != tenants {
			return configErrorf("workload %s has %d entries, want %d", l.name, len(l.v), tenants)
		}
		for _, x := range l.v {
			if x < 0 || math.IsNaN(x) || math.IsInf(x, 0) {
				return configErrorf("workload %s values must be non-negative, got %v", l.name, x)
			}
		}
	}
	if w.Noise < 0 || math.IsNaN(w.Noise) {
		return configErrorf("workload noise must be non-negative, got %v", w.Noise)
	}
	return nil
}
