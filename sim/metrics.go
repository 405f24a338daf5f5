// Tracks run-wide and per-tenant results of a partitioning run.

package sim

import (
	"encoding/json"
	"fmt"
	"io"
)

// Metrics aggregates statistics about a partitioning run for final reporting.
type Metrics struct {
	Policy            string         `json:"policy"`
	Intervals         int            `json:"intervals"`
	TotalCycles       uint64         `json:"total_cycles"`
	TotalDramPages    uint64         `json:"total_dram_pages"`
	TotalInstructions []uint64       `json:"total_instructions"` // per tenant
	FinalDramPages    []uint64       `json:"final_dram_pages"`
	FinalRates        []float64      `json:"final_rates"`
	Actions           map[Action]int `json:"actions"` // dynamic policy only
}

// NewMetrics creates a Metrics for the given tenant count.
func NewMetrics(policy Kind, tenants int, totalPages uint64) *Metrics {
	return &Metrics{
		Policy:            string(policy),
		TotalDramPages:    totalPages,
		TotalInstructions: make([]uint64, tenants),
		FinalDramPages:    make([]uint64, tenants),
		FinalRates:        make([]float64, tenants),
		Actions:           make(map[Action]int),
	}
}

// IPC returns each tenant's aggregate instructions per cycle over the run.
func (m *Metrics) IPC() []float64 {
	out := make([]float64, len(m.TotalInstructions))
	if m.TotalCycles == 0 {
		return out
	}
	for i, n := range m.TotalInstructions {
		out[i] = float64(n) / float64(m.TotalCycles)
	}
	return out
}

// Print writes the metrics as indented JSON under a header line.
func (m *Metrics) Print(w io.Writer) error {
	out := struct {
		*Metrics
		IPC []float64 `json:"ipc"`
	}{m, m.IPC()}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metrics: %w", err)
	}
	_, err = fmt.Fprintf(w, "=== Partition Metrics ===\n%s\n", data)
	return err
}
