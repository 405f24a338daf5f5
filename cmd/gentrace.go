package cmd

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/partition-sim/sim/tracefile"
)

var (
	genTraceOut        string    // Output trace path
	genTraceBoundaries []int64   // Period boundary of each record
	genTracePages      []int64   // DRAM pages of each record
	genTraceRates      []float64 // Bandwidth fraction of each record
)

// genTraceCmd writes an offline allocation trace from a piecewise schedule
var genTraceCmd = &cobra.Command{
	Use:   "gen-trace",
	Short: "Write an offline allocation trace from a piecewise schedule",
	Example: `  partition-sim gen-trace --out traces/run0_pid0.csv \
    --boundaries 0,5000000,10000000 --pages 256,512,128 --rates 0.5,0.7,0.3`,
	Run: func(cmd *cobra.Command, args []string) {
		records, err := buildSchedule(genTraceBoundaries, genTracePages, genTraceRates)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := writeSchedule(cmd.OutOrStdout(), genTraceOut, records); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// buildSchedule zips the three column lists into records. A single page or
// rate value is repeated for every boundary.
func buildSchedule(boundaries, pages []int64, rates []float64) ([]tracefile.Record, error) {
	n := len(boundaries)
	if n == 0 {
		return nil, fmt.Errorf("--boundaries needs at least one value")
	}
	if len(pages) != n && len(pages) != 1 {
		return nil, fmt.Errorf("--pages has %d values for %d boundaries", len(pages), n)
	}
	if len(rates) != n && len(rates) != 1 {
		return nil, fmt.Errorf("--rates has %d values for %d boundaries", len(rates), n)
	}
	records := make([]tracefile.Record, n)
	for i, b := range boundaries {
		p, r := pages[min(i, len(pages)-1)], rates[min(i, len(rates)-1)]
		if b < 0 || p < 0 {
			return nil, fmt.Errorf("record %d: boundary and pages must be non-negative", i)
		}
		if i > 0 && b < boundaries[i-1] {
			return nil, fmt.Errorf("record %d: boundary %d precedes %d", i, b, boundaries[i-1])
		}
		if r < 0 || r > 1 {
			return nil, fmt.Errorf("record %d: rate %v outside [0,1]", i, r)
		}
		records[i] = tracefile.Record{Boundary: uint64(b), DramPages: uint64(p), Rate: r}
	}
	return records, nil
}

func writeSchedule(w io.Writer, path string, records []tracefile.Record) error {
	if path == "" {
		return fmt.Errorf("--out is required")
	}
	if err := tracefile.WriteRecords(path, records); err != nil {
		return err
	}
	fmt.Fprintf(w, "wrote %d records to %s\n", len(records), path)
	return nil
}

func init() {
	genTraceCmd.Flags().StringVar(&genTraceOut, "out", "", "Output trace file")
	genTraceCmd.Flags().Int64SliceVar(&genTraceBoundaries, "boundaries", nil, "Comma-separated period boundaries, non-decreasing")
	genTraceCmd.Flags().Int64SliceVar(&genTracePages, "pages", nil, "Comma-separated DRAM pages per record (one value repeats)")
	genTraceCmd.Flags().Float64SliceVar(&genTraceRates, "rates", nil, "Comma-separated bandwidth fractions per record (one value repeats)")
}
