package cmd

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/inference-sim/partition-sim/sim"
	"github.com/inference-sim/partition-sim/sim/trace"
	"github.com/inference-sim/partition-sim/sim/workload"
)

var (
	configPath     string // Path to the partition bundle YAML
	seed           int64  // Seed for exploration and synthetic counters
	logLevel       string // Log verbosity level
	intervals      int    // Number of control intervals
	intervalCycles uint64 // Simulated cycles per interval
	traceLevel     string // Decision trace level
	offlineGroup   int    // Offline trace group to drive the allocation (-1: from config)
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "partition-sim",
	Short: "Interval simulator for DRAM capacity and bandwidth partitioning",
}

// runCmd drives the configured policy against the synthetic workload
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a partitioning simulation",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		startTime := time.Now()
		if err := runPartition(cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Infof("Simulation complete in %s.", time.Since(startTime))
	},
}

// validateCmd loads a bundle and builds its policy without running it
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a partition config and its trace files",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		if err := validateBundle(cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

func loadPolicy() (*sim.PartitionBundle, sim.Partition, *sim.PartitionedRNG, error) {
	if configPath == "" {
		return nil, nil, nil, fmt.Errorf("--config is required")
	}
	bundle, err := sim.LoadPartitionBundle(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(seed))
	policy, err := sim.NewPartition(bundle, nil, rng)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("building %s policy: %w", bundle.Policy, err)
	}
	if off, ok := policy.(*sim.OfflinePartition); ok && offlineGroup >= 0 {
		if err := off.SelectGroup(uint(offlineGroup)); err != nil {
			return nil, nil, nil, errors.Join(err, policy.Close())
		}
	}
	return bundle, policy, rng, nil
}

func runPartition(w io.Writer) (err error) {
	bundle, policy, rng, err := loadPolicy()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := policy.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing policy: %w", cerr)
		}
	}()

	source := workload.NewSynthetic(bundle.Workload, bundle.Tenants, rng.ForSubsystem(sim.SubsystemWorkload))
	s, err := sim.NewSimulator(policy, source, sim.SimulatorConfig{
		Intervals:      intervals,
		IntervalCycles: intervalCycles,
		Trace:          trace.TraceConfig{Level: trace.TraceLevel(traceLevel)},
	})
	if err != nil {
		return err
	}
	if err := s.Run(); err != nil {
		return err
	}
	if err := s.Metrics.Print(w); err != nil {
		return err
	}
	if s.Trace.Config.Enabled() {
		printTraceSummary(w, trace.Summarize(s.Trace, policy.TotalDramPages()))
	}
	return nil
}

func printTraceSummary(w io.Writer, summary *trace.TraceSummary) {
	fmt.Fprintln(w, "=== Trace Summary ===")
	fmt.Fprintf(w, "Intervals: %d\n", summary.TotalIntervals)
	for _, action := range slices.Sorted(maps.Keys(summary.ActionCounts)) {
		fmt.Fprintf(w, "  %-9s %d\n", action+":", summary.ActionCounts[action])
	}
	for t := range summary.MeanRate {
		fmt.Fprintf(w, "Tenant %d: share=%.4f rate=%.4f±%.4f ipc=%.4f±%.4f\n", t,
			summary.MeanDramShare[t], summary.MeanRate[t], summary.StdDevRate[t],
			summary.MeanIPC[t], summary.StdDevIPC[t])
	}
}

func validateBundle(w io.Writer) error {
	bundle, policy, _, err := loadPolicy()
	if err != nil {
		return err
	}
	if err := policy.Close(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: %s policy, %d tenants, %d pages: ok\n",
		configPath, bundle.Policy, bundle.Tenants, policy.TotalDramPages())
	return nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	for _, c := range []*cobra.Command{runCmd, validateCmd} {
		c.Flags().StringVar(&configPath, "config", "", "Path to partition config YAML")
		c.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
		c.Flags().Int64Var(&seed, "seed", 42, "Seed for dynamic exploration and synthetic counters")
		c.Flags().IntVar(&offlineGroup, "group", -1, "Offline trace group to follow (default: config or lowest registered)")
	}

	runCmd.Flags().IntVar(&intervals, "intervals", 1000, "Number of control intervals")
	runCmd.Flags().Uint64Var(&intervalCycles, "interval-cycles", 1_000_000, "Simulated cycles per interval")
	runCmd.Flags().StringVar(&traceLevel, "trace-level", "none", "Decision trace level (none, decisions)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(genTraceCmd)
}
