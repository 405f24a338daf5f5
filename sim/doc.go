// Package sim decides, once per control interval, how DRAM capacity (in pages)
// and memory bandwidth (as a rate fraction) are divided among competing tenants.
//
// # Reading Guide
//
// Start with these files:
//   - partition.go: the sealed Partition interface, Geometry and the shared allocation state
//   - static.go, offline.go, dynamic.go: the three policies
//   - simulator.go: the interval loop that feeds counters to a policy
//
// # Architecture
//
// Policies are a closed set selected by Kind; NewPartition in bundle.go builds
// one from a YAML PartitionBundle. Supporting sub-packages:
//   - sim/tracefile/: CSV allocation traces replayed by the offline policy
//   - sim/workload/: synthetic counter source whose IPC responds to the allocation
//   - sim/trace/: per-interval decision records and summary statistics
//
// Configuration problems are returned as errors wrapping ErrConfig. Contract
// violations by the caller (too few counters, tenant out of range) go to the
// Reporter, whose default logs through logrus and panics.
package sim
