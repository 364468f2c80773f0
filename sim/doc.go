// Package sim provides the co-scheduling cluster simulation core.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - job.go: Job lifecycle (pending → executing → finished) and speedup rescaling
//   - host.go, cluster.go: per-host core sets, placement search and execution units
//   - engine.go: the decision/advance loop, speedup recomputation and aging
//
// # Scheduling
//
// A Scheduler decides which waiting jobs are placed in each decision cycle:
//   - FIFOScheduler: whole-node placement in queue order
//   - EASYScheduler: FIFO plus reservation-based backfilling
//   - Coscheduler: rank-based co-location of complementary jobs, with the
//     ordering supplied by RanksOrdering, BalancingOrdering or RandomOrdering
//
// Schedulers are built from a PolicyConfig by NewScheduler.
//
// # Sub-packages
//
//   - sim/workload/: workload records and job-set traces
//   - sim/trace/: per-run decision and checkpoint recording
//   - sim/experiment/: parallel runs of several policies over one job set
package sim
