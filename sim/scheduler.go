package sim

import (
	"fmt"
	"sort"
)

// Scheduler decides which waiting jobs are placed on the cluster. Each call
// to Deploy or Backfill is one decision; the engine calls them once per
// simulation step while jobs are waiting.
//
// Not placing a job is a normal outcome: Deploy and Backfill return false and
// the job stays in the waiting queue for the next decision cycle.
type Scheduler interface {
	Name() string
	// Setup runs once before the first step.
	Setup(e *ComputeEngine)
	// Deploy attempts to place waiting jobs. Returns true if any job was placed.
	Deploy(e *ComputeEngine) bool
	// Backfill places jobs out of order without delaying the head job.
	Backfill(e *ComputeEngine) bool
	BackfillEnabled() bool
	// WaitingQueueReorder returns the priority of a newly admitted job; the
	// waiting queue is kept stably sorted by it, highest first.
	WaitingQueueReorder(e *ComputeEngine, job *Job) float64
	Aging() AgingPolicy
}

// AgingPolicy bounds how long the head of the waiting queue can be passed
// over. After Threshold decision cycles of TimeStep seconds the head job is
// placed compactly if it fits.
type AgingPolicy struct {
	Threshold int
	TimeStep  float64
}

// Enabled reports whether aging applies.
func (a AgingPolicy) Enabled() bool {
	return a.Threshold > 0 && a.TimeStep > 0
}

// AgedOut reports whether job has reached the age threshold.
func (a AgingPolicy) AgedOut(job *Job) bool {
	return a.Enabled() && job.Age >= a.Threshold
}

// baseScheduler carries the defaults shared by every policy.
type baseScheduler struct {
	name  string
	aging AgingPolicy
}

func (b *baseScheduler) Name() string { return b.name }
func (b *baseScheduler) Setup(_ *ComputeEngine) {}
func (b *baseScheduler) Backfill(_ *ComputeEngine) bool { return false }
func (b *baseScheduler) BackfillEnabled() bool { return false }
func (b *baseScheduler) WaitingQueueReorder(_ *ComputeEngine, _ *Job) float64 { return 1.0 }
func (b *baseScheduler) Aging() AgingPolicy { return b.aging }

// NewScheduler creates a Scheduler from a policy configuration.
// Valid names: "fifo" (default), "easy", "ranks", "balancing",
// "balancing-unaware", "bester", "dampened", "random", "random-no-mg".
// Empty string defaults to fifo.
// Panics on unrecognized names or invalid parameters; call
// PolicyConfig.Validate first for user input.
func NewScheduler(cfg PolicyConfig, key SimulationKey) Scheduler {
	if !IsValidScheduler(cfg.Name) {
		panic(fmt.Sprintf("unknown scheduler %q", cfg.Name))
	}
	aging := cfg.agingPolicy()
	switch cfg.Name {
	case "", "fifo":
		return NewFIFOScheduler()
	case "easy":
		return NewEASYScheduler()
	case "ranks", "balancing", "balancing-unaware", "bester", "dampened", "random", "random-no-mg":
		cs, err := NewRanksCoscheduler(cfg.Name, cfg.threshold(), cfg.ranksThreshold(), aging, orderingFor(cfg.Name, key))
		if err != nil {
			panic(err.Error())
		}
		switch cfg.Name {
		case "random-no-mg":
			cs.excluded = containsMG
		case "dampened":
			cs.dampened = true
		}
		return cs
	default:
		panic(fmt.Sprintf("unhandled scheduler %q", cfg.Name))
	}
}

func orderingFor(name string, key SimulationKey) Ordering {
	switch name {
	case "balancing":
		return &BalancingOrdering{}
	case "balancing-unaware":
		return NewUnawareBalancingOrdering(NewPartitionedRNG(key).ForSubsystem(SubsystemScheduler))
	case "bester":
		return BesterOrdering{}
	case "random", "random-no-mg":
		return NewRandomOrdering(NewPartitionedRNG(key).ForSubsystem(SubsystemScheduler))
	default:
		return RanksOrdering{}
	}
}

// sortByKeyDesc stably sorts jobs by key, highest first. Keys are computed
// once per job so that non-deterministic keys still yield a valid order.
func sortByKeyDesc(jobs []*Job, key func(*Job) float64) {
	keys := make(map[*Job]float64, len(jobs))
	for _, j := range jobs {
		keys[j] = key(j)
	}
	sort.SliceStable(jobs, func(a, b int) bool {
		return keys[jobs[a]] > keys[jobs[b]]
	})
}

// stableSortIndexDesc stably sorts the index slice order by keys[i], highest first.
func stableSortIndexDesc(order []int, keys []float64) {
	sort.SliceStable(order, func(a, b int) bool {
		return keys[order[a]] > keys[order[b]]
	})
}
