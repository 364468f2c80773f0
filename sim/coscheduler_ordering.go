package sim

import (
	"math"
	"math/rand"
)

// Ordering supplies the sort keys a Coscheduler uses for its decisions.
// Higher keys are tried first; equal keys keep queue order.
type Ordering interface {
	// BeginCycle runs at the start of every Deploy call.
	BeginCycle(e *ComputeEngine, c *Coscheduler)
	// UnitOrder ranks running units with idle room.
	UnitOrder(e *ComputeEngine, c *Coscheduler, u ExecutionUnit) float64
	// UnitCandidateOrder ranks waiting jobs that could join anchor's unit.
	UnitCandidateOrder(e *ComputeEngine, c *Coscheduler, anchor, cand *Job) float64
	// WaitingQueueOrder ranks waiting jobs that could lead a new unit.
	WaitingQueueOrder(e *ComputeEngine, c *Coscheduler, job *Job) float64
	// PairCandidateOrder ranks waiting partners of job.
	PairCandidateOrder(e *ComputeEngine, c *Coscheduler, job, co *Job) float64
	// AfterDeployment observes the unit that was just formed or grown.
	AfterDeployment(e *ComputeEngine, c *Coscheduler, u ExecutionUnit)
}

// RanksOrdering fills the biggest units first, prefers the best pairs and
// leads new units with the most pairable jobs.
type RanksOrdering struct{}

func (RanksOrdering) BeginCycle(_ *ComputeEngine, _ *Coscheduler) {}

func (RanksOrdering) UnitOrder(_ *ComputeEngine, _ *Coscheduler, u ExecutionUnit) float64 {
	return float64(u.Anchor().BoundCores)
}

func (RanksOrdering) UnitCandidateOrder(e *ComputeEngine, _ *Coscheduler, anchor, cand *Job) float64 {
	return pairAverage(e, anchor, cand)
}

func (RanksOrdering) WaitingQueueOrder(_ *ComputeEngine, c *Coscheduler, job *Job) float64 {
	return float64(c.Rank(job))
}

func (RanksOrdering) PairCandidateOrder(e *ComputeEngine, _ *Coscheduler, job, co *Job) float64 {
	return pairAverage(e, job, co)
}

func (RanksOrdering) AfterDeployment(_ *ComputeEngine, _ *Coscheduler, _ ExecutionUnit) {}

func pairAverage(e *ComputeEngine, a, b *Job) float64 {
	avg, ok := e.Heatmap().PairAverage(a.Name, b.Name)
	if !ok {
		return 1.0
	}
	return avg
}

// BalancingOrdering trades pair speedup against rank, size fit and cluster
// fragmentation. It keeps a running mean of the speedups of units formed in
// the current cycle and an estimate of the share of bound cores left idle.
type BalancingOrdering struct {
	llAvgSpeedup  float64
	llUnits       int
	fragmentation float64
}

// BeginCycle resets the per-cycle speedup mean and measures fragmentation
// as the idle cores inside running units over all bound cores.
func (b *BalancingOrdering) BeginCycle(e *ComputeEngine, _ *Coscheduler) {
	b.llAvgSpeedup, b.llUnits = 0, 0
	b.fragmentation = 0
	binded := e.Cluster.TotalCores() - e.Cluster.FreeCores()
	if binded == 0 {
		return
	}
	idle := 0
	for _, u := range e.Cluster.ExecutionUnits() {
		idle += u.IdleCores()
	}
	b.fragmentation = float64(idle) / float64(binded)
}

func (b *BalancingOrdering) UnitOrder(_ *ComputeEngine, _ *Coscheduler, u ExecutionUnit) float64 {
	return float64(u.Anchor().BoundCores)
}

func (b *BalancingOrdering) UnitCandidateOrder(e *ComputeEngine, c *Coscheduler, anchor, cand *Job) float64 {
	if anchor.BoundCores == 0 {
		return 0
	}
	coresRatio := float64(cand.HalfNodeCores()) / float64(anchor.BoundCores)
	return b.score(e, c, cand, coresRatio, pairAverage(e, anchor, cand))
}

func (b *BalancingOrdering) WaitingQueueOrder(e *ComputeEngine, c *Coscheduler, job *Job) float64 {
	n := e.Cluster.WaitingQueue.Len()
	if n == 0 || job.NumProcesses == 0 {
		return 0
	}
	rankRatio := float64(c.Rank(job)) / float64(n)
	return rankRatio * float64(e.Cluster.FreeCores()) / float64(job.NumProcesses)
}

func (b *BalancingOrdering) PairCandidateOrder(e *ComputeEngine, c *Coscheduler, job, co *Job) float64 {
	if job.HalfNodeCores() == 0 {
		return 0
	}
	coresRatio := float64(co.HalfNodeCores()) / float64(job.HalfNodeCores())
	return b.score(e, c, co, coresRatio, pairAverage(e, job, co))
}

// score multiplies the rank, fragmentation and speedup factors of a candidate.
// Unranked candidates get a negative rank factor.
func (b *BalancingOrdering) score(e *ComputeEngine, c *Coscheduler, cand *Job, coresRatio, avg float64) float64 {
	n := e.Cluster.WaitingQueue.Len()
	if n == 0 {
		return 0
	}
	rank := float64(c.Rank(cand))
	if rank == 0 {
		rank = -1
	}
	rankRatio := rank / float64(n)
	fragRatio := coresRatio*(1-b.fragmentation) + (1-coresRatio)*b.fragmentation

	speedupRatio := avg
	if b.llAvgSpeedup > 0 {
		speedupRatio = math.Pow(avg, 2/b.llAvgSpeedup)
	}
	return rankRatio * fragRatio * speedupRatio
}

// AfterDeployment folds the unit's speedup into the running mean and
// updates the fragmentation estimate with the unit's idle cores.
func (b *BalancingOrdering) AfterDeployment(e *ComputeEngine, _ *Coscheduler, u ExecutionUnit) {
	b.llAvgSpeedup = (b.llAvgSpeedup*float64(b.llUnits) + u.AvgSpeedup()) / float64(b.llUnits+1)
	b.llUnits++

	binded := e.Cluster.TotalCores() - e.Cluster.FreeCores()
	if binded == 0 {
		return
	}
	footprint := 0
	for _, s := range u.Slots {
		footprint += s.Cores
	}
	prev := max(binded-footprint, 0)
	b.fragmentation = (b.fragmentation*float64(prev) + float64(u.IdleCores())) / float64(binded)
}

// RandomOrdering replaces every key with a uniform random draw.
type RandomOrdering struct {
	rng *rand.Rand
}

// NewRandomOrdering creates a RandomOrdering drawing from rng.
func NewRandomOrdering(rng *rand.Rand) *RandomOrdering {
	return &RandomOrdering{rng: rng}
}

func (r *RandomOrdering) BeginCycle(_ *ComputeEngine, _ *Coscheduler) {}

func (r *RandomOrdering) UnitOrder(_ *ComputeEngine, _ *Coscheduler, _ ExecutionUnit) float64 {
	return r.rng.Float64()
}

func (r *RandomOrdering) UnitCandidateOrder(_ *ComputeEngine, _ *Coscheduler, _, _ *Job) float64 {
	return r.rng.Float64()
}

func (r *RandomOrdering) WaitingQueueOrder(_ *ComputeEngine, _ *Coscheduler, _ *Job) float64 {
	return r.rng.Float64()
}

func (r *RandomOrdering) PairCandidateOrder(_ *ComputeEngine, _ *Coscheduler, _, _ *Job) float64 {
	return r.rng.Float64()
}

func (r *RandomOrdering) AfterDeployment(_ *ComputeEngine, _ *Coscheduler, _ ExecutionUnit) {}

// UnawareBalancingOrdering is BalancingOrdering without regard for running
// units: the candidates to join a unit come in random order.
type UnawareBalancingOrdering struct {
	*BalancingOrdering
	rng *rand.Rand
}

// NewUnawareBalancingOrdering creates an UnawareBalancingOrdering drawing
// from rng.
func NewUnawareBalancingOrdering(rng *rand.Rand) *UnawareBalancingOrdering {
	return &UnawareBalancingOrdering{BalancingOrdering: &BalancingOrdering{}, rng: rng}
}

// UnitCandidateOrder draws an integer below the number of executing jobs.
func (u *UnawareBalancingOrdering) UnitCandidateOrder(e *ComputeEngine, _ *Coscheduler, _, _ *Job) float64 {
	return float64(u.rng.Intn(max(len(e.Cluster.ExecutionList), 1)))
}

// BesterOrdering is RanksOrdering with partners chosen by points: one for the
// same number of half-socket nodes, one when the candidate's wall time is
// within 20% of the partner's estimated remaining time, and one for a pair
// average of at least 1. Equal points fall back to the pair average.
type BesterOrdering struct {
	RanksOrdering
}

func (BesterOrdering) UnitCandidateOrder(e *ComputeEngine, _ *Coscheduler, anchor, cand *Job) float64 {
	return besterScore(e, cand, anchor)
}

func (BesterOrdering) PairCandidateOrder(e *ComputeEngine, _ *Coscheduler, job, co *Job) float64 {
	return besterScore(e, co, job)
}

// besterScore returns the points of cand next to partner plus avg/(1+avg),
// which stays below one so points always dominate.
func besterScore(e *ComputeEngine, cand, partner *Job) float64 {
	points := 0.0
	if cand.HalfSocketNodes == partner.HalfSocketNodes {
		points++
	}
	remaining := partner.WallTime
	if partner.State == JobExecuting {
		remaining = partner.StartTime + partner.WallTime - e.Makespan
	}
	if remaining > 0 && math.Abs(cand.WallTime-remaining)/remaining < 0.2 {
		points++
	}
	avg, ok := e.Heatmap().PairAverage(cand.Name, partner.Name)
	if !ok {
		avg = cand.AvgSpeedup
	} else if avg >= 1 {
		points++
	}
	return points + avg/(1+avg)
}
