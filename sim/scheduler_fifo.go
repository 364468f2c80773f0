package sim

import (
	"math"
	"sort"
)

// FIFOScheduler places waiting jobs in queue order on whole idle nodes and
// stops at the first job that does not fit (strict head-of-line blocking).
type FIFOScheduler struct {
	baseScheduler
}

// NewFIFOScheduler creates the FIFO policy.
func NewFIFOScheduler() *FIFOScheduler {
	return &FIFOScheduler{baseScheduler{name: "fifo"}}
}

// Deploy places jobs from the head of the waiting queue until one does not fit.
func (f *FIFOScheduler) Deploy(e *ComputeEngine) bool {
	placed := false
	for _, job := range e.Cluster.WaitingQueue.Snapshot() {
		if !deployWholeNodes(e, job) {
			break
		}
		e.RecordDeployment(DeployCompact)
		placed = true
	}
	recordOutcome(e, placed)
	return placed
}

// deployWholeNodes places job compactly on idle nodes taken from the idle
// core pool. Returns false when not enough whole nodes are idle.
func deployWholeNodes(e *ComputeEngine, job *Job) bool {
	cores, ok := e.Cluster.AssignNodes(job.FullNodeCores(), e.Cluster.IdlePool())
	if !ok {
		return false
	}
	e.Deploy(job, e.Cluster.HostsOf(cores), e.Cluster.Layout)
	return true
}

func recordOutcome(e *ComputeEngine, placed bool) {
	if placed {
		e.RecordDeployment(DeploySuccess)
	} else {
		e.RecordDeployment(DeployFailed)
	}
}

// EASYScheduler is FIFO with EASY backfilling: the blocked head job gets a
// reservation and shorter jobs may run ahead of it if they finish before the
// reservation.
type EASYScheduler struct {
	FIFOScheduler
}

// NewEASYScheduler creates the EASY backfilling policy.
func NewEASYScheduler() *EASYScheduler {
	return &EASYScheduler{FIFOScheduler{baseScheduler{name: "easy"}}}
}

// BackfillEnabled is always true for EASY.
func (s *EASYScheduler) BackfillEnabled() bool {
	return true
}

// Reservation returns the earliest time from now at which the head job's
// full-node requirement is covered by the idle cores plus the cores of running
// jobs ordered by their estimated remaining wall time. Returns +Inf when the
// running jobs can never free enough cores.
func (s *EASYScheduler) Reservation(e *ComputeEngine, head *Job) float64 {
	available := e.Cluster.IdlePool().Size()
	if head.FullNodeCores() <= available {
		return 0
	}

	estimate := func(j *Job) float64 {
		return j.StartTime + j.WallTime - e.Makespan
	}
	running := append([]*Job(nil), e.Cluster.ExecutionList...)
	sort.SliceStable(running, func(a, b int) bool {
		return estimate(running[a]) < estimate(running[b])
	})

	for _, j := range running {
		available += j.BoundCores
		if head.FullNodeCores() <= available {
			return math.Max(estimate(j), 0)
		}
	}
	return math.Inf(1)
}

// Backfill places waiting jobs, shortest wall time first, whose wall time ends
// before the head job's reservation and which fit on idle nodes right now.
// The scan stops at the first job whose wall time exceeds the reservation.
func (s *EASYScheduler) Backfill(e *ComputeEngine) bool {
	wq := e.Cluster.WaitingQueue
	if wq.Len() <= 1 {
		return false
	}
	reservation := s.Reservation(e, wq.Peek())
	if math.IsInf(reservation, 1) || reservation == 0 {
		return false
	}

	candidates := wq.Snapshot()[1:]
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].WallTime < candidates[b].WallTime
	})

	placed := false
	for _, job := range candidates {
		if job.WallTime > reservation {
			break
		}
		if deployWholeNodes(e, job) {
			e.RecordDeployment(DeployBackfill)
			placed = true
		}
	}
	return placed
}
