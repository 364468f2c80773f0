package sim

import (
	"fmt"
	"strings"
)

// Coscheduler is the rank-based co-scheduling policy. A job's rank is the
// number of waiting jobs it pairs well with; ranked jobs are co-located with
// running or waiting partners, unranked jobs are placed compactly.
//
// The ordering hooks are supplied by an Ordering so that the ranks, balancing
// and random variants share one placement algorithm.
type Coscheduler struct {
	baseScheduler
	Threshold      float64 // minimum two-way average speedup of a co-location
	RanksThreshold float64 // minimum two-way average speedup counted by ranks

	ordering Ordering
	ranks    map[*Job]int
	excluded func(*Job) bool
	// dampened skips the rank-0 compact pass and places unpaired jobs only
	// in cycles that deployed nothing else.
	dampened bool
}

// NewRanksCoscheduler creates a rank-based co-scheduler. ranksThreshold must
// not be lower than threshold. A nil ordering means RanksOrdering.
func NewRanksCoscheduler(name string, threshold, ranksThreshold float64, aging AgingPolicy, ordering Ordering) (*Coscheduler, error) {
	if ranksThreshold < threshold {
		return nil, fmt.Errorf("ranks threshold %v is lower than co-scheduling threshold %v", ranksThreshold, threshold)
	}
	if ordering == nil {
		ordering = RanksOrdering{}
	}
	return &Coscheduler{
		baseScheduler:  baseScheduler{name: name, aging: aging},
		Threshold:      threshold,
		RanksThreshold: ranksThreshold,
		ordering:       ordering,
		ranks:          make(map[*Job]int),
	}, nil
}

func containsMG(job *Job) bool {
	return strings.Contains(job.Name, "mg")
}

// Setup computes the initial rank table.
func (c *Coscheduler) Setup(e *ComputeEngine) {
	c.UpdateRanks(e)
}

// Rank returns the job's current rank; jobs outside the table rank 0.
func (c *Coscheduler) Rank(job *Job) int {
	return c.ranks[job]
}

// UpdateRanks recomputes the rank of every waiting job: each pair whose
// two-way average speedup is known and above RanksThreshold adds one to both
// jobs' ranks.
func (c *Coscheduler) UpdateRanks(e *ComputeEngine) {
	jobs := e.Cluster.WaitingQueue.Items()
	c.ranks = make(map[*Job]int, len(jobs))
	for i, a := range jobs {
		if c.isExcluded(a) {
			continue
		}
		for _, b := range jobs[i+1:] {
			if c.isExcluded(b) {
				continue
			}
			avg, ok := e.Heatmap().PairAverage(a.Name, b.Name)
			if ok && avg > c.RanksThreshold {
				c.ranks[a]++
				c.ranks[b]++
			}
		}
	}
}

func (c *Coscheduler) isExcluded(job *Job) bool {
	return c.excluded != nil && c.excluded(job)
}

// coschedulable reports whether job may take part in a co-location.
func (c *Coscheduler) coschedulable(job *Job) bool {
	return job.State == JobPending && job.HalfSocketNodes > 0 && c.Rank(job) > 0 && !c.isExcluded(job)
}

// Deploy runs one decision cycle. In order: an aged-out head job is placed
// compactly; waiting jobs join running units with idle room; unranked jobs
// are placed compactly; ranked jobs are paired into new units; and jobs left
// without a partner are placed compactly, or spread when the cluster was
// empty at the start of the cycle. A dampened co-scheduler skips the unranked
// pass and reaches the last step only when nothing else was placed.
func (c *Coscheduler) Deploy(e *ComputeEngine) bool {
	c.UpdateRanks(e)
	c.ordering.BeginCycle(e, c)
	emptyCluster := len(e.Cluster.ExecutionList) == 0

	placed := c.deployAgedHead(e)
	if c.deployToUnits(e) {
		placed = true
	}
	if !c.dampened && c.deployCompactUnranked(e) {
		placed = true
	}
	if c.deployWaitPairs(e) {
		placed = true
	}
	if (!c.dampened || !placed) && c.deployUnpaired(e, emptyCluster) {
		placed = true
	}

	recordOutcome(e, placed)
	return placed
}

func (c *Coscheduler) afterDeployment(e *ComputeEngine, anchor *Job) {
	c.UpdateRanks(e)
	c.ordering.AfterDeployment(e, c, unitOf(e, anchor))
}

// unitOf returns the execution unit containing job.
func unitOf(e *ComputeEngine, job *Job) ExecutionUnit {
	for _, u := range e.Cluster.ExecutionUnits() {
		for _, j := range u.Jobs() {
			if j == job {
				return u
			}
		}
	}
	return ExecutionUnit{Hosts: job.AssignedHosts, Slots: []ExecutionSlot{Occupied(job)}}
}

func (c *Coscheduler) deployCompact(e *ComputeEngine, job *Job) bool {
	allocs := e.Cluster.FindSuitableNodes(job.NumProcesses, e.Cluster.Layout)
	if allocs == nil {
		return false
	}
	e.Deploy(job, allocs, e.Cluster.Layout)
	e.RecordDeployment(DeployCompact)
	c.afterDeployment(e, job)
	return true
}

func (c *Coscheduler) deployAgedHead(e *ComputeEngine) bool {
	head := e.Cluster.WaitingQueue.Peek()
	if head == nil || !c.aging.AgedOut(head) {
		return false
	}
	return c.deployCompact(e, head)
}

// deployToUnits fills the idle half-socket room of running units with
// waiting partners.
func (c *Coscheduler) deployToUnits(e *ComputeEngine) bool {
	units := e.Cluster.NonFilledUnits()
	keys := make([]float64, len(units))
	for i, u := range units {
		keys[i] = c.ordering.UnitOrder(e, c, u)
	}
	order := make([]int, len(units))
	for i := range order {
		order[i] = i
	}
	stableSortIndexDesc(order, keys)

	halfCores := e.Cluster.HalfLayout.Sum()
	placed := false
	for _, idx := range order {
		anchor := units[idx].Anchor()
		free := e.Cluster.HalfFreeHosts(anchor)
		if len(free) == 0 {
			continue
		}

		joined := false
		for _, cand := range c.unitCandidates(e, anchor, len(free)*halfCores) {
			if cand.HalfSocketNodes > len(free) {
				continue
			}
			allocs := e.Cluster.FindSuitableNodesOn(free[:cand.HalfSocketNodes], cand.NumProcesses, e.Cluster.HalfLayout)
			if allocs == nil {
				continue
			}
			e.Deploy(cand, allocs, e.Cluster.HalfLayout)
			free = free[cand.HalfSocketNodes:]
			joined = true
		}
		if joined {
			e.RecordDeployment(DeployExecColocation)
			c.afterDeployment(e, anchor)
			placed = true
		}
	}
	return placed
}

// unitCandidates returns the waiting jobs that fit into emptyCores next to
// anchor with a known two-way average speedup above the threshold, best first.
func (c *Coscheduler) unitCandidates(e *ComputeEngine, anchor *Job, emptyCores int) []*Job {
	var out []*Job
	for _, job := range e.Cluster.WaitingQueue.Snapshot() {
		if !c.coschedulable(job) || job.HalfNodeCores() > emptyCores {
			continue
		}
		avg, ok := e.Heatmap().PairAverage(anchor.Name, job.Name)
		if !ok || avg <= c.Threshold {
			continue
		}
		out = append(out, job)
	}
	sortByKeyDesc(out, func(j *Job) float64 { return c.ordering.UnitCandidateOrder(e, c, anchor, j) })
	return out
}

func (c *Coscheduler) deployCompactUnranked(e *ComputeEngine) bool {
	placed := false
	for _, job := range e.Cluster.WaitingQueue.Snapshot() {
		if job.State != JobPending || c.Rank(job) != 0 {
			continue
		}
		if c.deployCompact(e, job) {
			placed = true
		}
	}
	return placed
}

// deployWaitPairs builds new units out of waiting jobs: the leading job takes
// half of every socket on idle hosts and its partners take the other halves.
func (c *Coscheduler) deployWaitPairs(e *ComputeEngine) bool {
	var queue []*Job
	for _, job := range e.Cluster.WaitingQueue.Snapshot() {
		if c.coschedulable(job) {
			queue = append(queue, job)
		}
	}
	sortByKeyDesc(queue, func(j *Job) float64 { return c.ordering.WaitingQueueOrder(e, c, j) })

	placed := false
	for _, job := range queue {
		if !c.coschedulable(job) {
			continue
		}
		idle := e.Cluster.IdleHosts()
		if len(idle) < job.HalfSocketNodes {
			continue
		}

		remaining := job.HalfSocketNodes
		var partners []*Job
		for _, co := range c.pairCandidates(e, job) {
			if co.HalfSocketNodes <= remaining {
				partners = append(partners, co)
				remaining -= co.HalfSocketNodes
			}
		}
		if len(partners) == 0 {
			continue
		}

		allocs := e.Cluster.FindSuitableNodesOn(idle[:job.HalfSocketNodes], job.NumProcesses, e.Cluster.HalfLayout)
		if allocs == nil {
			continue
		}
		e.Deploy(job, allocs, e.Cluster.HalfLayout)

		hosts := append([]string(nil), job.AssignedHosts...)
		for _, co := range partners {
			coAllocs := e.Cluster.FindSuitableNodesOn(hosts[:co.HalfSocketNodes], co.NumProcesses, e.Cluster.HalfLayout)
			if coAllocs == nil {
				e.fatal(fmt.Errorf("partner %s does not fit next to %s", co.Signature(), job.Signature()))
			}
			e.Deploy(co, coAllocs, e.Cluster.HalfLayout)
			hosts = hosts[co.HalfSocketNodes:]
		}

		e.RecordDeployment(DeployWaitColocation)
		c.afterDeployment(e, job)
		placed = true
	}
	return placed
}

// pairCandidates returns the waiting partners of job with known speedups in
// both directions, room for both jobs, and an average speedup above the
// threshold, best first.
func (c *Coscheduler) pairCandidates(e *ComputeEngine, job *Job) []*Job {
	free := e.Cluster.FreeCores()
	var out []*Job
	for _, co := range e.Cluster.WaitingQueue.Snapshot() {
		if co == job || !c.coschedulable(co) {
			continue
		}
		if 2*max(job.HalfNodeCores(), co.HalfNodeCores()) > free {
			continue
		}
		avg, ok := e.Heatmap().PairAverage(job.Name, co.Name)
		if !ok || avg <= c.Threshold {
			continue
		}
		out = append(out, co)
	}
	sortByKeyDesc(out, func(co *Job) float64 { return c.ordering.PairCandidateOrder(e, c, job, co) })
	return out
}

// deployUnpaired places the waiting jobs that found no partner in this
// cycle. On a cluster that was empty when the cycle began, jobs that gain
// from running alone on half sockets are spread; every other job is placed
// compactly.
func (c *Coscheduler) deployUnpaired(e *ComputeEngine, emptyCluster bool) bool {
	placed := false
	for _, job := range e.Cluster.WaitingQueue.Snapshot() {
		if job.State != JobPending {
			continue
		}
		if emptyCluster && c.deploySpread(e, job) {
			placed = true
			continue
		}
		if c.deployCompact(e, job) {
			placed = true
		}
	}
	return placed
}

func (c *Coscheduler) deploySpread(e *ComputeEngine, job *Job) bool {
	if job.HalfSocketNodes == 0 || job.MaxSpeedup <= c.Threshold {
		return false
	}
	idle := e.Cluster.IdleHosts()
	if len(idle) < job.HalfSocketNodes {
		return false
	}
	allocs := e.Cluster.FindSuitableNodesOn(idle[:job.HalfSocketNodes], job.NumProcesses, e.Cluster.HalfLayout)
	if allocs == nil {
		return false
	}
	e.Deploy(job, allocs, e.Cluster.HalfLayout)
	e.RecordDeployment(DeploySpread)
	c.afterDeployment(e, job)
	return true
}
