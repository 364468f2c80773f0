package sim

import (
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"k8s.io/utils/cpuset"
)

// finishTolerance absorbs floating point residue when a job's remaining work
// is driven to zero by repeated rescaling.
const finishTolerance = 1e-9

// ComputeEngine advances one simulation run. It admits preloaded jobs, asks
// the scheduler for placement decisions and moves simulated time forward.
//
// A ComputeEngine is single-threaded: every mutation of the cluster, its hosts
// and its jobs happens synchronously inside SimStep.
type ComputeEngine struct {
	DB        *SpeedupDatabase
	Cluster   *Cluster
	Scheduler Scheduler

	Makespan float64
	Steps    int // number of time advances
	Stats    DeployStats

	observers []Observer
	executing map[string]*Job // signature -> job, mirrors Cluster.ExecutionList
	idCounter int
}

// NewComputeEngine wires a database, a cluster and a scheduler together.
func NewComputeEngine(db *SpeedupDatabase, cluster *Cluster, scheduler Scheduler, observers ...Observer) *ComputeEngine {
	if db == nil || cluster == nil || scheduler == nil {
		panic("NewComputeEngine: database, cluster and scheduler must not be nil")
	}
	return &ComputeEngine{
		DB:        db,
		Cluster:   cluster,
		Scheduler: scheduler,
		Stats:     make(DeployStats),
		observers: observers,
		executing: make(map[string]*Job),
	}
}

// AddObserver registers an additional event observer.
func (e *ComputeEngine) AddObserver(o Observer) {
	e.observers = append(e.observers, o)
}

func (e *ComputeEngine) emit(ev Event) {
	ev.Time = e.Makespan
	for _, o := range e.observers {
		o.Observe(ev)
	}
}

func (e *ComputeEngine) logf(format string, args ...interface{}) {
	logrus.Debugf("[%12.3f] "+format, append([]interface{}{e.Makespan}, args...)...)
}

// Heatmap returns the speedup table of the run.
func (e *ComputeEngine) Heatmap() Heatmap {
	return e.DB.Heatmap
}

// Done reports whether every job has finished.
func (e *ComputeEngine) Done() bool {
	return e.DB.Len() == 0 && e.Cluster.Empty()
}

// SetupPreloadedJobs prepares every preloaded job: assigns ids in submit
// order, derives the node requirements under the cluster layout, caches the
// speedup statistics and classifies the job. Returns an error for a job that
// could never fit the cluster.
func (e *ComputeEngine) SetupPreloadedJobs() error {
	e.DB.SortBySubmitTime()
	if e.Makespan == 0 {
		e.idCounter = 0
	}

	full, half := e.Cluster.Layout.Sum(), e.Cluster.HalfLayout.Sum()
	for _, job := range e.DB.PreloadedQueue {
		if job.Workload == nil {
			panic(fmt.Sprintf("SetupPreloadedJobs: job %q has no workload", job.Name))
		}
		job.ID = e.idCounter
		e.idCounter++

		job.coresPerNode = full
		job.FullSocketNodes = ceilDiv(job.NumProcesses, full)
		if half > 0 {
			job.HalfSocketNodes = ceilDiv(job.NumProcesses, half)
		}
		if job.FullSocketNodes > e.Cluster.Nodes {
			return fmt.Errorf("job %s needs %d nodes, cluster has %d", job.Signature(), job.FullSocketNodes, e.Cluster.Nodes)
		}

		speedups := e.DB.Heatmap.Known(job.Name)
		std := 0.0
		if len(speedups) == 0 {
			job.MaxSpeedup, job.MinSpeedup, job.AvgSpeedup = 1, 1, 1
		} else {
			job.MaxSpeedup = floats.Max(speedups)
			job.MinSpeedup = floats.Min(speedups)
			job.AvgSpeedup, std = stat.PopMeanStdDev(speedups, nil)
			std = math.Round(std*100) / 100
		}
		job.Character = classify(job.AvgSpeedup, std)
	}
	return nil
}

// LoadInWaitingQueue admits the preloaded jobs whose submit time has arrived,
// in submit order, under the cluster's queue-size policy. Admission stops at
// the first arrived job that cannot be admitted.
func (e *ComputeEngine) LoadInWaitingQueue() {
	admitted := 0
	for _, job := range append([]*Job(nil), e.DB.PreloadedQueue...) {
		if job.SubmitTime > e.Makespan {
			break
		}
		if !e.admissible(job) {
			break
		}
		e.DB.Remove(job)
		e.Cluster.WaitingQueue.Enqueue(job)
		admitted++
		e.logf("Job[%s] submitted", job.Signature())
		e.emit(Event{Kind: EventJobSubmitted, Job: job})
	}
	if admitted > 0 {
		e.Cluster.WaitingQueue.Reorder(func(jobs []*Job) {
			sortByKeyDesc(jobs, func(j *Job) float64 { return e.Scheduler.WaitingQueueReorder(e, j) })
		})
	}
}

func (e *ComputeEngine) admissible(job *Job) bool {
	wq := e.Cluster.WaitingQueue
	switch size := e.Cluster.QueueSize; {
	case size == QueueUnbounded:
		return true
	case size == 0:
		if wq.Len() != 0 || len(e.Cluster.FindSuitableNodes(job.NumProcesses, e.Cluster.Layout)) == 0 {
			return false
		}
	default:
		if wq.Len() >= size {
			return false
		}
	}
	job.SubmitTime = e.Makespan
	return true
}

// CalculateJobRemTime applies the worst speedup the job suffers from its
// current neighbors, falling back to its average speedup for unknown pairs.
// A job running alone on a spread placement gets its maximum speedup. Calling
// it again with unchanged neighbors changes nothing.
func (e *ComputeEngine) CalculateJobRemTime(job *Job) {
	worst := job.MaxSpeedup
	neighbors := e.neighbors(job)
	for _, n := range neighbors {
		speedup, ok := e.DB.Heatmap.Lookup(job.Name, n.Name)
		if !ok {
			speedup = job.AvgSpeedup
		}
		if speedup < worst {
			worst = speedup
		}
	}

	if len(neighbors) == 0 && !job.IsSpread(e.Cluster.Layout) {
		return
	}
	if job.SimSpeedup != worst {
		job.Rescale(worst)
	}
}

// neighbors returns the distinct jobs sharing at least one host with job.
func (e *ComputeEngine) neighbors(job *Job) []*Job {
	var out []*Job
	seen := map[string]bool{job.Signature(): true}
	for _, name := range job.AssignedHosts {
		for _, sig := range e.Cluster.Host(name).Signatures() {
			if seen[sig] {
				continue
			}
			seen[sig] = true
			if n, ok := e.executing[sig]; ok {
				out = append(out, n)
			}
		}
	}
	return out
}

// Deploy places job on the given allocations. It is the entry point used by
// schedulers: it records the placement layout, deploys on every host and
// recomputes the speedups of the job and of its new neighbors.
func (e *ComputeEngine) Deploy(job *Job, allocs []HostAllocation, layout SocketLayout) {
	if len(allocs) == 0 {
		e.fatal(fmt.Errorf("deploy of job %s without allocations", job.Signature()))
	}
	job.SocketConf = append(SocketLayout(nil), layout...)
	job.AssignedHosts = nil
	job.BoundCores = 0
	for _, a := range allocs {
		e.DeployJobToHost(a.Host, job, a.Cores)
	}
	e.checkInvariants()
	e.emit(Event{Kind: EventJobStarted, Job: job, Hosts: append([]string(nil), job.AssignedHosts...)})

	e.CalculateJobRemTime(job)
	for _, n := range e.neighbors(job) {
		e.CalculateJobRemTime(n)
	}
}

// DeployJobToHost registers job on one host with the given per-socket cores.
// A pending job moves from the waiting queue to the execution list.
func (e *ComputeEngine) DeployJobToHost(hostname string, job *Job, cores []cpuset.CPUSet) {
	h := e.Cluster.Host(hostname)
	if h == nil {
		e.fatal(fmt.Errorf("deploy of job %s to unknown host %s", job.Signature(), hostname))
	}
	e.logf("Job[%s] started execution in host[%s]", job.Signature(), hostname)

	job.StartTime = e.Makespan
	if err := h.Claim(job.Signature(), cores); err != nil {
		e.fatal(err)
	}
	if !containsString(job.AssignedHosts, hostname) {
		job.AssignedHosts = append(job.AssignedHosts, hostname)
	}
	for _, c := range cores {
		job.BoundCores += c.Size()
	}

	if job.State == JobPending {
		if !e.Cluster.WaitingQueue.Remove(job) {
			e.fatal(fmt.Errorf("job %s deployed but not waiting", job.Signature()))
		}
		e.Cluster.ExecutionList = append(e.Cluster.ExecutionList, job)
		e.executing[job.Signature()] = job
		job.State = JobExecuting
		job.WaitingTime = job.StartTime - job.SubmitTime
		e.logf("Job[%s] started execution", job.Signature())
	}
}

// CleanJobFromHosts returns a finished job's cores to its hosts and moves it
// to the finished list.
func (e *ComputeEngine) CleanJobFromHosts(job *Job) {
	e.logf("Job[%s] finished execution", job.Signature())
	job.FinishTime = e.Makespan
	job.State = JobFinished

	for _, name := range job.AssignedHosts {
		h := e.Cluster.Host(name)
		if h == nil {
			e.fatal(fmt.Errorf("job %s assigned to unknown host %s", job.Signature(), name))
		}
		if err := h.Release(job.Signature()); err != nil {
			e.fatal(err)
		}
		e.logf("Job[%s] finished execution in host[%s]", job.Signature(), name)
	}

	if !e.Cluster.removeExecuting(job) {
		e.fatal(fmt.Errorf("finished job %s was not executing", job.Signature()))
	}
	delete(e.executing, job.Signature())
	e.Cluster.Finished = append(e.Cluster.Finished, job)
	e.checkInvariants()
	e.emit(Event{Kind: EventJobFinished, Job: job, Hosts: append([]string(nil), job.AssignedHosts...)})
}

// GotoNextSimState advances the clock to the next job completion or job
// arrival, whichever comes first, and finishes the jobs that completed.
func (e *ComputeEngine) GotoNextSimState() {
	for _, job := range e.Cluster.ExecutionList {
		e.CalculateJobRemTime(job)
	}

	step := math.Inf(1)
	for _, job := range e.Cluster.ExecutionList {
		if job.RemainingTime < step {
			step = job.RemainingTime
		}
	}
	if showup := e.DB.NextSubmitTime(e.Makespan) - e.Makespan; showup < step {
		step = showup
	}
	if !(step > 0) || math.IsInf(step, 1) {
		e.fatal(fmt.Errorf("invalid time step %v", step))
	}

	step = e.applyAging(step)

	// The checkpoint describes the occupancy held during the coming step.
	e.emit(e.occupancy(EventCheckpoint))

	e.Makespan += step
	e.Steps++
	e.logf("next step time calculated to %v", step)

	for _, job := range append([]*Job(nil), e.Cluster.ExecutionList...) {
		job.RemainingTime -= step
		if job.RemainingTime <= finishTolerance {
			job.RemainingTime = 0
			e.CleanJobFromHosts(job)
		}
	}

	// Neighbor sets may have changed.
	for _, job := range e.Cluster.ExecutionList {
		e.CalculateJobRemTime(job)
	}
}

// applyAging shortens step so that the scheduler is re-invoked by the time
// the head of the waiting queue reaches the age threshold.
func (e *ComputeEngine) applyAging(step float64) float64 {
	aging := e.Scheduler.Aging()
	head := e.Cluster.WaitingQueue.Peek()
	if !aging.Enabled() || head == nil || head.Age >= aging.Threshold {
		return step
	}

	timer := math.Floor(e.Makespan/aging.TimeStep) * aging.TimeStep
	next := timer + aging.TimeStep - e.Makespan
	if next <= 0 {
		next += aging.TimeStep
	}
	maxAge := next + float64(aging.Threshold-(head.Age+1))*aging.TimeStep
	if maxAge < step {
		head.Age = aging.Threshold
		return maxAge
	}
	head.Age++
	return step
}

// SimStep runs one decision cycle: admission, deployment, optional
// backfilling, and a time advance when nothing was placed.
func (e *ComputeEngine) SimStep() {
	if e.Done() {
		return
	}
	e.LoadInWaitingQueue()

	deployed := false
	if e.Cluster.WaitingQueue.Len() > 0 {
		deployed = e.Scheduler.Deploy(e)
		if e.Scheduler.BackfillEnabled() && e.Scheduler.Backfill(e) {
			deployed = true
		}
	}
	if deployed {
		return
	}
	e.GotoNextSimState()
}

// Run executes the whole simulation until every job has finished.
func (e *ComputeEngine) Run() error {
	if err := e.SetupPreloadedJobs(); err != nil {
		return err
	}
	e.Scheduler.Setup(e)
	logrus.Infof("Starting simulation: scheduler=%s jobs=%d nodes=%d layout=%v",
		e.Scheduler.Name(), e.DB.Len(), e.Cluster.Nodes, e.Cluster.Layout)

	for !e.Done() {
		e.SimStep()
	}

	e.emit(e.occupancy(EventSimulationDone))
	logrus.Infof("Simulation finished: scheduler=%s makespan=%.3f steps=%d", e.Scheduler.Name(), e.Makespan, e.Steps)
	return nil
}

// RecordDeployment counts a deployment decision and notifies observers.
func (e *ComputeEngine) RecordDeployment(kind DeployKind) {
	e.Stats[kind]++
	e.emit(Event{Kind: EventDeployment, Deploy: kind})
}

func (e *ComputeEngine) occupancy(kind EventKind) Event {
	total := e.Cluster.TotalCores()
	return Event{
		Kind:       kind,
		UsedCores:  total - e.Cluster.FreeCores(),
		TotalCores: total,
		Executing:  len(e.Cluster.ExecutionList),
		Waiting:    e.Cluster.WaitingQueue.Len(),
	}
}

func (e *ComputeEngine) checkInvariants() {
	if err := e.Cluster.CheckInvariants(); err != nil {
		e.fatal(err)
	}
}

// fatal aborts the run with the engine state attached. It is reserved for
// resource-accounting bugs, never for scheduling misses.
func (e *ComputeEngine) fatal(err error) {
	panic(fmt.Sprintf("simulation invariant violated: %v\n%s", err, e.stateDump()))
}

func (e *ComputeEngine) stateDump() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "makespan=%v steps=%d scheduler=%s\n", e.Makespan, e.Steps, e.Scheduler.Name())
	fmt.Fprintf(&sb, "preloaded=%d waiting=%s\n", e.DB.Len(), e.Cluster.WaitingQueue)
	fmt.Fprintf(&sb, "executing=%v\n", e.Cluster.ExecutionList)
	fmt.Fprintf(&sb, "cores free=%d total=%d\n", e.Cluster.FreeCores(), e.Cluster.TotalCores())
	for _, h := range e.Cluster.Hosts {
		fmt.Fprintf(&sb, "  %s %s free=%v jobs=%v\n", h.Name, h.Status, h.Sockets, h.Signatures())
	}
	return sb.String()
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
