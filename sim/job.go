// Defines the Job type, its lifecycle states and the read-only workload
// record it is instantiated from.

package sim

import (
	"fmt"
	"math"
)

// JobState represents the lifecycle state of a job.
type JobState string

const (
	JobPending   JobState = "pending"
	JobExecuting JobState = "executing"
	JobFinished  JobState = "finished"
)

// Characterization is a qualitative tag derived from a job's known speedups.
type Characterization string

const (
	// CharacterSpread marks jobs that gain from co-location on average.
	CharacterSpread Characterization = "spread"
	// CharacterCompact marks jobs that lose from co-location on average.
	CharacterCompact Characterization = "compact"
	// CharacterRobust marks jobs whose speedup barely depends on the partner.
	CharacterRobust Characterization = "robust"
	// CharacterFrail marks jobs whose speedup varies strongly with the partner.
	CharacterFrail Characterization = "frail"
)

// Workload is the read-only record a job is instantiated from. It is produced
// by an external loader; the simulator only reads it.
type Workload interface {
	Name() string
	NumProcesses() int
	AvgTime() float64
	MedianTime() float64
	// MedianSpeedup returns the median speedup of this workload when
	// co-located with coName, or false when the pair was never measured.
	MedianSpeedup(coName string) (float64, bool)
}

// Job models a single workload instance inside the simulation.
type Job struct {
	ID       int
	Name     string
	Workload Workload

	NumProcesses    int
	FullSocketNodes int // nodes needed when using every core of every socket
	HalfSocketNodes int // nodes needed when using half of every socket
	BoundCores      int // cores held while executing

	SocketConf    SocketLayout // layout of the current placement
	AssignedHosts []string
	coresPerNode  int

	SubmitTime    float64
	StartTime     float64
	FinishTime    float64
	WaitingTime   float64
	WallTime      float64 // user supplied estimate, used by backfilling
	RemainingTime float64

	SimSpeedup float64
	MaxSpeedup float64
	MinSpeedup float64
	AvgSpeedup float64

	Character Characterization
	State     JobState
	Age       int // decision cycles spent at the head of the waiting queue
}

// NewJob creates a pending job from a workload record. The remaining work is
// the workload's median execution time.
func NewJob(w Workload, submitTime, wallTime float64) *Job {
	if w == nil {
		panic("NewJob: workload must not be nil")
	}
	return &Job{
		ID:            -1,
		Name:          w.Name(),
		Workload:      w,
		NumProcesses:  w.NumProcesses(),
		SubmitTime:    submitTime,
		WallTime:      wallTime,
		RemainingTime: w.MedianTime(),
		SimSpeedup:    1.0,
		MaxSpeedup:    1.0,
		MinSpeedup:    1.0,
		AvgSpeedup:    1.0,
		State:         JobPending,
	}
}

// Signature identifies the job inside host occupancy maps.
func (j *Job) Signature() string {
	return fmt.Sprintf("%d:%s", j.ID, j.Name)
}

// FullNodeCores returns the cores bound by a compact (full socket) placement.
func (j *Job) FullNodeCores() int {
	return j.FullSocketNodes * j.coresPerNode
}

// HalfNodeCores returns the cores bound by a half socket placement.
func (j *Job) HalfNodeCores() int {
	return j.HalfSocketNodes * (j.coresPerNode / 2)
}

// Rescale applies a new speedup to the remaining work. A speedup above 1
// shortens the remaining time, one below 1 stretches it.
func (j *Job) Rescale(newSpeedup float64) {
	if j.SimSpeedup <= 0 || newSpeedup <= 0 || math.IsNaN(j.SimSpeedup) || math.IsNaN(newSpeedup) {
		panic(fmt.Sprintf("Rescale: job %s has invalid speedups old=%v new=%v", j.Signature(), j.SimSpeedup, newSpeedup))
	}
	j.RemainingTime *= j.SimSpeedup / newSpeedup
	j.SimSpeedup = newSpeedup
}

// IsSpread reports whether the job is placed with a layout other than the
// cluster's full socket layout.
func (j *Job) IsSpread(full SocketLayout) bool {
	return len(j.SocketConf) > 0 && !j.SocketConf.Equal(full)
}

func (j *Job) String() string {
	return fmt.Sprintf("{%s %s rem=%.2f sp=%.3f}", j.Signature(), j.State, j.RemainingTime, j.SimSpeedup)
}

// classify derives the characterization from the mean and the population
// standard deviation (rounded to two decimals) of the known speedups.
func classify(avg, std float64) Characterization {
	switch {
	case avg > 1.02:
		return CharacterSpread
	case avg < 0.98:
		return CharacterCompact
	case std > 0.07:
		return CharacterFrail
	default:
		return CharacterRobust
	}
}
