package experiment

import (
	"github.com/realsim/cosim/sim"
	"github.com/realsim/cosim/sim/trace"
)

// EvaluationResult is the outcome of one policy on one experiment.
type EvaluationResult struct {
	RunID      string
	Experiment string
	Policy     string
	Default    bool // the run every other policy is compared against

	Makespan float64
	Steps    int
	// MakespanSpeedup is the default run's makespan over this run's.
	MakespanSpeedup float64
	// JobSpeedups maps a job id to the default run's turnaround over this
	// run's turnaround for the same job.
	JobSpeedups map[int]float64

	Waiting    Distribution
	Turnaround Distribution
	JobSpeedup Distribution

	Stats   sim.DeployStats
	Summary *trace.TraceSummary
	Trace   *trace.SimulationTrace
}

func newEvaluationResult(experiment, policy, runID string, e *sim.ComputeEngine, st *trace.SimulationTrace) *EvaluationResult {
	waiting := make([]float64, len(st.Jobs))
	turnaround := make([]float64, len(st.Jobs))
	for i, j := range st.Jobs {
		waiting[i] = j.WaitingTime
		turnaround[i] = j.Turnaround()
	}
	stats := make(sim.DeployStats, len(e.Stats))
	for k, v := range e.Stats {
		stats[k] = v
	}
	return &EvaluationResult{
		RunID:      runID,
		Experiment: experiment,
		Policy:     policy,
		Makespan:   e.Makespan,
		Steps:      e.Steps,
		Waiting:    NewDistribution(waiting),
		Turnaround: NewDistribution(turnaround),
		Stats:      stats,
		Summary:    trace.Summarize(st),
		Trace:      st,
	}
}

// compareWith fills the comparative fields against the default run. Jobs
// with a zero turnaround in either run are left out.
func (r *EvaluationResult) compareWith(def *EvaluationResult) {
	if r.Makespan > 0 {
		r.MakespanSpeedup = def.Makespan / r.Makespan
	}

	history := make(map[int]float64, len(def.Trace.Jobs))
	for _, j := range def.Trace.Jobs {
		history[j.JobID] = j.Turnaround()
	}
	r.JobSpeedups = make(map[int]float64, len(r.Trace.Jobs))
	values := make([]float64, 0, len(r.Trace.Jobs))
	for _, j := range r.Trace.Jobs {
		base, ok := history[j.JobID]
		own := j.Turnaround()
		if !ok || base <= 0 || own <= 0 {
			continue
		}
		r.JobSpeedups[j.JobID] = base / own
		values = append(values, base/own)
	}
	r.JobSpeedup = NewDistribution(values)
}
