package experiment

import (
	"github.com/realsim/cosim/sim"
	"github.com/realsim/cosim/sim/trace"
)

// recorder turns engine events into trace records and metric samples for
// one run.
type recorder struct {
	experiment string
	policy     string
	trace      *trace.SimulationTrace
	metrics    *Metrics
}

var _ sim.Observer = (*recorder)(nil)

func (r *recorder) Observe(ev sim.Event) {
	switch ev.Kind {
	case sim.EventDeployment:
		r.trace.RecordDeployment(trace.DeploymentRecord{Time: ev.Time, Kind: string(ev.Deploy)})
		r.metrics.observeDeployment(r.experiment, r.policy, string(ev.Deploy))
	case sim.EventJobFinished:
		j := ev.Job
		r.trace.RecordJob(trace.JobRecord{
			JobID:       j.ID,
			Name:        j.Name,
			SubmitTime:  j.SubmitTime,
			StartTime:   j.StartTime,
			FinishTime:  j.FinishTime,
			WaitingTime: j.WaitingTime,
			Hosts:       append([]string(nil), ev.Hosts...),
			Speedup:     j.SimSpeedup,
		})
		r.metrics.observeFinished(r.experiment, r.policy, j.WaitingTime)
	case sim.EventCheckpoint:
		r.trace.RecordCheckpoint(trace.CheckpointRecord{
			Time:       ev.Time,
			UsedCores:  ev.UsedCores,
			TotalCores: ev.TotalCores,
			Executing:  ev.Executing,
			Waiting:    ev.Waiting,
		})
	}
}
