package workload

import (
	"github.com/realsim/cosim/sim"
)

// generate draws the job set described by t.Generate. The first job arrives
// at time 0; later arrivals follow a Poisson process.
func (t *Trace) generate(key sim.SimulationKey) []*sim.Job {
	g := t.Generate
	rng := sim.NewPartitionedRNG(key).ForSubsystem(sim.SubsystemWorkload)
	factor := g.WallFactor
	if factor == 0 {
		factor = 1
	}

	jobs := make([]*sim.Job, 0, g.Count)
	now := 0.0
	for i := 0; i < g.Count; i++ {
		r := &t.Records[rng.Intn(len(t.Records))]
		jobs = append(jobs, sim.NewJob(r, now, factor*r.MedianTime()))
		now += rng.ExpFloat64() / g.ArrivalRate
	}
	return jobs
}
