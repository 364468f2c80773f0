package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// testWorkload is an in-memory Workload with fixed timings.
type testWorkload struct {
	name     string
	procs    int
	median   float64
	speedups map[string]float64
}

func (w *testWorkload) Name() string        { return w.name }
func (w *testWorkload) NumProcesses() int   { return w.procs }
func (w *testWorkload) AvgTime() float64    { return w.median }
func (w *testWorkload) MedianTime() float64 { return w.median }

func (w *testWorkload) MedianSpeedup(coName string) (float64, bool) {
	v, ok := w.speedups[coName]
	return v, ok
}

func newTestWorkload(name string, procs int, median float64, speedups map[string]float64) *testWorkload {
	if speedups == nil {
		speedups = map[string]float64{}
	}
	return &testWorkload{name: name, procs: procs, median: median, speedups: speedups}
}

// newTestEngine builds an engine over jobs submitted at time 0 on a cluster of
// nodes hosts with the given socket layout.
func newTestEngine(t *testing.T, sched Scheduler, nodes int, layout SocketLayout, queueSize int, workloads ...*testWorkload) *ComputeEngine {
	t.Helper()
	ws := make([]Workload, len(workloads))
	jobs := make([]*Job, len(workloads))
	for i, w := range workloads {
		ws[i] = w
		jobs[i] = NewJob(w, 0, w.median)
	}
	db := NewSpeedupDatabase(jobs, BuildHeatmap(ws))
	e := NewComputeEngine(db, NewCluster(nodes, layout, queueSize), sched)
	require.NoError(t, e.SetupPreloadedJobs())
	sched.Setup(e)
	return e
}

// runToCompletion runs the engine loop and returns the finished jobs.
func runToCompletion(t *testing.T, e *ComputeEngine) []*Job {
	t.Helper()
	for i := 0; !e.Done(); i++ {
		require.Less(t, i, 10000, "simulation did not terminate")
		e.SimStep()
	}
	return e.Cluster.Finished
}

func jobByName(t *testing.T, jobs []*Job, name string) *Job {
	t.Helper()
	for _, j := range jobs {
		if j.Name == name {
			return j
		}
	}
	t.Fatalf("job %s not found", name)
	return nil
}

func mustCoscheduler(t *testing.T, name string, threshold float64, ordering Ordering) *Coscheduler {
	t.Helper()
	cs, err := NewRanksCoscheduler(name, threshold, threshold, AgingPolicy{}, ordering)
	require.NoError(t, err)
	return cs
}
