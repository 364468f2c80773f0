package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	Makespan        float64
	FinishedJobs    int
	MeanWaitingTime float64
	Throughput      float64 // finished jobs per second of makespan
	// Utilization is the time-weighted share of used cores; it needs
	// checkpoints and is 0 otherwise.
	Utilization       float64
	UnusedCoreSeconds float64
	DeploymentsByKind map[string]int
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		DeploymentsByKind: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.Makespan = st.Makespan
	summary.FinishedJobs = len(st.Jobs)
	if len(st.Jobs) > 0 {
		total := 0.0
		for _, j := range st.Jobs {
			total += j.WaitingTime
		}
		summary.MeanWaitingTime = total / float64(len(st.Jobs))
	}
	if st.Makespan > 0 {
		summary.Throughput = float64(len(st.Jobs)) / st.Makespan
	}

	for _, d := range st.Deployments {
		summary.DeploymentsByKind[d.Kind]++
	}

	// Each checkpoint holds until the next one, the last until the makespan.
	used, capacity := 0.0, 0.0
	for i, c := range st.Checkpoints {
		end := st.Makespan
		if i+1 < len(st.Checkpoints) {
			end = st.Checkpoints[i+1].Time
		}
		dt := end - c.Time
		used += float64(c.UsedCores) * dt
		capacity += float64(c.TotalCores) * dt
	}
	if capacity > 0 {
		summary.Utilization = used / capacity
		summary.UnusedCoreSeconds = capacity - used
	}

	return summary
}
