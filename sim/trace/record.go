// Package trace provides per-run recording of scheduling decisions, job
// lifecycles and cluster occupancy.
// It holds plain data and does not import the simulator.
package trace

// JobRecord captures one job's lifecycle once it has finished.
type JobRecord struct {
	JobID       int
	Name        string
	SubmitTime  float64
	StartTime   float64
	FinishTime  float64
	WaitingTime float64
	Hosts       []string
	Speedup     float64 // speedup applied when the job finished
}

// Turnaround returns the time from submission to completion.
func (r JobRecord) Turnaround() float64 {
	return r.FinishTime - r.SubmitTime
}

// CheckpointRecord captures cluster occupancy after a time advance.
type CheckpointRecord struct {
	Time       float64
	UsedCores  int
	TotalCores int
	Executing  int
	Waiting    int
}

// DeploymentRecord captures a single scheduler placement decision.
type DeploymentRecord struct {
	Time float64
	Kind string
}
