package trace

import (
	"math"
	"testing"
)

func TestSummarize_NilTrace_ZeroValues(t *testing.T) {
	summary := Summarize(nil)

	if summary.FinishedJobs != 0 || summary.Makespan != 0 {
		t.Error("expected zero values for nil trace")
	}
	if summary.DeploymentsByKind == nil {
		t.Error("expected non-nil deployment map")
	}
}

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelFull})

	// WHEN summarized
	summary := Summarize(st)

	// THEN all aggregates are zero
	if summary.MeanWaitingTime != 0 || summary.Throughput != 0 || summary.Utilization != 0 {
		t.Errorf("expected zero aggregates, got %+v", summary)
	}
	if len(summary.DeploymentsByKind) != 0 {
		t.Error("expected empty deployment distribution")
	}
}

func TestSummarize_PopulatedTrace_CorrectStatistics(t *testing.T) {
	// GIVEN a run of 20s: 8 of 8 cores used for 10s, then 4 of 8 for 10s
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelFull})
	st.RecordJob(JobRecord{JobID: 0, WaitingTime: 0})
	st.RecordJob(JobRecord{JobID: 1, WaitingTime: 6})
	st.RecordDeployment(DeploymentRecord{Time: 0, Kind: "compact"})
	st.RecordDeployment(DeploymentRecord{Time: 0, Kind: "success"})
	st.RecordDeployment(DeploymentRecord{Time: 10, Kind: "compact"})
	st.RecordCheckpoint(CheckpointRecord{Time: 0, UsedCores: 8, TotalCores: 8})
	st.RecordCheckpoint(CheckpointRecord{Time: 10, UsedCores: 4, TotalCores: 8})
	st.Finish(20)

	// WHEN summarized
	summary := Summarize(st)

	// THEN the aggregates match
	if summary.Makespan != 20 {
		t.Errorf("expected makespan 20, got %v", summary.Makespan)
	}
	if summary.MeanWaitingTime != 3 {
		t.Errorf("expected mean waiting 3, got %v", summary.MeanWaitingTime)
	}
	if summary.Throughput != 0.1 {
		t.Errorf("expected throughput 0.1, got %v", summary.Throughput)
	}
	if math.Abs(summary.Utilization-0.75) > 1e-12 {
		t.Errorf("expected utilization 0.75, got %v", summary.Utilization)
	}
	if summary.UnusedCoreSeconds != 40 {
		t.Errorf("expected 40 unused core-seconds, got %v", summary.UnusedCoreSeconds)
	}
	if summary.DeploymentsByKind["compact"] != 2 || summary.DeploymentsByKind["success"] != 1 {
		t.Errorf("unexpected deployment counts %v", summary.DeploymentsByKind)
	}
}
