package trace

import "testing"

func TestIsValidTraceLevel(t *testing.T) {
	tests := []struct {
		level string
		want  bool
	}{
		{"", true},
		{"none", true},
		{"decisions", true},
		{"full", true},
		{"verbose", false},
	}
	for _, tt := range tests {
		if got := IsValidTraceLevel(tt.level); got != tt.want {
			t.Errorf("IsValidTraceLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestSimulationTrace_RecordJob_AppendsInOrder(t *testing.T) {
	// GIVEN a fresh trace
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN two jobs are recorded
	st.RecordJob(JobRecord{JobID: 0, Name: "bt", SubmitTime: 0, FinishTime: 10})
	st.RecordJob(JobRecord{JobID: 1, Name: "cg", SubmitTime: 5, FinishTime: 12})

	// THEN they keep their order
	if len(st.Jobs) != 2 {
		t.Fatalf("expected 2 job records, got %d", len(st.Jobs))
	}
	if st.Jobs[1].Name != "cg" {
		t.Errorf("expected second record cg, got %s", st.Jobs[1].Name)
	}
	if got := st.Jobs[1].Turnaround(); got != 7 {
		t.Errorf("expected turnaround 7, got %v", got)
	}
}

func TestSimulationTrace_Checkpoints_OnlyAtFullLevel(t *testing.T) {
	decisions := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})
	full := NewSimulationTrace(TraceConfig{Level: TraceLevelFull})

	for _, st := range []*SimulationTrace{decisions, full} {
		st.RecordCheckpoint(CheckpointRecord{Time: 0, UsedCores: 4, TotalCores: 8})
		st.RecordDeployment(DeploymentRecord{Time: 0, Kind: "compact"})
	}

	if len(decisions.Checkpoints) != 0 {
		t.Errorf("decisions level recorded %d checkpoints, want 0", len(decisions.Checkpoints))
	}
	if len(full.Checkpoints) != 1 {
		t.Errorf("full level recorded %d checkpoints, want 1", len(full.Checkpoints))
	}
	if len(decisions.Deployments) != 1 {
		t.Errorf("expected deployment at decisions level")
	}
}

func TestSimulationTrace_NoneLevel_KeepsJobsOnly(t *testing.T) {
	st := NewSimulationTrace(TraceConfig{})

	st.RecordJob(JobRecord{JobID: 3})
	st.RecordDeployment(DeploymentRecord{Kind: "compact"})
	st.RecordCheckpoint(CheckpointRecord{Time: 1})

	if len(st.Jobs) != 1 || len(st.Deployments) != 0 || len(st.Checkpoints) != 0 {
		t.Errorf("unexpected records: %d jobs, %d deployments, %d checkpoints", len(st.Jobs), len(st.Deployments), len(st.Checkpoints))
	}
}
