package trace

// TraceLevel controls the verbosity of run tracing.
type TraceLevel string

const (
	// TraceLevelNone keeps only finished jobs, which run comparison needs.
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions additionally captures deployments.
	TraceLevelDecisions TraceLevel = "decisions"
	// TraceLevelFull additionally captures an occupancy checkpoint per time advance.
	TraceLevelFull TraceLevel = "full"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	TraceLevelFull:      true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SimulationTrace collects records during one simulation run.
type SimulationTrace struct {
	Config      TraceConfig
	Jobs        []JobRecord
	Checkpoints []CheckpointRecord
	Deployments []DeploymentRecord
	Makespan    float64
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:      config,
		Jobs:        make([]JobRecord, 0),
		Checkpoints: make([]CheckpointRecord, 0),
		Deployments: make([]DeploymentRecord, 0),
	}
}

// RecordJob appends a finished job record.
func (st *SimulationTrace) RecordJob(record JobRecord) {
	st.Jobs = append(st.Jobs, record)
}

// RecordCheckpoint appends an occupancy record. Ignored below TraceLevelFull.
func (st *SimulationTrace) RecordCheckpoint(record CheckpointRecord) {
	if st.Config.Level != TraceLevelFull {
		return
	}
	st.Checkpoints = append(st.Checkpoints, record)
}

// RecordDeployment appends a deployment decision record. Ignored at
// TraceLevelNone.
func (st *SimulationTrace) RecordDeployment(record DeploymentRecord) {
	if st.Config.Level == TraceLevelNone || st.Config.Level == "" {
		return
	}
	st.Deployments = append(st.Deployments, record)
}

// Finish records the final makespan.
func (st *SimulationTrace) Finish(makespan float64) {
	st.Makespan = makespan
}
