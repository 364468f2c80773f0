package sim

// EventKind identifies what happened in an engine Event.
type EventKind string

const (
	EventJobSubmitted   EventKind = "job-submitted"
	EventJobStarted     EventKind = "job-started"
	EventJobFinished    EventKind = "job-finished"
	EventDeployment     EventKind = "deployment"
	EventCheckpoint     EventKind = "checkpoint"
	EventSimulationDone EventKind = "simulation-done"
)

// DeployKind names how a scheduler placed jobs in one deployment.
type DeployKind string

const (
	DeployCompact        DeployKind = "compact"
	DeployExecColocation DeployKind = "exec-colocation"
	DeployWaitColocation DeployKind = "wait-colocation"
	DeploySpread         DeployKind = "spread"
	DeployBackfill       DeployKind = "backfill"
	DeploySuccess        DeployKind = "success"
	DeployFailed         DeployKind = "failed"
)

// Event is a structured notification emitted by the engine. Which fields are
// set depends on Kind:
//   - job events carry Job and Hosts
//   - deployments carry Deploy
//   - checkpoints and simulation-done carry the occupancy counters
//
// Job points to the live job; observers must copy what they keep.
type Event struct {
	Kind  EventKind
	Time  float64
	Job   *Job
	Hosts []string

	Deploy DeployKind

	UsedCores  int
	TotalCores int
	Executing  int
	Waiting    int
}

// Observer receives engine events synchronously, in simulation order.
type Observer interface {
	Observe(e Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(e Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) { f(e) }

// DeployStats counts deployment decisions by kind.
type DeployStats map[DeployKind]int
