package sim

import "fmt"

// SlotKind distinguishes the two variants of an ExecutionSlot.
type SlotKind int

const (
	SlotOccupied SlotKind = iota
	SlotIdle
)

// ExecutionSlot is one entry of an execution unit: either a running job or a
// number of idle cores waiting for a tenant.
type ExecutionSlot struct {
	Kind  SlotKind
	Job   *Job // set only for SlotOccupied
	Cores int
}

// Occupied returns a slot holding job.
func Occupied(job *Job) ExecutionSlot {
	return ExecutionSlot{Kind: SlotOccupied, Job: job, Cores: job.BoundCores}
}

// Idle returns a slot of free cores.
func Idle(cores int) ExecutionSlot {
	return ExecutionSlot{Kind: SlotIdle, Cores: cores}
}

// IsIdle reports whether the slot holds no job.
func (s ExecutionSlot) IsIdle() bool {
	return s.Kind == SlotIdle
}

func (s ExecutionSlot) String() string {
	if s.IsIdle() {
		return fmt.Sprintf("idle(%d)", s.Cores)
	}
	return fmt.Sprintf("%s(%d)", s.Job.Signature(), s.Cores)
}

// ExecutionUnit groups the jobs sharing a set of hosts. The first slot is the
// anchor, the job holding the most cores; an idle slot, if any, comes last.
type ExecutionUnit struct {
	Hosts []string
	Slots []ExecutionSlot
}

// Anchor returns the unit's largest job.
func (u ExecutionUnit) Anchor() *Job {
	if len(u.Slots) == 0 || u.Slots[0].IsIdle() {
		return nil
	}
	return u.Slots[0].Job
}

// Jobs returns the occupied slots' jobs in slot order.
func (u ExecutionUnit) Jobs() []*Job {
	jobs := make([]*Job, 0, len(u.Slots))
	for _, s := range u.Slots {
		if !s.IsIdle() {
			jobs = append(jobs, s.Job)
		}
	}
	return jobs
}

// IdleCores returns the free cores inside the unit.
func (u ExecutionUnit) IdleCores() int {
	idle := 0
	for _, s := range u.Slots {
		if s.IsIdle() {
			idle += s.Cores
		}
	}
	return idle
}

// Filled reports whether the unit has no room for another tenant.
func (u ExecutionUnit) Filled() bool {
	return u.IdleCores() == 0
}

// AvgSpeedup returns the mean applied speedup of the unit's jobs.
func (u ExecutionUnit) AvgSpeedup() float64 {
	jobs := u.Jobs()
	if len(jobs) == 0 {
		return 0
	}
	sum := 0.0
	for _, j := range jobs {
		sum += j.SimSpeedup
	}
	return sum / float64(len(jobs))
}
