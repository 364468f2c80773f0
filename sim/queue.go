// Implements the WaitQueue, which holds all jobs admitted to the cluster but
// not yet placed on hosts.

package sim

import (
	"fmt"
	"strings"
)

// WaitQueue represents the ordered queue of admitted jobs waiting for a
// placement decision.
type WaitQueue struct {
	queue []*Job
}

// Enqueue adds a job to the back of the wait queue.
func (wq *WaitQueue) Enqueue(j *Job) {
	if j == nil {
		panic("Enqueue: job must not be nil")
	}
	wq.queue = append(wq.queue, j)
}

func (wq *WaitQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, val := range wq.queue {
		sb.WriteString(fmt.Sprint(val))
		if i < len(wq.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}

// Len returns the number of jobs in the queue.
func (wq *WaitQueue) Len() int {
	return len(wq.queue)
}

// Peek returns the job at the front of the queue without removing it.
// Returns nil if the queue is empty.
func (wq *WaitQueue) Peek() *Job {
	if len(wq.queue) == 0 {
		return nil
	}
	return wq.queue[0]
}

// Items returns the live queue contents. Callers MUST NOT append to or
// reslice it, and must not iterate it while removing jobs; use Snapshot for
// that.
func (wq *WaitQueue) Items() []*Job {
	return wq.queue
}

// Snapshot returns a copy of the queue order. The jobs are shared with the
// live queue; only the ordering is detached, so callers can remove jobs from
// the queue while iterating the snapshot.
func (wq *WaitQueue) Snapshot() []*Job {
	out := make([]*Job, len(wq.queue))
	copy(out, wq.queue)
	return out
}

// Contains reports whether job is in the queue.
func (wq *WaitQueue) Contains(j *Job) bool {
	for _, q := range wq.queue {
		if q == j {
			return true
		}
	}
	return false
}

// Remove deletes job from the queue, preserving the order of the others.
// Returns false if the job was not queued.
func (wq *WaitQueue) Remove(j *Job) bool {
	for i, q := range wq.queue {
		if q == j {
			wq.queue = append(wq.queue[:i], wq.queue[i+1:]...)
			return true
		}
	}
	return false
}

// Reorder applies fn to the queue contents, allowing in-place reordering.
// fn MUST NOT change the slice length (no append/delete).
func (wq *WaitQueue) Reorder(fn func([]*Job)) {
	if fn == nil {
		panic("Reorder: fn must not be nil")
	}
	n := len(wq.queue)
	fn(wq.queue)
	if len(wq.queue) != n {
		panic(fmt.Sprintf("Reorder: fn changed queue length from %d to %d", n, len(wq.queue)))
	}
}
