package sim

import (
	"math"
	"sort"
)

// SpeedupDatabase owns the jobs that have not been submitted yet and the
// speedup heatmap they are evaluated against.
type SpeedupDatabase struct {
	PreloadedQueue []*Job
	Heatmap        Heatmap
}

// NewSpeedupDatabase creates a database over a copy of jobs. The heatmap is
// shared; the caller's slice is never reordered or shortened.
func NewSpeedupDatabase(jobs []*Job, heatmap Heatmap) *SpeedupDatabase {
	if heatmap == nil {
		heatmap = make(Heatmap)
	}
	return &SpeedupDatabase{
		PreloadedQueue: append([]*Job(nil), jobs...),
		Heatmap:        heatmap,
	}
}

// SortBySubmitTime orders the preloaded queue by submit time, preserving the
// input order of jobs submitted at the same time.
func (db *SpeedupDatabase) SortBySubmitTime() {
	sort.SliceStable(db.PreloadedQueue, func(i, j int) bool {
		return db.PreloadedQueue[i].SubmitTime < db.PreloadedQueue[j].SubmitTime
	})
}

// Len returns the number of jobs still waiting to be submitted.
func (db *SpeedupDatabase) Len() int {
	return len(db.PreloadedQueue)
}

// Remove takes job out of the preloaded queue. Returns false if the job is
// not there.
func (db *SpeedupDatabase) Remove(job *Job) bool {
	for i, j := range db.PreloadedQueue {
		if j == job {
			db.PreloadedQueue = append(db.PreloadedQueue[:i], db.PreloadedQueue[i+1:]...)
			return true
		}
	}
	return false
}

// NextSubmitTime returns the earliest submit time strictly after now, or +Inf
// when no such job exists.
func (db *SpeedupDatabase) NextSubmitTime(now float64) float64 {
	next := math.Inf(1)
	for _, job := range db.PreloadedQueue {
		if job.SubmitTime > now && job.SubmitTime < next {
			next = job.SubmitTime
		}
	}
	return next
}
