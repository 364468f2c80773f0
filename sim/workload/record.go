// Package workload holds the workload records a simulation is fed with and
// the job-set traces that instantiate them.
package workload

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Record is the measured behavior of one benchmark: its solo execution time
// samples and, per co-workload, the samples taken while co-located with it.
type Record struct {
	Benchmark string               `yaml:"name"`
	Processes int                  `yaml:"processes"`
	Times     []float64            `yaml:"times"`
	CoTimes   map[string][]float64 `yaml:"co_times,omitempty"`
}

// Name returns the benchmark name.
func (r *Record) Name() string { return r.Benchmark }

// NumProcesses returns the number of processes the workload needs.
func (r *Record) NumProcesses() int { return r.Processes }

// AvgTime returns the mean solo execution time.
func (r *Record) AvgTime() float64 {
	if len(r.Times) == 0 {
		return 0
	}
	return stat.Mean(r.Times, nil)
}

// MedianTime returns the median solo execution time.
func (r *Record) MedianTime() float64 {
	return median(r.Times)
}

// MedianSpeedup returns median(solo)/median(co-located with coName), or false
// when the pair was never measured.
func (r *Record) MedianSpeedup(coName string) (float64, bool) {
	samples, ok := r.CoTimes[coName]
	if !ok || len(samples) == 0 || len(r.Times) == 0 {
		return 0, false
	}
	co := median(samples)
	if co <= 0 {
		return 0, false
	}
	return median(r.Times) / co, true
}

// median returns the middle sample, averaging the two middle ones for an
// even count.
func median(samples []float64) float64 {
	n := len(samples)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
