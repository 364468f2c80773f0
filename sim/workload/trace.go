package workload

import (
	"bytes"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/realsim/cosim/sim"
)

// Trace is a job-set description: the workload records plus either an
// explicit list of submissions or parameters for a generated job set.
type Trace struct {
	Records  []Record      `yaml:"workloads"`
	Entries  []JobSpec     `yaml:"jobs,omitempty"`
	Generate *GenerateSpec `yaml:"generate,omitempty"`
}

// JobSpec submits Count instances of a workload at SubmitTime.
type JobSpec struct {
	Workload   string   `yaml:"workload"`
	SubmitTime float64  `yaml:"submit_time"`
	WallTime   *float64 `yaml:"wall_time,omitempty"` // defaults to the median time
	Count      int      `yaml:"count,omitempty"`     // 0 means 1
}

// GenerateSpec draws Count jobs uniformly from the workloads with
// exponentially distributed inter-arrival times.
type GenerateSpec struct {
	Count       int     `yaml:"count"`
	ArrivalRate float64 `yaml:"arrival_rate"` // jobs per second
	WallFactor  float64 `yaml:"wall_factor"`  // wall time = factor * median time, 0 means 1
}

// LoadTrace reads, strictly parses and validates a trace file.
func LoadTrace(path string) (*Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading trace %s", path)
	}
	t, err := ParseTrace(data)
	if err != nil {
		return nil, errors.Wrapf(err, "trace %s", path)
	}
	return t, nil
}

// ParseTrace decodes and validates a YAML trace. Unknown keys are rejected.
func ParseTrace(data []byte) (*Trace, error) {
	var t Trace
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&t); err != nil {
		return nil, errors.Wrap(err, "parsing trace")
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate reports every problem of the trace at once.
func (t *Trace) Validate() error {
	var result *multierror.Error

	if len(t.Records) == 0 {
		result = multierror.Append(result, errors.New("no workloads"))
	}
	names := make(map[string]bool, len(t.Records))
	for i, r := range t.Records {
		prefix := fmt.Sprintf("workloads[%d]", i)
		if r.Benchmark == "" {
			result = multierror.Append(result, errors.Errorf("%s: empty name", prefix))
		} else if names[r.Benchmark] {
			result = multierror.Append(result, errors.Errorf("%s: duplicate name %q", prefix, r.Benchmark))
		}
		names[r.Benchmark] = true
		if r.Processes <= 0 {
			result = multierror.Append(result, errors.Errorf("%s: processes must be positive, got %d", prefix, r.Processes))
		}
		if len(r.Times) == 0 {
			result = multierror.Append(result, errors.Errorf("%s: no execution times", prefix))
		}
		if !allPositive(r.Times) {
			result = multierror.Append(result, errors.Errorf("%s: execution times must be positive", prefix))
		}
		for co, samples := range r.CoTimes {
			if !allPositive(samples) {
				result = multierror.Append(result, errors.Errorf("%s: co_times[%s] must be positive", prefix, co))
			}
		}
	}

	switch {
	case len(t.Entries) == 0 && t.Generate == nil:
		result = multierror.Append(result, errors.New("either jobs or generate is required"))
	case len(t.Entries) > 0 && t.Generate != nil:
		result = multierror.Append(result, errors.New("jobs and generate are mutually exclusive"))
	}
	for i, e := range t.Entries {
		prefix := fmt.Sprintf("jobs[%d]", i)
		if !names[e.Workload] {
			result = multierror.Append(result, errors.Errorf("%s: unknown workload %q", prefix, e.Workload))
		}
		if e.SubmitTime < 0 {
			result = multierror.Append(result, errors.Errorf("%s: submit_time must be non-negative", prefix))
		}
		if e.WallTime != nil && *e.WallTime <= 0 {
			result = multierror.Append(result, errors.Errorf("%s: wall_time must be positive", prefix))
		}
		if e.Count < 0 {
			result = multierror.Append(result, errors.Errorf("%s: count must be non-negative", prefix))
		}
	}
	if g := t.Generate; g != nil {
		if g.Count <= 0 {
			result = multierror.Append(result, errors.Errorf("generate: count must be positive, got %d", g.Count))
		}
		if g.ArrivalRate <= 0 {
			result = multierror.Append(result, errors.Errorf("generate: arrival_rate must be positive, got %f", g.ArrivalRate))
		}
		if g.WallFactor < 0 {
			result = multierror.Append(result, errors.Errorf("generate: wall_factor must be non-negative, got %f", g.WallFactor))
		}
	}
	return result.ErrorOrNil()
}

func allPositive(values []float64) bool {
	for _, v := range values {
		if !(v > 0) {
			return false
		}
	}
	return true
}

// Workloads returns the records as simulator workloads.
func (t *Trace) Workloads() []sim.Workload {
	out := make([]sim.Workload, len(t.Records))
	for i := range t.Records {
		out[i] = &t.Records[i]
	}
	return out
}

func (t *Trace) record(name string) *Record {
	for i := range t.Records {
		if t.Records[i].Benchmark == name {
			return &t.Records[i]
		}
	}
	return nil
}

// Jobs instantiates a fresh job set. Every call returns new jobs, so each
// simulation run owns its own copy; generated sets are reproducible for the
// same key.
func (t *Trace) Jobs(key sim.SimulationKey) ([]*sim.Job, error) {
	if t.Generate != nil {
		return t.generate(key), nil
	}
	var jobs []*sim.Job
	for i, e := range t.Entries {
		r := t.record(e.Workload)
		if r == nil {
			return nil, errors.Errorf("jobs[%d]: unknown workload %q", i, e.Workload)
		}
		wall := r.MedianTime()
		if e.WallTime != nil {
			wall = *e.WallTime
		}
		for n := 0; n < max(e.Count, 1); n++ {
			jobs = append(jobs, sim.NewJob(r, e.SubmitTime, wall))
		}
	}
	return jobs, nil
}
