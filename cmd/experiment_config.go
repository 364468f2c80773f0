package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"

	"github.com/mattn/go-zglob"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/realsim/cosim/sim"
	"github.com/realsim/cosim/sim/experiment"
	"github.com/realsim/cosim/sim/trace"
	"github.com/realsim/cosim/sim/workload"
)

// ExperimentConfig is the on-disk layout of an experiment file. The workload
// trace is either inline or in a separate file, relative to the experiment.
type ExperimentConfig struct {
	Name          string                   `yaml:"name"`
	Seed          int64                    `yaml:"seed"`
	Parallelism   int                      `yaml:"parallelism"`
	Cluster       experiment.ClusterConfig `yaml:"cluster"`
	DefaultPolicy string                   `yaml:"default_policy"`
	TraceLevel    string                   `yaml:"trace_level"`
	Policies      []sim.PolicyConfig       `yaml:"policies"`
	TraceFile     string                   `yaml:"trace_file"`
	Trace         *workload.Trace          `yaml:"trace"`
}

// loadExperimentFile reads one experiment file. Unknown keys are errors.
func loadExperimentFile(path string) (*experiment.Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var cfg ExperimentConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing experiment %s", path)
	}

	switch {
	case cfg.TraceFile != "" && cfg.Trace != nil:
		return nil, errors.Errorf("experiment %s: trace and trace_file are mutually exclusive", path)
	case cfg.TraceFile != "":
		tracePath := cfg.TraceFile
		if !filepath.IsAbs(tracePath) {
			tracePath = filepath.Join(filepath.Dir(path), tracePath)
		}
		if cfg.Trace, err = workload.LoadTrace(tracePath); err != nil {
			return nil, errors.Wrapf(err, "experiment %s", path)
		}
	}

	name := cfg.Name
	if name == "" {
		base := filepath.Base(path)
		name = base[:len(base)-len(filepath.Ext(base))]
	}
	return &experiment.Experiment{
		Name:          name,
		Seed:          cfg.Seed,
		Parallelism:   cfg.Parallelism,
		Cluster:       cfg.Cluster,
		DefaultPolicy: cfg.DefaultPolicy,
		Policies:      cfg.Policies,
		Trace:         cfg.Trace,
		TraceLevel:    trace.TraceLevel(cfg.TraceLevel),
	}, nil
}

// experimentsFromPattern loads every experiment file matching a glob, which
// may use ** to descend into subdirectories.
func experimentsFromPattern(pattern string) ([]*experiment.Experiment, error) {
	paths, err := zglob.Glob(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "expanding %s", pattern)
	}
	if len(paths) == 0 {
		return nil, errors.Errorf("no experiment files match %s", pattern)
	}
	sort.Strings(paths)
	out := make([]*experiment.Experiment, 0, len(paths))
	for _, p := range paths {
		x, err := loadExperimentFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}
