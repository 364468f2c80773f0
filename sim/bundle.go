package sim

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// PolicyConfig holds the configuration of one scheduling policy, loadable
// from YAML. Nil pointer fields mean "not set in YAML" and fall back to the
// policy defaults.
type PolicyConfig struct {
	Name           string       `yaml:"name"`
	Threshold      *float64     `yaml:"threshold"`
	RanksThreshold *float64     `yaml:"ranks_threshold"`
	Aging          *AgingConfig `yaml:"aging"`
}

// AgingConfig holds the aging parameters of a co-scheduling policy.
type AgingConfig struct {
	Threshold int     `yaml:"threshold"`
	TimeStep  float64 `yaml:"time_step"`
}

// policyFile is the on-disk layout of a policy list.
type policyFile struct {
	Policies []PolicyConfig `yaml:"policies"`
}

// LoadPolicyConfigs reads and parses a YAML file holding a `policies:` list.
// Unknown fields are rejected.
func LoadPolicyConfigs(path string) ([]PolicyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy config: %w", err)
	}
	var file policyFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("parsing policy config: %w", err)
	}
	for i := range file.Policies {
		if err := file.Policies[i].Validate(); err != nil {
			return nil, fmt.Errorf("policy %d: %w", i, err)
		}
	}
	return file.Policies, nil
}

// ValidSchedulers is the set of recognized scheduler names.
// Shared by Validate() and NewScheduler() to avoid duplication.
var ValidSchedulers = map[string]bool{
	"":                  true,
	"fifo":              true,
	"easy":              true,
	"ranks":             true,
	"balancing":         true,
	"balancing-unaware": true,
	"bester":            true,
	"dampened":          true,
	"random":            true,
	"random-no-mg":      true,
}

// coschedulers is the subset of ValidSchedulers that accepts thresholds and aging.
var coschedulers = map[string]bool{
	"ranks": true, "balancing": true, "balancing-unaware": true, "bester": true,
	"dampened": true, "random": true, "random-no-mg": true,
}

// IsValidScheduler returns true if name is a recognized scheduler.
func IsValidScheduler(name string) bool {
	return ValidSchedulers[name]
}

// ValidSchedulerNames returns the sorted non-empty scheduler names.
func ValidSchedulerNames() []string {
	names := make([]string, 0, len(ValidSchedulers))
	for name := range ValidSchedulers {
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Validate checks the policy name and parameter ranges.
func (p PolicyConfig) Validate() error {
	if !IsValidScheduler(p.Name) {
		return fmt.Errorf("unknown scheduler %q", p.Name)
	}
	if !coschedulers[p.Name] {
		if p.Threshold != nil || p.RanksThreshold != nil || p.Aging != nil {
			return fmt.Errorf("scheduler %q takes no threshold or aging parameters", p.Name)
		}
		return nil
	}
	if p.Threshold != nil && *p.Threshold <= 0 {
		return fmt.Errorf("threshold must be positive, got %f", *p.Threshold)
	}
	if p.ranksThreshold() < p.threshold() {
		return fmt.Errorf("ranks_threshold %f must not be lower than threshold %f", p.ranksThreshold(), p.threshold())
	}
	if p.Aging != nil {
		if p.Aging.Threshold <= 0 {
			return fmt.Errorf("aging threshold must be positive, got %d", p.Aging.Threshold)
		}
		if p.Aging.TimeStep <= 0 {
			return fmt.Errorf("aging time_step must be positive, got %f", p.Aging.TimeStep)
		}
	}
	return nil
}

// DisplayName returns the policy name, defaulting to fifo.
func (p PolicyConfig) DisplayName() string {
	if p.Name == "" {
		return "fifo"
	}
	return p.Name
}

func (p PolicyConfig) threshold() float64 {
	if p.Threshold == nil {
		return 1.0
	}
	return *p.Threshold
}

func (p PolicyConfig) ranksThreshold() float64 {
	if p.RanksThreshold == nil {
		return p.threshold()
	}
	return *p.RanksThreshold
}

func (p PolicyConfig) agingPolicy() AgingPolicy {
	if p.Aging == nil {
		return AgingPolicy{}
	}
	return AgingPolicy{Threshold: p.Aging.Threshold, TimeStep: p.Aging.TimeStep}
}
