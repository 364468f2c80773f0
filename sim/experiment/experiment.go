// Package experiment runs one workload trace under several scheduling
// policies in parallel and compares every run against a default policy.
package experiment

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/realsim/cosim/sim"
	"github.com/realsim/cosim/sim/trace"
	"github.com/realsim/cosim/sim/workload"
)

// ClusterConfig describes the simulated machine.
type ClusterConfig struct {
	Nodes   int   `yaml:"nodes"`
	Sockets []int `yaml:"sockets"` // cores per socket of every node
	// QueueSize bounds the waiting queue; nil or -1 means unbounded, 0 admits only
	// jobs that can start immediately.
	QueueSize *int `yaml:"queue_size,omitempty"`
}

// Layout returns the full socket layout of a node.
func (c ClusterConfig) Layout() sim.SocketLayout {
	return sim.SocketLayout(append([]int(nil), c.Sockets...))
}

// QueueLimit returns the queue size in the form sim.NewCluster expects.
func (c ClusterConfig) QueueLimit() int {
	if c.QueueSize == nil || *c.QueueSize < 0 {
		return sim.QueueUnbounded
	}
	return *c.QueueSize
}

// Experiment is one workload trace evaluated under a set of policies.
type Experiment struct {
	Name string
	Seed int64
	// Parallelism caps concurrent runs; 0 or less runs every policy at once.
	Parallelism int
	Cluster     ClusterConfig
	// DefaultPolicy names the policy every other run is compared against.
	// Empty means the first policy.
	DefaultPolicy string
	Policies      []sim.PolicyConfig
	Trace         *workload.Trace
	TraceLevel    trace.TraceLevel
}

// Validate reports every configuration problem at once.
func (x *Experiment) Validate() error {
	var result *multierror.Error

	if x.Name == "" {
		result = multierror.Append(result, errors.New("experiment name is empty"))
	}
	if x.Cluster.Nodes <= 0 {
		result = multierror.Append(result, errors.Errorf("cluster nodes must be positive, got %d", x.Cluster.Nodes))
	}
	if len(x.Cluster.Sockets) == 0 {
		result = multierror.Append(result, errors.New("cluster sockets are empty"))
	}
	for i, cores := range x.Cluster.Sockets {
		if cores <= 0 || cores%2 != 0 {
			result = multierror.Append(result, errors.Errorf("cluster sockets[%d]: cores must be positive and even, got %d", i, cores))
		}
	}
	if q := x.Cluster.QueueSize; q != nil && *q < sim.QueueUnbounded {
		result = multierror.Append(result, errors.Errorf("cluster queue_size must be -1 (unbounded) or non-negative, got %d", *q))
	}
	if x.TraceLevel != "" && !trace.IsValidTraceLevel(string(x.TraceLevel)) {
		result = multierror.Append(result, errors.Errorf("unknown trace level %q", x.TraceLevel))
	}

	if len(x.Policies) == 0 {
		result = multierror.Append(result, errors.New("no policies"))
	}
	seen := make(map[string]bool, len(x.Policies))
	for i, p := range x.Policies {
		if err := p.Validate(); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "policies[%d]", i))
		}
		name := p.DisplayName()
		if seen[name] {
			result = multierror.Append(result, errors.Errorf("policies[%d]: duplicate policy %q", i, name))
		}
		seen[name] = true
	}
	if x.DefaultPolicy != "" && !seen[x.DefaultPolicy] {
		result = multierror.Append(result, errors.Errorf("default policy %q is not among the policies", x.DefaultPolicy))
	}

	if x.Trace == nil {
		result = multierror.Append(result, errors.New("no workload trace"))
	} else if err := x.Trace.Validate(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "trace"))
	}
	return result.ErrorOrNil()
}

// defaultIndex returns the index of the default policy.
func (x *Experiment) defaultIndex() int {
	for i, p := range x.Policies {
		if p.DisplayName() == x.DefaultPolicy {
			return i
		}
	}
	return 0
}

func (x *Experiment) String() string {
	return fmt.Sprintf("%s (nodes=%d sockets=%v policies=%d)", x.Name, x.Cluster.Nodes, x.Cluster.Sockets, len(x.Policies))
}
