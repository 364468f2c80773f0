package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/realsim/cosim/sim"
	"github.com/realsim/cosim/sim/experiment"
)

// printReport writes one block per experiment with a line per policy.
func printReport(w io.Writer, name string, results []*experiment.EvaluationResult) {
	fmt.Fprintf(w, "=== Experiment %s ===\n", name)
	fmt.Fprintf(w, "%-14s %12s %9s %12s %12s %12s %9s\n",
		"policy", "makespan", "speedup", "wait mean", "wait p95", "job speedup", "util")
	for _, r := range results {
		policy := r.Policy
		if r.Default {
			policy += "*"
		}
		fmt.Fprintf(w, "%-14s %12.2f %9.3f %12.2f %12.2f %12.3f %9.3f\n",
			policy, r.Makespan, r.MakespanSpeedup, r.Waiting.Mean, r.Waiting.P95, r.JobSpeedup.Mean, r.Summary.Utilization)
	}
	for _, r := range results {
		fmt.Fprintf(w, "%-14s deployments: %s\n", r.Policy, formatStats(r.Stats))
	}
}

func formatStats(stats sim.DeployStats) string {
	kinds := make([]string, 0, len(stats))
	for k := range stats {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	out := ""
	for i, k := range kinds {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%d", k, stats[sim.DeployKind(k)])
	}
	return out
}
