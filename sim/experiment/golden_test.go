package experiment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realsim/cosim/sim"
	"github.com/realsim/cosim/sim/internal/testutil"
	"github.com/realsim/cosim/sim/workload"
)

func TestRunner_GoldenDataset(t *testing.T) {
	dataset := testutil.LoadGoldenDataset(t)
	require.NotEmpty(t, dataset.Tests)

	for _, tc := range dataset.Tests {
		t.Run(tc.Name, func(t *testing.T) {
			// GIVEN the reference trace, cluster and policy
			tr, err := workload.LoadTrace(testutil.TracePath(t, tc.Trace))
			require.NoError(t, err)
			x := &Experiment{
				Name:     tc.Name,
				Seed:     tc.Seed,
				Cluster:  ClusterConfig{Nodes: tc.Nodes, Sockets: tc.Sockets},
				Policies: []sim.PolicyConfig{{Name: tc.Policy}},
				Trace:    tr,
			}
			r, err := NewRunner(x, nil)
			require.NoError(t, err)

			// WHEN simulated
			results, err := r.Run(context.Background())
			require.NoError(t, err)
			got := results[0]

			// THEN the outcome matches the recorded one
			want := tc.Metrics
			assert.Equal(t, want.FinishedJobs, got.Summary.FinishedJobs)
			for kind, n := range want.Deployments {
				assert.Equal(t, n, got.Stats[sim.DeployKind(kind)], "deployments of kind %s", kind)
			}
			testutil.AssertFloat64Equal(t, "makespan", want.Makespan, got.Makespan, 1e-9)
			testutil.AssertFloat64Equal(t, "mean_waiting_time", want.MeanWaitingTime, got.Summary.MeanWaitingTime, 1e-9)
		})
	}
}
