package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScheduler_ValidNames(t *testing.T) {
	tests := []struct {
		name     string
		wantName string
		backfill bool
	}{
		{"", "fifo", false},
		{"fifo", "fifo", false},
		{"easy", "easy", true},
		{"ranks", "ranks", false},
		{"balancing", "balancing", false},
		{"balancing-unaware", "balancing-unaware", false},
		{"bester", "bester", false},
		{"dampened", "dampened", false},
		{"random", "random", false},
		{"random-no-mg", "random-no-mg", false},
	}
	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			s := NewScheduler(PolicyConfig{Name: tt.name}, NewSimulationKey(1))
			assert.Equal(t, tt.wantName, s.Name())
			assert.Equal(t, tt.backfill, s.BackfillEnabled())
		})
	}
}

func TestNewScheduler_UnknownName_Panics(t *testing.T) {
	assert.Panics(t, func() { NewScheduler(PolicyConfig{Name: "sjf"}, NewSimulationKey(1)) })
}

func TestNewScheduler_CoschedulerParameters(t *testing.T) {
	threshold, ranks := 1.05, 1.1
	s := NewScheduler(PolicyConfig{
		Name:           "balancing",
		Threshold:      &threshold,
		RanksThreshold: &ranks,
		Aging:          &AgingConfig{Threshold: 3, TimeStep: 60},
	}, NewSimulationKey(1))

	cs, ok := s.(*Coscheduler)
	require.True(t, ok)
	assert.Equal(t, 1.05, cs.Threshold)
	assert.Equal(t, 1.1, cs.RanksThreshold)
	assert.Equal(t, AgingPolicy{Threshold: 3, TimeStep: 60}, cs.Aging())
	assert.IsType(t, &BalancingOrdering{}, cs.ordering)
}

func TestNewScheduler_CoschedulerVariants(t *testing.T) {
	tests := []struct {
		name     string
		ordering Ordering
		dampened bool
	}{
		{"ranks", RanksOrdering{}, false},
		{"bester", BesterOrdering{}, false},
		{"balancing-unaware", &UnawareBalancingOrdering{}, false},
		{"dampened", RanksOrdering{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs, ok := NewScheduler(PolicyConfig{Name: tt.name}, NewSimulationKey(1)).(*Coscheduler)
			require.True(t, ok)
			assert.IsType(t, tt.ordering, cs.ordering)
			assert.Equal(t, tt.dampened, cs.dampened)
		})
	}
}

func TestFIFO_HeadOfLineBlocking(t *testing.T) {
	// GIVEN a running job, a blocked two-node job and a small job behind it
	ws := []*testWorkload{
		newTestWorkload("x", 4, 100, nil),
		newTestWorkload("y", 8, 10, nil),
		newTestWorkload("z", 4, 10, nil),
	}
	e := newTestEngine(t, NewFIFOScheduler(), 2, SocketLayout{2, 2}, QueueUnbounded, ws...)

	// WHEN the first decision cycle runs
	e.SimStep()

	// THEN the small job does not overtake the blocked one
	require.Len(t, e.Cluster.ExecutionList, 1)
	assert.Equal(t, 1, e.Stats[DeployCompact])
	finished := runToCompletion(t, e)
	y, z := jobByName(t, finished, "y"), jobByName(t, finished, "z")
	assert.Equal(t, 100.0, y.StartTime)
	assert.GreaterOrEqual(t, z.StartTime, y.StartTime)
}

func TestEASY_BackfillsShortJobBeforeReservation(t *testing.T) {
	// GIVEN the same queue as the head-of-line case
	ws := []*testWorkload{
		newTestWorkload("x", 4, 100, nil),
		newTestWorkload("y", 8, 10, nil),
		newTestWorkload("z", 4, 10, nil),
	}
	easy := NewEASYScheduler()
	e := newTestEngine(t, easy, 2, SocketLayout{2, 2}, QueueUnbounded, ws...)
	e.LoadInWaitingQueue()
	require.True(t, easy.Deploy(e))

	// THEN the blocked head gets a reservation at x's estimated end
	assert.Equal(t, 100.0, easy.Reservation(e, e.Cluster.WaitingQueue.Peek()))

	// WHEN backfilling runs
	require.True(t, easy.Backfill(e))

	// THEN z starts now without delaying y
	assert.Equal(t, 1, e.Stats[DeployBackfill])
	finished := runToCompletion(t, e)
	assert.Equal(t, 0.0, jobByName(t, finished, "z").StartTime)
	assert.Equal(t, 100.0, jobByName(t, finished, "y").StartTime)
}

func TestEASY_Backfill_LongJobNotPlaced(t *testing.T) {
	ws := []*testWorkload{
		newTestWorkload("x", 4, 100, nil),
		newTestWorkload("y", 8, 10, nil),
		newTestWorkload("z", 4, 500, nil),
	}
	easy := NewEASYScheduler()
	e := newTestEngine(t, easy, 2, SocketLayout{2, 2}, QueueUnbounded, ws...)
	e.LoadInWaitingQueue()
	easy.Deploy(e)

	assert.False(t, easy.Backfill(e))
	assert.Equal(t, 2, e.Cluster.WaitingQueue.Len())
}

func TestEASY_Reservation_NeverCoverable_IsInfinite(t *testing.T) {
	easy := NewEASYScheduler()
	e := newTestEngine(t, easy, 2, SocketLayout{2, 2}, QueueUnbounded, newTestWorkload("x", 4, 10, nil))
	head := &Job{FullSocketNodes: 3, coresPerNode: 4}

	assert.True(t, easy.Reservation(e, head) > 1e300)
	assert.False(t, easy.Backfill(e))
}

func TestAgingPolicy_Disabled(t *testing.T) {
	j := &Job{Age: 100}
	assert.False(t, AgingPolicy{}.AgedOut(j))
	assert.False(t, AgingPolicy{Threshold: 1}.Enabled())
	assert.True(t, AgingPolicy{Threshold: 1, TimeStep: 1}.AgedOut(j))
}
