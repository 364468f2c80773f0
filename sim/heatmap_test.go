package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildHeatmap_KnownAndUnknownPairs(t *testing.T) {
	// GIVEN a measured a->b pair and an unmeasured b->a pair
	a := newTestWorkload("a", 2, 10, map[string]float64{"b": 1.3, "a": 1.0})
	b := newTestWorkload("b", 2, 10, nil)

	h := BuildHeatmap([]Workload{a, b})

	v, ok := h.Lookup("a", "b")
	assert.True(t, ok)
	assert.Equal(t, 1.3, v)
	_, ok = h.Lookup("b", "a")
	assert.False(t, ok)
	_, ok = h.PairAverage("a", "b")
	assert.False(t, ok, "average needs both directions")
	assert.Equal(t, []float64{1.0, 1.3}, h.Known("a"))
	assert.Empty(t, h.Known("b"))
}

func TestHeatmap_PairAverage_IsSymmetric(t *testing.T) {
	h := make(Heatmap)
	h.Set("a", "b", 1.4)
	h.Set("b", "a", 0.8)

	ab, ok := h.PairAverage("a", "b")
	assert.True(t, ok)
	ba, _ := h.PairAverage("b", "a")
	assert.InDelta(t, 1.1, ab, 1e-12)
	assert.Equal(t, ab, ba)
}

func TestBuildHeatmap_IgnoresCoNamesOutsideSet(t *testing.T) {
	a := newTestWorkload("a", 2, 10, map[string]float64{"zz": 2.0})

	h := BuildHeatmap([]Workload{a})

	_, ok := h.Lookup("a", "zz")
	assert.False(t, ok)
}

func TestSpeedupDatabase_NextSubmitTime(t *testing.T) {
	w := newTestWorkload("a", 2, 10, nil)
	db := NewSpeedupDatabase([]*Job{NewJob(w, 30, 0), NewJob(w, 10, 0), NewJob(w, 10, 0)}, nil)

	db.SortBySubmitTime()

	assert.Equal(t, 10.0, db.PreloadedQueue[0].SubmitTime)
	assert.Equal(t, 10.0, db.NextSubmitTime(0))
	assert.Equal(t, 30.0, db.NextSubmitTime(10))
	assert.True(t, db.NextSubmitTime(30) > 1e300)
	assert.True(t, db.Remove(db.PreloadedQueue[0]))
	assert.Equal(t, 2, db.Len())
}

func TestNewSpeedupDatabase_CallerSliceUntouched(t *testing.T) {
	// GIVEN jobs handed to the database out of submit order
	w := newTestWorkload("a", 2, 10, nil)
	jobs := []*Job{NewJob(w, 30, 0), NewJob(w, 10, 0), NewJob(w, 20, 0)}
	first, second, third := jobs[0], jobs[1], jobs[2]
	db := NewSpeedupDatabase(jobs, nil)

	// WHEN the database sorts and drains its queue
	db.SortBySubmitTime()
	require.True(t, db.Remove(second))
	require.True(t, db.Remove(third))

	// THEN the caller's slice still holds the original jobs in order
	assert.Equal(t, []*Job{first, second, third}, jobs)
	assert.Equal(t, []*Job{first}, db.PreloadedQueue)
}
