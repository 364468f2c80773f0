package experiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDistribution_Empty_ZeroValue(t *testing.T) {
	assert.Equal(t, Distribution{}, NewDistribution(nil))
}

func TestNewDistribution_UnsortedInput_Percentiles(t *testing.T) {
	// GIVEN five values out of order
	values := []float64{50, 10, 40, 20, 30}

	// WHEN summarized
	d := NewDistribution(values)

	// THEN the percentiles interpolate between closest ranks
	assert.Equal(t, 5, d.Count)
	assert.InDelta(t, 30, d.Mean, 1e-9)
	assert.InDelta(t, 30, d.P50, 1e-9)
	assert.InDelta(t, 48, d.P95, 1e-9)
	assert.InDelta(t, 49.6, d.P99, 1e-9)
	assert.Equal(t, 10.0, d.Min)
	assert.Equal(t, 50.0, d.Max)
	// input untouched
	assert.Equal(t, []float64{50, 10, 40, 20, 30}, values)
}

func TestPercentile_SingleValue_ReturnsIt(t *testing.T) {
	assert.Equal(t, 7.0, percentile([]float64{7}, 99))
}
