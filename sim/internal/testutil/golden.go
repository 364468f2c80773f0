// Package testutil provides shared test infrastructure for the simulator:
// the golden dataset of reference runs and float comparison helpers.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase is one reference run: a trace simulated under one policy on
// a given cluster.
type GoldenTestCase struct {
	Name    string        `json:"name"`
	Trace   string        `json:"trace"` // file under testdata/traces
	Nodes   int           `json:"nodes"`
	Sockets []int         `json:"sockets"`
	Policy  string        `json:"policy"`
	Seed    int64         `json:"seed"`
	Metrics GoldenMetrics `json:"metrics"`
}

// GoldenMetrics represents the expected outcome of a golden test case.
type GoldenMetrics struct {
	// Exact match
	FinishedJobs int            `json:"finished_jobs"`
	Deployments  map[string]int `json:"deployments"`

	// Simulation clock derived
	Makespan        float64 `json:"makespan"`
	MeanWaitingTime float64 `json:"mean_waiting_time"`
}

func testdataDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	// sim/internal/testutil/ → repo root testdata/
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata")
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(testdataDir(t), "goldendataset.json"))
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}
	return &dataset
}

// TracePath returns the path of a trace file of the golden dataset.
func TracePath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(testdataDir(t), "traces", name)
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
