package sim

import (
	"sort"
)

// Heatmap maps a workload name to the speedups it experiences when
// co-located with other workloads. heatmap[a][b] is a's speedup next to b;
// the table is not symmetric. A missing entry means the pair was never
// measured.
//
// A Heatmap is built once before a run and is read-only afterwards, so it can
// be shared by concurrent runs without locking.
type Heatmap map[string]map[string]float64

// Set records a's speedup when co-located with b.
func (h Heatmap) Set(a, b string, speedup float64) {
	row, ok := h[a]
	if !ok {
		row = make(map[string]float64)
		h[a] = row
	}
	row[b] = speedup
}

// Lookup returns a's speedup next to b, or false when unknown.
func (h Heatmap) Lookup(a, b string) (float64, bool) {
	row, ok := h[a]
	if !ok {
		return 0, false
	}
	v, ok := row[b]
	return v, ok
}

// PairAverage returns the two-way average speedup of a and b. It is only
// defined when both directions are known.
func (h Heatmap) PairAverage(a, b string) (float64, bool) {
	ab, ok := h.Lookup(a, b)
	if !ok {
		return 0, false
	}
	ba, ok := h.Lookup(b, a)
	if !ok {
		return 0, false
	}
	return (ab + ba) / 2, true
}

// Known returns every known speedup of a, ordered by co-workload name.
func (h Heatmap) Known(a string) []float64 {
	row := h[a]
	names := make([]string, 0, len(row))
	for name := range row {
		names = append(names, name)
	}
	sort.Strings(names)
	values := make([]float64, 0, len(names))
	for _, name := range names {
		values = append(values, row[name])
	}
	return values
}

// BuildHeatmap creates the speedup table for a set of workloads. Every ordered
// pair of workload names (self pairs included) gets an entry when the first
// workload carries a measurement against the second. Workloads sharing a name
// are treated as the same record.
func BuildHeatmap(workloads []Workload) Heatmap {
	byName := make(map[string]Workload)
	names := make([]string, 0, len(workloads))
	for _, w := range workloads {
		if w == nil {
			panic("BuildHeatmap: workload must not be nil")
		}
		if _, seen := byName[w.Name()]; seen {
			continue
		}
		byName[w.Name()] = w
		names = append(names, w.Name())
	}

	h := make(Heatmap, len(names))
	for _, a := range names {
		h[a] = make(map[string]float64)
		for _, b := range names {
			if v, ok := byName[a].MedianSpeedup(b); ok {
				h[a][b] = v
			}
		}
	}
	return h
}
