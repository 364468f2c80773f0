package sim

import (
	"hash/fnv"
	"math/rand"
)

// SimulationKey is the seed of one experiment. Every run of the experiment,
// whatever its policy, draws its job set and its random scheduling decisions
// from streams derived from this key.
type SimulationKey int64

// NewSimulationKey wraps an experiment seed.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// Random streams of a run. Job-set generation is seeded with the key itself,
// so a trace generated from seed N is the same job set for every policy.
// Scheduling decisions of the random and execution-unaware co-schedulers use
// a stream of their own, so drawing more or fewer jobs never changes them.
const (
	SubsystemWorkload  = "workload"
	SubsystemScheduler = "scheduler"
)

// PartitionedRNG hands out one *rand.Rand per named stream of a run. A run
// owns its PartitionedRNG; it is not safe for concurrent use.
type PartitionedRNG struct {
	key     SimulationKey
	streams map[string]*rand.Rand
}

// NewPartitionedRNG creates the random streams of a run seeded by key.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{key: key, streams: make(map[string]*rand.Rand)}
}

// ForSubsystem returns the stream called name, creating it on first use.
// Repeated calls share one generator.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	rng, ok := p.streams[name]
	if !ok {
		rng = rand.New(rand.NewSource(p.seedFor(name)))
		p.streams[name] = rng
	}
	return rng
}

// Key returns the experiment seed.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// seedFor mixes the FNV-1a hash of a stream name into the key. The workload
// stream keeps the key unchanged.
func (p *PartitionedRNG) seedFor(name string) int64 {
	if name == SubsystemWorkload {
		return int64(p.key)
	}
	h := fnv.New64a()
	h.Write([]byte(name))
	return int64(p.key) ^ int64(h.Sum64())
}
