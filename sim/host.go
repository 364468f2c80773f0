package sim

import (
	"fmt"
	"sort"

	"k8s.io/utils/cpuset"
)

// HostStatus is the allocation status of a host.
type HostStatus string

const (
	HostIdle      HostStatus = "idle"
	HostAllocated HostStatus = "allocated"
	HostDown      HostStatus = "down"
)

// SocketLayout lists a core count per socket. For a host it is the socket
// configuration; for a placement it is the number of cores taken from each
// socket.
type SocketLayout []int

// Sum returns the total cores of the layout.
func (l SocketLayout) Sum() int {
	total := 0
	for _, c := range l {
		total += c
	}
	return total
}

// Half returns the layout using half of every socket.
func (l SocketLayout) Half() SocketLayout {
	half := make(SocketLayout, len(l))
	for i, c := range l {
		half[i] = c / 2
	}
	return half
}

// Equal reports whether both layouts have the same per-socket counts.
func (l SocketLayout) Equal(o SocketLayout) bool {
	if len(l) != len(o) {
		return false
	}
	for i := range l {
		if l[i] != o[i] {
			return false
		}
	}
	return true
}

// Host is a node exposing one core set per socket.
type Host struct {
	Name     string
	Capacity []cpuset.CPUSet // every core of each socket
	Sockets  []cpuset.CPUSet // currently free cores of each socket
	Jobs     map[string][]cpuset.CPUSet
	Status   HostStatus
}

// NewHost creates an idle host whose cores are numbered consecutively from
// firstCoreID across its sockets.
func NewHost(name string, layout SocketLayout, firstCoreID int) *Host {
	h := &Host{
		Name:     name,
		Capacity: make([]cpuset.CPUSet, len(layout)),
		Sockets:  make([]cpuset.CPUSet, len(layout)),
		Jobs:     make(map[string][]cpuset.CPUSet),
		Status:   HostIdle,
	}
	next := firstCoreID
	for i, cores := range layout {
		ids := make([]int, cores)
		for c := range ids {
			ids[c] = next + c
		}
		h.Capacity[i] = cpuset.New(ids...)
		h.Sockets[i] = cpuset.New(ids...)
		next += cores
	}
	return h
}

// FreeCores returns the number of free cores across all sockets.
func (h *Host) FreeCores() int {
	free := 0
	for _, s := range h.Sockets {
		free += s.Size()
	}
	return free
}

// TotalCores returns the number of cores across all sockets.
func (h *Host) TotalCores() int {
	total := 0
	for _, s := range h.Capacity {
		total += s.Size()
	}
	return total
}

// Fits reports whether each socket has at least layout[i] free cores.
func (h *Host) Fits(layout SocketLayout) bool {
	if h.Status == HostDown || len(layout) != len(h.Sockets) {
		return false
	}
	for i, need := range layout {
		if h.Sockets[i].Size() < need {
			return false
		}
	}
	return true
}

// Take returns the first layout[i] free cores of each socket without
// claiming them. The caller must check Fits first.
func (h *Host) Take(layout SocketLayout) []cpuset.CPUSet {
	taken := make([]cpuset.CPUSet, len(layout))
	for i, need := range layout {
		taken[i] = cpuset.New(h.Sockets[i].List()[:need]...)
	}
	return taken
}

// Claim moves cores from the free sets to the job's occupancy entry.
func (h *Host) Claim(signature string, cores []cpuset.CPUSet) error {
	if len(cores) != len(h.Sockets) {
		return fmt.Errorf("host %s: claim of %d sockets, host has %d", h.Name, len(cores), len(h.Sockets))
	}
	if _, exists := h.Jobs[signature]; exists {
		return fmt.Errorf("host %s: job %s already placed", h.Name, signature)
	}
	for i, c := range cores {
		if !c.IsSubsetOf(h.Sockets[i]) {
			return fmt.Errorf("host %s: cores %s of socket %d are not free (free %s)", h.Name, c, i, h.Sockets[i])
		}
	}
	for i, c := range cores {
		h.Sockets[i] = h.Sockets[i].Difference(c)
	}
	h.Jobs[signature] = cores
	h.Status = HostAllocated
	return nil
}

// Release returns the cores held by signature to the free sets.
func (h *Host) Release(signature string) error {
	cores, ok := h.Jobs[signature]
	if !ok {
		return fmt.Errorf("host %s: job %s is not placed here", h.Name, signature)
	}
	for i, c := range cores {
		h.Sockets[i] = h.Sockets[i].Union(c)
	}
	delete(h.Jobs, signature)
	if len(h.Jobs) == 0 && h.Status != HostDown {
		h.Status = HostIdle
	}
	return nil
}

// Signatures returns the signatures of the jobs on this host in sorted order.
func (h *Host) Signatures() []string {
	sigs := make([]string, 0, len(h.Jobs))
	for sig := range h.Jobs {
		sigs = append(sigs, sig)
	}
	sort.Strings(sigs)
	return sigs
}

// CheckInvariants verifies that on every socket the free cores and the cores
// held by jobs are disjoint and together form the socket's capacity, and that
// the status agrees with the occupancy.
func (h *Host) CheckInvariants() error {
	for i, capacity := range h.Capacity {
		used := cpuset.New()
		for _, sig := range h.Signatures() {
			held := h.Jobs[sig][i]
			if !held.Intersection(used).IsEmpty() {
				return fmt.Errorf("host %s socket %d: job %s overlaps cores %s", h.Name, i, sig, held.Intersection(used))
			}
			used = used.Union(held)
		}
		if !used.Intersection(h.Sockets[i]).IsEmpty() {
			return fmt.Errorf("host %s socket %d: cores %s are both free and held", h.Name, i, used.Intersection(h.Sockets[i]))
		}
		if !used.Union(h.Sockets[i]).Equals(capacity) {
			return fmt.Errorf("host %s socket %d: free %s + held %s != capacity %s", h.Name, i, h.Sockets[i], used, capacity)
		}
	}
	if h.Status == HostIdle && len(h.Jobs) > 0 {
		return fmt.Errorf("host %s is idle with %d jobs", h.Name, len(h.Jobs))
	}
	if h.Status == HostAllocated && len(h.Jobs) == 0 {
		return fmt.Errorf("host %s is allocated without jobs", h.Name)
	}
	return nil
}
