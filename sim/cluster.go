package sim

import (
	"fmt"

	"k8s.io/utils/cpuset"
)

// QueueUnbounded admits every arrived job into the waiting queue.
const QueueUnbounded = -1

// HostAllocation is the set of cores a placement takes on one host, one core
// set per socket.
type HostAllocation struct {
	Host  string
	Cores []cpuset.CPUSet
}

// Size returns the number of cores in the allocation.
func (a HostAllocation) Size() int {
	n := 0
	for _, c := range a.Cores {
		n += c.Size()
	}
	return n
}

// Cluster owns the hosts and the admitted jobs of one simulation run.
type Cluster struct {
	Nodes      int
	Layout     SocketLayout // full socket layout of every host
	HalfLayout SocketLayout
	// QueueSize is the admission policy: QueueUnbounded, 0 for "only when it
	// can be placed immediately", n > 0 for at most n waiting jobs.
	QueueSize int

	Hosts     []*Host
	hostIndex map[string]int

	WaitingQueue  *WaitQueue
	ExecutionList []*Job
	Finished      []*Job
}

// NewCluster creates a cluster of identical idle hosts named host0..hostN-1.
// Panics on a non-positive node count or an empty socket layout.
func NewCluster(nodes int, layout SocketLayout, queueSize int) *Cluster {
	if nodes <= 0 {
		panic(fmt.Sprintf("NewCluster: nodes must be positive, got %d", nodes))
	}
	if len(layout) == 0 || layout.Sum() <= 0 {
		panic(fmt.Sprintf("NewCluster: invalid socket layout %v", layout))
	}
	if queueSize < QueueUnbounded {
		panic(fmt.Sprintf("NewCluster: invalid queue size %d", queueSize))
	}
	c := &Cluster{
		Nodes:        nodes,
		Layout:       append(SocketLayout(nil), layout...),
		HalfLayout:   layout.Half(),
		QueueSize:    queueSize,
		Hosts:        make([]*Host, nodes),
		hostIndex:    make(map[string]int, nodes),
		WaitingQueue: &WaitQueue{},
	}
	cpn := layout.Sum()
	for i := 0; i < nodes; i++ {
		name := fmt.Sprintf("host%d", i)
		c.Hosts[i] = NewHost(name, layout, i*cpn+1)
		c.hostIndex[name] = i
	}
	return c
}

// CoresPerNode returns the number of cores of one host.
func (c *Cluster) CoresPerNode() int {
	return c.Layout.Sum()
}

// Host returns the host with the given name, or nil.
func (c *Cluster) Host(name string) *Host {
	i, ok := c.hostIndex[name]
	if !ok {
		return nil
	}
	return c.Hosts[i]
}

// TotalCores returns the cores of every host that is not down.
func (c *Cluster) TotalCores() int {
	total := 0
	for _, h := range c.Hosts {
		if h.Status != HostDown {
			total += h.TotalCores()
		}
	}
	return total
}

// FreeCores returns the free cores of every host that is not down.
func (c *Cluster) FreeCores() int {
	free := 0
	for _, h := range c.Hosts {
		if h.Status != HostDown {
			free += h.FreeCores()
		}
	}
	return free
}

// IdleHosts returns the names of hosts without any job, in host order.
func (c *Cluster) IdleHosts() []string {
	var names []string
	for _, h := range c.Hosts {
		if h.Status == HostIdle {
			names = append(names, h.Name)
		}
	}
	return names
}

// FindSuitableNodes scans the hosts for ones that can serve layout and
// returns, per host, the cores that would be consumed. Each qualifying host
// contributes layout.Sum() cores towards requiredCores. Returns nil when the
// cluster cannot provide enough.
func (c *Cluster) FindSuitableNodes(requiredCores int, layout SocketLayout) []HostAllocation {
	return c.findSuitable(c.Hosts, requiredCores, layout)
}

// FindSuitableNodesOn behaves like FindSuitableNodes but only considers the
// named hosts, in the given order.
func (c *Cluster) FindSuitableNodesOn(names []string, requiredCores int, layout SocketLayout) []HostAllocation {
	hosts := make([]*Host, 0, len(names))
	for _, name := range names {
		if h := c.Host(name); h != nil {
			hosts = append(hosts, h)
		}
	}
	return c.findSuitable(hosts, requiredCores, layout)
}

func (c *Cluster) findSuitable(hosts []*Host, requiredCores int, layout SocketLayout) []HostAllocation {
	perHost := layout.Sum()
	if perHost <= 0 || requiredCores <= 0 {
		return nil
	}
	var found []HostAllocation
	for _, h := range hosts {
		if requiredCores <= 0 {
			break
		}
		if !h.Fits(layout) {
			continue
		}
		found = append(found, HostAllocation{Host: h.Name, Cores: h.Take(layout)})
		requiredCores -= perHost
	}
	if requiredCores > 0 {
		return nil
	}
	return found
}

// IdlePool returns the free cores of every idle host.
func (c *Cluster) IdlePool() cpuset.CPUSet {
	pool := cpuset.New()
	for _, h := range c.Hosts {
		if h.Status != HostIdle {
			continue
		}
		for _, s := range h.Sockets {
			pool = pool.Union(s)
		}
	}
	return pool
}

// AssignNodes consumes whole nodes from available until requiredCores are
// covered. available is split into contiguous intervals; intervals shorter
// than one node are skipped and only node-aligned chunks are taken from the
// rest. Returns false when the pool cannot satisfy the requirement.
func (c *Cluster) AssignNodes(requiredCores int, available cpuset.CPUSet) (cpuset.CPUSet, bool) {
	if requiredCores <= 0 {
		return cpuset.New(), true
	}
	cpn := c.CoresPerNode()
	var taken []int
	for _, iv := range intervals(available) {
		if iv.hi-iv.lo+1 < cpn {
			continue
		}
		// Core ids of node k are k*cpn+1 .. (k+1)*cpn.
		start := iv.lo + (cpn-(iv.lo-1)%cpn)%cpn
		for ; start+cpn-1 <= iv.hi && len(taken) < requiredCores; start += cpn {
			for id := start; id < start+cpn; id++ {
				taken = append(taken, id)
			}
		}
		if len(taken) >= requiredCores {
			return cpuset.New(taken...), true
		}
	}
	return cpuset.New(), false
}

// HostsOf maps a core set back to per-host allocations, in host order.
func (c *Cluster) HostsOf(cores cpuset.CPUSet) []HostAllocation {
	var out []HostAllocation
	for _, h := range c.Hosts {
		alloc := HostAllocation{Host: h.Name, Cores: make([]cpuset.CPUSet, len(h.Capacity))}
		hit := false
		for i, capacity := range h.Capacity {
			alloc.Cores[i] = capacity.Intersection(cores)
			if !alloc.Cores[i].IsEmpty() {
				hit = true
			}
		}
		if hit {
			out = append(out, alloc)
		}
	}
	return out
}

type interval struct{ lo, hi int }

// intervals splits a core set into maximal runs of consecutive ids.
func intervals(s cpuset.CPUSet) []interval {
	var out []interval
	for _, id := range s.List() {
		if n := len(out); n > 0 && out[n-1].hi == id-1 {
			out[n-1].hi = id
			continue
		}
		out = append(out, interval{lo: id, hi: id})
	}
	return out
}

// ExecutionUnits groups the executing jobs by the hosts they share. Units are
// returned in execution-list order of their first job.
func (c *Cluster) ExecutionUnits() []ExecutionUnit {
	bySig := make(map[string]*Job, len(c.ExecutionList))
	for _, j := range c.ExecutionList {
		bySig[j.Signature()] = j
	}
	visited := make(map[*Job]bool, len(c.ExecutionList))

	var units []ExecutionUnit
	for _, root := range c.ExecutionList {
		if visited[root] {
			continue
		}
		var members []*Job
		hostSeen := make(map[string]bool)
		stack := []*Job{root}
		visited[root] = true
		for len(stack) > 0 {
			j := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			members = append(members, j)
			for _, name := range j.AssignedHosts {
				if hostSeen[name] {
					continue
				}
				hostSeen[name] = true
				for _, sig := range c.Host(name).Signatures() {
					if n, ok := bySig[sig]; ok && !visited[n] {
						visited[n] = true
						stack = append(stack, n)
					}
				}
			}
		}
		units = append(units, c.buildUnit(members, hostSeen))
	}
	return units
}

func (c *Cluster) buildUnit(members []*Job, hostSet map[string]bool) ExecutionUnit {
	// Keep execution-list order among members.
	ordered := make([]*Job, 0, len(members))
	for _, j := range c.ExecutionList {
		for _, m := range members {
			if m == j {
				ordered = append(ordered, j)
				break
			}
		}
	}
	anchor := 0
	for i, j := range ordered {
		if j.BoundCores > ordered[anchor].BoundCores {
			anchor = i
		}
	}

	unit := ExecutionUnit{Slots: []ExecutionSlot{Occupied(ordered[anchor])}}
	for i, j := range ordered {
		if i != anchor {
			unit.Slots = append(unit.Slots, Occupied(j))
		}
	}
	idle := 0
	for _, h := range c.Hosts {
		if hostSet[h.Name] {
			unit.Hosts = append(unit.Hosts, h.Name)
			idle += h.FreeCores()
		}
	}
	if idle > 0 {
		unit.Slots = append(unit.Slots, Idle(idle))
	}
	return unit
}

// FilledUnits returns the execution units without idle cores.
func (c *Cluster) FilledUnits() []ExecutionUnit {
	var out []ExecutionUnit
	for _, u := range c.ExecutionUnits() {
		if u.Filled() {
			out = append(out, u)
		}
	}
	return out
}

// NonFilledUnits returns the execution units with room for another tenant.
func (c *Cluster) NonFilledUnits() []ExecutionUnit {
	var out []ExecutionUnit
	for _, u := range c.ExecutionUnits() {
		if !u.Filled() {
			out = append(out, u)
		}
	}
	return out
}

// HalfFreeHosts returns the hosts of job on which another job could take a
// half socket layout, in the job's host order.
func (c *Cluster) HalfFreeHosts(job *Job) []string {
	var names []string
	for _, name := range job.AssignedHosts {
		if h := c.Host(name); h != nil && h.Fits(c.HalfLayout) {
			names = append(names, name)
		}
	}
	return names
}

// CheckInvariants verifies core conservation on every host and across the
// cluster, and that executing jobs are registered on their hosts.
func (c *Cluster) CheckInvariants() error {
	for _, h := range c.Hosts {
		if err := h.CheckInvariants(); err != nil {
			return err
		}
	}
	free, total := c.FreeCores(), c.TotalCores()
	if free < 0 || free > total {
		return fmt.Errorf("free cores %d outside [0, %d]", free, total)
	}
	for _, j := range c.ExecutionList {
		for _, name := range j.AssignedHosts {
			h := c.Host(name)
			if h == nil {
				return fmt.Errorf("job %s assigned to unknown host %s", j.Signature(), name)
			}
			if _, ok := h.Jobs[j.Signature()]; !ok {
				return fmt.Errorf("job %s missing from host %s", j.Signature(), name)
			}
		}
	}
	return nil
}

// removeExecuting deletes job from the execution list.
func (c *Cluster) removeExecuting(job *Job) bool {
	for i, j := range c.ExecutionList {
		if j == job {
			c.ExecutionList = append(c.ExecutionList[:i], c.ExecutionList[i+1:]...)
			return true
		}
	}
	return false
}

// Empty reports whether no job is waiting or executing.
func (c *Cluster) Empty() bool {
	return c.WaitingQueue.Len() == 0 && len(c.ExecutionList) == 0
}
