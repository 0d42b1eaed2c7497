package roadnet

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kilianp07/erdispatch/core/logger"
)

// Network is an undirected weighted road graph with a set of blocked roads.
// It is safe for concurrent use.
type Network struct {
	mu             sync.RWMutex
	nodes          []NodeID
	known          map[NodeID]struct{}
	adj            map[NodeID][]Neighbor
	blocked        map[Road]struct{}
	rejectParallel bool
	log            logger.Logger
}

// Option configures a Network.
type Option func(*Network)

// WithoutParallelEdges makes AddEdge reject a second road between the same
// pair of nodes.
func WithoutParallelEdges() Option {
	return func(n *Network) { n.rejectParallel = true }
}

// WithLogger sets the logger used to report road changes.
func WithLogger(l logger.Logger) Option {
	return func(n *Network) {
		if l != nil {
			n.log = l
		}
	}
}

// New returns an empty network.
func New(opts ...Option) *Network {
	n := &Network{
		known:   make(map[NodeID]struct{}),
		adj:     make(map[NodeID][]Neighbor),
		blocked: make(map[Road]struct{}),
		log:     logger.NopLogger{},
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// AddNode registers id. Adding an existing node is a no-op.
func (n *Network) AddNode(id NodeID) {
	n.mu.Lock()
	n.addNode(id)
	n.mu.Unlock()
}

func (n *Network) addNode(id NodeID) {
	if _, ok := n.known[id]; ok {
		return
	}
	n.known[id] = struct{}{}
	n.nodes = append(n.nodes, id)
}

// AddEdge adds an undirected road between src and dest, creating both
// endpoints if needed.
func (n *Network) AddEdge(src, dest NodeID, w Weight) error {
	if w < 0 {
		return fmt.Errorf("%w: %d-%d weight %d", ErrNegativeWeight, src, dest, w)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.rejectParallel && n.indexOf(src, dest) >= 0 {
		return fmt.Errorf("%w: %d-%d", ErrParallelEdge, src, dest)
	}
	n.addNode(src)
	n.addNode(dest)
	n.adj[src] = append(n.adj[src], Neighbor{To: dest, Weight: w})
	n.adj[dest] = append(n.adj[dest], Neighbor{To: src, Weight: w})
	return nil
}

// indexOf returns the position of the first adjacency entry from -> to, or -1.
func (n *Network) indexOf(from, to NodeID) int {
	for i, nb := range n.adj[from] {
		if nb.To == to {
			return i
		}
	}
	return -1
}

// UpdateEdgeWeight overwrites the weight of the first matching adjacency
// entry in each direction. With parallel roads only the first one changes.
func (n *Network) UpdateEdgeWeight(src, dest NodeID, w Weight) error {
	if w < 0 {
		return fmt.Errorf("%w: %d-%d weight %d", ErrNegativeWeight, src, dest, w)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	found := false
	if i := n.indexOf(src, dest); i >= 0 {
		n.adj[src][i].Weight = w
		found = true
	}
	if i := n.indexOf(dest, src); i >= 0 {
		n.adj[dest][i].Weight = w
		found = true
	}
	if !found {
		return fmt.Errorf("%w: %d-%d", ErrEdgeNotFound, src, dest)
	}
	n.log.Infof("updated road weight between %d and %d to %d", src, dest, w)
	return nil
}

// MarkBlocked marks the road between a and b as impassable. The road does
// not need to exist.
func (n *Network) MarkBlocked(a, b NodeID) {
	n.mu.Lock()
	n.blocked[NewRoad(a, b)] = struct{}{}
	n.mu.Unlock()
	n.log.Infof("road between %d and %d marked as blocked", a, b)
}

// MarkOpen clears the blocked flag of the road between a and b.
func (n *Network) MarkOpen(a, b NodeID) {
	n.mu.Lock()
	delete(n.blocked, NewRoad(a, b))
	n.mu.Unlock()
	n.log.Infof("road between %d and %d marked as open", a, b)
}

// IsBlocked reports whether the road between a and b is blocked.
func (n *Network) IsBlocked(a, b NodeID) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.blocked[NewRoad(a, b)]
	return ok
}

// BlockedRoads returns the blocked pairs sorted by A then B.
func (n *Network) BlockedRoads() []Road {
	n.mu.RLock()
	res := make([]Road, 0, len(n.blocked))
	for r := range n.blocked {
		res = append(res, r)
	}
	n.mu.RUnlock()
	sort.Slice(res, func(i, j int) bool {
		if res[i].A != res[j].A {
			return res[i].A < res[j].A
		}
		return res[i].B < res[j].B
	})
	return res
}

// Neighbors returns a copy of the adjacency list of id. Unknown nodes have
// no neighbors.
func (n *Network) Neighbors(id NodeID) []Neighbor {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]Neighbor(nil), n.adj[id]...)
}

// Nodes returns every node in insertion order.
func (n *Network) Nodes() []NodeID {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]NodeID(nil), n.nodes...)
}

// HasNode reports whether id is part of the network.
func (n *Network) HasNode(id NodeID) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.known[id]
	return ok
}

// NodeCount returns the number of nodes.
func (n *Network) NodeCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.nodes)
}

// Edges lists every road once, normalized so that From < To. When parallel
// roads exist only the first one is listed.
func (n *Network) Edges() []Edge {
	n.mu.RLock()
	defer n.mu.RUnlock()
	seen := make(map[Road]struct{})
	var res []Edge
	for _, id := range n.nodes {
		for _, nb := range n.adj[id] {
			r := NewRoad(id, nb.To)
			if _, ok := seen[r]; ok {
				continue
			}
			seen[r] = struct{}{}
			res = append(res, Edge{From: r.A, To: r.B, Weight: nb.Weight})
		}
	}
	return res
}
