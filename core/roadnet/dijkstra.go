package roadnet

import "container/heap"

// ShortestDistance returns the cost of the cheapest route from start to end.
// When respectBlocked is true blocked roads are ignored entirely. Unknown
// nodes and disconnected pairs yield Unreachable.
func (n *Network) ShortestDistance(start, end NodeID, respectBlocked bool) Distance {
	if start == end {
		return 0
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	d, _ := n.search(start, end, respectBlocked, false)
	return d
}

// ShortestPath is ShortestDistance with the visited nodes. The returned
// path starts with start and ends with end.
func (n *Network) ShortestPath(start, end NodeID, respectBlocked bool) (Path, bool) {
	if start == end {
		return Path{Nodes: []NodeID{start}}, true
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	d, prev := n.search(start, end, respectBlocked, true)
	if d == Unreachable {
		return Path{Distance: Unreachable}, false
	}
	var rev []NodeID
	for at := end; ; at = prev[at] {
		rev = append(rev, at)
		if at == start {
			break
		}
	}
	nodes := make([]NodeID, len(rev))
	for i := range rev {
		nodes[i] = rev[len(rev)-1-i]
	}
	return Path{Nodes: nodes, Distance: d}, true
}

// search runs Dijkstra from start and stops as soon as end is popped from
// the frontier. Callers hold the read lock.
func (n *Network) search(start, end NodeID, respectBlocked, trackPath bool) (Distance, map[NodeID]NodeID) {
	if _, ok := n.known[start]; !ok {
		return Unreachable, nil
	}
	if _, ok := n.known[end]; !ok {
		return Unreachable, nil
	}
	dist := make(map[NodeID]Distance, len(n.nodes))
	var prev map[NodeID]NodeID
	if trackPath {
		prev = make(map[NodeID]NodeID, len(n.nodes))
	}
	dist[start] = 0
	pq := frontier{{node: start, dist: 0}}
	for pq.Len() > 0 {
		cur := heap.Pop(&pq).(entry)
		if cur.node == end {
			return cur.dist, prev
		}
		if best, ok := dist[cur.node]; ok && cur.dist > best {
			continue
		}
		for _, nb := range n.adj[cur.node] {
			if respectBlocked {
				if _, blocked := n.blocked[NewRoad(cur.node, nb.To)]; blocked {
					continue
				}
			}
			next := add(cur.dist, nb.Weight)
			if best, ok := dist[nb.To]; ok && next >= best {
				continue
			}
			dist[nb.To] = next
			if prev != nil {
				prev[nb.To] = cur.node
			}
			heap.Push(&pq, entry{node: nb.To, dist: next})
		}
	}
	return Unreachable, nil
}

// add sums without overflowing past Unreachable.
func add(d Distance, w Weight) Distance {
	if Distance(w) >= Unreachable-d {
		return Unreachable
	}
	return d + Distance(w)
}

type entry struct {
	node NodeID
	dist Distance
}

// frontier is a min-heap keyed by distance. Stale entries are skipped when
// popped instead of being decreased in place.
type frontier []entry

func (f frontier) Len() int { return len(f) }

func (f frontier) Less(i, j int) bool {
	if f[i].dist != f[j].dist {
		return f[i].dist < f[j].dist
	}
	return f[i].node < f[j].node
}

func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }

func (f *frontier) Push(x any) { *f = append(*f, x.(entry)) }

func (f *frontier) Pop() any {
	old := *f
	it := old[len(old)-1]
	*f = old[:len(old)-1]
	return it
}
