package roadnet

import (
	"errors"
	"math"
)

// NodeID identifies a location in the network.
type NodeID int

// Weight is the travel cost of a single road.
type Weight int64

// Distance is a cumulative travel cost.
type Distance int64

// Unreachable is returned when no route exists between two nodes.
const Unreachable Distance = math.MaxInt64

// Reachable reports whether d denotes an actual route.
func (d Distance) Reachable() bool { return d != Unreachable }

var (
	ErrNegativeWeight = errors.New("roadnet: negative road weight")
	ErrEdgeNotFound   = errors.New("roadnet: road not found")
	ErrParallelEdge   = errors.New("roadnet: road already exists")
)

// Neighbor is one adjacency entry of a node.
type Neighbor struct {
	To     NodeID `json:"to"`
	Weight Weight `json:"weight"`
}

// Edge is an undirected road listed once with From < To.
type Edge struct {
	From   NodeID `json:"from"`
	To     NodeID `json:"to"`
	Weight Weight `json:"weight"`
}

// Road is a normalized unordered node pair.
type Road struct {
	A NodeID `json:"a"`
	B NodeID `json:"b"`
}

// NewRoad returns the pair ordered so that A <= B.
func NewRoad(a, b NodeID) Road {
	if b < a {
		a, b = b, a
	}
	return Road{A: a, B: b}
}

// Path is a route between two nodes.
type Path struct {
	Nodes    []NodeID `json:"nodes"`
	Distance Distance `json:"distance"`
}
