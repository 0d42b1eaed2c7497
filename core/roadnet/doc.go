// Package roadnet models the road network used for routing emergency vehicles.
//
// Nodes are opaque integer identifiers. Roads are undirected weighted edges
// stored as one adjacency entry per direction. A separate set of blocked roads
// can be excluded from routing on demand.
//
// Distances are computed with Dijkstra's algorithm over non-negative integer
// weights. Unreachable destinations are reported with the Unreachable sentinel
// rather than an error.
package roadnet
