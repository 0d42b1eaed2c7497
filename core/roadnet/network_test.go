package roadnet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triangle(t *testing.T, opts ...Option) *Network {
	t.Helper()
	n := New(opts...)
	require.NoError(t, n.AddEdge(0, 1, 5))
	require.NoError(t, n.AddEdge(1, 2, 3))
	require.NoError(t, n.AddEdge(0, 2, 10))
	return n
}

func TestAddNodeIdempotent(t *testing.T) {
	n := New()
	n.AddNode(3)
	n.AddNode(1)
	n.AddNode(3)
	assert.Equal(t, []NodeID{3, 1}, n.Nodes())
	assert.True(t, n.HasNode(1))
	assert.False(t, n.HasNode(2))
}

func TestAddEdgeCreatesBothDirections(t *testing.T) {
	n := New()
	require.NoError(t, n.AddEdge(4, 7, 2))
	assert.Equal(t, []Neighbor{{To: 7, Weight: 2}}, n.Neighbors(4))
	assert.Equal(t, []Neighbor{{To: 4, Weight: 2}}, n.Neighbors(7))
	assert.Equal(t, []NodeID{4, 7}, n.Nodes())
}

func TestAddEdgeRejectsNegativeWeight(t *testing.T) {
	n := New()
	err := n.AddEdge(0, 1, -1)
	require.ErrorIs(t, err, ErrNegativeWeight)
	assert.Zero(t, n.NodeCount())
}

func TestAddEdgeParallel(t *testing.T) {
	n := New()
	require.NoError(t, n.AddEdge(0, 1, 5))
	require.NoError(t, n.AddEdge(1, 0, 2))
	assert.Len(t, n.Neighbors(0), 2)
	assert.Equal(t, Distance(2), n.ShortestDistance(0, 1, false))

	strict := New(WithoutParallelEdges())
	require.NoError(t, strict.AddEdge(0, 1, 5))
	require.ErrorIs(t, strict.AddEdge(1, 0, 2), ErrParallelEdge)
	assert.Len(t, strict.Neighbors(0), 1)
}

func TestUpdateEdgeWeight(t *testing.T) {
	n := triangle(t)
	require.NoError(t, n.UpdateEdgeWeight(2, 0, 4))
	assert.Equal(t, Distance(4), n.ShortestDistance(0, 2, false))
	assert.Equal(t, Distance(4), n.ShortestDistance(2, 0, false))

	err := n.UpdateEdgeWeight(0, 9, 1)
	assert.True(t, errors.Is(err, ErrEdgeNotFound))
	require.ErrorIs(t, n.UpdateEdgeWeight(0, 1, -3), ErrNegativeWeight)
}

func TestUpdateEdgeWeightFirstParallelOnly(t *testing.T) {
	n := New()
	require.NoError(t, n.AddEdge(0, 1, 5))
	require.NoError(t, n.AddEdge(0, 1, 8))
	require.NoError(t, n.UpdateEdgeWeight(0, 1, 9))
	assert.Equal(t, []Neighbor{{To: 1, Weight: 9}, {To: 1, Weight: 8}}, n.Neighbors(0))
	assert.Equal(t, Distance(8), n.ShortestDistance(0, 1, false))
}

func TestNeighborsUnknownNode(t *testing.T) {
	n := triangle(t)
	assert.Empty(t, n.Neighbors(42))
}

func TestNeighborsReturnsCopy(t *testing.T) {
	n := triangle(t)
	nb := n.Neighbors(0)
	nb[0].Weight = 100
	assert.Equal(t, Weight(5), n.Neighbors(0)[0].Weight)
}

func TestEdgesDeduplicated(t *testing.T) {
	n := New()
	require.NoError(t, n.AddEdge(3, 1, 4))
	require.NoError(t, n.AddEdge(1, 2, 6))
	require.NoError(t, n.AddEdge(2, 3, 1))
	assert.Equal(t, []Edge{
		{From: 1, To: 3, Weight: 4},
		{From: 2, To: 3, Weight: 1},
		{From: 1, To: 2, Weight: 6},
	}, n.Edges())
}

func TestBlockedSet(t *testing.T) {
	n := New()
	n.MarkBlocked(5, 2)
	n.MarkBlocked(2, 5)
	n.MarkBlocked(9, 8)
	assert.True(t, n.IsBlocked(2, 5))
	assert.True(t, n.IsBlocked(5, 2))
	assert.Equal(t, []Road{{A: 2, B: 5}, {A: 8, B: 9}}, n.BlockedRoads())
	n.MarkOpen(5, 2)
	assert.False(t, n.IsBlocked(2, 5))
	n.MarkOpen(5, 2)
	assert.Equal(t, []Road{{A: 8, B: 9}}, n.BlockedRoads())
}
