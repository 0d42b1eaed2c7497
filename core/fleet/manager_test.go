package fleet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/erdispatch/core/model"
	"github.com/kilianp07/erdispatch/core/roadnet"
)

// line builds 0 -5- 1 -3- 2 -10- 3.
func line(t *testing.T) *roadnet.Network {
	t.Helper()
	n := roadnet.New()
	require.NoError(t, n.AddEdge(0, 1, 5))
	require.NoError(t, n.AddEdge(1, 2, 3))
	require.NoError(t, n.AddEdge(2, 3, 10))
	return n
}

func TestAddAndRemoveVehicle(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddVehicle(1, 0))
	require.NoError(t, m.AddVehicle(2, 3))
	assert.ErrorIs(t, m.AddVehicle(1, 2), ErrDuplicateVehicle)
	assert.Equal(t, 2, m.Len())

	require.NoError(t, m.RemoveVehicle(1))
	assert.ErrorIs(t, m.RemoveVehicle(1), ErrVehicleNotFound)
	v, ok := m.Get(2)
	require.True(t, ok)
	assert.Equal(t, roadnet.NodeID(3), v.Location)
	assert.Equal(t, model.StatusAvailable, v.Status)
}

func TestRemoveBusyVehicleFails(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddVehicle(1, 0))
	require.NoError(t, m.Dispatch(1, 42))
	assert.ErrorIs(t, m.RemoveVehicle(1), ErrVehicleBusy)
	assert.Equal(t, 1, m.Len())
}

func TestFindNearestPicksShortestRoute(t *testing.T) {
	n := line(t)
	m := NewManager()
	require.NoError(t, m.AddVehicle(1, 0))
	require.NoError(t, m.AddVehicle(2, 3))

	v, d, ok := m.FindNearest(2, n)
	require.True(t, ok)
	assert.Equal(t, 1, v.ID)
	assert.Equal(t, roadnet.Distance(8), d)
}

func TestFindNearestTieKeepsInsertionOrder(t *testing.T) {
	n := line(t)
	m := NewManager()
	require.NoError(t, m.AddVehicle(7, 1))
	require.NoError(t, m.AddVehicle(3, 1))
	v, _, ok := m.FindNearest(0, n)
	require.True(t, ok)
	assert.Equal(t, 7, v.ID)
}

func TestFindNearestSkipsUnavailableAndUnreachable(t *testing.T) {
	n := line(t)
	n.AddNode(9)
	m := NewManager()
	require.NoError(t, m.AddVehicle(1, 1))
	require.NoError(t, m.AddVehicle(2, 9))
	require.NoError(t, m.SetMaintenance(1))

	_, d, ok := m.FindNearest(0, n)
	assert.False(t, ok)
	assert.Equal(t, roadnet.Unreachable, d)

	require.NoError(t, m.ReturnToService(1))
	v, _, ok := m.FindNearest(0, n)
	require.True(t, ok)
	assert.Equal(t, 1, v.ID)
}

func TestFindNearestBlockedRouting(t *testing.T) {
	n := line(t)
	n.MarkBlocked(0, 1)

	def := NewManager()
	require.NoError(t, def.AddVehicle(1, 0))
	_, d, ok := def.FindNearest(2, n)
	require.True(t, ok)
	assert.Equal(t, roadnet.Distance(8), d, "blocked roads ignored by default")

	strict := NewManager(WithBlockedRouting())
	require.NoError(t, strict.AddVehicle(1, 0))
	_, _, ok = strict.FindNearest(2, n)
	assert.False(t, ok)
}

func TestDispatchAndComplete(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddVehicle(1, 0))
	require.NoError(t, m.Dispatch(1, 5))
	assert.ErrorIs(t, m.Dispatch(1, 6), ErrVehicleUnavailable)
	assert.ErrorIs(t, m.Dispatch(9, 6), ErrVehicleNotFound)
	assert.ErrorIs(t, m.SetMaintenance(1), ErrVehicleBusy)

	v, _ := m.Get(1)
	inc, ok := v.Assignment()
	require.True(t, ok)
	assert.Equal(t, 5, inc)
	assert.Equal(t, model.StatusBusy, v.Status)
	assert.Equal(t, 0, m.AvailableCount())

	got, err := m.CompleteAssignment(1)
	require.NoError(t, err)
	assert.Equal(t, 5, got)
	v, _ = m.Get(1)
	assert.Equal(t, model.StatusAvailable, v.Status)
	assert.Nil(t, v.AssignedIncident)

	_, err = m.CompleteAssignment(1)
	assert.ErrorIs(t, err, ErrNotAssigned)
}

func TestReturnToServiceRequiresMaintenance(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddVehicle(1, 0))
	assert.ErrorIs(t, m.ReturnToService(1), ErrVehicleUnavailable)
	assert.ErrorIs(t, m.ReturnToService(2), ErrVehicleNotFound)
}

func TestGetReturnsCopy(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddVehicle(1, 0))
	require.NoError(t, m.Dispatch(1, 5))
	v, _ := m.Get(1)
	*v.AssignedIncident = 99
	v.Location = 3

	again, _ := m.Get(1)
	inc, _ := again.Assignment()
	assert.Equal(t, 5, inc)
	assert.Equal(t, roadnet.NodeID(0), again.Location)
}

func TestRelocateAndClear(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.AddVehicle(1, 0))
	require.NoError(t, m.Relocate(1, 2))
	assert.ErrorIs(t, m.Relocate(3, 2), ErrVehicleNotFound)
	v, _ := m.Get(1)
	assert.Equal(t, roadnet.NodeID(2), v.Location)

	require.NoError(t, m.Dispatch(1, 1))
	m.Clear()
	assert.Zero(t, m.Len())
	assert.Empty(t, m.Vehicles())
}
