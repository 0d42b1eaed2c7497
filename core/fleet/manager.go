// Package fleet tracks emergency vehicles and assigns them to incidents.
package fleet

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kilianp07/erdispatch/core/logger"
	"github.com/kilianp07/erdispatch/core/model"
	"github.com/kilianp07/erdispatch/core/roadnet"
)

var (
	ErrDuplicateVehicle   = errors.New("fleet: vehicle already exists")
	ErrVehicleNotFound    = errors.New("fleet: vehicle not found")
	ErrVehicleBusy        = errors.New("fleet: vehicle is busy")
	ErrVehicleUnavailable = errors.New("fleet: vehicle is not available")
	ErrNotAssigned        = errors.New("fleet: vehicle has no assignment")
)

// Router computes travel distances between nodes.
type Router interface {
	ShortestDistance(start, end roadnet.NodeID, respectBlocked bool) roadnet.Distance
}

// Manager owns the vehicle records. Vehicles keep their insertion order,
// which decides ties between equally distant vehicles. It is safe for
// concurrent use.
type Manager struct {
	mu             sync.Mutex
	vehicles       []model.Vehicle
	index          map[int]int
	reassignments  []model.ReassignmentLogEntry
	blockedRouting bool
	log            logger.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithBlockedRouting makes distance lookups avoid blocked roads.
func WithBlockedRouting() Option {
	return func(m *Manager) { m.blockedRouting = true }
}

// WithLogger sets the fleet logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// NewManager returns an empty fleet.
func NewManager(opts ...Option) *Manager {
	m := &Manager{index: make(map[int]int), log: logger.NopLogger{}}
	for _, o := range opts {
		o(m)
	}
	return m
}

// AddVehicle registers an available vehicle at loc.
func (m *Manager) AddVehicle(id int, loc roadnet.NodeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.index[id]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateVehicle, id)
	}
	m.index[id] = len(m.vehicles)
	m.vehicles = append(m.vehicles, model.Vehicle{ID: id, Location: loc, Status: model.StatusAvailable})
	m.log.Debugf("added vehicle %d at node %d", id, loc)
	return nil
}

// RemoveVehicle deletes a vehicle that is not busy.
func (m *Manager) RemoveVehicle(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.index[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrVehicleNotFound, id)
	}
	v := m.vehicles[slot]
	if v.Status == model.StatusBusy {
		inc, _ := v.Assignment()
		return fmt.Errorf("%w: %d assigned to incident %d", ErrVehicleBusy, id, inc)
	}
	m.vehicles = append(m.vehicles[:slot], m.vehicles[slot+1:]...)
	m.reindex()
	m.log.Debugf("removed vehicle %d", id)
	return nil
}

func (m *Manager) reindex() {
	m.index = make(map[int]int, len(m.vehicles))
	for i, v := range m.vehicles {
		m.index[v.ID] = i
	}
}

// Clear removes every vehicle, busy or not.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.vehicles = nil
	m.index = make(map[int]int)
	m.mu.Unlock()
}

// Get returns a copy of the vehicle.
func (m *Manager) Get(id int) (model.Vehicle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.index[id]
	if !ok {
		return model.Vehicle{}, false
	}
	return m.vehicles[slot].Clone(), true
}

// Vehicles returns copies of every vehicle in insertion order.
func (m *Manager) Vehicles() []model.Vehicle {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]model.Vehicle, len(m.vehicles))
	for i, v := range m.vehicles {
		res[i] = v.Clone()
	}
	return res
}

// Available returns copies of the available vehicles.
func (m *Manager) Available() []model.Vehicle {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []model.Vehicle
	for _, v := range m.vehicles {
		if v.Available() {
			res = append(res, v.Clone())
		}
	}
	return res
}

// AvailableCount returns the number of available vehicles.
func (m *Manager) AvailableCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.vehicles {
		if v.Available() {
			n++
		}
	}
	return n
}

// Len returns the fleet size.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.vehicles)
}

// FindNearest returns the available vehicle with the shortest route to
// target. The first vehicle in insertion order wins ties. Vehicles with no
// route are never returned.
func (m *Manager) FindNearest(target roadnet.NodeID, r Router) (model.Vehicle, roadnet.Distance, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, d, ok := m.nearest(target, r)
	if !ok {
		return model.Vehicle{}, roadnet.Unreachable, false
	}
	return m.vehicles[slot].Clone(), d, true
}

func (m *Manager) nearest(target roadnet.NodeID, r Router) (int, roadnet.Distance, bool) {
	best, closest := -1, roadnet.Unreachable
	for i, v := range m.vehicles {
		if !v.Available() {
			continue
		}
		if d := r.ShortestDistance(v.Location, target, m.blockedRouting); d < closest {
			best, closest = i, d
		}
	}
	return best, closest, best >= 0
}

// Dispatch assigns an available vehicle to an incident.
func (m *Manager) Dispatch(vehicleID, incidentID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.index[vehicleID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrVehicleNotFound, vehicleID)
	}
	if !m.vehicles[slot].Available() {
		return fmt.Errorf("%w: %d is %s", ErrVehicleUnavailable, vehicleID, m.vehicles[slot].Status)
	}
	m.dispatch(slot, incidentID)
	return nil
}

func (m *Manager) dispatch(slot, incidentID int) {
	id := incidentID
	m.vehicles[slot].Status = model.StatusBusy
	m.vehicles[slot].AssignedIncident = &id
}

// Relocate moves a vehicle to loc without changing its status.
func (m *Manager) Relocate(vehicleID int, loc roadnet.NodeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.index[vehicleID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrVehicleNotFound, vehicleID)
	}
	m.vehicles[slot].Location = loc
	return nil
}

// CompleteAssignment makes a busy vehicle available again and returns the
// incident it was serving.
func (m *Manager) CompleteAssignment(vehicleID int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.index[vehicleID]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrVehicleNotFound, vehicleID)
	}
	v := &m.vehicles[slot]
	inc, assigned := v.Assignment()
	if v.Status != model.StatusBusy || !assigned {
		return 0, fmt.Errorf("%w: %d", ErrNotAssigned, vehicleID)
	}
	v.Status = model.StatusAvailable
	v.AssignedIncident = nil
	m.log.Infof("vehicle %d completed assignment to incident %d", vehicleID, inc)
	return inc, nil
}

// SetMaintenance takes an available vehicle out of service.
func (m *Manager) SetMaintenance(vehicleID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.index[vehicleID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrVehicleNotFound, vehicleID)
	}
	if m.vehicles[slot].Status == model.StatusBusy {
		return fmt.Errorf("%w: %d", ErrVehicleBusy, vehicleID)
	}
	m.vehicles[slot].Status = model.StatusMaintenance
	return nil
}

// ReturnToService makes a vehicle in maintenance available.
func (m *Manager) ReturnToService(vehicleID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.index[vehicleID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrVehicleNotFound, vehicleID)
	}
	if m.vehicles[slot].Status != model.StatusMaintenance {
		return fmt.Errorf("%w: %d is %s", ErrVehicleUnavailable, vehicleID, m.vehicles[slot].Status)
	}
	m.vehicles[slot].Status = model.StatusAvailable
	return nil
}
