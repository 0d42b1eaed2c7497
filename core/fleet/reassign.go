package fleet

import "github.com/kilianp07/erdispatch/core/model"

// Drainer empties an incident queue and requeues the incidents kept by the
// callback. *incident.Queue implements it.
type Drainer interface {
	Drain(fn func(drained []model.Incident) (keep []int))
}

// ReassignAll pulls every queued incident in priority order and sends the
// nearest available vehicle to each unresolved one, moving the vehicle to
// the incident node. The pass is greedy: a vehicle taken by an earlier
// incident is not considered for later ones. Every unresolved incident is
// queued again whether or not it was served. The pairings made are returned
// and appended to the reassignment log.
func (m *Manager) ReassignAll(q Drainer, r Router) []model.ReassignmentLogEntry {
	var pass []model.ReassignmentLogEntry
	q.Drain(func(drained []model.Incident) []int {
		if len(drained) == 0 {
			m.log.Infof("no incidents to reassign")
			return nil
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		keep := make([]int, 0, len(drained))
		for _, inc := range drained {
			if inc.Resolved {
				continue
			}
			keep = append(keep, inc.ID)
			slot, d, ok := m.nearest(inc.Location, r)
			if !ok {
				continue
			}
			m.dispatch(slot, inc.ID)
			m.vehicles[slot].Location = inc.Location
			entry := model.ReassignmentLogEntry{VehicleID: m.vehicles[slot].ID, IncidentID: inc.ID}
			m.reassignments = append(m.reassignments, entry)
			pass = append(pass, entry)
			m.log.Infow("vehicle reassigned", map[string]any{
				"vehicle_id":  entry.VehicleID,
				"incident_id": inc.ID,
				"node":        int(inc.Location),
				"distance":    int64(d),
			})
		}
		m.log.Infof("completed %d reassignments", len(pass))
		return keep
	})
	return pass
}

// ReassignmentLog returns every pairing recorded by ReassignAll, oldest
// first.
func (m *Manager) ReassignmentLog() []model.ReassignmentLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ReassignmentLogEntry(nil), m.reassignments...)
}

// ClearReassignmentLog empties the reassignment log.
func (m *Manager) ClearReassignmentLog() {
	m.mu.Lock()
	m.reassignments = nil
	m.mu.Unlock()
}
