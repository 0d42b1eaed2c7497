package metrics

import (
	"time"

	"github.com/kilianp07/erdispatch/core/model"
	"github.com/kilianp07/erdispatch/core/roadnet"
)

// AssignmentEvent records a vehicle sent to an incident.
type AssignmentEvent struct {
	IncidentID int
	VehicleID  int
	Priority   model.Priority
	Location   roadnet.NodeID
	Distance   roadnet.Distance
	Time       time.Time
}

// UnservedEvent records an incident put back in the queue because no vehicle
// could reach it.
type UnservedEvent struct {
	IncidentID int
	Priority   model.Priority
	Time       time.Time
}

// ReassignmentEvent summarizes one reassignment pass.
type ReassignmentEvent struct {
	Assigned int
	Time     time.Time
}

// FleetState is a point-in-time count of vehicles and incidents.
type FleetState struct {
	Vehicles    int
	Available   int
	Busy        int
	Maintenance int
	Queued      int
	Time        time.Time
}

// Sink receives dispatch observations.
type Sink interface {
	RecordAssignment(ev AssignmentEvent) error
	RecordUnserved(ev UnservedEvent) error
	RecordReassignment(ev ReassignmentEvent) error
	RecordFleetState(st FleetState) error
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) RecordAssignment(AssignmentEvent) error     { return nil }
func (NopSink) RecordUnserved(UnservedEvent) error         { return nil }
func (NopSink) RecordReassignment(ReassignmentEvent) error { return nil }
func (NopSink) RecordFleetState(FleetState) error          { return nil }
