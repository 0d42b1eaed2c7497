// Package dispatch ties the road network, the incident queue and the fleet
// together: it sends the nearest available vehicle to the most urgent
// incident and records every decision.
package dispatch

import (
	"errors"
	"time"

	"github.com/kilianp07/erdispatch/core/model"
	"github.com/kilianp07/erdispatch/core/roadnet"
)

var (
	ErrQueueEmpty         = errors.New("dispatch: no queued incidents")
	ErrNoVehicleAvailable = errors.New("dispatch: no vehicle can reach the incident")
	ErrUnknownNode        = errors.New("dispatch: node not in road network")
)

// Assignment is a vehicle sent to an incident.
type Assignment struct {
	IncidentID int              `json:"incident_id"`
	VehicleID  int              `json:"vehicle_id"`
	Location   roadnet.NodeID   `json:"location"`
	Priority   model.Priority   `json:"priority"`
	Distance   roadnet.Distance `json:"distance"`
	CommandID  string           `json:"command_id,omitempty"`
	At         time.Time        `json:"at"`
}

// ResponseStats summarizes the route length of every assignment made so
// far.
type ResponseStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Max    float64 `json:"max"`
}

// Status is a snapshot of the whole system.
type Status struct {
	Nodes         int           `json:"nodes"`
	BlockedRoads  int           `json:"blocked_roads"`
	Vehicles      int           `json:"vehicles"`
	Available     int           `json:"available"`
	Busy          int           `json:"busy"`
	Maintenance   int           `json:"maintenance"`
	Incidents     int           `json:"incidents"`
	Queued        int           `json:"queued"`
	Active        int           `json:"active"`
	Reassignments int           `json:"reassignments"`
	Responses     ResponseStats `json:"responses"`
}
