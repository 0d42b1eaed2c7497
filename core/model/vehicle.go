package model

import (
	"fmt"
	"strings"

	"github.com/kilianp07/erdispatch/core/roadnet"
)

// Status is the availability state of a vehicle.
type Status int

const (
	StatusAvailable Status = iota
	StatusBusy
	StatusMaintenance
)

// String returns the upper-case name used in files and logs.
func (s Status) String() string {
	switch s {
	case StatusAvailable:
		return "AVAILABLE"
	case StatusBusy:
		return "BUSY"
	case StatusMaintenance:
		return "MAINTENANCE"
	default:
		return "UNKNOWN"
	}
}

// ParseStatus is the inverse of String, case-insensitive.
func ParseStatus(s string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AVAILABLE":
		return StatusAvailable, nil
	case "BUSY":
		return StatusBusy, nil
	case "MAINTENANCE":
		return StatusMaintenance, nil
	}
	return 0, fmt.Errorf("unknown vehicle status %q", s)
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Vehicle is an emergency vehicle of the fleet. AssignedIncident is set if
// and only if Status is StatusBusy.
type Vehicle struct {
	ID               int            `json:"id"`
	Location         roadnet.NodeID `json:"location"`
	Status           Status         `json:"status"`
	AssignedIncident *int           `json:"assigned_incident,omitempty"`
}

// Available reports whether the vehicle can be dispatched.
func (v Vehicle) Available() bool { return v.Status == StatusAvailable }

// Assignment returns the incident the vehicle is serving.
func (v Vehicle) Assignment() (int, bool) {
	if v.AssignedIncident == nil {
		return 0, false
	}
	return *v.AssignedIncident, true
}

// Clone returns a copy that shares no memory with v.
func (v Vehicle) Clone() Vehicle {
	if v.AssignedIncident != nil {
		id := *v.AssignedIncident
		v.AssignedIncident = &id
	}
	return v
}

// ReassignmentLogEntry records one vehicle-to-incident pairing made by a
// bulk reassignment.
type ReassignmentLogEntry struct {
	VehicleID  int `json:"vehicle_id"`
	IncidentID int `json:"incident_id"`
}
