// Package events defines what the dispatcher publishes on the event bus.
package events

import (
	"time"

	"github.com/kilianp07/erdispatch/core/model"
	"github.com/kilianp07/erdispatch/core/roadnet"
)

// Kind tells subscribers what happened.
type Kind string

const (
	KindReported   Kind = "reported"
	KindAssigned   Kind = "assigned"
	KindUnserved   Kind = "unserved"
	KindReassigned Kind = "reassigned"
	KindCompleted  Kind = "completed"
)

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindReported, KindAssigned, KindUnserved, KindReassigned, KindCompleted:
		return true
	}
	return false
}

// DispatchEvent is published for every state change driven by the
// dispatcher. VehicleID is zero for KindReported and KindUnserved, Distance
// is only set for KindAssigned.
type DispatchEvent struct {
	Kind       Kind             `json:"kind"`
	IncidentID int              `json:"incident_id"`
	VehicleID  int              `json:"vehicle_id,omitempty"`
	Priority   model.Priority   `json:"priority"`
	Location   roadnet.NodeID   `json:"location"`
	Distance   roadnet.Distance `json:"distance,omitempty"`
	Time       time.Time        `json:"time"`
}
