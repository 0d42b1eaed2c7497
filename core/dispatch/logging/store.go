// Package logging persists the dispatch log: one record per assignment,
// unserved incident, reassignment and completion.
package logging

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/erdispatch/core/events"
	"github.com/kilianp07/erdispatch/core/model"
	"github.com/kilianp07/erdispatch/core/roadnet"
)

// LogRecord is one dispatch decision.
type LogRecord struct {
	ID         string           `json:"id"`
	Timestamp  time.Time        `json:"timestamp"`
	Kind       events.Kind      `json:"kind"`
	IncidentID int              `json:"incident_id"`
	VehicleID  int              `json:"vehicle_id,omitempty"`
	Priority   model.Priority   `json:"priority,omitempty"`
	Location   roadnet.NodeID   `json:"location"`
	Distance   roadnet.Distance `json:"distance,omitempty"`
	CommandID  string           `json:"command_id,omitempty"`
}

// HasVehicle reports whether the record names a vehicle.
func (r LogRecord) HasVehicle() bool {
	return r.Kind != events.KindUnserved && r.Kind != events.KindReported
}

// NewRecord stamps a record with a fresh id.
func NewRecord(kind events.Kind, at time.Time) LogRecord {
	return LogRecord{ID: uuid.NewString(), Timestamp: at, Kind: kind}
}

// LogQuery filters records. Zero fields match everything; VehicleID and
// IncidentID are pointers because 0 is a valid id.
type LogQuery struct {
	Start      time.Time
	End        time.Time
	Kind       events.Kind
	VehicleID  *int
	IncidentID *int
	Limit      int
}

// Match reports whether r passes every filter of q except Limit.
func (q LogQuery) Match(r LogRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Kind != "" && r.Kind != q.Kind {
		return false
	}
	if q.VehicleID != nil && (!r.HasVehicle() || r.VehicleID != *q.VehicleID) {
		return false
	}
	if q.IncidentID != nil && r.IncidentID != *q.IncidentID {
		return false
	}
	return true
}

func (q LogQuery) limit(res []LogRecord) []LogRecord {
	if q.Limit > 0 && len(res) > q.Limit {
		return res[len(res)-q.Limit:]
	}
	return res
}

// LogStore persists LogRecords and answers queries, oldest first.
type LogStore interface {
	Append(ctx context.Context, rec LogRecord) error
	Query(ctx context.Context, q LogQuery) ([]LogRecord, error)
	Close() error
}
