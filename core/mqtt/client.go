// Package mqtt defines how crews are told about their assignments.
package mqtt

import (
	"context"
	"time"

	"github.com/kilianp07/erdispatch/core/model"
	"github.com/kilianp07/erdispatch/core/roadnet"
)

// DispatchOrder is sent to a vehicle crew when it is assigned to an
// incident.
type DispatchOrder struct {
	CommandID   string           `json:"command_id"`
	VehicleID   int              `json:"vehicle_id"`
	IncidentID  int              `json:"incident_id"`
	Location    roadnet.NodeID   `json:"location"`
	Priority    model.Priority   `json:"priority"`
	Description string           `json:"description"`
	Distance    roadnet.Distance `json:"distance"`
	IssuedAt    time.Time        `json:"issued_at"`
}

// Notifier delivers dispatch orders. Implementations fill CommandID when it
// is empty and return the id used.
type Notifier interface {
	NotifyDispatch(ctx context.Context, order DispatchOrder) (commandID string, err error)
}

// NopNotifier accepts every order without sending it.
type NopNotifier struct{}

func (NopNotifier) NotifyDispatch(_ context.Context, o DispatchOrder) (string, error) {
	return o.CommandID, nil
}
