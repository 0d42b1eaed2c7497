package mqtt

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	coremqtt "github.com/kilianp07/erdispatch/core/mqtt"
)

// MockNotifier records orders instead of publishing them. Vehicles listed
// in FailIDs fail.
type MockNotifier struct {
	mu      sync.Mutex
	Orders  []coremqtt.DispatchOrder
	FailIDs map[int]bool
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{FailIDs: make(map[int]bool)}
}

func (m *MockNotifier) NotifyDispatch(_ context.Context, o coremqtt.DispatchOrder) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[o.VehicleID] {
		return "", errors.New("mqtt: publish failed")
	}
	if o.CommandID == "" {
		o.CommandID = uuid.NewString()
	}
	m.Orders = append(m.Orders, o)
	return o.CommandID, nil
}

// Sent returns a copy of the recorded orders.
func (m *MockNotifier) Sent() []coremqtt.DispatchOrder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]coremqtt.DispatchOrder(nil), m.Orders...)
}
