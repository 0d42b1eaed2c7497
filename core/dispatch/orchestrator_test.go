package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/erdispatch/core/dispatch/logging"
	"github.com/kilianp07/erdispatch/core/events"
	"github.com/kilianp07/erdispatch/core/fleet"
	"github.com/kilianp07/erdispatch/core/incident"
	"github.com/kilianp07/erdispatch/core/metrics"
	"github.com/kilianp07/erdispatch/core/model"
	"github.com/kilianp07/erdispatch/core/mqtt"
	"github.com/kilianp07/erdispatch/core/roadnet"
	"github.com/kilianp07/erdispatch/internal/eventbus"
)

type fakeNotifier struct {
	mu     sync.Mutex
	orders []mqtt.DispatchOrder
	err    error
}

func (f *fakeNotifier) NotifyDispatch(_ context.Context, o mqtt.DispatchOrder) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.orders = append(f.orders, o)
	return o.CommandID, nil
}

type fakeSink struct {
	metrics.NopSink
	assigned []metrics.AssignmentEvent
	unserved int
	passes   []metrics.ReassignmentEvent
	states   []metrics.FleetState
}

func (f *fakeSink) RecordAssignment(ev metrics.AssignmentEvent) error {
	f.assigned = append(f.assigned, ev)
	return nil
}
func (f *fakeSink) RecordUnserved(metrics.UnservedEvent) error { f.unserved++; return nil }
func (f *fakeSink) RecordReassignment(ev metrics.ReassignmentEvent) error {
	f.passes = append(f.passes, ev)
	return nil
}
func (f *fakeSink) RecordFleetState(st metrics.FleetState) error {
	f.states = append(f.states, st)
	return nil
}

type fixture struct {
	o        *Orchestrator
	net      *roadnet.Network
	queue    *incident.Queue
	fleet    *fleet.Manager
	notifier *fakeNotifier
	sink     *fakeSink
	bus      *eventbus.TypedBus[events.DispatchEvent]
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// newFixture uses the triangle 0 -5- 1 -3- 2 plus a direct 0 -10- 2.
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	net := roadnet.New()
	require.NoError(t, net.AddEdge(0, 1, 5))
	require.NoError(t, net.AddEdge(1, 2, 3))
	require.NoError(t, net.AddEdge(0, 2, 10))
	f := &fixture{
		net:      net,
		queue:    incident.NewQueue(),
		fleet:    fleet.NewManager(),
		notifier: &fakeNotifier{},
		sink:     &fakeSink{},
		bus:      eventbus.NewTyped[events.DispatchEvent](),
	}
	opts = append([]Option{
		WithNotifier(f.notifier), WithMetrics(f.sink), WithEventBus(f.bus),
		WithClock(func() time.Time { return fixedNow }),
	}, opts...)
	o, err := New(net, f.queue, f.fleet, opts...)
	require.NoError(t, err)
	f.o = o
	return f
}

func TestNewRejectsNil(t *testing.T) {
	_, err := New(nil, incident.NewQueue(), fleet.NewManager())
	assert.Error(t, err)
}

func TestProcessNextDispatchesNearest(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.fleet.AddVehicle(1, 0))
	require.NoError(t, f.fleet.AddVehicle(2, 1))
	ctx := context.Background()
	_, err := f.o.Report(ctx, 0, model.PriorityLow, "low")
	require.NoError(t, err)
	high, err := f.o.Report(ctx, 2, model.PriorityHigh, "fire")
	require.NoError(t, err)

	a, err := f.o.ProcessNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, high.ID, a.IncidentID)
	assert.Equal(t, 2, a.VehicleID)
	assert.Equal(t, roadnet.Distance(3), a.Distance)
	assert.NotEmpty(t, a.CommandID)
	assert.Equal(t, fixedNow, a.At)

	v, _ := f.fleet.Get(2)
	assert.Equal(t, model.StatusBusy, v.Status)
	assert.Equal(t, roadnet.NodeID(2), v.Location)
	inc, _ := f.queue.Get(high.ID)
	assert.True(t, inc.Resolved)
	assert.Equal(t, 1, f.queue.LiveCount())

	require.Len(t, f.notifier.orders, 1)
	assert.Equal(t, a.CommandID, f.notifier.orders[0].CommandID)
	assert.Equal(t, "fire", f.notifier.orders[0].Description)
	require.Len(t, f.sink.assigned, 1)

	recs, err := f.o.Logs(ctx, logging.LogQuery{Kind: events.KindAssigned})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, a.CommandID, recs[0].CommandID)
}

func TestProcessNextEmptyQueue(t *testing.T) {
	f := newFixture(t)
	_, err := f.o.ProcessNext(context.Background())
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestProcessNextWithoutVehicleRequeues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inc, err := f.o.Report(ctx, 2, model.PriorityHigh, "x")
	require.NoError(t, err)

	_, err = f.o.ProcessNext(ctx)
	assert.ErrorIs(t, err, ErrNoVehicleAvailable)
	assert.Equal(t, 1, f.queue.LiveCount())
	got, ok := f.queue.PopHighest()
	require.True(t, ok)
	assert.Equal(t, inc.ID, got.ID)
	assert.Equal(t, 1, f.sink.unserved)
}

func TestProcessNextWithoutRelocation(t *testing.T) {
	f := newFixture(t, WithoutRelocation())
	require.NoError(t, f.fleet.AddVehicle(1, 0))
	ctx := context.Background()
	_, err := f.o.Report(ctx, 2, model.PriorityMedium, "x")
	require.NoError(t, err)
	_, err = f.o.ProcessNext(ctx)
	require.NoError(t, err)
	v, _ := f.fleet.Get(1)
	assert.Equal(t, roadnet.NodeID(0), v.Location)
}

func TestNotifierFailureDoesNotBlockDispatch(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("broker down")
	require.NoError(t, f.fleet.AddVehicle(1, 0))
	ctx := context.Background()
	_, err := f.o.Report(ctx, 1, model.PriorityHigh, "x")
	require.NoError(t, err)
	a, err := f.o.ProcessNext(ctx)
	require.NoError(t, err)
	assert.Empty(t, a.CommandID)
}

func TestReportRejectsUnknownNode(t *testing.T) {
	f := newFixture(t)
	_, err := f.o.Report(context.Background(), 42, model.PriorityHigh, "x")
	assert.ErrorIs(t, err, ErrUnknownNode)
	_, err = f.o.Report(context.Background(), 1, model.Priority(9), "x")
	assert.ErrorIs(t, err, model.ErrInvalidPriority)
	assert.True(t, f.queue.IsEmpty())
}

func TestProcessAllStopsWhenFleetExhausted(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.fleet.AddVehicle(1, 0))
	require.NoError(t, f.fleet.AddVehicle(2, 0))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.o.Report(ctx, 1, model.PriorityMedium, "x")
		require.NoError(t, err)
	}
	done, err := f.o.ProcessAll(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, done, 2)
	assert.Equal(t, 1, f.queue.LiveCount())
	assert.Equal(t, []int{1, 2}, []int{done[0].IncidentID, done[1].IncidentID})
}

func TestProcessAllLimit(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.fleet.AddVehicle(1, 0))
	require.NoError(t, f.fleet.AddVehicle(2, 0))
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := f.o.Report(ctx, 1, model.PriorityMedium, "x")
		require.NoError(t, err)
	}
	done, err := f.o.ProcessAll(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, done, 1)
}

func TestProcessAllHonorsContext(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.fleet.AddVehicle(1, 0))
	ctx, cancel := context.WithCancel(context.Background())
	_, err := f.o.Report(ctx, 1, model.PriorityMedium, "x")
	require.NoError(t, err)
	cancel()
	_, err = f.o.ProcessAll(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, f.queue.LiveCount())
}

func TestReassignRecordsPass(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.fleet.AddVehicle(1, 0))
	ctx := context.Background()
	_, err := f.o.Report(ctx, 2, model.PriorityHigh, "h")
	require.NoError(t, err)
	_, err = f.o.Report(ctx, 1, model.PriorityLow, "l")
	require.NoError(t, err)

	pass := f.o.Reassign(ctx)
	require.Len(t, pass, 1)
	assert.Equal(t, 1, pass[0].IncidentID)
	require.Len(t, f.sink.passes, 1)
	assert.Equal(t, 1, f.sink.passes[0].Assigned)
	assert.Len(t, f.notifier.orders, 1)

	recs, err := f.o.Logs(ctx, logging.LogQuery{Kind: events.KindReassigned})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, 1, f.o.Snapshot().Reassignments)
}

func TestCompleteFreesVehicle(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.fleet.AddVehicle(1, 0))
	ctx := context.Background()
	_, err := f.o.Report(ctx, 1, model.PriorityHigh, "x")
	require.NoError(t, err)
	_, err = f.o.ProcessNext(ctx)
	require.NoError(t, err)

	require.NoError(t, f.o.Complete(ctx, 1))
	v, _ := f.fleet.Get(1)
	assert.True(t, v.Available())
	assert.Equal(t, roadnet.NodeID(1), v.Location)
	assert.ErrorIs(t, f.o.Complete(ctx, 1), fleet.ErrNotAssigned)
	assert.ErrorIs(t, f.o.Complete(ctx, 9), fleet.ErrVehicleNotFound)
}

func TestEventsArePublished(t *testing.T) {
	f := newFixture(t)
	ch := f.bus.SubscribeN(16)
	require.NoError(t, f.fleet.AddVehicle(1, 0))
	ctx := context.Background()
	_, err := f.o.Report(ctx, 1, model.PriorityHigh, "x")
	require.NoError(t, err)
	_, err = f.o.ProcessNext(ctx)
	require.NoError(t, err)
	require.NoError(t, f.o.Complete(ctx, 1))

	var kinds []events.Kind
	for i := 0; i < 3; i++ {
		kinds = append(kinds, (<-ch).Kind)
	}
	assert.Equal(t, []events.Kind{events.KindReported, events.KindAssigned, events.KindCompleted}, kinds)
}

func TestSnapshot(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.fleet.AddVehicle(1, 0))
	require.NoError(t, f.fleet.AddVehicle(2, 0))
	require.NoError(t, f.fleet.AddVehicle(3, 0))
	require.NoError(t, f.fleet.SetMaintenance(3))
	f.net.MarkBlocked(0, 2)
	ctx := context.Background()
	_, err := f.o.Report(ctx, 1, model.PriorityHigh, "a")
	require.NoError(t, err)
	_, err = f.o.Report(ctx, 2, model.PriorityMedium, "b")
	require.NoError(t, err)
	_, err = f.o.Report(ctx, 0, model.PriorityLow, "c")
	require.NoError(t, err)
	_, err = f.o.ProcessAll(ctx, 2)
	require.NoError(t, err)

	st := f.o.Snapshot()
	assert.Equal(t, 3, st.Nodes)
	assert.Equal(t, 1, st.BlockedRoads)
	assert.Equal(t, 3, st.Vehicles)
	assert.Equal(t, 0, st.Available)
	assert.Equal(t, 2, st.Busy)
	assert.Equal(t, 1, st.Maintenance)
	assert.Equal(t, 3, st.Incidents)
	assert.Equal(t, 1, st.Active)
	assert.Equal(t, 1, st.Queued)
	assert.Equal(t, 2, st.Responses.Count)
	// distances 5 and 8
	assert.InDelta(t, 6.5, st.Responses.Mean, 1e-9)
	assert.InDelta(t, 8.0, st.Responses.Max, 1e-9)
	assert.Greater(t, st.Responses.StdDev, 0.0)
	require.NotEmpty(t, f.sink.states)
	assert.Equal(t, 1, f.sink.states[len(f.sink.states)-1].Queued)
}

func TestProcessAllSkipsUnreachableIncident(t *testing.T) {
	f := newFixture(t)
	f.net.AddNode(9)
	require.NoError(t, f.fleet.AddVehicle(1, 0))
	ctx := context.Background()
	high, err := f.o.Report(ctx, 9, model.PriorityHigh, "isolated")
	require.NoError(t, err)
	low, err := f.o.Report(ctx, 1, model.PriorityLow, "reachable")
	require.NoError(t, err)

	done, err := f.o.ProcessAll(ctx, 0)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, low.ID, done[0].IncidentID)
	assert.Equal(t, 1, f.sink.unserved)

	require.Equal(t, 1, f.queue.LiveCount())
	next, ok := f.queue.PopHighest()
	require.True(t, ok)
	assert.Equal(t, high.ID, next.ID)
}

func TestProcessAllRequeuesHeldIncidentsAtLimit(t *testing.T) {
	f := newFixture(t)
	f.net.AddNode(9)
	require.NoError(t, f.fleet.AddVehicle(1, 0))
	require.NoError(t, f.fleet.AddVehicle(2, 0))
	ctx := context.Background()
	for _, loc := range []roadnet.NodeID{9, 1, 2} {
		_, err := f.o.Report(ctx, loc, model.PriorityMedium, "x")
		require.NoError(t, err)
	}
	done, err := f.o.ProcessAll(ctx, 1)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, 2, done[0].IncidentID)
	assert.Equal(t, 2, f.queue.LiveCount())
}

func TestReportRejectsMultilineDescription(t *testing.T) {
	f := newFixture(t)
	_, err := f.o.Report(context.Background(), 2, model.PriorityHigh, "Fire\n1,LOW,ghost row")
	assert.ErrorIs(t, err, model.ErrInvalidDescription)
	assert.Equal(t, 0, f.queue.LiveCount())
}
