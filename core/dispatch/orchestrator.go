package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/erdispatch/core/dispatch/logging"
	"github.com/kilianp07/erdispatch/core/events"
	"github.com/kilianp07/erdispatch/core/fleet"
	"github.com/kilianp07/erdispatch/core/incident"
	"github.com/kilianp07/erdispatch/core/logger"
	"github.com/kilianp07/erdispatch/core/metrics"
	"github.com/kilianp07/erdispatch/core/model"
	"github.com/kilianp07/erdispatch/core/monitoring"
	"github.com/kilianp07/erdispatch/core/mqtt"
	"github.com/kilianp07/erdispatch/core/roadnet"
	"github.com/kilianp07/erdispatch/internal/eventbus"
)

// Orchestrator serializes every dispatch operation over a road network, an
// incident queue and a fleet. The collaborators may still be read directly
// by other goroutines; they are safe for concurrent use on their own.
type Orchestrator struct {
	mu       sync.Mutex
	net      *roadnet.Network
	queue    *incident.Queue
	fleet    *fleet.Manager
	store    logging.LogStore
	sink     metrics.Sink
	notifier mqtt.Notifier
	bus      *eventbus.TypedBus[events.DispatchEvent]
	log      logger.Logger
	now      func() time.Time
	relocate bool

	distances []float64
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogStore(s logging.LogStore) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.store = s
		}
	}
}

func WithMetrics(s metrics.Sink) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.sink = s
		}
	}
}

func WithNotifier(n mqtt.Notifier) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithEventBus publishes a DispatchEvent for every decision on bus.
func WithEventBus(bus *eventbus.TypedBus[events.DispatchEvent]) Option {
	return func(o *Orchestrator) { o.bus = bus }
}

func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithoutRelocation leaves dispatched vehicles at their node.
func WithoutRelocation() Option {
	return func(o *Orchestrator) { o.relocate = false }
}

// New returns an orchestrator. Without options, decisions are kept in a
// MemoryStore and nothing is sent out.
func New(net *roadnet.Network, q *incident.Queue, f *fleet.Manager, opts ...Option) (*Orchestrator, error) {
	if net == nil || q == nil || f == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to New")
	}
	o := &Orchestrator{
		net:      net,
		queue:    q,
		fleet:    f,
		store:    logging.NewMemoryStore(),
		sink:     metrics.NopSink{},
		notifier: mqtt.NopNotifier{},
		log:      logger.NopLogger{},
		now:      time.Now,
		relocate: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

func (o *Orchestrator) Network() *roadnet.Network { return o.net }
func (o *Orchestrator) Queue() *incident.Queue    { return o.queue }
func (o *Orchestrator) Fleet() *fleet.Manager     { return o.fleet }
func (o *Orchestrator) LogStore() logging.LogStore {
	return o.store
}

// Report queues a new incident after checking its node exists.
func (o *Orchestrator) Report(ctx context.Context, loc roadnet.NodeID, p model.Priority, desc string) (model.Incident, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.net.HasNode(loc) {
		return model.Incident{}, fmt.Errorf("%w: %d", ErrUnknownNode, loc)
	}
	inc, err := o.queue.Report(loc, p, desc)
	if err != nil {
		return model.Incident{}, err
	}
	o.publish(events.DispatchEvent{
		Kind: events.KindReported, IncidentID: inc.ID, Priority: p, Location: loc, Time: inc.ReportedAt,
	})
	o.recordFleetState()
	return inc, nil
}

// ProcessNext sends the nearest available vehicle to the most urgent queued
// incident and marks the incident resolved. When no vehicle can reach it,
// the incident goes back in the queue and ErrNoVehicleAvailable is returned.
func (o *Orchestrator) ProcessNext(ctx context.Context) (Assignment, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.processNext(ctx)
}

func (o *Orchestrator) processNext(ctx context.Context) (Assignment, error) {
	if err := ctx.Err(); err != nil {
		return Assignment{}, err
	}
	inc, ok := o.queue.PopHighest()
	if !ok {
		return Assignment{}, ErrQueueEmpty
	}
	a, err := o.serve(ctx, inc)
	if errors.Is(err, ErrNoVehicleAvailable) {
		o.requeue(inc.ID)
	}
	return a, err
}

// serve dispatches the nearest vehicle to a popped incident. An incident no
// vehicle can reach is recorded as unserved and left out of the queue; the
// caller puts it back.
func (o *Orchestrator) serve(ctx context.Context, inc model.Incident) (Assignment, error) {
	v, d, ok := o.fleet.FindNearest(inc.Location, o.net)
	if !ok {
		o.unserved(ctx, inc)
		return Assignment{}, fmt.Errorf("%w: incident %d", ErrNoVehicleAvailable, inc.ID)
	}
	if err := o.fleet.Dispatch(v.ID, inc.ID); err != nil {
		o.requeue(inc.ID)
		return Assignment{}, err
	}
	if o.relocate {
		if err := o.fleet.Relocate(v.ID, inc.Location); err != nil {
			o.log.Warnf("relocate vehicle %d: %v", v.ID, err)
		}
	}
	if err := o.queue.MarkResolved(inc.ID); err != nil {
		o.log.Errorf("resolve incident %d: %v", inc.ID, err)
	}

	a := Assignment{
		IncidentID: inc.ID,
		VehicleID:  v.ID,
		Location:   inc.Location,
		Priority:   inc.Priority,
		Distance:   d,
		At:         o.now(),
	}
	a.CommandID = o.notify(ctx, a, inc.Description)
	o.distances = append(o.distances, float64(d))
	o.log.Infow("vehicle dispatched", map[string]any{
		"incident_id": a.IncidentID,
		"vehicle_id":  a.VehicleID,
		"priority":    a.Priority.String(),
		"node":        int(a.Location),
		"distance":    int64(a.Distance),
	})

	rec := logging.NewRecord(events.KindAssigned, a.At)
	rec.IncidentID, rec.VehicleID, rec.Priority = a.IncidentID, a.VehicleID, a.Priority
	rec.Location, rec.Distance, rec.CommandID = a.Location, a.Distance, a.CommandID
	o.appendLog(ctx, rec)
	o.capture(o.sink.RecordAssignment(metrics.AssignmentEvent{
		IncidentID: a.IncidentID, VehicleID: a.VehicleID, Priority: a.Priority,
		Location: a.Location, Distance: a.Distance, Time: a.At,
	}), "record assignment")
	o.publish(events.DispatchEvent{
		Kind: events.KindAssigned, IncidentID: a.IncidentID, VehicleID: a.VehicleID,
		Priority: a.Priority, Location: a.Location, Distance: a.Distance, Time: a.At,
	})
	o.recordFleetState()
	return a, nil
}

func (o *Orchestrator) unserved(ctx context.Context, inc model.Incident) {
	now := o.now()
	o.log.Warnf("no available vehicle can reach incident %d at node %d", inc.ID, inc.Location)
	rec := logging.NewRecord(events.KindUnserved, now)
	rec.IncidentID, rec.Priority, rec.Location = inc.ID, inc.Priority, inc.Location
	o.appendLog(ctx, rec)
	o.capture(o.sink.RecordUnserved(metrics.UnservedEvent{
		IncidentID: inc.ID, Priority: inc.Priority, Time: now,
	}), "record unserved")
	o.publish(events.DispatchEvent{
		Kind: events.KindUnserved, IncidentID: inc.ID, Priority: inc.Priority, Location: inc.Location, Time: now,
	})
}

func (o *Orchestrator) requeue(id int) {
	if err := o.queue.Reinsert(id); err != nil {
		o.log.Errorf("requeue incident %d: %v", id, err)
	}
}

// ProcessAll dispatches queued incidents in priority order until the queue is
// empty, no vehicle is available, or limit assignments were made. A limit of
// zero means no limit. An incident no available vehicle can reach is held
// back for the rest of the pass so lower priority incidents still get served,
// and is queued again before ProcessAll returns.
func (o *Orchestrator) ProcessAll(ctx context.Context, limit int) ([]Assignment, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var (
		done []Assignment
		held []int
	)
	defer func() {
		for _, id := range held {
			o.requeue(id)
		}
	}()
	for limit <= 0 || len(done) < limit {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		inc, ok := o.queue.PopHighest()
		if !ok {
			break
		}
		a, err := o.serve(ctx, inc)
		switch {
		case errors.Is(err, ErrNoVehicleAvailable):
			held = append(held, inc.ID)
			if o.fleet.AvailableCount() == 0 {
				return done, nil
			}
			continue
		case err != nil:
			return done, err
		}
		done = append(done, a)
	}
	return done, nil
}

// Reassign runs a greedy reassignment pass over every queued incident.
// Served incidents stay queued; see fleet.Manager.ReassignAll.
func (o *Orchestrator) Reassign(ctx context.Context) []model.ReassignmentLogEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	pass := o.fleet.ReassignAll(o.queue, o.net)
	now := o.now()
	for _, e := range pass {
		inc, _ := o.queue.Get(e.IncidentID)
		a := Assignment{
			IncidentID: e.IncidentID, VehicleID: e.VehicleID,
			Location: inc.Location, Priority: inc.Priority, At: now,
		}
		rec := logging.NewRecord(events.KindReassigned, now)
		rec.IncidentID, rec.VehicleID, rec.Priority, rec.Location = e.IncidentID, e.VehicleID, inc.Priority, inc.Location
		rec.CommandID = o.notify(ctx, a, inc.Description)
		o.appendLog(ctx, rec)
		o.publish(events.DispatchEvent{
			Kind: events.KindReassigned, IncidentID: e.IncidentID, VehicleID: e.VehicleID,
			Priority: inc.Priority, Location: inc.Location, Time: now,
		})
	}
	o.capture(o.sink.RecordReassignment(metrics.ReassignmentEvent{Assigned: len(pass), Time: now}), "record reassignment")
	o.recordFleetState()
	return pass
}

// Complete frees a busy vehicle and resolves the incident it served.
func (o *Orchestrator) Complete(ctx context.Context, vehicleID int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	incID, err := o.fleet.CompleteAssignment(vehicleID)
	if err != nil {
		return err
	}
	if err := o.queue.MarkResolved(incID); err != nil && !errors.Is(err, incident.ErrUnknownIncident) {
		return err
	}
	now := o.now()
	inc, _ := o.queue.Get(incID)
	v, _ := o.fleet.Get(vehicleID)
	rec := logging.NewRecord(events.KindCompleted, now)
	rec.IncidentID, rec.VehicleID, rec.Priority, rec.Location = incID, vehicleID, inc.Priority, v.Location
	o.appendLog(ctx, rec)
	o.publish(events.DispatchEvent{
		Kind: events.KindCompleted, IncidentID: incID, VehicleID: vehicleID,
		Priority: inc.Priority, Location: v.Location, Time: now,
	})
	o.recordFleetState()
	return nil
}

// Logs queries the dispatch log.
func (o *Orchestrator) Logs(ctx context.Context, q logging.LogQuery) ([]logging.LogRecord, error) {
	return o.store.Query(ctx, q)
}

// Snapshot counts vehicles and incidents and summarizes response
// distances.
func (o *Orchestrator) Snapshot() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshot()
}

func (o *Orchestrator) snapshot() Status {
	st := Status{
		Nodes:         o.net.NodeCount(),
		BlockedRoads:  len(o.net.BlockedRoads()),
		Incidents:     len(o.queue.History()),
		Queued:        o.queue.LiveCount(),
		Active:        o.queue.ActiveCount(),
		Reassignments: len(o.fleet.ReassignmentLog()),
	}
	for _, v := range o.fleet.Vehicles() {
		st.Vehicles++
		switch v.Status {
		case model.StatusAvailable:
			st.Available++
		case model.StatusBusy:
			st.Busy++
		case model.StatusMaintenance:
			st.Maintenance++
		}
	}
	if n := len(o.distances); n > 0 {
		st.Responses.Count = n
		st.Responses.Max = floats.Max(o.distances)
		if n == 1 {
			st.Responses.Mean = o.distances[0]
		} else {
			st.Responses.Mean, st.Responses.StdDev = stat.MeanStdDev(o.distances, nil)
		}
	}
	return st
}

// Close releases the log store.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.store.Close()
}

func (o *Orchestrator) notify(ctx context.Context, a Assignment, desc string) string {
	order := mqtt.DispatchOrder{
		CommandID:   uuid.NewString(),
		VehicleID:   a.VehicleID,
		IncidentID:  a.IncidentID,
		Location:    a.Location,
		Priority:    a.Priority,
		Description: desc,
		Distance:    a.Distance,
		IssuedAt:    a.At,
	}
	id, err := o.notifier.NotifyDispatch(ctx, order)
	if err != nil {
		o.log.Warnf("notify vehicle %d: %v", a.VehicleID, err)
		monitoring.CaptureException(err, map[string]string{
			"op":         "notify",
			"vehicle_id": strconv.Itoa(a.VehicleID),
		})
		return ""
	}
	if id == "" {
		id = order.CommandID
	}
	return id
}

func (o *Orchestrator) appendLog(ctx context.Context, rec logging.LogRecord) {
	o.capture(o.store.Append(ctx, rec), "append dispatch log")
}

func (o *Orchestrator) capture(err error, op string) {
	if err == nil {
		return
	}
	o.log.Errorf("%s: %v", op, err)
	monitoring.CaptureException(err, map[string]string{"op": op})
}

func (o *Orchestrator) publish(ev events.DispatchEvent) {
	if o.bus != nil {
		o.bus.Publish(ev)
	}
}

func (o *Orchestrator) recordFleetState() {
	st := o.snapshot()
	o.capture(o.sink.RecordFleetState(metrics.FleetState{
		Vehicles:    st.Vehicles,
		Available:   st.Available,
		Busy:        st.Busy,
		Maintenance: st.Maintenance,
		Queued:      st.Queued,
		Time:        o.now(),
	}), "record fleet state")
}
