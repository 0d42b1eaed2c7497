package scenarios

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/erdispatch/core/dispatch"
	"github.com/kilianp07/erdispatch/core/dispatch/logging"
	"github.com/kilianp07/erdispatch/core/events"
	"github.com/kilianp07/erdispatch/core/fleet"
	"github.com/kilianp07/erdispatch/core/incident"
	"github.com/kilianp07/erdispatch/core/roadnet"
	"github.com/kilianp07/erdispatch/infra/metrics"
	"github.com/kilianp07/erdispatch/infra/mqtt"
	"github.com/kilianp07/erdispatch/internal/eventbus"
)

// Result is what a scenario produced.
type Result struct {
	Assignments   []dispatch.Assignment
	Unserved      int
	Reassignments int
	Notified      int
	Queued        int
	// Counted is the assignment total seen by the Prometheus sink.
	Counted float64
}

// Run replays sc against a fresh dispatcher.
func Run(ctx context.Context, sc *Scenario) (Result, error) {
	net, f, q, err := build(sc)
	if err != nil {
		return Result{}, err
	}
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSink(reg)
	if err != nil {
		return Result{}, fmt.Errorf("prom sink: %w", err)
	}
	pub := mqtt.NewMockNotifier()
	for _, id := range sc.FailVehicles {
		pub.FailIDs[id] = true
	}
	bus := eventbus.NewTyped[events.DispatchEvent]()
	defer bus.Close()
	store := logging.NewMemoryStore()

	o, err := dispatch.New(net, q, f,
		dispatch.WithLogStore(store),
		dispatch.WithMetrics(sink),
		dispatch.WithNotifier(pub),
		dispatch.WithEventBus(bus),
	)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = o.Close() }()

	var res Result
	for i, st := range sc.Steps {
		if err := apply(ctx, o, st, &res); err != nil {
			return res, fmt.Errorf("step %d: %w", i, err)
		}
	}

	recs, err := o.Logs(ctx, logging.LogQuery{Kind: events.KindUnserved})
	if err != nil {
		return res, err
	}
	res.Unserved = len(recs)
	res.Notified = len(pub.Sent())
	res.Queued = q.LiveCount()
	res.Counted, err = counterSum(reg, "erd_assignments_total")
	return res, err
}

func counterSum(g prometheus.Gatherer, name string) (float64, error) {
	mfs, err := g.Gather()
	if err != nil {
		return 0, err
	}
	var sum float64
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
	}
	return sum, nil
}

func build(sc *Scenario) (*roadnet.Network, *fleet.Manager, *incident.Queue, error) {
	net := roadnet.New()
	for _, r := range sc.Roads {
		if err := net.AddEdge(node(r.From), node(r.To), roadnet.Weight(r.Weight)); err != nil {
			return nil, nil, nil, err
		}
	}
	for _, b := range sc.Blocked {
		net.MarkBlocked(node(b[0]), node(b[1]))
	}
	var fopts []fleet.Option
	if sc.RespectBlocked {
		fopts = append(fopts, fleet.WithBlockedRouting())
	}
	f := fleet.NewManager(fopts...)
	for _, v := range sc.Vehicles {
		if err := f.AddVehicle(v.ID, node(v.Location)); err != nil {
			return nil, nil, nil, err
		}
		if v.Maintenance {
			if err := f.SetMaintenance(v.ID); err != nil {
				return nil, nil, nil, err
			}
		}
	}
	q := incident.NewQueue()
	for _, inc := range sc.Incidents {
		if !net.HasNode(node(inc.Location)) {
			continue
		}
		if _, err := q.Report(node(inc.Location), inc.Priority, inc.Description); err != nil {
			return nil, nil, nil, err
		}
	}
	return net, f, q, nil
}

func apply(ctx context.Context, o *dispatch.Orchestrator, st Step, res *Result) error {
	switch {
	case st.ProcessNext:
		a, err := o.ProcessNext(ctx)
		if errors.Is(err, dispatch.ErrQueueEmpty) || errors.Is(err, dispatch.ErrNoVehicleAvailable) {
			return nil
		}
		if err != nil {
			return err
		}
		res.Assignments = append(res.Assignments, a)
	case st.ProcessAll:
		as, err := o.ProcessAll(ctx, 0)
		if err != nil {
			return err
		}
		res.Assignments = append(res.Assignments, as...)
	case st.Reassign:
		res.Reassignments += len(o.Reassign(ctx))
	case st.Complete != nil:
		return o.Complete(ctx, *st.Complete)
	case st.Block != nil:
		o.Network().MarkBlocked(node(st.Block[0]), node(st.Block[1]))
	case st.Open != nil:
		o.Network().MarkOpen(node(st.Open[0]), node(st.Open[1]))
	case st.Report != nil:
		_, err := o.Report(ctx, node(st.Report.Location), st.Report.Priority, st.Report.Description)
		return err
	}
	return nil
}

// RunScenario runs sc and reports every mismatch with its expectations.
func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	res, err := Run(context.Background(), sc)
	if err != nil {
		t.Fatalf("scenario %s: %v", sc.Name, err)
	}
	exp := sc.Expected
	checks := []struct {
		name      string
		got, want int
	}{
		{"assigned", len(res.Assignments), exp.Assigned},
		{"unserved", res.Unserved, exp.Unserved},
		{"reassignments", res.Reassignments, exp.Reassignments},
		{"notified", res.Notified, exp.Notified},
		{"queued", res.Queued, exp.Queued},
		{"counted", int(res.Counted), exp.Assigned},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("scenario %s expected %d %s, got %d", sc.Name, c.want, c.name, c.got)
		}
	}
	for i, want := range exp.Assignments {
		if i >= len(res.Assignments) {
			t.Errorf("scenario %s missing assignment %d", sc.Name, i)
			continue
		}
		got := res.Assignments[i]
		if got.IncidentID != want.Incident || got.VehicleID != want.Vehicle || int64(got.Distance) != want.Distance {
			t.Errorf("scenario %s assignment %d: got incident %d vehicle %d distance %d, want %+v",
				sc.Name, i, got.IncidentID, got.VehicleID, got.Distance, want)
		}
	}
}
