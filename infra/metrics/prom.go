package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/erdispatch/core/metrics"
	"github.com/kilianp07/erdispatch/core/model"
)

// PromSink exposes dispatch activity as Prometheus metrics.
type PromSink struct {
	assignments *prometheus.CounterVec
	unserved    *prometheus.CounterVec
	reassigned  prometheus.Counter
	passes      prometheus.Counter
	distance    *prometheus.HistogramVec
	vehicles    *prometheus.GaugeVec
	queued      prometheus.Gauge
	busEvents   *prometheus.CounterVec
}

// NewPromSink registers the collectors on reg, or on the default registerer
// when reg is nil. Collectors already registered by an earlier sink are
// reused.
func NewPromSink(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.assignments, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "erd_assignments_total",
		Help: "Vehicles dispatched to incidents",
	}, []string{"priority"})); err != nil {
		return nil, err
	}
	if s.unserved, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "erd_unserved_total",
		Help: "Incidents returned to the queue because no vehicle could reach them",
	}, []string{"priority"})); err != nil {
		return nil, err
	}
	if s.reassigned, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "erd_reassignments_total",
		Help: "Vehicles assigned by reassignment passes",
	})); err != nil {
		return nil, err
	}
	if s.passes, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "erd_reassignment_passes_total",
		Help: "Reassignment passes run",
	})); err != nil {
		return nil, err
	}
	if s.distance, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "erd_response_distance",
		Help:    "Route length from the dispatched vehicle to the incident",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"priority"})); err != nil {
		return nil, err
	}
	if s.vehicles, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "erd_vehicles",
		Help: "Vehicles by status",
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if s.queued, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "erd_incidents_queued",
		Help: "Incidents waiting in the queue",
	})); err != nil {
		return nil, err
	}
	if s.busEvents, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "erd_events_total",
		Help: "Dispatch events seen on the event bus",
	}, []string{"kind"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (s *PromSink) RecordAssignment(ev coremetrics.AssignmentEvent) error {
	p := ev.Priority.String()
	s.assignments.WithLabelValues(p).Inc()
	if ev.Distance.Reachable() {
		s.distance.WithLabelValues(p).Observe(float64(ev.Distance))
	}
	return nil
}

func (s *PromSink) RecordUnserved(ev coremetrics.UnservedEvent) error {
	s.unserved.WithLabelValues(ev.Priority.String()).Inc()
	return nil
}

func (s *PromSink) RecordReassignment(ev coremetrics.ReassignmentEvent) error {
	s.passes.Inc()
	s.reassigned.Add(float64(ev.Assigned))
	return nil
}

func (s *PromSink) RecordFleetState(st coremetrics.FleetState) error {
	s.vehicles.WithLabelValues(model.StatusAvailable.String()).Set(float64(st.Available))
	s.vehicles.WithLabelValues(model.StatusBusy.String()).Set(float64(st.Busy))
	s.vehicles.WithLabelValues(model.StatusMaintenance.String()).Set(float64(st.Maintenance))
	s.queued.Set(float64(st.Queued))
	return nil
}
