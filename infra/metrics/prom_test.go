package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/erdispatch/core/events"
	coremetrics "github.com/kilianp07/erdispatch/core/metrics"
	"github.com/kilianp07/erdispatch/core/model"
	"github.com/kilianp07/erdispatch/core/roadnet"
	"github.com/kilianp07/erdispatch/internal/eventbus"
)

func TestPromSinkRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPromSink(reg)
	require.NoError(t, err)

	require.NoError(t, s.RecordAssignment(coremetrics.AssignmentEvent{Priority: model.PriorityHigh, Distance: 8}))
	require.NoError(t, s.RecordAssignment(coremetrics.AssignmentEvent{Priority: model.PriorityHigh, Distance: roadnet.Unreachable}))
	require.NoError(t, s.RecordUnserved(coremetrics.UnservedEvent{Priority: model.PriorityLow}))
	require.NoError(t, s.RecordReassignment(coremetrics.ReassignmentEvent{Assigned: 3}))
	require.NoError(t, s.RecordFleetState(coremetrics.FleetState{Available: 2, Busy: 1, Queued: 4}))

	assert.Equal(t, 2.0, testutil.ToFloat64(s.assignments.WithLabelValues("HIGH")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.unserved.WithLabelValues("LOW")))
	assert.Equal(t, 3.0, testutil.ToFloat64(s.reassigned))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.passes))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.vehicles.WithLabelValues("AVAILABLE")))
	assert.Equal(t, 4.0, testutil.ToFloat64(s.queued))
	assert.Equal(t, 1, testutil.CollectAndCount(s.distance), "unreachable distances are not observed")

	expected := `
# HELP erd_unserved_total Incidents returned to the queue because no vehicle could reach them
# TYPE erd_unserved_total counter
erd_unserved_total{priority="LOW"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "erd_unserved_total"))
}

func TestPromSinkReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewPromSink(reg)
	require.NoError(t, err)
	b, err := NewPromSink(reg)
	require.NoError(t, err)
	require.NoError(t, a.RecordUnserved(coremetrics.UnservedEvent{Priority: model.PriorityLow}))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.unserved.WithLabelValues("LOW")))
}

func TestEventCollector(t *testing.T) {
	s, err := NewPromSink(prometheus.NewRegistry())
	require.NoError(t, err)
	bus := eventbus.NewTyped[events.DispatchEvent]()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartEventCollector(ctx, bus, s)
	require.Eventually(t, func() bool { return bus.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	bus.Publish(events.DispatchEvent{Kind: events.KindAssigned})
	bus.Publish(events.DispatchEvent{Kind: events.KindAssigned})
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(s.busEvents.WithLabelValues("assigned")) == 2
	}, time.Second, 5*time.Millisecond)

	bus.Close()
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := NewPromSink(reg)
	require.NoError(t, err)
	require.NoError(t, s.RecordReassignment(coremetrics.ReassignmentEvent{Assigned: 1}))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "erd_reassignments_total 1")
}

func TestFactoryBuiltins(t *testing.T) {
	assert.Subset(t, coremetrics.SinkTypes(), []string{"nop", "prometheus", "influx"})
}
