package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/erdispatch/core/logger"
	coremetrics "github.com/kilianp07/erdispatch/core/metrics"
	infralogger "github.com/kilianp07/erdispatch/infra/logger"
)

const writeTimeout = 5 * time.Second

// InfluxConfig locates an InfluxDB v2 bucket.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes dispatch activity as InfluxDB points.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for cfg. A URL ending in /api/v2/write is
// accepted.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: writeTimeout}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      infralogger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback returns a NopSink when the instance does not
// pass its health check.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

func (s *InfluxSink) RecordAssignment(ev coremetrics.AssignmentEvent) error {
	p := write.NewPointWithMeasurement("dispatch_assignment").
		AddTag("priority", ev.Priority.String()).
		AddTag("vehicle_id", strconv.Itoa(ev.VehicleID)).
		AddField("incident_id", ev.IncidentID).
		AddField("node", int64(ev.Location)).
		SetTime(ev.Time)
	if ev.Distance.Reachable() {
		p.AddField("distance", int64(ev.Distance))
	}
	return s.write(p)
}

func (s *InfluxSink) RecordUnserved(ev coremetrics.UnservedEvent) error {
	return s.write(write.NewPointWithMeasurement("dispatch_unserved").
		AddTag("priority", ev.Priority.String()).
		AddField("incident_id", ev.IncidentID).
		SetTime(ev.Time))
}

func (s *InfluxSink) RecordReassignment(ev coremetrics.ReassignmentEvent) error {
	return s.write(write.NewPointWithMeasurement("dispatch_reassignment").
		AddField("assigned", ev.Assigned).
		SetTime(ev.Time))
}

func (s *InfluxSink) RecordFleetState(st coremetrics.FleetState) error {
	return s.write(write.NewPointWithMeasurement("fleet_state").
		AddField("vehicles", st.Vehicles).
		AddField("available", st.Available).
		AddField("busy", st.Busy).
		AddField("maintenance", st.Maintenance).
		AddField("queued", st.Queued).
		SetTime(st.Time))
}

// Close flushes and closes the client.
func (s *InfluxSink) Close() { s.client.Close() }
