// Package metrics defines the sinks that observe dispatch activity. The Prometheus
// and InfluxDB implementations live in infra/metrics and register
// themselves with the factory registry here, so NewSink can build them from
// configuration. Several configured sinks are combined with a MultiSink.
package metrics
