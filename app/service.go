// Package app wires configuration into a running dispatcher.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/erdispatch/api"
	"github.com/kilianp07/erdispatch/app/plugins"
	"github.com/kilianp07/erdispatch/config"
	"github.com/kilianp07/erdispatch/core/dispatch"
	"github.com/kilianp07/erdispatch/core/dispatch/logging"
	"github.com/kilianp07/erdispatch/core/events"
	"github.com/kilianp07/erdispatch/core/fleet"
	"github.com/kilianp07/erdispatch/core/incident"
	coremetrics "github.com/kilianp07/erdispatch/core/metrics"
	coremon "github.com/kilianp07/erdispatch/core/monitoring"
	coremqtt "github.com/kilianp07/erdispatch/core/mqtt"
	"github.com/kilianp07/erdispatch/core/roadnet"
	"github.com/kilianp07/erdispatch/generator"
	"github.com/kilianp07/erdispatch/infra/logger"
	"github.com/kilianp07/erdispatch/infra/metrics"
	"github.com/kilianp07/erdispatch/infra/monitoring"
	"github.com/kilianp07/erdispatch/infra/textfile"
	"github.com/kilianp07/erdispatch/internal/eventbus"
)

// Service owns the dispatcher and everything built around it.
type Service struct {
	cfg          *config.Config
	Orchestrator *dispatch.Orchestrator
	Generator    *generator.Generator
	bus          *eventbus.TypedBus[events.DispatchEvent]
	sink         coremetrics.Sink
	prom         *metrics.PromSink
	notifier     coremqtt.Notifier
	log          logger.Logger
}

// LoadSummary reports what LoadData read.
type LoadSummary struct {
	Graph     textfile.LoadReport `json:"graph"`
	Fleet     textfile.LoadReport `json:"fleet"`
	Incidents textfile.LoadReport `json:"incidents"`
}

// New creates a Service from the configuration. No data is loaded yet.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	var netOpts []roadnet.Option
	if cfg.Routing.RejectParallelEdges {
		netOpts = append(netOpts, roadnet.WithoutParallelEdges())
	}
	net := roadnet.New(append(netOpts, roadnet.WithLogger(logger.New("roadnet")))...)

	fleetOpts := []fleet.Option{fleet.WithLogger(logger.New("fleet"))}
	if cfg.Routing.RespectBlockedForNearest {
		fleetOpts = append(fleetOpts, fleet.WithBlockedRouting())
	}
	f := fleet.NewManager(fleetOpts...)
	q := incident.NewQueue(incident.WithLogger(logger.New("incidents")))

	store, err := logging.Open(cfg.Dispatch.Log)
	if err != nil {
		return nil, fmt.Errorf("dispatch log: %w", err)
	}
	sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}
	var prom *metrics.PromSink
	if cfg.Metrics.PromAddr != "" || hasSink(cfg.Metrics, "prometheus") {
		if prom, err = metrics.NewPromSink(nil); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("prom sink: %w", err)
		}
	}
	notifier, err := plugins.NewNotifier(plugins.DefaultNotifier(*cfg), *cfg)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("notifier: %w", err)
	}

	bus := eventbus.NewTyped[events.DispatchEvent]()
	opts := []dispatch.Option{
		dispatch.WithLogStore(store),
		dispatch.WithMetrics(sink),
		dispatch.WithNotifier(notifier),
		dispatch.WithEventBus(bus),
		dispatch.WithLogger(logger.New("dispatch")),
	}
	if !cfg.Dispatch.Relocate() {
		opts = append(opts, dispatch.WithoutRelocation())
	}
	o, err := dispatch.New(net, q, f, opts...)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	return &Service{
		cfg:          cfg,
		Orchestrator: o,
		Generator:    generator.New(cfg.Generator, generator.WithLogger(logger.New("generator"))),
		bus:          bus,
		sink:         sink,
		prom:         prom,
		notifier:     notifier,
		log:          logg,
	}, nil
}

func hasSink(c coremetrics.Config, typ string) bool {
	for _, s := range c.Sinks {
		if s.Type == typ {
			return true
		}
	}
	return false
}

// Config returns the configuration the service was built from.
func (s *Service) Config() *config.Config { return s.cfg }

// Bus returns the dispatch event bus.
func (s *Service) Bus() *eventbus.TypedBus[events.DispatchEvent] { return s.bus }

// LoadData reads the configured graph, fleet and incident files. A missing
// fleet or incident file is skipped; the graph file is required.
func (s *Service) LoadData() (LoadSummary, error) {
	var sum LoadSummary
	var err error
	opt := textfile.WithLogger(logger.New("textfile"))
	o := s.Orchestrator
	if sum.Graph, err = textfile.LoadGraphFile(s.cfg.Data.Graph, o.Network(), opt); err != nil {
		return sum, err
	}
	s.log.Infof("graph loaded from %s with %d nodes", s.cfg.Data.Graph, o.Network().NodeCount())
	if sum.Fleet, err = textfile.LoadFleetFile(s.cfg.Data.Fleet, o.Fleet(), opt); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return sum, err
	}
	if sum.Incidents, err = textfile.LoadIncidentsFile(s.cfg.Data.Incidents, o.Queue(), o.Network(), opt); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return sum, err
	}
	s.log.Infow("data loaded", map[string]any{
		"roads":             sum.Graph.Loaded,
		"vehicles":          sum.Fleet.Loaded,
		"incidents":         sum.Incidents.Loaded,
		"skipped_incidents": sum.Incidents.Skipped,
	})
	return sum, nil
}

// SaveData writes the network, fleet and unresolved incidents back to the
// configured files.
func (s *Service) SaveData() error {
	o := s.Orchestrator
	if err := textfile.SaveGraphFile(s.cfg.Data.Graph, o.Network()); err != nil {
		return err
	}
	if err := textfile.SaveFleetFile(s.cfg.Data.Fleet, o.Fleet()); err != nil {
		return err
	}
	return textfile.SaveIncidentsFile(s.cfg.Data.Incidents, o.Queue())
}

// Serve runs the HTTP API, the metrics endpoint and, when enabled, the
// incident generator until ctx is done.
func (s *Service) Serve(ctx context.Context) error {
	defer coremon.Recover()
	var gatherer prometheus.Gatherer
	if s.prom != nil {
		metrics.StartEventCollector(ctx, s.bus, s.prom)
		gatherer = prometheus.DefaultGatherer
		if s.cfg.Metrics.PromAddr != "" && s.cfg.Metrics.PromAddr != s.cfg.API.Addr {
			go func() {
				if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PromAddr, gatherer); err != nil {
					s.log.Errorf("prom server: %v", err)
				}
			}()
		}
	}
	if s.cfg.Generator.Enabled {
		go s.Generator.Start(ctx, s.Orchestrator, s.Orchestrator.Network())
	}

	srv := &http.Server{
		Addr:              s.cfg.API.Addr,
		Handler:           api.NewRouter(s.Orchestrator, api.Options{Token: s.cfg.API.Token, Gatherer: gatherer}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("api listening on %s", s.cfg.API.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Close releases the log store, the broker connection and the metrics
// clients, and flushes pending error reports.
func (s *Service) Close() error {
	err := s.Orchestrator.Close()
	if d, ok := s.notifier.(interface{ Disconnect() }); ok {
		d.Disconnect()
	}
	closeSink(s.sink)
	s.bus.Close()
	coremon.Flush(2 * time.Second)
	return err
}

func closeSink(sink coremetrics.Sink) {
	switch v := sink.(type) {
	case *coremetrics.MultiSink:
		for _, inner := range v.Sinks {
			closeSink(inner)
		}
	case interface{ Close() }:
		v.Close()
	}
}
