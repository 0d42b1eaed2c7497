// Package generator produces random incidents, either as a batch or as a
// background stream reported to a dispatcher.
package generator

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/erdispatch/config"
	"github.com/kilianp07/erdispatch/core/logger"
	"github.com/kilianp07/erdispatch/core/model"
	"github.com/kilianp07/erdispatch/core/roadnet"
)

var (
	ErrInvalidCount = errors.New("generator: count must be positive")
	ErrNoNodes      = errors.New("generator: no nodes to place incidents on")
)

var priorities = []model.Priority{model.PriorityHigh, model.PriorityMedium, model.PriorityLow}

// Reporter accepts generated incidents.
type Reporter interface {
	Report(ctx context.Context, loc roadnet.NodeID, p model.Priority, desc string) (model.Incident, error)
}

// NodeSource lists the locations incidents may appear at.
type NodeSource interface {
	Nodes() []roadnet.NodeID
}

var (
	incidentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "erd_generator_incidents_total",
		Help: "Incidents produced by the generator",
	}, []string{"priority"})
	emitErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "erd_generator_emit_errors_total",
		Help: "Errors while reporting generated incidents",
	})
	lastEmit = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "erd_generator_last_emit_timestamp_seconds",
		Help: "Last emission time",
	})
	intervalHist = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "erd_generator_interval_seconds",
		Help:    "Interval between generated incidents",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(incidentsTotal, emitErrors, lastEmit, intervalHist)
}

// Generator draws incidents from a seeded random source. It is safe for
// concurrent use.
type Generator struct {
	cfg config.GeneratorConfig
	log logger.Logger

	mu   sync.Mutex
	rand *rand.Rand
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.log = l
		}
	}
}

// New creates a Generator. A zero seed uses the current time.
func New(cfg config.GeneratorConfig, opts ...Option) *Generator {
	cfg.SetDefaults()
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	g := &Generator{
		cfg:  cfg,
		log:  logger.NopLogger{},
		rand: rand.New(rand.NewSource(seed)),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Generate returns count unreported incidents placed uniformly on nodes.
// The returned incidents carry no identifier.
func (g *Generator) Generate(count int, nodes []roadnet.NodeID) ([]model.Incident, error) {
	if count <= 0 {
		return nil, ErrInvalidCount
	}
	if len(nodes) == 0 {
		return nil, ErrNoNodes
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	res := make([]model.Incident, count)
	for i := range res {
		res[i] = g.draw(nodes)
	}
	return res, nil
}

func (g *Generator) draw(nodes []roadnet.NodeID) model.Incident {
	loc := nodes[g.rand.Intn(len(nodes))]
	p := priorities[g.rand.Intn(len(priorities))]
	typ := g.cfg.Types[g.rand.Intn(len(g.cfg.Types))]
	return model.Incident{Location: loc, Priority: p, Description: typ + " case"}
}

// ReportBatch generates count incidents and reports each one to r.
func (g *Generator) ReportBatch(ctx context.Context, r Reporter, count int, nodes []roadnet.NodeID) ([]model.Incident, error) {
	drafts, err := g.Generate(count, nodes)
	if err != nil {
		return nil, err
	}
	res := make([]model.Incident, 0, len(drafts))
	for _, d := range drafts {
		inc, err := g.emit(ctx, r, d)
		if err != nil {
			return res, err
		}
		res = append(res, inc)
	}
	g.log.Infof("%d test incidents added", len(res))
	return res, nil
}

// Start reports one random incident to r after every random interval until
// ctx is cancelled. Nodes are read from src on every tick.
func (g *Generator) Start(ctx context.Context, r Reporter, src NodeSource) {
	for {
		interval := g.randomInterval()
		intervalHist.Observe(interval.Seconds())
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		drafts, err := g.Generate(1, src.Nodes())
		if err != nil {
			g.log.Warnf("generator idle: %v", err)
			continue
		}
		if _, err := g.emit(ctx, r, drafts[0]); err != nil {
			g.log.Errorf("emit: %v", err)
		}
	}
}

func (g *Generator) emit(ctx context.Context, r Reporter, d model.Incident) (model.Incident, error) {
	inc, err := r.Report(ctx, d.Location, d.Priority, d.Description)
	if err != nil {
		emitErrors.Inc()
		return model.Incident{}, err
	}
	g.log.Debugf("incident %d %s at node %d: %s", inc.ID, inc.Priority, inc.Location, inc.Description)
	incidentsTotal.WithLabelValues(inc.Priority.String()).Inc()
	lastEmit.Set(float64(time.Now().Unix()))
	return inc, nil
}

func (g *Generator) randomInterval() time.Duration {
	lo, hi := g.cfg.MinInterval(), g.cfg.MaxInterval()
	if hi <= lo {
		return lo
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return lo + time.Duration(g.rand.Int63n(int64(hi-lo)))
}
