// Package api assembles the HTTP API of the dispatcher.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	apidispatch "github.com/kilianp07/erdispatch/api/dispatch"
	"github.com/kilianp07/erdispatch/api/incidents"
	"github.com/kilianp07/erdispatch/api/route"
	"github.com/kilianp07/erdispatch/api/vehicles"
	"github.com/kilianp07/erdispatch/auth"
	coredispatch "github.com/kilianp07/erdispatch/core/dispatch"
	inframetrics "github.com/kilianp07/erdispatch/infra/metrics"
)

// Options tunes NewRouter.
type Options struct {
	// Token guards every /api route when set.
	Token string
	// Gatherer, when set, is served unauthenticated on /metrics.
	Gatherer prometheus.Gatherer
}

// NewRouter mounts every API route for o.
func NewRouter(o *coredispatch.Orchestrator, opts Options) http.Handler {
	api := http.NewServeMux()
	api.Handle("GET /api/fleet", vehicles.NewFleetHandler(o.Fleet()))
	api.Handle("POST /api/fleet/{id}/complete", vehicles.NewCompleteHandler(o))
	api.Handle("GET /api/incidents", incidents.NewListHandler(o.Queue()))
	api.Handle("POST /api/incidents", incidents.NewReportHandler(o))
	api.Handle("POST /api/dispatch/next", apidispatch.NewNextHandler(o))
	api.Handle("POST /api/dispatch/reassign", apidispatch.NewReassignHandler(o))
	api.Handle("GET /api/dispatch/logs", apidispatch.NewLogHandler(o))
	api.Handle("GET /api/route", route.NewHandler(o.Network()))
	api.Handle("GET /api/status", statusHandler(o))

	mux := http.NewServeMux()
	mux.Handle("/api/", auth.Bearer(opts.Token, api))
	if opts.Gatherer != nil {
		mux.Handle("GET /metrics", inframetrics.Handler(opts.Gatherer))
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func statusHandler(o *coredispatch.Orchestrator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(o.Snapshot())
	})
}
