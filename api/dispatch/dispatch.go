// Package dispatch serves the dispatch operations over HTTP.
package dispatch

import (
	"context"
	"errors"
	"net/http"

	coredispatch "github.com/kilianp07/erdispatch/core/dispatch"
	"github.com/kilianp07/erdispatch/core/model"
)

// Dispatcher runs dispatch passes.
type Dispatcher interface {
	ProcessNext(ctx context.Context) (coredispatch.Assignment, error)
	ProcessAll(ctx context.Context, limit int) ([]coredispatch.Assignment, error)
	Reassign(ctx context.Context) []model.ReassignmentLogEntry
}

// NewNextHandler serves POST /api/dispatch/next. It answers 204 when the
// queue is empty and 409 when no vehicle can reach the incident. With
// ?all=true every queued incident is processed.
func NewNextHandler(d Dispatcher) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("all") == "true" {
			res, err := d.ProcessAll(r.Context(), 0)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if res == nil {
				res = []coredispatch.Assignment{}
			}
			writeJSON(w, http.StatusOK, res)
			return
		}
		a, err := d.ProcessNext(r.Context())
		switch {
		case errors.Is(err, coredispatch.ErrQueueEmpty):
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, coredispatch.ErrNoVehicleAvailable):
			http.Error(w, err.Error(), http.StatusConflict)
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		default:
			writeJSON(w, http.StatusOK, a)
		}
	})
}

// NewReassignHandler serves POST /api/dispatch/reassign and returns the
// pairings made by the pass.
func NewReassignHandler(d Dispatcher) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entries := d.Reassign(r.Context())
		if entries == nil {
			entries = []model.ReassignmentLogEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
	})
}
