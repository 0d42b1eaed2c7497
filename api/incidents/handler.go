// Package incidents serves incident reporting and listing over HTTP.
package incidents

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	coredispatch "github.com/kilianp07/erdispatch/core/dispatch"
	"github.com/kilianp07/erdispatch/core/model"
	"github.com/kilianp07/erdispatch/core/roadnet"
)

// Lister lists incidents, oldest first.
type Lister interface {
	History() []model.Incident
	Unresolved() []model.Incident
}

// Reporter records new incidents.
type Reporter interface {
	Report(ctx context.Context, loc roadnet.NodeID, p model.Priority, desc string) (model.Incident, error)
}

// ReportRequest is the body of POST /api/incidents.
type ReportRequest struct {
	Location    roadnet.NodeID `json:"location"`
	Priority    model.Priority `json:"priority"`
	Description string         `json:"description"`
}

// NewListHandler serves GET /api/incidents. ?all=true includes resolved
// incidents.
func NewListHandler(l Lister) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var res []model.Incident
		if r.URL.Query().Get("all") == "true" {
			res = l.History()
		} else {
			res = l.Unresolved()
		}
		if res == nil {
			res = []model.Incident{}
		}
		writeJSON(w, http.StatusOK, res)
	})
}

// NewReportHandler serves POST /api/incidents and answers 201 with the
// created incident.
func NewReportHandler(rep Reporter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ReportRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
			return
		}
		inc, err := rep.Report(r.Context(), req.Location, req.Priority, req.Description)
		switch {
		case errors.Is(err, coredispatch.ErrUnknownNode), errors.Is(err, model.ErrInvalidPriority),
			errors.Is(err, model.ErrInvalidDescription):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		default:
			writeJSON(w, http.StatusCreated, inc)
		}
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
