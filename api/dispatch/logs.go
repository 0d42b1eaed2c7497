package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/kilianp07/erdispatch/core/dispatch/logging"
	"github.com/kilianp07/erdispatch/core/events"
)

// LogQuerier answers dispatch log queries.
type LogQuerier interface {
	Logs(ctx context.Context, q logging.LogQuery) ([]logging.LogRecord, error)
}

// NewLogHandler exposes the dispatch log via GET /api/dispatch/logs.
// Supported filters: start, end (RFC 3339), kind, vehicle_id, incident_id
// and limit.
func NewLogHandler(src LogQuerier) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q, err := parseQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		records, err := src.Logs(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []logging.LogRecord{}
		}
		writeJSON(w, http.StatusOK, records)
	})
}

func parseQuery(r *http.Request) (logging.LogQuery, error) {
	v := r.URL.Query()
	var q logging.LogQuery
	var err error
	if q.Start, err = parseTime(v.Get("start")); err != nil {
		return q, fmt.Errorf("start: %w", err)
	}
	if q.End, err = parseTime(v.Get("end")); err != nil {
		return q, fmt.Errorf("end: %w", err)
	}
	if q.VehicleID, err = parseID(v.Get("vehicle_id")); err != nil {
		return q, fmt.Errorf("vehicle_id: %w", err)
	}
	if q.IncidentID, err = parseID(v.Get("incident_id")); err != nil {
		return q, fmt.Errorf("incident_id: %w", err)
	}
	if s := v.Get("limit"); s != "" {
		if q.Limit, err = strconv.Atoi(s); err != nil || q.Limit < 0 {
			return q, fmt.Errorf("limit: invalid value %q", s)
		}
	}
	if k := events.Kind(v.Get("kind")); k != "" {
		if !k.Valid() {
			return q, fmt.Errorf("kind: unknown value %q", k)
		}
		q.Kind = k
	}
	return q, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

func parseID(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
