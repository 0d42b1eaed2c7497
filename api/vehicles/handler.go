// Package vehicles serves the fleet over HTTP.
package vehicles

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/kilianp07/erdispatch/core/fleet"
	"github.com/kilianp07/erdispatch/core/model"
)

// FleetReader lists vehicles.
type FleetReader interface {
	Vehicles() []model.Vehicle
}

// Completer frees a busy vehicle.
type Completer interface {
	Complete(ctx context.Context, vehicleID int) error
}

// NewFleetHandler returns an HTTP handler exposing the fleet via
// GET /api/fleet. ?status=AVAILABLE narrows the list.
func NewFleetHandler(f FleetReader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var want *model.Status
		if s := r.URL.Query().Get("status"); s != "" {
			st, err := model.ParseStatus(s)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			want = &st
		}
		res := []model.Vehicle{}
		for _, v := range f.Vehicles() {
			if want == nil || v.Status == *want {
				res = append(res, v)
			}
		}
		writeJSON(w, http.StatusOK, res)
	})
}

// NewCompleteHandler serves POST /api/fleet/{id}/complete.
func NewCompleteHandler(c Completer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(r.PathValue("id"))
		if err != nil {
			http.Error(w, "invalid vehicle id", http.StatusBadRequest)
			return
		}
		err = c.Complete(r.Context(), id)
		switch {
		case errors.Is(err, fleet.ErrVehicleNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, fleet.ErrNotAssigned):
			http.Error(w, err.Error(), http.StatusConflict)
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
