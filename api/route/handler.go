// Package route serves shortest path queries over HTTP.
package route

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/kilianp07/erdispatch/core/roadnet"
)

// PathFinder computes routes.
type PathFinder interface {
	HasNode(id roadnet.NodeID) bool
	ShortestPath(start, end roadnet.NodeID, respectBlocked bool) (roadnet.Path, bool)
}

// Response is the body of a successful route query.
type Response struct {
	From     roadnet.NodeID   `json:"from"`
	To       roadnet.NodeID   `json:"to"`
	Blocked  bool             `json:"respect_blocked"`
	Nodes    []roadnet.NodeID `json:"nodes"`
	Distance roadnet.Distance `json:"distance"`
}

// NewHandler serves GET /api/route?from=&to=&blocked=. It answers 404 when
// a node is unknown or no route exists.
func NewHandler(pf PathFinder) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v := r.URL.Query()
		from, err := strconv.Atoi(v.Get("from"))
		if err != nil {
			http.Error(w, "invalid from", http.StatusBadRequest)
			return
		}
		to, err := strconv.Atoi(v.Get("to"))
		if err != nil {
			http.Error(w, "invalid to", http.StatusBadRequest)
			return
		}
		blocked := false
		if s := v.Get("blocked"); s != "" {
			if blocked, err = strconv.ParseBool(s); err != nil {
				http.Error(w, "invalid blocked", http.StatusBadRequest)
				return
			}
		}
		a, b := roadnet.NodeID(from), roadnet.NodeID(to)
		if !pf.HasNode(a) || !pf.HasNode(b) {
			http.Error(w, "unknown node", http.StatusNotFound)
			return
		}
		p, ok := pf.ShortestPath(a, b, blocked)
		if !ok {
			http.Error(w, "no route", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Response{From: a, To: b, Blocked: blocked, Nodes: p.Nodes, Distance: p.Distance})
	})
}
