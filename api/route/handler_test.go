package route

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/erdispatch/core/roadnet"
)

func network(t *testing.T) *roadnet.Network {
	t.Helper()
	n := roadnet.New()
	require.NoError(t, n.AddEdge(0, 1, 5))
	require.NoError(t, n.AddEdge(1, 2, 3))
	require.NoError(t, n.AddEdge(0, 2, 10))
	n.AddNode(7)
	n.MarkBlocked(1, 2)
	return n
}

func get(h http.Handler, qs string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/route?"+qs, nil))
	return rr
}

func TestRouteHandler(t *testing.T) {
	h := NewHandler(network(t))

	rr := get(h, "from=0&to=2")
	require.Equal(t, http.StatusOK, rr.Code)
	var res Response
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.Equal(t, roadnet.Distance(8), res.Distance)
	assert.Equal(t, []roadnet.NodeID{0, 1, 2}, res.Nodes)

	rr = get(h, "from=0&to=2&blocked=true")
	require.Equal(t, http.StatusOK, rr.Code)
	res = Response{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	assert.Equal(t, roadnet.Distance(10), res.Distance)
	assert.True(t, res.Blocked)
}

func TestRouteHandlerErrors(t *testing.T) {
	h := NewHandler(network(t))
	cases := map[string]int{
		"from=x&to=1":               http.StatusBadRequest,
		"from=0":                    http.StatusBadRequest,
		"from=0&to=1&blocked=maybe": http.StatusBadRequest,
		"from=0&to=99":              http.StatusNotFound,
		"from=0&to=7":               http.StatusNotFound,
	}
	for qs, want := range cases {
		assert.Equal(t, want, get(h, qs).Code, qs)
	}
}
