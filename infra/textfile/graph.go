package textfile

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kilianp07/erdispatch/core/roadnet"
)

// GraphBuilder receives roads read from a graph file.
type GraphBuilder interface {
	AddEdge(src, dest roadnet.NodeID, w roadnet.Weight) error
}

// EdgeLister provides the roads written to a graph file.
type EdgeLister interface {
	Edges() []roadnet.Edge
}

// LoadGraph reads "src dest weight" lines into g. Extra fields are ignored.
func LoadGraph(r io.Reader, g GraphBuilder, opts ...Option) (LoadReport, error) {
	if g == nil {
		return LoadReport{}, ErrNilTarget
	}
	o := buildOptions(opts)
	var rep LoadReport
	err := eachLine(r, func(n int, line string) {
		src, dest, w, err := parseEdge(line)
		if err == nil {
			err = g.AddEdge(src, dest, w)
		}
		if err != nil {
			o.skip(&rep, "graph", n, err)
			return
		}
		rep.Loaded++
	})
	return rep, err
}

func parseEdge(line string) (roadnet.NodeID, roadnet.NodeID, roadnet.Weight, error) {
	f := strings.Fields(line)
	if len(f) < 3 {
		return 0, 0, 0, fmt.Errorf("want 3 fields, got %d", len(f))
	}
	var v [3]int64
	for i := range v {
		n, err := strconv.ParseInt(f[i], 10, 64)
		if err != nil {
			return 0, 0, 0, err
		}
		v[i] = n
	}
	return roadnet.NodeID(v[0]), roadnet.NodeID(v[1]), roadnet.Weight(v[2]), nil
}

// SaveGraph writes every road of g once as "min max weight".
func SaveGraph(w io.Writer, g EdgeLister) error {
	if err := header(w, "Graph data: source destination weight"); err != nil {
		return err
	}
	for _, e := range g.Edges() {
		if _, err := fmt.Fprintf(w, "%d %d %d\n", e.From, e.To, e.Weight); err != nil {
			return err
		}
	}
	return nil
}

// LoadGraphFile reads the graph file at path into g.
func LoadGraphFile(path string, g GraphBuilder, opts ...Option) (LoadReport, error) {
	return loadFile(path, func(r io.Reader) (LoadReport, error) { return LoadGraph(r, g, opts...) })
}

// SaveGraphFile replaces the file at path with the roads of g.
func SaveGraphFile(path string, g EdgeLister) error {
	return saveFile(path, func(w io.Writer) error { return SaveGraph(w, g) })
}
