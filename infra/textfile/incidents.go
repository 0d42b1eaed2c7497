package textfile

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/kilianp07/erdispatch/core/model"
	"github.com/kilianp07/erdispatch/core/roadnet"
)

var errUnknownLocation = errors.New("location not in road network")

// Reporter receives incidents read from an incident file.
type Reporter interface {
	Report(loc roadnet.NodeID, p model.Priority, desc string) (model.Incident, error)
}

// NodeSet tells which locations exist.
type NodeSet interface {
	HasNode(id roadnet.NodeID) bool
}

// UnresolvedLister provides the incidents written to an incident file.
type UnresolvedLister interface {
	Unresolved() []model.Incident
}

// LoadIncidents reads "location,PRIORITY,description" lines and reports
// them to q. Rows whose location is not a node of nodes are skipped. The
// description is everything after the second comma.
func LoadIncidents(r io.Reader, q Reporter, nodes NodeSet, opts ...Option) (LoadReport, error) {
	if q == nil || nodes == nil {
		return LoadReport{}, ErrNilTarget
	}
	o := buildOptions(opts)
	var rep LoadReport
	err := eachLine(r, func(n int, line string) {
		loc, p, desc, err := parseIncident(line)
		if err == nil && !nodes.HasNode(loc) {
			err = fmt.Errorf("%w: %d", errUnknownLocation, loc)
		}
		if err == nil {
			_, err = q.Report(loc, p, desc)
		}
		if err != nil {
			o.skip(&rep, "incident", n, err)
			return
		}
		rep.Loaded++
	})
	return rep, err
}

func parseIncident(line string) (roadnet.NodeID, model.Priority, string, error) {
	parts := strings.SplitN(line, ",", 3)
	if len(parts) < 3 {
		return 0, 0, "", fmt.Errorf("want 3 fields, got %d", len(parts))
	}
	loc, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, "", err
	}
	p, err := model.ParsePriority(parts[1])
	if err != nil {
		return 0, 0, "", err
	}
	return roadnet.NodeID(loc), p, strings.TrimSpace(parts[2]), nil
}

// SaveIncidents writes the unresolved incidents of q, oldest first.
func SaveIncidents(w io.Writer, q UnresolvedLister) error {
	if err := header(w, "Incident data: location,priority,description"); err != nil {
		return err
	}
	for _, inc := range q.Unresolved() {
		if err := writeIncident(w, inc); err != nil {
			return err
		}
	}
	return nil
}

// LoadIncidentsFile reads the incident file at path.
func LoadIncidentsFile(path string, q Reporter, nodes NodeSet, opts ...Option) (LoadReport, error) {
	return loadFile(path, func(r io.Reader) (LoadReport, error) { return LoadIncidents(r, q, nodes, opts...) })
}

// SaveIncidentsFile replaces the file at path with the unresolved incidents
// of q.
func SaveIncidentsFile(path string, q UnresolvedLister) error {
	return saveFile(path, func(w io.Writer) error { return SaveIncidents(w, q) })
}

// AppendIncidentsFile adds incidents to the end of the file at path,
// creating it if needed.
func AppendIncidentsFile(path string, incs []model.Incident) error {
	return appendFile(path, func(w io.Writer) error {
		for _, inc := range incs {
			if err := writeIncident(w, inc); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeIncident writes one incident line. Control characters in the
// description become spaces so the line cannot split.
func writeIncident(w io.Writer, inc model.Incident) error {
	desc := strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, inc.Description))
	_, err := fmt.Fprintf(w, "%d,%s,%s\n", inc.Location, inc.Priority, desc)
	return err
}
