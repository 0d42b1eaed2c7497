package textfile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/erdispatch/core/fleet"
	"github.com/kilianp07/erdispatch/core/incident"
	"github.com/kilianp07/erdispatch/core/model"
	"github.com/kilianp07/erdispatch/core/roadnet"
)

type warnCounter struct {
	n int
}

func (w *warnCounter) Debugf(string, ...any)         {}
func (w *warnCounter) Debugw(string, map[string]any) {}
func (w *warnCounter) Infof(string, ...any)          {}
func (w *warnCounter) Infow(string, map[string]any)  {}
func (w *warnCounter) Warnf(string, ...any)          { w.n++ }
func (w *warnCounter) Errorf(string, ...any)         {}

func TestLoadGraph(t *testing.T) {
	in := `# header
0 1 5

1 2 3 extra
bad line
0 x 4
2 3 -1
0  2	10
`
	net := roadnet.New()
	log := &warnCounter{}
	rep, err := LoadGraph(strings.NewReader(in), net, WithLogger(log))
	require.NoError(t, err)
	assert.Equal(t, LoadReport{Loaded: 3, Skipped: 3}, rep)
	assert.Equal(t, 3, log.n)
	assert.Equal(t, []roadnet.NodeID{0, 1, 2}, net.Nodes())
	assert.Equal(t, roadnet.Distance(8), net.ShortestDistance(0, 2, false))
}

func TestSaveGraphDeduplicates(t *testing.T) {
	net := roadnet.New()
	require.NoError(t, net.AddEdge(1, 0, 5))
	require.NoError(t, net.AddEdge(1, 2, 3))
	require.NoError(t, net.AddEdge(2, 0, 10))

	var buf bytes.Buffer
	require.NoError(t, SaveGraph(&buf, net))
	lines := significant(buf.String())
	assert.ElementsMatch(t, []string{"0 1 5", "1 2 3", "0 2 10"}, lines)
	assert.True(t, strings.HasPrefix(buf.String(), "# "))

	again := roadnet.New()
	rep, err := LoadGraph(&buf, again)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Loaded)
	assert.ElementsMatch(t, net.Edges(), again.Edges())
}

func TestLoadFleet(t *testing.T) {
	in := "# fleet\n1 0\n2 4\n2 5\nx 1\n3\n"
	f := fleet.NewManager()
	rep, err := LoadFleet(strings.NewReader(in), f)
	require.NoError(t, err)
	assert.Equal(t, LoadReport{Loaded: 2, Skipped: 3}, rep)
	v, ok := f.Get(2)
	require.True(t, ok)
	assert.Equal(t, roadnet.NodeID(4), v.Location)
	assert.Equal(t, model.StatusAvailable, v.Status)
}

func TestSaveFleetDropsStatus(t *testing.T) {
	f := fleet.NewManager()
	require.NoError(t, f.AddVehicle(7, 3))
	require.NoError(t, f.AddVehicle(8, 1))
	require.NoError(t, f.Dispatch(7, 42))

	var buf bytes.Buffer
	require.NoError(t, SaveFleet(&buf, f))
	assert.Equal(t, []string{"7 3", "8 1"}, significant(buf.String()))

	again := fleet.NewManager()
	_, err := LoadFleet(&buf, again)
	require.NoError(t, err)
	v, _ := again.Get(7)
	assert.Equal(t, model.StatusAvailable, v.Status)
}

func TestLoadIncidentsValidatesLocation(t *testing.T) {
	net := roadnet.New()
	require.NoError(t, net.AddEdge(0, 1, 1))
	in := `# incidents
1,HIGH,Fire, second floor
9,LOW,Nowhere
0,urgent,Bad priority
0,medium,Medical case
0,LOW
`
	q := incident.NewQueue()
	rep, err := LoadIncidents(strings.NewReader(in), q, net)
	require.NoError(t, err)
	assert.Equal(t, LoadReport{Loaded: 2, Skipped: 3}, rep)

	got := q.Unresolved()
	require.Len(t, got, 2)
	assert.Equal(t, "Fire, second floor", got[0].Description)
	assert.Equal(t, model.PriorityHigh, got[0].Priority)
	assert.Equal(t, model.PriorityMedium, got[1].Priority)
}

func TestSaveIncidentsOnlyUnresolved(t *testing.T) {
	q := incident.NewQueue()
	a, err := q.Report(1, model.PriorityHigh, "Accident case")
	require.NoError(t, err)
	_, err = q.Report(2, model.PriorityLow, "Flood case")
	require.NoError(t, err)
	require.NoError(t, q.MarkResolved(a.ID))

	var buf bytes.Buffer
	require.NoError(t, SaveIncidents(&buf, q))
	assert.Equal(t, []string{"2,LOW,Flood case"}, significant(buf.String()))
}

type incidentList []model.Incident

func (l incidentList) Unresolved() []model.Incident { return l }

// A description holding a line break must come back as one incident.
func TestIncidentsRoundTripKeepsOneLinePerIncident(t *testing.T) {
	net := roadnet.New()
	require.NoError(t, net.AddEdge(1, 2, 1))

	q := incident.NewQueue()
	_, err := q.Report(2, model.PriorityHigh, "Fire\n1,LOW,ghost row")
	require.ErrorIs(t, err, model.ErrInvalidDescription)
	assert.Equal(t, 0, q.LiveCount())

	src := incidentList{{Location: 2, Priority: model.PriorityHigh, Description: "Fire\n1,LOW,ghost row\r"}}
	var buf bytes.Buffer
	require.NoError(t, SaveIncidents(&buf, src))
	assert.Equal(t, []string{"2,HIGH,Fire 1,LOW,ghost row"}, significant(buf.String()))

	back := incident.NewQueue()
	rep, err := LoadIncidents(&buf, back, net)
	require.NoError(t, err)
	assert.Equal(t, LoadReport{Loaded: 1}, rep)
	got := back.Unresolved()
	require.Len(t, got, 1)
	assert.Equal(t, roadnet.NodeID(2), got[0].Location)
	assert.Equal(t, model.PriorityHigh, got[0].Priority)
	assert.Equal(t, "Fire 1,LOW,ghost row", got[0].Description)
}

func TestNilTargets(t *testing.T) {
	_, err := LoadGraph(strings.NewReader(""), nil)
	assert.ErrorIs(t, err, ErrNilTarget)
	_, err = LoadFleet(strings.NewReader(""), nil)
	assert.ErrorIs(t, err, ErrNilTarget)
	_, err = LoadIncidents(strings.NewReader(""), incident.NewQueue(), nil)
	assert.ErrorIs(t, err, ErrNilTarget)
}

func TestFileHelpers(t *testing.T) {
	dir := t.TempDir()
	net := roadnet.New()
	require.NoError(t, net.AddEdge(0, 1, 2))
	path := filepath.Join(dir, "map.txt")
	require.NoError(t, SaveGraphFile(path, net))

	loaded := roadnet.New()
	rep, err := LoadGraphFile(path, loaded)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Loaded)
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	_, err = LoadGraphFile(filepath.Join(dir, "missing.txt"), loaded)
	assert.Error(t, err)

	incPath := filepath.Join(dir, "incidents.txt")
	require.NoError(t, AppendIncidentsFile(incPath, []model.Incident{{Location: 1, Priority: model.PriorityHigh, Description: "Fire case"}}))
	require.NoError(t, AppendIncidentsFile(incPath, []model.Incident{{Location: 0, Priority: model.PriorityLow, Description: "Rescue case"}}))
	q := incident.NewQueue()
	rep, err = LoadIncidentsFile(incPath, q, loaded)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Loaded)

	fleetPath := filepath.Join(dir, "fleet.txt")
	f := fleet.NewManager()
	require.NoError(t, f.AddVehicle(1, 0))
	require.NoError(t, SaveFleetFile(fleetPath, f))
	f2 := fleet.NewManager()
	rep, err = LoadFleetFile(fleetPath, f2)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Loaded)

	require.NoError(t, SaveIncidentsFile(incPath, q))
	data, err := os.ReadFile(incPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"1,HIGH,Fire case", "0,LOW,Rescue case"}, significant(string(data)))
}

func significant(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		out = append(out, l)
	}
	return out
}
