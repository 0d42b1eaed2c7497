package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/erdispatch/core/model"
	"github.com/kilianp07/erdispatch/core/roadnet"
)

type RoadDef struct {
	From   int   `yaml:"from"`
	To     int   `yaml:"to"`
	Weight int64 `yaml:"weight"`
}

type VehicleDef struct {
	ID          int  `yaml:"id"`
	Location    int  `yaml:"location"`
	Maintenance bool `yaml:"maintenance,omitempty"`
}

type IncidentDef struct {
	Location    int            `yaml:"location"`
	Priority    model.Priority `yaml:"priority"`
	Description string         `yaml:"description"`
}

// Step is one operation of a scenario. Exactly one field is set.
type Step struct {
	ProcessNext bool         `yaml:"process_next,omitempty"`
	ProcessAll  bool         `yaml:"process_all,omitempty"`
	Reassign    bool         `yaml:"reassign,omitempty"`
	Complete    *int         `yaml:"complete,omitempty"`
	Block       []int        `yaml:"block,omitempty"`
	Open        []int        `yaml:"open,omitempty"`
	Report      *IncidentDef `yaml:"report,omitempty"`
}

type AssignmentDef struct {
	Incident int   `yaml:"incident"`
	Vehicle  int   `yaml:"vehicle"`
	Distance int64 `yaml:"distance"`
}

type Expected struct {
	Assigned      int             `yaml:"assigned"`
	Unserved      int             `yaml:"unserved"`
	Reassignments int             `yaml:"reassignments"`
	Notified      int             `yaml:"notified"`
	Queued        int             `yaml:"queued"`
	Assignments   []AssignmentDef `yaml:"assignments,omitempty"`
}

type Scenario struct {
	Name           string        `yaml:"name"`
	Description    string        `yaml:"description,omitempty"`
	RespectBlocked bool          `yaml:"respect_blocked,omitempty"`
	Roads          []RoadDef     `yaml:"roads"`
	Blocked        [][2]int      `yaml:"blocked,omitempty"`
	Vehicles       []VehicleDef  `yaml:"vehicles"`
	Incidents      []IncidentDef `yaml:"incidents"`
	FailVehicles   []int         `yaml:"fail_vehicles,omitempty"`
	Steps          []Step        `yaml:"steps"`
	Expected       Expected      `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if err := sc.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &sc, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario name is required")
	}
	for i, st := range s.Steps {
		if n := st.ops(); n != 1 {
			return fmt.Errorf("step %d sets %d operations, want 1", i, n)
		}
		if (st.Block != nil && len(st.Block) != 2) || (st.Open != nil && len(st.Open) != 2) {
			return fmt.Errorf("step %d: a road is two nodes", i)
		}
	}
	return nil
}

func (st Step) ops() int {
	n := 0
	for _, set := range []bool{st.ProcessNext, st.ProcessAll, st.Reassign, st.Complete != nil, st.Block != nil, st.Open != nil, st.Report != nil} {
		if set {
			n++
		}
	}
	return n
}

func node(v int) roadnet.NodeID { return roadnet.NodeID(v) }
