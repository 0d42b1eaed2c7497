package textfile

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kilianp07/erdispatch/core/model"
	"github.com/kilianp07/erdispatch/core/roadnet"
)

// FleetBuilder receives vehicles read from a fleet file.
type FleetBuilder interface {
	AddVehicle(id int, loc roadnet.NodeID) error
}

// FleetLister provides the vehicles written to a fleet file.
type FleetLister interface {
	Vehicles() []model.Vehicle
}

// LoadFleet reads "id location" lines into f. Duplicate ids are skipped.
func LoadFleet(r io.Reader, f FleetBuilder, opts ...Option) (LoadReport, error) {
	if f == nil {
		return LoadReport{}, ErrNilTarget
	}
	o := buildOptions(opts)
	var rep LoadReport
	err := eachLine(r, func(n int, line string) {
		id, loc, err := parseVehicle(line)
		if err == nil {
			err = f.AddVehicle(id, loc)
		}
		if err != nil {
			o.skip(&rep, "fleet", n, err)
			return
		}
		rep.Loaded++
	})
	return rep, err
}

func parseVehicle(line string) (int, roadnet.NodeID, error) {
	f := strings.Fields(line)
	if len(f) < 2 {
		return 0, 0, fmt.Errorf("want 2 fields, got %d", len(f))
	}
	id, err := strconv.Atoi(f[0])
	if err != nil {
		return 0, 0, err
	}
	loc, err := strconv.Atoi(f[1])
	if err != nil {
		return 0, 0, err
	}
	return id, roadnet.NodeID(loc), nil
}

// SaveFleet writes one "id location" line per vehicle. Status is not kept.
func SaveFleet(w io.Writer, f FleetLister) error {
	if err := header(w, "Vehicle data: id location"); err != nil {
		return err
	}
	for _, v := range f.Vehicles() {
		if _, err := fmt.Fprintf(w, "%d %d\n", v.ID, v.Location); err != nil {
			return err
		}
	}
	return nil
}

// LoadFleetFile reads the fleet file at path into f.
func LoadFleetFile(path string, f FleetBuilder, opts ...Option) (LoadReport, error) {
	return loadFile(path, func(r io.Reader) (LoadReport, error) { return LoadFleet(r, f, opts...) })
}

// SaveFleetFile replaces the file at path with the vehicles of f.
func SaveFleetFile(path string, f FleetLister) error {
	return saveFile(path, func(w io.Writer) error { return SaveFleet(w, f) })
}
