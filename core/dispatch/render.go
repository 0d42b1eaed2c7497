package dispatch

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/kilianp07/erdispatch/core/model"
	"github.com/kilianp07/erdispatch/core/roadnet"
)

// RenderNetwork writes one line per road, flagging blocked ones.
func RenderNetwork(w io.Writer, net *roadnet.Network) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "FROM\tTO\tWEIGHT\t\n")
	for _, e := range net.Edges() {
		flag := ""
		if net.IsBlocked(e.From, e.To) {
			flag = "[BLOCKED]"
		}
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\n", e.From, e.To, e.Weight, flag)
	}
	return tw.Flush()
}

// RenderFleet writes one line per vehicle.
func RenderFleet(w io.Writer, vehicles []model.Vehicle) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "VEHICLE\tNODE\tSTATUS\tINCIDENT\n")
	for _, v := range vehicles {
		inc := "-"
		if id, ok := v.Assignment(); ok {
			inc = fmt.Sprint(id)
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", v.ID, v.Location, v.Status, inc)
	}
	return tw.Flush()
}

// RenderIncidents writes one line per incident.
func RenderIncidents(w io.Writer, incidents []model.Incident) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "INCIDENT\tNODE\tPRIORITY\tSTATE\tDESCRIPTION\n")
	for _, inc := range incidents {
		state := "ACTIVE"
		if inc.Resolved {
			state = "RESOLVED"
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", inc.ID, inc.Location, inc.Priority, state, inc.Description)
	}
	return tw.Flush()
}

// RenderReassignments writes the reassignment log.
func RenderReassignments(w io.Writer, entries []model.ReassignmentLogEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no reassignments")
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "vehicle %d -> incident %d\n", e.VehicleID, e.IncidentID); err != nil {
			return err
		}
	}
	return nil
}

// RenderStatus writes a short system summary.
func RenderStatus(w io.Writer, st Status) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "nodes\t%d\t(%d blocked roads)\n", st.Nodes, st.BlockedRoads)
	fmt.Fprintf(tw, "vehicles\t%d\t(%d available, %d busy, %d maintenance)\n", st.Vehicles, st.Available, st.Busy, st.Maintenance)
	fmt.Fprintf(tw, "incidents\t%d\t(%d active, %d queued)\n", st.Incidents, st.Active, st.Queued)
	fmt.Fprintf(tw, "reassignments\t%d\t\n", st.Reassignments)
	if st.Responses.Count > 0 {
		fmt.Fprintf(tw, "response distance\tmean %.1f\tstddev %.1f max %.0f over %d\n",
			st.Responses.Mean, st.Responses.StdDev, st.Responses.Max, st.Responses.Count)
	}
	return tw.Flush()
}
