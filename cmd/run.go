package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/erdispatch/core/dispatch"
)

var (
	runLimit    int
	runReassign bool
	runSave     bool
	runShow     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Dispatch every queued incident and print the result",
	RunE:  runDispatch,
}

func init() {
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "stop after this many assignments (0 means no limit)")
	runCmd.Flags().BoolVar(&runReassign, "reassign", false, "run a reassignment pass afterwards")
	runCmd.Flags().BoolVar(&runSave, "save", false, "write the road network, fleet and unresolved incidents back to the data files")
	runCmd.Flags().BoolVar(&runShow, "show", false, "print the network, fleet and incidents before dispatching")
	rootCmd.AddCommand(runCmd)
}

func runDispatch(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		return err
	}
	defer closeService(svc)
	o := svc.Orchestrator
	out := cmd.OutOrStdout()

	if runShow {
		if err := dispatch.RenderNetwork(out, o.Network()); err != nil {
			return err
		}
		if err := dispatch.RenderFleet(out, o.Fleet().Vehicles()); err != nil {
			return err
		}
		if err := dispatch.RenderIncidents(out, o.Queue().History()); err != nil {
			return err
		}
	}

	done, err := o.ProcessAll(cmd.Context(), runLimit)
	if err != nil {
		return err
	}
	for _, a := range done {
		if _, err := fmt.Fprintf(out, "vehicle %d -> incident %d (%s) at node %d, distance %d\n",
			a.VehicleID, a.IncidentID, a.Priority, a.Location, a.Distance); err != nil {
			return err
		}
	}
	if runReassign {
		if err := dispatch.RenderReassignments(out, o.Reassign(cmd.Context())); err != nil {
			return err
		}
	}
	if err := dispatch.RenderStatus(out, o.Snapshot()); err != nil {
		return err
	}
	if runSave {
		return svc.SaveData()
	}
	return nil
}
