package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var nearestCmd = &cobra.Command{
	Use:   "nearest NODE",
	Short: "Print the nearest available vehicle to a node",
	Args:  cobra.ExactArgs(1),
	RunE:  runNearest,
}

func init() {
	rootCmd.AddCommand(nearestCmd)
}

func runNearest(cmd *cobra.Command, args []string) error {
	node, err := parseNode(args[0])
	if err != nil {
		return err
	}
	svc, err := openService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	o := svc.Orchestrator
	v, d, ok := o.Fleet().FindNearest(node, o.Network())
	if !ok {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "no available vehicle can reach node %d\n", node)
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "vehicle %d at node %d, distance %d\n", v.ID, v.Location, d)
	return err
}
