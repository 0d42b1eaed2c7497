package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/erdispatch/core/roadnet"
)

var routeBlocked bool

var routeCmd = &cobra.Command{
	Use:   "route FROM TO",
	Short: "Print the shortest route between two nodes",
	Args:  cobra.ExactArgs(2),
	RunE:  runRoute,
}

func init() {
	routeCmd.Flags().BoolVar(&routeBlocked, "blocked", false, "avoid blocked roads")
	rootCmd.AddCommand(routeCmd)
}

func runRoute(cmd *cobra.Command, args []string) error {
	from, err := parseNode(args[0])
	if err != nil {
		return err
	}
	to, err := parseNode(args[1])
	if err != nil {
		return err
	}
	svc, err := openService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	p, ok := svc.Orchestrator.Network().ShortestPath(from, to, routeBlocked)
	if !ok {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "no route from %d to %d\n", from, to)
		return err
	}
	hops := make([]string, len(p.Nodes))
	for i, n := range p.Nodes {
		hops[i] = strconv.Itoa(int(n))
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "distance %d: %s\n", p.Distance, strings.Join(hops, " -> "))
	return err
}

func parseNode(s string) (roadnet.NodeID, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid node %q", s)
	}
	return roadnet.NodeID(n), nil
}
