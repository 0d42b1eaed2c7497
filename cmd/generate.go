package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/erdispatch/infra/textfile"
)

var generateCount int

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Append random incidents to the incidents file",
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().IntVarP(&generateCount, "count", "n", 0, "number of incidents (defaults to generator.count)")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	svc, err := openService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	count := generateCount
	if count == 0 {
		count = svc.Config().Generator.Count
	}
	incs, err := svc.Generator.Generate(count, svc.Orchestrator.Network().Nodes())
	if err != nil {
		return err
	}
	path := svc.Config().Data.Incidents
	if err := textfile.AppendIncidentsFile(path, incs); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d test incidents added to %s\n", len(incs), path)
	return err
}
