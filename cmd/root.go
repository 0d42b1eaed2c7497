package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/erdispatch/app"
	"github.com/kilianp07/erdispatch/config"
	"github.com/kilianp07/erdispatch/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "erdispatch",
	Short:         "Emergency vehicle dispatch simulator",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          serve,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// openService loads the configuration, builds the service and reads the
// data files.
func openService() (*app.Service, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := svc.LoadData(); err != nil {
		closeService(svc)
		return nil, fmt.Errorf("load data: %w", err)
	}
	return svc, nil
}

func closeService(svc *app.Service) {
	if err := svc.Close(); err != nil {
		logger.New("main").Errorf("service close: %v", err)
	}
}
