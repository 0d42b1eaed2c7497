package cmd

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/erdispatch/config"
	"github.com/kilianp07/erdispatch/infra/mqtt"
)

var (
	crewDelay  time.Duration
	crewDrop   float64
	crewReject float64
	crewSeed   int64
)

var crewCmd = &cobra.Command{
	Use:   "crew",
	Short: "Simulate vehicle crews acknowledging dispatch orders over MQTT",
	Args:  cobra.NoArgs,
	RunE:  runCrew,
}

func init() {
	crewCmd.Flags().DurationVar(&crewDelay, "delay", 0, "delay before each acknowledgment")
	crewCmd.Flags().Float64Var(&crewDrop, "drop-rate", 0, "probability of ignoring an order")
	crewCmd.Flags().Float64Var(&crewReject, "reject-rate", 0, "probability of rejecting an order")
	crewCmd.Flags().Int64Var(&crewSeed, "seed", 0, "random seed, 0 uses the clock")
	rootCmd.AddCommand(crewCmd)
}

func runCrew(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if !cfg.MQTT.Enabled() {
		return errors.New("crew: mqtt.broker is not configured")
	}
	if crewDrop < 0 || crewDrop > 1 || crewReject < 0 || crewReject > 1 {
		return errors.New("crew: rates must be between 0 and 1")
	}
	var strat mqtt.AckStrategy = mqtt.AutoAck{Delay: crewDelay}
	if crewDrop > 0 || crewReject > 0 {
		strat = mqtt.NewRandomAck(crewDelay, crewDrop, crewReject, crewSeed)
	}
	crew, err := mqtt.NewCrew(cfg.MQTT, strat)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return crew.Run(ctx)
}
