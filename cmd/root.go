package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/devrick225/partenairemagb-payments/app/factory"
	"github.com/devrick225/partenairemagb-payments/config"
)

var rootCmd = &cobra.Command{
	Use:   "payments-console",
	Short: "Donation payments operator console",
	Long:  "An operator console for the donation payment flow: run payments end to end, check statuses, follow gateway events, and simulate the gateway locally.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func mustLoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := factory.ConfigureLogging(cfg.Log.Level); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}
	return cfg
}
