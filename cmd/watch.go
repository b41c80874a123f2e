package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/devrick225/partenairemagb-payments/app/gateway"
	"github.com/devrick225/partenairemagb-payments/app/types"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the gateway's payment event stream",
	Run:   runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(_ *cobra.Command, _ []string) {
	cfg := mustLoadConfig()

	client := gateway.NewClient(gateway.Config{
		BaseURL:     cfg.API.BaseURL,
		AuthToken:   cfg.App.AuthToken,
		HTTPTimeout: cfg.API.HTTPTimeout,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		logrus.Info("Stopping event stream")
		cancel()
	}()

	err := client.StreamPaymentEvents(ctx, func(event types.StreamEvent) {
		fmt.Printf("%s payment=%s donation=%s status=%s\n",
			event.Type, event.Payment.ID, event.Payment.DonationID, event.Payment.Status)
	})
	if err != nil && ctx.Err() == nil {
		logrus.WithError(err).Fatal("Event stream ended with error")
	}
}
