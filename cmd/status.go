package cmd

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/devrick225/partenairemagb-payments/app/gateway"
	"github.com/devrick225/partenairemagb-payments/app/service"
)

var (
	statusFollow bool
	statusVerify bool
)

var statusCmd = &cobra.Command{
	Use:   "status <payment-id>",
	Short: "Check a payment's status, optionally polling until it settles",
	Args:  cobra.ExactArgs(1),
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusFollow, "follow", false, "Poll until a terminal status or the attempt budget is spent")
	statusCmd.Flags().BoolVar(&statusVerify, "verify", false, "Ask the gateway to re-verify by transaction id instead of reading the cached status")
}

func runStatus(_ *cobra.Command, args []string) {
	cfg := mustLoadConfig()
	paymentID := args[0]

	client := gateway.NewClient(gateway.Config{
		BaseURL:     cfg.API.BaseURL,
		AuthToken:   cfg.App.AuthToken,
		HTTPTimeout: cfg.API.HTTPTimeout,
	})

	if statusVerify {
		verified, err := client.VerifyPayment(context.Background(), paymentID)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to verify payment")
		}
		fmt.Printf("%s: %s\n", verified.TransactionID, verified.Status)
		return
	}

	if !statusFollow {
		status, err := client.FetchPaymentStatus(context.Background(), paymentID)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to fetch payment status")
		}
		fmt.Printf("%s: %s\n", paymentID, status)
		return
	}

	poller := service.NewStatusPoller(client, service.PollerConfig{
		MaxAttempts:   cfg.Poll.MaxAttempts,
		Interval:      cfg.Poll.Interval,
		ErrorInterval: cfg.Poll.ErrorInterval,
	})

	done := make(chan string, 1)
	poller.Poll(paymentID, func(status string) {
		done <- status
	})
	fmt.Printf("%s: %s\n", paymentID, <-done)
}
