package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/devrick225/partenairemagb-payments/app/entity"
	"github.com/devrick225/partenairemagb-payments/app/gateway"
	"github.com/devrick225/partenairemagb-payments/app/provider"
	"github.com/devrick225/partenairemagb-payments/app/realtime"
	"github.com/devrick225/partenairemagb-payments/app/service"
)

var (
	payDonationID string
	payAmount     int64
	payCurrency   string
	payProvider   string
	payMethod     string
	payPhone      string
)

var payCmd = &cobra.Command{
	Use:   "pay",
	Short: "Run a donation payment from provider selection to resolution",
	Run:   runPay,
}

func init() {
	rootCmd.AddCommand(payCmd)

	payCmd.Flags().StringVar(&payDonationID, "donation", "", "Donation identifier the payment belongs to")
	payCmd.Flags().Int64Var(&payAmount, "amount", 0, "Amount in the currency's minor unit")
	payCmd.Flags().StringVar(&payCurrency, "currency", "XOF", "ISO currency code")
	payCmd.Flags().StringVar(&payProvider, "provider", "", "Payment provider key")
	payCmd.Flags().StringVar(&payMethod, "method", "", "Payment method (defaults to the provider's first method)")
	payCmd.Flags().StringVar(&payPhone, "phone", "", "Payer phone number for mobile money providers")
	_ = payCmd.MarkFlagRequired("donation")
	_ = payCmd.MarkFlagRequired("amount")
	_ = payCmd.MarkFlagRequired("provider")
}

func runPay(_ *cobra.Command, _ []string) {
	cfg := mustLoadConfig()

	client := gateway.NewClient(gateway.Config{
		BaseURL:     cfg.API.BaseURL,
		AuthToken:   cfg.App.AuthToken,
		HTTPTimeout: cfg.API.HTTPTimeout,
	})

	channel := realtime.NewChannel(realtime.Config{
		BaseURL:              cfg.Realtime.BaseURL,
		AuthToken:            cfg.App.AuthToken,
		MaxReconnectAttempts: cfg.Realtime.MaxReconnectAttempts,
		ReconnectDelay:       cfg.Realtime.ReconnectDelay,
		OnStatus: func(state realtime.State) {
			logrus.WithField("state", state).Info("Realtime channel state changed")
		},
	})
	defer channel.Close()

	resolved := make(chan entity.PaymentSession, 1)
	orchestrator := service.NewOrchestrator(
		client,
		client,
		channel,
		provider.DefaultRegistry(),
		service.NewBrowserOpener(),
		service.Config{
			PollMaxAttempts:      cfg.Poll.MaxAttempts,
			PollInterval:         cfg.Poll.Interval,
			PollErrorInterval:    cfg.Poll.ErrorInterval,
			PollStartDelay:       cfg.Poll.StartDelay,
			SurfaceCheckInterval: cfg.Poll.SurfaceCheckInterval,
			OnResolved: func(session entity.PaymentSession) {
				resolved <- session
			},
		},
	)
	defer orchestrator.Close()

	if _, err := orchestrator.StartSession(payDonationID, payAmount, payCurrency); err != nil {
		logrus.WithError(err).Fatal("Failed to start payment session")
	}
	if err := orchestrator.SelectProvider(payProvider); err != nil {
		logrus.WithError(err).Fatal("Failed to select provider")
	}
	if payMethod != "" {
		if err := orchestrator.SelectMethod(payMethod); err != nil {
			logrus.WithError(err).Fatal("Failed to select method")
		}
	}
	if payPhone != "" {
		if err := orchestrator.SetContact(payPhone); err != nil {
			logrus.WithError(err).Fatal("Invalid phone number")
		}
	}

	session, _ := orchestrator.Session()
	fmt.Printf("Provider %s, %d %s + %d fees = %d %s\n",
		session.Provider, session.Amount, session.Currency,
		session.Fees.TotalFee, session.Fees.AmountWithFees, session.Currency)

	channel.Open(cfg.App.UserID)

	if err := orchestrator.Initialize(context.Background()); err != nil {
		logrus.WithError(err).Fatal("Payment initialization failed")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case session = <-resolved:
		printOutcome(session)
		if session.Result == entity.ResultFailed {
			os.Exit(1)
		}
	case <-quit:
		logrus.Info("Interrupted, abandoning payment session")
		os.Exit(130)
	}
}

func printOutcome(session entity.PaymentSession) {
	switch session.Result {
	case entity.ResultSucceeded:
		fmt.Printf("Payment %s succeeded (transaction %s)\n", session.PaymentID, session.TransactionID)
	case entity.ResultFailed:
		fmt.Printf("Payment %s failed (transaction %s)\n", session.PaymentID, session.TransactionID)
	case entity.ResultUnknown:
		fmt.Printf("Payment %s status is unknown, check the gateway later\n", session.PaymentID)
	}
}
