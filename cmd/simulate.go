package cmd

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/devrick225/partenairemagb-payments/app/simulator"
)

var simulateWithRedirect bool

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a local gateway simulator",
	Long:  "Run a local stand-in for the payment gateway: initialize/verify/status endpoints, the realtime websocket and the NDJSON event stream. Initialized payments complete automatically after the configured delay.",
	Run:   runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().BoolVar(&simulateWithRedirect, "with-redirect", false, "Include a hosted-page URL in initialize responses")
}

func runSimulate(_ *cobra.Command, _ []string) {
	cfg := mustLoadConfig()

	sim := simulator.New(simulator.Config{
		CompleteAfter: cfg.Sim.CompleteAfter,
		WithRedirect:  simulateWithRedirect,
	})

	go func() {
		addr := net.JoinHostPort(cfg.Sim.Host, cfg.Sim.Port)
		if err := sim.Start(addr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Simulator server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sim.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("Simulator shutdown error")
	}
	logrus.Info("Simulator stopped")
}
