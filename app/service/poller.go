package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devrick225/partenairemagb-payments/app/factory"
	"github.com/devrick225/partenairemagb-payments/app/types"
)

const (
	DefaultPollMaxAttempts   = 10
	DefaultPollInterval      = 3 * time.Second
	DefaultPollErrorInterval = 5 * time.Second
)

// StatusFetcher asks the backend for a payment's current status.
type StatusFetcher interface {
	FetchPaymentStatus(ctx context.Context, paymentID string) (string, error)
}

// StatusPoller is the fallback confirmation path when realtime delivery is
// absent or insufficient. It polls until a terminal status arrives or the
// attempt budget is spent, in which case it reports types.StatusUnknown -
// "stop waiting, ask the user to check back", not a failure.
type StatusPoller struct {
	fetcher       StatusFetcher
	maxAttempts   int
	interval      time.Duration
	errorInterval time.Duration
	log           logrus.FieldLogger

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
	done    bool
}

type PollerConfig struct {
	MaxAttempts   int
	Interval      time.Duration
	ErrorInterval time.Duration
	Logger        logrus.FieldLogger
}

func NewStatusPoller(fetcher StatusFetcher, cfg PollerConfig) *StatusPoller {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultPollMaxAttempts
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.ErrorInterval <= 0 {
		cfg.ErrorInterval = DefaultPollErrorInterval
	}
	log := cfg.Logger
	if log == nil {
		log = factory.NewModuleLogger("status-poller")
	}
	return &StatusPoller{
		fetcher:       fetcher,
		maxAttempts:   cfg.MaxAttempts,
		interval:      cfg.Interval,
		errorInterval: cfg.ErrorInterval,
		log:           log,
	}
}

// Poll starts polling for paymentID. onResult is invoked exactly once with
// a terminal status or types.StatusUnknown; a cancelled poller never calls
// it.
func (p *StatusPoller) Poll(paymentID string, onResult func(status string)) {
	ctx, cancel := context.WithCancel(context.Background())

	p.mu.Lock()
	if p.stopped || p.cancel != nil {
		p.mu.Unlock()
		cancel()
		return
	}
	p.cancel = cancel
	p.mu.Unlock()

	go p.run(ctx, paymentID, onResult)
}

func (p *StatusPoller) run(ctx context.Context, paymentID string, onResult func(status string)) {
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		status, err := p.fetcher.FetchPaymentStatus(ctx, paymentID)
		if ctx.Err() != nil {
			return
		}

		delay := p.interval
		if err != nil {
			p.log.WithError(err).WithFields(logrus.Fields{"payment_id": paymentID, "attempt": attempt}).Warn("Status fetch failed")
			// Back off harder so a failing backend is not hammered.
			delay = p.errorInterval
		} else if types.TerminalStatus(status) {
			p.deliver(onResult, status)
			return
		}

		if attempt == p.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}

	p.log.WithField("payment_id", paymentID).Info("Polling attempts exhausted")
	p.deliver(onResult, types.StatusUnknown)
}

func (p *StatusPoller) deliver(onResult func(status string), status string) {
	p.mu.Lock()
	if p.stopped || p.done {
		p.mu.Unlock()
		return
	}
	p.done = true
	p.mu.Unlock()
	onResult(status)
}

// Cancel stops all pending attempts. Safe to call repeatedly and after
// completion.
func (p *StatusPoller) Cancel() {
	p.mu.Lock()
	p.stopped = true
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
