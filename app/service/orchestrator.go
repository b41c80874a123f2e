package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/devrick225/partenairemagb-payments/app/entity"
	"github.com/devrick225/partenairemagb-payments/app/factory"
	"github.com/devrick225/partenairemagb-payments/app/provider"
	"github.com/devrick225/partenairemagb-payments/app/types"
)

const (
	DefaultPollStartDelay       = 2 * time.Second
	DefaultSurfaceCheckInterval = time.Second
)

type paymentInitializer interface {
	InitializePayment(ctx context.Context, req *types.InitializePaymentRequest) (*types.InitializePaymentResponse, error)
}

type realtimeSubscriber interface {
	Subscribe(topic string, handler func(msg types.InboundMessage)) func()
}

type Config struct {
	PollMaxAttempts      int
	PollInterval         time.Duration
	PollErrorInterval    time.Duration
	PollStartDelay       time.Duration
	SurfaceCheckInterval time.Duration

	// OnResolved observes the session after it reaches its final result.
	OnResolved func(session entity.PaymentSession)

	Logger logrus.FieldLogger
}

// Orchestrator runs exactly one PaymentSession from provider selection to
// terminal resolution, racing the realtime channel against the status
// poller and letting the first terminal signal win.
type Orchestrator struct {
	gateway  paymentInitializer
	fetcher  StatusFetcher
	channel  realtimeSubscriber
	registry *provider.Registry
	opener   RedirectOpener
	cfg      Config
	log      logrus.FieldLogger

	mu          sync.Mutex
	session     *entity.PaymentSession
	resolved    bool
	pollStarted bool
	unsubscribe func()
	poller      *StatusPoller
	delayTimer  *time.Timer
	watchStop   chan struct{}
	handle      RedirectHandle
}

func NewOrchestrator(
	gateway paymentInitializer,
	fetcher StatusFetcher,
	channel realtimeSubscriber,
	registry *provider.Registry,
	opener RedirectOpener,
	cfg Config,
) *Orchestrator {
	if cfg.PollStartDelay <= 0 {
		cfg.PollStartDelay = DefaultPollStartDelay
	}
	if cfg.SurfaceCheckInterval <= 0 {
		cfg.SurfaceCheckInterval = DefaultSurfaceCheckInterval
	}
	log := cfg.Logger
	if log == nil {
		log = factory.NewModuleLogger("payment-orchestrator")
	}
	return &Orchestrator{
		gateway:  gateway,
		fetcher:  fetcher,
		channel:  channel,
		registry: registry,
		opener:   opener,
		cfg:      cfg,
		log:      log,
	}
}

// StartSession opens the payment flow for a donation. A previous session
// must be discarded with Reset before a new one can start.
func (o *Orchestrator) StartSession(donationID string, amount int64, currency string) (entity.PaymentSession, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session != nil {
		return entity.PaymentSession{}, ErrInvalidState
	}
	now := time.Now().UTC()
	o.session = &entity.PaymentSession{
		ID:         uuid.NewString(),
		DonationID: strings.TrimSpace(donationID),
		Amount:     amount,
		Currency:   strings.ToUpper(strings.TrimSpace(currency)),
		State:      entity.StateSelectingProvider,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return *o.session, nil
}

// Session returns a copy of the current session for display.
func (o *Orchestrator) Session() (entity.PaymentSession, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return entity.PaymentSession{}, false
	}
	return *o.session, true
}

// SelectProvider chooses a provider, defaults the method to the provider's
// first supported one and recomputes the fee breakdown. Local mutation
// only, no side effects.
func (o *Orchestrator) SelectProvider(providerKey string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return ErrNoSession
	}
	if o.session.State != entity.StateSelectingProvider {
		return ErrInvalidState
	}

	profile, err := o.registry.Get(providerKey)
	if err != nil {
		return err
	}
	o.session.Provider = profile.Key
	o.session.Method = profile.DefaultMethod()
	o.session.Fees = o.registry.ComputeFees(o.session.Amount, profile.Key, o.session.Currency)
	o.session.UpdatedAt = time.Now().UTC()
	return nil
}

func (o *Orchestrator) SelectMethod(method string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return ErrNoSession
	}
	if o.session.State != entity.StateSelectingProvider {
		return ErrInvalidState
	}
	if o.session.Provider == "" {
		return ErrProviderRequired
	}
	profile, err := o.registry.Get(o.session.Provider)
	if err != nil {
		return err
	}
	if !profile.SupportsMethod(method) {
		return ErrMethodUnsupported
	}
	o.session.Method = method
	o.session.UpdatedAt = time.Now().UTC()
	return nil
}

func (o *Orchestrator) SetContact(phone string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return ErrNoSession
	}
	if o.session.State != entity.StateSelectingProvider {
		return ErrInvalidState
	}
	o.session.Phone = strings.TrimSpace(phone)
	o.session.UpdatedAt = time.Now().UTC()
	return nil
}

// Initialize validates the session, issues the initialization request and,
// on success, moves the session to AwaitingConfirmation with both
// confirmation paths armed. A failed initialization or a blocked redirect
// page returns the session to SelectingProvider.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	o.mu.Lock()
	if o.session == nil {
		o.mu.Unlock()
		return ErrNoSession
	}
	if o.session.State != entity.StateSelectingProvider {
		o.mu.Unlock()
		return ErrInvalidState
	}
	if verr := o.validateLocked(); verr != nil {
		o.mu.Unlock()
		return verr
	}

	o.session.State = entity.StateInitializing
	o.session.UpdatedAt = time.Now().UTC()
	req := &types.InitializePaymentRequest{
		RequestID:  uuid.NewString(),
		DonationID: o.session.DonationID,
		Amount:     o.session.Amount,
		Currency:   o.session.Currency,
		Provider:   o.session.Provider,
		Method:     o.session.Method,
		Phone:      o.session.Phone,
	}
	o.mu.Unlock()

	resp, err := o.gateway.InitializePayment(ctx, req)

	o.mu.Lock()
	if o.session == nil || o.session.State != entity.StateInitializing {
		// Torn down while the request was in flight.
		o.mu.Unlock()
		return nil
	}
	if err != nil {
		o.session.State = entity.StateSelectingProvider
		o.session.UpdatedAt = time.Now().UTC()
		o.mu.Unlock()
		o.log.WithError(err).Warn("Payment initialization failed")
		return fmt.Errorf("%w: %v", ErrInitializationFail, err)
	}

	o.session.PaymentID = resp.PaymentID
	o.session.TransactionID = resp.TransactionID
	o.session.RedirectURL = resp.RedirectURL
	o.session.State = entity.StateAwaitingConfirmation
	o.session.UpdatedAt = time.Now().UTC()
	topic := resp.TransactionID
	o.mu.Unlock()

	unsubscribe := o.channel.Subscribe(topic, o.handleRealtime)

	o.mu.Lock()
	o.unsubscribe = unsubscribe
	alreadyResolved := o.resolved
	o.mu.Unlock()
	if alreadyResolved {
		unsubscribe()
		return nil
	}

	if resp.RedirectURL != "" {
		return o.openRedirect(resp.RedirectURL, topic)
	}

	o.mu.Lock()
	o.delayTimer = time.AfterFunc(o.cfg.PollStartDelay, o.startPoller)
	o.mu.Unlock()
	return nil
}

// openRedirect opens the hosted payment page and watches it for closure.
// A blocked page is an initialization-class error: the user never had a
// chance to pay, so the session returns to SelectingProvider instead of
// silently falling through to polling.
func (o *Orchestrator) openRedirect(redirectURL, topic string) error {
	handle, err := o.opener.Open(redirectURL)
	if err != nil {
		o.mu.Lock()
		unsubscribe := o.unsubscribe
		o.unsubscribe = nil
		if o.session != nil && !o.resolved {
			o.session.State = entity.StateSelectingProvider
			o.session.UpdatedAt = time.Now().UTC()
		}
		o.mu.Unlock()
		if unsubscribe != nil {
			unsubscribe()
		}
		return fmt.Errorf("%w: %v", ErrRedirectBlocked, err)
	}

	stop := make(chan struct{})
	o.mu.Lock()
	o.handle = handle
	o.watchStop = stop
	o.mu.Unlock()

	go o.watchSurface(handle, stop)
	return nil
}

func (o *Orchestrator) watchSurface(handle RedirectHandle, stop chan struct{}) {
	ticker := time.NewTicker(o.cfg.SurfaceCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if handle.Closed() {
				o.log.Debug("Payment page closed, starting status polling")
				o.startPoller()
				return
			}
		}
	}
}

func (o *Orchestrator) handleRealtime(msg types.InboundMessage) {
	switch msg.Type {
	case types.MessageTypePaymentCompleted:
		o.resolve(entity.ResultSucceeded)
	case types.MessageTypePaymentFailed:
		o.resolve(entity.ResultFailed)
	default:
		o.log.WithField("type", msg.Type).Debug("Ignoring non-terminal realtime event")
	}
}

func (o *Orchestrator) startPoller() {
	o.mu.Lock()
	if o.resolved || o.pollStarted || o.session == nil || o.session.State != entity.StateAwaitingConfirmation {
		o.mu.Unlock()
		return
	}
	o.pollStarted = true
	poller := NewStatusPoller(o.fetcher, PollerConfig{
		MaxAttempts:   o.cfg.PollMaxAttempts,
		Interval:      o.cfg.PollInterval,
		ErrorInterval: o.cfg.PollErrorInterval,
		Logger:        o.log,
	})
	o.poller = poller
	paymentID := o.session.PaymentID
	if paymentID == "" {
		paymentID = o.session.TransactionID
	}
	o.mu.Unlock()

	poller.Poll(paymentID, func(status string) {
		o.resolve(resultFromStatus(status))
	})
}

// resolve drives the session into its final result. It is the
// single-assignment slot both confirmation paths write to: the first
// caller wins and the second is a no-op.
func (o *Orchestrator) resolve(result entity.PaymentResult) {
	o.mu.Lock()
	if o.resolved || o.session == nil {
		o.mu.Unlock()
		return
	}
	o.resolved = true
	o.session.Result = result
	switch result {
	case entity.ResultSucceeded:
		o.session.State = entity.StateSucceeded
	case entity.ResultFailed:
		o.session.State = entity.StateFailed
	}
	o.session.UpdatedAt = time.Now().UTC()
	snapshot := *o.session
	teardown := o.teardownLocked()
	o.mu.Unlock()

	teardown()
	o.log.WithFields(logrus.Fields{
		"session_id": snapshot.ID,
		"result":     string(result),
	}).Info("Payment session resolved")
	if o.cfg.OnResolved != nil {
		o.cfg.OnResolved(snapshot)
	}
}

// Reset discards the session. Valid once the session is terminal, still in
// provider selection, or resolved as unknown.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	if o.session == nil {
		o.mu.Unlock()
		return nil
	}
	ok := o.session.State.Terminal() ||
		o.session.State == entity.StateSelectingProvider ||
		o.session.Result == entity.ResultUnknown
	if !ok {
		o.mu.Unlock()
		return ErrInvalidState
	}
	teardown := o.teardownLocked()
	o.session = nil
	o.resolved = false
	o.pollStarted = false
	o.mu.Unlock()

	teardown()
	return nil
}

// Close abandons the flow from any state, releasing the subscription, the
// poller and the surface watcher. Safe mid-Initializing, before anything
// was registered.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	teardown := o.teardownLocked()
	o.session = nil
	o.resolved = false
	o.pollStarted = false
	o.mu.Unlock()

	teardown()
}

// teardownLocked collects every cleanup action under the lock and returns
// a closure that runs them outside it.
func (o *Orchestrator) teardownLocked() func() {
	unsubscribe := o.unsubscribe
	poller := o.poller
	timer := o.delayTimer
	stop := o.watchStop
	handle := o.handle
	o.unsubscribe = nil
	o.poller = nil
	o.delayTimer = nil
	o.watchStop = nil
	o.handle = nil

	return func() {
		if timer != nil {
			timer.Stop()
		}
		if stop != nil {
			close(stop)
		}
		if handle != nil {
			handle.Close()
		}
		if poller != nil {
			poller.Cancel()
		}
		if unsubscribe != nil {
			unsubscribe()
		}
	}
}

func (o *Orchestrator) validateLocked() *ValidationError {
	fields := map[string]string{}
	if o.session.DonationID == "" {
		fields["donation_id"] = "donation reference is required"
	}
	if o.session.Amount <= 0 {
		fields["amount"] = "amount must be positive"
	}
	if o.session.Currency == "" {
		fields["currency"] = "currency is required"
	}
	if o.session.Provider == "" {
		fields["provider"] = "a payment provider must be selected"
	}
	if o.session.Method == "" {
		fields["method"] = "a payment method must be selected"
	}

	if o.session.Provider != "" {
		if profile, err := o.registry.Get(o.session.Provider); err == nil && profile.RequiresPhone {
			switch {
			case o.session.Phone == "":
				fields["phone"] = "a phone number is required for this provider"
			case !types.ValidPhone(o.session.Phone):
				fields["phone"] = "phone number format is invalid"
			}
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func resultFromStatus(status string) entity.PaymentResult {
	switch status {
	case types.StatusCompleted:
		return entity.ResultSucceeded
	case types.StatusFailed, types.StatusCancelled, types.StatusRefunded:
		return entity.ResultFailed
	default:
		return entity.ResultUnknown
	}
}
