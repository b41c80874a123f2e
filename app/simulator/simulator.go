package simulator

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/devrick225/partenairemagb-payments/app/factory"
	"github.com/devrick225/partenairemagb-payments/app/types"
)

type Config struct {
	// CompleteAfter flips initialized payments to completed and pushes a
	// payment_completed event. Zero disables automatic completion.
	CompleteAfter time.Duration
	// WithRedirect includes a hosted-page URL in initialize responses.
	WithRedirect bool
	RedirectBase string
}

type payment struct {
	paymentID     string
	transactionID string
	donationID    string
	provider      string
	amount        int64
	currency      string
	status        string
}

// Simulator is a local stand-in for the payment gateway: the REST
// collaborators, the realtime push endpoint and the server-push event
// stream. It backs the `simulate` command and the e2e tests.
type Simulator struct {
	cfg Config
	e   *echo.Echo
	log logrus.FieldLogger

	upgrader websocket.Upgrader

	mu          sync.Mutex
	payments    map[string]*payment
	byTx        map[string]*payment
	subscribers map[string][]*websocket.Conn
	streams     map[chan types.StreamEvent]struct{}
	timers      []*time.Timer
}

func New(cfg Config) *Simulator {
	if cfg.RedirectBase == "" {
		cfg.RedirectBase = "https://pay.simulator.local"
	}

	s := &Simulator{
		cfg:         cfg,
		log:         factory.NewModuleLogger("gateway-simulator"),
		payments:    map[string]*payment{},
		byTx:        map[string]*payment{},
		subscribers: map[string][]*websocket.Conn{},
		streams:     map[chan types.StreamEvent]struct{}{},
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomiddleware.Recover())

	e.POST("/payments/initialize", s.handleInitialize)
	e.POST("/payments/:id/verify", s.handleVerify)
	e.GET("/payments/:id/status", s.handleStatus)
	e.GET("/payments/events", s.handleEvents)
	e.GET("/payments", s.handleWebsocket)

	s.e = e
	return s
}

// Handler exposes the simulator as an http.Handler for tests.
func (s *Simulator) Handler() http.Handler {
	return s.e
}

func (s *Simulator) Start(addr string) error {
	s.log.WithField("addr", addr).Info("Starting gateway simulator")
	return s.e.Start(addr)
}

func (s *Simulator) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for _, timer := range s.timers {
		timer.Stop()
	}
	s.timers = nil
	s.mu.Unlock()
	return s.e.Shutdown(ctx)
}

func (s *Simulator) handleInitialize(ctx echo.Context) error {
	var req types.InitializePaymentRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "invalid request body"})
	}
	if req.DonationID == "" {
		return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "donation_id is required"})
	}
	if req.Amount <= 0 {
		return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "amount must be positive"})
	}

	p := &payment{
		paymentID:     "pay_" + uuid.NewString(),
		transactionID: "tx_" + uuid.NewString(),
		donationID:    req.DonationID,
		provider:      req.Provider,
		amount:        req.Amount,
		currency:      req.Currency,
		status:        types.StatusPending,
	}

	s.mu.Lock()
	s.payments[p.paymentID] = p
	s.byTx[p.transactionID] = p
	if s.cfg.CompleteAfter > 0 {
		paymentID := p.paymentID
		s.timers = append(s.timers, time.AfterFunc(s.cfg.CompleteAfter, func() {
			s.Complete(paymentID)
		}))
	}
	s.mu.Unlock()

	factory.LoggerWithContext(s.log, ctx).WithFields(logrus.Fields{
		"payment_id": p.paymentID,
		"provider":   p.provider,
		"amount":     p.amount,
	}).Info("Payment initialized")

	resp := &types.InitializePaymentResponse{
		PaymentID:     p.paymentID,
		TransactionID: p.transactionID,
	}
	if s.cfg.WithRedirect {
		resp.RedirectURL = s.cfg.RedirectBase + "/" + p.transactionID
	}
	return ctx.JSON(http.StatusCreated, resp)
}

func (s *Simulator) handleVerify(ctx echo.Context) error {
	id := ctx.Param("id")
	s.mu.Lock()
	p, ok := s.byTx[id]
	if !ok {
		p, ok = s.payments[id]
	}
	var resp types.VerifyPaymentResponse
	if ok {
		resp = types.VerifyPaymentResponse{TransactionID: p.transactionID, Status: p.status}
	}
	s.mu.Unlock()

	if !ok {
		return ctx.JSON(http.StatusNotFound, &types.ErrorResponse{Error: "payment not found"})
	}
	return ctx.JSON(http.StatusOK, &resp)
}

func (s *Simulator) handleStatus(ctx echo.Context) error {
	id := ctx.Param("id")
	s.mu.Lock()
	p, ok := s.payments[id]
	if !ok {
		p, ok = s.byTx[id]
	}
	var resp types.PaymentStatusResponse
	if ok {
		resp = types.PaymentStatusResponse{PaymentID: p.paymentID, Status: p.status}
	}
	s.mu.Unlock()

	if !ok {
		return ctx.JSON(http.StatusNotFound, &types.ErrorResponse{Error: "payment not found"})
	}
	return ctx.JSON(http.StatusOK, &resp)
}

func (s *Simulator) handleWebsocket(ctx echo.Context) error {
	conn, err := s.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return nil
	}

	userID := ctx.QueryParam("userId")
	s.log.WithField("user_id", userID).Info("Realtime client connected")

	go func() {
		defer func() {
			s.removeConn(conn)
			_ = conn.Close()
		}()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg types.ControlMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				s.log.WithError(err).Warn("Ignoring malformed control message")
				continue
			}
			switch msg.Type {
			case types.MessageTypeSubscribe:
				s.addSubscriber(msg.Channel, conn)
			case types.MessageTypeUnsubscribe:
				s.removeSubscriber(msg.Channel, conn)
			}
		}
	}()
	return nil
}

func (s *Simulator) handleEvents(ctx echo.Context) error {
	ctx.Response().Header().Set(echo.HeaderContentType, "application/x-ndjson")
	ctx.Response().WriteHeader(http.StatusOK)
	ctx.Response().Flush()

	events := make(chan types.StreamEvent, 16)
	s.mu.Lock()
	s.streams[events] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.streams, events)
		s.mu.Unlock()
	}()

	enc := json.NewEncoder(ctx.Response())
	for {
		select {
		case <-ctx.Request().Context().Done():
			return nil
		case event := <-events:
			if err := enc.Encode(&event); err != nil {
				return nil
			}
			ctx.Response().Flush()
		}
	}
}

// Complete flips a payment to completed and notifies every delivery path.
func (s *Simulator) Complete(paymentID string) {
	s.finish(paymentID, types.StatusCompleted, types.MessageTypePaymentCompleted)
}

// Fail flips a payment to failed and notifies every delivery path.
func (s *Simulator) Fail(paymentID string) {
	s.finish(paymentID, types.StatusFailed, types.MessageTypePaymentFailed)
}

func (s *Simulator) finish(paymentID, status, msgType string) {
	s.mu.Lock()
	p, ok := s.payments[paymentID]
	if !ok || types.TerminalStatus(p.status) {
		s.mu.Unlock()
		return
	}
	p.status = status

	msg := &types.InboundMessage{
		Type:       msgType,
		PaymentID:  p.transactionID,
		DonationID: p.donationID,
	}
	conns := append([]*websocket.Conn(nil), s.subscribers[p.transactionID]...)

	event := types.StreamEvent{
		Type: types.MessageTypePaymentStatusUpdate,
		Payment: types.StreamPayment{
			ID:            p.paymentID,
			TransactionID: p.transactionID,
			DonationID:    p.donationID,
			Status:        status,
			Amount:        p.amount,
			Currency:      p.currency,
		},
	}
	for stream := range s.streams {
		select {
		case stream <- event:
		default:
		}
	}
	s.mu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(msg); err != nil {
			s.log.WithError(err).Warn("Realtime push failed")
		}
	}

	s.log.WithFields(logrus.Fields{"payment_id": paymentID, "status": status}).Info("Payment finished")
}

func (s *Simulator) addSubscriber(channel string, conn *websocket.Conn) {
	if channel == "" {
		return
	}
	s.mu.Lock()
	s.subscribers[channel] = append(s.subscribers[channel], conn)
	s.mu.Unlock()
}

func (s *Simulator) removeSubscriber(channel string, conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conns := s.subscribers[channel]
	for i, c := range conns {
		if c == conn {
			s.subscribers[channel] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(s.subscribers[channel]) == 0 {
		delete(s.subscribers, channel)
	}
}

func (s *Simulator) removeConn(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for channel, conns := range s.subscribers {
		for i, c := range conns {
			if c == conn {
				s.subscribers[channel] = append(conns[:i], conns[i+1:]...)
				break
			}
		}
		if len(s.subscribers[channel]) == 0 {
			delete(s.subscribers, channel)
		}
	}
}
