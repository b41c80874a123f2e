package realtime

import (
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/devrick225/partenairemagb-payments/app/factory"
	"github.com/devrick225/partenairemagb-payments/app/types"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

const (
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectDelay       = 3 * time.Second
)

// Handler receives every inbound message whose topic matches the
// subscription.
type Handler = func(msg types.InboundMessage)

// StatusFunc reports connection state changes. A permanent failure is
// delivered as StateDisconnected after the reconnect budget is spent; the
// caller decides how to present "realtime updates unavailable".
type StatusFunc func(state State)

type Config struct {
	// BaseURL is the realtime endpoint, http(s) or ws(s) scheme.
	BaseURL   string
	AuthToken string

	MaxReconnectAttempts int
	ReconnectDelay       time.Duration

	OnStatus StatusFunc
	// OnEvent observes every routed message regardless of topic.
	OnEvent func(msg types.InboundMessage)

	Logger logrus.FieldLogger
}

// Channel owns one persistent duplex connection per signed-in user and
// multiplexes topic subscriptions on it. Subscriptions survive reconnects:
// after every successful open the channel re-sends a subscribe message for
// each registered topic.
type Channel struct {
	cfg Config
	log logrus.FieldLogger

	mu       sync.Mutex
	state    State
	conn     *websocket.Conn
	userID   string
	handlers map[string]Handler
	order    []string
	attempts int
	closed   bool
	timer    *time.Timer
	gen      uint64
}

func NewChannel(cfg Config) *Channel {
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	log := cfg.Logger
	if log == nil {
		log = factory.NewModuleLogger("realtime-channel")
	}
	return &Channel{
		cfg:      cfg,
		log:      log,
		state:    StateDisconnected,
		handlers: map[string]Handler{},
	}
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Open establishes the connection for userID. It is a no-op while a
// connection for the same user is connecting or connected.
func (c *Channel) Open(userID string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.state != StateDisconnected && c.userID == userID {
		c.mu.Unlock()
		return
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.userID = userID
	c.attempts = 0
	c.state = StateConnecting
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	c.notifyStatus(StateConnecting)
	go c.dial(gen)
}

func (c *Channel) dial(gen uint64) {
	endpoint, err := c.endpoint()
	if err != nil {
		c.log.WithError(err).Error("Invalid realtime endpoint")
		c.handleFailure(gen, err)
		return
	}

	conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	if err != nil {
		c.log.WithError(err).Warn("Realtime dial failed")
		c.handleFailure(gen, err)
		return
	}

	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.state = StateConnected
	c.attempts = 0
	userID := c.userID
	for _, topic := range c.order {
		c.writeControl(types.MessageTypeSubscribe, topic)
	}
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{"user_id": userID}).Info("Realtime channel connected")
	c.notifyStatus(StateConnected)
	go c.readPump(conn, gen)
}

func (c *Channel) readPump(conn *websocket.Conn, gen uint64) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleFailure(gen, err)
			return
		}
		c.route(data)
	}
}

// handleFailure applies the bounded reconnection policy: increment the
// attempt counter and, while it stays below the maximum, schedule a reopen
// after a fixed delay. Exceeding the maximum is permanent.
func (c *Channel) handleFailure(gen uint64, err error) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.gen++
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.attempts++
	if c.attempts >= c.cfg.MaxReconnectAttempts {
		c.state = StateDisconnected
		attempts := c.attempts
		c.mu.Unlock()
		c.log.WithError(err).WithField("attempts", attempts).Error("Realtime channel gave up reconnecting")
		c.notifyStatus(StateDisconnected)
		return
	}
	c.state = StateConnecting
	next := c.gen
	c.timer = time.AfterFunc(c.cfg.ReconnectDelay, func() {
		c.redial(next)
	})
	attempt := c.attempts
	c.mu.Unlock()

	c.log.WithError(err).WithField("attempt", attempt).Warn("Realtime connection lost, scheduling reconnect")
	c.notifyStatus(StateConnecting)
}

func (c *Channel) redial(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.dial(gen)
}

// Subscribe registers handler for topic and returns the matching
// unsubscribe function. While disconnected the subscribe message is queued
// and flushed, in registration order, on the next successful open.
func (c *Channel) Subscribe(topic string, handler Handler) func() {
	c.mu.Lock()
	if _, ok := c.handlers[topic]; !ok {
		c.order = append(c.order, topic)
	}
	c.handlers[topic] = handler
	if c.state == StateConnected && c.conn != nil {
		c.writeControl(types.MessageTypeSubscribe, topic)
	}
	c.mu.Unlock()

	return func() {
		c.Unsubscribe(topic)
	}
}

// Unsubscribe removes the topic's handler. Unsubscribing an unknown topic
// is a no-op.
func (c *Channel) Unsubscribe(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.handlers[topic]; !ok {
		return
	}
	delete(c.handlers, topic)
	for i, t := range c.order {
		if t == topic {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	if c.state == StateConnected && c.conn != nil {
		c.writeControl(types.MessageTypeUnsubscribe, topic)
	}
}

// Send writes an arbitrary message. Delivery is best effort: when the
// channel is not connected the message is logged and dropped.
func (c *Channel) Send(v interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected || c.conn == nil {
		c.log.Debug("Dropping realtime send while disconnected")
		return
	}
	if err := c.conn.WriteJSON(v); err != nil {
		c.log.WithError(err).Warn("Realtime send failed")
	}
}

// Close tears the connection down, clears all subscriptions and stops any
// pending reconnection.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.handlers = map[string]Handler{}
	c.order = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	c.notifyStatus(StateDisconnected)
}

// writeControl must be called with c.mu held and c.conn non-nil.
func (c *Channel) writeControl(msgType, topic string) {
	msg := types.ControlMessage{Type: msgType, Channel: topic, UserID: c.userID}
	if err := c.conn.WriteJSON(&msg); err != nil {
		c.log.WithError(err).WithField("channel", topic).Warn("Control message send failed")
	}
}

func (c *Channel) route(data []byte) {
	var msg types.InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.log.WithError(err).Warn("Dropping malformed realtime message")
		return
	}

	switch msg.Type {
	case types.MessageTypePaymentStatusUpdate,
		types.MessageTypePaymentCompleted,
		types.MessageTypePaymentFailed,
		types.MessageTypeDonationCreated,
		types.MessageTypeWebhookReceived:
		c.log.WithFields(logrus.Fields{"type": msg.Type, "topic": msg.Topic()}).Debug("Realtime message")
	default:
		c.log.WithField("type", msg.Type).Debug("Ignoring unrecognized realtime message")
	}

	if c.cfg.OnEvent != nil {
		c.cfg.OnEvent(msg)
	}

	topic := msg.Topic()
	if topic == "" {
		return
	}
	c.mu.Lock()
	handler := c.handlers[topic]
	c.mu.Unlock()
	if handler != nil {
		handler(msg)
	}
}

func (c *Channel) notifyStatus(state State) {
	if c.cfg.OnStatus != nil {
		c.cfg.OnStatus(state)
	}
}

func (c *Channel) endpoint() (string, error) {
	c.mu.Lock()
	userID := c.userID
	c.mu.Unlock()

	base := strings.TrimSuffix(c.cfg.BaseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}

	u, err := url.Parse(base + "/payments")
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", c.cfg.AuthToken)
	q.Set("userId", userID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
