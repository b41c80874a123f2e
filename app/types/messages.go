package types

import "encoding/json"

// Outbound control messages sent over the realtime channel.
const (
	MessageTypeSubscribe   = "subscribe"
	MessageTypeUnsubscribe = "unsubscribe"
)

// Inbound message types recognized by the realtime router. Unrecognized
// types are logged and ignored.
const (
	MessageTypePaymentStatusUpdate = "payment_status_update"
	MessageTypePaymentCompleted    = "payment_completed"
	MessageTypePaymentFailed       = "payment_failed"
	MessageTypeDonationCreated     = "donation_created"
	MessageTypeWebhookReceived     = "webhook_received"
)

type ControlMessage struct {
	Type      string `json:"type"`
	Channel   string `json:"channel"`
	UserID    string `json:"userId,omitempty"`
	PaymentID string `json:"paymentId,omitempty"`
}

type InboundMessage struct {
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	PaymentID  string          `json:"paymentId,omitempty"`
	DonationID string          `json:"donationId,omitempty"`
}

// Topic returns the channel key the message belongs to, or "" when the
// message is not scoped to a subscription.
func (m *InboundMessage) Topic() string {
	if m.PaymentID != "" {
		return m.PaymentID
	}
	return m.DonationID
}
