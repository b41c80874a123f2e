package types

import (
	"regexp"
	"strings"
)

// Gateway payment statuses. The first four are terminal; StatusUnknown is
// what the poller reports when it exhausts its attempts without one.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
	StatusRefunded  = "refunded"
	StatusUnknown   = "unknown"
)

func TerminalStatus(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusRefunded:
		return true
	default:
		return false
	}
}

type InitializePaymentRequest struct {
	RequestID  string `json:"request_id"`
	DonationID string `json:"donation_id"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	Provider   string `json:"provider"`
	Method     string `json:"method"`
	Phone      string `json:"phone,omitempty"`
}

type InitializePaymentResponse struct {
	PaymentID     string `json:"paymentId"`
	TransactionID string `json:"transactionId"`
	RedirectURL   string `json:"redirectUrl,omitempty"`
}

type VerifyPaymentResponse struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
}

type PaymentStatusResponse struct {
	PaymentID string `json:"paymentId"`
	Status    string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// StreamEvent is one line of the server-push fallback stream.
type StreamEvent struct {
	Type    string        `json:"type"`
	Payment StreamPayment `json:"payment"`
}

type StreamPayment struct {
	ID            string `json:"id"`
	TransactionID string `json:"transactionId,omitempty"`
	DonationID    string `json:"donationId,omitempty"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount,omitempty"`
	Currency      string `json:"currency,omitempty"`
}

// 8-10 digit national number with an optional 1-3 digit country prefix.
var phonePattern = regexp.MustCompile(`^(\+[0-9]{1,3})?[0-9]{8,10}$`)

func ValidPhone(phone string) bool {
	normalized := strings.NewReplacer(" ", "", "-", "", ".", "").Replace(strings.TrimSpace(phone))
	return phonePattern.MatchString(normalized)
}
