package entity

import "time"

type PaymentState string

const (
	StateSelectingProvider    PaymentState = "selecting_provider"
	StateInitializing         PaymentState = "initializing"
	StateAwaitingConfirmation PaymentState = "awaiting_confirmation"
	StateSucceeded            PaymentState = "succeeded"
	StateFailed               PaymentState = "failed"
)

func (s PaymentState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

type PaymentResult string

const (
	ResultNone      PaymentResult = ""
	ResultSucceeded PaymentResult = "succeeded"
	ResultFailed    PaymentResult = "failed"
	ResultUnknown   PaymentResult = "unknown"
)

// FeeBreakdown is the computed fee structure for one payment attempt.
// Amounts are in the currency's minor unit.
type FeeBreakdown struct {
	PercentageFee  int64   `json:"percentage_fee"`
	FixedFee       int64   `json:"fixed_fee"`
	TotalFee       int64   `json:"total_fee"`
	AmountWithFees int64   `json:"amount_with_fees"`
	FeePercentage  float64 `json:"fee_percentage"`
}

// PaymentSession is the unit of work for one payment attempt. It is created
// when the payment flow opens for a donation, mutated only by the
// orchestrator, and discarded when the flow closes or completes.
type PaymentSession struct {
	ID         string
	DonationID string

	Amount   int64
	Currency string

	Provider string
	Method   string
	Phone    string

	Fees FeeBreakdown

	State  PaymentState
	Result PaymentResult

	PaymentID     string
	TransactionID string
	RedirectURL   string

	CreatedAt time.Time
	UpdatedAt time.Time
}
