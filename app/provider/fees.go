package provider

import (
	"math"

	"github.com/devrick225/partenairemagb-payments/app/entity"
)

// defaultFeeRate applies when a provider key is unknown; the fee display
// must never block a payment attempt.
const defaultFeeRate = 2.5

// ComputeFees computes the fee breakdown for an amount in the currency's
// minor unit. Same inputs always produce the same output.
func (r *Registry) ComputeFees(amount int64, providerKey, currency string) entity.FeeBreakdown {
	rate := defaultFeeRate
	var fixed int64

	if profile, err := r.Get(providerKey); err == nil {
		rate = profile.Fees.Rate
		fixed = profile.Fees.Fixed[currency]
	}

	percentageFee := int64(math.Round(float64(amount) * rate / 100))
	totalFee := percentageFee + fixed

	return entity.FeeBreakdown{
		PercentageFee:  percentageFee,
		FixedFee:       fixed,
		TotalFee:       totalFee,
		AmountWithFees: amount + totalFee,
		FeePercentage:  rate,
	}
}
