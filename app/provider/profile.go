package provider

import "errors"

var ErrProviderNotSupported = errors.New("provider is not supported")

// Payment methods offered across providers.
const (
	MethodMobileMoney = "mobile_money"
	MethodCard        = "card"
	MethodWallet      = "wallet"
	MethodBank        = "bank_transfer"
)

// FeeSchedule is the static fee structure of a provider: a percentage rate
// plus an optional fixed component that varies by currency (minor units).
type FeeSchedule struct {
	Rate  float64
	Fixed map[string]int64
}

// Profile is read-only per-provider metadata. Profiles are supplied at
// registry construction and never mutated.
type Profile struct {
	Key           string
	DisplayName   string
	Methods       []string
	RequiresPhone bool
	Fees          FeeSchedule
}

// DefaultMethod returns the provider's first supported method.
func (p Profile) DefaultMethod() string {
	if len(p.Methods) == 0 {
		return ""
	}
	return p.Methods[0]
}

func (p Profile) SupportsMethod(method string) bool {
	for _, m := range p.Methods {
		if m == method {
			return true
		}
	}
	return false
}

type Registry struct {
	profiles map[string]Profile
	order    []string
}

func NewRegistry(profiles ...Profile) *Registry {
	items := make(map[string]Profile, len(profiles))
	order := make([]string, 0, len(profiles))
	for _, p := range profiles {
		if _, ok := items[p.Key]; !ok {
			order = append(order, p.Key)
		}
		items[p.Key] = p
	}
	return &Registry{profiles: items, order: order}
}

func (r *Registry) Get(key string) (Profile, error) {
	profile, ok := r.profiles[key]
	if !ok {
		return Profile{}, ErrProviderNotSupported
	}
	return profile, nil
}

// List returns profiles in registration order.
func (r *Registry) List() []Profile {
	items := make([]Profile, 0, len(r.order))
	for _, key := range r.order {
		items = append(items, r.profiles[key])
	}
	return items
}

// DefaultRegistry holds the providers the donation console offers.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Profile{
			Key:           "moneyfusion",
			DisplayName:   "MoneyFusion",
			Methods:       []string{MethodMobileMoney, MethodWallet},
			RequiresPhone: true,
			Fees:          FeeSchedule{Rate: 1.5},
		},
		Profile{
			Key:           "fusionpay",
			DisplayName:   "FusionPay",
			Methods:       []string{MethodMobileMoney, MethodCard},
			RequiresPhone: true,
			Fees:          FeeSchedule{Rate: 2.0},
		},
		Profile{
			Key:           "cinetpay",
			DisplayName:   "CinetPay",
			Methods:       []string{MethodMobileMoney, MethodCard, MethodWallet},
			RequiresPhone: true,
			Fees:          FeeSchedule{Rate: 2.5, Fixed: map[string]int64{"XOF": 100}},
		},
		Profile{
			Key:         "stripe",
			DisplayName: "Stripe",
			Methods:     []string{MethodCard},
			Fees:        FeeSchedule{Rate: 2.9, Fixed: map[string]int64{"USD": 30, "EUR": 25, "XOF": 150}},
		},
		Profile{
			Key:         "paypal",
			DisplayName: "PayPal",
			Methods:     []string{MethodWallet, MethodCard},
			Fees:        FeeSchedule{Rate: 3.4, Fixed: map[string]int64{"USD": 30, "EUR": 35}},
		},
	)
}
