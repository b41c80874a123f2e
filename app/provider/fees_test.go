package provider

import "testing"

func TestComputeFeesMoneyFusionXOF(t *testing.T) {
	reg := DefaultRegistry()

	fees := reg.ComputeFees(25000, "moneyfusion", "XOF")
	if fees.PercentageFee != 375 {
		t.Fatalf("unexpected percentage fee: %d", fees.PercentageFee)
	}
	if fees.FixedFee != 0 {
		t.Fatalf("unexpected fixed fee: %d", fees.FixedFee)
	}
	if fees.TotalFee != 375 {
		t.Fatalf("unexpected total fee: %d", fees.TotalFee)
	}
	if fees.AmountWithFees != 25375 {
		t.Fatalf("unexpected amount with fees: %d", fees.AmountWithFees)
	}
	if fees.FeePercentage != 1.5 {
		t.Fatalf("unexpected fee percentage: %f", fees.FeePercentage)
	}
}

func TestComputeFeesFixedComponentPerCurrency(t *testing.T) {
	reg := DefaultRegistry()

	usd := reg.ComputeFees(10000, "stripe", "USD")
	if usd.FixedFee != 30 {
		t.Fatalf("unexpected USD fixed fee: %d", usd.FixedFee)
	}

	xof := reg.ComputeFees(10000, "stripe", "XOF")
	if xof.FixedFee != 150 {
		t.Fatalf("unexpected XOF fixed fee: %d", xof.FixedFee)
	}

	none := reg.ComputeFees(10000, "stripe", "GBP")
	if none.FixedFee != 0 {
		t.Fatalf("expected no fixed fee for unlisted currency, got %d", none.FixedFee)
	}
	if none.TotalFee != none.PercentageFee {
		t.Fatalf("total fee should equal percentage fee without a fixed component")
	}
}

func TestComputeFeesUnknownProviderFallsBack(t *testing.T) {
	reg := DefaultRegistry()

	fees := reg.ComputeFees(10000, "does-not-exist", "XOF")
	if fees.FeePercentage != defaultFeeRate {
		t.Fatalf("expected default rate %f, got %f", defaultFeeRate, fees.FeePercentage)
	}
	if fees.PercentageFee != 250 {
		t.Fatalf("unexpected percentage fee: %d", fees.PercentageFee)
	}
	if fees.AmountWithFees != 10250 {
		t.Fatalf("unexpected amount with fees: %d", fees.AmountWithFees)
	}
}

func TestComputeFeesDeterministicAndMonotone(t *testing.T) {
	reg := DefaultRegistry()

	first := reg.ComputeFees(4321, "cinetpay", "XOF")
	second := reg.ComputeFees(4321, "cinetpay", "XOF")
	if first != second {
		t.Fatalf("fee computation is not deterministic: %+v vs %+v", first, second)
	}

	prev := int64(-1)
	for amount := int64(0); amount <= 100000; amount += 777 {
		fees := reg.ComputeFees(amount, "cinetpay", "XOF")
		if fees.TotalFee < prev {
			t.Fatalf("total fee decreased at amount %d: %d < %d", amount, fees.TotalFee, prev)
		}
		prev = fees.TotalFee
	}
}

func TestRegistryGetAndDefaults(t *testing.T) {
	reg := DefaultRegistry()

	profile, err := reg.Get("moneyfusion")
	if err != nil {
		t.Fatalf("expected moneyfusion profile, got %v", err)
	}
	if !profile.RequiresPhone {
		t.Fatal("moneyfusion should require a phone number")
	}
	if profile.DefaultMethod() != MethodMobileMoney {
		t.Fatalf("unexpected default method: %s", profile.DefaultMethod())
	}
	if !profile.SupportsMethod(MethodWallet) {
		t.Fatal("moneyfusion should support wallet")
	}
	if profile.SupportsMethod(MethodBank) {
		t.Fatal("moneyfusion should not support bank transfer")
	}

	if _, err := reg.Get("nope"); err != ErrProviderNotSupported {
		t.Fatalf("expected ErrProviderNotSupported, got %v", err)
	}

	if len(reg.List()) != 5 {
		t.Fatalf("unexpected registry size: %d", len(reg.List()))
	}
}
