package simulator

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/devrick225/partenairemagb-payments/app/types"
)

func newTestServer(t *testing.T, cfg Config) (*Simulator, *httptest.Server) {
	t.Helper()
	sim := New(cfg)
	server := httptest.NewServer(sim.Handler())
	t.Cleanup(server.Close)
	return sim, server
}

func initialize(t *testing.T, server *httptest.Server, req *types.InitializePaymentRequest) (*http.Response, *types.InitializePaymentResponse) {
	t.Helper()
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	resp, err := http.Post(server.URL+"/payments/initialize", "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("initialize request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var out types.InitializePaymentResponse
	if resp.StatusCode == http.StatusCreated {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
	}
	return resp, &out
}

func TestInitializeAssignsIdentifiers(t *testing.T) {
	_, server := newTestServer(t, Config{})

	resp, out := initialize(t, server, &types.InitializePaymentRequest{
		DonationID: "donation-1",
		Amount:     25000,
		Currency:   "XOF",
		Provider:   "moneyfusion",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if out.PaymentID == "" || out.TransactionID == "" {
		t.Fatalf("expected identifiers, got %+v", out)
	}
	if out.RedirectURL != "" {
		t.Fatalf("expected no redirect url, got %q", out.RedirectURL)
	}
}

func TestInitializeWithRedirectReturnsHostedPage(t *testing.T) {
	_, server := newTestServer(t, Config{WithRedirect: true})

	resp, out := initialize(t, server, &types.InitializePaymentRequest{
		DonationID: "donation-1",
		Amount:     1000,
		Currency:   "USD",
		Provider:   "stripe",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if out.RedirectURL == "" {
		t.Fatal("expected a redirect url")
	}
}

func TestInitializeRejectsInvalidRequests(t *testing.T) {
	_, server := newTestServer(t, Config{})

	tests := []struct {
		name string
		req  *types.InitializePaymentRequest
	}{
		{"missing donation", &types.InitializePaymentRequest{Amount: 1000, Currency: "XOF"}},
		{"non-positive amount", &types.InitializePaymentRequest{DonationID: "donation-1", Amount: 0}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := initialize(t, server, tc.req)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestStatusReflectsCompletion(t *testing.T) {
	sim, server := newTestServer(t, Config{})

	_, out := initialize(t, server, &types.InitializePaymentRequest{
		DonationID: "donation-1",
		Amount:     25000,
		Currency:   "XOF",
		Provider:   "moneyfusion",
	})

	fetchStatus := func() string {
		resp, err := http.Get(server.URL + "/payments/" + out.PaymentID + "/status")
		if err != nil {
			t.Fatalf("status request failed: %v", err)
		}
		defer resp.Body.Close()
		var status types.PaymentStatusResponse
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		return status.Status
	}

	if got := fetchStatus(); got != types.StatusPending {
		t.Fatalf("expected pending, got %q", got)
	}

	sim.Complete(out.PaymentID)
	if got := fetchStatus(); got != types.StatusCompleted {
		t.Fatalf("expected completed, got %q", got)
	}

	// Terminal payments do not flip again.
	sim.Fail(out.PaymentID)
	if got := fetchStatus(); got != types.StatusCompleted {
		t.Fatalf("expected completed after Fail, got %q", got)
	}
}

func TestVerifyLooksUpByTransactionID(t *testing.T) {
	sim, server := newTestServer(t, Config{})

	_, out := initialize(t, server, &types.InitializePaymentRequest{
		DonationID: "donation-1",
		Amount:     25000,
		Currency:   "XOF",
		Provider:   "moneyfusion",
	})
	sim.Fail(out.PaymentID)

	resp, err := http.Post(server.URL+"/payments/"+out.TransactionID+"/verify", "application/json", nil)
	if err != nil {
		t.Fatalf("verify request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var verified types.VerifyPaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&verified); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if verified.Status != types.StatusFailed {
		t.Fatalf("expected failed, got %q", verified.Status)
	}

	resp2, err := http.Post(server.URL+"/payments/tx_missing/verify", "application/json", nil)
	if err != nil {
		t.Fatalf("verify request failed: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp2.StatusCode)
	}
}
