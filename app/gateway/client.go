package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devrick225/partenairemagb-payments/app/factory"
	"github.com/devrick225/partenairemagb-payments/app/types"
)

type Config struct {
	BaseURL     string
	AuthToken   string
	HTTPTimeout time.Duration
}

// Client consumes the payment REST collaborators: initialize-payment,
// verify-payment and fetch-payment-status, plus the server-push event
// stream.
type Client struct {
	cfg    Config
	client *http.Client
	log    logrus.FieldLogger
}

func NewClient(cfg Config) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		log:    factory.NewModuleLogger("gateway-client"),
	}
}

func (c *Client) InitializePayment(ctx context.Context, req *types.InitializePaymentRequest) (*types.InitializePaymentResponse, error) {
	var out types.InitializePaymentResponse
	if err := c.post(ctx, "/payments/initialize", req, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.TransactionID) == "" {
		return nil, fmt.Errorf("initialize payment: missing transaction id")
	}
	return &out, nil
}

func (c *Client) VerifyPayment(ctx context.Context, transactionID string) (*types.VerifyPaymentResponse, error) {
	var out types.VerifyPaymentResponse
	path := "/payments/" + url.PathEscape(transactionID) + "/verify"
	if err := c.post(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchPaymentStatus is the poller's status-fetch call.
func (c *Client) FetchPaymentStatus(ctx context.Context, paymentID string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/payments/"+url.PathEscape(paymentID)+"/status", nil)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch payment status failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out types.PaymentStatusResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr types.ErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", path, apiErr.Error)
		}
		return fmt.Errorf("%s failed: status=%d body=%s", path, resp.StatusCode, string(data))
	}

	return json.Unmarshal(data, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AuthToken)
	}
	return req, nil
}
