package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/devrick225/partenairemagb-payments/app/types"
)

// StreamPaymentEvents consumes the server-push fallback stream: one JSON
// event per line. Malformed lines are logged and skipped. The call blocks
// until the stream ends or ctx is cancelled; a clean end returns nil.
func (c *Client) StreamPaymentEvents(ctx context.Context, onEvent func(event types.StreamEvent)) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/payments/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/x-ndjson")

	// The stream outlives the regular request timeout.
	client := &http.Client{Transport: c.client.Transport}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("event stream failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var event types.StreamEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			c.log.WithError(err).Warn("Skipping malformed stream event")
			continue
		}
		onEvent(event)
	}
	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}
