package alert

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"
)

const (
	deliverTimeout = 5 * time.Second
	maxAttempts    = 3
)

// retryBase is the first retry delay; every further attempt doubles it.
// Variable so tests can shrink it.
var retryBase = 500 * time.Millisecond

// deliver posts one masked event to one destination, retrying server-side
// failures with exponential backoff. A 4xx is a destination configuration
// problem and is not retried.
func (d *Dispatcher) deliver(cfg Config, event Event) error {
	body, err := FormatPayload(cfg.Format, event)
	if err != nil {
		return fmt.Errorf("alert: format %s payload: %w", cfg.Format, err)
	}

	var lastErr error
	delay := retryBase
	for attempt := 1; ; attempt++ {
		status, err := d.post(cfg, body)
		switch {
		case err != nil:
			lastErr = err
		case status < 300:
			return nil
		case status < 500:
			return fmt.Errorf("alert: destination rejected %s event: HTTP %d", event.Stage, status)
		default:
			lastErr = fmt.Errorf("HTTP %d", status)
		}

		if attempt == maxAttempts {
			return fmt.Errorf("alert: delivery failed after %d attempts: %w", attempt, lastErr)
		}
		time.Sleep(delay)
		delay *= 2
	}
}

func (d *Dispatcher) post(cfg Config, body []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
