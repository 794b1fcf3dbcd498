// Package api calls the DealSpot backend REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// maxErrorBody bounds how much of an error response is read for the message.
const maxErrorBody = 4 << 10

// HTTPError is a non-2xx response from the backend.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
}

func statusOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool { return statusOf(err) == http.StatusNotFound }

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool { return statusOf(err) == http.StatusUnauthorized }

// IsForbidden reports whether err is a 403 from the backend.
func IsForbidden(err error) bool { return statusOf(err) == http.StatusForbidden }

// IsConflict reports whether err is a 409 from the backend.
func IsConflict(err error) bool { return statusOf(err) == http.StatusConflict }

// Message returns the backend's error message, or "" for other errors.
func Message(err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Message
	}
	return ""
}

// transient reports whether a GET should be retried after err.
func transient(err error) bool {
	code := statusOf(err)
	if code == 0 {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return code == http.StatusTooManyRequests || code >= 500
}

// Client is a backend API client. Tokens are passed per call.
type Client struct {
	client   *http.Client
	logger   *slog.Logger
	baseURL  string
	attempts uint
}

// New creates a client for baseURL (for example "https://api.dealspot.app").
func New(client *http.Client, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		client:   client,
		logger:   logger,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		attempts: 3,
	}
}

// get performs an idempotent GET, retrying transient failures.
func (c *Client) get(ctx context.Context, path, token string, out any) error {
	var lastErr error
	err := retry.Do(
		func() error {
			lastErr = c.do(ctx, http.MethodGet, path, token, nil, out)
			return lastErr
		},
		retry.Attempts(c.attempts),
		retry.Delay(200*time.Millisecond),
		retry.MaxDelay(2*time.Second),
		retry.MaxJitter(100*time.Millisecond),
		retry.Context(ctx),
		retry.RetryIf(transient),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Info("Retrying API request after error", "path", path, "attempt", n, "error", err)
		}),
	)
	if err != nil {
		// Report the final attempt's error so callers can inspect *HTTPError.
		if lastErr != nil {
			return lastErr
		}
		return err
	}
	return nil
}

// send performs a mutation exactly once.
func (c *Client) send(ctx context.Context, method, path, token string, body, out any) error {
	return c.do(ctx, method, path, token, body, out)
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reqBody io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.Warn("API request failed",
			"method", method,
			"path", path,
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	c.logger.Debug("API request completed",
		"method", method,
		"path", path,
		"status_code", resp.StatusCode,
		"duration_ms", duration.Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.Body),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// errorMessage extracts {"message": ...} or {"error": ...} from an error body.
func errorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
		return ""
	}
	return strings.TrimSpace(string(data))
}
