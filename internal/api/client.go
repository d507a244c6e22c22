package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gitlab.com/tozd/go/errors"

	"github.com/example/attend/internal/ports/primary"
)

// ErrDaemonUnavailable is returned when no daemon answers on the control address.
var ErrDaemonUnavailable = errors.Base("attend daemon is not running")

// Client calls the control API of a running daemon.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the daemon listening on addr (host:port).
func NewClient(addr string) *Client {
	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

// APIError is a non-success response from the daemon.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s (%s): %s", e.Message, e.Code, e.Details)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// IsRegistrationFailure reports whether err is a periodic registration failure.
func IsRegistrationFailure(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == "REGISTRATION_FAILED"
}

// SetEnabled calls POST /tracking/enable or /tracking/disable.
func (c *Client) SetEnabled(ctx context.Context, on bool) (*primary.TrackingStatus, error) {
	path := "/api/v1/tracking/disable"
	if on {
		path = "/api/v1/tracking/enable"
	}
	var status primary.TrackingStatus
	if err := c.do(ctx, http.MethodPost, path, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Status calls GET /tracking.
func (c *Client) Status(ctx context.Context) (*primary.TrackingStatus, error) {
	var status primary.TrackingStatus
	if err := c.do(ctx, http.MethodGet, "/api/v1/tracking", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Attempt calls POST /status-logs/attempt.
func (c *Client) Attempt(ctx context.Context) (*AttemptResponse, error) {
	var resp AttemptResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/status-logs/attempt", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/v1/health", nil)
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Errorf("%w: %w", ErrDaemonUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Errorf("failed to read response: %w", err)
	}

	var envelope struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
		Error   struct {
			Code    string `json:"code"`
			Details any    `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return errors.Errorf("invalid response from daemon (http %d): %w", resp.StatusCode, err)
	}

	if !envelope.Success || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Code: envelope.Error.Code, Message: envelope.Message}
		if envelope.Error.Details != nil {
			apiErr.Details = fmt.Sprint(envelope.Error.Details)
		}
		return apiErr
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return errors.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}
