// Package delivery sends status-log payloads to the attendance backend.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/example/attend/internal/ports/secondary"
	"github.com/example/attend/internal/version"
)

// StatusLogPath is the backend endpoint receiving status logs.
const StatusLogPath = "/api/v1/attendance/status-log"

// HTTPClient implements secondary.DeliveryClient over HTTPS JSON.
// The bearer token is read from the settings store on every send so that a
// new session takes effect without a restart.
type HTTPClient struct {
	baseURL  string
	client   *http.Client
	settings secondary.SettingsStore
}

// NewHTTPClient creates a delivery client for baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration, settings secondary.SettingsStore) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		settings: settings,
	}
}

// SendStatus posts payload. Any 2xx response is success; the body is not read.
func (c *HTTPClient) SendStatus(ctx context.Context, payload *secondary.StatusPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &secondary.DeliveryError{Kind: secondary.DeliveryNetwork, Err: errors.Errorf("failed to encode payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+StatusLogPath, bytes.NewReader(body))
	if err != nil {
		return &secondary.DeliveryError{Kind: secondary.DeliveryNetwork, Err: err}
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if token := c.token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &secondary.DeliveryError{Kind: secondary.DeliveryNetwork, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &secondary.DeliveryError{Kind: secondary.DeliveryHTTP, StatusCode: resp.StatusCode}
	}
	return nil
}

// Reachable reports whether the backend answers at all.
func (c *HTTPClient) Reachable(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL, nil)
	if err != nil {
		return errors.Errorf("invalid backend url: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Errorf("backend unreachable: %w", err)
	}
	resp.Body.Close()
	return nil
}

func (c *HTTPClient) token(ctx context.Context) string {
	if c.settings == nil {
		return ""
	}
	token, err := c.settings.GetString(ctx, secondary.SettingSessionToken)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to read session token, sending without authorization")
		return ""
	}
	return token
}

var _ secondary.DeliveryClient = (*HTTPClient)(nil)
