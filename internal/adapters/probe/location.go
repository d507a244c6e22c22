package probe

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/example/attend/internal/ports/secondary"
)

// FixSource streams location fixes into fixes until ctx is done or the
// source fails. A *secondary.PermissionError means access is denied.
type FixSource interface {
	Stream(ctx context.Context, fixes chan<- secondary.LocationFix) error
}

// OneShotLocator turns a FixSource into a single-delivery location request.
type OneShotLocator struct {
	source  FixSource
	maxAge  time.Duration
	timeout time.Duration
	now     func() time.Time
}

// NewOneShotLocator creates a locator that accepts fixes no older than maxAge
// and gives up after timeout.
func NewOneShotLocator(source FixSource, maxAge, timeout time.Duration) *OneShotLocator {
	return &OneShotLocator{source: source, maxAge: maxAge, timeout: timeout, now: time.Now}
}

// CurrentLocationFix subscribes to the source, returns the first fresh fix
// and closes the subscription.
func (l *OneShotLocator) CurrentLocationFix(ctx context.Context) (*secondary.LocationFix, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	fixes := make(chan secondary.LocationFix, 1)
	done := make(chan error, 1)
	go func() {
		done <- l.source.Stream(ctx, fixes)
	}()

	for {
		select {
		case fix := <-fixes:
			if accepted, ok := l.accept(ctx, fix); ok {
				return accepted, nil
			}
		case err := <-done:
			// A source may deliver its fix and return in the same instant.
			for len(fixes) > 0 {
				if accepted, ok := l.accept(ctx, <-fixes); ok {
					return accepted, nil
				}
			}
			var perr *secondary.PermissionError
			if errors.As(err, &perr) {
				return nil, perr
			}
			if err == nil || ctx.Err() != nil {
				return nil, errors.Errorf("no location fix within %s", l.timeout)
			}
			return nil, errors.Errorf("failed to get location fix: %w", err)
		case <-ctx.Done():
			return nil, errors.Errorf("no location fix within %s", l.timeout)
		}
	}
}

func (l *OneShotLocator) accept(ctx context.Context, fix secondary.LocationFix) (*secondary.LocationFix, bool) {
	if fix.At.IsZero() {
		fix.At = l.now()
	}
	if l.maxAge > 0 && l.now().Sub(fix.At) > l.maxAge {
		zerolog.Ctx(ctx).Debug().Time("at", fix.At).Msg("discarding stale location fix")
		return nil, false
	}
	return &fix, true
}

// StaticSource reports a fixed configured position.
type StaticSource struct {
	Latitude  float64
	Longitude float64
}

func (s StaticSource) Stream(ctx context.Context, fixes chan<- secondary.LocationFix) error {
	select {
	case fixes <- secondary.LocationFix{Latitude: s.Latitude, Longitude: s.Longitude, At: time.Now()}:
	case <-ctx.Done():
		return ctx.Err()
	}
	<-ctx.Done()
	return ctx.Err()
}

// DeniedSource models a device where location access was never granted.
type DeniedSource struct {
	Reason string
}

func (s DeniedSource) Stream(ctx context.Context, fixes chan<- secondary.LocationFix) error {
	return &secondary.PermissionError{Reason: s.Reason}
}

// HTTPSource polls a local location daemon (for example a gpsd bridge) that
// serves the current position as JSON.
type HTTPSource struct {
	url      string
	client   *http.Client
	interval time.Duration
}

type httpFix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

// NewHTTPSource creates a polling source for url.
func NewHTTPSource(url string, interval time.Duration) *HTTPSource {
	if interval <= 0 {
		interval = time.Second
	}
	return &HTTPSource{
		url:      url,
		client:   &http.Client{Timeout: 10 * time.Second},
		interval: interval,
	}
}

func (s *HTTPSource) Stream(ctx context.Context, fixes chan<- secondary.LocationFix) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		fix, err := s.fetch(ctx)
		var perr *secondary.PermissionError
		switch {
		case errors.As(err, &perr):
			return perr
		case err != nil:
			zerolog.Ctx(ctx).Debug().Err(err).Str("url", s.url).Msg("location poll failed")
		case fix != nil:
			select {
			case fixes <- *fix:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *HTTPSource) fetch(ctx context.Context) (*secondary.LocationFix, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &secondary.PermissionError{Reason: resp.Status}
	case resp.StatusCode == http.StatusNoContent:
		return nil, nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, errors.Errorf("location source http status: %d", resp.StatusCode)
	}

	var body httpFix
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, errors.Errorf("failed to decode location fix: %w", err)
	}
	return &secondary.LocationFix{
		Latitude:  body.Latitude,
		Longitude: body.Longitude,
		Accuracy:  body.Accuracy,
		At:        body.Timestamp,
	}, nil
}

var _ secondary.LocationProvider = (*OneShotLocator)(nil)
