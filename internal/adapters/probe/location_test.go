package probe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/attend/internal/ports/secondary"
)

type scriptedSource struct {
	fixes []secondary.LocationFix
	err   error
	done  chan struct{}
}

func (s *scriptedSource) Stream(ctx context.Context, fixes chan<- secondary.LocationFix) error {
	defer close(s.done)
	for _, f := range s.fixes {
		select {
		case fixes <- f:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestOneShotLocator(t *testing.T) {
	now := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)

	t.Run("first fresh fix is delivered and subscription closed", func(t *testing.T) {
		src := &scriptedSource{
			fixes: []secondary.LocationFix{
				{Latitude: 1, Longitude: 1, At: now.Add(-time.Minute)},
				{Latitude: 35.7, Longitude: 51.4, At: now.Add(-time.Second)},
				{Latitude: 2, Longitude: 2, At: now},
			},
			done: make(chan struct{}),
		}
		l := NewOneShotLocator(src, 5*time.Second, time.Second)
		l.now = func() time.Time { return now }

		fix, err := l.CurrentLocationFix(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fix.Latitude != 35.7 || fix.Longitude != 51.4 {
			t.Errorf("fix = %+v", fix)
		}

		select {
		case <-src.done:
		case <-time.After(time.Second):
			t.Error("source still streaming after first fix")
		}
	})

	t.Run("permission error propagates", func(t *testing.T) {
		l := NewOneShotLocator(DeniedSource{Reason: "not granted"}, 5*time.Second, time.Second)
		_, err := l.CurrentLocationFix(context.Background())

		var perr *secondary.PermissionError
		if !errors.As(err, &perr) {
			t.Fatalf("expected PermissionError, got %v", err)
		}
	})

	t.Run("times out without a fix", func(t *testing.T) {
		src := &scriptedSource{done: make(chan struct{})}
		l := NewOneShotLocator(src, 5*time.Second, 20*time.Millisecond)
		_, err := l.CurrentLocationFix(context.Background())
		if err == nil {
			t.Fatal("expected timeout error")
		}
	})

	t.Run("static source", func(t *testing.T) {
		l := NewOneShotLocator(StaticSource{Latitude: 35.6892, Longitude: 51.389}, 5*time.Second, time.Second)
		fix, err := l.CurrentLocationFix(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fix.Latitude != 35.6892 {
			t.Errorf("Latitude = %v", fix.Latitude)
		}
	})
}

func TestHTTPSource(t *testing.T) {
	t.Run("polls until a fix is served", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"latitude":35.7,"longitude":51.4,"accuracy":12}`))
		}))
		defer srv.Close()

		l := NewOneShotLocator(NewHTTPSource(srv.URL, 10*time.Millisecond), 5*time.Second, time.Second)
		fix, err := l.CurrentLocationFix(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fix.Longitude != 51.4 || fix.Accuracy != 12 {
			t.Errorf("fix = %+v", fix)
		}
	})

	t.Run("forbidden is a permission error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		l := NewOneShotLocator(NewHTTPSource(srv.URL, 10*time.Millisecond), 5*time.Second, time.Second)
		_, err := l.CurrentLocationFix(context.Background())

		var perr *secondary.PermissionError
		if !errors.As(err, &perr) {
			t.Fatalf("expected PermissionError, got %v", err)
		}
	})
}
