// Package api provides the local control API of the attend daemon.
package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the control API server.
type Server struct {
	app *fiber.App
}

// NewServer creates the fiber app and registers all routes. registry may be
// nil, in which case /metrics is not served.
func NewServer(h *Handler, registry *prometheus.Registry) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "attend",
		ErrorHandler: errorHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute, // POST /status-logs/attempt waits for a full attempt
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})
	app.Use(recover.New())

	api := app.Group("/api/v1")
	api.Get("/health", h.Health)

	tracking := api.Group("/tracking")
	tracking.Get("/", h.Status)
	tracking.Post("/enable", h.Enable)
	tracking.Post("/disable", h.Disable)

	logs := api.Group("/status-logs")
	logs.Get("/", h.ListStatusLogs)
	logs.Post("/attempt", h.Attempt)

	if registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	return &Server{app: app}
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Serve listens on addr until ctx is done.
func (s *Server) Serve(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.app.ShutdownWithContext(shutdownCtx)
	}
}

func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(APIResponse{
		Success: false,
		Message: err.Error(),
		Error:   ErrorDetail{Code: "INTERNAL_ERROR"},
	})
}
