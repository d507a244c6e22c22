package api

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/example/attend/internal/ctxutil"
	"github.com/example/attend/internal/ports/primary"
	"github.com/example/attend/internal/version"
)

// Handler serves the control API.
type Handler struct {
	tracking   primary.TrackingService
	statusLogs primary.StatusLogService
	validator  *validator.Validate
	logger     zerolog.Logger
}

// NewHandler creates a control API handler.
func NewHandler(tracking primary.TrackingService, statusLogs primary.StatusLogService, logger zerolog.Logger) *Handler {
	return &Handler{
		tracking:   tracking,
		statusLogs: statusLogs,
		validator:  validator.New(),
		logger:     logger,
	}
}

func (h *Handler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(APIResponse{
		Success: false,
		Message: message,
		Error: ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *Handler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Enable turns background status logging on.
func (h *Handler) Enable(c fiber.Ctx) error {
	return h.setEnabled(c, true)
}

// Disable turns background status logging off.
func (h *Handler) Disable(c fiber.Ctx) error {
	return h.setEnabled(c, false)
}

func (h *Handler) setEnabled(c fiber.Ctx, on bool) error {
	ctx := h.logger.WithContext(c.Context())
	if err := h.tracking.SetEnabled(ctx, on); err != nil {
		if errors.Is(err, primary.ErrRegistration) {
			return h.ErrorResponse(c, fiber.StatusServiceUnavailable, "Periodic trigger registration failed", "REGISTRATION_FAILED", err.Error())
		}
		h.logger.Error().Err(err).Bool("enabled", on).Msg("failed to set tracking state")
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update tracking", "TRACKING_UPDATE_FAILED", err.Error())
	}

	status, err := h.tracking.Status(ctx)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read tracking status", "STATUS_FAILED", err.Error())
	}
	message := "Background logging disabled"
	if on {
		message = "Background logging enabled"
	}
	return h.SuccessResponse(c, fiber.StatusOK, message, status)
}

// Status reports the toggle, trigger and outbox state.
func (h *Handler) Status(c fiber.Ctx) error {
	status, err := h.tracking.Status(h.logger.WithContext(c.Context()))
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read tracking status", "STATUS_FAILED", err.Error())
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Tracking status", status)
}

// ListStatusLogs lists outbox records newest first.
func (h *Handler) ListStatusLogs(c fiber.Ctx) error {
	var req ListStatusLogsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", err.Error())
	}
	if req.Limit == 0 {
		req.Limit = 50
	}

	logs, err := h.statusLogs.ListStatusLogs(h.logger.WithContext(c.Context()), primary.StatusLogFilters{
		SyncState: req.State,
		Limit:     req.Limit,
	})
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list status logs", "LIST_FAILED", err.Error())
	}
	if logs == nil {
		logs = []*primary.StatusLog{}
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Status logs", logs)
}

// Attempt runs one out-of-band status-log attempt and reports its outcome.
func (h *Handler) Attempt(c fiber.Ctx) error {
	ctx := ctxutil.WithTrigger(h.logger.WithContext(c.Context()), ctxutil.TriggerManual)
	result := h.statusLogs.RunAttempt(ctx)
	return h.SuccessResponse(c, fiber.StatusOK, "Attempt finished", toAttemptResponse(result))
}

// Health reports that the daemon is up.
func (h *Handler) Health(c fiber.Ctx) error {
	return h.SuccessResponse(c, fiber.StatusOK, "ok", fiber.Map{"version": version.String()})
}
