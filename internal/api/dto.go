package api

import "github.com/example/attend/internal/ports/primary"

// APIResponse represents the standard API response structure.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   any    `json:"error,omitempty"`
}

// ErrorDetail represents error details in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// ListStatusLogsRequest holds the query of GET /status-logs.
type ListStatusLogsRequest struct {
	Limit int    `query:"limit" validate:"gte=0,lte=1000"`
	State string `query:"state" validate:"omitempty,oneof=PENDING SENT FAILED"`
}

// AttemptResponse is the outcome of an out-of-band attempt.
type AttemptResponse struct {
	RecordID      int64  `json:"record_id,omitempty"`
	Trigger       string `json:"trigger"`
	Phase         string `json:"phase"`
	SyncState     string `json:"sync_state,omitempty"`
	LocationError string `json:"location_error,omitempty"`
	Error         string `json:"error,omitempty"`
}

func toAttemptResponse(r *primary.AttemptResult) AttemptResponse {
	resp := AttemptResponse{
		RecordID:      r.RecordID,
		Trigger:       r.Trigger,
		Phase:         r.Phase,
		SyncState:     r.SyncState,
		LocationError: r.LocationError,
	}
	if r.Err != nil {
		resp.Error = r.Err.Error()
	}
	return resp
}
