package primary

import "context"

// SessionService defines the primary port for the cached session values used
// to fill identity gaps in status logs.
type SessionService interface {
	// SetSession writes the non-empty fields of req.
	SetSession(ctx context.Context, req SetSessionRequest) error

	// GetSession reads the cached session values.
	GetSession(ctx context.Context) (*Session, error)
}

// SetSessionRequest contains the session values to store.
type SetSessionRequest struct {
	SubjectPhone string
	Token        string
	SelectedDate string // YYYY-MM-DD
}

// Session is the cached session state. The token itself is never returned.
type Session struct {
	SubjectPhone string `json:"subject_phone"`
	SelectedDate string `json:"selected_date"`
	HasToken     bool   `json:"has_token"`
}
