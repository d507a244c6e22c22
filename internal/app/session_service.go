package app

import (
	"context"
	"strings"
	"time"

	"gitlab.com/tozd/go/errors"

	"github.com/example/attend/internal/ports/primary"
	"github.com/example/attend/internal/ports/secondary"
)

const selectedDateLayout = "2006-01-02"

// SessionServiceImpl implements the SessionService interface.
type SessionServiceImpl struct {
	settings secondary.SettingsStore
}

// NewSessionService creates a new SessionService with injected dependencies.
func NewSessionService(settings secondary.SettingsStore) *SessionServiceImpl {
	return &SessionServiceImpl{settings: settings}
}

// SetSession writes the non-empty fields of req. Last write wins.
func (s *SessionServiceImpl) SetSession(ctx context.Context, req primary.SetSessionRequest) error {
	if req.SelectedDate != "" {
		if _, err := time.Parse(selectedDateLayout, req.SelectedDate); err != nil {
			return errors.Errorf("invalid selected date %q, expected YYYY-MM-DD", req.SelectedDate)
		}
	}

	values := []struct{ key, value string }{
		{secondary.SettingSubjectPhone, strings.TrimSpace(req.SubjectPhone)},
		{secondary.SettingSessionToken, strings.TrimSpace(req.Token)},
		{secondary.SettingSelectedDate, req.SelectedDate},
	}
	for _, v := range values {
		if v.value == "" {
			continue
		}
		if err := s.settings.SetString(ctx, v.key, v.value); err != nil {
			return errors.Errorf("failed to save session: %w", err)
		}
	}
	return nil
}

// GetSession reads the cached session values.
func (s *SessionServiceImpl) GetSession(ctx context.Context) (*primary.Session, error) {
	phone, err := s.settings.GetString(ctx, secondary.SettingSubjectPhone)
	if err != nil {
		return nil, errors.Errorf("failed to read session: %w", err)
	}
	date, err := s.settings.GetString(ctx, secondary.SettingSelectedDate)
	if err != nil {
		return nil, errors.Errorf("failed to read session: %w", err)
	}
	token, err := s.settings.GetString(ctx, secondary.SettingSessionToken)
	if err != nil {
		return nil, errors.Errorf("failed to read session: %w", err)
	}
	return &primary.Session{SubjectPhone: phone, SelectedDate: date, HasToken: token != ""}, nil
}

// Ensure SessionServiceImpl implements the interface
var _ primary.SessionService = (*SessionServiceImpl)(nil)
