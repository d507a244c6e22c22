package secondary

import "context"

// Settings keys. Values are flat strings; booleans are "true"/"false".
const (
	SettingTrackingEnabled = "tracking_enabled"
	SettingSelectedDate    = "selected_date"
	SettingSubjectPhone    = "subject_phone"
	SettingSessionToken    = "session_token"
	SettingLastSyncedAt    = "last_synced_at"
)

// SettingsStore defines the secondary port for the durable key-value settings.
// Missing keys read as the zero value, not an error.
type SettingsStore interface {
	GetString(ctx context.Context, key string) (string, error)
	SetString(ctx context.Context, key, value string) error
	GetBool(ctx context.Context, key string) (bool, error)
	SetBool(ctx context.Context, key string, value bool) error
}

// SessionClaims extracts identity hints from a stored session token.
type SessionClaims interface {
	// SubjectPhone returns the phone claim of token, or "" if it carries none.
	SubjectPhone(token string) (string, error)
}
