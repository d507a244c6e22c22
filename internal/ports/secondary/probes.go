package secondary

import (
	"context"
	"fmt"
	"time"
)

// NetworkProbe reads the current network identifier (SSID).
type NetworkProbe interface {
	// CurrentNetworkIdentifier returns "" when not associated or unreadable.
	CurrentNetworkIdentifier(ctx context.Context) string
}

// DeviceProbe reads the stable per-install device identifier.
type DeviceProbe interface {
	// CurrentDeviceIdentifier never fails; it falls back to a fixed constant.
	CurrentDeviceIdentifier(ctx context.Context) string
}

// LocationProvider produces a single location fix.
type LocationProvider interface {
	// CurrentLocationFix returns the first fix received and stops listening.
	// Returns a *PermissionError when location access is denied.
	CurrentLocationFix(ctx context.Context) (*LocationFix, error)
}

// LocationFix is one position reading.
type LocationFix struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64 // meters, 0 if unknown
	At        time.Time
}

// PermissionError reports that location access is not permitted.
type PermissionError struct {
	Reason string
}

func (e *PermissionError) Error() string {
	if e.Reason == "" {
		return "location permission denied"
	}
	return fmt.Sprintf("location permission denied: %s", e.Reason)
}
