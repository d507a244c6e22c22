package statuslog

import (
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the ISO-8601 UTC layout used for observation instants.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// unknownNetworkIdentifiers are platform sentinels that mean "no SSID".
var unknownNetworkIdentifiers = map[string]bool{
	"<unknown ssid>": true,
	"unknown":        true,
	"0x":             true,
	"off/any":        true,
}

// NormalizeNetworkIdentifier strips surrounding quotes and whitespace and maps
// unknown sentinels to the empty string.
func NormalizeNetworkIdentifier(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = s[1 : len(s)-1]
	}
	if unknownNetworkIdentifiers[strings.ToLower(s)] {
		return ""
	}
	return s
}

// FormatCoordinate renders a coordinate as a plain decimal string.
func FormatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatTimestamp renders t as an ISO-8601 UTC instant.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Observation is everything gathered for one attempt.
type Observation struct {
	DeviceID     string
	NetworkID    string
	HasFix       bool
	Latitude     float64
	Longitude    float64
	ObservedAt   time.Time
	SubjectPhone string
}

// Draft is a record ready to be inserted as PENDING.
type Draft struct {
	DeviceID     string
	NetworkID    string
	Latitude     string
	Longitude    string
	Timestamp    string
	SubjectPhone string
	SyncState    SyncState
}

// NewDraft builds the PENDING record for an observation. Without a location
// fix the coordinates are left empty rather than defaulted to 0,0.
func NewDraft(obs Observation) Draft {
	d := Draft{
		DeviceID:     obs.DeviceID,
		NetworkID:    NormalizeNetworkIdentifier(obs.NetworkID),
		Timestamp:    FormatTimestamp(obs.ObservedAt),
		SubjectPhone: strings.TrimSpace(obs.SubjectPhone),
		SyncState:    SyncPending,
	}
	if obs.HasFix {
		d.Latitude = FormatCoordinate(obs.Latitude)
		d.Longitude = FormatCoordinate(obs.Longitude)
	}
	return d
}
