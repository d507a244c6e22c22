package statuslog

import (
	"testing"
	"time"
)

func TestNormalizeNetworkIdentifier(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"OfficeWiFi", "OfficeWiFi"},
		{`"OfficeWiFi"`, "OfficeWiFi"},
		{"  Guest 5G \n", "Guest 5G"},
		{"<unknown ssid>", ""},
		{`"<unknown ssid>"`, ""},
		{"UNKNOWN", ""},
		{"0x", ""},
		{"", ""},
		{`"`, `"`},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := NormalizeNetworkIdentifier(tt.raw); got != tt.want {
				t.Errorf("NormalizeNetworkIdentifier(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNewDraft(t *testing.T) {
	observedAt := time.Date(2026, 3, 4, 9, 30, 15, 250_000_000, time.FixedZone("IRST", 3*3600+1800))

	t.Run("with location fix", func(t *testing.T) {
		d := NewDraft(Observation{
			DeviceID:     "dev-1",
			NetworkID:    `"Office"`,
			HasFix:       true,
			Latitude:     35.6892,
			Longitude:    51.389,
			ObservedAt:   observedAt,
			SubjectPhone: " 09120000000 ",
		})

		if d.Latitude != "35.6892" || d.Longitude != "51.389" {
			t.Errorf("coordinates = %q,%q", d.Latitude, d.Longitude)
		}
		if d.Timestamp != "2026-03-04T06:00:15.250Z" {
			t.Errorf("Timestamp = %q", d.Timestamp)
		}
		if d.NetworkID != "Office" {
			t.Errorf("NetworkID = %q", d.NetworkID)
		}
		if d.SubjectPhone != "09120000000" {
			t.Errorf("SubjectPhone = %q", d.SubjectPhone)
		}
		if d.SyncState != SyncPending {
			t.Errorf("SyncState = %q, want PENDING", d.SyncState)
		}
	})

	t.Run("without location fix", func(t *testing.T) {
		d := NewDraft(Observation{DeviceID: "dev-1", ObservedAt: observedAt})
		if d.Latitude != "" || d.Longitude != "" {
			t.Errorf("coordinates = %q,%q, want empty", d.Latitude, d.Longitude)
		}
		if d.SyncState != SyncPending {
			t.Errorf("SyncState = %q, want PENDING", d.SyncState)
		}
	})
}
