package probe

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/attend/internal/ports/secondary"
)

// FallbackDeviceID is reported when no identifier can be read or created.
const FallbackDeviceID = "unknown-device"

// DeviceProbe returns a stable per-install identifier. The identifier is a
// random UUID created on first use and kept in idFile; a configured override
// takes precedence.
type DeviceProbe struct {
	override string
	idFile   string
	newID    func() string

	mu     sync.Mutex
	cached string
}

// NewDeviceProbe creates a device probe.
func NewDeviceProbe(override, idFile string) *DeviceProbe {
	return &DeviceProbe{override: override, idFile: idFile, newID: uuid.NewString}
}

// CurrentDeviceIdentifier never fails; unreadable identity yields FallbackDeviceID.
func (p *DeviceProbe) CurrentDeviceIdentifier(ctx context.Context) string {
	if p.override != "" {
		return p.override
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != "" {
		return p.cached
	}

	id, err := p.load()
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("file", p.idFile).Msg("device identifier unavailable")
		return FallbackDeviceID
	}
	p.cached = id
	return id
}

func (p *DeviceProbe) load() (string, error) {
	data, err := os.ReadFile(p.idFile)
	if err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}

	id := p.newID()
	if err := os.MkdirAll(filepath.Dir(p.idFile), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(p.idFile, []byte(id+"\n"), 0o600); err != nil {
		return "", err
	}
	return id, nil
}

var _ secondary.DeviceProbe = (*DeviceProbe)(nil)
