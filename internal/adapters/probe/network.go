package probe

import (
	"context"
	"runtime"
	"strings"

	"github.com/rs/zerolog"

	"github.com/example/attend/internal/core/statuslog"
	"github.com/example/attend/internal/ports/secondary"
)

// NetworkProbe reads the SSID of the current Wi-Fi association using the
// platform's command line tools.
type NetworkProbe struct {
	iface string
	goos  string
	run   CommandRunner
}

// NewNetworkProbe creates a probe for iface ("" picks the platform default).
func NewNetworkProbe(iface string) *NetworkProbe {
	return &NetworkProbe{iface: iface, goos: runtime.GOOS, run: execRunner}
}

// CurrentNetworkIdentifier returns the SSID, or "" when not associated or
// when no tool could read it.
func (p *NetworkProbe) CurrentNetworkIdentifier(ctx context.Context) string {
	var readers []func(context.Context) (string, error)
	switch p.goos {
	case "linux":
		readers = append(readers, p.iwgetid, p.nmcli)
	case "darwin":
		readers = append(readers, p.networksetup)
	case "windows":
		readers = append(readers, p.netsh)
	}

	for _, read := range readers {
		raw, err := read(ctx)
		if err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Msg("ssid reader unavailable")
			continue
		}
		if ssid := statuslog.NormalizeNetworkIdentifier(raw); ssid != "" {
			return ssid
		}
	}
	return ""
}

func (p *NetworkProbe) iwgetid(ctx context.Context) (string, error) {
	args := []string{"-r"}
	if p.iface != "" {
		args = append(args, p.iface)
	}
	out, err := p.run(ctx, "iwgetid", args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// nmcli prints "yes:<ssid>" for the active connection.
func (p *NetworkProbe) nmcli(ctx context.Context) (string, error) {
	out, err := p.run(ctx, "nmcli", "-t", "-f", "active,ssid", "dev", "wifi")
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(out), "\n") {
		if ssid, ok := strings.CutPrefix(strings.TrimSpace(line), "yes:"); ok {
			return ssid, nil
		}
	}
	return "", nil
}

func (p *NetworkProbe) networksetup(ctx context.Context) (string, error) {
	iface := p.iface
	if iface == "" {
		iface = "en0"
	}
	out, err := p.run(ctx, "networksetup", "-getairportnetwork", iface)
	if err != nil {
		return "", err
	}
	_, ssid, ok := strings.Cut(strings.TrimSpace(string(out)), "Current Wi-Fi Network:")
	if !ok {
		return "", nil
	}
	return strings.TrimSpace(ssid), nil
}

func (p *NetworkProbe) netsh(ctx context.Context) (string, error) {
	out, err := p.run(ctx, "netsh", "wlan", "show", "interfaces")
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(out), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if strings.TrimSpace(key) == "SSID" {
			return strings.TrimSpace(value), nil
		}
	}
	return "", nil
}

var _ secondary.NetworkProbe = (*NetworkProbe)(nil)
