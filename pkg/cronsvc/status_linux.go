//go:build linux

package cronsvc

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/coreos/go-systemd/v22/dbus"
)

// Status queries systemd over D-Bus for each unit. When the system bus is
// unreachable (containers, minimal hosts) it falls back to
// "systemctl is-active".
func Status(ctx context.Context, units []string) ([]UnitStatus, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	conn, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return statusViaSystemctl(ctx, units, fmt.Errorf("failed to connect to systemd: %w", err))
	}
	defer conn.Close()

	out := make([]UnitStatus, 0, len(units))
	for _, u := range units {
		name := unitName(u)
		props, err := conn.GetUnitPropertiesContext(ctx, name)
		if err != nil {
			if isNoSuchUnitErr(err) {
				out = append(out, notFound(name))
				continue
			}
			return out, fmt.Errorf("failed to get status for %s: %w", name, err)
		}
		out = append(out, statusFromProps(name, props))
	}
	return out, nil
}

func statusViaSystemctl(ctx context.Context, units []string, cause error) ([]UnitStatus, error) {
	if _, err := exec.LookPath("systemctl"); err != nil {
		return nil, cause
	}
	out := make([]UnitStatus, 0, len(units))
	for _, u := range units {
		name := unitName(u)
		// is-active exits non-zero when inactive; the state word is still printed.
		b, _ := exec.CommandContext(ctx, "systemctl", "is-active", name).CombinedOutput()
		state := strings.TrimSpace(string(b))
		switch state {
		case "":
			out = append(out, notFound(name))
		default:
			out = append(out, UnitStatus{Name: name, Active: state, LoadState: "loaded"})
		}
	}
	return out, nil
}
