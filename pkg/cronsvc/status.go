// Package cronsvc reports whether the cron daemon is running.
package cronsvc

import (
	"errors"
	"strings"
	"time"
)

var ErrUnsupported = errors.New("cronsvc: unsupported OS (linux only)")

// UnitStatus is the systemd state of one cron daemon unit.
type UnitStatus struct {
	Name          string
	Active        string
	SubState      string
	LoadState     string
	Description   string
	ActiveSince   time.Time // ActiveEnterTimestamp
	InactiveSince time.Time // InactiveEnterTimestamp
}

// Running reports whether the unit is loaded and active.
func (s UnitStatus) Running() bool { return s.Active == "active" }

// Missing reports whether systemd does not know the unit.
func (s UnitStatus) Missing() bool { return s.LoadState == "not-found" }

// AnyRunning reports whether at least one unit is active. Distros name the
// daemon differently (cron, crond, cronie), so "doctor" checks several.
func AnyRunning(st []UnitStatus) bool {
	for _, s := range st {
		if s.Running() {
			return true
		}
	}
	return false
}

func unitName(name string) string {
	name = strings.TrimSpace(name)
	if strings.Contains(name, ".") {
		return name
	}
	return name + ".service"
}

func notFound(name string) UnitStatus {
	return UnitStatus{Name: name, Active: "unknown", SubState: "not-found", LoadState: "not-found"}
}

// unitProps is the property map returned by GetUnitPropertiesContext.
type unitProps map[string]interface{}

func (p unitProps) str(key string) string {
	v, _ := p[key].(string)
	return v
}

// micros reads a systemd timestamp (microseconds since the epoch); zero
// means never.
func (p unitProps) micros(key string) time.Time {
	v, ok := p[key].(uint64)
	if !ok || v == 0 {
		return time.Time{}
	}
	return time.UnixMicro(int64(v))
}

func statusFromProps(name string, props map[string]interface{}) UnitStatus {
	p := unitProps(props)
	if p.str("LoadState") == "not-found" {
		return notFound(name)
	}
	return UnitStatus{
		Name:          name,
		Active:        p.str("ActiveState"),
		SubState:      p.str("SubState"),
		LoadState:     p.str("LoadState"),
		Description:   p.str("Description"),
		ActiveSince:   p.micros("ActiveEnterTimestamp"),
		InactiveSince: p.micros("InactiveEnterTimestamp"),
	}
}

// isNoSuchUnitErr matches org.freedesktop.systemd1.NoSuchUnit.
func isNoSuchUnitErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "NoSuchUnit")
}
