package cronsvc

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUnitName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "cron.service", unitName("cron"))
	assert.Equal(t, "crond.service", unitName(" crond.service "))
	assert.Equal(t, "cron.timer", unitName("cron.timer"))
}

func TestStatusFromProps(t *testing.T) {
	t.Parallel()
	st := statusFromProps("cron.service", map[string]interface{}{
		"LoadState":            "loaded",
		"ActiveState":          "active",
		"SubState":             "running",
		"Description":          "Regular background program processing daemon",
		"ActiveEnterTimestamp": uint64(1_700_000_000_000_000),
	})
	assert.True(t, st.Running())
	assert.False(t, st.Missing())
	assert.Equal(t, "running", st.SubState)
	assert.Equal(t, time.Unix(1_700_000_000, 0), st.ActiveSince)
	assert.True(t, st.InactiveSince.IsZero())

	missing := statusFromProps("crond.service", map[string]interface{}{"LoadState": "not-found"})
	assert.True(t, missing.Missing())
	assert.False(t, missing.Running())

	assert.True(t, AnyRunning([]UnitStatus{missing, st}))
	assert.False(t, AnyRunning([]UnitStatus{missing}))
}

func TestNoSuchUnit(t *testing.T) {
	t.Parallel()
	assert.True(t, isNoSuchUnitErr(errors.New("org.freedesktop.systemd1.NoSuchUnit: Unit cronie.service not found.")))
	assert.False(t, isNoSuchUnitErr(errors.New("connection refused")))
	assert.False(t, isNoSuchUnitErr(nil))
}
