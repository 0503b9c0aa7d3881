package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engels74/tgraph-bot-go/internal/log"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	return New(path, log.Nop()), path
}

func TestStore_Load_WritesDefaultWhenMissing(t *testing.T) {
	store, path := newTestStore(t)

	cfg, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Schedule.UpdateDays)

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestStore_SaveThenLoad_RoundTrips(t *testing.T) {
	store, _ := newTestStore(t)
	cfg := Default()
	cfg.Chat.ChannelID = "123456789"
	cfg.Schedule.UpdateDays = 14

	require.NoError(t, store.Save(cfg))

	reloaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "123456789", reloaded.Chat.ChannelID)
	assert.Equal(t, 14, reloaded.Schedule.UpdateDays)
}

func TestStore_View_MasksSecrets(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Load()
	require.NoError(t, err)

	view := store.View()
	assert.Equal(t, maskedPlaceholder, view["analytics.api_key"])
	assert.Equal(t, maskedPlaceholder, view["chat.token"])
	assert.Equal(t, "disabled", view["schedule.fixed_update_time"])
}

func TestStore_EditValue_PersistsAndNotifies(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Load()
	require.NoError(t, err)

	var notified *Config
	store.OnChange(func(c *Config) { notified = c })

	restart, err := store.EditValue("schedule.update_days", "14")
	require.NoError(t, err)
	assert.False(t, restart)
	assert.Equal(t, 14, store.Current().Schedule.UpdateDays)
	require.NotNil(t, notified)
	assert.Equal(t, 14, notified.Schedule.UpdateDays)
}

func TestStore_EditValue_SecretKeyRequiresRestart(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Load()
	require.NoError(t, err)

	restart, err := store.EditValue("chat.token", "new-token")
	require.NoError(t, err)
	assert.True(t, restart)
	assert.Equal(t, "new-token", store.Current().Chat.Token)
}

func TestStore_EditValue_RejectsInvalidValueAndKeepsPreviousDocument(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Load()
	require.NoError(t, err)
	before := store.Current().Graphs.Colors.TV

	_, err = store.EditValue("graphs.colors.tv_color", "not-a-color")
	assert.Error(t, err)
	assert.Equal(t, before, store.Current().Graphs.Colors.TV)
}

func TestStore_EditValue_RejectsUnknownKey(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.Load()
	require.NoError(t, err)

	_, err = store.EditValue("not.a.real.key", "value")
	assert.Error(t, err)
}

func TestIsScheduleAffecting(t *testing.T) {
	assert.True(t, IsScheduleAffecting("schedule.update_days"))
	assert.True(t, IsScheduleAffecting("language"))
	assert.False(t, IsScheduleAffecting("chat.token"))
}
