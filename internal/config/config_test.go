package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChuLiYu/questboard/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "questboard.db", cfg.Storage.Path)
	assert.Equal(t, 1, cfg.Calendar.StartDay)
	assert.Zero(t, cfg.Calendar.AutoAdvanceInterval)
	assert.Equal(t, []int{3, 1, 0}, cfg.Notifications.DeadlineThresholds)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  driver: snapshot
  path: board.json
calendar:
  start_day: 40
  auto_advance_interval: 30s
notifications:
  deadline_thresholds: [5, 2]
rewards:
  review_threshold: 25
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverSnapshot, cfg.Storage.Driver)
	assert.Equal(t, "board.json", cfg.Storage.Path)
	assert.Equal(t, 40, cfg.Calendar.StartDay)
	assert.Equal(t, 30*time.Second, cfg.Calendar.AutoAdvanceInterval)
	assert.True(t, cfg.Journal.Enabled, "unset keys keep their defaults")

	b := cfg.Board()
	assert.Equal(t, []int{5, 2}, b.DeadlineThresholds)
	assert.Equal(t, 25, b.ReviewThreshold)
	assert.True(t, b.NotifyOnExpirations)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("QUESTBOARD_STORAGE_DRIVER", "memory")
	t.Setenv("QUESTBOARD_METRICS_ENABLED", "false")
	t.Setenv("QUESTBOARD_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("storage.driver", "postgres")
	v.Set("metrics.port", 0)
	v.Set("notifications.deadline_thresholds", []int{2, -1})

	_, err := LoadWithViper(v)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	var ve *errors.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Fields, 3)
}

func TestBoardKeepsDefaultReviewThreshold(t *testing.T) {
	cfg := &Config{Rewards: RewardsConfig{ReviewThreshold: 0}}
	assert.Equal(t, 10, cfg.Board().ReviewThreshold)
}
