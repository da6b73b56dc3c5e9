package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/raidline/internal/config"
)

func TestDefaults(t *testing.T) {
	cfg := config.Defaults()

	require.Equal(t, 60, cfg.Parties.StandardIncubationMinutes)
	require.Equal(t, 45, cfg.Parties.StandardActiveMinutes)
	require.Equal(t, 2880, cfg.Parties.ExclusiveIncubationMinutes)
	require.Equal(t, 45, cfg.Parties.ExclusiveActiveMinutes)
	require.Equal(t, 3, cfg.Parties.TrainLeadtimeDays)
	require.Equal(t, config.DefaultLayouts, cfg.Time.Layouts)
	require.False(t, cfg.Tracing.Enabled)
}

func TestDurations(t *testing.T) {
	d := config.Defaults().Durations()

	require.Equal(t, time.Hour, d.StandardIncubation)
	require.Equal(t, 45*time.Minute, d.StandardActive)
	require.Equal(t, 48*time.Hour, d.ExclusiveIncubation)
	require.Equal(t, 3*24*time.Hour, d.TrainLeadtime)
}

func TestSave_RoundTripsThroughViper(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	want := config.Defaults()
	want.Parties.StandardIncubationMinutes = 90
	want.Store.Path = "/var/lib/raidline/parties.db"
	want.Tracing.Enabled = true

	require.NoError(t, config.Save(path, want))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	var got config.Config
	require.NoError(t, v.Unmarshal(&got))

	require.Equal(t, want.Parties, got.Parties)
	require.Equal(t, want.Time.Layouts, got.Time.Layouts)
	require.Equal(t, want.Store.Path, got.Store.Path)
	require.True(t, got.Tracing.Enabled)
}

func TestSave_CreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "config.yaml")

	require.NoError(t, config.Save(path, config.Defaults()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.False(t, info.IsDir())
}

func TestWriteDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	require.NoError(t, config.WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "standard_incubation_minutes: 60")
	require.Contains(t, string(data), "train_leadtime_days: 3")
}
