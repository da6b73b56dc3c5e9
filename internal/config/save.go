package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config with yaml tags for serialization.
type fileConfig struct {
	Parties filePartiesConfig `yaml:"parties"`
	Time    fileTimeConfig    `yaml:"time"`
	Store   fileStoreConfig   `yaml:"store"`
	Log     fileLogConfig     `yaml:"log"`
	Tracing fileTracingConfig `yaml:"tracing"`
}

type filePartiesConfig struct {
	StandardIncubationMinutes  int `yaml:"standard_incubation_minutes"`
	StandardActiveMinutes      int `yaml:"standard_active_minutes"`
	ExclusiveIncubationMinutes int `yaml:"exclusive_incubation_minutes"`
	ExclusiveActiveMinutes     int `yaml:"exclusive_active_minutes"`
	TrainLeadtimeDays          int `yaml:"train_leadtime_days"`
}

type fileTimeConfig struct {
	Layouts []string `yaml:"layouts"`
}

type fileStoreConfig struct {
	Path string `yaml:"path"`
}

type fileLogConfig struct {
	Path string `yaml:"path"`
}

type fileTracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

func toFileConfig(c Config) fileConfig {
	return fileConfig{
		Parties: filePartiesConfig{
			StandardIncubationMinutes:  c.Parties.StandardIncubationMinutes,
			StandardActiveMinutes:      c.Parties.StandardActiveMinutes,
			ExclusiveIncubationMinutes: c.Parties.ExclusiveIncubationMinutes,
			ExclusiveActiveMinutes:     c.Parties.ExclusiveActiveMinutes,
			TrainLeadtimeDays:          c.Parties.TrainLeadtimeDays,
		},
		Time:    fileTimeConfig{Layouts: c.Time.Layouts},
		Store:   fileStoreConfig{Path: c.Store.Path},
		Log:     fileLogConfig{Path: c.Log.Path},
		Tracing: fileTracingConfig{Enabled: c.Tracing.Enabled},
	}
}

// Save writes the configuration to the given path as YAML.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(toFileConfig(cfg)); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil { //nolint:gosec // config file, not a secret
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// WriteDefaultConfig writes the default configuration to the given path.
// Used on first run when no config file exists anywhere.
func WriteDefaultConfig(path string) error {
	return Save(path, Defaults())
}
