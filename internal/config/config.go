// Package config provides configuration types and defaults for raidline.
package config

import (
	"time"

	"github.com/zjrosen/raidline/internal/party"
)

// PartiesConfig holds duration defaults for party window computation.
// Incubation covers the span between announcement and hatch; active covers
// the span a hatched party stays open. Exclusive parties get their own pair.
type PartiesConfig struct {
	StandardIncubationMinutes  int `mapstructure:"standard_incubation_minutes"`
	StandardActiveMinutes      int `mapstructure:"standard_active_minutes"`
	ExclusiveIncubationMinutes int `mapstructure:"exclusive_incubation_minutes"`
	ExclusiveActiveMinutes     int `mapstructure:"exclusive_active_minutes"`

	// TrainLeadtimeDays bounds how far out a train meeting time may be set.
	TrainLeadtimeDays int `mapstructure:"train_leadtime_days"`
}

// TimeConfig holds the ordered list of accepted absolute-time input layouts.
// Layouts are Go reference layouts; date-bearing entries use the "1-2" form.
type TimeConfig struct {
	Layouts []string `mapstructure:"layouts"`
}

// StoreConfig holds snapshot store configuration.
type StoreConfig struct {
	// Path is the SQLite database path. Empty disables persistence.
	Path string `mapstructure:"path"`
}

// LogConfig holds debug log configuration.
type LogConfig struct {
	Path string `mapstructure:"path"`
}

// TracingConfig holds tracing configuration.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Config holds all configuration options for raidline.
type Config struct {
	Parties PartiesConfig `mapstructure:"parties"`
	Time    TimeConfig    `mapstructure:"time"`
	Store   StoreConfig   `mapstructure:"store"`
	Log     LogConfig     `mapstructure:"log"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// DefaultLayouts is the default ordered list of accepted time layouts.
// Order matters: the first layout that parses wins, and date-less layouts
// precede date-bearing ones.
var DefaultLayouts = []string{
	"3:04 PM",
	"15:04",
	"3 PM",
	"15",
	"1-2 3:04 PM",
	"1-2 15:04",
	"1-2 3 PM",
	"1-2 15",
}

// Defaults returns the default configuration.
func Defaults() Config {
	return Config{
		Parties: PartiesConfig{
			StandardIncubationMinutes:  60,
			StandardActiveMinutes:      45,
			ExclusiveIncubationMinutes: 2880,
			ExclusiveActiveMinutes:     45,
			TrainLeadtimeDays:          3,
		},
		Time: TimeConfig{
			Layouts: DefaultLayouts,
		},
		Store: StoreConfig{
			Path: "",
		},
		Log: LogConfig{
			Path: "debug.log",
		},
		Tracing: TracingConfig{
			Enabled: false,
		},
	}
}

// Durations converts the configured minute/day counts into the duration set
// the party registry consumes.
func (c Config) Durations() party.Durations {
	return party.Durations{
		StandardIncubation:  time.Duration(c.Parties.StandardIncubationMinutes) * time.Minute,
		StandardActive:      time.Duration(c.Parties.StandardActiveMinutes) * time.Minute,
		ExclusiveIncubation: time.Duration(c.Parties.ExclusiveIncubationMinutes) * time.Minute,
		ExclusiveActive:     time.Duration(c.Parties.ExclusiveActiveMinutes) * time.Minute,
		TrainLeadtime:       time.Duration(c.Parties.TrainLeadtimeDays) * 24 * time.Hour,
	}
}
