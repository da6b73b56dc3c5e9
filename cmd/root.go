package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/raidline/internal/config"
)

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       config.Config
)

var rootCmd = &cobra.Command{
	Use:     "raidline",
	Short:   "Coordination core for chat-scheduled raid meetups",
	Long:    `raidline keeps one live party session per chat channel, resolves free-form time input against computed validity windows, and tracks attendee, group, and route state for raid meetups and raid trains.`,
	Version: version,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/raidline/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false,
		"enable debug logging")
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("parties.standard_incubation_minutes", defaults.Parties.StandardIncubationMinutes)
	viper.SetDefault("parties.standard_active_minutes", defaults.Parties.StandardActiveMinutes)
	viper.SetDefault("parties.exclusive_incubation_minutes", defaults.Parties.ExclusiveIncubationMinutes)
	viper.SetDefault("parties.exclusive_active_minutes", defaults.Parties.ExclusiveActiveMinutes)
	viper.SetDefault("parties.train_leadtime_days", defaults.Parties.TrainLeadtimeDays)
	viper.SetDefault("time.layouts", defaults.Time.Layouts)
	viper.SetDefault("store.path", defaults.Store.Path)
	viper.SetDefault("log.path", defaults.Log.Path)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .raidline/config.yaml (current directory)
		// 2. ~/.config/raidline/config.yaml (user config)
		if _, err := os.Stat(".raidline/config.yaml"); err == nil {
			viper.SetConfigFile(".raidline/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "raidline"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create default at .raidline/config.yaml
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			defaultPath := ".raidline/config.yaml"
			if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
				viper.SetConfigFile(defaultPath)
				_ = viper.ReadInConfig()
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
