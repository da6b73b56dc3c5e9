package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/raidline/internal/config"
	"github.com/zjrosen/raidline/internal/coordinator"
	"github.com/zjrosen/raidline/internal/infrastructure/sqlite"
	"github.com/zjrosen/raidline/internal/log"
	"github.com/zjrosen/raidline/internal/notify"
	"github.com/zjrosen/raidline/internal/party"
	"github.com/zjrosen/raidline/internal/tracing"
	"github.com/zjrosen/raidline/internal/watcher"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the party coordination daemon",
	Long: `Run the coordination core as a long-lived process. The daemon owns the
party registry, restores persisted sessions from the snapshot store, reaps
sessions whose end time has elapsed, and reloads duration settings when the
config file changes. Chat integrations attach to the coordinator it exposes.

Example:
  raidline daemon
  raidline daemon --store /var/lib/raidline/parties.db`,
	RunE: runDaemon,
}

var daemonStorePath string

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().StringVar(&daemonStorePath, "store", "", "Snapshot database path (overrides config)")
}

func runDaemon(_ *cobra.Command, _ []string) error {
	debug := os.Getenv("RAIDLINE_DEBUG") != "" || debugFlag
	if debug {
		logPath := cfg.Log.Path
		if logPath == "" {
			logPath = "debug.log"
		}

		cleanup, err := log.Init(logPath)
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		defer cleanup()
	} else {
		log.SetEnabled(false)
	}

	shutdownTracing, err := tracing.Init(cfg.Tracing.Enabled)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer shutdownTracing()

	storePath := cfg.Store.Path
	if daemonStorePath != "" {
		storePath = daemonStorePath
	}

	var store coordinator.Store
	var restored []party.Snapshot
	if storePath != "" {
		db, err := sqlite.NewDB(storePath)
		if err != nil {
			return fmt.Errorf("opening snapshot store: %w", err)
		}
		defer func() { _ = db.Close() }()

		repo := sqlite.NewPartyRepository(db)
		store = repo

		restored, err = repo.LoadAll(context.Background())
		if err != nil {
			return fmt.Errorf("loading party snapshots: %w", err)
		}
	}

	manager := party.NewManager(party.ManagerOptions{
		Durations: cfg.Durations(),
		Layouts:   cfg.Time.Layouts,
	})
	defer manager.Close()

	for _, snap := range restored {
		if _, err := manager.Restore(snap); err != nil {
			log.ErrorErr(log.CatRegistry, "restoring party snapshot failed", err, "channel", snap.ChannelID)
		}
	}
	if len(restored) > 0 {
		log.Info(log.CatRegistry, "restored party snapshots", "count", len(restored))
	}

	coord := coordinator.New(coordinator.Options{
		Manager:   manager,
		Notifier:  notify.NewBrokerNotifier(),
		Refresher: notify.NewBrokerRefresher(),
		Auth:      notify.AllowAll{},
		Store:     store,
	})
	_ = coord // chat integrations attach here

	// Reload duration settings when the config file is rewritten.
	cfgPath := viper.ConfigFileUsed()
	if cfgPath != "" {
		w, err := watcher.New(watcher.DefaultConfig(cfgPath))
		if err != nil {
			return fmt.Errorf("creating config watcher: %w", err)
		}
		changes, err := w.Start()
		if err != nil {
			return fmt.Errorf("starting config watcher: %w", err)
		}
		defer func() { _ = w.Stop() }()

		go func() {
			for range changes {
				if err := viper.ReadInConfig(); err != nil {
					log.ErrorErr(log.CatConfig, "re-reading config failed", err)
					continue
				}
				var next config.Config
				if err := viper.Unmarshal(&next); err != nil {
					log.ErrorErr(log.CatConfig, "unmarshaling config failed", err)
					continue
				}
				manager.SetDurations(next.Durations())
				log.Info(log.CatConfig, "reloaded duration settings", "path", cfgPath)
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info(log.CatRegistry, "daemon shutting down")
	return nil
}
