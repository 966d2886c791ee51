package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobsignal/internal/config"
	"github.com/amishk599/jobsignal/internal/pipeline"
	"github.com/amishk599/jobsignal/internal/store"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Record today's snapshot",
	Long:  "Fetches and aggregates the listings and stores one snapshot for today. A second run on the same day is a no-op.",
	RunE:  runSnapshot,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
}

// lockStore takes an exclusive lock next to the snapshot database so two
// snapshot writers (cron + watch, say) never race on the same day.
func lockStore(cfg *config.Config) (*flock.Flock, error) {
	fl := flock.New(cfg.Store.Path + ".lock")
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", fl.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("another jobsignal process holds %s", fl.Path())
	}
	return fl, nil
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	fl, err := lockStore(cfg)
	if err != nil {
		return err
	}
	defer fl.Unlock()

	sqlStore, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		return err
	}
	defer sqlStore.Close()

	n := setupNotifier(cfg, &http.Client{Timeout: 30 * time.Second}, logger)
	p, err := buildPipeline(cfg, pipeline.Options{Store: sqlStore, Notifier: n}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	saved, err := p.Snapshot(ctx)
	if err != nil {
		logger.Error("snapshot failed", "error", err)
		return err
	}
	if !saved {
		fmt.Fprintln(os.Stderr, "snapshot for today already exists")
	}
	return nil
}
