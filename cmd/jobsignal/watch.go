package main

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobsignal/internal/pipeline"
	"github.com/amishk599/jobsignal/internal/scheduler"
	"github.com/amishk599/jobsignal/internal/server"
	"github.com/amishk599/jobsignal/internal/store"
	"github.com/amishk599/jobsignal/internal/visits"
)

var watchServe bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Take a snapshot now and then every snapshot_interval",
	Long:  "Runs the snapshot scheduler until SIGINT/SIGTERM. With --serve the HTTP API runs alongside it.",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchServe, "serve", false, "also serve the HTTP API")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}
	logger.Info("config loaded",
		"source", cfg.Source.Type,
		"interval", cfg.SnapshotInterval.String(),
		"store", cfg.Store.Path,
		"notification", cfg.Notification.Type,
	)

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

	g, ctx := errgroup.WithContext(ctx)
	sched := scheduler.NewScheduler("snapshot", func(ctx context.Context) error {
		_, err := p.Snapshot(ctx)
		return err
	}, cfg.SnapshotInterval, logger)
	g.Go(func() error { return sched.Run(ctx) })

	if watchServe {
		srv := server.New(p, sqlStore, visits.NewTracker(sqlStore), cfg.Serve.CacheTTL, logger)
		g.Go(func() error { return srv.Run(ctx, cfg.Serve.Addr) })
	}

	if err := g.Wait(); err != nil {
		logger.Error("watch stopped", "error", err)
		return err
	}
	logger.Info("goodbye")
	return nil
}
