package main

import (
	"github.com/spf13/cobra"

	"github.com/amishk599/jobsignal/internal/pipeline"
	"github.com/amishk599/jobsignal/internal/server"
	"github.com/amishk599/jobsignal/internal/store"
	"github.com/amishk599/jobsignal/internal/visits"
)

var memoryVisits bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the report, snapshot history and visit counters over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&memoryVisits, "memory-visits", false, "keep visit counters in memory instead of the snapshot database")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	sqlStore, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		return err
	}
	defer sqlStore.Close()

	p, err := buildPipeline(cfg, pipeline.Options{}, logger)
	if err != nil {
		return err
	}

	var visitStore visits.Store = sqlStore
	if memoryVisits {
		visitStore = visits.NewMemoryStore()
	}

	ctx, stop := signalContext()
	defer stop()

	srv := server.New(p, sqlStore, visits.NewTracker(visitStore), cfg.Serve.CacheTTL, logger)
	if err := srv.Run(ctx, cfg.Serve.Addr); err != nil {
		logger.Error("server error", "error", err)
		return err
	}
	logger.Info("goodbye")
	return nil
}
