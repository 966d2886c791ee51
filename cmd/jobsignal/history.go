package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsignal/internal/report"
	"github.com/amishk599/jobsignal/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored daily snapshots",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 14, "number of days to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	sqlStore, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer sqlStore.Close()

	snaps, err := sqlStore.Snapshots(context.Background(), historyLimit)
	if err != nil {
		return err
	}
	return report.RenderHistory(os.Stdout, snaps, time.Now())
}
