package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsignal/internal/pipeline"
	"github.com/amishk599/jobsignal/internal/report"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Explore the report interactively (TUI)",
	Long:  "Fetches the listings, then opens a two-pane view: rankings on the left, the listings carrying the selected term on the right.",
	RunE:  runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	p, err := buildPipeline(cfg, pipeline.Options{}, silentLogger())
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	res, err := report.RunLoader(ctx, "Fetching ITJobs listings", p.Analyze)
	if err != nil {
		return fmt.Errorf("browse: %w", err)
	}
	return report.RunBrowser(res.State.Report())
}
