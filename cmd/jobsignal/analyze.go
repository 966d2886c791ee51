package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobsignal/internal/pipeline"
	"github.com/amishk599/jobsignal/internal/report"
)

var (
	topN     int
	showRows bool
	jsonOut  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Fetch listings once and print the report",
	Long:  "One-shot run: fetches every listing, extracts terms from the titles and prints the aggregate. Nothing is stored.",
	RunE:  runAnalyze,
}

func init() {
	registerAnalyzeFlags(analyzeCmd)
	rootCmd.AddCommand(analyzeCmd)
}

func registerAnalyzeFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&topN, "top", 10, "entries shown per ranking")
	cmd.Flags().BoolVar(&showRows, "rows", false, "also print one line per listing")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the report as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	// The spinner owns the terminal, so logs go nowhere unless --debug.
	logger := silentLogger()
	if debug {
		logger = setupLogger(true)
	}
	p, err := buildPipeline(cfg, pipeline.Options{}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	var res *pipeline.Result
	if jsonOut || debug {
		res, err = p.Analyze(ctx)
	} else {
		res, err = report.RunLoader(ctx, "Fetching ITJobs listings", p.Analyze)
	}
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	rep := res.State.Report()
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	if err := report.Render(os.Stdout, rep, report.Options{TopN: topN, ShowRows: showRows}); err != nil {
		return err
	}
	if res.Skipped > 0 {
		fmt.Printf("\n%d listings skipped (missing title or company)\n", res.Skipped)
	}
	return nil
}
