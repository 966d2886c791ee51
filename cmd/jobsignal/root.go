package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobsignal/internal/adapter"
	"github.com/amishk599/jobsignal/internal/ai"
	"github.com/amishk599/jobsignal/internal/config"
	"github.com/amishk599/jobsignal/internal/extract"
	"github.com/amishk599/jobsignal/internal/filter"
	"github.com/amishk599/jobsignal/internal/model"
	"github.com/amishk599/jobsignal/internal/notifier"
	"github.com/amishk599/jobsignal/internal/pipeline"
	"github.com/amishk599/jobsignal/internal/ratelimit"
	"github.com/amishk599/jobsignal/internal/retry"
	"github.com/amishk599/jobsignal/internal/vocab"
)

var (
	cfgPath  string
	debug    bool
	location string
)

var rootCmd = &cobra.Command{
	Use:   "jobsignal",
	Short: "What the IT job market is asking for",
	Long: "jobsignal fetches ITJobs listings, extracts technologies, roles and seniority " +
		"from their titles, and reports the aggregate.",
	// `jobsignal` with no subcommand prints the report.
	RunE:         runAnalyze,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBSIGNAL_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&location, "location", "", "override source.location (location name, e.g. Lisboa)")
	registerAnalyzeFlags(rootCmd)
}

// loadConfig resolves the config path and parses it. A .env file in the
// working directory, when present, is loaded first so ${VAR} references in
// the config can come from it.
// Priority: explicit path arg > JOBSIGNAL_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	_ = godotenv.Load()
	if path == "" {
		if env := os.Getenv("JOBSIGNAL_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if location != "" {
		cfg.Source.Location = location
	}
	return cfg, nil
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// silentLogger is for commands that own the terminal; any log line written
// while a TUI is active corrupts the display.
func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) notifier.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

// buildSource creates the configured JobSource, paced per host and wrapped
// with retries.
func buildSource(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) (model.JobSource, error) {
	limiter := ratelimit.NewHostLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	titleFilter := filter.NewTitleKeywordFilter(cfg.Source.Keywords, cfg.Source.Exclude)

	var src model.JobSource
	switch cfg.Source.Type {
	case config.SourceAPI:
		src = adapter.NewAPISource(adapter.APISourceOptions{
			BaseURL:  cfg.Source.BaseURL,
			APIKey:   cfg.Source.APIKey,
			Location: cfg.Source.Location,
			PageSize: cfg.Source.PageSize,
			MaxPages: cfg.Source.MaxPages,
		}, httpClient, limiter)
	case config.SourceScrape:
		src = adapter.NewScrapeSource(cfg.Source.ListingURL, cfg.Source.MaxPages, titleFilter, httpClient, limiter)
	case config.SourceBrowser:
		renderer := adapter.NewChromeRenderer(cfg.Source.Timeout, "")
		src = adapter.NewBrowserSource(cfg.Source.ListingURL, cfg.Source.MaxPages, titleFilter, renderer, limiter)
	default:
		return nil, fmt.Errorf("unsupported source type %q", cfg.Source.Type)
	}
	logger.Debug("source configured",
		"type", cfg.Source.Type,
		"max_pages", cfg.Source.MaxPages,
		"rps", cfg.RateLimit.RequestsPerSecond,
	)
	return retry.NewSource(src, cfg.Retry.MaxRetries, cfg.Retry.BaseDelay, logger), nil
}

// buildExtractor returns the keyword extractor, or the LLM extractor backed
// by it when ai.enabled is set.
func buildExtractor(cfg *config.Config, v *vocab.Vocabulary, logger *slog.Logger) extract.Extractor {
	keyword := extract.NewKeywordExtractor(v)
	if !cfg.AI.Enabled {
		return keyword
	}
	provider := ai.NewOpenAIProvider(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, &http.Client{Timeout: cfg.AI.Timeout})
	logger.Info("using llm extractor", "model", cfg.AI.Model)
	return ai.NewLLMExtractor(provider, v, ai.TitleTermsTemplate, keyword, logger)
}

// buildPipeline wires source, vocabulary and extractor into a Pipeline.
func buildPipeline(cfg *config.Config, opts pipeline.Options, logger *slog.Logger) (*pipeline.Pipeline, error) {
	v, err := vocab.Load(cfg.VocabularyPath)
	if err != nil {
		return nil, err
	}
	httpClient := &http.Client{Timeout: cfg.Source.Timeout}
	src, err := buildSource(cfg, httpClient, logger)
	if err != nil {
		return nil, err
	}
	if opts.Workers == 0 {
		opts.Workers = cfg.Workers
	}
	if opts.TopN == 0 {
		opts.TopN = cfg.Notification.TopN
	}
	return pipeline.New(src, buildExtractor(cfg, v, logger), opts, logger), nil
}
