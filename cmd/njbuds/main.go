package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/njbuds/internal/config"
	"github.com/IshaanNene/njbuds/internal/reconcile"
	"github.com/IshaanNene/njbuds/internal/storage"
	"github.com/IshaanNene/njbuds/internal/types"
)

var (
	cfgFile   string
	verbose   bool
	logFormat string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "njbuds",
		Short: "njbuds: NJ cannabis dispensary directory builder",
		Long: `njbuds builds and enriches a CSV of New Jersey cannabis dispensaries.

Harvest a base list from the NJ open-data API, the CRC dispensary finder or
its Atlist map, then fill missing websites and phones from the map, from
search results and from the dispensaries' own sites. Long runs checkpoint
to the output file and can be resumed.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json (default from config)")

	rootCmd.AddCommand(harvestCmd())
	rootCmd.AddCommand(enrichCmd())
	rootCmd.AddCommand(mergeCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads, overrides and validates the configuration and builds
// the logger it describes.
func loadConfig(override func(*config.Config)) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if logFormat != "" {
		cfg.Logging.Format = strings.ToLower(logFormat)
	}
	if override != nil {
		override(cfg)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, setupLogger(cfg.Logging), nil
}

// setupLogger creates a structured logger.
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// signalContext is cancelled on SIGINT or SIGTERM so runs can flush what
// they have before exiting.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			logger.Info("received signal, flushing and shutting down...", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// openSink returns the output sink: the CSV file, mirrored to MongoDB when
// a URI is configured.
func openSink(ctx context.Context, cfg *config.Config, path string, logger *slog.Logger) (storage.Sink, error) {
	csvSink := storage.NewCSVSink(path, logger)
	if cfg.Storage.MongoURI == "" {
		return csvSink, nil
	}

	mongoSink, err := storage.NewMongoSink(ctx,
		cfg.Storage.MongoURI,
		cfg.Storage.MongoDatabase,
		cfg.Storage.MongoCollection,
		identityKey,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	return storage.NewMultiSink([]storage.Sink{csvSink, mongoSink}, logger), nil
}

func identityKey(r types.Record) string {
	return reconcile.KeyOf(r).String()
}

// readInput loads the input CSV, failing when it is missing or empty.
func readInput(path string) ([]types.Record, error) {
	records, err := storage.ReadCSV(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read input %s: %w", path, types.ErrNoRecords)
	}
	return records, nil
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("njbuds %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("HTTP:\n")
			fmt.Printf("  Timeout:           %s\n", cfg.HTTP.Timeout)
			fmt.Printf("  User Agent:        %s\n", cfg.HTTP.UserAgent)
			fmt.Printf("  Max Retries:       %d\n", cfg.HTTP.MaxRetries)
			fmt.Printf("  Rate Per Host:     %.1f/s\n", cfg.HTTP.RatePerHost)
			fmt.Printf("\nBrowser:\n")
			fmt.Printf("  Headless:          %v\n", cfg.Browser.Headless)
			fmt.Printf("  Stealth:           %v\n", cfg.Browser.Stealth)
			fmt.Printf("  Window:            %dx%d\n", cfg.Browser.WindowWidth, cfg.Browser.WindowHeight)
			fmt.Printf("\nSources:\n")
			fmt.Printf("  CRC Page:          %s\n", cfg.Sources.CRCURL)
			fmt.Printf("  Atlist Fallback:   %s\n", cfg.Sources.AtlistFallback)
			fmt.Printf("  Open Data:         %s\n", cfg.Sources.OpenDataJSON)
			fmt.Printf("  App Token:         %v\n", cfg.Sources.OpenDataToken != "")
			fmt.Printf("\nEnrich:\n")
			fmt.Printf("  Workers:           %d\n", cfg.Enrich.Workers)
			fmt.Printf("  Checkpoint Every:  %d rows\n", cfg.Enrich.CheckpointEvery)
			fmt.Printf("  Contact Paths:     %s\n", strings.Join(cfg.Enrich.ContactPaths, " "))
			fmt.Printf("  Guess Domains:     %v\n", cfg.Enrich.GuessDomains)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  MongoDB Mirror:    %v\n", cfg.Storage.MongoURI != "")
			return nil
		},
	}
}
