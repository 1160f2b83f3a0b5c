package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/njbuds/internal/config"
	"github.com/IshaanNene/njbuds/internal/engine"
	"github.com/IshaanNene/njbuds/internal/enrich"
	"github.com/IshaanNene/njbuds/internal/fetcher"
	"github.com/IshaanNene/njbuds/internal/observability"
	"github.com/IshaanNene/njbuds/internal/types"
)

var (
	enrichInput    string
	enrichHeadless bool

	atlistOutput string
	atlistMode   string

	searchOutput   string
	searchBrowser  bool
	searchNoResume bool

	sitesOutput  string
	sitesWorkers int
	sitesGuess   bool
	sitesSummary string
)

// enrichCmd creates the "enrich" command group.
func enrichCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Fill missing websites and phones on an existing list",
		Long: `Fill missing websites and phones on an existing list.

Only empty fields are filled; values already present are never replaced,
except that "enrich sites" rewrites a website to the address it redirects
to. Progress is checkpointed to the output file.`,
	}
	cmd.PersistentFlags().StringVarP(&enrichInput, "input", "i", "nj_dispensaries.csv", "input CSV path")

	atlist := &cobra.Command{
		Use:   "atlist",
		Short: "Read contacts off the Atlist map cards or their details panels",
		Args:  cobra.NoArgs,
		RunE:  runEnrichAtlist,
	}
	atlist.Flags().StringVarP(&atlistOutput, "output", "o", "nj_dispensaries_enriched.csv", "output CSV path")
	atlist.Flags().StringVar(&atlistMode, "mode", "cards", "cards: read list cards; details: open each card's panel")
	atlist.Flags().BoolVar(&enrichHeadless, "headless", true, "run Chromium headless")

	search := &cobra.Command{
		Use:   "search",
		Short: "Find official websites through DuckDuckGo",
		Args:  cobra.NoArgs,
		RunE:  runEnrichSearch,
	}
	search.Flags().StringVarP(&searchOutput, "output", "o", "nj_dispensaries_with_websites.csv", "output CSV path")
	search.Flags().BoolVar(&searchBrowser, "browser", false, "search through headless Chromium instead of the HTML endpoint")
	search.Flags().BoolVar(&searchNoResume, "no-resume", false, "ignore websites found by a previous run in the output file")
	search.Flags().BoolVar(&enrichHeadless, "headless", true, "run Chromium headless (with --browser)")

	sites := &cobra.Command{
		Use:   "sites",
		Short: "Crawl each website for its final address and a phone number",
		Args:  cobra.NoArgs,
		RunE:  runEnrichSites,
	}
	sites.Flags().StringVarP(&sitesOutput, "output", "o", "nj_dispensaries_with_phones.csv", "output CSV path")
	sites.Flags().IntVarP(&sitesWorkers, "workers", "n", 0, "concurrent site crawls (default from config)")
	sites.Flags().BoolVar(&sitesGuess, "guess", false, "guess slug.com/.org/.net for rows without a website")
	sites.Flags().StringVar(&sitesSummary, "summary", "", "summary log path (default from config)")

	cmd.AddCommand(atlist, search, sites)
	return cmd
}

// enrichRun holds what every enrich command sets up.
type enrichRun struct {
	cfg        *config.Config
	logger     *slog.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	output     string
	records    []types.Record
	stats      *observability.Stats
	checkpoint *engine.Checkpointer
	close      func() error
}

func startEnrich(cmd *cobra.Command, output string, override func(*config.Config)) (*enrichRun, error) {
	cfg, logger, err := loadConfig(func(cfg *config.Config) {
		if f := cmd.Flags().Lookup("headless"); f != nil && f.Changed {
			cfg.Browser.Headless = enrichHeadless
		}
		if override != nil {
			override(cfg)
		}
	})
	if err != nil {
		return nil, err
	}

	records, err := readInput(enrichInput)
	if err != nil {
		return nil, err
	}

	ctx, cancel := signalContext(logger)
	sink, err := openSink(ctx, cfg, output, logger)
	if err != nil {
		cancel()
		return nil, err
	}

	stats := observability.NewStats(logger)
	logger.Info("starting enrichment",
		"command", cmd.Name(),
		"input", enrichInput,
		"output", output,
		"rows", len(records),
	)
	return &enrichRun{
		cfg:        cfg,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		output:     output,
		records:    records,
		stats:      stats,
		checkpoint: engine.NewCheckpointer(sink, cfg.Enrich.CheckpointEvery, stats, logger),
		close:      sink.Close,
	}, nil
}

// finish flushes the rows to the output whether or not the run completed.
// A nil out means no work started, and the existing output is left as it
// is. An interrupted run is reported but not treated as a failure.
func (r *enrichRun) finish(out []types.Record, runErr error) error {
	defer r.cancel()
	defer r.close()

	if out == nil {
		if errors.Is(runErr, context.Canceled) {
			r.logger.Info("enrichment interrupted before any rows were processed; output unchanged", "output", r.output)
			return nil
		}
		return runErr
	}
	if err := r.checkpoint.Flush(r.ctx, out); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	switch {
	case errors.Is(runErr, context.Canceled):
		r.stats.LogSummary("enrichment interrupted; partial output written")
	case runErr != nil:
		return runErr
	default:
		r.stats.LogSummary("enrichment complete")
	}
	return nil
}

func runEnrichAtlist(cmd *cobra.Command, args []string) error {
	mode, err := enrich.ParseAtlistMode(atlistMode)
	if err != nil {
		return err
	}
	run, err := startEnrich(cmd, atlistOutput, nil)
	if err != nil {
		return err
	}

	browser, err := fetcher.NewBrowser(run.cfg.Browser, run.cfg.HTTP.UserAgent, run.logger)
	if err != nil {
		return run.finish(nil, fmt.Errorf("start browser: %w", err))
	}
	defer browser.Close()

	out, err := enrich.NewAtlist(browser, run.cfg, mode, run.stats, run.logger).Run(run.ctx, run.records)
	return run.finish(out, err)
}

func runEnrichSearch(cmd *cobra.Command, args []string) error {
	run, err := startEnrich(cmd, searchOutput, nil)
	if err != nil {
		return err
	}

	base := run.records
	if !searchNoResume {
		if base, err = enrich.Resume(base, run.output, run.logger); err != nil {
			return run.finish(nil, err)
		}
	}

	var (
		f        fetcher.Fetcher
		endpoint = run.cfg.Sources.SearchURL
	)
	if searchBrowser {
		browser, err := fetcher.NewBrowser(run.cfg.Browser, run.cfg.HTTP.UserAgent, run.logger)
		if err != nil {
			return run.finish(base, fmt.Errorf("start browser: %w", err))
		}
		f, endpoint = browser, run.cfg.Sources.SearchBrowser
	} else {
		httpFetcher, err := fetcher.NewHTTPFetcher(run.cfg.HTTP, run.logger)
		if err != nil {
			return run.finish(base, fmt.Errorf("create fetcher: %w", err))
		}
		f = httpFetcher
	}
	defer f.Close()

	out, err := enrich.NewSearch(f, endpoint, run.cfg.Enrich, run.checkpoint, run.stats, run.logger).Run(run.ctx, base)
	return run.finish(out, err)
}

func runEnrichSites(cmd *cobra.Command, args []string) error {
	run, err := startEnrich(cmd, sitesOutput, func(cfg *config.Config) {
		if sitesWorkers > 0 {
			cfg.Enrich.Workers = sitesWorkers
		}
		if sitesGuess {
			cfg.Enrich.GuessDomains = true
		}
		if sitesSummary != "" {
			cfg.Enrich.SummaryPath = sitesSummary
		}
	})
	if err != nil {
		return err
	}

	httpFetcher, err := fetcher.NewHTTPFetcher(run.cfg.HTTP, run.logger)
	if err != nil {
		return run.finish(nil, fmt.Errorf("create fetcher: %w", err))
	}
	defer httpFetcher.Close()

	pool := engine.NewPool(run.cfg.Enrich.Workers, run.logger,
		engine.WithCheckpointer(run.checkpoint),
		engine.WithStats(run.stats),
	)
	out, err := enrich.NewSites(httpFetcher, run.cfg.Enrich, run.stats, run.logger).Run(run.ctx, run.records, pool)
	if ferr := run.finish(out, err); ferr != nil {
		return ferr
	}

	if err := run.stats.WriteSummary(run.cfg.Enrich.SummaryPath); err != nil {
		run.logger.Warn("summary not written", "error", err)
	}
	fmt.Printf("Updated website on %d rows\n", run.stats.WebsitesFilled.Load()+run.stats.WebsitesUpdated.Load())
	fmt.Printf("Filled phone on   %d rows\n", run.stats.PhonesFilled.Load())
	return nil
}
