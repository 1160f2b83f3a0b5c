package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/njbuds/internal/automation"
	"github.com/IshaanNene/njbuds/internal/config"
	"github.com/IshaanNene/njbuds/internal/fetcher"
	"github.com/IshaanNene/njbuds/internal/harvest"
	"github.com/IshaanNene/njbuds/internal/reconcile"
	"github.com/IshaanNene/njbuds/internal/storage"
	"github.com/IshaanNene/njbuds/internal/types"
)

var (
	harvestOutput   string
	harvestAppend   bool
	harvestHeadless bool
	harvestCategory string
)

// harvester is one base-list source.
type harvester interface {
	Harvest(ctx context.Context) ([]types.Record, error)
}

// harvestCmd creates the "harvest" command group.
func harvestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Build a base dispensary list",
		Long: `Build a base dispensary list from one source.

With --append the harvested rows are merged into the existing output:
matching rows gain missing websites and phones, new rows are added.`,
	}
	cmd.PersistentFlags().StringVarP(&harvestOutput, "output", "o", "nj_dispensaries.csv", "output CSV path")
	cmd.PersistentFlags().BoolVar(&harvestAppend, "append", false, "merge into the existing output instead of replacing it")

	cmd.AddCommand(&cobra.Command{
		Use:   "opendata",
		Short: "Harvest from the NJ open-data API (JSON, CSV fallback)",
		Args:  cobra.NoArgs,
		RunE:  runHarvestOpenData,
	})

	crc := &cobra.Command{
		Use:   "crc",
		Short: "Harvest from the rendered CRC dispensary finder page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowserHarvest(cmd, func(b *fetcher.Browser, cfg *config.Config, logger *slog.Logger) (harvester, error) {
				return harvest.NewCRC(b, cfg, logger), nil
			})
		},
	}
	crc.Flags().BoolVar(&harvestHeadless, "headless", true, "run Chromium headless")

	atlist := &cobra.Command{
		Use:   "atlist",
		Short: "Harvest from the Atlist map embedded in the CRC page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowserHarvest(cmd, func(b *fetcher.Browser, cfg *config.Config, logger *slog.Logger) (harvester, error) {
				category, err := automation.ParseCategory(harvestCategory)
				if err != nil {
					return nil, err
				}
				return harvest.NewAtlist(b, cfg, category, logger), nil
			})
		},
	}
	atlist.Flags().BoolVar(&harvestHeadless, "headless", true, "run Chromium headless")
	atlist.Flags().StringVar(&harvestCategory, "category", "all", "dispensaries to list: all, medicinal or recreational")

	cmd.AddCommand(crc, atlist)
	return cmd
}

func runHarvestOpenData(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(nil)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(logger)
	defer cancel()

	httpFetcher, err := fetcher.NewHTTPFetcher(cfg.HTTP, logger)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}
	defer httpFetcher.Close()

	return runHarvest(ctx, cfg, logger, harvest.NewOpenData(httpFetcher, cfg.Sources, logger))
}

func runBrowserHarvest(cmd *cobra.Command, build func(*fetcher.Browser, *config.Config, *slog.Logger) (harvester, error)) error {
	cfg, logger, err := loadConfig(func(cfg *config.Config) {
		if f := cmd.Flags().Lookup("headless"); f != nil && f.Changed {
			cfg.Browser.Headless = harvestHeadless
		}
	})
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(logger)
	defer cancel()

	browser, err := fetcher.NewBrowser(cfg.Browser, cfg.HTTP.UserAgent, logger)
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	defer browser.Close()

	h, err := build(browser, cfg, logger)
	if err != nil {
		return err
	}
	return runHarvest(ctx, cfg, logger, h)
}

func runHarvest(ctx context.Context, cfg *config.Config, logger *slog.Logger, h harvester) error {
	start := time.Now()
	records, err := h.Harvest(ctx)
	if err != nil {
		return fmt.Errorf("harvest: %w", err)
	}

	if harvestAppend {
		existing, err := storage.ReadCSV(harvestOutput)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return err
		default:
			var ms reconcile.MergeStats
			records, ms = reconcile.Union(existing, records)
			logger.Info("appended to existing output",
				"existing", ms.Base,
				"folded", ms.BaseFolded,
				"matched", ms.Matched,
				"added", ms.Appended,
			)
		}
	}

	sink, err := openSink(ctx, cfg, harvestOutput, logger)
	if err != nil {
		return err
	}
	defer sink.Close()
	if err := sink.Store(context.WithoutCancel(ctx), records); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	logger.Info("harvest complete",
		"rows", len(records),
		"output", harvestOutput,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return nil
}
