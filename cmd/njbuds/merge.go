package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/njbuds/internal/reconcile"
	"github.com/IshaanNene/njbuds/internal/storage"
)

var (
	mergeBase   string
	mergeWith   []string
	mergeOutput string
	mergeUnion  bool
)

// mergeCmd creates the "merge" subcommand.
func mergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Fill empty websites and phones in one CSV from others",
		Long: `Fill empty websites and phones in the base CSV from candidate CSVs.

Rows match on name, street and city, ignoring case and spacing. Existing
values are never replaced and incomplete candidates are ignored. With
--union, candidates that match no base row are appended.`,
		Args: cobra.NoArgs,
		RunE: runMerge,
	}

	cmd.Flags().StringVarP(&mergeBase, "input", "i", "nj_dispensaries.csv", "base CSV path")
	cmd.Flags().StringSliceVarP(&mergeWith, "with", "w", nil, "candidate CSV path (repeatable)")
	cmd.Flags().StringVarP(&mergeOutput, "output", "o", "nj_dispensaries_merged.csv", "output CSV path")
	cmd.Flags().BoolVar(&mergeUnion, "union", false, "append unmatched candidates")
	_ = cmd.MarkFlagRequired("with")

	return cmd
}

func runMerge(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(nil)
	if err != nil {
		return err
	}

	out, err := readInput(mergeBase)
	if err != nil {
		return err
	}

	for _, path := range mergeWith {
		candidates, err := storage.ReadCSV(path)
		if err != nil {
			return fmt.Errorf("read candidates: %w", err)
		}

		var ms reconcile.MergeStats
		if mergeUnion {
			out, ms = reconcile.Union(out, candidates)
		} else {
			out, ms = reconcile.Merge(out, candidates)
		}
		logger.Info("merged",
			"candidates", path,
			"matched", ms.Matched,
			"folded", ms.BaseFolded,
			"dropped", ms.CandidatesDropped,
			"websites_filled", ms.WebsitesFilled,
			"phones_filled", ms.PhonesFilled,
			"appended", ms.Appended,
		)
	}

	ctx := context.Background()
	sink, err := openSink(ctx, cfg, mergeOutput, logger)
	if err != nil {
		return err
	}
	defer sink.Close()
	if err := sink.Store(ctx, out); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	logger.Info("merge complete", "rows", len(out), "output", mergeOutput)
	return nil
}
