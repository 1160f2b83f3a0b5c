package harvest

import (
	"context"
	"log/slog"

	"github.com/IshaanNene/njbuds/internal/automation"
	"github.com/IshaanNene/njbuds/internal/config"
	"github.com/IshaanNene/njbuds/internal/extract"
	"github.com/IshaanNene/njbuds/internal/pipeline"
	"github.com/IshaanNene/njbuds/internal/types"
)

// MapPage is the Atlist map as the harvester drives it.
type MapPage interface {
	Page
	Prepare(ctx context.Context, f automation.Filter) error
	Cards(ctx context.Context) ([]extract.Card, error)
}

// Atlist scrapes the Atlist map embedded in the CRC page.
type Atlist struct {
	opener   automation.Opener
	cfg      *config.Config
	category automation.Category
	logger   *slog.Logger
}

// NewAtlist creates an Atlist harvester listing one category.
func NewAtlist(opener automation.Opener, cfg *config.Config, category automation.Category, logger *slog.Logger) *Atlist {
	return &Atlist{
		opener:   opener,
		cfg:      cfg,
		category: category,
		logger:   logger.With("component", "atlist", "category", string(category)),
	}
}

// Harvest opens the map, lists the category and extracts its records.
func (a *Atlist) Harvest(ctx context.Context) ([]types.Record, error) {
	w, src, err := automation.OpenAtlist(ctx, a.opener, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	defer w.Close()
	return a.HarvestMap(ctx, w, src)
}

// HarvestMap prepares the map and reads its cards. When no card yields a
// record, it falls back to the map's text and links.
func (a *Atlist) HarvestMap(ctx context.Context, m MapPage, source string) ([]types.Record, error) {
	if err := m.Prepare(ctx, a.category.Filter()); err != nil {
		return nil, err
	}

	var recs []types.Record
	cards, err := m.Cards(ctx)
	if err != nil {
		a.logger.Warn("reading cards failed", "error", err)
	}
	for _, c := range cards {
		if rec, ok := extract.RecordFromCard(c, source); ok {
			recs = append(recs, rec)
		}
	}
	a.logger.Info("card records", "cards", len(cards), "records", len(recs))

	if len(recs) == 0 {
		recs, err = recordsFromPage(ctx, m, source)
		if err != nil {
			return nil, err
		}
		a.logger.Info("text records", "records", len(recs))
	}

	out, dropped := pipeline.Default(a.logger).Run(recs)
	a.logger.Info("atlist harvest done", "records", len(out), "dropped", dropped)
	if len(out) == 0 {
		return nil, types.ErrNoRecords
	}
	return out, nil
}
