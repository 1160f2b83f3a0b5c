package harvest

import (
	"context"
	"log/slog"
	"time"

	"github.com/IshaanNene/njbuds/internal/automation"
	"github.com/IshaanNene/njbuds/internal/config"
	"github.com/IshaanNene/njbuds/internal/extract"
	"github.com/IshaanNene/njbuds/internal/pipeline"
	"github.com/IshaanNene/njbuds/internal/types"
)

// minTopLevelRows is the record count below which the CRC page's iframes
// are searched as well.
const minTopLevelRows = 10

// Page is a rendered document the harvesters read text from.
type Page interface {
	Lines(ctx context.Context) ([]string, error)
	Links(ctx context.Context) ([]string, error)
}

// FramedPage is a Page whose iframes can be read on their own.
type FramedPage interface {
	Page
	Frames(ctx context.Context) ([]Page, error)
}

// CRC scrapes the CRC dispensary finder page as text.
type CRC struct {
	opener automation.Opener
	cfg    *config.Config
	logger *slog.Logger
}

// NewCRC creates a CRC page harvester.
func NewCRC(opener automation.Opener, cfg *config.Config, logger *slog.Logger) *CRC {
	return &CRC{
		opener: opener,
		cfg:    cfg,
		logger: logger.With("component", "crc"),
	}
}

// Harvest renders the CRC page and extracts records from it.
func (c *CRC) Harvest(ctx context.Context) ([]types.Record, error) {
	w, err := automation.OpenCRC(ctx, c.opener, c.cfg, c.logger)
	if err != nil {
		return nil, err
	}
	defer w.Close()

	if err := w.ScrollPage(ctx, 6, 800*time.Millisecond); err != nil {
		c.logger.Warn("scrolling CRC page failed", "error", err)
	}
	return c.HarvestPage(ctx, framedWidget{w})
}

// HarvestPage extracts records from the page text. When the top-level
// document yields fewer than minTopLevelRows records, every iframe is read
// and the one with the most records wins.
func (c *CRC) HarvestPage(ctx context.Context, p FramedPage) ([]types.Record, error) {
	source := c.cfg.Sources.CRCURL

	best, err := recordsFromPage(ctx, p, source)
	if err != nil {
		c.logger.Warn("reading top-level page failed", "error", err)
	}
	c.logger.Info("top-level candidates", "count", len(best))

	if len(best) < minTopLevelRows {
		frames, err := p.Frames(ctx)
		if err != nil {
			c.logger.Warn("listing iframes failed", "error", err)
		}
		for i, f := range frames {
			recs, err := recordsFromPage(ctx, f, source)
			if err != nil {
				c.logger.Debug("iframe unreadable", "index", i, "error", err)
				continue
			}
			c.logger.Info("iframe candidates", "index", i, "count", len(recs))
			if len(recs) > len(best) {
				best = recs
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, dropped := pipeline.Default(c.logger).Run(best)
	c.logger.Info("CRC harvest done", "records", len(out), "dropped", dropped)
	if len(out) == 0 {
		return nil, types.ErrNoRecords
	}
	return out, nil
}

func recordsFromPage(ctx context.Context, p Page, source string) ([]types.Record, error) {
	lines, err := p.Lines(ctx)
	if err != nil {
		return nil, err
	}
	links, err := p.Links(ctx)
	if err != nil {
		return nil, err
	}
	return extract.RecordsFromLines(lines, links, extract.DefaultLineOptions(source)), nil
}

// framedWidget exposes a Widget's iframes as Pages.
type framedWidget struct {
	*automation.Widget
}

func (f framedWidget) Frames(ctx context.Context) ([]Page, error) {
	frames, err := f.Widget.Frames(ctx)
	if err != nil {
		return nil, err
	}
	pages := make([]Page, len(frames))
	for i, fr := range frames {
		pages[i] = fr
	}
	return pages, nil
}
