package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IshaanNene/njbuds/internal/automation"
	"github.com/IshaanNene/njbuds/internal/config"
	"github.com/IshaanNene/njbuds/internal/extract"
	"github.com/IshaanNene/njbuds/internal/observability"
	"github.com/IshaanNene/njbuds/internal/reconcile"
	"github.com/IshaanNene/njbuds/internal/types"
)

// AtlistMode selects how contacts are read off the map.
type AtlistMode string

const (
	// ModeCards reads each list card's text and links.
	ModeCards AtlistMode = "cards"
	// ModeDetails opens each card's details panel.
	ModeDetails AtlistMode = "details"
)

// ParseAtlistMode maps a flag value to an AtlistMode.
func ParseAtlistMode(s string) (AtlistMode, error) {
	switch m := AtlistMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeCards, ModeDetails:
		return m, nil
	case "":
		return ModeCards, nil
	default:
		return "", fmt.Errorf("unknown atlist mode %q (want cards or details)", s)
	}
}

// CardSource is the Atlist map as the enricher drives it.
type CardSource interface {
	Prepare(ctx context.Context, f automation.Filter) error
	Cards(ctx context.Context) ([]extract.Card, error)
	CardCount(ctx context.Context) (int, error)
	OpenCard(ctx context.Context, i int) (extract.Card, string, error)
	ClosePanel(ctx context.Context) error
}

// Atlist fills websites and phones from the Atlist map.
type Atlist struct {
	opener automation.Opener
	cfg    *config.Config
	mode   AtlistMode
	stats  *observability.Stats
	logger *slog.Logger
}

// NewAtlist creates an Atlist enricher. stats may be nil.
func NewAtlist(opener automation.Opener, cfg *config.Config, mode AtlistMode, stats *observability.Stats, logger *slog.Logger) *Atlist {
	if stats == nil {
		stats = observability.NewStats(logger)
	}
	return &Atlist{
		opener: opener,
		cfg:    cfg,
		mode:   mode,
		stats:  stats,
		logger: logger.With("component", "atlist_enrich", "mode", string(mode)),
	}
}

// Run opens the map and merges its contacts into base. It returns nil rows
// when the map could not be opened or prepared.
func (a *Atlist) Run(ctx context.Context, base []types.Record) ([]types.Record, error) {
	w, _, err := automation.OpenAtlist(ctx, a.opener, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	defer w.Close()
	return a.Enrich(ctx, w, base)
}

// Enrich lists every category on src, collects contacts and merges them
// into base. A cancelled run still merges what was collected.
func (a *Atlist) Enrich(ctx context.Context, src CardSource, base []types.Record) ([]types.Record, error) {
	a.stats.Rows.Store(int64(len(base)))
	if err := src.Prepare(ctx, automation.CategoryAll.Filter()); err != nil {
		return nil, err
	}

	var (
		candidates []types.Record
		err        error
	)
	switch a.mode {
	case ModeDetails:
		candidates, err = a.fromPanels(ctx, src)
	default:
		candidates, err = a.fromCards(ctx, src)
	}

	merged, ms := reconcile.Merge(base, candidates)
	a.stats.WebsitesFilled.Add(int64(ms.WebsitesFilled))
	a.stats.PhonesFilled.Add(int64(ms.PhonesFilled))
	a.stats.Dropped.Add(int64(ms.CandidatesDropped))
	a.stats.Processed.Add(int64(len(base)))
	a.logger.Info("merged map contacts",
		"candidates", ms.Candidates,
		"matched", ms.Matched,
		"websites_filled", ms.WebsitesFilled,
		"phones_filled", ms.PhonesFilled,
	)
	return merged, err
}

func (a *Atlist) fromCards(ctx context.Context, src CardSource) ([]types.Record, error) {
	cards, err := src.Cards(ctx)
	if err != nil {
		return nil, err
	}
	var out []types.Record
	for _, c := range cards {
		cc := extract.ContactFromCard(c)
		if cc.Name == "" || cc.Street == "" && cc.City == "" {
			continue
		}
		if rec := contactRecord(cc); rec.HasWebsite() || rec.HasPhone() {
			out = append(out, rec)
		}
	}
	a.logger.Info("card contacts", "cards", len(cards), "contacts", len(out))
	return out, nil
}

// fromPanels clicks through every card and reads its details panel.
func (a *Atlist) fromPanels(ctx context.Context, src CardSource) ([]types.Record, error) {
	n, err := src.CardCount(ctx)
	if err != nil {
		return nil, err
	}
	a.logger.Info("cards detected", "count", n)

	var out []types.Record
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		card, html, err := src.OpenCard(ctx, i)
		if err != nil {
			a.logger.Debug("card not opened", "index", i, "error", err)
			continue
		}
		cc := extract.ContactFromCard(extract.Card{Lines: card.Lines})
		if cc.Name == "" && cc.Street == "" {
			_ = src.ClosePanel(ctx)
			continue
		}

		website, phone, err := extract.ContactFromPanel(html)
		if err != nil {
			a.logger.Debug("panel unreadable", "index", i, "error", err)
		}
		if err := src.ClosePanel(ctx); err != nil {
			a.logger.Debug("panel not closed", "index", i, "error", err)
		}

		if website != "" || phone != "" {
			cc.Website, cc.Phone = website, phone
			out = append(out, contactRecord(cc))
		}
		a.stats.LogProgress(i+1, n)

		if err := sleep(ctx, 150*time.Millisecond); err != nil {
			return out, err
		}
	}
	return out, nil
}

func contactRecord(cc extract.CardContact) types.Record {
	return types.Record{
		Name:    cc.Name,
		Street:  cc.Street,
		City:    cc.City,
		Website: cc.Website,
		Phone:   cc.Phone,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
