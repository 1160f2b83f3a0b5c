// Package automation drives the NJ CRC finder page and the Atlist map
// widget it embeds: category toggles, list scrolling, card enumeration and
// the per-card details panel.
package automation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/IshaanNene/njbuds/internal/config"
	"github.com/IshaanNene/njbuds/internal/extract"
)

const (
	// listAttr marks the list pane found by markListJS.
	listAttr = "data-njbuds-list"

	// cardAnchorXPath matches the control every list card carries.
	cardAnchorXPath = `//a[contains(., 'Get Directions')] | //button[contains(., 'Get Directions')]`

	// cardXPath climbs from a card anchor to its card container.
	cardXPath = `./ancestor::*[self::div or self::li or self::article or self::section][1]`

	closeXPath = `//button[contains(., 'Close') or contains(., '×') or contains(., 'close')]`

	// windowScrollRounds bounds the window-scroll fallback.
	windowScrollRounds = 14
)

// Widget wraps a Rod page showing the CRC finder or the Atlist map.
type Widget struct {
	page   *rod.Page
	cfg    config.BrowserConfig
	logger *slog.Logger
}

// NewWidget wraps page.
func NewWidget(page *rod.Page, cfg config.BrowserConfig, logger *slog.Logger) *Widget {
	return &Widget{
		page:   page,
		cfg:    cfg,
		logger: logger.With("component", "widget"),
	}
}

// Close closes the underlying page.
func (w *Widget) Close() error {
	return w.page.Close()
}

func (w *Widget) on(ctx context.Context) *rod.Page {
	return w.page.Context(ctx)
}

// --- Page Content ---

// Lines returns the page's visible text, one trimmed line each.
func (w *Widget) Lines(ctx context.Context) ([]string, error) {
	var lines []string
	if err := w.evalInto(ctx, &lines, linesJS); err != nil {
		return nil, fmt.Errorf("read lines: %w", err)
	}
	return lines, nil
}

// Links returns the page's external links, de-duplicated in page order.
func (w *Widget) Links(ctx context.Context) ([]string, error) {
	var hrefs []string
	if err := w.evalInto(ctx, &hrefs, linksJS); err != nil {
		return nil, fmt.Errorf("read links: %w", err)
	}
	return extract.ExternalLinks(hrefs), nil
}

// IframeSources returns the src attribute of every iframe on the page.
func (w *Widget) IframeSources(ctx context.Context) ([]string, error) {
	var srcs []string
	if err := w.evalInto(ctx, &srcs, iframeSrcsJS); err != nil {
		return nil, fmt.Errorf("read iframes: %w", err)
	}
	return srcs, nil
}

// AtlistSource returns the embedded Atlist map URL, or fallback when the
// page has no such iframe.
func (w *Widget) AtlistSource(ctx context.Context, fallback string) string {
	srcs, err := w.IframeSources(ctx)
	if err != nil {
		w.logger.Warn("iframe discovery failed, using fallback", "error", err)
		return fallback
	}
	for _, src := range srcs {
		if strings.Contains(src, "my.atlist.com/map") {
			return src
		}
	}
	return fallback
}

// Frames returns a Widget for each iframe's document. Frames that cannot
// be entered are skipped.
func (w *Widget) Frames(ctx context.Context) ([]*Widget, error) {
	els, err := w.on(ctx).Elements("iframe")
	if err != nil {
		return nil, fmt.Errorf("find iframes: %w", err)
	}
	frames := make([]*Widget, 0, len(els))
	for i, el := range els {
		fp, err := el.Frame()
		if err != nil {
			w.logger.Debug("iframe not accessible", "index", i, "error", err)
			continue
		}
		frames = append(frames, &Widget{page: fp, cfg: w.cfg, logger: w.logger.With("frame", i)})
	}
	return frames, nil
}

// --- Map Controls ---

// ZoomOut presses the zoom-out control the configured number of times so
// statewide pins are listed.
func (w *Widget) ZoomOut(ctx context.Context) (int, error) {
	n, err := w.evalInt(ctx, zoomOutJS, w.cfg.ZoomOutSteps)
	if err != nil {
		return 0, fmt.Errorf("zoom out: %w", err)
	}
	return n, nil
}

// SetToggles switches every control matching labels on (or off).
func (w *Widget) SetToggles(ctx context.Context, labels []string, on bool) (int, error) {
	if len(labels) == 0 {
		return 0, nil
	}
	n, err := w.evalInt(ctx, setTogglesJS, labels, on)
	if err != nil {
		return 0, fmt.Errorf("set toggles: %w", err)
	}
	return n, nil
}

// ApplyFilter sets the category toggles. Off labels go first, then on
// labels; the pass runs twice because the widget re-renders after clicks.
func (w *Widget) ApplyFilter(ctx context.Context, f Filter) error {
	onPause := time.Second
	if len(f.Off) > 0 {
		onPause = 1200 * time.Millisecond
	}
	for pass := 0; pass < 2; pass++ {
		off := 0
		if len(f.Off) > 0 {
			n, err := w.SetToggles(ctx, f.Off, false)
			if err != nil {
				return err
			}
			off = n
			if err := sleep(ctx, 800*time.Millisecond); err != nil {
				return err
			}
		}
		on, err := w.SetToggles(ctx, f.On, true)
		if err != nil {
			return err
		}
		w.logger.Debug("toggles set", "pass", pass, "off", off, "on", on)
		if err := sleep(ctx, onPause); err != nil {
			return err
		}
	}
	return nil
}

// ScrollPage scrolls the window down a third of its height steps times so
// lazily rendered sections load.
func (w *Widget) ScrollPage(ctx context.Context, steps int, pause time.Duration) error {
	for i := 0; i < steps; i++ {
		if _, err := w.on(ctx).Eval(scrollByJS); err != nil {
			return fmt.Errorf("scroll page: %w", err)
		}
		if err := sleep(ctx, pause); err != nil {
			return err
		}
	}
	return nil
}

// ScrollListUntilStable scrolls the list pane end-to-top until its text
// stops growing for SettleRounds rounds, so every lazy-loaded card is
// present. Without a list pane it scrolls the window instead.
func (w *Widget) ScrollListUntilStable(ctx context.Context) error {
	var found bool
	if err := w.evalInto(ctx, &found, markListJS, listAttr); err != nil {
		return fmt.Errorf("find list: %w", err)
	}

	pause := w.cfg.ScrollPause
	rounds := w.cfg.ScrollRounds
	scroll := func(toEnd bool) (int, error) { return w.evalInt(ctx, scrollListJS, listAttr, toEnd) }
	if !found {
		w.logger.Debug("no list pane, scrolling window")
		rounds = windowScrollRounds
		scroll = func(toEnd bool) (int, error) { return w.evalInt(ctx, scrollWindowJS, toEnd) }
	}

	prev, stable := -1, 0
	for round := 0; round < rounds; round++ {
		if _, err := scroll(true); err != nil {
			return fmt.Errorf("scroll: %w", err)
		}
		if err := sleep(ctx, pause); err != nil {
			return err
		}
		cur, err := scroll(false)
		if err != nil {
			return fmt.Errorf("scroll: %w", err)
		}
		if err := sleep(ctx, pause*7/10); err != nil {
			return err
		}

		if cur == prev {
			stable++
			if stable >= w.cfg.SettleRounds {
				w.logger.Debug("list stable", "round", round, "text_len", cur)
				return nil
			}
			continue
		}
		stable, prev = 0, cur
	}
	return nil
}

// Prepare readies a freshly opened map: zoom out, apply the filter, load
// the whole list.
func (w *Widget) Prepare(ctx context.Context, f Filter) error {
	if n, err := w.ZoomOut(ctx); err != nil {
		w.logger.Warn("zoom out failed", "error", err)
	} else {
		w.logger.Debug("zoomed out", "clicks", n)
	}
	if err := w.ApplyFilter(ctx, f); err != nil {
		return err
	}
	return w.ScrollListUntilStable(ctx)
}

// --- Cards ---

// Cards returns the text lines and link targets of every list card.
func (w *Widget) Cards(ctx context.Context) ([]extract.Card, error) {
	cards, err := w.cardElements(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]extract.Card, 0, len(cards))
	for i, card := range cards {
		c, err := readCard(card)
		if err != nil {
			w.logger.Debug("card unreadable", "index", i, "error", err)
			continue
		}
		out = append(out, c)
	}
	w.logger.Info("cards read", "count", len(out))
	return out, nil
}

// CardCount returns the number of cards currently listed.
func (w *Widget) CardCount(ctx context.Context) (int, error) {
	anchors, err := w.on(ctx).ElementsX(cardAnchorXPath)
	if err != nil {
		return 0, fmt.Errorf("find cards: %w", err)
	}
	return len(anchors), nil
}

// OpenCard clicks card i and returns the page HTML with its details panel
// open. Card i is re-resolved on every call since the list re-renders.
func (w *Widget) OpenCard(ctx context.Context, i int) (extract.Card, string, error) {
	cards, err := w.cardElements(ctx)
	if err != nil {
		return extract.Card{}, "", err
	}
	if i < 0 || i >= len(cards) {
		return extract.Card{}, "", fmt.Errorf("card %d out of range (%d cards)", i, len(cards))
	}
	card := cards[i]

	c, err := readCard(card)
	if err != nil {
		return extract.Card{}, "", err
	}

	if err := card.ScrollIntoView(); err != nil {
		return c, "", fmt.Errorf("scroll to card: %w", err)
	}
	if err := sleep(ctx, 300*time.Millisecond); err != nil {
		return c, "", err
	}
	if err := card.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return c, "", fmt.Errorf("click card: %w", err)
	}
	if err := sleep(ctx, 800*time.Millisecond); err != nil {
		return c, "", err
	}

	html, err := w.on(ctx).HTML()
	if err != nil {
		return c, "", fmt.Errorf("read panel: %w", err)
	}
	return c, html, nil
}

// ClosePanel dismisses an open details panel through its close button, or
// by clicking the page body when there is none.
func (w *Widget) ClosePanel(ctx context.Context) error {
	page := w.on(ctx)
	buttons, err := page.ElementsX(closeXPath)
	if err == nil && len(buttons) > 0 {
		if _, err := buttons.First().Eval(clickThisJS); err == nil {
			return sleep(ctx, 600*time.Millisecond)
		}
	}
	if _, err := page.Eval(bodyClickJS); err != nil {
		return fmt.Errorf("close panel: %w", err)
	}
	return sleep(ctx, 300*time.Millisecond)
}

func (w *Widget) cardElements(ctx context.Context) ([]*rod.Element, error) {
	anchors, err := w.on(ctx).ElementsX(cardAnchorXPath)
	if err != nil {
		return nil, fmt.Errorf("find cards: %w", err)
	}
	cards := make([]*rod.Element, 0, len(anchors))
	for _, a := range anchors {
		card, err := a.ElementX(cardXPath)
		if err != nil {
			continue
		}
		cards = append(cards, card)
	}
	return cards, nil
}

func readCard(card *rod.Element) (extract.Card, error) {
	text, err := card.Text()
	if err != nil {
		return extract.Card{}, err
	}
	var c extract.Card
	for _, ln := range strings.Split(text, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			c.Lines = append(c.Lines, ln)
		}
	}

	links, err := card.Elements("a[href]")
	if err != nil {
		return c, nil
	}
	for _, a := range links {
		href, err := a.Property("href")
		if err != nil {
			continue
		}
		if s := strings.TrimSpace(href.Str()); s != "" {
			c.Hrefs = append(c.Hrefs, s)
		}
	}
	return c, nil
}

// --- Eval Helpers ---

func (w *Widget) evalInto(ctx context.Context, v any, js string, args ...any) error {
	res, err := w.on(ctx).Eval(js, args...)
	if err != nil {
		return err
	}
	return res.Value.Unmarshal(v)
}

func (w *Widget) evalInt(ctx context.Context, js string, args ...any) (int, error) {
	res, err := w.on(ctx).Eval(js, args...)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
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
