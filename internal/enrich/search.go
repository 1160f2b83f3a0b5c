package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/njbuds/internal/config"
	"github.com/IshaanNene/njbuds/internal/engine"
	"github.com/IshaanNene/njbuds/internal/extract"
	"github.com/IshaanNene/njbuds/internal/fetcher"
	"github.com/IshaanNene/njbuds/internal/observability"
	"github.com/IshaanNene/njbuds/internal/types"
)

// Result link selectors, current DuckDuckGo layout first.
const (
	resultTitleSelector   = "a[data-testid='result-title-a']"
	resultClassicSelector = "a.result__a"
)

// Search looks up official websites for rows that have none.
type Search struct {
	fetcher    fetcher.Fetcher
	endpoint   string
	cfg        config.EnrichConfig
	checkpoint *engine.Checkpointer
	stats      *observability.Stats
	logger     *slog.Logger
}

// NewSearch creates a website finder querying endpoint through f.
// checkpoint and stats may be nil.
func NewSearch(f fetcher.Fetcher, endpoint string, cfg config.EnrichConfig, checkpoint *engine.Checkpointer, stats *observability.Stats, logger *slog.Logger) *Search {
	if stats == nil {
		stats = observability.NewStats(logger)
	}
	return &Search{
		fetcher:    f,
		endpoint:   endpoint,
		cfg:        cfg,
		checkpoint: checkpoint,
		stats:      stats,
		logger:     logger.With("component", "search", "backend", f.Type()),
	}
}

// Queries returns the search queries tried for a row, in order.
func Queries(rec types.Record) []string {
	name := strings.TrimSpace(rec.Name)
	city := strings.TrimSpace(rec.City)
	return []string{
		strings.TrimSpace(fmt.Sprintf("%s %s NJ dispensary", name, city)),
		strings.TrimSpace(fmt.Sprintf("%s %s New Jersey cannabis", name, city)),
	}
}

// Run fills the website of every row that lacks one. Rows are searched one
// at a time. When ctx is cancelled, the rows are returned as they stand
// along with ctx's error.
func (s *Search) Run(ctx context.Context, records []types.Record) ([]types.Record, error) {
	out := append([]types.Record(nil), records...)
	total := len(out)
	s.stats.Rows.Store(int64(total))

	for i := range out {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		searched := !out[i].HasWebsite() && strings.TrimSpace(out[i].Name) != ""
		if searched {
			if site := s.FindWebsite(ctx, out[i]); site != "" {
				out[i].Website = site
				s.stats.WebsitesFilled.Add(1)
				s.logger.Debug("website found", "name", out[i].Name, "website", site)
			}
		}
		s.stats.Processed.Add(1)

		s.stats.LogProgress(i+1, total)
		if s.checkpoint != nil {
			_ = s.checkpoint.Maybe(ctx, i+1, func() []types.Record {
				return append([]types.Record(nil), out...)
			})
		}
		if searched {
			if err := fetcher.Sleep(ctx, s.cfg.SearchDelay); err != nil {
				return out, err
			}
		}
	}
	return out, nil
}

// FindWebsite runs the queries for rec until one returns results and picks
// the best link. Search failures yield "".
func (s *Search) FindWebsite(ctx context.Context, rec types.Record) string {
	for _, q := range Queries(rec) {
		links, err := s.TopLinks(ctx, q)
		if err != nil {
			s.stats.FetchErrors.Add(1)
			s.logger.Debug("search failed", "query", q, "error", err)
			continue
		}
		if len(links) > 0 {
			return PickBest(links)
		}
	}
	return ""
}

// TopLinks returns the canonical result links for query.
func (s *Search) TopLinks(ctx context.Context, query string) ([]string, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, &types.FetchError{URL: s.endpoint, Err: types.ErrInvalidURL}
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	resp, err := s.fetcher.Get(ctx, u.String())
	if err != nil {
		return nil, err
	}
	doc, err := resp.Document()
	if err != nil {
		return nil, &types.ParseError{URL: resp.URL, Err: err}
	}
	return ResultLinks(doc, s.cfg.MaxSearchLinks), nil
}

// ResultLinks reads up to limit result links from a results page. The
// classic layout is consulted when the current one yields fewer than two;
// it always contributes at least one link when it has any.
// Links are canonicalized and de-duplicated.
func ResultLinks(doc *goquery.Document, limit int) []string {
	var raw []string
	collect := func(sel string) {
		doc.Find(sel).EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			if href = resultTarget(href); extract.IsHTTP(href) {
				raw = append(raw, href)
			}
			return limit <= 0 || len(raw) < limit
		})
	}
	collect(resultTitleSelector)
	if len(raw) < 2 {
		collect(resultClassicSelector)
	}

	var out []string
	seen := make(map[string]bool)
	for _, u := range raw {
		c := extract.Canonical(u)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// resultTarget unwraps DuckDuckGo's redirect links (/l/?uddg=...).
func resultTarget(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

// PickBest returns the first link that can be an official site, else the
// first link.
func PickBest(links []string) string {
	for _, u := range links {
		if !extract.IsSearchBanned(u) {
			return u
		}
	}
	if len(links) > 0 {
		return links[0]
	}
	return ""
}
