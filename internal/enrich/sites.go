// Package enrich fills missing websites and phones on an existing
// dispensary list from the Atlist map, search results and the
// dispensaries' own sites.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/IshaanNene/njbuds/internal/config"
	"github.com/IshaanNene/njbuds/internal/engine"
	"github.com/IshaanNene/njbuds/internal/extract"
	"github.com/IshaanNene/njbuds/internal/fetcher"
	"github.com/IshaanNene/njbuds/internal/observability"
	"github.com/IshaanNene/njbuds/internal/types"
)

// guessTLDs are tried in order when guessing a site from a name.
var guessTLDs = []string{".com", ".org", ".net"}

var nonSlug = regexp.MustCompile(`[^a-z0-9]`)

// errNoPage is returned when none of a row's URLs could be fetched.
var errNoPage = errors.New("no page fetched")

// Sites visits each row's website to confirm where it lands and to find a
// phone number.
type Sites struct {
	fetcher fetcher.Fetcher
	cfg     config.EnrichConfig
	stats   *observability.Stats
	logger  *slog.Logger
}

// NewSites creates a site crawler. stats may be nil.
func NewSites(f fetcher.Fetcher, cfg config.EnrichConfig, stats *observability.Stats, logger *slog.Logger) *Sites {
	if stats == nil {
		stats = observability.NewStats(logger)
	}
	return &Sites{
		fetcher: f,
		cfg:     cfg,
		stats:   stats,
		logger:  logger.With("component", "sites"),
	}
}

// Run enriches every row on pool and returns them in input order.
func (s *Sites) Run(ctx context.Context, records []types.Record, pool *engine.Pool) ([]types.Record, error) {
	return pool.Run(ctx, records, s.Enrich)
}

// Enrich is the per-row task. The website is replaced by the canonical URL
// it redirects to; the phone is only filled when empty. Rows without a
// website are skipped unless domain guessing is on.
func (s *Sites) Enrich(ctx context.Context, rec types.Record) (types.Record, error) {
	website := strings.TrimSpace(rec.Website)
	guessed := false
	if website == "" && s.cfg.GuessDomains {
		website = s.GuessWebsite(ctx, rec.Name)
		guessed = website != ""
	}
	if website == "" {
		return rec, nil
	}

	final, phone, err := s.Crawl(ctx, website)
	if errors.Is(err, errNoPage) || errors.Is(err, types.ErrInvalidURL) {
		return rec, err
	}
	if err != nil {
		s.logger.Debug("crawl incomplete", "name", rec.Name, "error", err)
	}
	if final == "" {
		final = website
	}

	switch {
	case guessed:
		rec.Website = final
		s.stats.WebsitesFilled.Add(1)
	case final != website:
		s.logger.Debug("website updated", "name", rec.Name, "from", website, "to", final)
		rec.Website = final
		s.stats.WebsitesUpdated.Add(1)
	}
	if !rec.HasPhone() && phone != "" {
		rec.Phone = phone
		s.stats.PhonesFilled.Add(1)
	}

	_ = fetcher.Sleep(ctx, fetcher.RandomDelay(s.cfg.DelayMin, s.cfg.DelayMax))
	return rec, nil
}

// Crawl returns the canonical site a website lands on and the first phone
// it shows. Directory listings are read for a phone, or hopped from to the
// first brand link they carry.
func (s *Sites) Crawl(ctx context.Context, website string) (final, phone string, err error) {
	if extract.IsDirectory(extract.Canonical(website)) {
		return s.crawlDirectory(ctx, website)
	}
	return s.crawlBrand(ctx, website)
}

// crawlBrand fetches the homepage, origin first and the full URL when that
// fails, then contact-like paths until a phone shows up.
func (s *Sites) crawlBrand(ctx context.Context, website string) (string, string, error) {
	start := extract.Canonical(website)
	origin := extract.Origin(start)
	if origin == "" {
		return website, "", &types.FetchError{URL: website, Err: types.ErrInvalidURL}
	}

	resp, err := s.fetcher.Get(ctx, origin)
	if err != nil && start != origin {
		resp, err = s.fetcher.Get(ctx, start)
	}
	if err != nil {
		return website, "", fmt.Errorf("%w: %w", errNoPage, err)
	}

	final := extract.Canonical(resp.FinalURL)
	if phone := s.firstPhone(resp); phone != "" {
		return final, phone, nil
	}

	home := extract.Origin(final)
	for _, path := range s.cfg.ContactPaths {
		if err := ctx.Err(); err != nil {
			return final, "", err
		}
		page, err := joinPath(home, path)
		if err != nil {
			continue
		}
		resp, err := s.fetcher.Get(ctx, page)
		if err != nil {
			s.logger.Debug("contact page failed", "url", page, "error", err)
			continue
		}
		if phone := s.firstPhone(resp); phone != "" {
			return final, phone, nil
		}
	}
	return final, "", nil
}

// crawlDirectory reads a weedmaps-style listing. The listing's URL is kept
// unless a brand site is found through it.
func (s *Sites) crawlDirectory(ctx context.Context, dirURL string) (string, string, error) {
	resp, err := s.fetcher.Get(ctx, dirURL)
	if err != nil {
		return dirURL, "", fmt.Errorf("%w: %w", errNoPage, err)
	}
	doc, err := resp.Document()
	if err != nil {
		return dirURL, "", &types.ParseError{URL: dirURL, Err: err}
	}

	if phones := extract.PhonesFromDocument(doc); len(phones) > 0 {
		return dirURL, phones[0], nil
	}
	for _, href := range extract.Links(doc, resp.FinalURL) {
		if extract.IsDirectory(href) || extract.IsBanned(href) {
			continue
		}
		brand := extract.Canonical(href)
		s.logger.Debug("hopping from directory", "directory", dirURL, "brand", brand)
		return s.crawlBrand(ctx, brand)
	}
	return dirURL, "", nil
}

// GuessWebsite tries slug.com, slug.org and slug.net for a name and returns
// the first that answers.
func (s *Sites) GuessWebsite(ctx context.Context, name string) string {
	slug := nonSlug.ReplaceAllString(strings.ToLower(name), "")
	if len(slug) < 4 {
		return ""
	}
	for _, tld := range guessTLDs {
		u := "https://" + slug + tld
		if _, err := s.fetcher.Get(ctx, u); err == nil {
			s.logger.Debug("guessed website", "name", name, "url", u)
			return u
		}
	}
	return ""
}

func (s *Sites) firstPhone(resp *types.Response) string {
	doc, err := resp.Document()
	if err != nil {
		return ""
	}
	if phones := extract.PhonesFromDocument(doc); len(phones) > 0 {
		return phones[0]
	}
	return ""
}

func joinPath(origin, path string) (string, error) {
	base, err := url.Parse(origin)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}
