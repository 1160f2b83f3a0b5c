package extract

import (
	"net/url"
	"regexp"
	"strings"
)

// SocialHosts are never taken as a dispensary's own website.
var SocialHosts = []string{
	"facebook.com", "instagram.com", "twitter.com", "x.com",
	"youtube.com", "tiktok.com", "linktr.ee",
}

// DirectoryHosts are cannabis menu directories. They sometimes list a phone
// or link out to the brand's own site.
var DirectoryHosts = []string{"weedmaps.com", "leafly.com", "iheartjane.com", "dutchie.com"}

// bannedHosts are maps, search engines, review sites, and the state pages
// the directory itself lives on.
var bannedHosts = []string{
	"nj.gov", "my.atlist.com",
	"google.com", "maps.google.", "bing.com", "mapquest.com", "apple.com", "waze.com",
	"yelp.com", "tripadvisor.com", "square.site",
}

// orderingHosts only matter when choosing a search result.
var orderingHosts = []string{
	"menus.", "menufy.com", "doordash.com", "grubhub.com",
	"uber.com", "lyft.com", "postmates.com",
}

var schemeWWW = regexp.MustCompile(`^https?://(www\.)?`)

// Canonical returns scheme://host/path for u, adding https:// when the
// scheme is missing and dropping query, fragment, and a trailing slash.
func Canonical(u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return ""
	}
	if !IsHTTP(u) {
		u = "https://" + u
	}
	p, err := url.Parse(u)
	if err != nil || p.Host == "" {
		return ""
	}
	path := p.Path
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}
	return p.Scheme + "://" + p.Host + path
}

// Origin returns scheme://host for u, or "" when u cannot be parsed.
func Origin(u string) string {
	p, err := url.Parse(strings.TrimSpace(u))
	if err != nil || p.Scheme == "" || p.Host == "" {
		return ""
	}
	return p.Scheme + "://" + p.Host
}

// Host returns the lowercased host of u.
func Host(u string) string {
	p, err := url.Parse(strings.TrimSpace(u))
	if err != nil {
		return ""
	}
	return strings.ToLower(p.Hostname())
}

// Domain returns the host of u without scheme or a leading "www.".
func Domain(u string) string {
	d := schemeWWW.ReplaceAllString(strings.ToLower(strings.TrimSpace(u)), "")
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	return d
}

// IsHTTP reports whether u has an http or https scheme.
func IsHTTP(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

func hostHasAny(u string, needles []string) bool {
	h := Host(u)
	if h == "" {
		return false
	}
	for _, n := range needles {
		if strings.HasSuffix(n, ".") {
			// label prefix such as "maps.google."
			if strings.HasPrefix(h, n) || strings.Contains(h, "."+n) {
				return true
			}
			continue
		}
		if h == n || strings.HasSuffix(h, "."+n) {
			return true
		}
	}
	return false
}

// IsSocial reports whether u points at a social network.
func IsSocial(u string) bool { return hostHasAny(u, SocialHosts) }

// IsDirectory reports whether u points at a cannabis menu directory.
func IsDirectory(u string) bool { return hostHasAny(u, DirectoryHosts) }

// IsBanned reports whether u can never be a dispensary's own site.
func IsBanned(u string) bool {
	return hostHasAny(u, SocialHosts) || hostHasAny(u, bannedHosts)
}

// IsSearchBanned is IsBanned widened with directories and ordering sites,
// used when picking an official site out of search results.
func IsSearchBanned(u string) bool {
	return IsBanned(u) || hostHasAny(u, DirectoryHosts) || hostHasAny(u, orderingHosts)
}

// IsExternal reports whether href is an http(s) link off the state site
// and not a social network.
func IsExternal(href string) bool {
	if !IsHTTP(href) {
		return false
	}
	if strings.Contains(strings.ToLower(href), "nj.gov") {
		return false
	}
	return !IsSocial(href)
}

// ExternalLinks filters hrefs down to unique external links, keeping order.
func ExternalLinks(hrefs []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, h := range hrefs {
		h = strings.TrimSpace(h)
		if !IsExternal(h) || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out
}
