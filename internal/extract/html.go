package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PhonesFromDocument returns formatted phones from tel: links, or from the
// visible body text when the page has no usable tel: link.
func PhonesFromDocument(doc *goquery.Document) []string {
	var phones []string
	seen := make(map[string]bool)
	doc.Find("a[href^='tel:']").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if p := PhoneFromTel(href); p != "" && !seen[p] {
			seen[p] = true
			phones = append(phones, p)
		}
	})
	if len(phones) > 0 {
		return phones
	}
	return PhonesFromText(VisibleText(doc))
}

// VisibleText returns the body text with scripts and styles removed and
// whitespace collapsed.
func VisibleText(doc *goquery.Document) string {
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript, template").Remove()
	return strings.Join(strings.Fields(body.Text()), " ")
}

// Links returns absolute http(s) hrefs from the document, resolved against
// base, in document order and without duplicates.
func Links(doc *goquery.Document, base string) []string {
	baseURL, _ := url.Parse(base)

	var links []string
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		if baseURL != nil {
			if ref, err := url.Parse(href); err == nil {
				href = baseURL.ResolveReference(ref).String()
			}
		}
		if !IsHTTP(href) || seen[href] {
			return
		}
		seen[href] = true
		links = append(links, href)
	})
	return links
}
