package extract

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// panelXPath matches the overlay containers the map opens for a location.
const panelXPath = `//div[contains(@class,'modal') or contains(@class,'panel') or contains(@class,'drawer') or contains(@class,'inner') or contains(@class,'content') or @role='dialog']`

// maxPanelCandidates bounds how many containers are inspected per panel.
const maxPanelCandidates = 20

// ContactFromPanel scans an opened details panel for a website and a
// phone. Only containers that mention directions or a website are read.
func ContactFromPanel(pageHTML string) (website, phone string, err error) {
	doc, err := htmlquery.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return "", "", err
	}

	candidates, err := htmlquery.QueryAll(doc, panelXPath)
	if err != nil {
		return "", "", err
	}
	if len(candidates) == 0 {
		candidates, _ = htmlquery.QueryAll(doc, "//body//*")
	}
	if len(candidates) > maxPanelCandidates {
		candidates = candidates[:maxPanelCandidates]
	}

	var phones []string
	for _, node := range candidates {
		inner := htmlquery.OutputHTML(node, false)
		if !strings.Contains(inner, "Directions") && !strings.Contains(inner, "Website") {
			continue
		}

		phones = append(phones, telPhones(node)...)
		phones = append(phones, PhonesFromText(htmlquery.InnerText(node))...)

		if website == "" {
			website = firstSiteLink(node)
		}
		if website != "" && len(phones) > 0 {
			break
		}
	}

	if len(phones) > 0 {
		phone = phones[0]
	}
	return website, phone, nil
}

func telPhones(node *html.Node) []string {
	var out []string
	for _, a := range htmlquery.Find(node, `.//a[starts-with(@href,'tel:')]`) {
		if p := PhoneFromTel(htmlquery.SelectAttr(a, "href")); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstSiteLink(node *html.Node) string {
	for _, a := range htmlquery.Find(node, `.//a[@href]`) {
		href := strings.TrimSpace(htmlquery.SelectAttr(a, "href"))
		if !IsHTTP(href) || IsBanned(href) {
			continue
		}
		return href
	}
	return ""
}
