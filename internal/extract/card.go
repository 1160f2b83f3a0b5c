package extract

import (
	"strings"

	"github.com/IshaanNene/njbuds/internal/types"
)

var cardButtons = map[string]bool{
	"get directions": true,
	"directions":     true,
	"website":        true,
	"view website":   true,
}

// Card is the visible text and link targets of one map list card.
type Card struct {
	Lines []string
	Hrefs []string
}

// CardContact is what a card yields: an identity and optional contacts.
type CardContact struct {
	Name    string
	Street  string
	City    string
	Website string
	Phone   string
}

// CardIdentity returns the card's name and, when an address line is
// present, its street and city.
func CardIdentity(lines []string) (name, street, city string) {
	for _, ln := range lines {
		ln = strings.TrimSpace(ln)
		if ln == "" || cardButtons[strings.ToLower(ln)] {
			continue
		}
		name = ln
		break
	}
	for _, ln := range lines {
		if LooksLikeAddress(ln) {
			street, city = SplitCardAddress(ln)
			break
		}
	}
	return name, street, city
}

// ContactFromCard reads a card's tel: link and first usable external link,
// falling back to a phone in the card text.
func ContactFromCard(c Card) CardContact {
	var cc CardContact
	cc.Name, cc.Street, cc.City = CardIdentity(c.Lines)

	for _, href := range c.Hrefs {
		href = strings.TrimSpace(href)
		if strings.HasPrefix(strings.ToLower(href), "tel:") {
			if p := PhoneFromTel(href); p != "" {
				cc.Phone = p
			}
			continue
		}
		if !IsHTTP(href) || IsBanned(href) || cc.Website != "" {
			continue
		}
		cc.Website = href
	}

	if cc.Phone == "" {
		cc.Phone = FirstPhone(strings.Join(c.Lines, " "))
	}
	return cc
}

// RecordFromCard builds a harvest record from a card. The address line is
// the first NJ-looking line, or the second line when none matches. ok is
// false when the card lacks a name or a street/city.
func RecordFromCard(c Card, source string) (rec types.Record, ok bool) {
	name, _, _ := CardIdentity(c.Lines)

	addrLine := ""
	for _, ln := range c.Lines {
		if LooksLikeAddress(ln) {
			addrLine = ln
			break
		}
	}
	if name == "" || addrLine == "" {
		if len(c.Lines) < 2 {
			return rec, false
		}
		if name == "" {
			name = strings.TrimSpace(c.Lines[0])
		}
		if addrLine == "" {
			addrLine = c.Lines[1]
		}
	}

	rec = types.Record{Name: name, Source: source}
	if a, parsed := ParseAddress(addrLine); parsed {
		rec.Street, rec.City, rec.State, rec.Zip = a.Street, a.City, a.State, a.Zip
	}

	for _, href := range c.Hrefs {
		href = strings.TrimSpace(href)
		if IsHTTP(href) && !IsBanned(href) {
			rec.Website = href
			break
		}
	}
	return rec, rec.IsComplete()
}
