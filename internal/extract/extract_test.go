package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

// --- Phone Tests ---

func TestFormatPhone(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"609-555-0123", "(609) 555-0123"},
		{"(609) 555.0123", "(609) 555-0123"},
		{"+1 609 555 0123", "(609) 555-0123"},
		{"16095550123", "(609) 555-0123"},
		{"555-0123", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FormatPhone(tt.input); got != tt.expected {
			t.Errorf("FormatPhone(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestNormalizePhoneKeepsUnparseable(t *testing.T) {
	if got := NormalizePhone("  ext. 12 "); got != "ext. 12" {
		t.Errorf("expected trimmed input, got %q", got)
	}
}

func TestPhonesFromText(t *testing.T) {
	text := "Call us at (609) 555-0123 or 609.555.0123. Fax: 1-856-555-0199. Order #12345"
	got := PhonesFromText(text)
	if len(got) != 2 {
		t.Fatalf("expected 2 unique phones, got %v", got)
	}
	if got[0] != "(609) 555-0123" || got[1] != "(856) 555-0199" {
		t.Errorf("unexpected phones %v", got)
	}
}

func TestPhoneFromTel(t *testing.T) {
	if got := PhoneFromTel("tel:+16095550123"); got != "(609) 555-0123" {
		t.Errorf("got %q", got)
	}
	if got := PhoneFromTel("mailto:a@b.c"); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

// --- Address Tests ---

func TestLooksLikeAddress(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"123 Main St, Trenton, NJ 08608", true},
		{"55 Route 1, Edison, NJ", true},
		{"Trenton NJ", false},
		{"123 Main St, Philadelphia, PA 19107", false},
	}
	for _, tt := range tests {
		if got := LooksLikeAddress(tt.line); got != tt.want {
			t.Errorf("LooksLikeAddress(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestParseAddress(t *testing.T) {
	a, ok := ParseAddress("1 Main St, Suite 2, Lawrence Township, NJ 08648")
	if !ok {
		t.Fatal("expected address to parse")
	}
	if a.Street != "1 Main St, Suite 2" {
		t.Errorf("street = %q", a.Street)
	}
	if a.City != "Lawrence Township" {
		t.Errorf("city = %q", a.City)
	}
	if a.State != "NJ" || a.Zip != "08648" {
		t.Errorf("state/zip = %q/%q", a.State, a.Zip)
	}

	a, ok = ParseAddress("200 Broad St, Newark, NJ")
	if !ok || a.Zip != "" || a.City != "Newark" {
		t.Errorf("zipless address parsed as %+v (ok=%v)", a, ok)
	}
}

func TestSplitCardAddress(t *testing.T) {
	street, city := SplitCardAddress("9 Elm St, Newark, NJ 07102")
	if street != "9 Elm St" || city != "Newark" {
		t.Errorf("got %q / %q", street, city)
	}
	street, city = SplitCardAddress("no commas here")
	if street != "" || city != "" {
		t.Errorf("expected empty split, got %q / %q", street, city)
	}
}

// --- URL Tests ---

func TestCanonical(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"acme.example", "https://acme.example"},
		{"https://acme.example/shop/?ref=x#top", "https://acme.example/shop"},
		{"http://acme.example/", "http://acme.example/"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Canonical(tt.input); got != tt.expected {
			t.Errorf("Canonical(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestHostClassification(t *testing.T) {
	if !IsSocial("https://www.instagram.com/acme") {
		t.Error("instagram should be social")
	}
	if !IsBanned("https://www.nj.gov/cannabis") {
		t.Error("nj.gov should be banned")
	}
	if IsBanned("https://weedmaps.com/dispensaries/acme") {
		t.Error("directories are not banned for phone lookups")
	}
	if !IsSearchBanned("https://weedmaps.com/dispensaries/acme") {
		t.Error("directories are banned as search picks")
	}
	if !IsDirectory("https://www.leafly.com/x") {
		t.Error("leafly is a directory")
	}
	if IsSearchBanned("https://acmecannabis.example") {
		t.Error("brand site should be allowed")
	}
}

func TestExternalLinks(t *testing.T) {
	got := ExternalLinks([]string{
		"https://acme.example",
		"https://www.nj.gov/cannabis",
		"/relative",
		"https://facebook.com/acme",
		"https://acme.example",
	})
	if len(got) != 1 || got[0] != "https://acme.example" {
		t.Errorf("unexpected links %v", got)
	}
}

// --- Lines Tests ---

func TestRecordsFromLines(t *testing.T) {
	lines := []string{
		"Find a Dispensary",
		"Acme Cannabis",
		"123 Main St, Trenton, NJ 08608",
		"acmecannabis.example",
		"Adult-Use Dispensary",
		"Green Leaf",
		"9 Elm St, Newark, NJ",
	}
	links := []string{"https://www.acmecannabis.example/shop", "https://unrelated.example"}

	recs := RecordsFromLines(lines, links, DefaultLineOptions("crc"))
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d: %+v", len(recs), recs)
	}
	if recs[0].Name != "Acme Cannabis" || recs[0].City != "Trenton" || recs[0].Zip != "08608" {
		t.Errorf("unexpected first record %+v", recs[0])
	}
	if recs[0].Website != "https://www.acmecannabis.example/shop" {
		t.Errorf("expected nearby link, got %q", recs[0].Website)
	}
	if recs[1].Name != "Green Leaf" {
		t.Errorf("heading should be skipped for name, got %q", recs[1].Name)
	}
	if recs[1].Source != "crc" {
		t.Errorf("source not stamped: %q", recs[1].Source)
	}
}

// --- Card Tests ---

func TestContactFromCard(t *testing.T) {
	c := Card{
		Lines: []string{"Get Directions", "Acme Cannabis", "123 Main St, Trenton, NJ 08608", "Call 609-555-0123"},
		Hrefs: []string{
			"https://www.google.com/maps/dir/?q=acme",
			"https://acme.example",
			"https://second.example",
		},
	}
	cc := ContactFromCard(c)
	if cc.Name != "Acme Cannabis" || cc.Street != "123 Main St" || cc.City != "Trenton" {
		t.Errorf("unexpected identity %+v", cc)
	}
	if cc.Website != "https://acme.example" {
		t.Errorf("expected first non-banned link, got %q", cc.Website)
	}
	if cc.Phone != "(609) 555-0123" {
		t.Errorf("expected text phone, got %q", cc.Phone)
	}

	c.Hrefs = append(c.Hrefs, "tel:+18565550199")
	if got := ContactFromCard(c).Phone; got != "(856) 555-0199" {
		t.Errorf("tel: link should win, got %q", got)
	}
}

// --- HTML Tests ---

func doc(t *testing.T, body string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return d
}

func TestPhonesFromDocumentPrefersTel(t *testing.T) {
	d := doc(t, `<html><body><p>Main line 609-555-0000</p><a href="tel:6095550123">Call</a></body></html>`)
	got := PhonesFromDocument(d)
	if len(got) != 1 || got[0] != "(609) 555-0123" {
		t.Errorf("expected tel phone only, got %v", got)
	}
}

func TestPhonesFromDocumentIgnoresScripts(t *testing.T) {
	d := doc(t, `<html><body><script>var x = "609-555-9999";</script><p>Call 856-555-0199</p></body></html>`)
	got := PhonesFromDocument(d)
	if len(got) != 1 || got[0] != "(856) 555-0199" {
		t.Errorf("expected visible phone only, got %v", got)
	}
}

func TestLinksResolvesRelative(t *testing.T) {
	d := doc(t, `<a href="/contact">c</a><a href="https://x.example">x</a><a href="mailto:a@b.c">m</a><a href="/contact">dup</a>`)
	got := Links(d, "https://acme.example/home")
	if len(got) != 2 || got[0] != "https://acme.example/contact" {
		t.Errorf("unexpected links %v", got)
	}
}

// --- Panel Tests ---

func TestContactFromPanel(t *testing.T) {
	page := `<html><body>
		<div class="map-canvas">Map</div>
		<div role="dialog">
			<h2>Acme Cannabis</h2>
			<a href="https://www.google.com/maps/dir/acme">Get Directions</a>
			<a href="https://instagram.com/acme">Instagram</a>
			<a href="https://acme.example">Website</a>
			<a href="tel:+1 (609) 555-0123">Call</a>
		</div>
	</body></html>`

	website, phone, err := ContactFromPanel(page)
	if err != nil {
		t.Fatalf("panel error: %v", err)
	}
	if website != "https://acme.example" {
		t.Errorf("website = %q", website)
	}
	if phone != "(609) 555-0123" {
		t.Errorf("phone = %q", phone)
	}
}

func TestContactFromPanelNoPanel(t *testing.T) {
	website, phone, err := ContactFromPanel(`<html><body><p>nothing here</p></body></html>`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if website != "" || phone != "" {
		t.Errorf("expected empty contact, got %q / %q", website, phone)
	}
}

func TestRecordFromCard(t *testing.T) {
	c := Card{
		Lines: []string{"Get Directions", "Acme Cannabis", "123 Main St, Trenton, NJ 08608"},
		Hrefs: []string{"https://my.atlist.com/map/x", "https://acme.example"},
	}
	rec, ok := RecordFromCard(c, "atlist")
	if !ok {
		t.Fatal("expected a complete record")
	}
	if rec.Name != "Acme Cannabis" || rec.Street != "123 Main St" || rec.City != "Trenton" || rec.Zip != "08608" {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.Website != "https://acme.example" || rec.Source != "atlist" {
		t.Errorf("website/source = %q / %q", rec.Website, rec.Source)
	}

	if _, ok := RecordFromCard(Card{Lines: []string{"Lonely"}}, "atlist"); ok {
		t.Error("single-line card should be rejected")
	}
	if _, ok := RecordFromCard(Card{Lines: []string{"Acme", "Open today"}}, "atlist"); ok {
		t.Error("card without a parseable address should be rejected")
	}
}

func TestHostMatchingIsLabelAware(t *testing.T) {
	if IsSocial("https://fedex.com/track") {
		t.Error("fedex.com must not match x.com")
	}
	if !IsSocial("https://m.facebook.com/acme") {
		t.Error("subdomains should match")
	}
	if !IsBanned("https://maps.google.com/?q=acme") {
		t.Error("maps.google. prefix should match")
	}
}
