package harvest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IshaanNene/njbuds/internal/automation"
	"github.com/IshaanNene/njbuds/internal/config"
	"github.com/IshaanNene/njbuds/internal/extract"
	"github.com/IshaanNene/njbuds/internal/fetcher"
	"github.com/IshaanNene/njbuds/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestFetcher(t *testing.T) *fetcher.HTTPFetcher {
	t.Helper()
	cfg := config.DefaultConfig().HTTP
	cfg.Timeout = 5 * time.Second
	cfg.MaxRetries = 0
	cfg.RatePerHost = 0
	f, err := fetcher.NewHTTPFetcher(cfg, testLogger)
	if err != nil {
		t.Fatalf("NewHTTPFetcher: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func testSources(base string) config.SourcesConfig {
	src := config.DefaultConfig().Sources
	src.OpenDataJSON = base + "/resource/rows.json"
	src.OpenDataCSV = base + "/resource/rows.csv"
	return src
}

// --- Open Data ---

const jsonRows = `[
 {"Business_Name": "Green Leaf", "address": "12 Main St", "city": "Trenton", "zip": "08608", "phone": "609.555.0101"},
 {"business_name": "Green Leaf", "address": "12 Main St", "city": "Trenton"},
 {"dispensary_name": "Shore Buds", "location": {"address": "9 Ocean Ave", "city": "Long Branch", "zip": "07740"}},
 {"name": "No Address"}
]`

func TestOpenDataJSON(t *testing.T) {
	var gotLimit, gotHeader, gotParam string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("$limit")
		gotParam = r.URL.Query().Get("$$app_token")
		gotHeader = r.Header.Get("X-App-Token")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, jsonRows)
	}))
	defer srv.Close()

	src := testSources(srv.URL)
	src.OpenDataToken = "tok"
	recs, err := NewOpenData(newTestFetcher(t), src, testLogger).Harvest(context.Background())
	if err != nil {
		t.Fatalf("Harvest: %v", err)
	}

	if gotLimit != "5000" || gotHeader != "tok" || gotParam != "tok" {
		t.Errorf("limit=%q header=%q param=%q", gotLimit, gotHeader, gotParam)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2: %+v", len(recs), recs)
	}
	if recs[0].Name != "Green Leaf" || recs[0].State != "NJ" || recs[0].Phone != "(609) 555-0101" {
		t.Errorf("first record = %+v", recs[0])
	}
	if recs[0].Source != OpenDataSource {
		t.Errorf("source = %q", recs[0].Source)
	}
	if recs[1].Street != "9 Ocean Ave" || recs[1].City != "Long Branch" || recs[1].Zip != "07740" {
		t.Errorf("nested location not used: %+v", recs[1])
	}
}

func TestOpenDataFallsBackToCSV(t *testing.T) {
	var csvHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/resource/rows.json", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})
	mux.HandleFunc("/resource/rows.csv", func(w http.ResponseWriter, r *http.Request) {
		csvHits.Add(1)
		io.WriteString(w, "Retailer_Name,Street_Address,Municipality,Zipcode\n"+
			"Garden Greens,400 Route 1,Edison,08817\n"+
			",missing name,Edison,08817\n")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	recs, err := NewOpenData(newTestFetcher(t), testSources(srv.URL), testLogger).Harvest(context.Background())
	if err != nil {
		t.Fatalf("Harvest: %v", err)
	}
	if csvHits.Load() != 1 {
		t.Errorf("csv fetched %d times", csvHits.Load())
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records: %+v", len(recs), recs)
	}
	want := types.Record{Name: "Garden Greens", Street: "400 Route 1", City: "Edison", State: "NJ", Zip: "08817", Source: OpenDataSource}
	if recs[0] != want {
		t.Errorf("record = %+v, want %+v", recs[0], want)
	}
}

func TestOpenDataBothEndpointsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewOpenData(newTestFetcher(t), testSources(srv.URL), testLogger).Harvest(context.Background())
	if !errors.Is(err, types.ErrBlocked) {
		t.Fatalf("err = %v, want ErrBlocked", err)
	}
}

func TestOpenDataInvalidJSONFallsBack(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/resource/rows.json", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>maintenance</html>")
	})
	mux.HandleFunc("/resource/rows.csv", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "name,address,city\nGreen Leaf,12 Main St,Trenton\n")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	recs, err := NewOpenData(newTestFetcher(t), testSources(srv.URL), testLogger).Harvest(context.Background())
	if err != nil {
		t.Fatalf("Harvest: %v", err)
	}
	if len(recs) != 1 || recs[0].Name != "Green Leaf" {
		t.Errorf("records = %+v", recs)
	}
}

func TestNormalizeRowsCells(t *testing.T) {
	rows, err := DecodeJSONRows([]byte(`[{"NAME": "A", "city": "Newark", "zip": 7102, "state": ""}]`))
	if err != nil {
		t.Fatalf("DecodeJSONRows: %v", err)
	}
	recs := NormalizeRows(rows)
	if len(recs) != 1 {
		t.Fatalf("got %d records", len(recs))
	}
	if recs[0].Name != "A" || recs[0].Zip != "7102" || recs[0].State != "NJ" {
		t.Errorf("record = %+v", recs[0])
	}
}

func TestDecodeCSVRowsEmpty(t *testing.T) {
	rows, err := DecodeCSVRows(strings.NewReader(""))
	if err != nil || rows != nil {
		t.Errorf("rows = %v, err = %v", rows, err)
	}
}

// --- CRC ---

type fakePage struct {
	lines  []string
	links  []string
	err    error
	frames []Page
}

func (p *fakePage) Lines(context.Context) ([]string, error) { return p.lines, p.err }
func (p *fakePage) Links(context.Context) ([]string, error) { return p.links, p.err }
func (p *fakePage) Frames(context.Context) ([]Page, error)  { return p.frames, nil }

var crcLines = []string{
	"Find a Dispensary",
	"Green Leaf",
	"12 Main St, Trenton, NJ 08608",
	"Visit greenleafnj.com",
	"Shore Buds",
	"9 Ocean Ave, Long Branch, NJ 07740",
}

func TestCRCPrefersBestFrame(t *testing.T) {
	page := &fakePage{
		lines: []string{"Welcome", "Nothing here"},
		frames: []Page{
			&fakePage{err: errors.New("cross-origin")},
			&fakePage{lines: crcLines, links: []string{"https://www.greenleafnj.com/", "https://facebook.com/x"}},
			&fakePage{lines: crcLines[:3]},
		},
	}

	cfg := config.DefaultConfig()
	recs, err := NewCRC(nil, cfg, testLogger).HarvestPage(context.Background(), page)
	if err != nil {
		t.Fatalf("HarvestPage: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records: %+v", len(recs), recs)
	}
	if recs[0].Website != "https://www.greenleafnj.com/" {
		t.Errorf("website = %q", recs[0].Website)
	}
	if recs[1].Name != "Shore Buds" || recs[1].City != "Long Branch" {
		t.Errorf("second record = %+v", recs[1])
	}
	if recs[0].Source != cfg.Sources.CRCURL {
		t.Errorf("source = %q", recs[0].Source)
	}
}

func TestCRCNoRecords(t *testing.T) {
	page := &fakePage{lines: []string{"Nothing"}}
	_, err := NewCRC(nil, config.DefaultConfig(), testLogger).HarvestPage(context.Background(), page)
	if !errors.Is(err, types.ErrNoRecords) {
		t.Fatalf("err = %v, want ErrNoRecords", err)
	}
}

// --- Atlist ---

type fakeMap struct {
	fakePage
	cards    []extract.Card
	prepared automation.Filter
}

func (m *fakeMap) Prepare(_ context.Context, f automation.Filter) error {
	m.prepared = f
	return nil
}

func (m *fakeMap) Cards(context.Context) ([]extract.Card, error) { return m.cards, nil }

func TestAtlistHarvestCards(t *testing.T) {
	m := &fakeMap{cards: []extract.Card{
		{
			Lines: []string{"Green Leaf", "12 Main St, Trenton, NJ 08608", "Get Directions"},
			Hrefs: []string{"https://maps.google.com/?q=x", "https://greenleafnj.com/shop"},
		},
		{Lines: []string{"Green Leaf", "12 Main St, Trenton, NJ 08608", "Get Directions"}},
		{Lines: []string{"Get Directions"}},
	}}

	a := NewAtlist(nil, config.DefaultConfig(), automation.CategoryMedicinal, testLogger)
	recs, err := a.HarvestMap(context.Background(), m, "https://my.atlist.com/map/abc")
	if err != nil {
		t.Fatalf("HarvestMap: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records: %+v", len(recs), recs)
	}
	if recs[0].Website != "https://greenleafnj.com/shop" {
		t.Errorf("website = %q", recs[0].Website)
	}
	if recs[0].Source != "https://my.atlist.com/map/abc" {
		t.Errorf("source = %q", recs[0].Source)
	}
	if len(m.prepared.On) == 0 || len(m.prepared.Off) == 0 {
		t.Errorf("filter not applied: %+v", m.prepared)
	}
}

func TestAtlistFallsBackToText(t *testing.T) {
	m := &fakeMap{fakePage: fakePage{lines: crcLines}}
	a := NewAtlist(nil, config.DefaultConfig(), automation.CategoryAll, testLogger)
	recs, err := a.HarvestMap(context.Background(), m, "src")
	if err != nil {
		t.Fatalf("HarvestMap: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("got %d records", len(recs))
	}
}
