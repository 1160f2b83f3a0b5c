// Package harvest builds base dispensary lists from the NJ open-data API,
// the CRC finder page and the Atlist map.
package harvest

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/IshaanNene/njbuds/internal/config"
	"github.com/IshaanNene/njbuds/internal/fetcher"
	"github.com/IshaanNene/njbuds/internal/pipeline"
	"github.com/IshaanNene/njbuds/internal/types"
)

// OpenDataSource is stamped on every open-data record.
const OpenDataSource = "data.nj.gov 8hz7-zvhn"

// Column aliases seen across versions of the dataset.
var (
	nameKeys    = []string{"name", "business_name", "retailer_name", "dispensary_name"}
	streetKeys  = []string{"address", "street_address", "location_address", "site_address"}
	cityKeys    = []string{"city", "municipality", "town"}
	stateKeys   = []string{"state", "st"}
	zipKeys     = []string{"zip", "zipcode", "postal_code"}
	phoneKeys   = []string{"phone", "phone_number", "telephone"}
	websiteKeys = []string{"website", "website_url", "url"}
)

// Row is one raw dataset row with lowercased keys.
type Row map[string]any

// OpenData pulls the dispensary dataset from data.nj.gov.
type OpenData struct {
	fetcher fetcher.Fetcher
	cfg     config.SourcesConfig
	logger  *slog.Logger
}

// NewOpenData creates an open-data harvester.
func NewOpenData(f fetcher.Fetcher, cfg config.SourcesConfig, logger *slog.Logger) *OpenData {
	return &OpenData{
		fetcher: f,
		cfg:     cfg,
		logger:  logger.With("component", "opendata"),
	}
}

// Harvest fetches the dataset, JSON first and the CSV resource when that
// fails, and returns normalized, de-duplicated records.
func (o *OpenData) Harvest(ctx context.Context) ([]types.Record, error) {
	rows, err := o.fetchRows(ctx)
	if err != nil {
		return nil, err
	}
	o.logger.Info("fetched raw rows", "count", len(rows))

	recs, dropped := pipeline.Default(o.logger).Run(NormalizeRows(rows))
	o.logger.Info("normalized rows", "kept", len(recs), "dropped", dropped)
	if len(recs) == 0 {
		return nil, fmt.Errorf("open data: %w", types.ErrNoRecords)
	}
	return recs, nil
}

func (o *OpenData) fetchRows(ctx context.Context) ([]Row, error) {
	var opts []fetcher.RequestOption
	if o.cfg.OpenDataToken != "" {
		opts = append(opts, fetcher.WithHeader("X-App-Token", o.cfg.OpenDataToken))
	}

	resp, err := o.fetcher.Get(ctx, o.requestURL(o.cfg.OpenDataJSON), opts...)
	if err == nil {
		rows, derr := DecodeJSONRows(resp.Body)
		if derr == nil {
			return rows, nil
		}
		err = derr
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	o.logger.Warn("JSON endpoint unavailable, falling back to CSV resource", "error", err)

	resp, err = o.fetcher.Get(ctx, o.requestURL(o.cfg.OpenDataCSV), opts...)
	if err != nil {
		return nil, fmt.Errorf("open data csv: %w", err)
	}
	rows, err := DecodeCSVRows(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, &types.ParseError{URL: resp.URL, Err: err}
	}
	return rows, nil
}

// requestURL adds the row limit and, when configured, the app token as a
// query parameter; some portals ignore the header.
func (o *OpenData) requestURL(base string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	if o.cfg.OpenDataLimit > 0 {
		q.Set("$limit", strconv.Itoa(o.cfg.OpenDataLimit))
	}
	if o.cfg.OpenDataToken != "" {
		q.Set("$$app_token", o.cfg.OpenDataToken)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// DecodeJSONRows decodes a JSON array of objects.
func DecodeJSONRows(body []byte) ([]Row, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json rows: %w", err)
	}
	rows := make([]Row, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, lowerKeys(r))
	}
	return rows, nil
}

// DecodeCSVRows decodes a CSV with a header row. Column names are
// lowercased; short rows leave the missing columns absent.
func DecodeCSVRows(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	var rows []Row
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		row := make(Row, len(header))
		for i, v := range fields {
			if i < len(header) {
				row[header[i]] = v
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// NormalizeRows maps raw rows onto records using the column aliases and a
// nested location object when present. State defaults to NJ.
func NormalizeRows(rows []Row) []types.Record {
	out := make([]types.Record, 0, len(rows))
	for _, r := range rows {
		rec := types.Record{
			Name:    r.pick(nameKeys),
			Street:  r.pick(streetKeys),
			City:    r.pick(cityKeys),
			State:   r.pick(stateKeys),
			Zip:     r.pick(zipKeys),
			Phone:   r.pick(phoneKeys),
			Website: r.pick(websiteKeys),
			Source:  OpenDataSource,
		}
		if loc, ok := r["location"].(map[string]any); ok {
			l := lowerKeys(loc)
			rec.Street = firstNonEmpty(rec.Street, l.pick([]string{"address"}))
			rec.City = firstNonEmpty(rec.City, l.pick([]string{"city"}))
			rec.State = firstNonEmpty(rec.State, l.pick([]string{"state"}))
			rec.Zip = firstNonEmpty(rec.Zip, l.pick([]string{"zip"}))
		}
		if rec.State == "" {
			rec.State = "NJ"
		}
		out = append(out, rec)
	}
	return out
}

// pick returns the first non-empty value among keys.
func (r Row) pick(keys []string) string {
	for _, k := range keys {
		if s := cell(r[k]); s != "" {
			return s
		}
	}
	return ""
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case map[string]any, []any:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func lowerKeys(m map[string]any) Row {
	out := make(Row, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
