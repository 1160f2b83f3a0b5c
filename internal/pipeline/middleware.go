package pipeline

import (
	"html"
	"strings"
	"sync"

	"github.com/IshaanNene/njbuds/internal/extract"
	"github.com/IshaanNene/njbuds/internal/reconcile"
	"github.com/IshaanNene/njbuds/internal/types"
)

// --- Built-in Middleware ---

// CleanTextMiddleware decodes HTML entities and collapses runs of
// whitespace in every field. It also trims.
type CleanTextMiddleware struct{}

func (m *CleanTextMiddleware) Name() string { return "clean_text" }

func (m *CleanTextMiddleware) Process(rec *types.Record) (*types.Record, error) {
	for _, col := range types.Columns {
		v := rec.Get(col)
		if v == "" {
			continue
		}
		v = html.UnescapeString(v)
		rec.Set(col, strings.Join(strings.Fields(v), " "))
	}
	return rec, nil
}

// DefaultStateMiddleware fills an empty state.
type DefaultStateMiddleware struct {
	State string
}

func (m *DefaultStateMiddleware) Name() string { return "default_state" }

func (m *DefaultStateMiddleware) Process(rec *types.Record) (*types.Record, error) {
	if strings.TrimSpace(rec.State) == "" {
		rec.State = m.State
	}
	return rec, nil
}

// RequiredFieldsMiddleware drops records without a name and a street or city.
type RequiredFieldsMiddleware struct{}

func (m *RequiredFieldsMiddleware) Name() string { return "required_fields" }

func (m *RequiredFieldsMiddleware) Process(rec *types.Record) (*types.Record, error) {
	if !rec.IsComplete() {
		return nil, nil
	}
	return rec, nil
}

// DedupMiddleware drops records whose (name, street) was already seen.
type DedupMiddleware struct {
	mu   sync.Mutex
	seen map[types.Key]struct{}
}

func NewDedupMiddleware() *DedupMiddleware {
	return &DedupMiddleware{
		seen: make(map[types.Key]struct{}),
	}
}

func (m *DedupMiddleware) Name() string { return "dedup" }

func (m *DedupMiddleware) Process(rec *types.Record) (*types.Record, error) {
	key := reconcile.NameStreetKey(*rec)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.seen[key]; exists {
		return nil, nil
	}
	m.seen[key] = struct{}{}
	return rec, nil
}

// PhoneFormatMiddleware rewrites parseable phones as (xxx) xxx-xxxx.
type PhoneFormatMiddleware struct{}

func (m *PhoneFormatMiddleware) Name() string { return "phone_format" }

func (m *PhoneFormatMiddleware) Process(rec *types.Record) (*types.Record, error) {
	if rec.Phone != "" {
		rec.Phone = extract.NormalizePhone(rec.Phone)
	}
	return rec, nil
}

// WebsiteMiddleware canonicalizes websites and clears ones that point at
// social networks, maps or state pages.
type WebsiteMiddleware struct{}

func (m *WebsiteMiddleware) Name() string { return "website" }

func (m *WebsiteMiddleware) Process(rec *types.Record) (*types.Record, error) {
	if rec.Website == "" {
		return rec, nil
	}
	site := extract.Canonical(rec.Website)
	if extract.IsBanned(site) {
		site = ""
	}
	rec.Website = site
	return rec, nil
}
