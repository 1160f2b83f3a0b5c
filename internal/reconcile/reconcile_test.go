package reconcile

import (
	"testing"

	"github.com/IshaanNene/njbuds/internal/types"
)

// --- Key Tests ---

func TestNormalizeKeyCaseAndWhitespace(t *testing.T) {
	a := NormalizeKey("ACME", "123 Main", "Trenton")
	b := NormalizeKey("  acme ", "123   main", "trenton\t")
	if a != b {
		t.Errorf("expected keys to match: %v vs %v", a, b)
	}
	if a.String() != "acme|123 main|trenton" {
		t.Errorf("unexpected key string %q", a.String())
	}
}

func TestNormalizeKeyDistinguishesCity(t *testing.T) {
	a := NormalizeKey("Acme", "1 Main St", "Trenton")
	b := NormalizeKey("Acme", "1 Main St", "Newark")
	if a == b {
		t.Error("different cities should not share a key")
	}
}

// --- Merge Tests ---

func base() []types.Record {
	return []types.Record{
		{Name: "ACME", Street: "123 Main", City: "Trenton", State: "NJ"},
		{Name: "Green Leaf", Street: "9 Elm St", City: "Newark", State: "NJ", Website: "https://greenleaf.example", Phone: "(973) 555-0100"},
		{Name: "Budding", Street: "4 Oak Ave", City: "Camden", State: "NJ", Phone: "(856) 555-0199"},
	}
}

func TestMergeFillsEmptyFieldsOnly(t *testing.T) {
	cands := []types.Record{
		{Name: "acme", Street: "123 main", City: "trenton", Website: "https://acme.example", Phone: "(609) 555-0123"},
		{Name: "Green Leaf", Street: "9 Elm St", City: "Newark", Website: "https://other.example", Phone: "(000) 000-0000"},
		{Name: "Budding", Street: "4 Oak Ave", City: "Camden", Website: "https://budding.example", Phone: "(111) 111-1111"},
	}

	out, stats := Merge(base(), cands)

	if out[0].Website != "https://acme.example" || out[0].Phone != "(609) 555-0123" {
		t.Errorf("expected acme to be filled, got %+v", out[0])
	}
	if out[1].Website != "https://greenleaf.example" || out[1].Phone != "(973) 555-0100" {
		t.Errorf("populated fields must not be overwritten, got %+v", out[1])
	}
	if out[2].Phone != "(856) 555-0199" {
		t.Errorf("phone overwritten: %q", out[2].Phone)
	}
	if out[2].Website != "https://budding.example" {
		t.Errorf("empty website should be filled, got %q", out[2].Website)
	}

	if stats.Matched != 3 {
		t.Errorf("expected 3 matched, got %d", stats.Matched)
	}
	if stats.WebsitesFilled != 2 || stats.PhonesFilled != 1 {
		t.Errorf("unexpected fill counts: %+v", stats)
	}
}

func TestMergeDoesNotMutateBase(t *testing.T) {
	b := base()
	cands := []types.Record{{Name: "ACME", Street: "123 Main", City: "Trenton", Website: "https://acme.example"}}
	Merge(b, cands)
	if b[0].Website != "" {
		t.Error("Merge must not modify the base slice")
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	cands := []types.Record{
		{Name: "ACME", Street: "123 Main", City: "Trenton", Website: "https://acme.example"},
		{Name: "Budding", Street: "4 Oak Ave", City: "Camden", Website: "https://budding.example"},
	}
	once, _ := Merge(base(), cands)
	twice, stats := Merge(once, cands)

	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("row %d changed on second merge: %+v -> %+v", i, once[i], twice[i])
		}
	}
	if stats.WebsitesFilled != 0 || stats.PhonesFilled != 0 {
		t.Errorf("second merge should fill nothing, got %+v", stats)
	}
}

func TestMergeDropsIncompleteCandidates(t *testing.T) {
	b := []types.Record{{Name: "", Street: "", City: ""}}
	cands := []types.Record{
		{Name: "", Street: "", City: "", Website: "https://ghost.example"},
		{Name: "Nameless", Website: "https://nameless.example"},
	}
	out, stats := Merge(b, cands)
	if out[0].Website != "" {
		t.Errorf("incomplete candidate must not merge, got %q", out[0].Website)
	}
	if stats.CandidatesDropped != 2 {
		t.Errorf("expected 2 dropped, got %d", stats.CandidatesDropped)
	}
}

func TestMergeIgnoresWhitespaceOnlyValues(t *testing.T) {
	b := []types.Record{{Name: "ACME", Street: "123 Main", City: "Trenton", Website: "   "}}
	cands := []types.Record{{Name: "ACME", Street: "123 Main", City: "Trenton", Website: " https://acme.example "}}
	out, _ := Merge(b, cands)
	if out[0].Website != "https://acme.example" {
		t.Errorf("whitespace-only field should count as empty, got %q", out[0].Website)
	}
}

func TestMergeDuplicateCandidatesLastNonEmptyWins(t *testing.T) {
	b := []types.Record{{Name: "ACME", Street: "123 Main", City: "Trenton"}}
	cands := []types.Record{
		{Name: "ACME", Street: "123 Main", City: "Trenton", Website: "https://first.example", Phone: "(609) 555-0001"},
		{Name: "acme", Street: "123 main", City: "trenton", Website: "https://second.example"},
	}
	out, _ := Merge(b, cands)
	if out[0].Website != "https://second.example" {
		t.Errorf("expected last website, got %q", out[0].Website)
	}
	if out[0].Phone != "(609) 555-0001" {
		t.Errorf("empty later value must not clear earlier phone, got %q", out[0].Phone)
	}
}

func TestUnionAppendsUnmatched(t *testing.T) {
	cands := []types.Record{
		{Name: "New Place", Street: "1 River Rd", City: "Hoboken", Website: "https://new.example"},
		{Name: "ACME", Street: "123 Main", City: "Trenton", Phone: "(609) 555-0123"},
		{Name: "New Place", Street: "1 River Rd", City: "Hoboken"},
		{Name: "", City: "Nowhere"},
	}
	out, stats := Union(base(), cands)
	if len(out) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(out))
	}
	if out[3].Name != "New Place" || out[3].Website != "https://new.example" {
		t.Errorf("unexpected appended row %+v", out[3])
	}
	if out[0].Phone != "(609) 555-0123" {
		t.Errorf("matched row should be filled, got %+v", out[0])
	}
	if stats.Appended != 1 {
		t.Errorf("expected 1 appended, got %d", stats.Appended)
	}
}

func TestUnionFoldsDuplicateBaseKeys(t *testing.T) {
	b := []types.Record{
		{Name: "ACME", Street: "1 Main", City: "Trenton"},
		{Name: "acme", Street: "1 main", City: "trenton", Website: "https://acme.example", Zip: "08608"},
		{Name: "Budding", Street: "4 Oak Ave", City: "Camden"},
	}
	cands := []types.Record{
		{Name: "Acme", Street: "1 Main", City: "Trenton", Website: "https://other.example", Phone: "(609) 555-0123"},
		{Name: "New Place", Street: "1 River Rd", City: "Hoboken"},
	}

	out, stats := Union(b, cands)

	keys := make(map[types.Key]int)
	for _, r := range out {
		keys[KeyOf(r)]++
	}
	if len(out) != 3 || len(keys) != 3 {
		t.Fatalf("expected 3 rows with 3 keys, got %d rows %d keys: %+v", len(out), len(keys), out)
	}
	if out[0].Name != "ACME" {
		t.Errorf("first occurrence should keep its position, got %+v", out[0])
	}
	if out[0].Website != "https://acme.example" || out[0].Zip != "08608" {
		t.Errorf("duplicate should fill empty fields of the first row, got %+v", out[0])
	}
	if out[0].Phone != "(609) 555-0123" {
		t.Errorf("candidate phone should fill, got %q", out[0].Phone)
	}
	if out[1].Name != "Budding" || out[2].Name != "New Place" {
		t.Errorf("unexpected order: %+v", out)
	}
	if stats.BaseFolded != 1 {
		t.Errorf("expected 1 folded row, got %d", stats.BaseFolded)
	}
}

// --- Index Tests ---

func TestIndexFirstOccurrence(t *testing.T) {
	in := []types.Record{
		{Name: "A", Street: "1 St", City: "X"},
		{Name: "B", Street: "2 St", City: "X"},
		{Name: "a", Street: "1 st", City: "x"},
	}
	idx := Index(in)
	if len(idx) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(idx))
	}
	if idx[NormalizeKey("A", "1 St", "X")] != 0 || idx[NormalizeKey("B", "2 St", "X")] != 1 {
		t.Errorf("unexpected positions %v", idx)
	}
}

func TestCollapseNeverOverwrites(t *testing.T) {
	in := []types.Record{
		{Name: "A", Street: "1 St", City: "X", Phone: "(609) 555-0001"},
		{Name: "a", Street: "1 st", City: "x", Phone: "(609) 555-0002", Website: "https://a.example"},
		{Name: "A", Street: "1 St", City: "X", Website: "https://later.example"},
	}
	out, folded := Collapse(in)
	if len(out) != 1 || folded != 2 {
		t.Fatalf("expected 1 row and 2 folded, got %d and %d", len(out), folded)
	}
	if out[0].Phone != "(609) 555-0001" || out[0].Website != "https://a.example" {
		t.Errorf("fields should only be filled, got %+v", out[0])
	}
	if in[0].Website != "" {
		t.Error("Collapse must not modify its input")
	}
}

func TestCollapseKeepsBlankRows(t *testing.T) {
	in := []types.Record{{Phone: "1"}, {Phone: "2"}}
	out, folded := Collapse(in)
	if len(out) != 2 || folded != 0 {
		t.Errorf("rows without identity should be kept, got %+v", out)
	}
}

// --- Benchmarks ---

func BenchmarkMerge(b *testing.B) {
	base := make([]types.Record, 500)
	cands := make([]types.Record, 500)
	for i := range base {
		base[i] = types.Record{Name: "Shop", Street: string(rune('a' + i%26)), City: "Trenton"}
		cands[i] = types.Record{Name: "shop", Street: string(rune('a' + i%26)), City: "trenton", Website: "https://x.example"}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Merge(base, cands)
	}
}
