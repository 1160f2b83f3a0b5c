// Package reconcile matches freshly scraped dispensary records against an
// existing dataset and fills in the fields the dataset is missing.
package reconcile

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/IshaanNene/njbuds/internal/types"
)

// NormalizeKey builds the identity key for a (name, street, city) triple.
// Each part is case folded, trimmed, and has internal whitespace runs
// collapsed to a single space.
func NormalizeKey(name, street, city string) types.Key {
	return types.Key{
		Name:   normalizePart(name),
		Street: normalizePart(street),
		City:   normalizePart(city),
	}
}

// KeyOf returns the identity key of a record.
func KeyOf(r types.Record) types.Key {
	return NormalizeKey(r.Name, r.Street, r.City)
}

// NameStreetKey is the looser (name, street) key harvest steps use to
// collapse the same listing seen twice on one page.
func NameStreetKey(r types.Record) types.Key {
	return types.Key{Name: normalizePart(r.Name), Street: normalizePart(r.Street)}
}

func normalizePart(s string) string {
	// A Caser keeps state between calls, so one is made per part.
	folded := cases.Fold().String(s)
	return strings.Join(strings.Fields(folded), " ")
}
