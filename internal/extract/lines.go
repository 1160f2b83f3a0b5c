package extract

import (
	"strings"

	"github.com/IshaanNene/njbuds/internal/types"
)

// LineOptions tunes RecordsFromLines.
type LineOptions struct {
	// Source is stamped on every record.
	Source string

	// Before and After bound the block of lines around an address that is
	// searched for a link's domain.
	Before int
	After  int
}

// DefaultLineOptions matches the CRC finder layout.
func DefaultLineOptions(source string) LineOptions {
	return LineOptions{Source: source, Before: 3, After: 4}
}

// RecordsFromLines pairs each address-looking line with the closest
// preceding line that can serve as a name, and attaches an external link
// whose domain appears near the address. Records without a name, or
// without both street and city, are skipped.
func RecordsFromLines(lines, links []string, opts LineOptions) []types.Record {
	var out []types.Record
	for i, ln := range lines {
		if !LooksLikeAddress(ln) {
			continue
		}

		rec := types.Record{
			Name:   nameBefore(lines, i),
			Source: opts.Source,
		}
		if addr, ok := ParseAddress(ln); ok {
			rec.Street = addr.Street
			rec.City = addr.City
			rec.State = addr.State
			rec.Zip = addr.Zip
		}
		if !rec.IsComplete() {
			continue
		}

		lo := max(0, i-opts.Before)
		hi := min(len(lines), i+opts.After)
		rec.Website = linkInBlock(strings.ToLower(strings.Join(lines[lo:hi], " ")), links)

		out = append(out, rec)
	}
	return out
}

// nameBefore walks back from an address line to the first line that is
// long enough and is not a section heading.
func nameBefore(lines []string, i int) string {
	for j := i - 1; j >= 0; j-- {
		c := strings.TrimSpace(lines[j])
		if len(c) > 2 && !strings.Contains(strings.ToLower(c), "dispensary") {
			return c
		}
	}
	return ""
}

func linkInBlock(block string, links []string) string {
	for _, link := range links {
		if d := Domain(link); d != "" && strings.Contains(block, d) {
			return link
		}
	}
	return ""
}
