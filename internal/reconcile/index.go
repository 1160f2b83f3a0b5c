package reconcile

import (
	"strings"

	"github.com/IshaanNene/njbuds/internal/types"
)

// Index maps each identity key to the position of its first occurrence.
func Index(records []types.Record) map[types.Key]int {
	idx := make(map[types.Key]int, len(records))
	for i, r := range records {
		k := KeyOf(r)
		if _, ok := idx[k]; !ok {
			idx[k] = i
		}
	}
	return idx
}

// Collapse folds records that share an identity key into the first
// occurrence, which keeps its position. Later duplicates only fill fields
// the first one left empty. Rows with no identifying text are kept as they
// are. It returns the collapsed copy and the number of rows folded away.
func Collapse(records []types.Record) ([]types.Record, int) {
	first := Index(records)
	out := make([]types.Record, 0, len(first))
	at := make(map[int]int, len(first))
	folded := 0

	for i, r := range records {
		k := KeyOf(r)
		p := first[k]
		if k.IsZero() || p == i {
			at[i] = len(out)
			out = append(out, r)
			continue
		}
		dst := &out[at[p]]
		for _, col := range types.Columns {
			if strings.TrimSpace(dst.Get(col)) != "" {
				continue
			}
			if v := strings.TrimSpace(r.Get(col)); v != "" {
				dst.Set(col, v)
			}
		}
		folded++
	}
	return out, folded
}
