package reconcile

import (
	"strings"

	"github.com/IshaanNene/njbuds/internal/types"
)

// MergeStats summarizes a merge run.
type MergeStats struct {
	Base              int
	BaseFolded        int
	Candidates        int
	CandidatesDropped int
	Matched           int
	WebsitesFilled    int
	PhonesFilled      int
	Appended          int
}

// Fill copies website and phone from src into dst where dst is empty.
// Populated fields in dst are never touched.
func Fill(dst *types.Record, src types.Record) (website, phone bool) {
	if !dst.HasWebsite() && src.HasWebsite() {
		dst.Website = strings.TrimSpace(src.Website)
		website = true
	}
	if !dst.HasPhone() && src.HasPhone() {
		dst.Phone = strings.TrimSpace(src.Phone)
		phone = true
	}
	return website, phone
}

// Merge fills the empty website and phone fields of base records from the
// candidates that share their identity key. Base rows repeating a key are
// first collapsed into one (see Collapse), so every key appears once in the
// result. The base slice is not modified. Incomplete candidates are dropped
// before matching and unmatched candidates are discarded.
func Merge(base, candidates []types.Record) ([]types.Record, MergeStats) {
	stats := MergeStats{Base: len(base), Candidates: len(candidates)}
	byKey, dropped := indexCandidates(candidates)
	stats.CandidatesDropped = dropped

	out, folded := Collapse(base)
	stats.BaseFolded = folded
	for i := range out {
		cand, ok := byKey[KeyOf(out[i])]
		if !ok {
			continue
		}
		stats.Matched++
		w, p := Fill(&out[i], cand)
		if w {
			stats.WebsitesFilled++
		}
		if p {
			stats.PhonesFilled++
		}
	}
	return out, stats
}

// Union behaves like Merge but appends candidates that match no base record,
// in candidate order. Harvest steps use it to grow a dataset.
func Union(base, candidates []types.Record) ([]types.Record, MergeStats) {
	out, stats := Merge(base, candidates)

	present := make(map[types.Key]struct{}, len(out))
	for _, r := range out {
		present[KeyOf(r)] = struct{}{}
	}
	byKey, _ := indexCandidates(candidates)
	for _, c := range candidates {
		k := KeyOf(c)
		merged, ok := byKey[k]
		if !ok {
			continue
		}
		if _, seen := present[k]; seen {
			continue
		}
		present[k] = struct{}{}
		out = append(out, merged)
		stats.Appended++
	}
	return out, stats
}

// indexCandidates keys complete candidates by identity. When a key repeats,
// later candidates win field by field, but only with non-empty values.
func indexCandidates(candidates []types.Record) (map[types.Key]types.Record, int) {
	byKey := make(map[types.Key]types.Record, len(candidates))
	dropped := 0
	for _, c := range candidates {
		if !c.IsComplete() {
			dropped++
			continue
		}
		k := KeyOf(c)
		prev, ok := byKey[k]
		if !ok {
			byKey[k] = c
			continue
		}
		for _, col := range types.Columns {
			if v := strings.TrimSpace(c.Get(col)); v != "" {
				prev.Set(col, v)
			}
		}
		byKey[k] = prev
	}
	return byKey, dropped
}
