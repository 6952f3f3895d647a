package search

import (
	"slices"

	"gameshelf/internal/games"
	"gameshelf/internal/textutil"
)

// MergeResults combines two result lists from different catalogs. Every
// primary record is kept; a secondary record is dropped when its name is more
// similar than threshold to any record already kept. Primary records precede
// secondary ones and each group is ordered by descending rating.
func MergeResults(primary, secondary []games.Record, threshold float64, similarity textutil.SimilarityFunc) []games.Record {
	if similarity == nil {
		similarity = textutil.Similarity
	}
	first := slices.Clone(primary)
	second := make([]games.Record, 0, len(secondary))
	kept := make([]string, 0, len(primary)+len(secondary))
	for _, rec := range first {
		kept = append(kept, rec.Name)
	}
	for _, rec := range secondary {
		if isDuplicate(rec.Name, kept, threshold, similarity) {
			continue
		}
		second = append(second, rec)
		kept = append(kept, rec.Name)
	}
	byRating(first)
	byRating(second)
	return append(first, second...)
}

func isDuplicate(name string, kept []string, threshold float64, similarity textutil.SimilarityFunc) bool {
	for _, other := range kept {
		if similarity(name, other) > threshold {
			return true
		}
	}
	return false
}

func byRating(records []games.Record) {
	slices.SortStableFunc(records, func(a, b games.Record) int {
		switch {
		case a.Rating > b.Rating:
			return -1
		case a.Rating < b.Rating:
			return 1
		}
		return 0
	})
}
