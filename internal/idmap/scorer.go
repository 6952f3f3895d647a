package idmap

import (
	"gameshelf/internal/games"
	"gameshelf/internal/textutil"
)

// Scorer rates how likely candidate is the same game as source, on 0..1.
type Scorer interface {
	Score(source, candidate games.Record) float64
}

// WeightedScorer blends name similarity, release-year proximity, and
// platform overlap. Weights should sum to 1.
type WeightedScorer struct {
	Name       float64
	Year       float64
	Platform   float64
	Similarity textutil.SimilarityFunc
}

// DefaultScorer weights name 70%, year 20%, platforms 10%.
func DefaultScorer() WeightedScorer {
	return WeightedScorer{Name: 0.7, Year: 0.2, Platform: 0.1, Similarity: textutil.Similarity}
}

// Score implements Scorer.
func (w WeightedScorer) Score(source, candidate games.Record) float64 {
	similarity := w.Similarity
	if similarity == nil {
		similarity = textutil.Similarity
	}
	return w.Name*similarity(source.Name, candidate.Name) +
		w.Year*YearCredit(source.ReleaseYear(), candidate.ReleaseYear()) +
		w.Platform*textutil.PlatformOverlap(source.Platforms, candidate.Platforms)
}

// YearCredit gives full credit for the same year, half for one year apart,
// a quarter for two, and nothing otherwise or when either year is unknown.
func YearCredit(a, b int) float64 {
	if a == 0 || b == 0 {
		return 0
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	switch diff {
	case 0:
		return 1
	case 1:
		return 0.5
	case 2:
		return 0.25
	default:
		return 0
	}
}
