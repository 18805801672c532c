package search

import "math"

// ScoreParams turns a store distance into a display similarity. The boost
// exponent and scaling pair are empirically chosen contrast heuristics, not
// calibrated probabilities: raw cosine similarities from the embedding model
// cluster tightly mid-range, and the boost spreads them for legible ranking.
type ScoreParams struct {
	BoostExponent float64
	ScaleFloor    float64
	ScaleRange    float64
}

// DefaultScoreParams matches the values the ranking was tuned against.
func DefaultScoreParams() ScoreParams {
	return ScoreParams{
		BoostExponent: 0.65,
		ScaleFloor:    0.2,
		ScaleRange:    0.8,
	}
}

// Similarity maps a Chroma-style distance in [0, 2] to a boosted similarity
// in [0, 1].
func (p ScoreParams) Similarity(distance float64) float64 {
	raw := 1 - distance/2
	if raw < 0 {
		raw = 0
	}
	s := p.ScaleFloor + math.Pow(raw, p.BoostExponent)*p.ScaleRange
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
