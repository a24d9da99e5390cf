// Package ranking scores stored records against a query vector.
package ranking

import (
	"math"
	"sort"

	"ragkb/internal/domain"
)

// Cosine returns the cosine similarity of a and b. A zero-magnitude
// vector has similarity 0 with everything.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, &domain.DimensionMismatchError{Op: "cosine", Want: len(a), Got: len(b), Index: -1}
	}
	return cosine(a, b), nil
}

func cosine(a, b []float64) float64 {
	sa, sb := maxAbs(a), maxAbs(b)
	if sa == 0 || sb == 0 {
		return 0
	}
	// Each vector is scaled by its largest component so the squared norms
	// neither overflow nor underflow. Cosine is invariant under the scaling.
	var dot, na, nb float64
	for i := range a {
		x, y := a[i]/sa, b[i]/sb
		dot += x * y
		na += x * x
		nb += y * y
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(sim) {
		return 0
	}
	// Rounding can push parallel vectors just outside [-1, 1].
	return math.Max(-1, math.Min(1, sim))
}

func maxAbs(v []float64) float64 {
	var m float64
	for _, x := range v {
		if ax := math.Abs(x); ax > m {
			m = ax
		}
	}
	return m
}

// Rank scores every record against query and returns the topK best,
// highest similarity first. Equal scores keep insertion order.
// All lengths are validated before any score is computed.
func Rank(query []float64, records []domain.Record, topK int) ([]domain.RankedChunk, error) {
	for i, r := range records {
		if len(r.Embedding) != len(query) {
			return nil, &domain.DimensionMismatchError{Op: "rank", Want: len(query), Got: len(r.Embedding), Index: i}
		}
	}
	if topK <= 0 || len(records) == 0 {
		return []domain.RankedChunk{}, nil
	}
	ranked := make([]domain.RankedChunk, len(records))
	for i, r := range records {
		ranked[i] = domain.RankedChunk{Text: r.Text, Similarity: cosine(query, r.Embedding)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Similarity > ranked[j].Similarity })
	if topK > len(ranked) {
		topK = len(ranked)
	}
	return ranked[:topK], nil
}
