// Package similarity provides vector similarity and ranking helpers.
package similarity

import (
	"cmp"
	"math"
	"slices"
)

// Cosine returns the cosine similarity of a and b. Mismatched lengths, empty
// vectors and zero vectors yield 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Scored pairs a candidate with its similarity to a query.
type Scored[T any] struct {
	Item  T
	Score float64
}

// Rank scores every candidate against query and returns them ordered by
// descending similarity. Ties keep input order.
func Rank[T any](query []float64, candidates []T, vec func(T) []float64) []Scored[T] {
	scored := make([]Scored[T], len(candidates))
	for i, c := range candidates {
		scored[i] = Scored[T]{Item: c, Score: Cosine(query, vec(c))}
	}

	slices.SortStableFunc(scored, func(a, b Scored[T]) int {
		return cmp.Compare(b.Score, a.Score)
	})

	return scored
}

// TopK returns the k candidates most similar to query. A non-positive k
// returns every candidate.
func TopK[T any](query []float64, candidates []T, vec func(T) []float64, k int) []Scored[T] {
	scored := Rank(query, candidates, vec)
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}

	return scored
}

// Normalize scales v to unit length in place. Zero vectors are left unchanged.
func Normalize(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}

	if sum == 0 {
		return v
	}

	norm := math.Sqrt(sum)
	for i := range v {
		v[i] /= norm
	}

	return v
}
