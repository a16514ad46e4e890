// Package embedding turns text into fixed-length vectors, with a
// deterministic local fallback for when no remote model is reachable.
package embedding

import (
	"context"
	"strings"
	"unicode"

	"github.com/studynexus/nexus/internal/similarity"
)

// DefaultFallbackDimensions is the vector size used when no remote model
// dictates one.
const DefaultFallbackDimensions = 128

// Provider converts text into embedding vectors.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// Fallback is a deterministic pseudo-embedding derived from character and
// word-position hashing. It never fails and never blocks.
type Fallback struct {
	Dims int
}

var _ Provider = (*Fallback)(nil)

// NewFallback returns a Fallback producing vectors of the given size.
func NewFallback(dims int) *Fallback {
	if dims <= 0 {
		dims = DefaultFallbackDimensions
	}

	return &Fallback{Dims: dims}
}

// Vector computes the fallback embedding for text.
func (f *Fallback) Vector(text string) []float64 {
	dims := f.Dims
	if dims <= 0 {
		dims = DefaultFallbackDimensions
	}

	v := make([]float64, dims)

	for wordIdx, word := range fallbackWords(text) {
		weight := 1 / float64(wordIdx+1)
		for i := 0; i < len(word); i++ {
			pos := (int(word[i]) * (wordIdx + 1)) % dims
			v[pos] += weight
		}
	}

	return similarity.Normalize(v)
}

// Embed implements Provider.
func (f *Fallback) Embed(_ context.Context, text string) ([]float64, error) {
	return f.Vector(text), nil
}

// EmbedBatch implements Provider.
func (f *Fallback) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = f.Vector(t)
	}

	return out, nil
}

// fallbackWords lowercases text, drops everything outside [a-z0-9] and
// whitespace, and keeps words longer than two characters.
func fallbackWords(text string) []string {
	var b strings.Builder
	b.Grow(len(text))

	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}

	fields := strings.Fields(b.String())
	words := fields[:0]

	for _, w := range fields {
		if len(w) > 2 {
			words = append(words, w)
		}
	}

	return words
}
