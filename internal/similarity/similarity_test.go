package similarity

import (
	"math"
	"testing"
)

const eps = 1e-9

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{name: "identical", a: []float64{1, 2, 3}, b: []float64{1, 2, 3}, want: 1},
		{name: "scaled", a: []float64{1, 2, 3}, b: []float64{2, 4, 6}, want: 1},
		{name: "orthogonal", a: []float64{1, 0}, b: []float64{0, 1}, want: 0},
		{name: "opposite", a: []float64{1, 0}, b: []float64{-1, 0}, want: -1},
		{name: "zero vector", a: []float64{1, 2}, b: []float64{0, 0}, want: 0},
		{name: "length mismatch", a: []float64{1, 2}, b: []float64{1, 2, 3}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := Cosine(tc.a, tc.b)
			if math.Abs(got-tc.want) > eps {
				t.Errorf("Cosine(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

type item struct {
	name string
	vec  []float64
}

func itemVec(i item) []float64 { return i.vec }

func TestTopK_OrdersAndTruncates(t *testing.T) {
	t.Parallel()

	query := []float64{1, 0}
	items := []item{
		{name: "far", vec: []float64{0, 1}},
		{name: "near", vec: []float64{1, 0.1}},
		{name: "exact", vec: []float64{1, 0}},
	}

	got := TopK(query, items, itemVec, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}

	if got[0].Item.name != "exact" || got[1].Item.name != "near" {
		t.Errorf("unexpected order: %s, %s", got[0].Item.name, got[1].Item.name)
	}
}

func TestTopK_StableTies(t *testing.T) {
	t.Parallel()

	query := []float64{1, 1}
	items := []item{
		{name: "first", vec: []float64{1, 1}},
		{name: "second", vec: []float64{1, 1}},
		{name: "third", vec: []float64{1, 1}},
	}

	got := TopK(query, items, itemVec, 0)
	for i, want := range []string{"first", "second", "third"} {
		if got[i].Item.name != want {
			t.Errorf("position %d: got %s, want %s", i, got[i].Item.name, want)
		}
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	v := Normalize([]float64{3, 4})
	if math.Abs(v[0]-0.6) > eps || math.Abs(v[1]-0.8) > eps {
		t.Errorf("unexpected normalized vector %v", v)
	}

	zero := Normalize([]float64{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("zero vector changed: %v", zero)
	}
}
