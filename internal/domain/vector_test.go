package domain

import (
	"errors"
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"empty", nil, nil, 0},
		{"length mismatch", []float32{1, 2}, []float32{1, 2, 3}, 0},
		{"zero magnitude", []float32{0, 0}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCosineSimilarity_Scaled(t *testing.T) {
	// Cosine is magnitude-invariant.
	a := []float32{0.3, 0.4, 0.5}
	b := []float32{0.6, 0.8, 1.0}
	if got := CosineSimilarity(a, b); math.Abs(got-1) > 1e-6 {
		t.Errorf("expected similarity 1 for scaled vector, got %v", got)
	}
}

func TestCentroid(t *testing.T) {
	vecs := [][]float32{
		{1, 0, 3},
		{3, 2, 1},
	}
	got, err := Centroid(vecs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float32{2, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestCentroid_Empty(t *testing.T) {
	_, err := Centroid(nil)
	if !errors.Is(err, ErrNoCentroid) {
		t.Fatalf("expected ErrNoCentroid, got %v", err)
	}
}

func TestCentroid_DimMismatch(t *testing.T) {
	_, err := Centroid([][]float32{{1, 2}, {1, 2, 3}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestVectorBytesRoundTrip(t *testing.T) {
	v := []float32{0.25, -1.5, 3.125, 0}
	got, err := BytesToVector(VectorToBytes(v))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(v) {
		t.Fatalf("expected %d elements, got %d", len(v), len(got))
	}
	for i := range v {
		if got[i] != v[i] {
			t.Errorf("element %d: expected %v, got %v", i, v[i], got[i])
		}
	}
}

func TestBytesToVector_InvalidLength(t *testing.T) {
	if _, err := BytesToVector([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for truncated data")
	}
}

func TestDatasetCounts(t *testing.T) {
	ds := Dataset{
		Vectors: [][]float32{{1}, {2}, {3}},
		Labels:  []Label{LabelPositive, LabelNegative, LabelPositive},
	}
	c := ds.Counts()
	if c.Positive != 2 || c.Negative != 1 || c.Total != 3 {
		t.Fatalf("expected {2 1 3}, got %+v", c)
	}
}
