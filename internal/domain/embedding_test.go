package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	result EmbeddingResult
	err    error
	got    string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.got = text
	return s.result, s.err
}

func TestDimensionChecked_PassesMatchingVector(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{
		Embedding:   []float32{0.1, 0.2, 0.3},
		TotalTokens: 7,
	}}
	emb := NewDimensionCheckedEmbedder(inner, 3)

	result, err := emb.Embed(context.Background(), "cto at acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got != "cto at acme" {
		t.Errorf("expected text to pass through unchanged, got %q", inner.got)
	}
	if len(result.Embedding) != 3 {
		t.Errorf("expected 3-element vector, got %d", len(result.Embedding))
	}
	if result.TotalTokens != 7 {
		t.Errorf("expected TotalTokens=7, got %d", result.TotalTokens)
	}
}

func TestDimensionChecked_RejectsWrongLength(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.1, 0.2}}}
	emb := NewDimensionCheckedEmbedder(inner, 3)

	_, err := emb.Embed(context.Background(), "headline")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestDimensionChecked_ZeroDimSkipsCheck(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.5}}}
	emb := NewDimensionCheckedEmbedder(inner, 0)

	if _, err := emb.Embed(context.Background(), "headline"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDimensionChecked_ErrorPropagation(t *testing.T) {
	innerErr := errors.New("provider down")
	inner := &stubEmbedder{err: innerErr}
	emb := NewDimensionCheckedEmbedder(inner, 3)

	_, err := emb.Embed(context.Background(), "headline")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, innerErr) {
		t.Errorf("expected wrapped inner error, got %v", err)
	}
}
