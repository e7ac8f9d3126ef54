package embeddings

import (
	"context"
	"testing"
)

func TestHashProvider_Embed(t *testing.T) {
	p := NewHashProvider()

	if p.Name() != "hash" {
		t.Errorf("expected name 'hash', got '%s'", p.Name())
	}

	vecs, err := p.Embed(context.Background(), []string{"hello world test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 1 {
		t.Fatalf("expected 1 vector, got %d", len(vecs))
	}
	if len(vecs[0]) != Dimensions {
		t.Errorf("expected %d dimensions, got %d", Dimensions, len(vecs[0]))
	}

	// L2 norm should be ~1.0
	var norm float64
	for _, v := range vecs[0] {
		norm += float64(v) * float64(v)
	}
	if norm < 0.99 || norm > 1.01 {
		t.Errorf("expected L2 norm ~1.0, got %f", norm)
	}
}

func TestHashProvider_Deterministic(t *testing.T) {
	p := NewHashProvider()
	ctx := context.Background()

	v1, _ := p.Embed(ctx, []string{"the cat sat on the mat"})
	v2, _ := p.Embed(ctx, []string{"the cat sat on the mat"})

	for i := range v1[0] {
		if v1[0][i] != v2[0][i] {
			t.Fatalf("identical input produced different vectors at dim %d", i)
		}
	}
}

func TestHashProvider_SimilarTexts(t *testing.T) {
	p := NewHashProvider()
	ctx := context.Background()

	vecs, err := p.Embed(ctx, []string{
		"the cat sat on the mat",
		"the cat sat on the mat",
		"quantum physics equations",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sim12 := Cosine(vecs[0], vecs[1])
	sim13 := Cosine(vecs[0], vecs[2])

	if sim12 < 0.99 {
		t.Errorf("identical texts should have similarity ~1.0, got %f", sim12)
	}
	if sim13 >= sim12 {
		t.Errorf("different texts should have lower similarity: same=%f different=%f", sim12, sim13)
	}
}

func TestHashProvider_EmptyText(t *testing.T) {
	p := NewHashProvider()
	vecs, err := p.Embed(context.Background(), []string{""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, v := range vecs[0] {
		if v != 0 {
			t.Fatal("empty text should produce zero vector")
		}
	}
}

func TestHashProvider_EmptyBatch(t *testing.T) {
	p := NewHashProvider()
	vecs, err := p.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 0 {
		t.Errorf("expected empty result, got %d vectors", len(vecs))
	}
}

func TestCosine_Mismatched(t *testing.T) {
	if s := Cosine([]float32{1, 0}, []float32{1, 0, 0}); s != 0 {
		t.Errorf("mismatched lengths should yield 0, got %f", s)
	}
	if s := Cosine(nil, nil); s != 0 {
		t.Errorf("empty vectors should yield 0, got %f", s)
	}
}
