package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	name       string
	properties map[string]any
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1}
	}
	return out, nil
}

func (s *stubEmbedder) Name() string { return s.name }

func (s *stubEmbedder) Config() map[string]any { return s.properties }

func TestDescribe(t *testing.T) {
	emb := &stubEmbedder{name: "openai", properties: map[string]any{"model": "test-model"}}

	desc := Describe(emb)
	if desc == nil {
		t.Fatal("expected descriptor")
	}
	if desc.Name != "openai" {
		t.Errorf("expected name 'openai', got %q", desc.Name)
	}
	if desc.Properties["model"] != "test-model" {
		t.Errorf("unexpected properties: %v", desc.Properties)
	}
}

func TestDescribe_Nil(t *testing.T) {
	if desc := Describe(nil); desc != nil {
		t.Fatalf("expected nil descriptor, got %+v", desc)
	}
}

func TestEmbedderDescriptor_Validate(t *testing.T) {
	tests := []struct {
		name    string
		desc    EmbedderDescriptor
		wantErr bool
	}{
		{
			name: "valid scalar properties",
			desc: EmbedderDescriptor{Name: "openai", Properties: map[string]any{
				"model": "test-model", "dimensions": 1536, "truncate": true,
			}},
		},
		{
			name:    "missing name",
			desc:    EmbedderDescriptor{Properties: map[string]any{"model": "m"}},
			wantErr: true,
		},
		{
			name: "non-scalar property",
			desc: EmbedderDescriptor{Name: "openai", Properties: map[string]any{
				"stops": []string{"a"},
			}},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.desc.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantErr && !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestCheckDimensions(t *testing.T) {
	vectors := [][]float32{{0.1, 0.2}, {0.3, 0.4}}

	if err := CheckDimensions(vectors, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := CheckDimensions(vectors, 3)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestCheckDimensions_Empty(t *testing.T) {
	if err := CheckDimensions(nil, 4); err != nil {
		t.Fatalf("unexpected error for empty input: %v", err)
	}
}
