package embcache

import "context"

// mockEmbedder scripts batch responses and records every call.
type mockEmbedder struct {
	name  string
	fn    func(texts []string) ([][]float32, error)
	calls [][]string
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.calls = append(m.calls, texts)
	if m.fn != nil {
		return m.fn(texts)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 0}
	}
	return out, nil
}

func (m *mockEmbedder) Name() string {
	if m.name != "" {
		return m.name
	}
	return "mock"
}

func (m *mockEmbedder) Config() map[string]any { return nil }
