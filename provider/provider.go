package provider

import "context"

// CompletionProvider is a single-turn language model call: prompt in, text out.
// No conversation state is retained between calls.
type CompletionProvider interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// EmbeddingProvider turns texts into fixed-length vectors for similarity search.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Provider bundles both model capabilities behind one client.
type Provider interface {
	CompletionProvider
	EmbeddingProvider
}
