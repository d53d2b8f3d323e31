package ai

import "context"

// Embedder turns text into vectors comparable with the vectors stored in the
// graph's vector index. A question and the passages it is matched against
// must be embedded by the same model.
// Implementations must be safe for concurrent use.
type Embedder interface {
	// EmbedText embeds one text, typically a question.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts embeds texts in order. Every returned vector has the same
	// length.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Prompt is a single model request: an optional system instruction and the
// user turn.
type Prompt struct {
	System string
	User   string
}

// LanguageModel completes prompts.
// Implementations must be thread-safe for concurrent use.
type LanguageModel interface {
	// Complete sends prompt to the model and returns its reply with
	// surrounding whitespace removed. An empty reply is an error.
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// AIProvider bundles the embedder and language model of one deployment so
// they are configured and closed together.
type AIProvider interface {
	Embedder() Embedder
	LanguageModel() LanguageModel

	// Close releases the provider. Neither service may be used afterwards.
	Close() error
}
