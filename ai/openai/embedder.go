package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/graphqa/ai"
	"github.com/poiesic/graphqa/core"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// maxEmbedBatch is the largest number of inputs sent in one embeddings call.
const maxEmbedBatch = 256

var (
	errEmptyEmbedding     = errors.New("embedder returned no vectors")
	errMixedDimensions    = errors.New("embedder returned vectors of different lengths")
	errEmbeddingCountDiff = errors.New("embedder returned a different number of vectors than inputs")
)

// Embedder implements ai.Embedder over an OpenAI-compatible embeddings API.
// Large inputs are split into calls of at most maxEmbedBatch texts, and every
// vector of one call is checked to have the same length.
type Embedder struct {
	client   embeddings.Embedder
	limiter  *rate.Limiter
	maxBatch int
	logger   *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

func newEmbedder(config *ai.Config, limiter *rate.Limiter) (*Embedder, error) {
	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.Token()),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	return &Embedder{
		client:   embedder,
		limiter:  limiter,
		maxBatch: maxEmbedBatch,
		logger:   slog.Default().With("component", "openai-embedder", "model", config.EmbeddingModel),
	}, nil
}

// NewEmbedder creates an embedder with its own request limiter.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return newEmbedder(config, newLimiter(config.RequestsPerSecond))
}

// EmbedText embeds a single text, typically a question.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, core.NewError(core.KindInvalidRequest, "", "embed", errors.New("text must not be empty"))
	}
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts embeds texts in order, splitting them into bounded calls.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.maxBatch {
		end := min(start+e.maxBatch, len(texts))
		vectors, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(out) > 0 && len(vectors[0]) != len(out[0]) {
			return nil, core.NewError(core.KindModelInvocation, "", "embed batch", errMixedDimensions)
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	e.logger.Debug("embedding texts", "count", len(texts))
	vectors, err := e.client.EmbedDocuments(ctx, texts)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, core.NewError(core.KindModelInvocation, "", "embed batch", err)
	}
	if len(vectors) != len(texts) {
		return nil, core.NewError(core.KindModelInvocation, "", "embed batch", errEmbeddingCountDiff)
	}

	dims := len(vectors[0])
	if dims == 0 {
		return nil, core.NewError(core.KindModelInvocation, "", "embed batch", errEmptyEmbedding)
	}
	for _, v := range vectors[1:] {
		if len(v) != dims {
			return nil, core.NewError(core.KindModelInvocation, "", "embed batch", errMixedDimensions)
		}
	}
	return vectors, nil
}
