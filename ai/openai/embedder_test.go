package openai

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/poiesic/graphqa/ai"
	"github.com/poiesic/graphqa/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbeddings returns a vector of dims values per text, recording call sizes.
type fakeEmbeddings struct {
	dims  func(call int) int
	err   error
	calls []int
}

func (f *fakeEmbeddings) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, len(texts))
	if f.err != nil {
		return nil, f.err
	}
	n := 3
	if f.dims != nil {
		n = f.dims(len(f.calls))
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = make([]float32, n)
	}
	return out, nil
}

func (f *fakeEmbeddings) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, err := f.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return v[0], nil
}

func testEmbedder(client *fakeEmbeddings, maxBatch int) *Embedder {
	return &Embedder{client: client, maxBatch: maxBatch, logger: slog.Default()}
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	t.Run("splits large inputs", func(t *testing.T) {
		client := &fakeEmbeddings{}
		e := testEmbedder(client, 2)

		vectors, err := e.EmbedTexts(context.Background(), []string{"a", "b", "c", "d", "e"})
		require.NoError(t, err)
		assert.Len(t, vectors, 5)
		assert.Equal(t, []int{2, 2, 1}, client.calls)
	})

	t.Run("empty input makes no call", func(t *testing.T) {
		client := &fakeEmbeddings{}
		vectors, err := testEmbedder(client, 2).EmbedTexts(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, vectors)
		assert.Empty(t, client.calls)
	})

	t.Run("dimension change across calls is rejected", func(t *testing.T) {
		client := &fakeEmbeddings{dims: func(call int) int { return 2 + call }}
		_, err := testEmbedder(client, 1).EmbedTexts(context.Background(), []string{"a", "b"})
		assert.ErrorIs(t, err, core.ErrModelInvocation)
	})

	t.Run("zero-length vectors are rejected", func(t *testing.T) {
		client := &fakeEmbeddings{dims: func(int) int { return 0 }}
		_, err := testEmbedder(client, 4).EmbedTexts(context.Background(), []string{"a"})
		assert.ErrorIs(t, err, core.ErrModelInvocation)
	})

	t.Run("remote failure is a model invocation error", func(t *testing.T) {
		client := &fakeEmbeddings{err: errors.New("429 too many requests")}
		_, err := testEmbedder(client, 4).EmbedTexts(context.Background(), []string{"a"})
		assert.ErrorIs(t, err, core.ErrModelInvocation)
	})

	t.Run("canceled context is reported as such", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		client := &fakeEmbeddings{err: errors.New("request aborted")}
		_, err := testEmbedder(client, 4).EmbedTexts(ctx, []string{"a"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestEmbedder_EmbedText(t *testing.T) {
	client := &fakeEmbeddings{}
	e := testEmbedder(client, 4)

	v, err := e.EmbedText(context.Background(), "lithium")
	require.NoError(t, err)
	assert.Len(t, v, 3)

	_, err = e.EmbedText(context.Background(), "  ")
	assert.ErrorIs(t, err, core.ErrInvalidRequest)
	assert.Len(t, client.calls, 1)
}

func TestNewProvider_SharesLimiterOnOneHost(t *testing.T) {
	cfg := ai.NewConfig(ai.WithRequestsPerSecond(5))
	provider, err := NewProvider(cfg)
	require.NoError(t, err)
	p := provider.(*Provider)
	require.NotNil(t, p.completer.limiter)
	assert.Same(t, p.completer.limiter, p.embedder.limiter)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	cfg = ai.NewConfig(ai.WithRequestsPerSecond(5), ai.WithEmbeddingHost("http://embeddings:8080"))
	provider, err = NewProvider(cfg)
	require.NoError(t, err)
	p = provider.(*Provider)
	assert.NotSame(t, p.completer.limiter, p.embedder.limiter)
}
