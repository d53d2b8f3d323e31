package graphqa

import (
	"context"

	"github.com/poiesic/graphqa/core"
	"github.com/poiesic/graphqa/fusion"
	"github.com/poiesic/graphqa/index"
	"github.com/poiesic/graphqa/schema"
	"github.com/poiesic/graphqa/similarity"
	"github.com/poiesic/graphqa/structured"
)

// structuredRetriever answers against the cached schema snapshot.
type structuredRetriever struct {
	schemas  *schema.Cache
	pipeline *structured.Pipeline
}

var _ fusion.Retriever = (*structuredRetriever)(nil)

func (r *structuredRetriever) Retrieve(ctx context.Context, question string, opts core.RetrieveOptions) (*core.RetrievalResult, error) {
	graphSchema, err := r.schemas.Get(ctx)
	if err != nil {
		return nil, err
	}
	return r.pipeline.Answer(ctx, question, graphSchema, opts)
}

// similarityRetriever ensures the index exists before the first search.
// Later searches reuse the remembered handle until a search reports the
// index unavailable, which makes the next request attach again.
type similarityRetriever struct {
	provisioner *index.Provisioner
	spec        core.IndexSpec
	pipeline    *similarity.Pipeline
	topK        int
	tokenBudget int
}

var _ fusion.Retriever = (*similarityRetriever)(nil)

func (r *similarityRetriever) Retrieve(ctx context.Context, question string, opts core.RetrieveOptions) (*core.RetrievalResult, error) {
	handle, err := r.provisioner.EnsureIndex(ctx, r.spec)
	if err != nil {
		return nil, err
	}
	res, err := r.pipeline.Answer(ctx, question, handle, r.topK, r.tokenBudget, opts)
	if core.KindOf(err) == core.KindIndexUnavailable {
		r.provisioner.Reset(r.spec.Name)
	}
	return res, err
}
