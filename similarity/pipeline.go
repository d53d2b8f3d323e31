// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package similarity

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/graphqa/ai"
	"github.com/poiesic/graphqa/core"
	"github.com/poiesic/graphqa/graph"
	"github.com/poiesic/graphqa/retry"
)

// Pipeline answers questions from the passages nearest to the question
// embedding.
type Pipeline struct {
	embedder ai.Embedder
	searcher graph.VectorSearcher
	model    ai.LanguageModel
	counter  TokenCounter
	retry    retry.Policy
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithTokenCounter sets the counter used to enforce the token budget.
// Default is ApproxCounter.
func WithTokenCounter(counter TokenCounter) Option {
	return func(p *Pipeline) error {
		if counter != nil {
			p.counter = counter
		}
		return nil
	}
}

// WithRetryPolicy sets the policy applied to embedding, search and model calls.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(p *Pipeline) error {
		if err := policy.Validate(); err != nil {
			return err
		}
		p.retry = policy
		return nil
	}
}

// NewPipeline creates a similarity pipeline.
func NewPipeline(embedder ai.Embedder, searcher graph.VectorSearcher, model ai.LanguageModel, opts ...Option) (*Pipeline, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if searcher == nil {
		return nil, ErrVectorSearcherRequired
	}
	if model == nil {
		return nil, ErrLanguageModelRequired
	}

	p := &Pipeline{
		embedder: embedder,
		searcher: searcher,
		model:    model,
		counter:  ApproxCounter{},
		retry:    retry.DefaultPolicy(),
		logger:   slog.Default().With("component", "similarity-pipeline"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Answer retrieves the k passages nearest to question from index, keeps as
// many as fit in tokenBudget in rank order and asks the model to answer
// from them alone.
//
// No passages, or a model reply of "None", yields the no-answer sentinel.
func (p *Pipeline) Answer(ctx context.Context, question string, index *core.IndexHandle, k, tokenBudget int, opts core.RetrieveOptions) (*core.RetrievalResult, error) {
	if err := core.ValidateQuestion(question); err != nil {
		return nil, err
	}
	if index == nil {
		return nil, core.NewError(core.KindIndexUnavailable, core.PipelineSimilarity, "search", ErrNoIndex)
	}
	if k <= 0 {
		return nil, core.NewError(core.KindInvalidRequest, core.PipelineSimilarity, "search", ErrInvalidK)
	}
	if tokenBudget <= 0 {
		return nil, core.NewError(core.KindInvalidRequest, core.PipelineSimilarity, "search", ErrInvalidTokenBudget)
	}

	vector, err := retry.Value(ctx, p.retry, func(ctx context.Context) ([]float32, error) {
		return p.embedder.EmbedText(ctx, question)
	})
	if err != nil {
		p.logger.Error("question embedding failed", "err", err)
		return nil, p.modelError(ctx, "embed question", err)
	}

	hits, err := retry.Value(ctx, p.retry, func(ctx context.Context) ([]core.Passage, error) {
		return p.searcher.VectorSearch(ctx, index, vector, k)
	})
	if err != nil {
		p.logger.Error("vector search failed", "index", index.Name, "err", err)
		return nil, core.WithPipeline(err, core.PipelineSimilarity)
	}

	passages := p.fit(dedupe(hits), tokenBudget)
	p.logger.Debug("retrieved passages", "hits", len(hits), "kept", len(passages))
	if len(passages) == 0 {
		return core.NoAnswerResult(core.PipelineSimilarity), nil
	}

	reply, err := retry.Value(ctx, p.retry, func(ctx context.Context) (string, error) {
		return p.model.Complete(ctx, answerPrompt(question, passages))
	})
	if err != nil {
		p.logger.Error("answer generation failed", "err", err)
		return nil, p.modelError(ctx, "complete", err)
	}
	if isEmptyReply(reply) {
		return core.NoAnswerResult(core.PipelineSimilarity), nil
	}

	result := &core.RetrievalResult{
		Pipeline: core.PipelineSimilarity,
		Answer:   strings.TrimSpace(reply),
	}
	if opts.Attribution {
		result.Sources = sources(passages)
	}
	return result, nil
}

// fit keeps passages in rank order until the next one would exceed budget.
// A top passage that alone exceeds the budget is truncated to fit.
func (p *Pipeline) fit(passages []core.Passage, budget int) []core.Passage {
	var kept []core.Passage
	used := 0
	for _, passage := range passages {
		n := p.counter.Count(passage.Text)
		if used+n <= budget {
			kept = append(kept, passage)
			used += n
			continue
		}
		if len(kept) == 0 {
			passage.Text = p.counter.Truncate(passage.Text, budget)
			if strings.TrimSpace(passage.Text) != "" {
				kept = append(kept, passage)
			}
		}
		break
	}
	return kept
}

func (p *Pipeline) modelError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if core.KindOf(err) == core.KindUnknown {
		err = core.NewError(core.KindModelInvocation, core.PipelineSimilarity, op, err)
	}
	return core.WithPipeline(err, core.PipelineSimilarity)
}

// dedupe drops blank passages and repeats of identical text, keeping the
// best-ranked copy.
func dedupe(passages []core.Passage) []core.Passage {
	seen := make(map[core.ID]struct{}, len(passages))
	out := make([]core.Passage, 0, len(passages))
	for _, passage := range passages {
		if strings.TrimSpace(passage.Text) == "" {
			continue
		}
		id := core.IDFromContent(passage.Text)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, passage)
	}
	return out
}

func sources(passages []core.Passage) []core.Source {
	out := make([]core.Source, len(passages))
	for i, passage := range passages {
		out[i] = core.Source{
			NodeID:    passage.NodeID,
			Name:      passage.Name,
			Score:     passage.Score,
			ContentID: core.IDFromContent(passage.Text),
		}
	}
	return out
}
