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


package structured

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/graphqa/ai"
	"github.com/poiesic/graphqa/core"
	"github.com/poiesic/graphqa/graph"
	"github.com/poiesic/graphqa/retry"
	"github.com/poiesic/graphqa/schema"
)

// Pipeline answers questions by generating a Cypher statement, checking it
// against the schema and running it read-only.
type Pipeline struct {
	db        graph.QueryRunner
	model     ai.LanguageModel
	validator *schema.Validator
	examples  []Example
	retry     retry.Policy
	logger    *slog.Logger
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

// WithValidator replaces the default schema validator.
func WithValidator(v *schema.Validator) Option {
	return func(p *Pipeline) error {
		if v != nil {
			p.validator = v
		}
		return nil
	}
}

// WithExamples replaces the few-shot examples shown to the model.
func WithExamples(examples []Example) Option {
	return func(p *Pipeline) error {
		p.examples = examples
		return nil
	}
}

// WithRetryPolicy sets the policy applied to model and database calls.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(p *Pipeline) error {
		if err := policy.Validate(); err != nil {
			return err
		}
		p.retry = policy
		return nil
	}
}

// NewPipeline creates a structured query pipeline.
func NewPipeline(db graph.QueryRunner, model ai.LanguageModel, opts ...Option) (*Pipeline, error) {
	if db == nil {
		return nil, ErrQueryRunnerRequired
	}
	if model == nil {
		return nil, ErrLanguageModelRequired
	}

	p := &Pipeline{
		db:        db,
		model:     model,
		validator: schema.NewValidator(),
		examples:  DefaultExamples(),
		retry:     retry.DefaultPolicy(),
		logger:    slog.Default().With("component", "structured-pipeline"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Answer translates question into a statement over graphSchema, runs it and
// shapes the rows into an answer.
//
// A reply that is not a statement, or a statement that returns no rows,
// yields the no-answer sentinel. A statement that fails validation is a
// core.ErrQueryGeneration and is never executed.
func (p *Pipeline) Answer(ctx context.Context, question string, graphSchema *core.GraphSchema, opts core.RetrieveOptions) (*core.RetrievalResult, error) {
	if err := core.ValidateQuestion(question); err != nil {
		return nil, err
	}
	if graphSchema == nil {
		return nil, core.NewError(core.KindQueryGeneration, core.PipelineStructured, "generate statement", ErrSchemaRequired)
	}

	reply, err := p.complete(ctx, generationPrompt(graphSchema, p.examples, question))
	if err != nil {
		p.logger.Error("statement generation failed", "err", err)
		return nil, err
	}

	statement, ok := extractStatement(reply)
	if !ok {
		p.logger.Info("model did not produce a statement", "reply", reply)
		return core.NoAnswerResult(core.PipelineStructured), nil
	}

	validated, err := p.validator.Validate(statement, graphSchema)
	if err != nil {
		p.logger.Warn("generated statement rejected", "statement", statement, "err", err)
		return nil, err
	}
	statement = validated
	p.logger.Debug("running statement", "statement", statement)

	rows, err := retry.Value(ctx, p.retry, func(ctx context.Context) ([]core.Row, error) {
		return p.db.RunReadQuery(ctx, statement, nil)
	})
	if err != nil {
		p.logger.Error("statement failed", "statement", statement, "err", err)
		return nil, core.WithPipeline(err, core.PipelineStructured)
	}

	rows = sanitizeRows(rows)
	if len(rows) == 0 {
		result := core.NoAnswerResult(core.PipelineStructured)
		result.Statement = statement
		return result, nil
	}

	result := &core.RetrievalResult{
		Pipeline:  core.PipelineStructured,
		Rows:      rows,
		Statement: statement,
	}
	if opts.Shape == core.ShapeNarrated {
		answer, err := p.complete(ctx, narrationPrompt(question, toJSON(rows)))
		if err != nil {
			return nil, err
		}
		result.Answer = answer
	} else {
		result.Answer = renderRows(rows)
	}
	return result, nil
}

func (p *Pipeline) complete(ctx context.Context, prompt ai.Prompt) (string, error) {
	reply, err := retry.Value(ctx, p.retry, func(ctx context.Context) (string, error) {
		return p.model.Complete(ctx, prompt)
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if core.KindOf(err) == core.KindUnknown {
			err = core.NewError(core.KindModelInvocation, core.PipelineStructured, "complete", err)
		}
		return "", core.WithPipeline(err, core.PipelineStructured)
	}
	return strings.TrimSpace(reply), nil
}
