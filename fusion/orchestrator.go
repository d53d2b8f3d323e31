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


package fusion

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/graphqa/ai"
	"github.com/poiesic/graphqa/conversation"
	"github.com/poiesic/graphqa/core"
	"github.com/poiesic/graphqa/retry"
)

// DefaultHistoryTurns is the number of prior turns shown to the fusion prompt.
const DefaultHistoryTurns = 5

// Retriever produces one pipeline's answer to a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string, opts core.RetrieveOptions) (*core.RetrievalResult, error)
}

// RetrieverFunc adapts a function to Retriever.
type RetrieverFunc func(ctx context.Context, question string, opts core.RetrieveOptions) (*core.RetrievalResult, error)

// Retrieve calls f.
func (f RetrieverFunc) Retrieve(ctx context.Context, question string, opts core.RetrieveOptions) (*core.RetrievalResult, error) {
	return f(ctx, question, opts)
}

// Request is a single question routed through the orchestrator.
type Request struct {
	Question string
	// Mode selects the pipelines to run. Empty means core.ModeFused.
	Mode core.Mode
	// SessionID and Memory are both required for history to be read and written.
	SessionID   string
	Memory      conversation.Store
	Attribution bool
	Shape       core.Shape
}

// Orchestrator routes questions to the structured and similarity pipelines
// and reconciles their answers.
type Orchestrator struct {
	structured   Retriever
	similarity   Retriever
	model        ai.LanguageModel
	pool         *ants.Pool
	retry        retry.Policy
	historyTurns int
	logger       *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithPoolSize sets the worker pool size for concurrent retrievals.
// Default is runtime.NumCPU(), with a minimum of 2 so both retrievals of a
// request can run at once.
func WithPoolSize(size int) Option {
	return func(o *Orchestrator) error {
		size = max(size, 2)

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if o.pool != nil {
			o.pool.Release()
		}
		o.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// WithRetryPolicy sets the policy applied to the fusion model call.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(o *Orchestrator) error {
		if err := policy.Validate(); err != nil {
			return err
		}
		o.retry = policy
		return nil
	}
}

// WithHistoryTurns sets how many prior turns are shown to the fusion prompt.
// Zero disables history in the prompt; turns are still recorded.
func WithHistoryTurns(n int) Option {
	return func(o *Orchestrator) error {
		o.historyTurns = max(n, 0)
		return nil
	}
}

// NewOrchestrator creates an orchestrator over the two retrievers.
func NewOrchestrator(structured, similarity Retriever, model ai.LanguageModel, opts ...Option) (*Orchestrator, error) {
	if structured == nil {
		return nil, ErrStructuredRetrieverRequired
	}
	if similarity == nil {
		return nil, ErrSimilarityRetrieverRequired
	}
	if model == nil {
		return nil, ErrLanguageModelRequired
	}

	pool, err := ants.NewPool(max(runtime.NumCPU(), 2))
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		structured:   structured,
		similarity:   similarity,
		model:        model,
		pool:         pool,
		retry:        retry.DefaultPolicy(),
		historyTurns: DefaultHistoryTurns,
		logger:       slog.Default().With("component", "fusion"),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			o.Release()
			return nil, err
		}
	}
	return o, nil
}

// Release releases the worker pool.
// The orchestrator should not be used after calling Release.
func (o *Orchestrator) Release() {
	if o.pool != nil {
		o.pool.Release()
	}
}

// Select answers req using the pipelines its mode names.
func (o *Orchestrator) Select(ctx context.Context, req Request) (*core.FusedAnswer, error) {
	return o.SelectWithMonitor(ctx, req, nil)
}

// SelectWithMonitor answers req, reporting progress to monitor.
//
// The structured and similarity modes run only their own pipeline and return
// its answer verbatim. The fused mode runs both concurrently and waits for
// both before fusing; if either fails outright the other is cancelled and
// the failure is returned as core.ErrFusionInputMissing.
func (o *Orchestrator) SelectWithMonitor(ctx context.Context, req Request, monitor Monitor) (answer *core.FusedAnswer, err error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	mode, err := core.ParseMode(string(req.Mode))
	if err != nil {
		return nil, err
	}
	if err := core.ValidateQuestion(req.Question); err != nil {
		return nil, err
	}

	monitor.Start(req.Question, mode)
	defer func() { monitor.Finish(answer, err) }()

	remember := req.Memory != nil && strings.TrimSpace(req.SessionID) != ""
	opts := core.RetrieveOptions{Attribution: req.Attribution, Shape: req.Shape}

	switch mode {
	case core.ModeStructured:
		answer, err = o.single(ctx, core.PipelineStructured, o.structured, req.Question, opts, monitor)
	case core.ModeSimilarity:
		answer, err = o.single(ctx, core.PipelineSimilarity, o.similarity, req.Question, opts, monitor)
	default:
		var history []core.Turn
		if remember && o.historyTurns > 0 {
			history, err = req.Memory.History(ctx, req.SessionID, o.historyTurns)
			if err != nil {
				o.logger.Warn("could not load conversation history", "session", req.SessionID, "err", err)
				history = nil
			}
		}
		answer, err = o.fused(ctx, req.Question, opts, history, monitor)
	}
	if err != nil {
		return nil, err
	}

	if remember {
		turn := core.Turn{
			SessionID: req.SessionID,
			Question:  req.Question,
			Answer:    answer.Answer,
			Mode:      mode,
			Timestamp: time.Now().UTC(),
		}
		if err := req.Memory.Append(ctx, turn); err != nil {
			o.logger.Warn("could not record conversation turn", "session", req.SessionID, "err", err)
		}
	}
	return answer, nil
}

func (o *Orchestrator) single(ctx context.Context, pipeline core.Pipeline, r Retriever, question string, opts core.RetrieveOptions, monitor Monitor) (*core.FusedAnswer, error) {
	result, err := retrieve(ctx, pipeline, r, question, opts, monitor)
	if err != nil {
		o.logger.Error("retrieval failed", "pipeline", pipeline, "err", err)
		return nil, err
	}

	answer := &core.FusedAnswer{
		Answer: result.Answer,
		Mode:   core.Mode(pipeline),
	}
	if pipeline == core.PipelineStructured {
		answer.Structured = result
	} else {
		answer.Similarity = result
	}
	if result.HasEvidence() {
		answer.Contributors = []core.Pipeline{pipeline}
	}
	return answer, nil
}

func (o *Orchestrator) fused(ctx context.Context, question string, opts core.RetrieveOptions, history []core.Turn, monitor Monitor) (*core.FusedAnswer, error) {
	gctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var (
		wg         sync.WaitGroup
		structured *core.RetrievalResult
		similarity *core.RetrievalResult
	)
	run := func(pipeline core.Pipeline, r Retriever, out **core.RetrievalResult) {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			result, err := retrieve(gctx, pipeline, r, question, opts, monitor)
			if err != nil {
				// the first failure wins; the sibling sees a cancelled context
				cancel(core.NewError(core.KindFusionInputMissing, pipeline, "retrieve", err))
				return
			}
			*out = result
		}
		if err := o.pool.Submit(task); err != nil {
			wg.Done()
			cancel(core.NewError(core.KindFusionInputMissing, pipeline, "submit", err))
		}
	}
	run(core.PipelineStructured, o.structured, &structured)
	run(core.PipelineSimilarity, o.similarity, &similarity)
	wg.Wait()

	if err := context.Cause(gctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		o.logger.Error("fusion input missing", "pipeline", core.PipelineOf(err), "err", err)
		return nil, err
	}
	return o.Fuse(ctx, question, structured, similarity, history)
}

// Fuse reconciles the two pipelines' answers into one. Sentinel results are
// valid inputs; a nil result is core.ErrFusionInputMissing.
//
// A single sentinel still goes to the model, marked as carrying no relevant
// information. When both results are sentinels Fuse deliberately skips
// synthesis and returns core.NoAnswerText without a model call.
func (o *Orchestrator) Fuse(ctx context.Context, question string, structured, similarity *core.RetrievalResult, history []core.Turn) (*core.FusedAnswer, error) {
	if structured == nil {
		return nil, core.NewError(core.KindFusionInputMissing, core.PipelineStructured, "fuse", ErrNoResult)
	}
	if similarity == nil {
		return nil, core.NewError(core.KindFusionInputMissing, core.PipelineSimilarity, "fuse", ErrNoResult)
	}

	answer := &core.FusedAnswer{
		Mode:       core.ModeFused,
		Structured: structured,
		Similarity: similarity,
	}
	if structured.HasEvidence() {
		answer.Contributors = append(answer.Contributors, core.PipelineStructured)
	}
	if similarity.HasEvidence() {
		answer.Contributors = append(answer.Contributors, core.PipelineSimilarity)
	}
	if len(answer.Contributors) == 0 {
		answer.Answer = core.NoAnswerText
		return answer, nil
	}

	prompt := fusionPrompt(question, structured, similarity, history)
	reply, err := retry.Value(ctx, o.retry, func(ctx context.Context) (string, error) {
		return o.model.Complete(ctx, prompt)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		o.logger.Error("fusion failed", "err", err)
		if core.KindOf(err) == core.KindUnknown {
			err = core.NewError(core.KindModelInvocation, "", "fuse", err)
		}
		return nil, err
	}
	answer.Answer = strings.TrimSpace(reply)
	return answer, nil
}

func retrieve(ctx context.Context, pipeline core.Pipeline, r Retriever, question string, opts core.RetrieveOptions, monitor Monitor) (*core.RetrievalResult, error) {
	monitor.RetrievalStarted(pipeline)
	result, err := r.Retrieve(ctx, question, opts)
	if err == nil && result == nil {
		err = core.NewError(core.KindFusionInputMissing, pipeline, "retrieve", ErrNoResult)
	}
	if err != nil {
		err = core.WithPipeline(err, pipeline)
		result = nil
	}
	monitor.RetrievalFinished(pipeline, result, err)
	return result, err
}
