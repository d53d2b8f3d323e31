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


package graphqa

import (
	"context"
	"io"
	"log/slog"

	"github.com/poiesic/graphqa/ai"
	"github.com/poiesic/graphqa/ai/openai"
	"github.com/poiesic/graphqa/conversation"
	convbadger "github.com/poiesic/graphqa/conversation/badger"
	"github.com/poiesic/graphqa/core"
	"github.com/poiesic/graphqa/fusion"
	"github.com/poiesic/graphqa/graph"
	"github.com/poiesic/graphqa/graph/neo4j"
	"github.com/poiesic/graphqa/index"
	"github.com/poiesic/graphqa/schema"
	"github.com/poiesic/graphqa/similarity"
	"github.com/poiesic/graphqa/structured"
)

// Engine wires the graph database, the language model and the retrieval
// pipelines together behind one question-answering entry point.
type Engine struct {
	cfg          *Config
	db           graph.Database
	provider     ai.AIProvider
	memory       conversation.Store
	schemas      *schema.Cache
	provisioner  *index.Provisioner
	structured   *structured.Pipeline
	similarity   *similarity.Pipeline
	orchestrator *fusion.Orchestrator
	owned        ownership
	logger       *slog.Logger
}

// ownership records which resources the engine opened and must close.
type ownership struct {
	db, provider, memory bool
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	db       graph.Database
	provider ai.AIProvider
	memory   conversation.Store
	counter  similarity.TokenCounter
	progress io.Writer
	logger   *slog.Logger
}

// WithGraphDatabase uses db instead of connecting with Config.Graph.
// The caller keeps ownership of db.
func WithGraphDatabase(db graph.Database) EngineOption {
	return func(o *engineOptions) {
		o.db = db
	}
}

// WithAIProvider uses provider instead of building one from Config.AI.
// The caller keeps ownership of provider.
func WithAIProvider(provider ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithConversationStore uses store instead of opening Config.ConversationPath.
// The caller keeps ownership of store.
func WithConversationStore(store conversation.Store) EngineOption {
	return func(o *engineOptions) {
		o.memory = store
	}
}

// WithTokenCounter overrides the counter built from Config.TokenEncoding.
func WithTokenCounter(counter similarity.TokenCounter) EngineOption {
	return func(o *engineOptions) {
		o.counter = counter
	}
}

// WithProgress reports index build progress to w.
func WithProgress(w io.Writer) EngineOption {
	return func(o *engineOptions) {
		o.progress = w
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// NewEngine builds an Engine from cfg. A nil cfg uses DefaultConfig.
func NewEngine(ctx context.Context, cfg *Config, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	options := &engineOptions{}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:    cfg,
		logger: logger.With("component", "engine"),
	}
	if err := e.open(ctx, options, logger); err != nil {
		e.Close(ctx)
		return nil, err
	}
	if err := e.build(options, logger); err != nil {
		e.Close(ctx)
		return nil, err
	}
	return e, nil
}

// open connects the external resources the caller did not supply.
func (e *Engine) open(ctx context.Context, options *engineOptions, logger *slog.Logger) error {
	e.db = options.db
	if e.db == nil {
		db, err := neo4j.Open(ctx, e.cfg.Graph, neo4j.WithLogger(logger.With("component", "neo4j")))
		if err != nil {
			return err
		}
		e.db = db
		e.owned.db = true
	}

	e.provider = options.provider
	if e.provider == nil {
		provider, err := openai.NewProvider(e.cfg.AI)
		if err != nil {
			return err
		}
		e.provider = provider
		e.owned.provider = true
	}

	e.memory = options.memory
	if e.memory == nil {
		store, err := convbadger.Open(e.cfg.ConversationPath, convbadger.WithLogger(logger.With("component", "conversation-store")))
		if err != nil {
			return err
		}
		e.memory = store
		e.owned.memory = true
	}
	return nil
}

// build creates the pipelines over the opened resources.
func (e *Engine) build(options *engineOptions, logger *slog.Logger) error {
	var err error

	e.schemas, err = schema.NewCache(e.db,
		schema.WithRefreshInterval(e.cfg.SchemaRefreshInterval),
		schema.WithCacheLogger(logger.With("component", "schema-cache")))
	if err != nil {
		return err
	}

	provisionerOpts := []index.Option{
		index.WithLogger(logger.With("component", "index-provisioner")),
		index.WithRetryPolicy(e.cfg.Retry),
	}
	if options.progress != nil {
		provisionerOpts = append(provisionerOpts, index.WithProgress(options.progress, 100))
	}
	e.provisioner, err = index.NewProvisioner(e.db, e.provider.Embedder(), provisionerOpts...)
	if err != nil {
		return err
	}

	e.structured, err = structured.NewPipeline(e.db, e.provider.LanguageModel(),
		structured.WithLogger(logger.With("component", "structured-pipeline")),
		structured.WithRetryPolicy(e.cfg.Retry))
	if err != nil {
		return err
	}

	counter := options.counter
	if counter == nil {
		counter = e.tokenCounter()
	}
	e.similarity, err = similarity.NewPipeline(e.provider.Embedder(), e.db, e.provider.LanguageModel(),
		similarity.WithLogger(logger.With("component", "similarity-pipeline")),
		similarity.WithTokenCounter(counter),
		similarity.WithRetryPolicy(e.cfg.Retry))
	if err != nil {
		return err
	}

	e.orchestrator, err = fusion.NewOrchestrator(
		&structuredRetriever{schemas: e.schemas, pipeline: e.structured},
		&similarityRetriever{
			provisioner: e.provisioner,
			spec:        e.cfg.Index,
			pipeline:    e.similarity,
			topK:        e.cfg.TopK,
			tokenBudget: e.cfg.TokenBudget,
		},
		e.provider.LanguageModel(),
		fusion.WithPoolSize(e.cfg.PoolSize),
		fusion.WithRetryPolicy(e.cfg.Retry),
		fusion.WithLogger(logger.With("component", "fusion")))
	return err
}

func (e *Engine) tokenCounter() similarity.TokenCounter {
	counter, err := similarity.NewTiktokenCounter(e.cfg.TokenEncoding)
	if err != nil {
		e.logger.Warn("token encoding unavailable, estimating token counts", "encoding", e.cfg.TokenEncoding, "err", err)
		return similarity.ApproxCounter{}
	}
	return counter
}

// AskRequest is a question addressed to the engine.
type AskRequest struct {
	Question string
	// Mode is one of core.ModeStructured, core.ModeSimilarity or
	// core.ModeFused. Empty means fused.
	Mode core.Mode
	// SessionID keys conversation history. Empty asks without history.
	SessionID   string
	Attribution bool
	Shape       core.Shape
}

// Ask answers req.
func (e *Engine) Ask(ctx context.Context, req AskRequest) (*core.FusedAnswer, error) {
	return e.AskWithMonitor(ctx, req, nil)
}

// AskWithMonitor answers req, reporting progress to monitor.
func (e *Engine) AskWithMonitor(ctx context.Context, req AskRequest, monitor fusion.Monitor) (*core.FusedAnswer, error) {
	return e.orchestrator.SelectWithMonitor(ctx, fusion.Request{
		Question:    req.Question,
		Mode:        req.Mode,
		SessionID:   req.SessionID,
		Memory:      e.memory,
		Attribution: req.Attribution,
		Shape:       req.Shape,
	}, monitor)
}

// EnsureIndex attaches the configured similarity index, building it first
// if it does not exist.
func (e *Engine) EnsureIndex(ctx context.Context) (*core.IndexHandle, error) {
	return e.provisioner.EnsureIndex(ctx, e.cfg.Index)
}

// Schema returns the cached graph schema, refreshing it when stale.
func (e *Engine) Schema(ctx context.Context) (*core.GraphSchema, error) {
	return e.schemas.Get(ctx)
}

// RefreshSchema reads the graph schema from the database now.
func (e *Engine) RefreshSchema(ctx context.Context) (*core.GraphSchema, error) {
	return e.schemas.Refresh(ctx)
}

// WatchSchema refreshes the schema every time signal fires until ctx ends.
func (e *Engine) WatchSchema(ctx context.Context, signal <-chan struct{}) {
	e.schemas.Watch(ctx, signal)
}

// History returns the most recent turns of a session, oldest first.
func (e *Engine) History(ctx context.Context, sessionID string, limit int) ([]core.Turn, error) {
	return e.memory.History(ctx, sessionID, limit)
}

// ClearHistory forgets every turn of a session.
func (e *Engine) ClearHistory(ctx context.Context, sessionID string) error {
	return e.memory.Clear(ctx, sessionID)
}

// Close releases the worker pool and every resource the engine opened.
func (e *Engine) Close(ctx context.Context) error {
	var firstErr error
	keep := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	if e.orchestrator != nil {
		e.orchestrator.Release()
	}
	if e.owned.provider && e.provider != nil {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
			keep(err)
		}
	}
	if e.owned.memory && e.memory != nil {
		if err := e.memory.Close(); err != nil {
			e.logger.Error("error closing conversation store", "err", err)
			keep(err)
		}
	}
	if e.owned.db && e.db != nil {
		if err := e.db.Close(ctx); err != nil {
			e.logger.Error("error closing graph database", "err", err)
			keep(err)
		}
	}
	return firstErr
}
