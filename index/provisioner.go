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


package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/poiesic/graphqa/ai"
	"github.com/poiesic/graphqa/core"
	"github.com/poiesic/graphqa/graph"
	"github.com/poiesic/graphqa/retry"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultBatchSize is the number of texts sent to the embedder at once.
	DefaultBatchSize = 64

	// DefaultConcurrency is the number of embedding batches in flight.
	DefaultConcurrency = 4

	// DefaultReportInterval is how often build progress is printed, in nodes.
	DefaultReportInterval = 100

	dimensionProbe = "dimension probe"
)

// Provisioner attaches to an existing vector index or builds one when none
// exists. It is safe for concurrent use; at most one build per index name
// runs at a time, and the outcome of a build is remembered for the life of
// the Provisioner.
type Provisioner struct {
	db       graph.IndexManager
	embedder ai.Embedder
	retry    retry.Policy
	logger   *slog.Logger

	batchSize      int
	concurrency    int
	progress       io.Writer
	reportInterval int

	group singleflight.Group

	mu       sync.Mutex
	handles  map[string]*core.IndexHandle
	failures map[string]error
}

// Option configures a Provisioner.
type Option func(*Provisioner) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provisioner) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithBatchSize sets how many node texts are embedded per request.
func WithBatchSize(n int) Option {
	return func(p *Provisioner) error {
		if n <= 0 {
			return errors.New("batch size must be greater than 0")
		}
		p.batchSize = n
		return nil
	}
}

// WithConcurrency sets how many embedding requests run at once during a build.
func WithConcurrency(n int) Option {
	return func(p *Provisioner) error {
		if n <= 0 {
			return errors.New("concurrency must be greater than 0")
		}
		p.concurrency = n
		return nil
	}
}

// WithRetryPolicy sets the policy applied to embedding calls.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(p *Provisioner) error {
		if err := policy.Validate(); err != nil {
			return err
		}
		p.retry = policy
		return nil
	}
}

// WithProgress writes build progress to w every interval nodes.
func WithProgress(w io.Writer, interval int) Option {
	return func(p *Provisioner) error {
		p.progress = w
		if interval > 0 {
			p.reportInterval = interval
		}
		return nil
	}
}

// NewProvisioner creates a Provisioner.
func NewProvisioner(db graph.IndexManager, embedder ai.Embedder, opts ...Option) (*Provisioner, error) {
	if db == nil {
		return nil, ErrIndexManagerRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	p := &Provisioner{
		db:             db,
		embedder:       embedder,
		retry:          retry.DefaultPolicy(),
		logger:         slog.Default().With("component", "index-provisioner"),
		batchSize:      DefaultBatchSize,
		concurrency:    DefaultConcurrency,
		reportInterval: DefaultReportInterval,
		handles:        make(map[string]*core.IndexHandle),
		failures:       make(map[string]error),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// EnsureIndex returns a handle to the vector index described by spec. An
// existing index is attached; the build path runs only when the database
// reports that no index with that name exists. Attach errors such as an
// unreachable database never trigger a build. Every failure is a
// core.ErrIndexUnavailable.
func (p *Provisioner) EnsureIndex(ctx context.Context, spec core.IndexSpec) (*core.IndexHandle, error) {
	if err := core.ValidateIndexSpec(spec); err != nil {
		return nil, unavailable("ensure index", err)
	}

	if h, ok, err := p.remembered(spec); ok {
		return h, err
	}

	v, err, shared := p.group.Do(spec.Name, func() (any, error) {
		if h, ok, err := p.remembered(spec); ok {
			return h, err
		}
		return p.provision(ctx, spec)
	})
	if err != nil {
		return nil, err
	}
	h := v.(*core.IndexHandle)
	if shared && !h.Covers(spec) {
		return nil, mismatch(h, spec)
	}
	return h, nil
}

// Handle returns the remembered handle for name, if any.
func (p *Provisioner) Handle(name string) (*core.IndexHandle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.handles[name]
	return h, ok
}

// Reset forgets the handle or failed build remembered for name, so the next
// EnsureIndex attaches again.
func (p *Provisioner) Reset(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.handles, name)
	delete(p.failures, name)
}

func (p *Provisioner) remembered(spec core.IndexSpec) (*core.IndexHandle, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err, ok := p.failures[spec.Name]; ok {
		return nil, true, err
	}
	if h, ok := p.handles[spec.Name]; ok {
		if !h.Covers(spec) {
			return nil, true, mismatch(h, spec)
		}
		return h, true, nil
	}
	return nil, false, nil
}

func (p *Provisioner) provision(ctx context.Context, spec core.IndexSpec) (*core.IndexHandle, error) {
	res, err := p.db.AttachVectorIndex(ctx, spec)
	if err != nil {
		p.logger.Error("attach failed", "index", spec.Name, "err", err)
		return nil, unavailable("attach index", err)
	}

	if res.Status == core.StatusAttached {
		if !res.Handle.Covers(spec) {
			return nil, mismatch(res.Handle, spec)
		}
		p.logger.Info("attached existing index", "index", spec.Name)
		p.remember(spec.Name, res.Handle, nil)
		return res.Handle, nil
	}

	p.logger.Info("index not found, building", "index", spec.Name, "reason", res.Reason)
	h, err := p.build(ctx, spec)
	if err != nil {
		err = unavailable("build index", err)
		p.logger.Error("build failed", "index", spec.Name, "err", err)
		if ctx.Err() == nil {
			p.remember(spec.Name, nil, err)
		}
		return nil, err
	}
	p.remember(spec.Name, h, nil)
	return h, nil
}

func (p *Provisioner) remember(name string, h *core.IndexHandle, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.failures[name] = err
		return
	}
	p.handles[name] = h
}

func (p *Provisioner) build(ctx context.Context, spec core.IndexSpec) (*core.IndexHandle, error) {
	if spec.Dimensions == 0 {
		dims, err := p.probeDimensions(ctx)
		if err != nil {
			return nil, err
		}
		spec.Dimensions = dims
	}

	b := &builder{
		db:          p.db,
		embedder:    p.embedder,
		retry:       p.retry,
		spec:        spec,
		batchSize:   p.batchSize,
		concurrency: p.concurrency,
		logger:      p.logger,
	}
	if err := b.embedAll(ctx, p.progress, p.reportInterval); err != nil {
		return nil, err
	}

	if err := p.db.CreateVectorIndex(ctx, spec); err != nil {
		return nil, err
	}

	res, err := p.db.AttachVectorIndex(ctx, spec)
	if err != nil {
		return nil, err
	}
	if res.Status != core.StatusAttached {
		return nil, fmt.Errorf("index %q not visible after creation: %s", spec.Name, res.Reason)
	}
	if !res.Handle.Covers(spec) {
		return nil, mismatch(res.Handle, spec)
	}
	p.logger.Info("built index", "index", spec.Name, "dimensions", spec.Dimensions)
	return res.Handle, nil
}

func (p *Provisioner) probeDimensions(ctx context.Context) (int, error) {
	vec, err := retry.Value(ctx, p.retry, func(ctx context.Context) ([]float32, error) {
		return p.embedder.EmbedText(ctx, dimensionProbe)
	})
	if err != nil {
		return 0, fmt.Errorf("probe embedding dimensions: %w", err)
	}
	if len(vec) == 0 {
		return 0, errors.New("embedder returned an empty vector")
	}
	return len(vec), nil
}

func unavailable(op string, err error) error {
	var cerr *core.Error
	if errors.As(err, &cerr) && cerr.Kind == core.KindIndexUnavailable {
		return err
	}
	return core.NewError(core.KindIndexUnavailable, core.PipelineSimilarity, op, err)
}

func mismatch(h *core.IndexHandle, spec core.IndexSpec) error {
	if h == nil {
		return core.NewError(core.KindIndexUnavailable, core.PipelineSimilarity, "attach index",
			fmt.Errorf("%w: index %q attached without a handle", ErrIndexMismatch, spec.Name))
	}
	return core.NewError(core.KindIndexUnavailable, core.PipelineSimilarity, "attach index",
		fmt.Errorf("%w: index %q covers :%s(%s), want :%s(%s)", ErrIndexMismatch,
			spec.Name, h.NodeLabel, h.EmbeddingProperty, spec.NodeLabel, spec.EmbeddingProperty))
}
