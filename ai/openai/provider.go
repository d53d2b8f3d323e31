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


package openai

import (
	"log/slog"
	"sync/atomic"

	"github.com/poiesic/graphqa/ai"
)

// Provider implements ai.AIProvider over one OpenAI-compatible account.
// The embedder and the language model draw from a single request limiter
// when both point at the same host, since they share one quota.
type Provider struct {
	embedder  *Embedder
	completer *Completer
	closed    atomic.Bool
	logger    *slog.Logger
}

var _ ai.AIProvider = (*Provider)(nil)

// NewProvider validates config and creates both services.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	completionLimiter := newLimiter(config.RequestsPerSecond)
	embeddingLimiter := completionLimiter
	if config.EmbeddingHost != config.CompletionHost {
		embeddingLimiter = newLimiter(config.RequestsPerSecond)
	}

	embedder, err := newEmbedder(config, embeddingLimiter)
	if err != nil {
		return nil, err
	}
	completer, err := newCompleter(config, completionLimiter)
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("component", "openai-provider")
	logger.Debug("provider ready",
		"completion_host", config.CompletionHost,
		"completion_model", config.CompletionModel,
		"embedding_host", config.EmbeddingHost,
		"embedding_model", config.EmbeddingModel,
		"shared_limiter", embeddingLimiter == completionLimiter && completionLimiter != nil)

	return &Provider{
		embedder:  embedder,
		completer: completer,
		logger:    logger,
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// LanguageModel returns the completion service.
func (p *Provider) LanguageModel() ai.LanguageModel {
	return p.completer
}

// Close marks the provider closed. The HTTP clients hold no resources that
// need releasing, so repeated calls are harmless.
func (p *Provider) Close() error {
	if p.closed.CompareAndSwap(false, true) {
		p.logger.Debug("closing OpenAI provider")
	}
	return nil
}
