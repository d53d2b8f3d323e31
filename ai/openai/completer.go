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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/poiesic/graphqa/ai"
	"github.com/poiesic/graphqa/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

var errEmptyCompletion = errors.New("model returned an empty reply")

// Completer implements ai.LanguageModel using OpenAI-compatible chat APIs.
type Completer struct {
	client      llms.Model
	temperature float64
	limiter     *rate.Limiter
	logger      *slog.Logger
}

func newCompleter(config *ai.Config, limiter *rate.Limiter) (*Completer, error) {
	client, err := openai.New(
		openai.WithBaseURL(config.CompletionHost),
		openai.WithToken(config.Token()),
		openai.WithModel(config.CompletionModel),
	)
	if err != nil {
		return nil, fmt.Errorf("create completion client: %w", err)
	}

	return &Completer{
		client:      client,
		temperature: config.Temperature,
		limiter:     limiter,
		logger:      slog.Default().With("component", "openai-completer", "model", config.CompletionModel),
	}, nil
}

// NewLanguageModel creates a completion client with its own request limiter.
func NewLanguageModel(config *ai.Config) (ai.LanguageModel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return newCompleter(config, newLimiter(config.RequestsPerSecond))
}

// newLimiter returns nil when rps does not limit anything.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(math.Ceil(rps))
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Complete sends the prompt as a system and a human message.
func (c *Completer) Complete(ctx context.Context, prompt ai.Prompt) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	content := make([]llms.MessageContent, 0, 2)
	if prompt.System != "" {
		content = append(content, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(prompt.System)},
		})
	}
	content = append(content, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(prompt.User)},
	})

	c.logger.Debug("sending completion", "system_len", len(prompt.System), "user_len", len(prompt.User))
	response, err := c.client.GenerateContent(ctx, content, llms.WithTemperature(c.temperature))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		c.logger.Error("failed to generate content", "err", err)
		return "", core.NewError(core.KindModelInvocation, "", "complete", err)
	}

	if len(response.Choices) < 1 {
		return "", core.NewError(core.KindModelInvocation, "", "complete", errEmptyCompletion)
	}

	text := strings.TrimSpace(response.Choices[0].Content)
	if text == "" {
		return "", core.NewError(core.KindModelInvocation, "", "complete", errEmptyCompletion)
	}
	return text, nil
}
