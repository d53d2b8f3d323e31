package graphqa

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/poiesic/graphqa/ai"
	"github.com/poiesic/graphqa/core"
	"github.com/poiesic/graphqa/graph/neo4j"
	"github.com/poiesic/graphqa/retry"
	"github.com/poiesic/graphqa/similarity"
)

// Config holds every setting an Engine needs. Build it once at startup.
type Config struct {
	Graph neo4j.Config
	AI    *ai.Config
	Index core.IndexSpec

	// TopK is the number of passages fetched per similarity query.
	TopK int
	// TokenBudget caps the passage tokens handed to the model.
	TokenBudget int
	// TokenEncoding names the tiktoken encoding used to count tokens.
	TokenEncoding string

	// SchemaRefreshInterval bounds the age of the cached graph schema.
	// Zero keeps the schema until it is refreshed explicitly.
	SchemaRefreshInterval time.Duration

	// ConversationPath is the directory of the conversation store.
	// Empty keeps conversations in memory.
	ConversationPath string

	Retry retry.Policy

	// PoolSize is the number of workers running retrievals.
	PoolSize int
}

// DefaultConfig returns settings for local services.
func DefaultConfig() *Config {
	return &Config{
		Graph:                 neo4j.DefaultConfig(),
		AI:                    ai.DefaultConfig(),
		Index:                 core.DefaultIndexSpec(),
		TopK:                  4,
		TokenBudget:           2000,
		TokenEncoding:         similarity.DefaultEncoding,
		SchemaRefreshInterval: time.Minute,
		Retry:                 retry.DefaultPolicy(),
		PoolSize:              max(runtime.NumCPU(), 2),
	}
}

// Validate checks that the configuration is valid and complete.
func (c *Config) Validate() error {
	if c.AI == nil {
		return errors.New("config: AI is required")
	}
	if err := c.AI.Validate(); err != nil {
		return err
	}
	if err := c.Graph.Validate(); err != nil {
		return err
	}
	if err := core.ValidateIndexSpec(c.Index); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.TopK < 1 {
		return errors.New("config: TopK must be at least 1")
	}
	if c.TokenBudget < 1 {
		return errors.New("config: TokenBudget must be at least 1")
	}
	if c.SchemaRefreshInterval < 0 {
		return errors.New("config: SchemaRefreshInterval must not be negative")
	}
	if c.PoolSize < 2 {
		return errors.New("config: PoolSize must be at least 2")
	}
	return c.Retry.Validate()
}
