package graphqa

import (
	"testing"
	"time"

	"github.com/poiesic/graphqa/core"
	"github.com/poiesic/graphqa/similarity"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 4, cfg.TopK)
	assert.Equal(t, 2000, cfg.TokenBudget)
	assert.Equal(t, similarity.DefaultEncoding, cfg.TokenEncoding)
	assert.Equal(t, time.Minute, cfg.SchemaRefreshInterval)
	assert.Equal(t, core.DefaultIndexSpec(), cfg.Index)
	assert.Empty(t, cfg.ConversationPath)
	assert.GreaterOrEqual(t, cfg.PoolSize, 2)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"nil AI", func(c *Config) { c.AI = nil }},
		{"no graph URI", func(c *Config) { c.Graph.URI = "" }},
		{"bad index", func(c *Config) { c.Index.NodeLabel = "" }},
		{"zero top k", func(c *Config) { c.TopK = 0 }},
		{"zero budget", func(c *Config) { c.TokenBudget = 0 }},
		{"negative refresh", func(c *Config) { c.SchemaRefreshInterval = -time.Second }},
		{"small pool", func(c *Config) { c.PoolSize = 1 }},
		{"bad retry", func(c *Config) { c.Retry.MaxAttempts = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
