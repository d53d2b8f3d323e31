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


package schema

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/graphqa/core"
	"github.com/poiesic/graphqa/graph"
	"golang.org/x/sync/singleflight"
)

// DefaultRefreshInterval is how long a cached schema is served before it is
// read again.
const DefaultRefreshInterval = time.Minute

// Cache serves the graph schema to concurrent readers.
type Cache struct {
	reader   graph.SchemaReader
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	current   *core.GraphSchema
	fetchedAt time.Time
	stale     bool
}

// CacheOption configures a Cache.
type CacheOption func(*Cache) error

// WithRefreshInterval sets how long a schema is served before it is read
// again. Zero keeps a schema until Invalidate is called.
func WithRefreshInterval(d time.Duration) CacheOption {
	return func(c *Cache) error {
		if d < 0 {
			return errors.New("refresh interval must not be negative")
		}
		c.interval = d
		return nil
	}
}

// WithCacheLogger sets a custom logger.
// Default is slog.Default().
func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewCache creates a schema cache over reader.
func NewCache(reader graph.SchemaReader, opts ...CacheOption) (*Cache, error) {
	if reader == nil {
		return nil, ErrSchemaReaderRequired
	}
	c := &Cache{
		reader:   reader,
		interval: DefaultRefreshInterval,
		logger:   slog.Default().With("component", "schema-cache"),
		now:      time.Now,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Get returns the cached schema, reading it from the database first when it
// is missing, older than the refresh interval, or invalidated.
func (c *Cache) Get(ctx context.Context) (*core.GraphSchema, error) {
	c.mu.RLock()
	current, fetchedAt, stale := c.current, c.fetchedAt, c.stale
	c.mu.RUnlock()

	if current != nil && !stale && (c.interval == 0 || c.now().Sub(fetchedAt) < c.interval) {
		return current, nil
	}
	return c.Refresh(ctx)
}

// Refresh reads the schema from the database and replaces the cached copy.
// Concurrent callers share one read.
func (c *Cache) Refresh(ctx context.Context) (*core.GraphSchema, error) {
	v, err, _ := c.group.Do("schema", func() (any, error) {
		s, err := c.reader.RefreshSchema(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.current = s
		c.fetchedAt = c.now()
		c.stale = false
		c.mu.Unlock()
		return s, nil
	})
	if err != nil {
		c.logger.Error("schema refresh failed", "err", err)
		return nil, core.WithPipeline(err, core.PipelineStructured)
	}
	s := v.(*core.GraphSchema)
	c.logger.Debug("schema refreshed", "labels", len(s.NodeProperties), "patterns", len(s.Relationships))
	return s, nil
}

// Invalidate marks the cached schema stale. The next Get reads it again.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stale = true
}

// Peek returns the cached schema without refreshing it. The result is nil
// until the first successful read.
func (c *Cache) Peek() *core.GraphSchema {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Watch calls Invalidate each time signal fires, until ctx is done or signal
// is closed.
func (c *Cache) Watch(ctx context.Context, signal <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-signal:
			if !ok {
				return
			}
			c.logger.Debug("schema invalidated by signal")
			c.Invalidate()
		}
	}
}
