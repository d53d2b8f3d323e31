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


// Package neo4j implements graph.Database on the Neo4j Go driver.
package neo4j

import (
	"context"
	"errors"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/poiesic/graphqa/core"
	"github.com/poiesic/graphqa/graph"
)

const (
	defaultTripleLimit    = 1000
	defaultAwaitIndexSecs = 300
)

// Config holds connection settings.
type Config struct {
	// URI of the server, e.g. "neo4j://localhost:7687".
	URI      string
	Username string
	Password string
	// Database name. Empty selects the server default.
	Database string
}

// DefaultConfig returns settings for a local server.
func DefaultConfig() Config {
	return Config{
		URI:      "neo4j://localhost:7687",
		Username: "neo4j",
		Database: "neo4j",
	}
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if c.URI == "" {
		return errors.New("neo4j config: URI is required")
	}
	return nil
}

// Database implements graph.Database.
type Database struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger

	tripleLimit    int
	awaitIndexSecs int
}

var _ graph.Database = (*Database)(nil)

// Option configures a Database.
type Option func(*Database) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Database) error {
		if logger == nil {
			logger = slog.Default()
		}
		d.logger = logger
		return nil
	}
}

// WithTripleLimit caps how many distinct relationship patterns schema
// introspection samples.
func WithTripleLimit(n int) Option {
	return func(d *Database) error {
		if n <= 0 {
			return errors.New("triple limit must be greater than 0")
		}
		d.tripleLimit = n
		return nil
	}
}

// WithIndexWait sets how long CreateVectorIndex waits for the index to come online.
func WithIndexWait(seconds int) Option {
	return func(d *Database) error {
		if seconds <= 0 {
			return errors.New("index wait must be greater than 0")
		}
		d.awaitIndexSecs = seconds
		return nil
	}
}

// Open connects to the server and verifies connectivity. Bad credentials and
// an unreachable server are reported as distinct core.ErrDatabaseConnection
// causes.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Database, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	auth := neo4j.NoAuth()
	if cfg.Username != "" {
		auth = neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth)
	if err != nil {
		return nil, classify(err, "connect", core.KindDatabaseConnection)
	}

	d := &Database{
		driver:         driver,
		database:       cfg.Database,
		logger:         slog.Default().With("component", "neo4j"),
		tripleLimit:    defaultTripleLimit,
		awaitIndexSecs: defaultAwaitIndexSecs,
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			_ = driver.Close(ctx)
			return nil, err
		}
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		d.logger.Error("connectivity check failed", "uri", cfg.URI, "err", err)
		return nil, classify(err, "connect", core.KindDatabaseConnection)
	}

	d.logger.Debug("connected", "uri", cfg.URI, "database", cfg.Database)
	return d, nil
}

// Close releases the driver's connections.
func (d *Database) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}

func (d *Database) readSession(ctx context.Context) neo4j.SessionWithContext {
	return d.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: d.database,
	})
}

func (d *Database) writeSession(ctx context.Context) neo4j.SessionWithContext {
	return d.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: d.database,
	})
}

// collect runs statement in a read transaction and returns every record as a map.
func (d *Database) collect(ctx context.Context, statement string, params map[string]any) ([]map[string]any, error) {
	sess := d.readSession(ctx)
	defer func() { _ = sess.Close(ctx) }()

	out, err := sess.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, statement, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]map[string]any, 0, len(records))
		for _, rec := range records {
			rows = append(rows, rec.AsMap())
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]map[string]any), nil
}

// exec runs statement in a write transaction and discards the result.
func (d *Database) exec(ctx context.Context, statement string, params map[string]any) error {
	sess := d.writeSession(ctx)
	defer func() { _ = sess.Close(ctx) }()

	_, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, statement, params)
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

// RunReadQuery executes a generated statement read-only. Syntax and
// access-mode errors are reported as core.ErrQueryGeneration.
func (d *Database) RunReadQuery(ctx context.Context, statement string, params map[string]any) ([]core.Row, error) {
	records, err := d.collect(ctx, statement, params)
	if err != nil {
		d.logger.Warn("read query failed", "err", err)
		return nil, classify(err, "run read query", core.KindQueryGeneration)
	}
	rows := make([]core.Row, 0, len(records))
	for _, r := range records {
		row := make(core.Row, len(r))
		for k, v := range r {
			row[k] = plain(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// plain replaces graph entities with their property maps so rows can be
// rendered without driver types.
func plain(v any) any {
	switch t := v.(type) {
	case neo4j.Node:
		return plainMap(t.Props)
	case neo4j.Relationship:
		return plainMap(t.Props)
	case neo4j.Path:
		out := make([]any, 0, len(t.Nodes)+len(t.Relationships))
		for i, n := range t.Nodes {
			out = append(out, plainMap(n.Props))
			if i < len(t.Relationships) {
				out = append(out, t.Relationships[i].Type)
			}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = plain(item)
		}
		return out
	case map[string]any:
		return plainMap(t)
	}
	return v
}

func plainMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = plain(v)
	}
	return out
}
