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


package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/graphqa"
	"github.com/poiesic/graphqa/ai"
	"github.com/poiesic/graphqa/api"
	"github.com/poiesic/graphqa/core"
	"github.com/poiesic/graphqa/graph/neo4j"
	"github.com/urfave/cli/v2"
)

func main() {
	// Flags read their EnvVars while parsing, so .env must be loaded first.
	if err := loadDotEnv(".env"); err != nil {
		log.Fatal(err)
	}
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "graphqa",
		Usage: "Answer questions over a Neo4j knowledge graph",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		}, connectionFlags()...),
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "Answer a question",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "mode",
						Aliases: []string{"m"},
						Usage:   "Retrieval mode (structured, similarity, fused)",
						Value:   string(core.ModeFused),
					},
					&cli.StringFlag{
						Name:    "session",
						Aliases: []string{"s"},
						Usage:   "Conversation session id (a new one is generated when empty)",
					},
					&cli.BoolFlag{
						Name:  "sources",
						Usage: "Print the evidence behind the answer",
					},
					&cli.BoolFlag{
						Name:  "narrate",
						Usage: "Summarise structured rows with the language model",
					},
					&cli.BoolFlag{
						Name:  "trace",
						Usage: "Print each retrieval as it runs",
					},
				},
			},
			{
				Name:   "ensure-index",
				Usage:  "Attach the vector index, building it when it does not exist",
				Action: ensureIndexCommand,
			},
			{
				Name:   "schema",
				Usage:  "Print the graph schema shown to the language model",
				Action: schemaCommand,
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Aliases: []string{"a"},
						Usage:   "Listen address",
						Value:   ":8000",
						EnvVars: []string{"GRAPHQA_ADDR"},
					},
					&cli.DurationFlag{
						Name:  "request-timeout",
						Usage: "Maximum time spent answering one request",
						Value: api.DefaultTimeout,
					},
				},
			},
			{
				Name:   "history",
				Usage:  "Show or clear the turns of a conversation session",
				Action: historyCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "session",
						Aliases:  []string{"s"},
						Usage:    "Conversation session id",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of most recent turns to show (0 shows all)",
						Value: 10,
					},
					&cli.BoolFlag{
						Name:  "clear",
						Usage: "Forget the session instead of printing it",
					},
				},
			},
		},
	}
}

// connectionFlags are shared by every command that opens an Engine.
func connectionFlags() []cli.Flag {
	graphDefaults := neo4j.DefaultConfig()
	aiDefaults := ai.DefaultConfig()
	defaults := graphqa.DefaultConfig()
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "neo4j-uri",
			Usage:   "Neo4j connection URI",
			Value:   graphDefaults.URI,
			EnvVars: []string{"NEO4J_URI"},
		},
		&cli.StringFlag{
			Name:    "neo4j-username",
			Usage:   "Neo4j user",
			Value:   graphDefaults.Username,
			EnvVars: []string{"NEO4J_USERNAME"},
		},
		&cli.StringFlag{
			Name:    "neo4j-password",
			Usage:   "Neo4j password",
			EnvVars: []string{"NEO4J_PASSWORD"},
		},
		&cli.StringFlag{
			Name:    "neo4j-database",
			Usage:   "Neo4j database name",
			Value:   graphDefaults.Database,
			EnvVars: []string{"NEO4J_DATABASE"},
		},
		&cli.StringFlag{
			Name:    "ai-host",
			Usage:   "OpenAI-compatible service host URL for completions and embeddings",
			Value:   aiDefaults.CompletionHost,
			EnvVars: []string{"OPENAI_BASE_URL"},
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "API key for the AI service",
			EnvVars: []string{"OPENAI_API_KEY"},
		},
		&cli.StringFlag{
			Name:  "completion-model",
			Usage: "Language model name",
			Value: aiDefaults.CompletionModel,
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: aiDefaults.EmbeddingModel,
		},
		&cli.IntFlag{
			Name:  "top-k",
			Usage: "Number of passages fetched per similarity query",
			Value: defaults.TopK,
		},
		&cli.IntFlag{
			Name:  "token-budget",
			Usage: "Maximum passage tokens handed to the model",
			Value: defaults.TokenBudget,
		},
		&cli.StringFlag{
			Name:    "conversation-path",
			Usage:   "Directory of the conversation store (empty keeps conversations in memory)",
			EnvVars: []string{"GRAPHQA_CONVERSATION_PATH"},
		},
	}
}

// configFromContext builds an Engine configuration from the global flags.
func configFromContext(c *cli.Context) *graphqa.Config {
	cfg := graphqa.DefaultConfig()
	cfg.Graph = neo4j.Config{
		URI:      c.String("neo4j-uri"),
		Username: c.String("neo4j-username"),
		Password: c.String("neo4j-password"),
		Database: c.String("neo4j-database"),
	}
	cfg.AI = ai.NewConfig(
		ai.WithHost(c.String("ai-host")),
		ai.WithAPIKey(c.String("api-key")),
		ai.WithCompletionModel(c.String("completion-model")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	cfg.TopK = c.Int("top-k")
	cfg.TokenBudget = c.Int("token-budget")
	cfg.ConversationPath = c.String("conversation-path")
	return cfg
}

// loadDotEnv exports the variables in path. A missing file is not an error.
// Variables already set in the environment win.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	logLevel := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", logLevel)
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}
	handler := slog.NewTextHandler(os.Stderr, opts)
	slog.SetDefault(slog.New(handler))

	return nil
}

// serverTimeouts derives the http.Server write timeout from the request
// timeout so a slow answer is not cut off mid-response.
func serverTimeouts(requestTimeout time.Duration) (read, write, idle time.Duration) {
	read = 15 * time.Second
	idle = 60 * time.Second
	write = 30 * time.Second
	if requestTimeout > 0 {
		write = max(write, requestTimeout+10*time.Second)
	} else {
		write = 0
	}
	return read, write, idle
}
