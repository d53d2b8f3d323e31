package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/graphqa"
	"github.com/poiesic/graphqa/api"
	"github.com/poiesic/graphqa/core"
	"github.com/urfave/cli/v2"
)

// openEngine connects an Engine from the global flags.
func openEngine(c *cli.Context, opts ...graphqa.EngineOption) (*graphqa.Engine, error) {
	engine, err := graphqa.NewEngine(c.Context, configFromContext(c), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}
	return engine, nil
}

func closeEngine(engine *graphqa.Engine) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := engine.Close(ctx); err != nil {
		slog.Error("error closing engine", "err", err)
	}
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return errors.New("a question is required")
	}
	mode, err := core.ParseMode(c.String("mode"))
	if err != nil {
		return err
	}

	sessionID := c.String("session")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	shape := core.ShapeRaw
	if c.Bool("narrate") {
		shape = core.ShapeNarrated
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer closeEngine(engine)

	req := graphqa.AskRequest{
		Question:    question,
		Mode:        mode,
		SessionID:   sessionID,
		Attribution: c.Bool("sources"),
		Shape:       shape,
	}

	var answer *core.FusedAnswer
	if c.Bool("trace") {
		answer, err = engine.AskWithMonitor(c.Context, req, newTraceMonitor(c.App.ErrWriter))
	} else {
		answer, err = engine.Ask(c.Context, req)
	}
	if err != nil {
		return fmt.Errorf("failed to answer: %w", err)
	}

	p := newPrinter(c.App.Writer)
	p.answer(answer)
	if c.Bool("sources") {
		p.evidence(answer)
	}
	p.session(sessionID)
	return nil
}

func ensureIndexCommand(c *cli.Context) error {
	engine, err := openEngine(c, graphqa.WithProgress(c.App.Writer))
	if err != nil {
		return err
	}
	defer closeEngine(engine)

	handle, err := engine.EnsureIndex(c.Context)
	if err != nil {
		return fmt.Errorf("failed to provision index: %w", err)
	}
	newPrinter(c.App.Writer).index(handle)
	return nil
}

func schemaCommand(c *cli.Context) error {
	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer closeEngine(engine)

	schema, err := engine.RefreshSchema(c.Context)
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}
	fmt.Fprintln(c.App.Writer, schema.String())
	return nil
}

func historyCommand(c *cli.Context) error {
	sessionID := c.String("session")
	limit := c.Int("limit")
	if limit < 0 {
		return errors.New("limit must not be negative")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer closeEngine(engine)

	if c.Bool("clear") {
		if err := engine.ClearHistory(c.Context, sessionID); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "Cleared session %s\n", sessionID)
		return nil
	}

	turns, err := engine.History(c.Context, sessionID, limit)
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	newPrinter(c.App.Writer).turns(turns)
	return nil
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	requestTimeout := c.Duration("request-timeout")
	if requestTimeout < 0 {
		return errors.New("request-timeout must not be negative")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer closeEngine(engine)

	router, err := api.NewRouter(engine, api.WithTimeout(requestTimeout))
	if err != nil {
		return fmt.Errorf("failed to create router: %w", err)
	}

	read, write, idle := serverTimeouts(requestTimeout)
	server := &http.Server{
		Addr:         c.String("addr"),
		Handler:      router,
		ReadTimeout:  read,
		WriteTimeout: write,
		IdleTimeout:  idle,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", server.Addr)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
