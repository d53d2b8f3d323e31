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


package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/graphqa"
	"github.com/poiesic/graphqa/core"
)

const (
	// DefaultTimeout bounds the time spent answering one question.
	DefaultTimeout = 2 * time.Minute

	maxBodyBytes = 1 << 20
)

// Asker answers questions. *graphqa.Engine implements it.
type Asker interface {
	Ask(ctx context.Context, req graphqa.AskRequest) (*core.FusedAnswer, error)
}

var _ Asker = (*graphqa.Engine)(nil)

// Router serves the question-answering HTTP API.
type Router struct {
	asker   Asker
	mux     *http.ServeMux
	handler http.Handler
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Router.
type Option func(*Router) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithTimeout bounds the time spent answering one question.
// Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Router) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		r.timeout = d
		return nil
	}
}

// NewRouter creates a router over asker.
func NewRouter(asker Asker, opts ...Option) (*Router, error) {
	if asker == nil {
		return nil, ErrAskerRequired
	}

	r := &Router{
		asker:   asker,
		mux:     http.NewServeMux(),
		timeout: DefaultTimeout,
		logger:  slog.Default().With("component", "api"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	r.mux.HandleFunc("POST /api/chat", r.chat(core.ModeFused))
	r.mux.HandleFunc("POST /api/chat/vector", r.chat(core.ModeSimilarity))
	r.mux.HandleFunc("POST /api/chat/graph", r.chat(core.ModeStructured))
	r.mux.HandleFunc("POST /api/ask", r.ask)
	r.mux.HandleFunc("GET /health", r.health)

	r.handler = withCORS(withRequestID(r.mux, r.logger))
	return r, nil
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

func (r *Router) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// chat serves the message-based chat endpoints, each bound to one mode.
func (r *Router) chat(mode core.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body ChatRequest
		if err := decode(w, req, &body); err != nil {
			r.fail(w, req, err)
			return
		}
		r.answer(w, req, graphqa.AskRequest{
			Question:  body.Message,
			Mode:      mode,
			SessionID: body.SessionID,
		})
	}
}

func (r *Router) ask(w http.ResponseWriter, req *http.Request) {
	var body AskRequest
	if err := decode(w, req, &body); err != nil {
		r.fail(w, req, err)
		return
	}
	mode, err := core.ParseMode(body.Mode)
	if err != nil {
		r.fail(w, req, err)
		return
	}

	ask := graphqa.AskRequest{
		Question:    body.Question,
		Mode:        mode,
		SessionID:   body.SessionID,
		Attribution: body.Sources,
	}
	if body.Narrate {
		ask.Shape = core.ShapeNarrated
	}
	r.answer(w, req, ask)
}

func (r *Router) answer(w http.ResponseWriter, req *http.Request, ask graphqa.AskRequest) {
	if strings.TrimSpace(ask.Question) == "" {
		r.fail(w, req, core.NewError(core.KindInvalidRequest, "", "decode", errEmptyQuestion))
		return
	}

	ctx := req.Context()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	answer, err := r.asker.Ask(ctx, ask)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(answer))
}

func (r *Router) fail(w http.ResponseWriter, req *http.Request, err error) {
	status, kind, message := statusOf(err)
	cause, detail := causeOf(err)
	id := RequestID(req.Context())
	r.logger.Error("request failed",
		"request_id", id,
		"path", req.URL.Path,
		"kind", kind,
		"cause", cause,
		"status", status,
		"err", err)

	writeJSON(w, status, ErrorResponse{Error: ErrorBody{
		Kind:      kind,
		Message:   message,
		Cause:     cause,
		Detail:    detail,
		Pipeline:  string(core.PipelineOf(err)),
		RequestID: id,
	}})
}

func toResponse(answer *core.FusedAnswer) ChatResponse {
	meta := &Metadata{
		Mode:         answer.Mode,
		Contributors: answer.Contributors,
	}
	if meta.Contributors == nil {
		meta.Contributors = []core.Pipeline{}
	}
	if s := answer.Structured; s != nil {
		meta.Sources.Graph = &s.Answer
		meta.Statement = s.Statement
	}
	if v := answer.Similarity; v != nil {
		meta.Sources.Vector = &v.Answer
		for _, src := range v.Sources {
			meta.Passages = append(meta.Passages, Passage{
				NodeID:    src.NodeID,
				Source:    src.Name,
				Score:     src.Score,
				ContentID: strconv.FormatUint(uint64(src.ContentID), 16),
			})
		}
	}
	return ChatResponse{Message: answer.Answer, Metadata: meta}
}

func decode(w http.ResponseWriter, req *http.Request, dest any) error {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(req.Body).Decode(dest); err != nil {
		return core.NewError(core.KindInvalidRequest, "", "decode", errors.Join(errInvalidJSON, err))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
