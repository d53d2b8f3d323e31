package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/graphqa"
	"github.com/poiesic/graphqa/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAsker struct {
	last   graphqa.AskRequest
	calls  int
	answer *core.FusedAnswer
	err    error
	wait   bool
}

func (f *fakeAsker) Ask(ctx context.Context, req graphqa.AskRequest) (*core.FusedAnswer, error) {
	f.calls++
	f.last = req
	if f.wait {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.answer, f.err
}

func newTestRouter(t *testing.T, asker Asker, opts ...Option) *Router {
	t.Helper()
	r, err := NewRouter(asker, opts...)
	require.NoError(t, err)
	return r
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestNewRouter_RequiresAsker(t *testing.T) {
	_, err := NewRouter(nil)
	assert.ErrorIs(t, err, ErrAskerRequired)
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, &fakeAsker{})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
	assert.NoError(t, err)
}

func TestChatEndpointsSelectMode(t *testing.T) {
	tests := []struct {
		path string
		mode core.Mode
	}{
		{"/api/chat", core.ModeFused},
		{"/api/chat/vector", core.ModeSimilarity},
		{"/api/chat/graph", core.ModeStructured},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			asker := &fakeAsker{answer: &core.FusedAnswer{Answer: "3", Mode: tt.mode}}
			r := newTestRouter(t, asker)

			rec := post(t, r, tt.path, `{"message":"How many companies?","session_id":"s1"}`)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.mode, asker.last.Mode)
			assert.Equal(t, "How many companies?", asker.last.Question)
			assert.Equal(t, "s1", asker.last.SessionID)

			var resp ChatResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "3", resp.Message)
		})
	}
}

func TestChatMetadata(t *testing.T) {
	asker := &fakeAsker{answer: &core.FusedAnswer{
		Answer:       "The sources disagree: 3 versus four.",
		Mode:         core.ModeFused,
		Contributors: []core.Pipeline{core.PipelineStructured, core.PipelineSimilarity},
		Structured:   &core.RetrievalResult{Answer: "3", Statement: "MATCH (c:Company) RETURN count(c)"},
		Similarity: &core.RetrievalResult{
			Answer:  "Four companies filed.",
			Sources: []core.Source{{NodeID: "4:x:1", Name: "apple-10k", Score: 0.9, ContentID: 255}},
		},
	}}
	r := newTestRouter(t, asker)

	rec := post(t, r, "/api/chat", `{"message":"How many companies?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"message": "The sources disagree: 3 versus four.",
		"metadata": {
			"mode": "fused",
			"contributors": ["structured", "similarity"],
			"sources": {"vector": "Four companies filed.", "graph": "3"},
			"statement": "MATCH (c:Company) RETURN count(c)",
			"passages": [{"node_id": "4:x:1", "source": "apple-10k", "score": 0.9, "content_id": "ff"}]
		}
	}`, rec.Body.String())
}

func TestAsk(t *testing.T) {
	asker := &fakeAsker{answer: &core.FusedAnswer{Answer: "ok", Mode: core.ModeSimilarity}}
	r := newTestRouter(t, asker)

	rec := post(t, r, "/api/ask", `{"question":"Who mentions lithium?","mode":"similarity","sources":true,"narrate":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.ModeSimilarity, asker.last.Mode)
	assert.True(t, asker.last.Attribution)
	assert.Equal(t, core.ShapeNarrated, asker.last.Shape)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []core.Pipeline{}, resp.Metadata.Contributors)
}

func TestBadRequests(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		body    string
		message string
	}{
		{"invalid json", "/api/chat", `{"message":`, "request body is not valid JSON"},
		{"empty message", "/api/chat/graph", `{"message":"  "}`, "question is required"},
		{"unknown mode", "/api/ask", `{"question":"Q?","mode":"graph"}`, "mode must be one of structured, similarity or fused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asker := &fakeAsker{}
			r := newTestRouter(t, asker)

			rec := post(t, r, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, "invalid_request", body.Kind)
			assert.Equal(t, tt.message, body.Message)
			assert.Equal(t, rec.Header().Get(RequestIDHeader), body.RequestID)
			assert.Equal(t, 0, asker.calls)
		})
	}
}

func TestErrorKindsMapToStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		kind     string
		pipeline string
	}{
		{"query generation", core.NewError(core.KindQueryGeneration, core.PipelineStructured, "validate", errors.New("unknown relationship type SUPERVISES")),
			http.StatusUnprocessableEntity, "query_generation", "structured"},
		{"index unavailable", core.NewError(core.KindIndexUnavailable, core.PipelineSimilarity, "attach", errors.New("no index")),
			http.StatusServiceUnavailable, "index_unavailable", "similarity"},
		{"database unreachable", core.NewError(core.KindDatabaseConnection, "", "run", errors.Join(core.ErrServiceUnavailable, errors.New("dial tcp 10.0.0.1:7687"))),
			http.StatusServiceUnavailable, "database_connection", ""},
		{"database auth", core.NewError(core.KindDatabaseConnection, "", "run", errors.Join(core.ErrAuthentication, errors.New("Neo.ClientError.Security.Unauthorized"))),
			http.StatusBadGateway, "database_connection", ""},
		{"model", core.NewError(core.KindModelInvocation, core.PipelineSimilarity, "complete", errors.New("429 from upstream")),
			http.StatusBadGateway, "model_invocation", "similarity"},
		{"fusion input missing", core.NewError(core.KindFusionInputMissing, core.PipelineStructured, "retrieve", errors.New("boom")),
			http.StatusBadGateway, "fusion_input_missing", "structured"},
		{"unknown", errors.New("secret stack trace"),
			http.StatusInternalServerError, "unknown", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t, &fakeAsker{err: tt.err})

			rec := post(t, r, "/api/chat", `{"message":"Q?"}`)
			assert.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.kind, body.Kind)
			assert.Equal(t, tt.pipeline, body.Pipeline)
			assert.NotContains(t, rec.Body.String(), tt.err.Error())
		})
	}
}

func TestFusedFailureNamesItsCause(t *testing.T) {
	fused := func(cause error) error {
		inner := core.NewError(core.KindDatabaseConnection, "", "run read query", errors.Join(cause, errors.New("graph:7687")))
		return core.NewError(core.KindFusionInputMissing, core.PipelineStructured, "retrieve", core.WithPipeline(inner, core.PipelineStructured))
	}

	tests := []struct {
		name   string
		err    error
		detail string
	}{
		{"bad credentials", fused(core.ErrAuthentication), "the graph database rejected the configured credentials"},
		{"database unreachable", fused(core.ErrServiceUnavailable), "the graph database is unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t, &fakeAsker{err: tt.err})

			rec := post(t, r, "/api/chat", `{"message":"Q?"}`)
			assert.Equal(t, http.StatusBadGateway, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, "fusion_input_missing", body.Kind)
			assert.Equal(t, "database_connection", body.Cause)
			assert.Equal(t, tt.detail, body.Detail)
			assert.Equal(t, "structured", body.Pipeline)
			assert.NotContains(t, rec.Body.String(), "graph:7687")
		})
	}

	t.Run("direct failures carry no cause", func(t *testing.T) {
		r := newTestRouter(t, &fakeAsker{err: core.NewError(core.KindQueryExecution, core.PipelineStructured, "run", errors.New("boom"))})

		rec := post(t, r, "/api/chat", `{"message":"Q?"}`)
		body := decodeError(t, rec)
		assert.Empty(t, body.Cause)
		assert.Empty(t, body.Detail)
		assert.NotContains(t, rec.Body.String(), `"cause"`)
	})
}

func TestTimeout(t *testing.T) {
	r := newTestRouter(t, &fakeAsker{wait: true}, WithTimeout(20*time.Millisecond))

	rec := post(t, r, "/api/chat", `{"message":"Q?"}`)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Equal(t, "timeout", decodeError(t, rec).Kind)
}

func TestRequestIDIsEchoed(t *testing.T) {
	r := newTestRouter(t, &fakeAsker{answer: &core.FusedAnswer{Answer: "ok"}})
	id := uuid.NewString()

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"Q?"}`))
	req.Header.Set(RequestIDHeader, id)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"Q?"}`))
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get(RequestIDHeader))
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t, &fakeAsker{})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/chat", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMethodNotAllowed(t *testing.T) {
	r := newTestRouter(t, &fakeAsker{})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
