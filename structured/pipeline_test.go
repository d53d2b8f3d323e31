package structured

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/graphqa/ai"
	aimock "github.com/poiesic/graphqa/ai/mock"
	"github.com/poiesic/graphqa/core"
	graphmock "github.com/poiesic/graphqa/graph/mock"
	"github.com/poiesic/graphqa/retry"
	"github.com/poiesic/graphqa/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() *core.GraphSchema {
	s := core.NewGraphSchema()
	s.NodeProperties["Manager"] = []core.Property{{Name: "managerName", Type: "STRING"}}
	s.NodeProperties["Company"] = []core.Property{{Name: "name", Type: "STRING"}}
	s.NodeProperties["Form"] = []core.Property{{Name: "formId", Type: "STRING"}}
	s.NodeProperties["Chunk"] = []core.Property{{Name: "text", Type: "STRING"}}
	s.RelationshipProperties["OWNS_STOCK_IN"] = []core.Property{{Name: "shares", Type: "LONG"}}
	s.Relationships = []core.RelationshipTriple{
		{Start: "Manager", Type: "OWNS_STOCK_IN", End: "Company"},
		{Start: "Company", Type: "FILED", End: "Form"},
		{Start: "Chunk", Type: "PART_OF", End: "Form"},
	}
	return s
}

func newTestPipeline(t *testing.T, db *graphmock.MockDatabase, model *aimock.MockLanguageModel) *Pipeline {
	t.Helper()
	p, err := NewPipeline(db, model, WithRetryPolicy(retry.NoRetry()))
	require.NoError(t, err)
	return p
}

func TestNewPipeline_RequiresDependencies(t *testing.T) {
	_, err := NewPipeline(nil, aimock.NewMockLanguageModel())
	assert.ErrorIs(t, err, ErrQueryRunnerRequired)

	_, err = NewPipeline(graphmock.NewMockDatabase(), nil)
	assert.ErrorIs(t, err, ErrLanguageModelRequired)
}

func TestAnswer_RawCount(t *testing.T) {
	db := graphmock.NewMockDatabase()
	db.QueryFunc = func(ctx context.Context, statement string, params map[string]any) ([]core.Row, error) {
		return []core.Row{{"count(DISTINCT m)": int64(3)}}, nil
	}
	model := aimock.NewMockLanguageModel()
	model.Reply = "```cypher\nMATCH (m:Manager)-[:OWNS_STOCK_IN]->(c:Company)\nRETURN count(DISTINCT m)\n```"
	p := newTestPipeline(t, db, model)

	res, err := p.Answer(context.Background(), "How many managers own companies?", testSchema(), core.RetrieveOptions{})
	require.NoError(t, err)
	assert.Equal(t, "3", res.Answer)
	assert.False(t, res.NoAnswer)
	assert.Equal(t, core.PipelineStructured, res.Pipeline)
	assert.Equal(t, "MATCH (m:Manager)-[:OWNS_STOCK_IN]->(c:Company)\nRETURN count(DISTINCT m)", res.Statement)
	assert.Len(t, res.Rows, 1)
	assert.Equal(t, 1, model.CallCount())

	prompt := model.LastPrompt().User
	assert.Contains(t, prompt, "How many managers own companies?")
	assert.Contains(t, prompt, "(:Manager)-[:OWNS_STOCK_IN]->(:Company)")
	assert.Contains(t, prompt, "# How many companies in the filings?")
}

func TestAnswer_UnknownRelationshipIsNeverExecuted(t *testing.T) {
	db := graphmock.NewMockDatabase()
	model := aimock.NewMockLanguageModel()
	model.Reply = "MATCH (m:Manager)-[:SUPERVISES]->(c:Company) RETURN count(m)"
	p := newTestPipeline(t, db, model)

	_, err := p.Answer(context.Background(), "Who supervises companies?", testSchema(), core.RetrieveOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrQueryGeneration)
	assert.ErrorIs(t, err, schema.ErrUnknownRelationshipType)
	assert.Equal(t, 0, db.QueryCount())
}

func TestAnswer_UnknownRelationshipBehindInlineWhereIsNeverExecuted(t *testing.T) {
	statements := map[string]string{
		"node predicate":         "MATCH (m:Manager WHERE m.managerName = 'x')-[:FAKE_REL]->(c:Company) RETURN count(m)",
		"relationship predicate": "MATCH (m:Manager)-[r:FAKE_REL WHERE r.shares > 1]->(c:Company) RETURN count(m)",
	}
	for name, stmt := range statements {
		t.Run(name, func(t *testing.T) {
			db := graphmock.NewMockDatabase()
			model := aimock.NewMockLanguageModel()
			model.Reply = stmt
			p := newTestPipeline(t, db, model)

			_, err := p.Answer(context.Background(), "Which managers are related to companies?", testSchema(), core.RetrieveOptions{})
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrQueryGeneration)
			assert.ErrorIs(t, err, schema.ErrUnknownRelationshipType)
			assert.Equal(t, 0, db.QueryCount())
		})
	}
}

func TestAnswer_WriteStatementIsNeverExecuted(t *testing.T) {
	db := graphmock.NewMockDatabase()
	model := aimock.NewMockLanguageModel()
	model.Reply = "MATCH (c:Company) DETACH DELETE c"
	p := newTestPipeline(t, db, model)

	_, err := p.Answer(context.Background(), "Remove all companies", testSchema(), core.RetrieveOptions{})
	assert.ErrorIs(t, err, core.ErrQueryGeneration)
	assert.Equal(t, 0, db.QueryCount())
}

func TestAnswer_ApologyIsNoAnswer(t *testing.T) {
	db := graphmock.NewMockDatabase()
	model := aimock.NewMockLanguageModel()
	model.Reply = "I'm sorry, I can only help with questions about the filings."
	p := newTestPipeline(t, db, model)

	res, err := p.Answer(context.Background(), "What's the weather?", testSchema(), core.RetrieveOptions{})
	require.NoError(t, err)
	assert.True(t, res.NoAnswer)
	assert.Equal(t, core.NoAnswerText, res.Answer)
	assert.Equal(t, 0, db.QueryCount())
}

func TestAnswer_ZeroRowsIsNoAnswer(t *testing.T) {
	db := graphmock.NewMockDatabase()
	model := aimock.NewMockLanguageModel()
	model.Reply = "MATCH (c:Company {name: 'NOPE'}) RETURN c.name"
	p := newTestPipeline(t, db, model)

	res, err := p.Answer(context.Background(), "Is NOPE a company?", testSchema(), core.RetrieveOptions{})
	require.NoError(t, err)
	assert.True(t, res.NoAnswer)
	assert.False(t, res.HasEvidence())
	assert.Equal(t, "MATCH (c:Company {name: 'NOPE'}) RETURN c.name", res.Statement)
	assert.Equal(t, 1, db.QueryCount())
}

func TestAnswer_DirectionIsCorrectedBeforeExecution(t *testing.T) {
	db := graphmock.NewMockDatabase()
	db.QueryFunc = func(ctx context.Context, statement string, params map[string]any) ([]core.Row, error) {
		return []core.Row{{"n": int64(2)}}, nil
	}
	model := aimock.NewMockLanguageModel()
	model.Reply = "MATCH (c:Company)-[:OWNS_STOCK_IN]->(m:Manager) RETURN count(m) AS n"
	p := newTestPipeline(t, db, model)

	res, err := p.Answer(context.Background(), "How many managers own companies?", testSchema(), core.RetrieveOptions{})
	require.NoError(t, err)
	want := "MATCH (c:Company)<-[:OWNS_STOCK_IN]-(m:Manager) RETURN count(m) AS n"
	assert.Equal(t, []string{want}, db.Statements())
	assert.Equal(t, want, res.Statement)
}

func TestAnswer_Narrated(t *testing.T) {
	db := graphmock.NewMockDatabase()
	db.QueryFunc = func(ctx context.Context, statement string, params map[string]any) ([]core.Row, error) {
		return []core.Row{{"co.name": "APPLE INC", "chunks": int64(4)}, {"co.name": "TESLA INC", "chunks": int64(2)}}, nil
	}
	model := aimock.NewMockLanguageModel()
	model.CompleteFunc = func(ctx context.Context, prompt ai.Prompt) (string, error) {
		if strings.HasPrefix(prompt.User, "Information:") {
			return "  Apple and Tesla mention lithium.  ", nil
		}
		return "MATCH (co:Company)-[fi]-(f:Form)-[po]-(c:Chunk) WHERE toLower(c.text) CONTAINS 'lithium' RETURN count(c) AS chunks, co.name", nil
	}
	p := newTestPipeline(t, db, model)

	res, err := p.Answer(context.Background(), "Which companies mention lithium?", testSchema(),
		core.RetrieveOptions{Shape: core.ShapeNarrated})
	require.NoError(t, err)
	assert.Equal(t, "Apple and Tesla mention lithium.", res.Answer)
	assert.Len(t, res.Rows, 2)
	assert.Equal(t, 2, model.CallCount())
	assert.Contains(t, model.LastPrompt().User, "APPLE INC")
}

func TestAnswer_ModelFailure(t *testing.T) {
	model := aimock.NewMockLanguageModel()
	model.CompleteFunc = func(ctx context.Context, prompt ai.Prompt) (string, error) {
		return "", errors.New("upstream 500")
	}
	p := newTestPipeline(t, graphmock.NewMockDatabase(), model)

	_, err := p.Answer(context.Background(), "How many companies?", testSchema(), core.RetrieveOptions{})
	assert.ErrorIs(t, err, core.ErrModelInvocation)
	assert.Equal(t, core.PipelineStructured, core.PipelineOf(err))
}

func TestAnswer_DatabaseFailureKeepsKind(t *testing.T) {
	db := graphmock.NewMockDatabase()
	db.QueryFunc = func(ctx context.Context, statement string, params map[string]any) ([]core.Row, error) {
		return nil, core.NewError(core.KindDatabaseConnection, "", "run read query", errors.Join(core.ErrAuthentication, errors.New("bad credentials")))
	}
	model := aimock.NewMockLanguageModel()
	model.Reply = "MATCH (c:Company) RETURN count(c)"
	p := newTestPipeline(t, db, model)

	_, err := p.Answer(context.Background(), "How many companies?", testSchema(), core.RetrieveOptions{})
	assert.ErrorIs(t, err, core.ErrDatabaseConnection)
	assert.ErrorIs(t, err, core.ErrAuthentication)
	assert.Equal(t, core.PipelineStructured, core.PipelineOf(err))
}

func TestAnswer_InvalidInput(t *testing.T) {
	model := aimock.NewMockLanguageModel()
	p := newTestPipeline(t, graphmock.NewMockDatabase(), model)

	_, err := p.Answer(context.Background(), "   ", testSchema(), core.RetrieveOptions{})
	assert.ErrorIs(t, err, core.ErrInvalidRequest)

	_, err = p.Answer(context.Background(), "How many companies?", nil, core.RetrieveOptions{})
	assert.ErrorIs(t, err, core.ErrQueryGeneration)
	assert.Equal(t, 0, model.CallCount())
}
