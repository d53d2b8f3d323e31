//go:build integration

package neo4j

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	aimock "github.com/poiesic/graphqa/ai/mock"
	"github.com/poiesic/graphqa/core"
	"github.com/poiesic/graphqa/index"
	"github.com/poiesic/graphqa/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testImage    = "neo4j:5.26"
	testPassword = "integration-secret"
)

var testURI string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, uri, err := startNeo4jContainer(ctx)
	if err != nil {
		log.Fatalf("error starting neo4j container: %v", err)
	}
	testURI = uri

	code := m.Run()

	if err := container.Terminate(ctx); err != nil {
		log.Printf("error tearing down neo4j container: %v", err)
	}
	os.Exit(code)
}

func startNeo4jContainer(ctx context.Context) (testcontainers.Container, string, error) {
	req := testcontainers.ContainerRequest{
		Image:        testImage,
		ExposedPorts: []string{"7687/tcp"},
		Env: map[string]string{
			"NEO4J_AUTH": "neo4j/" + testPassword,
		},
		WaitingFor: wait.ForLog("Started.").WithStartupTimeout(3 * time.Minute),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", err
	}

	host, err := container.Host(ctx)
	if err != nil {
		return container, "", fmt.Errorf("error getting container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "7687/tcp")
	if err != nil {
		return container, "", fmt.Errorf("error getting mapped port: %w", err)
	}
	return container, fmt.Sprintf("neo4j://%s:%s", host, port.Port()), nil
}

func openTestDatabase(t *testing.T) *Database {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, Config{URI: testURI, Username: "neo4j", Password: testPassword})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(ctx) })

	require.NoError(t, db.exec(ctx, "MATCH (n) DETACH DELETE n", nil))
	return db
}

func seedFilings(t *testing.T, db *Database) {
	t.Helper()
	err := db.exec(context.Background(), `
CREATE (m1:Manager {managerName: 'ROYAL BANK OF CANADA'})
CREATE (m2:Manager {managerName: 'VANGUARD GROUP'})
CREATE (co:Company {name: 'APPLE INC'})
CREATE (f:Form {formId: 'apple-10k-2023'})
CREATE (m1)-[:OWNS_STOCK_IN {shares: 100}]->(co)
CREATE (m2)-[:OWNS_STOCK_IN {shares: 250}]->(co)
CREATE (co)-[:FILED]->(f)
CREATE (:Chunk {text: 'Apple sources lithium for its batteries.', source: 'apple-10k-2023'})-[:PART_OF]->(f)
CREATE (:Chunk {text: 'Apple designs smartphones and tablets.', source: 'apple-10k-2023'})-[:PART_OF]->(f)
CREATE (:Chunk {text: 'Revenue grew in services.', source: 'apple-10k-2023'})-[:PART_OF]->(f)`, nil)
	require.NoError(t, err)
}

func TestIntegration_BadCredentials(t *testing.T) {
	_, err := Open(context.Background(), Config{URI: testURI, Username: "neo4j", Password: "wrong"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDatabaseConnection)
	assert.ErrorIs(t, err, core.ErrAuthentication)
}

func TestIntegration_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	_, err := Open(ctx, Config{URI: "neo4j://127.0.0.1:1", Username: "neo4j", Password: testPassword})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDatabaseConnection)
	assert.NotErrorIs(t, err, core.ErrAuthentication)
}

func TestIntegration_SchemaAndReadQuery(t *testing.T) {
	db := openTestDatabase(t)
	seedFilings(t, db)
	ctx := context.Background()

	schema, err := db.RefreshSchema(ctx)
	require.NoError(t, err)
	assert.Contains(t, schema.NodeProperties, "Manager")
	assert.Contains(t, schema.RelationshipProperties, "OWNS_STOCK_IN")
	assert.Contains(t, schema.Relationships, core.RelationshipTriple{Start: "Manager", Type: "OWNS_STOCK_IN", End: "Company"})

	rows, err := db.RunReadQuery(ctx, "MATCH (m:Manager)-[:OWNS_STOCK_IN]->(:Company {name: $name}) RETURN count(m) AS n",
		map[string]any{"name": "APPLE INC"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0]["n"])
}

func TestIntegration_ReadQueryRejectsWrites(t *testing.T) {
	db := openTestDatabase(t)
	seedFilings(t, db)

	_, err := db.RunReadQuery(context.Background(), "MATCH (c:Company) SET c.flag = true RETURN c", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrQueryGeneration)

	rows, err := db.RunReadQuery(context.Background(), "MATCH (c:Company) WHERE c.flag IS NOT NULL RETURN c", nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestIntegration_SyntaxError(t *testing.T) {
	db := openTestDatabase(t)

	_, err := db.RunReadQuery(context.Background(), "MATCH (n RETURN n", nil)
	assert.ErrorIs(t, err, core.ErrQueryGeneration)
}

func TestIntegration_ProvisionAndSearch(t *testing.T) {
	db := openTestDatabase(t)
	seedFilings(t, db)
	ctx := context.Background()

	spec := core.DefaultIndexSpec()
	spec.Name = "integration_chunks"
	require.NoError(t, db.exec(ctx, "DROP INDEX integration_chunks IF EXISTS", nil))

	attached, err := db.AttachVectorIndex(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, core.StatusNotFound, attached.Status)

	embedder := aimock.NewMockEmbedder()
	embedder.Dimensions = 32
	provisioner, err := index.NewProvisioner(db, embedder, index.WithRetryPolicy(retry.NoRetry()), index.WithBatchSize(2))
	require.NoError(t, err)

	handle, err := provisioner.EnsureIndex(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, 32, handle.Dimensions)

	remaining, err := db.CountUnembedded(ctx, spec)
	require.NoError(t, err)
	assert.Zero(t, remaining)

	attached, err = db.AttachVectorIndex(ctx, spec)
	require.NoError(t, err)
	require.Equal(t, core.StatusAttached, attached.Status)
	assert.Equal(t, 32, attached.Handle.Dimensions)

	query := "Apple sources lithium for its batteries."
	vectors, err := embedder.EmbedTexts(ctx, []string{query})
	require.NoError(t, err)

	passages, err := db.VectorSearch(ctx, handle, vectors[0], 2)
	require.NoError(t, err)
	require.Len(t, passages, 2)
	assert.Equal(t, query, passages[0].Text)
	assert.Equal(t, "apple-10k-2023", passages[0].Name)
	assert.GreaterOrEqual(t, passages[0].Score, passages[1].Score)
}
