// Package graphqa answers natural-language questions over a Neo4j knowledge
// graph by combining generated Cypher queries with vector similarity search.
//
// Basic usage:
//
//	cfg := graphqa.DefaultConfig()
//	engine, err := graphqa.NewEngine(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Close(ctx)
//
//	if _, err := engine.EnsureIndex(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	answer, err := engine.Ask(ctx, graphqa.AskRequest{Question: "How many companies filed?"})
package graphqa
