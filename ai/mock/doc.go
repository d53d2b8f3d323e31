// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.LanguageModel,
// and ai.AIProvider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), mock.NewMockLanguageModel())
//	vector, err := provider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	model := mock.NewMockLanguageModel()
//	model.CompleteFunc = func(ctx context.Context, p ai.Prompt) (string, error) {
//	    return "MATCH (c:Company) RETURN count(c)", nil
//	}
//
//	// Check call counts
//	count := model.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: Returns deterministic vectors based on text hash
//   - MockLanguageModel: Returns its Reply field ("ok" by default)
//   - MockProvider: Aggregates mock embedder and language model
package mock
