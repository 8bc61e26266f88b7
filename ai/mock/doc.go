// Package mock provides test double implementations of AI service interfaces.
//
// MockEmbedder, MockGenerator and MockProvider stand in for ai.Embedder,
// ai.Generator and ai.Provider so tests run without a model server.
//
// # Usage in Tests
//
//	provider := mock.NewMockProvider()
//	vector, err := provider.Embedder().EmbedText(ctx, "test")
//
//	// Scripted completions
//	gen := mock.NewScriptedGenerator("Unsure.", nil)
//
//	// Inspect what the generator was asked
//	prompts := gen.Prompts()
//
// # Default Behavior
//
//   - MockEmbedder: unit vectors derived from an FNV hash of the text
//   - MockGenerator: always answers DefaultAnswer, Ping succeeds
package mock
