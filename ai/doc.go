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


// Package ai provides abstractions for the AI services used by docqa.
//
// Two interfaces cover the model calls made by the pipeline:
//
//   - Embedder: turns chunk text and questions into vectors
//   - Generator: turns a grounded prompt into answer text
//
// and Provider aggregates them for lifecycle management.
//
// # Embedder decorators
//
// Embedders compose. A typical production stack, outermost first:
//
//	CachedEmbedder -> PooledEmbedder -> LazyEmbedder -> openai.Embedder
//
// LazyEmbedder constructs the client once on first use (sync.OnceValues),
// PooledEmbedder bounds concurrency on an ants worker pool, and
// CachedEmbedder skips the model for text it has already seen.
//
// # Implementation Packages
//
//   - ai/openai: embeddings through OpenAI-compatible APIs
//   - ai/ollama: embeddings and native /api/generate completions through Ollama
//   - ai/mock: deterministic test doubles
//
// Public constructors in the implementation packages return interface types.
// Mock constructors return concrete types so tests can inspect call counts
// and inject behaviour.
//
// # Errors
//
// Generation failures are reported as ErrGenerationTimeout,
// ErrGenerationUnavailable, ErrGenerationStatus, ErrMalformedResponse or
// ErrDegenerateOutput. All wrap core.ErrGeneration and callers treat them
// alike; the distinction is for logs.
package ai
