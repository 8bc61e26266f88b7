// Package ollama talks to a local Ollama server.
//
// Embedder uses the native embedding API through langchaingo. Generator
// posts non-streaming completion requests to /api/generate and reports
// timeouts, unreachable hosts, error statuses and malformed bodies as
// distinct errors from the ai package, all wrapping core.ErrGeneration.
package ollama
