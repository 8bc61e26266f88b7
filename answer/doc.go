// Package answer turns retrieved chunks and a question into a final answer.
//
// BuildPrompt renders a grounded prompt, Generator calls the text
// generation backend and rejects degenerate output, and Postprocess maps
// uncertain answers onto the single Refusal sentence.
package answer
