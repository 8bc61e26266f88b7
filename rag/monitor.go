package rag

import "github.com/poiesic/docqa/core"

// Monitor provides hooks to observe the answering process.
// Implement this interface to track intermediate steps and results.
type Monitor interface {
	Start(collectionID core.ID, question string)
	AfterEmbedding(vector []float32)
	AfterRetrieval(hits []core.ScoredChunk)
	AfterPrompt(prompt string)
	AfterGeneration(raw string, err error)
	Finish(answer *Answer)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ core.ID, _ string) {}
func (n *noopMonitor) AfterEmbedding(_ []float32) {}
func (n *noopMonitor) AfterRetrieval(_ []core.ScoredChunk) {}
func (n *noopMonitor) AfterPrompt(_ string) {}
func (n *noopMonitor) AfterGeneration(_ string, _ error) {}
func (n *noopMonitor) Finish(_ *Answer) {}
