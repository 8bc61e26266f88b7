package mock

import (
	"context"
	"math"
	"testing"

	"github.com/poiesic/docqa/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicVector(t *testing.T) {
	a := DeterministicVector("hello world", 64)
	b := DeterministicVector("hello world", 64)
	c := DeterministicVector("goodbye", 64)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestMockEmbedder_Counts(t *testing.T) {
	e := NewMockEmbedder()
	ctx := context.Background()

	single, err := e.EmbedText(ctx, "one")
	require.NoError(t, err)
	batch, err := e.EmbedTexts(ctx, []string{"one", "two"})
	require.NoError(t, err)

	assert.Len(t, single, DefaultDimension)
	assert.Equal(t, single, batch[0])
	assert.Equal(t, 2, e.CallCount())
	assert.Equal(t, 3, e.TextCount())

	e.Reset()
	assert.Zero(t, e.CallCount())
}

func TestMockGenerator_Records(t *testing.T) {
	g := NewScriptedGenerator("scripted", nil)
	out, err := g.Generate(context.Background(), "prompt", ai.GenerateOptions{MaxTokens: 7})
	require.NoError(t, err)

	assert.Equal(t, "scripted", out)
	assert.Equal(t, []string{"prompt"}, g.Prompts())
	opts, ok := g.LastOptions()
	require.True(t, ok)
	assert.Equal(t, 7, opts.MaxTokens)
	assert.NoError(t, g.Ping(context.Background()))
}
