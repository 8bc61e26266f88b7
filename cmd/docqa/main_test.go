package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/docqa"
	"github.com/poiesic/docqa/ai/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

type harness struct {
	t        *testing.T
	dataDir  string
	provider *mock.MockProvider
}

func newHarness(t *testing.T) *harness {
	h := &harness{
		t:        t,
		dataDir:  t.TempDir(),
		provider: mock.NewMockProvider(),
	}
	extraOptions = []docqa.Option{docqa.WithProvider(h.provider)}
	t.Cleanup(func() { extraOptions = nil })
	return h
}

// run executes the CLI against the harness data dir and returns stdout.
func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	argv := append([]string{"docqa",
		"--config", filepath.Join(h.dataDir, "missing.yaml"),
		"--data-dir", h.dataDir,
		"--log-level", "error",
	}, args...)
	err := app.Run(argv)
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, out)
	return out
}

func (h *harness) collectionID(name string) string {
	h.t.Helper()
	var views []collectionView
	require.NoError(h.t, json.Unmarshal([]byte(h.mustRun("collections", "list", "--json")), &views))
	for _, v := range views {
		if v.Name == name {
			return v.ID.String()
		}
	}
	h.t.Fatalf("collection %q not found", name)
	return ""
}

func writeWords(t *testing.T, dir, name string, n int) string {
	t.Helper()
	words := make([]string, n)
	for i := range words {
		words[i] = "transformer"
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(words, " ")), 0o644))
	return path
}

func TestCollectionsLifecycle(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun("collections", "create", "papers", "--description", "ml papers")
	assert.Contains(t, out, "created collection papers")

	_, err := h.run("collections", "create", "papers")
	assert.Error(t, err, "duplicate names are rejected")

	id := h.collectionID("papers")
	out = h.mustRun("collections", "list")
	assert.Contains(t, out, "papers")
	assert.Contains(t, out, "ml papers")

	out = h.mustRun("collections", "delete", id)
	assert.Contains(t, out, "deleted collection "+id)

	out = h.mustRun("collections", "list", "--json")
	assert.JSONEq(t, "[]", out)
}

func TestIngestAskReindex(t *testing.T) {
	h := newHarness(t)
	h.mustRun("collections", "create", "papers")
	id := h.collectionID("papers")

	dir := t.TempDir()
	writeWords(t, dir, "attention.txt", 700)
	writeWords(t, dir, "bert.md", 50)

	out := h.mustRun("ingest-dir", "--collection", id, dir)
	assert.Contains(t, out, "processed attention.txt (2 chunks)")
	assert.Contains(t, out, "processed bert.md (1 chunks)")

	out = h.mustRun("stats", "--json")
	var stats docqa.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 1, stats.TotalCollections)
	assert.Equal(t, 2, stats.TotalDocuments)
	assert.Equal(t, 3, stats.Index.TotalChunks)

	out = h.mustRun("ask", "--collection", id, "What", "is", "attention?")
	assert.Contains(t, out, mock.DefaultAnswer)
	assert.Contains(t, out, "Sources (3):")

	out = h.mustRun("history", "--collection", id)
	assert.Contains(t, out, "What is attention?")

	out = h.mustRun("reindex", "--collection", id, "--batch-size", "1", "--json")
	assert.Contains(t, out, `"batch_sizes": [`)
	assert.Contains(t, out, `"pdfs_processed": 2`)

	var detail struct {
		DocumentCount int            `json:"pdf_count"`
		TotalChunks   int            `json:"total_chunks_in_index"`
		Documents     []documentView `json:"documents"`
	}
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("collections", "show", id, "--json")), &detail))
	assert.Equal(t, 2, detail.DocumentCount)
	assert.Equal(t, 3, detail.TotalChunks)
	require.Len(t, detail.Documents, 2)
	assert.Equal(t, "attention.txt", detail.Documents[0].Filename)

	out = h.mustRun("collections", "show", id)
	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Equal(t, "papers (id "+id+"): ", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2 documents, 3 chunks, created "), lines[1])

	out = h.mustRun("reindex", "--document", detail.Documents[0].ID.String())
	assert.Contains(t, out, "Successfully re-indexed attention.txt")
}

func TestIngest_MissingFile(t *testing.T) {
	h := newHarness(t)
	h.mustRun("collections", "create", "papers")
	id := h.collectionID("papers")

	out, err := h.run("ingest", "--collection", id, filepath.Join(t.TempDir(), "gone.txt"))
	require.Error(t, err)
	assert.Contains(t, out, "failed    gone.txt")
}

func TestCommandValidation(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"ask requires collection", []string{"ask", "hello there"}, "collection"},
		{"ask unknown collection", []string{"ask", "-c", "99", "What is attention?"}, "Collection with ID 99 not found"},
		{"ask blank question", []string{"ask", "-c", "1"}, "Question cannot be empty"},
		{"ingest without files", []string{"ingest", "-c", "1"}, "at least one file"},
		{"title with many files", []string{"ingest", "-c", "1", "--title", "x", "a.txt", "b.txt"}, "single file"},
		{"reindex without target", []string{"reindex"}, "exactly one of"},
		{"reindex with both targets", []string{"reindex", "-c", "1", "--document", "2"}, "exactly one of"},
		{"delete without id", []string{"collections", "delete"}, "exactly one collection ID"},
		{"delete with bad id", []string{"collections", "delete", "abc"}, "invalid id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.run(tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docqa.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /from/file\nembedding:\n  model: nomic\n"), 0o644))

	app := &cli.App{
		Flags: newApp().Flags,
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			require.NoError(t, err)
			assert.Equal(t, "/override", cfg.DataDir)
			assert.Equal(t, "nomic", cfg.Embedding.Model)
			assert.Equal(t, "llama3.2", cfg.Generation.Model)
			return nil
		},
	}
	require.NoError(t, app.Run([]string{"docqa", "--config", path, "--data-dir", "/override", "--generation-model", "llama3.2"}))
}

func TestSetupLogger(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		testCases := []struct {
			input    string
			expected slog.Level
		}{
			{"debug", slog.LevelDebug},
			{"info", slog.LevelInfo},
			{"WARN", slog.LevelWarn},
			{"error", slog.LevelError},
		}
		for _, tc := range testCases {
			t.Run(tc.input, func(t *testing.T) {
				require.NoError(t, setupLogger(io.Discard, tc.input))
				assert.True(t, slog.Default().Enabled(context.Background(), tc.expected))
				if tc.expected > slog.LevelDebug {
					assert.False(t, slog.Default().Enabled(context.Background(), tc.expected-4))
				}
			})
		}
	})

	t.Run("invalid log level", func(t *testing.T) {
		err := setupLogger(io.Discard, "verbose")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}
