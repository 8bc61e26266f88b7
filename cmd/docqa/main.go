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


package main

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/docqa"
	"github.com/poiesic/docqa/config"
	"github.com/urfave/cli/v2"
)

const configKey = "config"

// extraOptions are appended to every docqa.Open call.
var extraOptions []docqa.Option

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func collectionFlag() *cli.Uint64Flag {
	return &cli.Uint64Flag{
		Name:     "collection",
		Aliases:  []string{"c"},
		Usage:    "Collection ID",
		Required: true,
	}
}

func jsonFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Print the result as JSON",
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "docqa",
		Usage: "Question answering over document collections",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to the YAML configuration file",
				Value: "docqa.yaml",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "Directory holding the Badger and chromem data (overrides config)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "index-backend",
				Usage: "Vector index backend, badger or chromem (overrides config)",
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "Embedding service host URL (overrides config)",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name (overrides config)",
			},
			&cli.StringFlag{
				Name:  "generation-host",
				Usage: "Generation service host URL (overrides config)",
			},
			&cli.StringFlag{
				Name:  "generation-model",
				Usage: "Generation model name (overrides config)",
			},
		},
		Before: before,
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "Answer a question from a collection",
				ArgsUsage: "QUESTION...",
				Action:    askCommand,
				Flags: []cli.Flag{
					collectionFlag(),
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of chunks to retrieve (0 uses the configured default)",
					},
					jsonFlag(),
				},
			},
			{
				Name:      "ingest",
				Usage:     "Add documents to a collection and index them",
				ArgsUsage: "FILE...",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					collectionFlag(),
					&cli.StringFlag{
						Name:  "title",
						Usage: "Article title (single file only, defaults to the filename)",
					},
				},
			},
			{
				Name:      "ingest-dir",
				Usage:     "Ingest every supported file of a directory",
				ArgsUsage: "DIR",
				Action:    ingestDirCommand,
				Flags:     []cli.Flag{collectionFlag()},
			},
			{
				Name:  "collections",
				Usage: "Manage collections",
				Subcommands: []*cli.Command{
					{
						Name:      "create",
						Usage:     "Create a collection",
						ArgsUsage: "NAME",
						Action:    createCollectionCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:    "description",
								Aliases: []string{"d"},
								Usage:   "Collection description",
							},
						},
					},
					{
						Name:   "list",
						Usage:  "List collections",
						Action: listCollectionsCommand,
						Flags:  []cli.Flag{jsonFlag()},
					},
					{
						Name:      "show",
						Usage:     "Show a collection and its documents",
						ArgsUsage: "ID",
						Action:    showCollectionCommand,
						Flags:     []cli.Flag{jsonFlag()},
					},
					{
						Name:      "delete",
						Usage:     "Delete a collection, its documents and its chunks",
						ArgsUsage: "ID",
						Action:    deleteCollectionCommand,
					},
				},
			},
			{
				Name:   "reindex",
				Usage:  "Rebuild the chunks of a collection or a single document",
				Action: reindexCommand,
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:    "collection",
						Aliases: []string{"c"},
						Usage:   "Collection ID to re-index",
					},
					&cli.Uint64Flag{
						Name:  "document",
						Usage: "Document ID to re-index instead of a whole collection",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Documents per batch (0 uses the configured default)",
					},
					jsonFlag(),
				},
			},
			{
				Name:   "stats",
				Usage:  "Show system statistics",
				Action: statsCommand,
				Flags:  []cli.Flag{jsonFlag()},
			},
			{
				Name:   "history",
				Usage:  "Show recent questions of a collection",
				Action: historyCommand,
				Flags: []cli.Flag{
					collectionFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of entries",
						Value: 10,
					},
				},
			},
			{
				Name:   "health",
				Usage:  "Check the generation backend and the vector index",
				Action: healthCommand,
				Flags:  []cli.Flag{jsonFlag()},
			},
		},
	}
}

// before loads the configuration, applies flag overrides and installs the logger.
func before(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	level := cfg.LogLevel
	if c.IsSet("log-level") {
		level = c.String("log-level")
	}
	if err := setupLogger(c.App.ErrWriter, level); err != nil {
		return err
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	overrides := map[string]*string{
		"data-dir":         &cfg.DataDir,
		"index-backend":    &cfg.Index.Backend,
		"embedding-host":   &cfg.Embedding.Host,
		"embedding-model":  &cfg.Embedding.Model,
		"generation-host":  &cfg.Generation.Host,
		"generation-model": &cfg.Generation.Model,
	}
	for flag, field := range overrides {
		if c.IsSet(flag) {
			*field = c.String(flag)
		}
	}
	return cfg, nil
}

func setupLogger(w io.Writer, levelStr string) error {
	levelStr = strings.ToLower(levelStr)

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return nil
}
