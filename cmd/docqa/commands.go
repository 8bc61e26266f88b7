package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/poiesic/docqa"
	"github.com/poiesic/docqa/answer"
	"github.com/poiesic/docqa/config"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/ingestion"
	"github.com/poiesic/docqa/rag"
	"github.com/poiesic/docqa/reindex"
	"github.com/urfave/cli/v2"
)

func openApp(c *cli.Context) (*docqa.App, error) {
	cfg, ok := c.App.Metadata[configKey].(*config.Config)
	if !ok {
		return nil, errors.New("configuration not loaded")
	}
	opts := append([]docqa.Option{
		docqa.WithConfig(cfg),
		docqa.WithLogger(slog.Default()),
	}, extraOptions...)
	app, err := docqa.Open(c.Context, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open docqa: %w", err)
	}
	return app, nil
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func idArg(c *cli.Context, what string) (core.ID, error) {
	if c.NArg() != 1 {
		return 0, fmt.Errorf("expected exactly one %s ID", what)
	}
	return core.ParseID(c.Args().First())
}

func askCommand(c *cli.Context) error {
	question := strings.Join(c.Args().Slice(), " ")

	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	service, err := app.NewService()
	if err != nil {
		return err
	}
	result := service.AnswerQuestion(c.Context, core.ID(c.Uint64("collection")), question, c.Int("top-k"))
	if c.Bool("json") {
		return printJSON(c, result)
	}
	if !result.Success {
		return errors.New(result.Error)
	}

	w := c.App.Writer
	fmt.Fprintln(w, result.Answer)
	if result.SourcesCount == 0 {
		return nil
	}
	fmt.Fprintf(w, "\nSources (%d):\n", result.SourcesCount)
	for i, src := range result.Sources {
		fmt.Fprintf(w, "%d. %s (%s, pages %s) score %.3f\n",
			i+1, src.ArticleTitle, src.SourcePDF, answer.FormatPages(src.PageNumbers), src.Score)
	}
	return nil
}

// ingestWith runs submit on a fresh pipeline and prints one line per finished document.
func ingestWith(c *cli.Context, app *docqa.App, submit func(*ingestion.Pipeline) error) error {
	var mu sync.Mutex
	var failed int
	report := func(doc *core.Document, chunks int, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			failed++
			fmt.Fprintf(c.App.Writer, "failed    %s: %v\n", doc.Filename, err)
			return
		}
		fmt.Fprintf(c.App.Writer, "processed %s (%d chunks)\n", doc.Filename, chunks)
	}

	pipeline, err := app.NewPipeline(ingestion.WithCompletion(report))
	if err != nil {
		return err
	}
	submitErr := submit(pipeline)
	pipeline.Release()

	if submitErr != nil {
		return submitErr
	}
	if failed > 0 {
		return fmt.Errorf("%d documents failed to ingest", failed)
	}
	return nil
}

func ingestCommand(c *cli.Context) error {
	files := c.Args().Slice()
	if len(files) == 0 {
		return errors.New("at least one file is required")
	}
	title := c.String("title")
	if title != "" && len(files) > 1 {
		return errors.New("--title applies to a single file")
	}

	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	collectionID := core.ID(c.Uint64("collection"))
	return ingestWith(c, app, func(p *ingestion.Pipeline) error {
		var errs []error
		for _, file := range files {
			if _, err := p.Ingest(c.Context, collectionID, file, title); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

func ingestDirCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected exactly one directory")
	}

	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	collectionID := core.ID(c.Uint64("collection"))
	return ingestWith(c, app, func(p *ingestion.Pipeline) error {
		_, err := p.IngestDirectory(c.Context, collectionID, c.Args().First())
		return err
	})
}

func createCollectionCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected exactly one collection name")
	}

	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	collection, err := app.CreateCollection(c.Context, c.Args().First(), c.String("description"))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "created collection %s (id %d)\n", collection.Name, collection.ID)
	return nil
}

type collectionView struct {
	ID          core.ID `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Documents   int     `json:"pdf_count"`
}

func listCollectionsCommand(c *cli.Context) error {
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	collections, err := app.Records().Collections().ListCollections(c.Context)
	if err != nil {
		return err
	}
	views := make([]collectionView, 0, len(collections))
	for _, col := range collections {
		docs, err := app.Records().Documents().ListDocuments(c.Context, col.ID)
		if err != nil {
			return err
		}
		views = append(views, collectionView{ID: col.ID, Name: col.Name, Description: col.Description, Documents: len(docs)})
	}
	if c.Bool("json") {
		return printJSON(c, views)
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDOCUMENTS\tDESCRIPTION")
	for _, v := range views {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", v.ID, v.Name, v.Documents, v.Description)
	}
	return tw.Flush()
}

type documentView struct {
	ID       core.ID             `json:"id"`
	Title    string              `json:"title"`
	Filename string              `json:"filename"`
	Status   core.DocumentStatus `json:"status"`
}

type collectionDetail struct {
	*rag.Summary
	Documents []documentView `json:"documents"`
}

func showCollectionCommand(c *cli.Context) error {
	id, err := idArg(c, "collection")
	if err != nil {
		return err
	}

	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	service, err := app.NewService()
	if err != nil {
		return err
	}
	summary, err := service.CollectionSummary(c.Context, id)
	if err != nil {
		return err
	}
	docs, err := app.Records().Documents().ListDocuments(c.Context, id)
	if err != nil {
		return err
	}
	detail := collectionDetail{Summary: summary, Documents: make([]documentView, 0, len(docs))}
	for _, d := range docs {
		detail.Documents = append(detail.Documents, documentView{
			ID: d.ID, Title: d.DisplayTitle(), Filename: d.Filename, Status: d.Status,
		})
	}
	if c.Bool("json") {
		return printJSON(c, detail)
	}

	w := c.App.Writer
	fmt.Fprintf(w, "%s (id %d): %s\n", summary.CollectionName, summary.CollectionID, summary.Description)
	fmt.Fprintf(w, "%d documents, %d chunks, created %s\n",
		summary.DocumentCount, summary.TotalChunks, summary.CreatedAt.Local().Format("2006-01-02 15:04"))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tFILE\tTITLE")
	for _, d := range detail.Documents {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", d.ID, d.Status, d.Filename, d.Title)
	}
	return tw.Flush()
}

func deleteCollectionCommand(c *cli.Context) error {
	id, err := idArg(c, "collection")
	if err != nil {
		return err
	}

	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	removed, err := app.DeleteCollection(c.Context, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "deleted collection %d (%d chunks)\n", id, removed)
	return nil
}

func reindexCommand(c *cli.Context) error {
	collectionID := core.ID(c.Uint64("collection"))
	documentID := core.ID(c.Uint64("document"))
	if (collectionID == 0) == (documentID == 0) {
		return errors.New("exactly one of --collection or --document is required")
	}

	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	reindexer, err := app.NewReindexer(reindex.WithProgress(c.App.ErrWriter))
	if err != nil {
		return err
	}

	if documentID != 0 {
		result := reindexer.ReindexDocument(c.Context, documentID)
		if c.Bool("json") {
			return printJSON(c, result)
		}
		if !result.Success {
			return errors.New(result.Error)
		}
		fmt.Fprintln(c.App.Writer, result.Message)
		return nil
	}

	var result *reindex.Result
	if batchSize := c.Int("batch-size"); batchSize > 0 {
		result = reindexer.ReindexCollectionBatch(c.Context, collectionID, batchSize)
	} else {
		result = reindexer.ReindexCollection(c.Context, collectionID)
	}
	if c.Bool("json") {
		return printJSON(c, result)
	}
	if !result.Success {
		return errors.New(result.Error)
	}
	fmt.Fprintf(c.App.Writer, "%s: %d/%d documents, %d chunks\n",
		result.Message, result.PDFsProcessed, result.TotalPDFs, result.ChunksCreated)
	for _, msg := range result.Errors {
		fmt.Fprintf(c.App.Writer, "  %s\n", msg)
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	stats, err := app.SystemStats(c.Context)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return printJSON(c, stats)
	}
	w := c.App.Writer
	fmt.Fprintf(w, "collections:     %d\n", stats.TotalCollections)
	fmt.Fprintf(w, "documents:       %d\n", stats.TotalDocuments)
	fmt.Fprintf(w, "indexed chunks:  %d\n", stats.Index.TotalChunks)
	fmt.Fprintf(w, "index:           %s (%s)\n", stats.Index.IndexName, stats.IndexBackend)
	fmt.Fprintf(w, "embedding model: %s\n", stats.EmbeddingModel)
	fmt.Fprintf(w, "data dir:        %s\n", stats.DataDir)
	return nil
}

func historyCommand(c *cli.Context) error {
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	service, err := app.NewService()
	if err != nil {
		return err
	}
	for _, q := range service.RecentQueries(c.Context, core.ID(c.Uint64("collection")), c.Int("limit")) {
		fmt.Fprintf(c.App.Writer, "[%s] %s\n  -> %s (%d sources)\n",
			q.Timestamp.Local().Format("2006-01-02 15:04:05"), q.Question, q.Answer, q.SourcesCount)
	}
	return nil
}

func healthCommand(c *cli.Context) error {
	app, err := openApp(c)
	if err != nil {
		return err
	}
	defer app.Close()

	service, err := app.NewService()
	if err != nil {
		return err
	}
	health := service.Health(c.Context)
	if c.Bool("json") {
		return printJSON(c, health)
	}
	status := "unreachable"
	if health.GeneratorReachable {
		status = "ok"
	}
	fmt.Fprintf(c.App.Writer, "generator: %s\n", status)
	if health.IndexError != "" {
		fmt.Fprintf(c.App.Writer, "index:     error: %s\n", health.IndexError)
	} else {
		fmt.Fprintf(c.App.Writer, "index:     %s (%d chunks)\n", health.Index.IndexName, health.Index.TotalChunks)
	}
	if !health.GeneratorReachable {
		return errors.New("generation backend is unreachable")
	}
	return nil
}
