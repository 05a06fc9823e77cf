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
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/poiesic/docsift"
	"github.com/poiesic/docsift/batch"
	"github.com/poiesic/docsift/chunking"
	"github.com/poiesic/docsift/config"
	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/extraction"
	"github.com/poiesic/docsift/highlight"
	"github.com/poiesic/docsift/indexing"
	"github.com/poiesic/docsift/ocr"
	"github.com/poiesic/docsift/retrieval"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// newApp builds the command tree. Results go to out as JSON; progress and
// logs go to stderr. engineOpts are passed to every engine the commands open.
func newApp(out io.Writer, engineOpts ...docsift.Option) *cli.App {
	cmd := &commands{out: out, engineOpts: engineOpts}

	dbFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to the BadgerDB database directory (overrides storage_path)",
		},
		&cli.BoolFlag{
			Name:  "in-memory",
			Usage: "Keep all data in memory for the duration of the command",
		},
	}

	return &cli.App{
		Name:  "docsift",
		Usage: "Document ingestion and retrieval for RAG",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a .env file (missing file is ignored)",
				Value: ".env",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "extract",
				Usage:  "Extract tables and clean LaTeX from one markdown page",
				Action: cmd.extract,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "in", Usage: "Markdown page file", Required: true},
					&cli.IntFlag{Name: "page", Usage: "One-based page number", Value: 1},
					&cli.StringFlag{Name: "file-id", Usage: "File ID stamped on table records", Value: "local"},
				},
			},
			{
				Name:   "chunk",
				Usage:  "Chunk a JSON array of {pageNumber, rawText} pages",
				Action: cmd.chunk,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "in", Usage: "JSON pages file", Required: true},
					&cli.StringFlag{Name: "variant", Usage: "Chunker variant (headers, pages)", Value: "headers"},
					&cli.IntFlag{Name: "max-tokens", Usage: "Per-chunk token budget (0 uses the variant default)"},
					&cli.StringFlag{Name: "counter", Usage: "Token counter (tiktoken, words)", Value: "tiktoken"},
					&cli.StringFlag{Name: "encoding", Usage: "Tiktoken encoding", Value: "cl100k_base"},
				},
			},
			{
				Name:   "ingest",
				Usage:  "Ingest a directory of pre-OCR'd pages (page_1.md, page_2.md, ...)",
				Action: cmd.ingest,
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "pages", Usage: "Directory holding the page files", Required: true},
					&cli.StringFlag{Name: "name", Usage: "File name (defaults to the directory name)"},
					&cli.StringFlag{Name: "type", Usage: "File type recorded in vector metadata", Value: "document"},
					&cli.StringFlag{Name: "user-id", Usage: "Owner recorded in vector metadata"},
					&cli.StringFlag{Name: "project-id", Usage: "Project recorded in vector metadata"},
				}, dbFlags...),
			},
			{
				Name:   "qa",
				Usage:  "Extract curated Q&A pairs from ingested files",
				Action: cmd.qa,
				Flags: append([]cli.Flag{
					&cli.StringSliceFlag{Name: "id", Usage: "File ID (repeatable)", Required: true},
				}, dbFlags...),
			},
			{
				Name:   "web",
				Usage:  "Scrape and index web pages",
				Action: cmd.web,
				Flags: append([]cli.Flag{
					&cli.StringSliceFlag{Name: "url", Usage: "Page URL (repeatable)", Required: true},
				}, dbFlags...),
			},
			{
				Name:   "query",
				Usage:  "Search indexed chunks",
				Action: cmd.query,
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "q", Usage: "Query text", Required: true},
					&cli.StringSliceFlag{Name: "filter", Usage: "Metadata filter key=value (repeatable)"},
					&cli.IntFlag{Name: "top-k", Usage: "Number of matches", Value: retrieval.DefaultTopK},
					&cli.BoolFlag{Name: "aggregate", Usage: "Group matches per document"},
				}, dbFlags...),
			},
			{
				Name:   "highlight",
				Usage:  "Locate a text snippet in a PDF",
				Action: cmd.highlight,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "pdf", Usage: "PDF path or URL", Required: true},
					&cli.StringSliceFlag{Name: "text", Usage: "Snippet to locate (repeatable)", Required: true},
					&cli.IntSliceFlag{Name: "page", Usage: "Candidate page (repeatable)"},
				},
			},
			{
				Name:   "delete",
				Usage:  "Delete files and their vectors, or vectors matching a filter",
				Action: cmd.delete,
				Flags: append([]cli.Flag{
					&cli.StringSliceFlag{Name: "id", Usage: "File ID (repeatable)"},
					&cli.StringSliceFlag{Name: "filter", Usage: "Metadata filter key=value (repeatable)"},
				}, dbFlags...),
			},
		},
	}
}

type commands struct {
	out        io.Writer
	engineOpts []docsift.Option
}

func (cmd *commands) openEngine(c *cli.Context, opts ...docsift.Option) (*docsift.Engine, error) {
	cfg, err := config.Load(c.String("config"), c.String("env-file"))
	if err != nil {
		return nil, err
	}
	if db := c.String("db"); db != "" {
		cfg.StoragePath = db
		cfg.VectorPath = filepath.Clean(db) + ".vectors"
	}
	if c.Bool("in-memory") {
		cfg.InMemory = true
	}

	all := append([]docsift.Option{docsift.WithSink(batch.NewTrackerSink(os.Stderr))}, cmd.engineOpts...)
	engine, err := docsift.New(c.Context, cfg, append(all, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}
	return engine, nil
}

func (cmd *commands) print(v any) error {
	enc := json.NewEncoder(cmd.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (cmd *commands) extract(c *cli.Context) error {
	data, err := os.ReadFile(c.String("in"))
	if err != nil {
		return err
	}
	page := c.Int("page")
	if page < 1 {
		return fmt.Errorf("page must be at least 1")
	}

	result, _ := extraction.ExtractPage(c.String("file-id"), ocr.Page{Index: page - 1, Markdown: string(data)}, 0)
	tables := result.Tables
	if tables == nil {
		tables = []core.TableRecord{}
	}
	return cmd.print(map[string]any{
		"markdown": result.Markdown,
		"tables":   tables,
	})
}

func (cmd *commands) chunk(c *cli.Context) error {
	data, err := os.ReadFile(c.String("in"))
	if err != nil {
		return err
	}
	var pages []core.PageMarkdown
	if err := json.Unmarshal(data, &pages); err != nil {
		return fmt.Errorf("parsing %s: %w", c.String("in"), err)
	}

	var counter chunking.TokenCounter
	switch c.String("counter") {
	case "tiktoken":
		counter, err = chunking.NewTiktokenCounter(c.String("encoding"))
		if err != nil {
			return err
		}
	case "words":
		counter = chunking.WordCounter{}
	default:
		return fmt.Errorf("unknown counter %q: must be tiktoken or words", c.String("counter"))
	}

	var opts []chunking.Option
	if n := c.Int("max-tokens"); n > 0 {
		opts = append(opts, chunking.WithMaxTokens(n))
	}

	var chunker chunking.Chunker
	switch c.String("variant") {
	case "headers":
		chunker, err = chunking.NewHeaderChunker(counter, append(opts, chunking.WithContentTags(true, true))...)
	case "pages":
		chunker, err = chunking.NewPageChunker(counter, opts...)
	default:
		return fmt.Errorf("unknown variant %q: must be headers or pages", c.String("variant"))
	}
	if err != nil {
		return err
	}

	chunks, err := chunker.Chunk(pages)
	if err != nil {
		return err
	}
	return cmd.print(chunks)
}

func (cmd *commands) ingest(c *cli.Context) error {
	dir := c.String("pages")
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	engine, err := cmd.openEngine(c, docsift.WithOCR(ocr.NewDirService()))
	if err != nil {
		return err
	}
	defer engine.Close()

	name := c.String("name")
	if name == "" {
		name = filepath.Base(filepath.Clean(dir))
	}
	id, err := engine.Files().Register(c.Context, core.File{
		Name:      name,
		Type:      c.String("type"),
		URL:       dir,
		UserID:    c.String("user-id"),
		ProjectID: c.String("project-id"),
	})
	if err != nil {
		return err
	}

	summary, err := engine.Files().Process(c.Context, []string{id})
	if err != nil {
		return err
	}
	if err := summary.Results[0].Err; err != nil {
		return fmt.Errorf("ingesting %s: %w", dir, err)
	}

	data := summary.Data()
	data["fileId"] = id
	return cmd.print(data)
}

func (cmd *commands) qa(c *cli.Context) error {
	engine, err := cmd.openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	summary, err := engine.QA().Process(c.Context, c.StringSlice("id"))
	if err != nil {
		return err
	}
	return cmd.print(resultsOf(summary))
}

func (cmd *commands) web(c *cli.Context) error {
	engine, err := cmd.openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	summary, err := engine.Web().Process(c.Context, c.StringSlice("url"))
	if err != nil {
		return err
	}
	return cmd.print(resultsOf(summary))
}

func (cmd *commands) query(c *cli.Context) error {
	filter, err := parseFilters(c.StringSlice("filter"))
	if err != nil {
		return err
	}

	engine, err := cmd.openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	q := retrieval.Query{Text: c.String("q"), Filter: filter, TopK: c.Int("top-k")}
	if c.Bool("aggregate") {
		result, err := engine.QueryContext(c.Context, q)
		if err != nil {
			return err
		}
		return cmd.print(result)
	}

	matches, err := engine.Search(c.Context, q)
	if err != nil {
		return err
	}
	type hit struct {
		ID         string               `json:"id"`
		Score      float32              `json:"score"`
		Text       string               `json:"text"`
		Pages      []int                `json:"pages"`
		Metadata   map[string]any       `json:"metadata"`
		References retrieval.References `json:"references"`
	}
	hits := make([]hit, 0, len(matches))
	for _, m := range matches {
		refs, err := engine.ResolveReferences(c.Context, m)
		if err != nil {
			return err
		}
		hits = append(hits, hit{ID: m.ID, Score: m.Score, Text: m.Text(), Pages: m.PageNumbers(), Metadata: m.Metadata, References: refs})
	}
	return cmd.print(hits)
}

func (cmd *commands) highlight(c *cli.Context) error {
	h, err := highlight.NewHighlighter()
	if err != nil {
		return err
	}
	results, err := h.FindAllInPDF(c.Context, c.String("pdf"), c.StringSlice("text"), c.IntSlice("page"))
	if err != nil {
		return err
	}
	if len(results) == 1 {
		return cmd.print(results[0])
	}
	return cmd.print(results)
}

func (cmd *commands) delete(c *cli.Context) error {
	ids := c.StringSlice("id")
	filters := c.StringSlice("filter")
	if len(ids) == 0 && len(filters) == 0 {
		return fmt.Errorf("at least one --id or --filter is required")
	}
	fields, err := parseFields(filters)
	if err != nil {
		return err
	}

	engine, err := cmd.openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	result := map[string]any{}
	if len(ids) > 0 {
		if err := engine.Files().Delete(c.Context, ids); err != nil {
			return err
		}
		result["files"] = len(ids)
	}
	if len(fields) > 0 {
		n, err := engine.DeleteVectors(c.Context, indexing.DeleteFilter(fields))
		if err != nil {
			return err
		}
		result["vectors"] = n
	}
	return cmd.print(result)
}

type itemResult struct {
	ID    string `json:"id"`
	Units int    `json:"units"`
	Error string `json:"error,omitempty"`
}

func resultsOf(summary *batch.Summary) map[string]any {
	items := make([]itemResult, 0, len(summary.Results))
	for _, r := range summary.Results {
		item := itemResult{ID: r.ID, Units: r.Units}
		if r.Err != nil {
			item.Error = r.Err.Error()
		}
		items = append(items, item)
	}
	data := summary.Data()
	data["items"] = items
	return data
}

// parseFields groups key=value pairs by key. Repeated keys collect values.
func parseFields(pairs []string) (map[string]any, error) {
	fields := map[string]any{}
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q: expected key=value", pair)
		}
		value := parseValue(strings.TrimSpace(raw))
		switch prev := fields[key].(type) {
		case nil:
			fields[key] = value
		case []any:
			fields[key] = append(prev, value)
		default:
			fields[key] = []any{prev, value}
		}
	}
	return fields, nil
}

// parseFilters turns key=value pairs into a query filter: one value per key
// compares by equality, repeated keys by membership.
func parseFilters(pairs []string) (indexing.Filter, error) {
	fields, err := parseFields(pairs)
	if err != nil {
		return nil, err
	}
	return indexing.FilterFromMap(fields)
}

func parseValue(raw string) any {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

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

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
