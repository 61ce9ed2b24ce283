// Package main is the Annai CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/annai/internal/chat"
	"github.com/hyperjump/annai/internal/chunker"
	"github.com/hyperjump/annai/internal/config"
	"github.com/hyperjump/annai/internal/embedding"
	"github.com/hyperjump/annai/internal/fetch"
	"github.com/hyperjump/annai/internal/ingest"
	"github.com/hyperjump/annai/internal/models"
	"github.com/hyperjump/annai/internal/retrieval"
	"github.com/hyperjump/annai/internal/server"
	"github.com/hyperjump/annai/internal/sources"
	"github.com/hyperjump/annai/internal/storage"
	"github.com/hyperjump/annai/internal/vectorindex"
	"github.com/hyperjump/annai/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/annai/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "ask":
		runAsk()
	case "history":
		runHistory()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("annai version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Sources.File != "" {
		pipeline := components.Pipeline
		watchSvc := sources.NewWatcher(cfg.Sources.File, func(urls []string) {
			summary, err := pipeline.IngestAll(context.Background(), urls, false)
			if err != nil {
				logger.Warn("source list ingestion failed", zap.Error(err))
				return
			}
			logger.Info("source list ingested",
				zap.Int("successful", summary.Successful),
				zap.Int("skipped", summary.Skipped),
				zap.Int("errors", summary.Errors))
		}, logger)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start source list watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(
		components.Pipeline,
		components.Chat,
		components.Index,
		components.Storage,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if components.MemoryIndex != nil && cfg.Storage.VectorIndexPath != "" {
		if err := components.MemoryIndex.Save(cfg.Storage.VectorIndexPath); err != nil {
			logger.Warn("vector index save failed", zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
		}
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = run the pipeline locally)")
	force := fs.Bool("force", false, "re-ingest URLs that are already indexed")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	urls := fs.Args()

	if *serverURL != "" {
		summary, err := ingestViaHTTP(*serverURL, urls, *force)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
			os.Exit(1)
		}
		printIngestSummary(summary, *outputFormat)
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if len(urls) == 0 {
		urls = cfg.Sources.URLs
	}
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, "No URLs provided and no defaults configured")
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	summary, err := components.Pipeline.IngestAll(context.Background(), urls, *force)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		os.Exit(1)
	}
	if components.MemoryIndex != nil && cfg.Storage.VectorIndexPath != "" {
		if err := components.MemoryIndex.Save(cfg.Storage.VectorIndexPath); err != nil {
			logger.Warn("vector index save failed", zap.Error(err))
		}
	}
	printIngestSummary(summary, *outputFormat)
}

func ingestViaHTTP(serverURL string, urls []string, force bool) (*models.IngestSummary, error) {
	body, err := json.Marshal(map[string]interface{}{"urls": urls, "force": force})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/ingest", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var summary models.IngestSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &summary, nil
}

func printIngestSummary(summary *models.IngestSummary, format string) {
	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		for _, r := range summary.Results {
			switch r.Status {
			case models.IngestSuccess:
				fmt.Printf("ok       %s  (%d chunks)\n", r.URL, r.ChunksUpserted)
			case models.IngestSkipped:
				fmt.Printf("skipped  %s\n", r.URL)
			case models.IngestError:
				fmt.Printf("error    %s  %s\n", r.URL, r.Error)
			}
		}
		fmt.Printf("\n%d total: %d ingested, %d skipped, %d errors\n",
			summary.TotalURLs, summary.Successful, summary.Skipped, summary.Errors)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", format)
		os.Exit(1)
	}
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = answer locally)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: annai ask [flags] <question>")
		os.Exit(1)
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fmt.Println("Usage: annai ask [flags] <question>")
		os.Exit(1)
	}

	var response *models.ChatResponse
	if *serverURL != "" {
		resp, err := askViaHTTP(*serverURL, question)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		response = resp
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()

		if err := cfg.Validate(); err != nil {
			logger.Fatal("Invalid configuration", zap.Error(err))
		}
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()

		response, err = components.Chat.Ask(context.Background(), question)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(response); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Println(response.Answer)
		if len(response.SourceURLs) > 0 {
			fmt.Println("\nSources:")
			for _, url := range response.SourceURLs {
				fmt.Printf("  %s\n", url)
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func askViaHTTP(serverURL, question string) (*models.ChatResponse, error) {
	body, err := json.Marshal(models.ChatRequest{Question: question})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response models.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runHistory() {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = read local storage)")
	limit := fs.Int("limit", 20, "number of exchanges to show")
	_ = fs.Parse(os.Args[2:])

	var exchanges []*models.ChatExchange
	if *serverURL != "" {
		resp, err := http.Get(fmt.Sprintf("%s/api/v1/chat/history?limit=%d", *serverURL, *limit))
		if err != nil {
			fmt.Fprintf(os.Stderr, "History failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			Exchanges []*models.ChatExchange `json:"exchanges"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
			os.Exit(1)
		}
		exchanges = out.Exchanges
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open storage: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		exchanges, err = store.ListExchanges(context.Background(), *limit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "History failed: %v\n", err)
			os.Exit(1)
		}
	}

	for _, e := range exchanges {
		fmt.Printf("[%s]\nQ: %s\nA: %s\n\n", e.CreatedAt.Format(time.RFC3339), e.Question, utils.Truncate(e.Answer, 200))
	}
	if len(exchanges) == 0 {
		fmt.Println("No exchanges recorded.")
	}
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	VectorIndexSize int                    `json:"vector_index_size"`
	ChatExchanges   *int                   `json:"chat_exchanges,omitempty"`
	Config          map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = use local components)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		resp, err := http.Get(*serverURL + "/api/v1/status")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()

		ctx := context.Background()
		size, err := components.Index.Size(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Index size failed: %v\n", err)
			os.Exit(1)
		}
		count, err := components.Storage.CountExchanges(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count exchanges failed: %v\n", err)
			os.Exit(1)
		}
		status = statusResponse{
			VectorIndexSize: size,
			ChatExchanges:   &count,
			Config: map[string]interface{}{
				"index_type":           cfg.Index.Type,
				"embedding_model":      cfg.Embedding.Model,
				"embedding_dimensions": cfg.Embedding.Dimensions,
				"chunk_size":           cfg.Ingest.ChunkSize,
				"chunk_overlap":        cfg.Ingest.ChunkOverlap,
				"top_k":                cfg.Retrieval.TopK,
			},
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("vector_index_size:  %d   # count of indexed chunks\n", status.VectorIndexSize)
		if status.ChatExchanges != nil {
			fmt.Printf("chat_exchanges:     %d   # recorded question/answer pairs\n", *status.ChatExchanges)
		}
		if status.Config != nil {
			fmt.Println()
			fmt.Println("# configuration")
			for _, key := range []string{"index_type", "embedding_model", "embedding_dimensions", "chunk_size", "chunk_overlap", "top_k"} {
				if v, ok := status.Config[key]; ok {
					fmt.Printf("%-20s %v\n", key+":", v)
				}
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Storage     storage.Storage
	Embedder    embedding.Embedder
	Index       vectorindex.Index
	MemoryIndex *vectorindex.MemoryIndex
	Pipeline    *ingest.Pipeline
	Chat        *chat.Service
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Index != nil {
		_ = c.Index.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var embedder embedding.Embedder
	switch cfg.Embedding.Provider {
	case "mock":
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	default:
		provider, err := embedding.NewOpenAIProvider(cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Dimensions)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		embedder = embedding.NewGateway(
			provider,
			embedding.NewEmbeddingCache(cfg.Embedding.CacheSize),
			cfg.Embedding.MaxInputTokens,
			uint64(cfg.Embedding.MaxAttempts),
			time.Duration(cfg.Embedding.RetryBaseDelayMS)*time.Millisecond,
			logger,
		)
	}

	var index vectorindex.Index
	var memIndex *vectorindex.MemoryIndex
	if cfg.Index.Type == "pgvector" {
		// A configured durable index that cannot be reached is a startup
		// failure. Falling back to an empty memory index here would re-fetch
		// and re-embed every source and answer from a near-empty corpus.
		pgIndex, err := vectorindex.NewPgvectorIndex(context.Background(), cfg.Index.PostgresURL, cfg.Embedding.Dimensions)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to connect pgvector index: %w", err)
		}
		index = pgIndex
	} else {
		memIndex, err = vectorindex.NewMemoryIndex(cfg.Embedding.Dimensions)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize vector index: %w", err)
		}
		if cfg.Storage.VectorIndexPath != "" {
			if loadErr := memIndex.Load(cfg.Storage.VectorIndexPath); loadErr != nil {
				logger.Warn("vector index load skipped", zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(loadErr))
			}
		}
		index = memIndex
	}
	logger.Info("vector index initialized", zap.String("type", cfg.Index.Type))

	fetcher := fetch.NewClient(time.Duration(cfg.Ingest.FetchTimeoutSeconds) * time.Second)
	splitter := chunker.New(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap, cfg.Ingest.BoundaryLookback)

	pipeline := ingest.NewPipeline(fetcher, embedder, index, splitter, ingest.Options{
		Workers:          cfg.Ingest.Workers,
		MinContentLength: cfg.Ingest.MinContentLength,
		PreviewLength:    cfg.Ingest.PreviewLength,
		SourceTag:        cfg.Ingest.SourceTag,
	}, logger)

	engine := retrieval.NewEngine(embedder, index, cfg.Retrieval.TopK, cfg.Retrieval.MinScore, logger)

	var generator chat.Generator
	if cfg.Embedding.APIKey != "" {
		gen, err := chat.NewOpenAIGenerator(cfg.Embedding.APIKey, cfg.Chat.Model, cfg.Chat.Temperature, cfg.Chat.MaxTokens)
		if err != nil {
			_ = store.Close()
			_ = index.Close()
			return nil, fmt.Errorf("failed to initialize generator: %w", err)
		}
		generator = gen
	} else {
		logger.Warn("no API key configured, answers will quote the index directly")
	}

	chatSvc := chat.NewService(engine, generator, store, logger)

	return &Components{
		Storage:     store,
		Embedder:    embedder,
		Index:       index,
		MemoryIndex: memIndex,
		Pipeline:    pipeline,
		Chat:        chatSvc,
	}, nil
}

func printUsage() {
	fmt.Println(`annai - Travel knowledge base with grounded answers

Usage:
  annai server [flags]            Start the HTTP server
  annai ingest [flags] [urls...]  Fetch, chunk, and index travel pages
  annai ask [flags] <question>    Ask a question grounded in indexed content
  annai history [flags]           Show recent question/answer exchanges
  annai status [flags]            Show index and storage status
  annai version                   Show version
  annai help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/annai/config.yaml)
  --debug            Enable debug logging

Ingest Flags:
  --config string    Config file path (for local mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to run the pipeline locally.
  --force            Re-ingest URLs that are already indexed
  --output string    Output format: text or json (default: text)

Ask Flags:
  --config string    Config file path (for local mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to answer locally.
  --output string    Output format: text or json (default: text)

History Flags:
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to read local storage.
  --limit int        Number of exchanges to show (default: 20)

Status Flags:
  --config string    Config file path (for local mode)
  --server string    Server URL (default: http://localhost:8080)
  --output string    Output format: text or json (default: text)

Examples:
  annai server
  annai ingest                                      # ingest the configured default sources
  annai ingest https://www.shermanstravel.com/advice/top-10-alaska-cruise-destinations
  annai ingest --force --output json
  annai ask "What are the best Mediterranean cruise ports?"
  annai history --limit 5
  annai status --output json`)
}
