// Package main is the hanashi CLI entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/hanashi/internal/assistant"
	"github.com/hyperjump/hanashi/internal/cli"
	"github.com/hyperjump/hanashi/internal/config"
	"github.com/hyperjump/hanashi/internal/embedding"
	"github.com/hyperjump/hanashi/internal/extract"
	"github.com/hyperjump/hanashi/internal/keyword"
	"github.com/hyperjump/hanashi/internal/knowledge"
	"github.com/hyperjump/hanashi/internal/llm"
	"github.com/hyperjump/hanashi/internal/memory"
	"github.com/hyperjump/hanashi/internal/models"
	"github.com/hyperjump/hanashi/internal/prompt"
	"github.com/hyperjump/hanashi/internal/server"
	"github.com/hyperjump/hanashi/internal/storage"
	"github.com/hyperjump/hanashi/internal/vector"
	"github.com/hyperjump/hanashi/internal/watcher"
	"github.com/hyperjump/hanashi/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/hanashi/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded (for saving, etc.).
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
	case "ask":
		runAsk()
	case "ingest":
		runIngest()
	case "search":
		runSearch()
	case "forget":
		runForget()
	case "history":
		runHistory()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("hanashi version %s\n", version)
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
	debug := fs.Bool("debug", false, "enable debug logging (prompts, retrieval, file ingestion)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
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
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model),
		zap.Bool("knowledge", cfg.Knowledge.Enabled),
		zap.Bool("debug", debugMode),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	var srvOpts []server.Option
	var watchSvc *watcher.Watcher
	if components.Knowledge != nil {
		srvOpts = append(srvOpts, server.WithKnowledge(components.Knowledge))
		watchSvc = watcher.New(components.Knowledge, cfg.Watch.Directories, cfg.Watch.Extensions,
			cfg.Watch.RecursiveOrDefault(), watcher.WithLogger(logger))
		if err := watchSvc.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		go watchSvc.SyncExistingFiles()
		srvOpts = append(srvOpts, server.WithWatcher(watchSvc, resolvedConfigPath))
	}

	srv := server.NewServer(cfg, components.Assistant, components.Storage, logger, srvOpts...)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	cancel()
	if watchSvc != nil {
		watchSvc.Stop()
	}
	if components.Knowledge != nil {
		if err := components.Knowledge.Save(); err != nil {
			logger.Warn("vector index save failed", zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
		}
	}
}

// Components holds initialized services.
type Components struct {
	Storage      *storage.SQLiteStorage
	Generator    llm.Generator
	Embedder     embedding.Embedder
	KeywordIndex keyword.KeywordIndex
	Knowledge    *knowledge.Base
	Assistant    *assistant.Service
}

func (c *Components) Close() {
	if c.Generator != nil {
		_ = c.Generator.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Storage = store

	gen, err := llm.NewGenerator(ctx, cfg.LLM, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}
	c.Generator = gen

	svcOpts := []assistant.Option{
		assistant.WithLogger(logger),
		assistant.WithChunkChars(cfg.Stream.ChunkChars),
		assistant.WithDefaultSession(cfg.Memory.DefaultSession),
	}

	if cfg.Knowledge.Enabled {
		if err := initializeKnowledge(ctx, c, cfg, logger); err != nil {
			c.Close()
			return nil, err
		}
		svcOpts = append(svcOpts, assistant.WithRetriever(c.Knowledge, cfg.Knowledge.TopK))
	}

	c.Assistant = assistant.NewService(store, memory.New(store, cfg.Memory.MaxTurns), gen,
		prompt.NewBuilder(cfg.LLM.Preamble), svcOpts...)
	return c, nil
}

func initializeKnowledge(ctx context.Context, c *Components, cfg *config.Config, logger *zap.Logger) error {
	embedder, err := embedding.NewEmbedder(ctx, cfg.Embedding, cfg.LLM.APIKey)
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}
	c.Embedder = embedder

	vectorIndex, err := vector.NewMemoryIndex(embedder.Dimensions())
	if err != nil {
		return fmt.Errorf("failed to initialize vector index: %w", err)
	}
	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	c.KeywordIndex = keywordIndex

	kb := knowledge.New(c.Storage, embedder, vectorIndex, keywordIndex, cfg.Knowledge,
		knowledge.WithLogger(logger),
		knowledge.WithVectorPath(cfg.Storage.VectorIndexPath),
	)
	if err := kb.Load(ctx); err != nil {
		return err
	}
	logger.Info("knowledge base loaded",
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.Int("dimensions", embedder.Dimensions()),
		zap.Int("chunks", kb.Size()),
	)
	c.Knowledge = kb
	return nil
}

// buildQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the
// positional arguments to the front so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func parseOutput(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fail("%v", err)
	}
	return format
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	serverURL := fs.String("server", cli.DefaultServerURL, "server URL")
	session := fs.String("session", "", "conversation session (default: server's default session)")
	timeout := fs.Duration("timeout", 3*time.Minute, "request timeout")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	query := buildQuery(fs.Args())
	if query == "" {
		fmt.Println("Usage: hanashi ask [flags] <query>")
		os.Exit(1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	printer := cli.NewChunkPrinter(os.Stdout)
	client := cli.NewClient(*serverURL, nil)
	_, err := client.Ask(ctx, &models.GenerateRequest{Query: query, SessionID: *session}, printer.Print)
	printer.End()
	if err != nil {
		fail("Ask failed: %v", err)
	}
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	serverURL := fs.String("server", cli.DefaultServerURL, "server URL")
	title := fs.String("title", "", "document title (single file only; default: file name)")
	recursive := fs.Bool("recursive", true, "include subdirectories (directory only)")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: hanashi ingest [flags] <file-or-directory>")
		os.Exit(1)
	}
	path, err := filepath.Abs(fs.Arg(0))
	if err != nil {
		fail("Invalid path: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		fail("Failed to stat path: %v", err)
	}

	ctx := context.Background()
	client := cli.NewClient(*serverURL, nil)
	ex := extract.NewExtractor()

	if !info.IsDir() {
		input, err := knowledge.FileInput(ex, path, info)
		if err != nil {
			fail("Extraction failed: %v", err)
		}
		if *title != "" {
			input.Title = *title
		}
		id, err := client.Ingest(ctx, input)
		if err != nil {
			fail("Ingest failed: %v", err)
		}
		fmt.Printf("Document ingested: %s\n", id)
		return
	}

	// Directories are read by the server so unchanged files are skipped and
	// files are ingested concurrently.
	res, err := client.IngestDirectory(ctx, path, *recursive)
	if err != nil {
		fail("Ingest failed: %v", err)
	}
	fmt.Printf("Ingested %d file(s) from %s (%d unchanged or empty, %d failed)\n",
		res.Indexed, res.Path, res.Skipped, res.Failed)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	serverURL := fs.String("server", cli.DefaultServerURL, "server URL")
	limit := fs.Int("limit", 0, "number of results (default: knowledge.top_k)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	query := buildQuery(fs.Args())
	if query == "" {
		fmt.Println("Usage: hanashi search [flags] <query>")
		os.Exit(1)
	}
	format := parseOutput(*outputFormat)
	hits, err := cli.NewClient(*serverURL, nil).Search(context.Background(), &models.KnowledgeQuery{Query: query, Limit: *limit})
	if err != nil {
		fail("Search failed: %v", err)
	}
	if err := cli.WriteHits(os.Stdout, query, hits, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runForget() {
	fs := flag.NewFlagSet("forget", flag.ExitOnError)
	serverURL := fs.String("server", cli.DefaultServerURL, "server URL")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: hanashi forget [flags] <doc-id-or-file>")
		os.Exit(1)
	}
	id := fs.Arg(0)
	// a path to an ingested file maps to its stable document ID
	if !knowledge.IsFileDocID(id) {
		if _, err := os.Stat(id); err == nil {
			abs, _ := filepath.Abs(id)
			id = knowledge.FileDocID(abs)
		}
	}
	if err := cli.NewClient(*serverURL, nil).Forget(context.Background(), id); err != nil {
		fail("Forget failed: %v", err)
	}
	fmt.Printf("Document deleted: %s\n", id)
}

func runHistory() {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	serverURL := fs.String("server", cli.DefaultServerURL, "server URL")
	session := fs.String("session", "", "session to show (default: the server's default session)")
	list := fs.Bool("list", false, "list sessions instead of showing one")
	clearSession := fs.Bool("clear", false, "delete the session")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format := parseOutput(*outputFormat)
	client := cli.NewClient(*serverURL, nil)
	ctx := context.Background()
	switch {
	case *list:
		sessions, err := client.Sessions(ctx)
		if err != nil {
			fail("History failed: %v", err)
		}
		if err := cli.WriteSessions(os.Stdout, sessions, format); err != nil {
			fail("Output failed: %v", err)
		}
	case *clearSession:
		cleared, err := client.Reset(ctx, *session)
		if err != nil {
			fail("Clear failed: %v", err)
		}
		fmt.Printf("Session cleared: %s\n", cleared)
	default:
		h, err := client.History(ctx, *session)
		if err != nil {
			fail("History failed: %v", err)
		}
		if err := cli.WriteHistory(os.Stdout, h.SessionID, h.Messages, format); err != nil {
			fail("Output failed: %v", err)
		}
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", cli.DefaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format := parseOutput(*outputFormat)
	st, err := cli.NewClient(*serverURL, nil).Status(context.Background())
	if err != nil {
		fail("Status failed: %v", err)
	}
	if err := cli.WriteStatus(os.Stdout, st, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func printUsage() {
	fmt.Println(`hanashi - Conversational assistant server with memory and streaming answers

Usage:
  hanashi server [flags]              Start the HTTP server
  hanashi ask [flags] <query>         Ask a question and stream the answer
  hanashi ingest [flags] <path>       Add a file or directory to the knowledge base
  hanashi search [flags] <query>      Search the knowledge base
  hanashi forget [flags] <id|file>    Remove a knowledge document
  hanashi history [flags]             Show a conversation
  hanashi status [flags]              Show server, storage and index status
  hanashi version                     Show version
  hanashi help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/hanashi/config.yaml)
  --debug            Enable debug logging

Client Flags (ask, ingest, search, forget, history, status):
  --server string    Server URL (default: http://localhost:8000)

Ask Flags:
  --session string   Conversation session (default: server default)
  --timeout duration Request timeout (default: 3m)

Ingest Flags:
  --config string    Config file path (watch.extensions filters directories)
  --title string     Document title for a single file

History Flags:
  --session string   Session to show (default: default)
  --list             List sessions
  --clear            Delete the session
  --output string    Output format: text or json (default: text)

Examples:
  hanashi server
  hanashi ask "What is a goroutine?"
  hanashi ask --session work what did I ask before
  hanashi ingest ~/notes
  hanashi search --output json "release notes"
  hanashi history --session work
  hanashi status --output json`)
}
