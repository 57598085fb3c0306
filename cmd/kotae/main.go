// Package main is the Kotae CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/pipeline"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/synth"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// stringList collects repeated flag values, e.g. -doc a.pdf -doc b.pdf.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "kotae server" from the project dir uses the project's config.
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
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// Components holds initialized services shared by the server and ask commands.
type Components struct {
	Embedder     embedding.Embedder
	Cache        storage.EntryCache
	Orchestrator *pipeline.Orchestrator
}

func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	embedder := embedding.NewFromConfig(&cfg.Embedding, logger)

	apiKey := os.Getenv(cfg.LLM.APIKeyEnv)
	llm, err := synth.NewOpenAIClient(synth.OpenAIConfig{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      apiKey,
		Model:       cfg.LLM.Model,
		Timeout:     time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		MaxRetries:  cfg.LLM.MaxRetries,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	}, logger)
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to initialize LLM client (set %s): %w", cfg.LLM.APIKeyEnv, err)
	}

	var cache storage.EntryCache
	if cfg.Index.PersistPath != "" {
		sqliteCache, err := storage.NewSQLiteCache(cfg.Index.PersistPath)
		if err != nil {
			logger.Warn("corpus cache unavailable, continuing without it",
				zap.String("path", cfg.Index.PersistPath), zap.Error(err))
		} else {
			cache = sqliteCache
		}
	}

	return &Components{
		Embedder:     embedder,
		Cache:        cache,
		Orchestrator: pipeline.New(cfg, embedder, llm, cache, logger),
	}, nil
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

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(components.Orchestrator, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	var docs stringList
	var questions stringList
	fs.Var(&docs, "doc", "document URL or local path (repeatable)")
	fs.Var(&questions, "q", "question to answer (repeatable)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if len(docs) == 0 || len(questions) == 0 {
		fmt.Println("Usage: kotae ask -doc <url-or-path> [-doc ...] -q <question> [-q ...]")
		os.Exit(1)
	}

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

	response, err := components.Orchestrator.Run(context.Background(), &models.AskRequest{
		Documents: docs,
		Questions: questions,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
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
		writeAnswers(response)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func writeAnswers(response *models.AskResponse) {
	for i, ans := range response.Answers {
		if i > 0 {
			fmt.Println()
		}
		fmt.Printf("Q: %s\n", ans.Question)
		fmt.Printf("A: %s\n", ans.Text)
		if ans.Err != "" {
			fmt.Printf("   error: %s\n", ans.Err)
			continue
		}
		fmt.Printf("   confidence: %.2f\n", ans.Confidence)
		for _, src := range ans.Sources {
			fmt.Printf("   source: %s chunk %d (%.2f)\n", src.DocumentID, src.ChunkIndex, src.Score)
		}
	}
	if len(response.Warnings) > 0 {
		fmt.Println()
		for _, w := range response.Warnings {
			fmt.Printf("warning: %s\n", w)
		}
	}
	fmt.Printf("\n%d document(s), %d chunk(s), %dms\n",
		response.DocumentCount, response.ChunkCount, response.ProcessingMS)
}

func printUsage() {
	fmt.Println(`kotae - Document question answering over your own files

Usage:
  kotae server [flags]    Start the HTTP server
  kotae ask [flags]       Answer questions about documents, one shot
  kotae version           Show version
  kotae help              Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml)
  --debug            Enable debug logging

Ask Flags:
  --config string    Config file path
  --doc string       Document URL or local path (repeat for multiple documents)
  --q string         Question (repeat for multiple questions)
  --output string    Output format: text or json (default: text)

Examples:
  kotae server
  kotae ask -doc policy.pdf -q "What is covered?"
  kotae ask -doc https://example.com/terms.pdf -doc faq.html -q "How do I cancel?" -q "Is there a fee?"
  kotae ask -doc manual.docx -q "How do I reset it?" --output json`)
}
