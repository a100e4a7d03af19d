// Command discover runs one discovery query from the command line and prints
// the response JSON. Useful for exercising the pipeline without the HTTP
// server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"glowfeed.app/discovery/common/id"
	"glowfeed.app/discovery/common/llm"
	"glowfeed.app/discovery/common/logger"
	"glowfeed.app/discovery/core/config"
	"glowfeed.app/discovery/internal/brain"
	"glowfeed.app/discovery/internal/http/dto"
	"glowfeed.app/discovery/internal/search"
	"glowfeed.app/discovery/internal/service"
	"glowfeed.app/discovery/internal/store"
)

func main() {
	bypassCache := flag.Bool("bypass-cache", false, "skip the cache and run the full pipeline")
	flag.Parse()

	query := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if query == "" {
		fmt.Fprintln(os.Stderr, "usage: discover [-bypass-cache] <query>")
		os.Exit(2)
	}

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger.Setup(cfg)

	if err := id.Init(1); err != nil {
		fmt.Fprintln(os.Stderr, "id generator:", err)
		os.Exit(1)
	}

	chain := buildChain(ctx, cfg)

	pipeline := brain.NewOrchestrator(
		brain.NewClassifier(chain),
		search.NewExecutor(search.NewClient(cfg.Search)),
		brain.NewFetcher(cfg.Pipeline.FetchTimeout),
		brain.NewExtractor(chain),
		brain.NewAnalyzer(chain),
		cfg.Pipeline,
	)

	// One-shot run: in-memory cache and in-process locks are all it needs.
	discoveryService := service.NewDiscoveryService(
		pipeline,
		store.NewMemoryCache(cfg.Cache.TTL),
		store.NewLocalLocker(),
		chain,
	)

	out, err := discoveryService.Discover(ctx, query, *bypassCache)
	if err != nil {
		fmt.Fprintln(os.Stderr, "discover:", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dto.ToSearchResponse(out)); err != nil {
		fmt.Fprintln(os.Stderr, "encode:", err)
		os.Exit(1)
	}
}

func buildChain(ctx context.Context, cfg config.Config) *llm.Chain {
	var clients []llm.Client

	if cfg.GeminiLLM.Enabled() {
		client, err := llm.NewGeminiClient(ctx, llm.Config{
			APIKey:    cfg.GeminiLLM.APIKey,
			Model:     cfg.GeminiLLM.Model,
			MaxTokens: cfg.GeminiLLM.MaxTokens,
		})
		if err != nil {
			slog.WarnContext(ctx, "gemini client init failed, skipping provider", "error", err)
		} else {
			clients = append(clients, client)
		}
	}

	if cfg.OpenAILLM.Enabled() {
		client, err := llm.NewOpenAIClient(llm.Config{
			APIKey:    cfg.OpenAILLM.APIKey,
			BaseURL:   cfg.OpenAILLM.BaseURL,
			Model:     cfg.OpenAILLM.Model,
			MaxTokens: cfg.OpenAILLM.MaxTokens,
		})
		if err != nil {
			slog.WarnContext(ctx, "openai client init failed, skipping provider", "error", err)
		} else {
			clients = append(clients, client)
		}
	}

	return llm.NewChain(clients...)
}
