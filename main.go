package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/finsight-ai/finsight/api"
	"github.com/finsight-ai/finsight/bot"
	"github.com/finsight-ai/finsight/cache"
	"github.com/finsight-ai/finsight/chat"
	"github.com/finsight-ai/finsight/config"
	"github.com/finsight-ai/finsight/database"
	"github.com/finsight-ai/finsight/embeddings"
	"github.com/finsight-ai/finsight/ingestion"
	"github.com/finsight-ai/finsight/llm"
	"github.com/finsight-ai/finsight/market"
	"github.com/finsight-ai/finsight/metrics"
	"github.com/finsight-ai/finsight/portfolio"
	"github.com/finsight-ai/finsight/retrieval"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()

	switch os.Args[1] {
	case "ingest":
		ingestCmd(cfg, logger, os.Args[2:])
	case "chat":
		chatCmd(cfg, logger, os.Args[2:])
	case "serve":
		serveCmd(cfg, logger, os.Args[2:])
	case "clear":
		clearCmd(cfg, logger, os.Args[2:])
	default:
		logger.Printf("unknown command: %s", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func ingestCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("ingest", flag.ExitOnError)
	dataDir := flags.String("dir", cfg.KnowledgeDir, "path to the knowledge base directory")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse ingest flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatalf("postgres connection: %v", err)
	}
	defer pool.Close()

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		logger.Fatalf("embedder setup: %v", err)
	}

	svc := ingestion.NewService(pool, embedder, logger, cfg.Embeddings.Dimension)
	logger.Printf("ingesting documents from %s using %s/%s embeddings", *dataDir, strings.ToUpper(cfg.Embeddings.Provider), cfg.Embeddings.Model)

	if err := svc.IngestDirectory(ctx, *dataDir); err != nil {
		logger.Fatalf("ingestion failed: %v", err)
	}
}

func chatCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("chat", flag.ExitOnError)
	question := flags.String("question", "", "single question to ask (omit for interactive mode)")
	userID := flags.String("user", "", "user id for portfolio personalization")
	limit := flags.Int("limit", cfg.RetrievalK, "number of context chunks to retrieve")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse chat flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	deps, err := buildAssistant(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup: %v", err)
	}
	defer deps.close()

	if strings.TrimSpace(*question) != "" {
		result, err := deps.assistant.ProcessQuery(ctx, bot.QueryOptions{
			Query:       *question,
			UserID:      *userID,
			Enrich:      true,
			Personalize: *userID != "",
			Limit:       *limit,
			Surface:     "cli",
		})
		if err != nil {
			logger.Fatalf("query failed: %v", err)
		}
		fmt.Println(result.Answer)
		printSources(result.Sources)
		return
	}

	runInteractive(ctx, deps, *userID, *limit, logger)
}

func serveCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := flags.String("addr", cfg.ListenAddr, "listen address")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse serve flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	deps, err := buildAssistant(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup: %v", err)
	}
	defer deps.close()

	server := api.New(deps.assistant, deps.portfolios, deps.quotes, deps.metrics, logger)

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("shutdown: %v", err)
		}
	}()

	logger.Printf("serving on %s", *addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("serve: %v", err)
	}
}

func clearCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("clear", flag.ExitOnError)
	confirmed := flags.Bool("confirm", false, "skip confirmation prompt")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse clear flags: %v", err)
	}

	if !*confirmed {
		fmt.Print("This will permanently delete the ingested knowledge base. Continue? [y/N]: ")
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				logger.Fatalf("read confirmation: %v", err)
			}
			logger.Println("clear aborted")
			return
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if answer != "y" && answer != "yes" {
			logger.Println("clear aborted")
			return
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatalf("postgres connection: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, "TRUNCATE kb_chunks, kb_documents"); err != nil {
		logger.Fatalf("truncate knowledge base tables: %v", err)
	}
	logger.Println("knowledge base cleared")
}

// assistantDeps bundles everything chatCmd and serveCmd share.
type assistantDeps struct {
	assistant  *bot.Assistant
	portfolios *portfolio.Manager
	quotes     market.DataSource
	metrics    *metrics.Metrics
	close      func()
}

func buildAssistant(ctx context.Context, cfg config.Config, logger *log.Logger) (*assistantDeps, error) {
	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("postgres connection: %w", err)
	}

	if err := database.EnsureSchema(ctx, pool, cfg.Embeddings.Dimension); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("embedder setup: %w", err)
	}

	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("llm setup: %w", err)
	}

	store := retrieval.NewPostgresVectorStore(pool)
	dense := retrieval.NewRetriever(store, embedder)

	// The sparse index is built once at startup from the full corpus; rerun
	// the process after re-ingestion to pick up new documents.
	corpus, err := store.AllChunks(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("load corpus for keyword index: %w", err)
	}
	if len(corpus) == 0 {
		logger.Printf("knowledge base is empty; answers will not be grounded until ingestion runs")
	}
	hybrid := retrieval.NewHybridRetriever(dense, retrieval.NewBM25Index(corpus), cfg.HybridAlpha)

	chatSvc := chat.NewService(hybrid, llmClient, logger)

	var quotes market.DataSource
	var enricher *market.Enricher
	if cfg.AlphaVantageKey != "" {
		quotes = market.NewAlphaVantageClient(cfg.AlphaVantageKey)
		enricher = market.NewEnricher(quotes, logger)
	} else {
		logger.Printf("no Alpha Vantage API key set; market data enrichment is disabled")
	}

	portfolios := portfolio.NewManager(portfolio.NewPostgresStore(pool), quotes, logger)

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Printf("redis unavailable, response caching disabled: %v", err)
	}
	var responseCache *cache.Cache
	if err == nil {
		responseCache = cache.New(redisClient, time.Duration(cfg.CacheTTLSec)*time.Second, logger)
	}

	m := metrics.New()
	assistant := bot.New(chatSvc, enricher, portfolios, responseCache, m, logger)

	return &assistantDeps{
		assistant:  assistant,
		portfolios: portfolios,
		quotes:     quotes,
		metrics:    m,
		close: func() {
			pool.Close()
			if redisClient != nil {
				_ = redisClient.Close()
			}
		},
	}, nil
}

func runInteractive(ctx context.Context, deps *assistantDeps, userID string, limit int, logger *log.Logger) {
	fmt.Println("Welcome to the Finsight finance advisor.")
	fmt.Println("Type 'exit' to quit, 'help' for commands.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Println("\n" + strings.Repeat("-", 50))
		fmt.Print("You: ")
		if !scanner.Scan() {
			return
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}

		switch strings.ToLower(query) {
		case "exit":
			fmt.Println("\nThank you for using Finsight.")
			return
		case "help":
			fmt.Println("\nAvailable commands:")
			fmt.Println("  help       Show available commands")
			fmt.Println("  market     Look up a stock quote")
			fmt.Println("  portfolio  Show your portfolio summary")
			fmt.Println("  exit       Exit the chatbot")
			continue
		case "market":
			handleMarketCommand(ctx, deps, scanner)
			continue
		case "portfolio":
			handlePortfolioCommand(ctx, deps, userID)
			continue
		}

		result, err := deps.assistant.ProcessQuery(ctx, bot.QueryOptions{
			Query:       query,
			UserID:      userID,
			Enrich:      true,
			Personalize: userID != "",
			Limit:       limit,
			Surface:     "cli",
		})
		if err != nil {
			logger.Printf("query failed: %v", err)
			continue
		}

		fmt.Printf("\nAI: %s\n", result.Answer)
		printSources(result.Sources)
	}
}

func handleMarketCommand(ctx context.Context, deps *assistantDeps, scanner *bufio.Scanner) {
	if deps.quotes == nil {
		fmt.Println("Market data is not configured (set ALPHA_VANTAGE_API_KEY).")
		return
	}

	fmt.Print("Enter stock symbols (comma-separated): ")
	if !scanner.Scan() {
		return
	}

	for _, symbol := range strings.Split(strings.ToUpper(scanner.Text()), ",") {
		symbol = strings.TrimSpace(symbol)
		if symbol == "" {
			continue
		}
		quote, err := deps.quotes.StockQuote(ctx, symbol)
		if err != nil {
			fmt.Printf("%s: %v\n", symbol, err)
			continue
		}
		if quote == nil {
			fmt.Printf("No data found for %s\n", symbol)
			continue
		}
		fmt.Printf("%s: $%s (%s) | Volume: %s\n", quote.Symbol, quote.Price, quote.ChangePercent, quote.Volume)
	}
}

func handlePortfolioCommand(ctx context.Context, deps *assistantDeps, userID string) {
	if userID == "" {
		fmt.Println("Pass --user to enable portfolio tracking.")
		return
	}

	summary, err := deps.portfolios.Summarize(ctx, userID)
	if err != nil {
		fmt.Printf("Could not load portfolio: %v\n", err)
		return
	}

	fmt.Println("\n=== Portfolio Summary ===")
	fmt.Printf("Total Value: $%.2f\n", summary.TotalValue)
	fmt.Printf("Performance: %.2f%%\n", summary.TotalGainPercent)
	fmt.Println("\nHoldings:")
	for _, holding := range summary.Holdings {
		fmt.Printf("  %s: %s shares @ $%.2f ($%.2f, %.2f%%)\n",
			holding.Symbol, strconv.FormatFloat(holding.Quantity, 'f', -1, 64),
			holding.CurrentPrice, holding.MarketValue, holding.GainLossPercent)
	}
}

func printSources(sources []chat.Source) {
	if len(sources) == 0 {
		return
	}
	fmt.Println()
	fmt.Println("Sources:")
	for idx, source := range sources {
		fmt.Printf("%d. %s (%s)\n", idx+1, source.Title, source.Path)
	}
}

func printUsage() {
	fmt.Println("Usage: finsight <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  ingest   Ingest knowledge base documents into Postgres (use --dir to override)")
	fmt.Println("  chat     Query the assistant from the terminal (use --user for personalization)")
	fmt.Println("  serve    Start the HTTP/WebSocket API and web UI")
	fmt.Println("  clear    Remove the ingested knowledge base")
}
