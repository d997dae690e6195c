package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fabfab/ragchat/api"
	"github.com/fabfab/ragchat/chat"
	"github.com/fabfab/ragchat/config"
	"github.com/fabfab/ragchat/database"
	"github.com/fabfab/ragchat/embeddings"
	"github.com/fabfab/ragchat/ingestion"
	"github.com/fabfab/ragchat/llm"
	"github.com/fabfab/ragchat/search"
	"github.com/fabfab/ragchat/vectorstore"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger setup: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// The completion service is the primary dependency: missing credentials
	// abort startup. Web search credentials are checked per request instead.
	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		logger.Fatal("llm setup", zap.Error(err))
	}

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		logger.Fatal("embedder setup", zap.Error(err))
	}

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("postgres connection", zap.Error(err))
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool, cfg.Embeddings.Dimension); err != nil {
		logger.Fatal("ensure schema", zap.Error(err))
	}

	store := vectorstore.NewPostgresStore(pool)
	retriever := vectorstore.NewHybridRetriever(store, vectorstore.DefaultHybridConfig())
	gate := vectorstore.NewRelevanceGate(cfg.Retrieval.RelevanceThreshold)

	chunker := ingestion.NewChunker(cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap)
	ingestSvc := ingestion.NewService(store, embedder, chunker, logger, cfg.MaxUploadMB)

	sessions := chat.NewSessionStore()
	policy := search.NewPolicy(llmClient, logger)
	provider := search.NewGoogleProvider(cfg.Search.GoogleAPIKey, cfg.Search.GoogleCSEID)
	searcher := search.NewSearcher(provider, search.NewPageExtractor(0), logger)

	chatSvc := chat.NewService(sessions, embedder, retriever, gate, llmClient, policy, searcher, logger, chat.Options{
		TopK:        cfg.Retrieval.TopK,
		SearchCount: cfg.Search.ResultCount,
	})

	server := api.New(logger, chatSvc, ingestSvc, store, sessions)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
