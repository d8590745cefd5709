package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/verse-app/verse/internal/api"
	"github.com/verse-app/verse/internal/auth"
	"github.com/verse-app/verse/internal/bible"
	"github.com/verse-app/verse/internal/chat"
	"github.com/verse-app/verse/internal/config"
	"github.com/verse-app/verse/internal/database"
	"github.com/verse-app/verse/internal/definitions"
	"github.com/verse-app/verse/internal/events"
	"github.com/verse-app/verse/internal/insights"
	"github.com/verse-app/verse/internal/llm"
	"github.com/verse-app/verse/internal/middleware"
	iredis "github.com/verse-app/verse/internal/redis"
	"github.com/verse-app/verse/internal/search"
	"github.com/verse-app/verse/internal/server"
	"github.com/verse-app/verse/internal/usage"
	"github.com/verse-app/verse/internal/users"
)

const (
	sessionRateLimit     = 10
	sessionRateWindowSec = 60
	usageCleanupInterval = 24 * time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	ctx := context.Background()

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(cfg.DB.DSN(), "migrations"); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS is optional; without it events are dropped and the audit
	// consumer never starts.
	var (
		natsClient *events.Client
		publisher  *events.Publisher
	)
	if cfg.NATS.URL != "" {
		natsClient, err = events.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to nats", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()

		publisher = events.NewPublisher(natsClient.JetStream())

		consumer := events.NewConsumer(events.NewRepository(pool), natsClient.JetStream())
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("audit consumer stopped", "error", err)
			}
		}()
	} else {
		slog.Info("nats not configured, event audit disabled")
	}

	// Auth
	jwtManager := auth.NewJWTManager(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)
	authSvc := auth.NewService(jwtManager, redisClient)
	userRepo := users.NewRepository(pool)
	userSvc := users.NewService(userRepo)
	authHandler := auth.NewHandler(authSvc, userSvc)

	// Usage quota
	usageSvc := usage.NewService(usage.NewRepository(pool), cfg.Usage)
	userHandler := users.NewHandler(userSvc, usageSvc)

	// Bible passages
	fetcher := bible.NewCachedFetcher(
		bible.NewHelloAOClient(cfg.Bible.BaseURL, cfg.Bible.RequestTimeout),
		redisClient,
		cfg.Bible.CacheTTL,
	)
	bibleSvc := bible.NewService(fetcher, bible.NewRepository(pool))
	bibleHandler := bible.NewHandler(bibleSvc, userSvc)

	// Anthropic
	llmClient := llm.NewAnthropicClient(llm.Config{
		APIKey:              cfg.Anthropic.APIKey,
		Model:               cfg.Anthropic.Model,
		MaxTokensInsights:   cfg.Anthropic.MaxTokensInsights,
		MaxTokensDefinition: cfg.Anthropic.MaxTokensDefinition,
		MaxTokensChat:       cfg.Anthropic.MaxTokensChat,
		RequestTimeout:      cfg.Anthropic.RequestTimeout,
	})

	// Insights and definitions
	insightSvc := insights.NewService(insights.NewRepository(pool), llmClient, usageSvc, publisher)
	insightHandler := insights.NewHandler(insightSvc, userSvc)
	definitionSvc := definitions.NewService(definitions.NewRepository(pool), llmClient, usageSvc, publisher)
	definitionHandler := definitions.NewHandler(definitionSvc, userSvc)

	// Conversation search; without an OpenAI key messages are stored
	// unembedded and the search endpoint reports unavailable.
	var embedder search.Embedder
	if cfg.OpenAI.APIKey != "" {
		embedder = search.NewOpenAIEmbedder(cfg.OpenAI.APIKey, cfg.OpenAI.EmbeddingModel)
	} else {
		slog.Info("openai not configured, semantic search disabled")
	}
	searchSvc := search.NewService(search.NewRepository(pool), embedder)
	searchHandler := search.NewHandler(searchSvc)

	// Chat
	var indexer chat.Indexer
	if searchSvc.Enabled() {
		indexer = searchSvc
	}
	chatSvc := chat.NewService(chat.NewRepository(pool), llmClient, usageSvc, insightSvc, indexer, publisher)
	chatHandler := chat.NewHandler(chatSvc, userSvc)

	// Expired usage rows are swept daily.
	go func() {
		ticker := time.NewTicker(usageCleanupInterval)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := usageSvc.Cleanup(ctx); err != nil {
				slog.Error("usage cleanup failed", "error", err)
			}
		}
	}()

	sessionLimiter := middleware.NewRateLimiter(redisClient, sessionRateLimit, sessionRateWindowSec)

	// Router
	router := api.NewRouter(pool, redisClient, natsClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		SessionRateLimiter: sessionLimiter.Middleware,
	}, api.HandlerSet{
		CreateSession: authHandler.CreateSession,
		Refresh:       authHandler.Refresh,
		Logout:        authHandler.Logout,

		Me:            userHandler.Me,
		Usage:         userHandler.Usage,
		ClearUserData: userHandler.ClearData,

		GetPassage:       bibleHandler.GetPassage,
		GetChapter:       bibleHandler.GetChapter,
		ListTranslations: bibleHandler.ListTranslations,

		GenerateInsight:      insightHandler.Generate,
		ListInsights:         insightHandler.List,
		ClearInsights:        insightHandler.Clear,
		StreamInsightChat:    chatHandler.StreamInsightChat,
		InsightMessages:      chatHandler.InsightMessages,
		ClearInsightMessages: chatHandler.ClearInsightMessages,

		Define:           definitionHandler.Define,
		ListDefinitions:  definitionHandler.List,
		ClearDefinitions: definitionHandler.Clear,

		StreamChat:   chatHandler.StreamChat,
		ListChats:    chatHandler.ListChats,
		ChatMessages: chatHandler.ChatMessages,
		DeleteChat:   chatHandler.DeleteChat,

		SearchConversations: searchHandler.SearchConversations,

		AuthMiddleware: auth.Middleware(authSvc),
	})

	// Start server
	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
